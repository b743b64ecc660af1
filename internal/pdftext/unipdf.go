package pdftext

import (
	"bytes"
	"errors"
	"fmt"
	"sync"

	"github.com/unidoc/unipdf/v3/common/license"
	"github.com/unidoc/unipdf/v3/extractor"
	"github.com/unidoc/unipdf/v3/model"

	"github.com/sha1n/mcp-refqa-server/internal/domain"
)

// ErrMissingLicense is returned when the unipdf engine is selected without a key.
var ErrMissingLicense = errors.New("unipdf requires a metered license key")

var (
	licenseOnce sync.Once
	licenseErr  error
)

// UniPDFDecoder extracts text with github.com/unidoc/unipdf/v3.
type UniPDFDecoder struct{}

// NewUniPDFDecoder registers the metered license key and returns a decoder.
// The key is process global; only the first call registers it.
func NewUniPDFDecoder(licenseKey string) (*UniPDFDecoder, error) {
	if licenseKey == "" {
		return nil, ErrMissingLicense
	}
	licenseOnce.Do(func() {
		licenseErr = license.SetMeteredKey(licenseKey)
	})
	if licenseErr != nil {
		return nil, fmt.Errorf("failed to set unipdf license key: %w", licenseErr)
	}
	return &UniPDFDecoder{}, nil
}

// Decode extracts the text of every page in order.
func (d *UniPDFDecoder) Decode(data []byte) (Result, error) {
	if len(data) == 0 {
		return Result{}, fmt.Errorf("%w: empty document", domain.ErrDecode)
	}

	reader, err := model.NewPdfReader(bytes.NewReader(data))
	if err != nil {
		return Result{}, fmt.Errorf("%w: failed to open pdf: %v", domain.ErrDecode, err)
	}

	numPages, err := reader.GetNumPages()
	if err != nil {
		return Result{}, fmt.Errorf("%w: failed to count pages: %v", domain.ErrDecode, err)
	}
	if numPages == 0 {
		return Result{}, fmt.Errorf("%w: pdf has no pages", domain.ErrDecode)
	}

	pages := make([]string, 0, numPages)
	for i := 1; i <= numPages; i++ {
		page, err := reader.GetPage(i)
		if err != nil {
			return Result{}, fmt.Errorf("%w: page %d: %v", domain.ErrDecode, i, err)
		}
		ex, err := extractor.New(page)
		if err != nil {
			return Result{}, fmt.Errorf("%w: page %d: %v", domain.ErrDecode, i, err)
		}
		text, err := ex.ExtractText()
		if err != nil {
			return Result{}, fmt.Errorf("%w: page %d: %v", domain.ErrDecode, i, err)
		}
		pages = append(pages, text)
	}

	return joinPages(pages), nil
}
