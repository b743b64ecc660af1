package pdftext

import (
	"bytes"
	"fmt"

	"github.com/ledongthuc/pdf"

	"github.com/sha1n/mcp-refqa-server/internal/domain"
)

// PDFDecoder extracts text with github.com/ledongthuc/pdf. It needs no license.
type PDFDecoder struct{}

// NewPDFDecoder creates a PDFDecoder.
func NewPDFDecoder() *PDFDecoder {
	return &PDFDecoder{}
}

// Decode extracts the plain text of every page in order.
// Pages without a content dictionary count as empty pages.
func (d *PDFDecoder) Decode(data []byte) (result Result, err error) {
	if len(data) == 0 {
		return Result{}, fmt.Errorf("%w: empty document", domain.ErrDecode)
	}

	// The parser panics on some malformed inputs.
	defer func() {
		if r := recover(); r != nil {
			result, err = Result{}, fmt.Errorf("%w: malformed pdf: %v", domain.ErrDecode, r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return Result{}, fmt.Errorf("%w: failed to open pdf: %v", domain.ErrDecode, err)
	}

	numPages := reader.NumPage()
	if numPages == 0 {
		return Result{}, fmt.Errorf("%w: pdf has no pages", domain.ErrDecode)
	}

	pages := make([]string, 0, numPages)
	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			pages = append(pages, "")
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return Result{}, fmt.Errorf("%w: page %d: %v", domain.ErrDecode, i, err)
		}
		pages = append(pages, text)
	}

	return joinPages(pages), nil
}
