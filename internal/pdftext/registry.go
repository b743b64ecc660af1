package pdftext

import (
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"github.com/sha1n/mcp-refqa-server/internal/domain"
)

// PDF engine names accepted by NewRegistry.
const (
	EngineLedongthuc = "ledongthuc"
	EngineUniPDF     = "unipdf"
)

// Registry routes documents to decoders by file extension.
type Registry struct {
	decoders map[string]Decoder
}

// NewRegistry builds the default registry: PDFs go to the selected engine,
// .txt and .md files to the TextDecoder.
func NewRegistry(engine, licenseKey string) (*Registry, error) {
	var pdfDecoder Decoder
	switch engine {
	case "", EngineLedongthuc:
		pdfDecoder = NewPDFDecoder()
	case EngineUniPDF:
		d, err := NewUniPDFDecoder(licenseKey)
		if err != nil {
			return nil, err
		}
		pdfDecoder = d
	default:
		return nil, fmt.Errorf("unknown pdf engine: %s", engine)
	}

	r := NewEmptyRegistry()
	r.Register(".pdf", pdfDecoder)
	text := NewTextDecoder()
	r.Register(".txt", text)
	r.Register(".md", text)
	return r, nil
}

// NewEmptyRegistry creates a registry with no decoders.
func NewEmptyRegistry() *Registry {
	return &Registry{decoders: make(map[string]Decoder)}
}

// Register maps a file extension (with leading dot, any case) to a decoder.
func (r *Registry) Register(ext string, d Decoder) {
	r.decoders[strings.ToLower(ext)] = d
}

// Supports reports whether filename has a registered extension.
func (r *Registry) Supports(filename string) bool {
	_, ok := r.decoders[extOf(filename)]
	return ok
}

// Extensions returns the registered extensions, sorted.
func (r *Registry) Extensions() []string {
	exts := make([]string, 0, len(r.decoders))
	for ext := range r.decoders {
		exts = append(exts, ext)
	}
	slices.Sort(exts)
	return exts
}

// Decode decodes data with the decoder registered for filename's extension.
func (r *Registry) Decode(filename string, data []byte) (Result, error) {
	d, ok := r.decoders[extOf(filename)]
	if !ok {
		return Result{}, fmt.Errorf("%w: unsupported file type %q", domain.ErrDecode, filepath.Ext(filename))
	}
	return d.Decode(data)
}

func extOf(filename string) string {
	return strings.ToLower(filepath.Ext(filename))
}
