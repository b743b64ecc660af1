package pdftext

import (
	"bytes"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/sha1n/mcp-refqa-server/internal/domain"
)

// binaryProbeLen is how much of a file is inspected for null bytes.
const binaryProbeLen = 512

// TextDecoder reads plain text documents. Form feeds separate pages.
type TextDecoder struct{}

// NewTextDecoder creates a TextDecoder.
func NewTextDecoder() *TextDecoder {
	return &TextDecoder{}
}

// Decode validates that data is text and splits it into pages.
func (d *TextDecoder) Decode(data []byte) (Result, error) {
	if IsBinary(data) {
		return Result{}, fmt.Errorf("%w: binary content", domain.ErrDecode)
	}
	if !utf8.Valid(data) {
		return Result{}, fmt.Errorf("%w: invalid utf-8", domain.ErrDecode)
	}
	return joinPages(strings.Split(string(data), "\f")), nil
}

// IsBinary checks if the content appears to be binary by looking for null bytes
// in the first 512 bytes.
func IsBinary(content []byte) bool {
	probe := content[:min(len(content), binaryProbeLen)]
	return bytes.IndexByte(probe, 0) >= 0
}
