// Package pdftext extracts flattened plain text from question and reference documents.
package pdftext

import (
	"strings"
)

// Result is the text of a decoded document.
type Result struct {
	// Text is the normalized document text: every whitespace run collapsed to a
	// single space and the ends trimmed.
	Text string
	// Pages is the number of pages in the source document (at least 1).
	Pages int
}

// Decoder turns raw document bytes into normalized text.
// Implementations wrap failures in domain.ErrDecode.
type Decoder interface {
	Decode(data []byte) (Result, error)
}

// Normalize collapses all whitespace runs, newlines included, to single spaces and trims.
func Normalize(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// joinPages flattens page texts the way every decoder does: pages joined by
// newlines, then normalized.
func joinPages(pages []string) Result {
	return Result{
		Text:  Normalize(strings.Join(pages, "\n")),
		Pages: len(pages),
	}
}
