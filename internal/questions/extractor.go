// Package questions turns flattened document text into numbered question records.
//
// A question looks like "N. <body> (Reference: ...)". Extraction is a two-phase
// scan: every complete reference marker is located first, then ordinals are walked
// left to right and each one is bound to the first marker that follows its body.
// The result matches a lazy, leftmost, non-overlapping pattern match without
// relying on lazy regular expression semantics.
package questions

import (
	"strings"

	"github.com/sha1n/mcp-refqa-server/internal/domain"
)

// ReferenceMarker opens the parenthesized block that terminates a question.
const ReferenceMarker = "(Reference:"

// markerSpan is a complete "(Reference: ...)" block.
type markerSpan struct {
	start int // index of '('
	end   int // index just past the closing ')'
}

// Extract parses text into questions with fresh 1-based ids.
// Text without any reference marker yields an empty (nil) result.
func Extract(text string) []domain.Question {
	markers := findMarkers(text)
	if len(markers) == 0 {
		return nil
	}

	var result []domain.Question
	pos := 0
	next := 0 // first marker not yet known to start before pos

	for pos < len(text) {
		bodyStart, ok := nextOrdinal(text, pos)
		if !ok {
			break
		}

		for next < len(markers) && markers[next].start < bodyStart {
			next++
		}
		if next == len(markers) {
			break
		}

		span := markers[next]
		result = append(result, domain.Question{
			ID:   len(result) + 1,
			Text: strings.TrimSpace(text[bodyStart:span.end]),
		})
		pos = span.end
	}

	return result
}

// findMarkers returns every reference marker that has a closing parenthesis
// on the same line, ordered by position. Markers may share a closing parenthesis.
func findMarkers(text string) []markerSpan {
	var spans []markerSpan
	offset := 0
	for {
		idx := strings.Index(text[offset:], ReferenceMarker)
		if idx < 0 {
			return spans
		}
		start := offset + idx
		if end, ok := closingParen(text, start+len(ReferenceMarker)); ok {
			spans = append(spans, markerSpan{start: start, end: end})
		}
		offset = start + 1
	}
}

// closingParen finds the first ')' at or after from, stopping at a line break.
// It returns the index just past the parenthesis.
func closingParen(text string, from int) (int, bool) {
	for i, r := range text[from:] {
		switch {
		case r == ')':
			return from + i + 1, true
		case isLineTerminator(r):
			return 0, false
		}
	}
	return 0, false
}

// nextOrdinal finds the leftmost "digits." at or after pos and returns the index
// of the first character after the period.
func nextOrdinal(text string, pos int) (int, bool) {
	i := pos
	for i < len(text) {
		if !isDigit(text[i]) {
			i++
			continue
		}
		j := i
		for j < len(text) && isDigit(text[j]) {
			j++
		}
		if j < len(text) && text[j] == '.' {
			return j + 1, true
		}
		// No start inside this run can be followed by a period either.
		i = j
	}
	return 0, false
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}

func isLineTerminator(r rune) bool {
	return r == '\n' || r == '\r' || r == '\u2028' || r == '\u2029'
}
