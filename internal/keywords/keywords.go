// Package keywords derives search keywords from question text.
package keywords

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// MinLength is the shortest token, in runes, that is dropped. Kept tokens are longer.
const MinLength = 2

// stopWords is the closed set of filler words never used as keywords.
var stopWords = map[string]struct{}{
	"what": {}, "how": {}, "when": {}, "where": {}, "why": {}, "who": {}, "which": {},
	"is": {}, "are": {}, "the": {}, "a": {}, "an": {}, "and": {}, "or": {}, "but": {},
	"in": {}, "on": {}, "at": {}, "to": {}, "for": {}, "of": {}, "with": {}, "by": {},
}

// IsStopWord reports whether the lowercase word belongs to the stop-word set.
func IsStopWord(word string) bool {
	_, ok := stopWords[word]
	return ok
}

// Extract returns the distinct keywords of text in first-occurrence order.
// Text is lowercased, every character that is not a letter, digit or underscore
// becomes a separator, and short tokens and stop words are dropped.
// Tokens are Unicode-aware: accented letters do not split a word and length is
// counted in runes, so "política" is one keyword.
func Extract(text string) []string {
	tokens := strings.FieldsFunc(strings.ToLower(text), isSeparator)

	var result []string
	seen := make(map[string]struct{}, len(tokens))
	for _, tok := range tokens {
		if utf8.RuneCountInString(tok) <= MinLength || IsStopWord(tok) {
			continue
		}
		if _, dup := seen[tok]; dup {
			continue
		}
		seen[tok] = struct{}{}
		result = append(result, tok)
	}
	return result
}

func isSeparator(r rune) bool {
	return !(unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_')
}
