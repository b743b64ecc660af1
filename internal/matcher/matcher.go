// Package matcher scores reference documents against question keywords and picks
// the passage that best supports an answer.
package matcher

import (
	"strings"
	"unicode/utf8"

	"github.com/sha1n/mcp-refqa-server/internal/domain"
)

// Score sums the case-insensitive, non-overlapping occurrence counts of every
// keyword in content. Keywords are literal text. Empty or malformed keywords
// contribute nothing.
func Score(keywords []string, content string) int {
	if len(keywords) == 0 || content == "" {
		return 0
	}

	lower := strings.ToLower(content)
	score := 0
	for _, kw := range keywords {
		if !usable(kw) {
			continue
		}
		score += strings.Count(lower, strings.ToLower(kw))
	}
	return score
}

// ExtractSnippet returns a window of up to three sentences centered on the sentence
// that contains the most distinct keywords. The earliest sentence wins ties.
// When no sentence contains a keyword the result is domain.NoSnippetText.
func ExtractSnippet(keywords []string, content string) string {
	terms := distinct(keywords)
	if len(terms) == 0 {
		return domain.NoSnippetText
	}

	sentences := SplitSentences(content)
	best, bestScore := -1, 0
	for i, s := range sentences {
		lower := strings.ToLower(s)
		score := 0
		for _, term := range terms {
			if strings.Contains(lower, term) {
				score++
			}
		}
		if score > bestScore {
			best, bestScore = i, score
		}
	}
	if bestScore == 0 {
		return domain.NoSnippetText
	}

	start := max(0, best-1)
	end := min(len(sentences), best+2)
	return collapse(strings.Join(sentences[start:end], ". "))
}

// Match scores a document and, when it scores above zero, extracts its snippet.
// The boolean is false for documents that do not match at all.
func Match(keywords []string, doc domain.ReferenceDocument) (domain.MatchCandidate, bool) {
	score := Score(keywords, doc.Content)
	if score <= 0 {
		return domain.MatchCandidate{}, false
	}
	return domain.MatchCandidate{
		Snippet: ExtractSnippet(keywords, doc.Content),
		Source:  doc.Filename,
		Score:   score,
	}, true
}

// SplitSentences splits text on every run of '.', '!' and '?'. Delimiters are
// discarded and empty pieces at either end are kept, so "A. B." yields
// ["A", " B", ""].
func SplitSentences(text string) []string {
	var out []string
	start := 0
	for i := 0; i < len(text); {
		if !isTerminator(text[i]) {
			i++
			continue
		}
		out = append(out, text[start:i])
		for i < len(text) && isTerminator(text[i]) {
			i++
		}
		start = i
	}
	return append(out, text[start:])
}

func isTerminator(b byte) bool {
	return b == '.' || b == '!' || b == '?'
}

func distinct(keywords []string) []string {
	seen := make(map[string]struct{}, len(keywords))
	terms := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		if !usable(kw) {
			continue
		}
		term := strings.ToLower(kw)
		if _, ok := seen[term]; ok {
			continue
		}
		seen[term] = struct{}{}
		terms = append(terms, term)
	}
	return terms
}

func usable(kw string) bool {
	return kw != "" && utf8.ValidString(kw)
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
