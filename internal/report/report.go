// Package report renders answered questions as a plain text document.
package report

import (
	"fmt"
	"os"
	"strings"

	"github.com/sha1n/mcp-refqa-server/internal/domain"
)

// DefaultFilename is the name offered for downloaded reports.
const DefaultFilename = "questions-and-answers.txt"

// ContentType is the media type of a rendered report.
const ContentType = "text/plain; charset=utf-8"

const (
	separatorWidth = 50
	missingSource  = "N/A"
)

var separator = strings.Repeat("=", separatorWidth)

// Export renders one block per question, in order.
func Export(questions []domain.Question) string {
	var b strings.Builder
	for _, q := range questions {
		source := q.SourceFile
		if source == "" {
			source = missingSource
		}
		fmt.Fprintf(&b, "Question %d: %s\n\nAnswer:\n%s\n\nSource: %s\n\n%s\n\n", q.ID, q.Text, q.Answer, source, separator)
	}
	return b.String()
}

// WriteFile writes the rendered report to path.
func WriteFile(path string, questions []domain.Question) error {
	if err := os.WriteFile(path, []byte(Export(questions)), 0o644); err != nil {
		return fmt.Errorf("failed to write report %s: %w", path, err)
	}
	return nil
}
