// Package assembler answers questions by ranking reference documents and
// composing the best snippets with their provenance.
package assembler

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/sha1n/mcp-refqa-server/internal/domain"
	"github.com/sha1n/mcp-refqa-server/internal/keywords"
	"github.com/sha1n/mcp-refqa-server/internal/matcher"
)

const (
	// DefaultMaxMatches is the number of supporting documents cited per answer.
	DefaultMaxMatches = 3
	// DefaultConcurrency bounds how many questions are answered in parallel.
	DefaultConcurrency = 4

	answerSeparator = "\n\n"
	sourceSeparator = ", "
)

// Options tunes assembly. Zero values select the defaults.
type Options struct {
	MaxMatches  int
	Concurrency int
}

func (o Options) withDefaults() Options {
	if o.MaxMatches <= 0 {
		o.MaxMatches = DefaultMaxMatches
	}
	if o.Concurrency <= 0 {
		o.Concurrency = DefaultConcurrency
	}
	return o
}

// Assemble returns a copy of questions with Answer and SourceFile filled in from docs.
// The input slice is not modified. An empty corpus yields domain.ErrNoReferences.
// The result is identical to answering the questions one by one in order.
func Assemble(ctx context.Context, questions []domain.Question, docs []domain.ReferenceDocument, opts Options) ([]domain.Question, error) {
	if len(docs) == 0 {
		return nil, domain.ErrNoReferences
	}
	opts = opts.withDefaults()

	answered := make([]domain.Question, len(questions))
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Concurrency)

	for i, q := range questions {
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}
			answered[i] = AnswerQuestion(q, docs, opts.MaxMatches)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("answering questions: %w", err)
	}
	return answered, nil
}

// AnswerQuestion answers a single question against docs, citing at most maxMatches
// documents. Documents that score zero are never cited.
func AnswerQuestion(q domain.Question, docs []domain.ReferenceDocument, maxMatches int) domain.Question {
	if maxMatches <= 0 {
		maxMatches = DefaultMaxMatches
	}

	candidates := Rank(keywords.Extract(q.Text), docs)
	if len(candidates) == 0 {
		q.Answer = domain.NoAnswerText
		q.SourceFile = ""
		return q
	}
	if len(candidates) > maxMatches {
		candidates = candidates[:maxMatches]
	}

	answers := make([]string, len(candidates))
	sources := make([]string, len(candidates))
	for i, c := range candidates {
		answers[i] = fmt.Sprintf("%s (Source: %s)", c.Snippet, c.Source)
		sources[i] = c.Source
	}

	q.Answer = strings.Join(answers, answerSeparator)
	q.SourceFile = strings.Join(sources, sourceSeparator)
	return q
}

// Rank returns the matching documents ordered by score, highest first.
// Documents with equal scores keep their corpus order.
func Rank(kws []string, docs []domain.ReferenceDocument) []domain.MatchCandidate {
	var candidates []domain.MatchCandidate
	for _, doc := range docs {
		if c, ok := matcher.Match(kws, doc); ok {
			candidates = append(candidates, c)
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})
	return candidates
}
