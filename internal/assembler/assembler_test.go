package assembler

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sha1n/mcp-refqa-server/internal/domain"
)

func corpus() []domain.ReferenceDocument {
	return []domain.ReferenceDocument{
		{Filename: "a.pdf", Content: "Backups run nightly. Encryption uses AES.", Pages: 1},
		{Filename: "b.pdf", Content: "Encryption keys rotate yearly. Encryption is mandatory.", Pages: 1},
		{Filename: "c.pdf", Content: "Unrelated content about lunch.", Pages: 1},
	}
}

func TestAssemble_RanksAndCites(t *testing.T) {
	qs := []domain.Question{{ID: 1, Text: "How is encryption handled? (Reference: Security)"}}

	got, err := Assemble(context.Background(), qs, corpus(), Options{})

	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 1, got[0].ID)
	assert.Equal(t, "b.pdf, a.pdf", got[0].SourceFile)
	assert.Equal(t,
		"Encryption keys rotate yearly. Encryption is mandatory (Source: b.pdf)\n\n"+
			"Backups run nightly. Encryption uses AES. (Source: a.pdf)",
		got[0].Answer)
}

func TestAssemble_NoMatch(t *testing.T) {
	qs := []domain.Question{{ID: 1, Text: "Describe quantum teleportation (Reference: Physics)"}}

	got, err := Assemble(context.Background(), qs, corpus(), Options{})

	require.NoError(t, err)
	assert.Equal(t, domain.NoAnswerText, got[0].Answer)
	assert.Empty(t, got[0].SourceFile)
}

func TestAssemble_EmptyCorpus(t *testing.T) {
	qs := []domain.Question{{ID: 1, Text: "Anything? (Reference: x)"}}

	got, err := Assemble(context.Background(), qs, nil, Options{})

	assert.ErrorIs(t, err, domain.ErrNoReferences)
	assert.Nil(t, got)
}

func TestAssemble_TieKeepsCorpusOrder(t *testing.T) {
	docs := []domain.ReferenceDocument{
		{Filename: "z.pdf", Content: "Firewall rules apply."},
		{Filename: "m.pdf", Content: "The firewall is managed."},
		{Filename: "a.pdf", Content: "Firewall audits happen."},
	}
	qs := []domain.Question{{ID: 1, Text: "Firewall? (Reference: Net)"}}

	got, err := Assemble(context.Background(), qs, docs, Options{})

	require.NoError(t, err)
	assert.Equal(t, "z.pdf, m.pdf, a.pdf", got[0].SourceFile)
}

func TestAssemble_TopNCap(t *testing.T) {
	var docs []domain.ReferenceDocument
	for i := 0; i < 6; i++ {
		docs = append(docs, domain.ReferenceDocument{
			Filename: fmt.Sprintf("doc%d.pdf", i),
			Content:  strings.Repeat("Logging is enabled. ", i+1),
		})
	}
	qs := []domain.Question{{ID: 1, Text: "Logging? (Reference: Ops)"}}

	t.Run("default", func(t *testing.T) {
		got, err := Assemble(context.Background(), qs, docs, Options{})
		require.NoError(t, err)
		assert.Equal(t, "doc5.pdf, doc4.pdf, doc3.pdf", got[0].SourceFile)
		assert.Equal(t, 3, strings.Count(got[0].Answer, "(Source: "))
	})

	t.Run("custom", func(t *testing.T) {
		got, err := Assemble(context.Background(), qs, docs, Options{MaxMatches: 1})
		require.NoError(t, err)
		assert.Equal(t, "doc5.pdf", got[0].SourceFile)
	})
}

func TestAssemble_Idempotent(t *testing.T) {
	qs := []domain.Question{
		{ID: 1, Text: "Encryption? (Reference: a)"},
		{ID: 2, Text: "Backups? (Reference: b)"},
		{ID: 3, Text: "Lunch? (Reference: c)"},
	}

	first, err := Assemble(context.Background(), qs, corpus(), Options{})
	require.NoError(t, err)
	second, err := Assemble(context.Background(), qs, corpus(), Options{})
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestAssemble_DoesNotMutateInput(t *testing.T) {
	qs := []domain.Question{{ID: 1, Text: "Encryption? (Reference: a)"}}

	_, err := Assemble(context.Background(), qs, corpus(), Options{})

	require.NoError(t, err)
	assert.False(t, qs[0].Answered())
}

func TestAssemble_ConcurrentMatchesSequential(t *testing.T) {
	var qs []domain.Question
	for i := 1; i <= 40; i++ {
		topic := []string{"encryption", "backups", "lunch", "firewall"}[i%4]
		qs = append(qs, domain.Question{ID: i, Text: fmt.Sprintf("Tell me about %s (Reference: %d)", topic, i)})
	}

	parallel, err := Assemble(context.Background(), qs, corpus(), Options{Concurrency: 8})
	require.NoError(t, err)

	require.Len(t, parallel, len(qs))
	for i, q := range qs {
		assert.Equal(t, AnswerQuestion(q, corpus(), DefaultMaxMatches), parallel[i])
	}
}

func TestAssemble_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	qs := []domain.Question{{ID: 1, Text: "Encryption? (Reference: a)"}}

	_, err := Assemble(ctx, qs, corpus(), Options{})

	assert.ErrorIs(t, err, context.Canceled)
}

func TestRank(t *testing.T) {
	got := Rank([]string{"encryption"}, corpus())

	require.Len(t, got, 2)
	assert.Equal(t, "b.pdf", got[0].Source)
	assert.Equal(t, 2, got[0].Score)
	assert.Equal(t, "a.pdf", got[1].Source)
	assert.Equal(t, 1, got[1].Score)
}
