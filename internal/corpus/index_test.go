package corpus

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sha1n/mcp-refqa-server/internal/domain"
)

func testDocuments() []domain.ReferenceDocument {
	return []domain.ReferenceDocument{
		{Filename: "security.pdf", Content: "All customer data is encrypted at rest using AES-256. Keys rotate yearly.", Pages: 3},
		{Filename: "operations.pdf", Content: "Backups run nightly and are retained for thirty days.", Pages: 1},
		{Filename: "hr.pdf", Content: "Employees complete security awareness training every year.", Pages: 2},
	}
}

func TestNewSnapshot(t *testing.T) {
	docs := testDocuments()
	snap, err := NewSnapshot(docs, 7)
	require.NoError(t, err)
	defer func() { _ = snap.Close() }()

	assert.Equal(t, uint64(7), snap.Generation())
	assert.Equal(t, 3, snap.Len())
	assert.Equal(t, docs, snap.Documents())

	doc, ok := snap.Document("operations.pdf")
	require.True(t, ok)
	assert.Equal(t, 1, doc.Pages)

	_, ok = snap.Document("missing.pdf")
	assert.False(t, ok)
}

func TestSnapshot_Documents_ReturnsCopy(t *testing.T) {
	snap, err := NewSnapshot(testDocuments(), 1)
	require.NoError(t, err)
	defer func() { _ = snap.Close() }()

	docs := snap.Documents()
	docs[0].Filename = "changed.pdf"

	assert.Equal(t, "security.pdf", snap.Documents()[0].Filename)
}

func TestSnapshot_Search(t *testing.T) {
	snap, err := NewSnapshot(testDocuments(), 1)
	require.NoError(t, err)
	defer func() { _ = snap.Close() }()

	res, err := snap.Search("backups", "", 10)
	require.NoError(t, err)
	require.Equal(t, uint64(1), res.Total)
	assert.Equal(t, "operations.pdf", res.Hits[0].Filename)
	assert.Equal(t, 1, res.Hits[0].Pages)
	require.NotEmpty(t, res.Hits[0].Fragments)
	assert.Contains(t, res.Hits[0].Fragments[0], "<mark>Backups</mark>")

	res, err = snap.Search("security", "", 10)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), res.Total)
	assert.Equal(t, "hr.pdf", res.Hits[0].Filename)
}

func TestSnapshot_Search_FilenameFilter(t *testing.T) {
	snap, err := NewSnapshot(testDocuments(), 1)
	require.NoError(t, err)
	defer func() { _ = snap.Close() }()

	res, err := snap.Search("year yearly", "", 10)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), res.Total)

	res, err = snap.Search("year yearly", "hr.pdf", 10)
	require.NoError(t, err)
	require.Equal(t, uint64(1), res.Total)
	assert.Equal(t, "hr.pdf", res.Hits[0].Filename)
}

func TestSnapshot_Search_Size(t *testing.T) {
	snap, err := NewSnapshot(testDocuments(), 1)
	require.NoError(t, err)
	defer func() { _ = snap.Close() }()

	res, err := snap.Search("year yearly", "", 1)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), res.Total)
	assert.Len(t, res.Hits, 1)
}

func TestSnapshot_Search_EmptyQuery(t *testing.T) {
	snap, err := NewSnapshot(nil, 1)
	require.NoError(t, err)
	defer func() { _ = snap.Close() }()

	_, err = snap.Search("  ", "", 10)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
