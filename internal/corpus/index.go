package corpus

import (
	"fmt"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search/query"

	"github.com/sha1n/mcp-refqa-server/internal/domain"
)

const (
	// MaxBatchSize is the maximum number of documents per batch
	MaxBatchSize = 100

	// MaxBatchBytes is the maximum bytes per batch (10MB)
	MaxBatchBytes = 10 * 1024 * 1024
)

// SearchHit is one ranked search result.
type SearchHit struct {
	Filename  string   `json:"filename"`
	Pages     int      `json:"pages"`
	Score     float64  `json:"score"`
	Fragments []string `json:"fragments,omitempty"`
}

// SearchResults holds the hits of a search and the total match count.
type SearchResults struct {
	Query string      `json:"query"`
	Total uint64      `json:"total"`
	Hits  []SearchHit `json:"hits"`
}

// Snapshot is an immutable, fully loaded corpus: the ordered documents plus an
// in-memory full-text index over them.
type Snapshot struct {
	generation uint64
	docs       []domain.ReferenceDocument
	byName     map[string]int
	index      bleve.Index
}

// CreateIndexMapping creates the Bleve index mapping for reference documents.
func CreateIndexMapping() mapping.IndexMapping {
	docMapping := bleve.NewDocumentMapping()

	// Content - analyzed for full-text search, stored for highlighting
	contentField := bleve.NewTextFieldMapping()
	contentField.Analyzer = standard.Name
	contentField.Store = true
	contentField.IncludeTermVectors = true
	docMapping.AddFieldMappingsAt(domain.ReferenceFieldContent, contentField)

	// Filename - keyword (not analyzed), stored for retrieval
	nameField := bleve.NewTextFieldMapping()
	nameField.Analyzer = keyword.Name
	nameField.Store = true
	docMapping.AddFieldMappingsAt(domain.ReferenceFieldFilename, nameField)

	// Pages - stored numeric
	pagesField := bleve.NewNumericFieldMapping()
	pagesField.Store = true
	docMapping.AddFieldMappingsAt(domain.ReferenceFieldPages, pagesField)

	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultMapping = docMapping
	indexMapping.DefaultAnalyzer = standard.Name

	return indexMapping
}

// NewSnapshot indexes docs in memory. The slice must not be modified afterwards.
func NewSnapshot(docs []domain.ReferenceDocument, generation uint64) (*Snapshot, error) {
	index, err := bleve.NewMemOnly(CreateIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("failed to create index: %w", err)
	}

	s := &Snapshot{
		generation: generation,
		docs:       docs,
		byName:     make(map[string]int, len(docs)),
		index:      index,
	}

	batch := index.NewBatch()
	batchSize := 0
	batchBytes := 0
	for i, doc := range docs {
		s.byName[doc.Filename] = i

		if err := batch.Index(doc.Filename, doc); err != nil {
			_ = index.Close()
			return nil, fmt.Errorf("failed to index %s: %w", doc.Filename, err)
		}
		batchSize++
		batchBytes += len(doc.Content)

		if batchSize >= MaxBatchSize || batchBytes >= MaxBatchBytes {
			if err := index.Batch(batch); err != nil {
				_ = index.Close()
				return nil, fmt.Errorf("batch index failed: %w", err)
			}
			batch = index.NewBatch()
			batchSize = 0
			batchBytes = 0
		}
	}

	if batchSize > 0 {
		if err := index.Batch(batch); err != nil {
			_ = index.Close()
			return nil, fmt.Errorf("final batch index failed: %w", err)
		}
	}

	return s, nil
}

// Generation returns the reload generation that produced the snapshot.
func (s *Snapshot) Generation() uint64 {
	return s.generation
}

// Documents returns the documents in corpus order.
func (s *Snapshot) Documents() []domain.ReferenceDocument {
	out := make([]domain.ReferenceDocument, len(s.docs))
	copy(out, s.docs)
	return out
}

// Len returns the number of documents.
func (s *Snapshot) Len() int {
	return len(s.docs)
}

// Document looks a document up by filename.
func (s *Snapshot) Document(filename string) (domain.ReferenceDocument, bool) {
	i, ok := s.byName[filename]
	if !ok {
		return domain.ReferenceDocument{}, false
	}
	return s.docs[i], true
}

// Search runs a full-text query over document content, optionally restricted to
// one filename, returning at most size hits with highlighted fragments.
func (s *Snapshot) Search(queryStr, filename string, size int) (*SearchResults, error) {
	if strings.TrimSpace(queryStr) == "" {
		return nil, fmt.Errorf("%w: query cannot be empty", domain.ErrInvalidInput)
	}

	req := bleve.NewSearchRequest(buildQuery(queryStr, filename))
	req.Size = size
	req.Fields = []string{domain.ReferenceFieldFilename, domain.ReferenceFieldPages}
	req.Highlight = bleve.NewHighlight()
	req.Highlight.AddField(domain.ReferenceFieldContent)

	res, err := s.index.Search(req)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	out := &SearchResults{Query: queryStr, Total: res.Total, Hits: make([]SearchHit, 0, len(res.Hits))}
	for _, hit := range res.Hits {
		h := SearchHit{Filename: hit.ID, Score: hit.Score}
		if pages, ok := hit.Fields[domain.ReferenceFieldPages].(float64); ok {
			h.Pages = int(pages)
		}
		if fragments, ok := hit.Fragments[domain.ReferenceFieldContent]; ok {
			h.Fragments = fragments
		}
		out.Hits = append(out.Hits, h)
	}
	return out, nil
}

// buildQuery matches content and, when filename is set, restricts to that document.
func buildQuery(queryStr, filename string) query.Query {
	contentQuery := bleve.NewMatchQuery(queryStr)
	contentQuery.SetField(domain.ReferenceFieldContent)

	if filename == "" {
		return contentQuery
	}

	nameQuery := bleve.NewTermQuery(filename)
	nameQuery.SetField(domain.ReferenceFieldFilename)
	return bleve.NewConjunctionQuery(contentQuery, nameQuery)
}

// Close releases the index.
func (s *Snapshot) Close() error {
	if s.index == nil {
		return nil
	}
	return s.index.Close()
}
