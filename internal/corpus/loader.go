package corpus

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/sha1n/mcp-refqa-server/internal/domain"
	"github.com/sha1n/mcp-refqa-server/internal/pdftext"
)

// DefaultMaxParallelLoads is the maximum number of concurrent document loads
const DefaultMaxParallelLoads = 4

// DocumentDecoder decodes a fetched document according to its filename.
type DocumentDecoder interface {
	Decode(filename string, data []byte) (pdftext.Result, error)
}

// ProgressFunc is called once per document after it loads or fails.
// It may be called from several goroutines at once.
type ProgressFunc func(filename string, err error)

// LoadFailure records a document that could not be loaded.
type LoadFailure struct {
	Filename string `json:"filename"`
	Error    string `json:"error"`
}

// LoadReport summarizes a corpus load.
type LoadReport struct {
	Generation uint64        `json:"generation"`
	Requested  int           `json:"requested"`
	Loaded     []string      `json:"loaded"`
	Failed     []LoadFailure `json:"failed,omitempty"`
	Duration   time.Duration `json:"duration"`
	Superseded bool          `json:"superseded,omitempty"`
}

// Loader fetches and decodes reference documents.
type Loader struct {
	fetcher     Fetcher
	decoder     DocumentDecoder
	maxParallel int
	progress    ProgressFunc
}

// NewLoader creates a loader running at most maxParallel loads at a time.
func NewLoader(fetcher Fetcher, decoder DocumentDecoder, maxParallel int) *Loader {
	if maxParallel <= 0 {
		maxParallel = DefaultMaxParallelLoads
	}
	return &Loader{
		fetcher:     fetcher,
		decoder:     decoder,
		maxParallel: maxParallel,
	}
}

// SetProgress installs a progress callback.
func (l *Loader) SetProgress(fn ProgressFunc) {
	l.progress = fn
}

type loadSlot struct {
	doc domain.ReferenceDocument
	err error
}

// Load fetches and decodes filenames concurrently. The returned documents keep the
// order of filenames. A document that fails is logged, reported and skipped; it never
// aborts the others and is not retried. Only cancellation of ctx fails the load.
func (l *Loader) Load(ctx context.Context, filenames []string) ([]domain.ReferenceDocument, LoadReport, error) {
	start := time.Now()
	slots := make([]loadSlot, len(filenames))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(l.maxParallel)

	for i, name := range filenames {
		g.Go(func() error {
			doc, err := l.loadOne(gCtx, name)
			slots[i] = loadSlot{doc: doc, err: err}
			if l.progress != nil {
				l.progress(name, err)
			}
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, LoadReport{}, fmt.Errorf("loading reference documents: %w", err)
	}

	report := LoadReport{Requested: len(filenames)}
	docs := make([]domain.ReferenceDocument, 0, len(filenames))
	for i, slot := range slots {
		if slot.err != nil {
			slog.Warn("Failed to load reference document", "filename", filenames[i], "error", slot.err)
			report.Failed = append(report.Failed, LoadFailure{Filename: filenames[i], Error: slot.err.Error()})
			continue
		}
		docs = append(docs, slot.doc)
		report.Loaded = append(report.Loaded, slot.doc.Filename)
	}
	report.Duration = time.Since(start)

	return docs, report, nil
}

func (l *Loader) loadOne(ctx context.Context, filename string) (domain.ReferenceDocument, error) {
	data, err := l.fetcher.Fetch(ctx, filename)
	if err != nil {
		return domain.ReferenceDocument{}, err
	}

	res, err := l.decoder.Decode(filename, data)
	if err != nil {
		return domain.ReferenceDocument{}, err
	}

	slog.Debug("Loaded reference document", "filename", filename, "pages", res.Pages, "chars", len(res.Text))
	return domain.ReferenceDocument{
		Filename: filename,
		Content:  res.Text,
		Pages:    res.Pages,
	}, nil
}
