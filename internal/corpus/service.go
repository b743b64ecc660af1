// Package corpus loads the reference document corpus and keeps an immutable,
// searchable snapshot of it that can be rebuilt and swapped at runtime.
package corpus

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/sha1n/mcp-refqa-server/internal/config"
	"github.com/sha1n/mcp-refqa-server/internal/domain"
	"github.com/sha1n/mcp-refqa-server/internal/pdftext"
)

// ErrNotReady is returned by reads while the first load is still running.
// Once a load has finished without installing a snapshot, reads fail with
// domain.ErrNoReferences instead.
var ErrNotReady = errors.New("reference documents are still loading")

// Service owns the current corpus snapshot.
type Service struct {
	settings *config.ReferencesSettings
	loader   *Loader
	filter   *FileFilter
	decoder  DocumentDecoder

	generation atomic.Uint64

	mu         sync.RWMutex
	current    *Snapshot
	lastReport LoadReport
	ready      bool
	closed     bool
	loading    int   // reloads in flight
	attempted  bool  // at least one reload has finished
	loadErr    error // why the latest reload failed, nil after a success
}

// NewService creates a corpus service from settings, wiring the configured
// fetcher and decoders.
func NewService(settings *config.ReferencesSettings) (*Service, error) {
	if settings == nil {
		return nil, fmt.Errorf("settings cannot be nil")
	}

	registry, err := pdftext.NewRegistry(settings.PDFEngine, settings.UnidocLicenseKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create decoders: %w", err)
	}

	return NewServiceWithDeps(settings, NewFetcher(settings), registry, NewFileFilter(registry.Extensions())), nil
}

// NewServiceWithDeps creates a corpus service with explicit collaborators.
func NewServiceWithDeps(settings *config.ReferencesSettings, fetcher Fetcher, decoder DocumentDecoder, filter *FileFilter) *Service {
	return &Service{
		settings: settings,
		loader:   NewLoader(fetcher, decoder, settings.MaxParallelLoads),
		filter:   filter,
		decoder:  decoder,
	}
}

// Loader returns the loader, e.g. to install a progress callback.
func (s *Service) Loader() *Loader {
	return s.loader
}

// Filter returns the file filter used for directory listings.
func (s *Service) Filter() *FileFilter {
	return s.filter
}

// Decoder returns the document decoder shared with question uploads.
func (s *Service) Decoder() DocumentDecoder {
	return s.decoder
}

// Settings returns the service settings.
func (s *Service) Settings() *config.ReferencesSettings {
	return s.settings
}

// ListFilenames resolves the configured corpus list.
func (s *Service) ListFilenames() ([]string, error) {
	return ListFilenames(s.settings, s.filter)
}

// Reload rebuilds the corpus from scratch and swaps it in. Readers keep seeing the
// previous snapshot until the swap. When reloads overlap, the one triggered last
// wins: an older reload that finishes later is discarded and reported as superseded.
func (s *Service) Reload(ctx context.Context) (report LoadReport, err error) {
	gen := s.generation.Add(1)

	s.mu.Lock()
	s.loading++
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.loading--
		s.attempted = true
		s.loadErr = err
		s.mu.Unlock()
	}()

	filenames, err := s.ListFilenames()
	if err != nil {
		return LoadReport{Generation: gen}, fmt.Errorf("failed to resolve reference documents: %w", err)
	}

	slog.Info("Loading reference documents", "count", len(filenames), "generation", gen)
	docs, report, err := s.loader.Load(ctx, filenames)
	if err != nil {
		return LoadReport{Generation: gen}, err
	}
	report.Generation = gen

	snapshot, err := NewSnapshot(docs, gen)
	if err != nil {
		return report, err
	}

	s.mu.Lock()
	if s.closed || (s.current != nil && s.current.Generation() > gen) {
		s.mu.Unlock()
		_ = snapshot.Close()
		report.Superseded = true
		slog.Info("Discarding superseded reference load", "generation", gen)
		return report, nil
	}
	previous := s.current
	s.current = snapshot
	s.lastReport = report
	s.ready = true
	s.mu.Unlock()

	if previous != nil {
		if err := previous.Close(); err != nil {
			slog.Error("Failed to close previous snapshot", "error", err)
		}
	}

	slog.Info("Reference documents ready",
		"loaded", len(report.Loaded), "failed", len(report.Failed), "generation", gen, "duration", report.Duration)
	return report, nil
}

// IsReady returns true once a load has completed.
func (s *Service) IsReady() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ready
}

// unavailable explains why there is no snapshot to read. Callers hold s.mu.
func (s *Service) unavailable() error {
	if s.closed {
		return fmt.Errorf("%w: corpus is closed", domain.ErrNoReferences)
	}
	if s.loading > 0 || !s.attempted {
		return ErrNotReady
	}
	if s.loadErr != nil {
		return fmt.Errorf("%w: %v", domain.ErrNoReferences, s.loadErr)
	}
	return domain.ErrNoReferences
}

// Documents returns the current documents in corpus order.
func (s *Service) Documents() ([]domain.ReferenceDocument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.ready {
		return nil, s.unavailable()
	}
	return s.current.Documents(), nil
}

// Document returns one document of the current snapshot.
func (s *Service) Document(filename string) (domain.ReferenceDocument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.ready {
		return domain.ReferenceDocument{}, s.unavailable()
	}
	doc, ok := s.current.Document(filename)
	if !ok {
		return domain.ReferenceDocument{}, fmt.Errorf("%w: %s", domain.ErrNotFound, filename)
	}
	return doc, nil
}

// Search runs a full-text query against the current snapshot. A non-positive
// size uses the configured default.
func (s *Service) Search(queryStr, filename string, size int) (*SearchResults, error) {
	if size <= 0 {
		size = s.settings.SearchResults
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.ready {
		return nil, s.unavailable()
	}
	return s.current.Search(queryStr, filename, size)
}

// LastReport returns the report of the load that produced the current snapshot.
func (s *Service) LastReport() LoadReport {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastReport
}

// Generation returns the generation of the current snapshot, 0 before the first load.
func (s *Service) Generation() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return 0
	}
	return s.current.Generation()
}

// Close releases all resources.
func (s *Service) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	s.ready = false
	if s.current != nil {
		if err := s.current.Close(); err != nil {
			return fmt.Errorf("failed to close snapshot: %w", err)
		}
		s.current = nil
	}
	return nil
}
