package qa

import (
	"context"
	"slices"
	"testing"

	"github.com/sha1n/mcp-refqa-server/internal/config"
	"github.com/sha1n/mcp-refqa-server/internal/corpus"
	"github.com/sha1n/mcp-refqa-server/internal/pdftext"
)

// NewTestService builds a session service over an in-memory corpus holding refs
// (filename to text). With no refs the corpus is an empty directory. When load
// is true the corpus is loaded before returning.
// This is exported for use in integration tests.
func NewTestService(t *testing.T, refs map[string]string, load bool) *Service {
	t.Helper()

	files := make(map[string][]byte, len(refs))
	names := make([]string, 0, len(refs))
	for name, text := range refs {
		files[name] = []byte(text)
		names = append(names, name)
	}
	slices.Sort(names)

	refSettings := &config.ReferencesSettings{Dir: t.TempDir(), Files: names, MaxParallelLoads: 2, SearchResults: 10}
	decoder := corpus.TextDecoder()
	refService := corpus.NewServiceWithDeps(refSettings, corpus.NewMockFetcher(files), decoder, corpus.NewFileFilter(decoder.Extensions()))
	t.Cleanup(func() { _ = refService.Close() })

	if load {
		if _, err := refService.Reload(context.Background()); err != nil {
			t.Fatalf("Reload failed: %v", err)
		}
	}

	registry, err := pdftext.NewRegistry(pdftext.EngineLedongthuc, "")
	if err != nil {
		t.Fatalf("NewRegistry failed: %v", err)
	}

	settings := &config.QuestionsSettings{MaxUploadSize: 1024 * 1024, MaxMatches: 3}
	return NewService(settings, refService, registry)
}
