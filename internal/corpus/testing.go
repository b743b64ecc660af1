package corpus

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sha1n/mcp-refqa-server/internal/domain"
	"github.com/sha1n/mcp-refqa-server/internal/pdftext"
)

// MockFetcher serves documents from memory and records calls.
// This is exported for use in integration tests.
type MockFetcher struct {
	mu     sync.Mutex
	files  map[string][]byte
	errors map[string]error
	delay  time.Duration
	calls  []string
}

// NewMockFetcher creates a fetcher serving files.
func NewMockFetcher(files map[string][]byte) *MockFetcher {
	m := &MockFetcher{
		files:  make(map[string][]byte, len(files)),
		errors: make(map[string]error),
	}
	for name, data := range files {
		m.files[name] = data
	}
	return m
}

// SetFile adds or replaces a file.
func (m *MockFetcher) SetFile(name string, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[name] = data
}

// SetError makes fetching name fail with err.
func (m *MockFetcher) SetError(name string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors[name] = err
}

// SetDelay delays every fetch by d, honoring context cancellation.
func (m *MockFetcher) SetDelay(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delay = d
}

// Fetch returns the configured response for filename.
func (m *MockFetcher) Fetch(ctx context.Context, filename string) ([]byte, error) {
	m.mu.Lock()
	m.calls = append(m.calls, filename)
	delay := m.delay
	data, ok := m.files[filename]
	err := m.errors[filename]
	m.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrNotFound, filename)
	}
	return data, nil
}

// Calls returns the fetched filenames in call order.
func (m *MockFetcher) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.calls))
	copy(out, m.calls)
	return out
}

// TextDecoder returns a registry that decodes every supported extension as
// plain text. Useful with MockFetcher when no real PDFs are involved.
func TextDecoder() *pdftext.Registry {
	r := pdftext.NewEmptyRegistry()
	text := pdftext.NewTextDecoder()
	r.Register(".pdf", text)
	r.Register(".txt", text)
	r.Register(".md", text)
	return r
}
