package corpus

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sha1n/mcp-refqa-server/internal/config"
	"github.com/sha1n/mcp-refqa-server/internal/domain"
)

func TestValidateFilename(t *testing.T) {
	tests := []struct {
		name    string
		wantErr bool
	}{
		{"policy.pdf", false},
		{"sub/policy.pdf", false},
		{"GG.1500_CEO20241122_v20241101.pdf", false},
		{"", true},
		{"   ", true},
		{"/etc/passwd", true},
		{"../secret.pdf", true},
		{"sub/../../secret.pdf", true},
		{"..", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateFilename(tt.name)
			if tt.wantErr {
				assert.ErrorIs(t, err, domain.ErrInvalidInput)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNewFetcher(t *testing.T) {
	dirFetcher := NewFetcher(&config.ReferencesSettings{Dir: "refs"})
	assert.IsType(t, &DirFetcher{}, dirFetcher)

	httpFetcher := NewFetcher(&config.ReferencesSettings{Dir: "refs", BaseURL: "https://example.com/refs"})
	assert.IsType(t, &HTTPFetcher{}, httpFetcher)
}

func TestDirFetcher_Fetch(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("alpha"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "big.txt"), make([]byte, 64), 0644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "folder.pdf"), 0755))

	f := NewDirFetcher(dir, 32)
	assert.Equal(t, dir, f.Dir())

	data, err := f.Fetch(context.Background(), "a.txt")
	require.NoError(t, err)
	assert.Equal(t, "alpha", string(data))

	_, err = f.Fetch(context.Background(), "missing.txt")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = f.Fetch(context.Background(), "big.txt")
	assert.ErrorIs(t, err, domain.ErrFileTooLarge)

	_, err = f.Fetch(context.Background(), "folder.pdf")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = f.Fetch(context.Background(), "../a.txt")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestDirFetcher_Fetch_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewDirFetcher(t.TempDir(), 0).Fetch(ctx, "a.txt")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestHTTPFetcher_Fetch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/refs/a.pdf":
			_, _ = w.Write([]byte("pdf bytes"))
		case "/refs/with space.pdf":
			_, _ = w.Write([]byte("spaced"))
		case "/refs/big.pdf":
			_, _ = w.Write(make([]byte, 128))
		case "/refs/broken.pdf":
			w.WriteHeader(http.StatusInternalServerError)
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	f := NewHTTPFetcher(server.URL+"/refs/", 5*time.Second, 0, 64)

	data, err := f.Fetch(context.Background(), "a.pdf")
	require.NoError(t, err)
	assert.Equal(t, "pdf bytes", string(data))

	data, err = f.Fetch(context.Background(), "with space.pdf")
	require.NoError(t, err)
	assert.Equal(t, "spaced", string(data))

	_, err = f.Fetch(context.Background(), "missing.pdf")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = f.Fetch(context.Background(), "big.pdf")
	assert.ErrorIs(t, err, domain.ErrFileTooLarge)

	_, err = f.Fetch(context.Background(), "broken.pdf")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected status")

	_, err = f.Fetch(context.Background(), "../a.pdf")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestHTTPFetcher_URL(t *testing.T) {
	f := NewHTTPFetcher("https://example.com/refs/", time.Second, 0, 0)
	assert.Equal(t, "https://example.com/refs/a%20b.pdf", f.URL("a b.pdf"))
}

func TestHTTPFetcher_RateLimited(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}))
	defer server.Close()

	f := NewHTTPFetcher(server.URL, time.Second, 1000, 0)
	for range 3 {
		_, err := f.Fetch(context.Background(), "a.pdf")
		require.NoError(t, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewHTTPFetcher(server.URL, time.Second, 0.001, 0).Fetch(ctx, "a.pdf")
	assert.Error(t, err)
}
