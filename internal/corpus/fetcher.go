package corpus

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/sha1n/mcp-refqa-server/internal/config"
	"github.com/sha1n/mcp-refqa-server/internal/domain"
)

// Fetcher retrieves the raw bytes of a reference document by its filename.
type Fetcher interface {
	Fetch(ctx context.Context, filename string) ([]byte, error)
}

// NewFetcher returns an HTTPFetcher when a base URL is configured, otherwise a DirFetcher.
func NewFetcher(settings *config.ReferencesSettings) Fetcher {
	if settings.BaseURL != "" {
		return NewHTTPFetcher(settings.BaseURL, settings.FetchTimeout, settings.RateLimit, settings.MaxFileSize)
	}
	return NewDirFetcher(settings.Dir, settings.MaxFileSize)
}

// ValidateFilename rejects empty, absolute and traversing reference names.
func ValidateFilename(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: filename cannot be empty", domain.ErrInvalidInput)
	}

	cleaned := filepath.Clean(name)
	if filepath.IsAbs(cleaned) || strings.HasPrefix(name, "/") {
		return fmt.Errorf("%w: absolute paths are not allowed", domain.ErrInvalidInput)
	}
	if cleaned == ".." || strings.HasPrefix(cleaned, "../") || strings.Contains(cleaned, "/../") ||
		strings.HasPrefix(cleaned, `..\`) || strings.Contains(cleaned, `\..`) {
		return fmt.Errorf("%w: path traversal is not allowed", domain.ErrInvalidInput)
	}
	return nil
}

// DirFetcher reads reference documents from a local directory.
type DirFetcher struct {
	dir         string
	maxFileSize int64
}

// NewDirFetcher creates a fetcher rooted at dir.
func NewDirFetcher(dir string, maxFileSize int64) *DirFetcher {
	return &DirFetcher{dir: dir, maxFileSize: maxFileSize}
}

// Dir returns the root directory.
func (f *DirFetcher) Dir() string {
	return f.dir
}

// Fetch reads filename from the root directory.
func (f *DirFetcher) Fetch(ctx context.Context, filename string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := ValidateFilename(filename); err != nil {
		return nil, err
	}

	path := filepath.Join(f.dir, filepath.Clean(filename))
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", domain.ErrNotFound, filename)
		}
		return nil, fmt.Errorf("failed to stat %s: %w", filename, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", domain.ErrInvalidInput, filename)
	}
	if f.maxFileSize > 0 && info.Size() > f.maxFileSize {
		return nil, fmt.Errorf("%w: %s is %d bytes", domain.ErrFileTooLarge, filename, info.Size())
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", filename, err)
	}
	return data, nil
}

// HTTPFetcher downloads reference documents from <baseURL>/<filename>.
type HTTPFetcher struct {
	baseURL     string
	client      *http.Client
	limiter     *rate.Limiter
	maxFileSize int64
}

// NewHTTPFetcher creates a fetcher for baseURL. A positive requestsPerSecond paces
// requests; zero leaves them unpaced.
func NewHTTPFetcher(baseURL string, timeout time.Duration, requestsPerSecond float64, maxFileSize int64) *HTTPFetcher {
	f := &HTTPFetcher{
		baseURL:     strings.TrimRight(baseURL, "/"),
		client:      &http.Client{Timeout: timeout},
		maxFileSize: maxFileSize,
	}
	if requestsPerSecond > 0 {
		f.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), 1)
	}
	return f
}

// URL returns the address a filename is fetched from.
func (f *HTTPFetcher) URL(filename string) string {
	return f.baseURL + "/" + url.PathEscape(filename)
}

// Fetch downloads filename.
func (f *HTTPFetcher) Fetch(ctx context.Context, filename string) ([]byte, error) {
	if err := ValidateFilename(filename); err != nil {
		return nil, err
	}
	if f.limiter != nil {
		if err := f.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.URL(filename), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request for %s: %w", filename, err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", filename, err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%w: %s", domain.ErrNotFound, filename)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, fmt.Errorf("failed to fetch %s: unexpected status %s", filename, resp.Status)
	}

	reader := io.Reader(resp.Body)
	if f.maxFileSize > 0 {
		reader = io.LimitReader(resp.Body, f.maxFileSize+1)
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", filename, err)
	}
	if f.maxFileSize > 0 && int64(len(data)) > f.maxFileSize {
		return nil, fmt.Errorf("%w: %s exceeds %d bytes", domain.ErrFileTooLarge, filename, f.maxFileSize)
	}
	return data, nil
}
