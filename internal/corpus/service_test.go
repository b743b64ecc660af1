package corpus

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sha1n/mcp-refqa-server/internal/config"
	"github.com/sha1n/mcp-refqa-server/internal/domain"
)

func newTestService(t *testing.T, files []string, fetcher Fetcher) *Service {
	t.Helper()
	settings := &config.ReferencesSettings{
		Files:            files,
		MaxParallelLoads: 4,
		SearchResults:    10,
	}
	svc := NewServiceWithDeps(settings, fetcher, TextDecoder(), NewFileFilter(TextDecoder().Extensions()))
	t.Cleanup(func() { _ = svc.Close() })
	return svc
}

func TestNewService(t *testing.T) {
	svc, err := NewService(&config.ReferencesSettings{Dir: t.TempDir(), PDFEngine: config.PDFEngineLedongthuc})
	require.NoError(t, err)
	defer func() { _ = svc.Close() }()

	assert.False(t, svc.IsReady())
	assert.True(t, svc.Filter().Allowed("a.pdf"))
	assert.IsType(t, &DirFetcher{}, svc.Loader().fetcher)
}

func TestNewService_NilSettings(t *testing.T) {
	_, err := NewService(nil)
	assert.Error(t, err)
}

func TestNewService_UnknownEngine(t *testing.T) {
	_, err := NewService(&config.ReferencesSettings{Dir: t.TempDir(), PDFEngine: "nope"})
	assert.Error(t, err)
}

func TestService_NotReady(t *testing.T) {
	svc := newTestService(t, []string{"a.pdf"}, NewMockFetcher(nil))

	_, err := svc.Documents()
	assert.ErrorIs(t, err, ErrNotReady)
	_, err = svc.Document("a.pdf")
	assert.ErrorIs(t, err, ErrNotReady)
	_, err = svc.Search("anything", "", 0)
	assert.ErrorIs(t, err, ErrNotReady)
	assert.Zero(t, svc.Generation())
}

func TestService_Reload(t *testing.T) {
	fetcher := NewMockFetcher(map[string][]byte{
		"a.pdf": []byte("Encryption uses AES."),
		"b.pdf": []byte("Backups run nightly."),
	})
	svc := newTestService(t, []string{"a.pdf", "b.pdf", "missing.pdf"}, fetcher)

	report, err := svc.Reload(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(1), report.Generation)
	assert.Equal(t, []string{"a.pdf", "b.pdf"}, report.Loaded)
	require.Len(t, report.Failed, 1)
	assert.False(t, report.Superseded)

	assert.True(t, svc.IsReady())
	assert.Equal(t, uint64(1), svc.Generation())
	assert.Equal(t, report, svc.LastReport())

	docs, err := svc.Documents()
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "a.pdf", docs[0].Filename)

	doc, err := svc.Document("b.pdf")
	require.NoError(t, err)
	assert.Equal(t, "Backups run nightly.", doc.Content)

	_, err = svc.Document("missing.pdf")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	res, err := svc.Search("encryption", "", 0)
	require.NoError(t, err)
	require.Len(t, res.Hits, 1)
	assert.Equal(t, "a.pdf", res.Hits[0].Filename)
}

func TestService_Reload_ReplacesSnapshot(t *testing.T) {
	fetcher := NewMockFetcher(map[string][]byte{"a.pdf": []byte("first version")})
	svc := newTestService(t, []string{"a.pdf"}, fetcher)

	_, err := svc.Reload(context.Background())
	require.NoError(t, err)

	fetcher.SetFile("a.pdf", []byte("second version"))
	_, err = svc.Reload(context.Background())
	require.NoError(t, err)

	doc, err := svc.Document("a.pdf")
	require.NoError(t, err)
	assert.Equal(t, "second version", doc.Content)
	assert.Equal(t, uint64(2), svc.Generation())
}

func TestService_Reload_LaterTriggeredWins(t *testing.T) {
	fetcher := NewMockFetcher(map[string][]byte{"a.pdf": []byte("stale")})
	fetcher.SetDelay(200 * time.Millisecond)
	svc := newTestService(t, []string{"a.pdf"}, fetcher)

	var wg sync.WaitGroup
	var first LoadReport
	wg.Add(1)
	go func() {
		defer wg.Done()
		first, _ = svc.Reload(context.Background())
	}()

	require.Eventually(t, func() bool { return len(fetcher.Calls()) == 1 }, time.Second, 5*time.Millisecond)

	fetcher.SetDelay(0)
	fetcher.SetFile("a.pdf", []byte("fresh"))
	second, err := svc.Reload(context.Background())
	require.NoError(t, err)
	assert.False(t, second.Superseded)

	wg.Wait()
	assert.True(t, first.Superseded)
	assert.Equal(t, uint64(1), first.Generation)

	doc, err := svc.Document("a.pdf")
	require.NoError(t, err)
	assert.Equal(t, "fresh", doc.Content)
	assert.Equal(t, uint64(2), svc.Generation())
	assert.Equal(t, second, svc.LastReport())
}

func TestService_Reload_ReadersKeepOldSnapshot(t *testing.T) {
	fetcher := NewMockFetcher(map[string][]byte{"a.pdf": []byte("old")})
	svc := newTestService(t, []string{"a.pdf"}, fetcher)
	_, err := svc.Reload(context.Background())
	require.NoError(t, err)

	fetcher.SetFile("a.pdf", []byte("new"))
	fetcher.SetDelay(100 * time.Millisecond)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = svc.Reload(context.Background())
	}()

	require.Eventually(t, func() bool { return len(fetcher.Calls()) == 2 }, time.Second, 5*time.Millisecond)
	doc, err := svc.Document("a.pdf")
	require.NoError(t, err)
	assert.Equal(t, "old", doc.Content)

	<-done
	doc, err = svc.Document("a.pdf")
	require.NoError(t, err)
	assert.Equal(t, "new", doc.Content)
}

func TestService_Reload_Cancelled(t *testing.T) {
	fetcher := NewMockFetcher(map[string][]byte{"a.pdf": []byte("a")})
	fetcher.SetDelay(time.Second)
	svc := newTestService(t, []string{"a.pdf"}, fetcher)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := svc.Reload(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.False(t, svc.IsReady())

	_, err = svc.Documents()
	assert.ErrorIs(t, err, domain.ErrNoReferences)
	assert.NotErrorIs(t, err, ErrNotReady)
}

func TestService_Reload_ListingError(t *testing.T) {
	settings := &config.ReferencesSettings{Dir: filepath.Join(t.TempDir(), "missing")}
	svc := NewServiceWithDeps(settings, NewMockFetcher(nil), TextDecoder(), NewFileFilter([]string{".pdf"}))
	defer func() { _ = svc.Close() }()

	_, err := svc.Reload(context.Background())
	require.Error(t, err)
	assert.False(t, svc.IsReady())

	// The failed load is over, so reads report a missing corpus rather than loading.
	_, err = svc.Documents()
	assert.ErrorIs(t, err, domain.ErrNoReferences)
	assert.NotErrorIs(t, err, ErrNotReady)
	assert.Contains(t, err.Error(), "failed to list reference directory")
	_, err = svc.Document("a.pdf")
	assert.ErrorIs(t, err, domain.ErrNoReferences)
	_, err = svc.Search("anything", "", 0)
	assert.ErrorIs(t, err, domain.ErrNoReferences)
}

func TestService_Reload_RecoversAfterListingError(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "refs")
	settings := &config.ReferencesSettings{Dir: dir, MaxParallelLoads: 2, SearchResults: 10}
	svc := NewServiceWithDeps(settings, NewDirFetcher(dir, 0), TextDecoder(), NewFileFilter(TextDecoder().Extensions()))
	defer func() { _ = svc.Close() }()

	_, err := svc.Reload(context.Background())
	require.Error(t, err)

	writeFiles(t, dir, map[string]string{"a.txt": "alpha"})
	_, err = svc.Reload(context.Background())
	require.NoError(t, err)

	docs, err := svc.Documents()
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "alpha", docs[0].Content)
}

func TestService_NotReadyWhileFirstLoadRuns(t *testing.T) {
	fetcher := NewMockFetcher(map[string][]byte{"a.pdf": []byte("a")})
	fetcher.SetDelay(200 * time.Millisecond)
	svc := newTestService(t, []string{"a.pdf"}, fetcher)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = svc.Reload(context.Background())
	}()

	require.Eventually(t, func() bool { return len(fetcher.Calls()) == 1 }, time.Second, 5*time.Millisecond)
	_, err := svc.Documents()
	assert.ErrorIs(t, err, ErrNotReady)

	<-done
	_, err = svc.Documents()
	assert.NoError(t, err)
}

func TestService_Reload_AfterClose(t *testing.T) {
	svc := newTestService(t, []string{"a.pdf"}, NewMockFetcher(map[string][]byte{"a.pdf": []byte("a")}))
	require.NoError(t, svc.Close())

	report, err := svc.Reload(context.Background())
	require.NoError(t, err)
	assert.True(t, report.Superseded)
	assert.False(t, svc.IsReady())
}

func TestService_Search_DefaultSize(t *testing.T) {
	files := map[string][]byte{}
	var names []string
	for _, name := range []string{"1.pdf", "2.pdf", "3.pdf"} {
		files[name] = []byte("shared keyword")
		names = append(names, name)
	}
	svc := newTestService(t, names, NewMockFetcher(files))
	svc.settings.SearchResults = 2

	_, err := svc.Reload(context.Background())
	require.NoError(t, err)

	res, err := svc.Search("keyword", "", 0)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), res.Total)
	assert.Len(t, res.Hits, 2)
}
