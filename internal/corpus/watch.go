package corpus

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watch reloads the corpus whenever documents in the reference directory are
// created, written, removed or renamed. Bursts of events within the debounce
// window trigger a single reload. Watch blocks until ctx is done.
func (s *Service) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	if err := watcher.Add(s.settings.Dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", s.settings.Dir, err)
	}
	slog.Info("Watching reference directory", "dir", s.settings.Dir)

	debounce := s.settings.WatchDebounce
	if debounce <= 0 {
		debounce = 500 * time.Millisecond
	}

	timer := time.NewTimer(debounce)
	timer.Stop()

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !s.isRelevant(event) {
				continue
			}
			slog.Debug("Reference directory changed", "event", event.String())
			timer.Reset(debounce)

		case <-timer.C:
			if _, err := s.Reload(ctx); err != nil {
				slog.Error("Reference reload failed", "error", err)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Warn("Reference watcher error", "error", err)

		case <-ctx.Done():
			timer.Stop()
			return nil
		}
	}
}

// isRelevant reports whether event can change the corpus.
func (s *Service) isRelevant(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) &&
		!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return false
	}
	if s.settings.Manifest != "" && filepath.Clean(event.Name) == filepath.Clean(s.settings.Manifest) {
		return true
	}
	return s.filter.Allowed(filepath.Base(event.Name))
}
