package menu

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/squareb/menu-chatbot/internal/observability"
)

// Watcher reloads a Store when its menu file changes on disk.
type Watcher struct {
	store    *Store
	path     string
	debounce time.Duration
	logger   *observability.Logger
}

// NewWatcher creates a watcher for the file at path. Bursts of events within
// debounce trigger a single reload.
func NewWatcher(store *Store, path string, debounce time.Duration, logger *observability.Logger) *Watcher {
	if debounce <= 0 {
		debounce = 500 * time.Millisecond
	}
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &Watcher{
		store:    store,
		path:     filepath.Clean(path),
		debounce: debounce,
		logger:   logger.WithOperation("menu_watch"),
	}
}

// Run watches until ctx is cancelled. The parent directory is watched so
// editors that replace the file are still seen.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create file watcher: %w", err)
	}
	defer fw.Close()

	if err := fw.Add(filepath.Dir(w.path)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(w.path), err)
	}
	w.logger.Info().Str("path", w.path).Msg("Watching menu file")

	var (
		timer *time.Timer
		fire  <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != w.path {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn().Err(err).Msg("File watcher error")

		case <-fire:
			fire = nil
			// Failures are logged by the store and leave the old index live.
			_, _ = w.store.Reload(ctx)
		}
	}
}
