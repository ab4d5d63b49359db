package client

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/exp/slog"
)

const defaultReloadDebounce = 200 * time.Millisecond

// Watcher следит за файлом кеша и перечитывает его, когда файл меняет другой процесс.
type Watcher struct {
	store    *Store
	path     string
	debounce time.Duration
	log      *slog.Logger
}

func NewWatcher(store *Store, path string, debounce time.Duration, log *slog.Logger) *Watcher {
	if debounce <= 0 {
		debounce = defaultReloadDebounce
	}
	return &Watcher{
		store:    store,
		path:     filepath.Clean(path),
		debounce: debounce,
		log:      log.With("component", "watcher", "path", path),
	}
}

// Run blocks until ctx is done. The directory is watched rather than the file itself,
// since FileStorage replaces the file by rename and SQLite writes to side files (-wal, -journal).
func (w *Watcher) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(w.path)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(w.path), err)
	}

	w.log.Debug("watching cache storage")

	var timer *time.Timer
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("watcher error", "error", err)
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !w.relevant(event) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
				continue
			}
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(w.debounce)
		case <-timerChan(timer):
			timer = nil
			changed, err := w.store.Reload()
			if err != nil {
				w.log.Warn("failed to reload cache", "error", err)
				continue
			}
			if changed {
				w.log.Info("cache changed by another process")
			}
		}
	}
}

func (w *Watcher) relevant(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
		return false
	}
	name := filepath.Clean(event.Name)
	if name == w.path {
		return true
	}
	// временные файлы FileStorage (".books-cache.json.123.tmp") пропускаем, ждем rename
	return strings.HasPrefix(filepath.Base(name), filepath.Base(w.path)+"-")
}

func timerChan(timer *time.Timer) <-chan time.Time {
	if timer == nil {
		return nil
	}
	return timer.C
}
