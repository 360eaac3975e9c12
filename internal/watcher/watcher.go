// Package watcher reloads files when they change on disk.
package watcher

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"ipscope/internal/logger"
)

// Watcher watches a set of files and calls onChange, debounced, when one of
// them is written or replaced
type Watcher struct {
	paths    []string
	onChange func(path string)
	debounce time.Duration
	log      logger.Logger
}

// New creates a watcher for paths. Empty paths are ignored.
func New(log logger.Logger, onChange func(path string), paths ...string) *Watcher {
	w := &Watcher{
		onChange: onChange,
		debounce: 500 * time.Millisecond,
		log:      log.WithComponent("watcher"),
	}
	for _, p := range paths {
		if p != "" {
			w.paths = append(w.paths, p)
		}
	}
	return w
}

// WithDebounce sets the debounce duration
func (w *Watcher) WithDebounce(d time.Duration) *Watcher {
	w.debounce = d
	return w
}

// Watch blocks until ctx is cancelled. Directories are watched rather than
// files so that editors replacing a file by rename are still seen.
func (w *Watcher) Watch(ctx context.Context) error {
	if len(w.paths) == 0 {
		<-ctx.Done()
		return ctx.Err()
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fw.Close()

	watchedDirs := make(map[string]bool)
	files := make(map[string]bool)
	for _, p := range w.paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			w.log.Warn().Err(err).Str("path", p).Msg("Cannot resolve path, not watching")
			continue
		}
		dir := filepath.Dir(abs)
		if !watchedDirs[dir] {
			if err := fw.Add(dir); err != nil {
				w.log.Warn().Err(err).Str("dir", dir).Msg("Failed to watch directory")
				continue
			}
			watchedDirs[dir] = true
		}
		files[abs] = true
		w.log.Info().Str("path", abs).Msg("Watching for changes")
	}

	var mu sync.Mutex
	timers := make(map[string]*time.Timer)
	defer func() {
		mu.Lock()
		for _, t := range timers {
			t.Stop()
		}
		mu.Unlock()
	}()

	for {
		select {
		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			abs, err := filepath.Abs(event.Name)
			if err != nil || !files[abs] {
				continue
			}
			if !event.Op.Has(fsnotify.Write) && !event.Op.Has(fsnotify.Create) {
				continue
			}

			mu.Lock()
			if t, exists := timers[abs]; exists {
				t.Stop()
			}
			timers[abs] = time.AfterFunc(w.debounce, func() {
				if ctx.Err() != nil {
					return
				}
				w.log.Info().Str("path", abs).Msg("File changed")
				w.onChange(abs)
			})
			mu.Unlock()

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.log.Warn().Err(err).Msg("Watcher error")

		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
