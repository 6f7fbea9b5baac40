// Package watch reloads analysis when source files change on disk.
package watch

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/fsnotify/fsnotify"

	"github.com/grahambrooks/refactor-dsl-sub001/internal/fileproc"
	"github.com/grahambrooks/refactor-dsl-sub001/pkg/config"
	"github.com/grahambrooks/refactor-dsl-sub001/pkg/extract"
)

// DefaultDebounce is how long a file must stay quiet before it is reported.
const DefaultDebounce = 500 * time.Millisecond

// ChangeFunc receives the files that changed since the last call, sorted.
type ChangeFunc func(ctx context.Context, changed []string)

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce overrides DefaultDebounce. Non-positive values are ignored.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(w *Watcher) { w.logger = l }
}

// Watcher monitors a directory tree and reports source files whose content
// changed. Editors that rewrite a file without changing its bytes do not
// trigger a report.
type Watcher struct {
	fsWatcher *fsnotify.Watcher
	config    *config.Config
	debounce  time.Duration
	logger    *slog.Logger
	path      string
	onChange  ChangeFunc

	mu           sync.Mutex
	pending      map[string]time.Time
	fingerprints map[string]uint64
	running      sync.Mutex
}

// NewWatcher creates a watcher for the tree rooted at path.
func NewWatcher(path string, cfg *config.Config, opts ...Option) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		fsWatcher:    fsWatcher,
		config:       cfg,
		debounce:     DefaultDebounce,
		logger:       slog.Default(),
		path:         path,
		pending:      make(map[string]time.Time),
		fingerprints: make(map[string]uint64),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// OnChange sets the function called with each debounced batch of changes.
// Batches are delivered one at a time.
func (w *Watcher) OnChange(fn ChangeFunc) {
	w.mu.Lock()
	w.onChange = fn
	w.mu.Unlock()
}

// Prime records the current content of files so the first event on an
// unchanged file is ignored. Files are hashed in parallel; unreadable ones
// are left unknown.
func (w *Watcher) Prime(ctx context.Context, files []string) {
	results, errs := fileproc.ForEachFile(ctx, files, 0, fingerprint, nil)
	if errs.HasErrors() {
		w.logger.Debug("files not fingerprinted", "count", errs.Len())
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	for _, r := range results {
		if r.OK {
			w.fingerprints[r.Path] = r.Value
		}
	}
}

// Changed reports whether path's content differs from the last time it was
// seen, and records the new fingerprint. A file that disappeared counts as
// changed once.
func (w *Watcher) Changed(path string) bool {
	sum, err := fingerprint(path)

	w.mu.Lock()
	defer w.mu.Unlock()

	old, known := w.fingerprints[path]
	if err != nil {
		if known {
			delete(w.fingerprints, path)
			return true
		}
		return false
	}
	w.fingerprints[path] = sum
	return !known || old != sum
}

func fingerprint(path string) (uint64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	return xxhash.Sum64(data), nil
}

// Start watches until ctx is done. It returns nil when ctx is cancelled.
func (w *Watcher) Start(ctx context.Context) error {
	err := filepath.WalkDir(w.path, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != w.path && w.skipDir(d.Name()) {
			return filepath.SkipDir
		}
		return w.fsWatcher.Add(path)
	})
	if err != nil {
		return err
	}

	w.logger.Info("watching for changes", "path", w.path, "dirs", len(w.fsWatcher.WatchList()))

	go w.processDebounced(ctx)

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return nil
			}
			w.handleEvent(event)

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error", "error", err)
		}
	}
}

func (w *Watcher) skipDir(name string) bool {
	for _, excluded := range w.config.Exclude.Dirs {
		if name == excluded {
			return true
		}
	}
	return false
}

// handleEvent queues a relevant filesystem event for debouncing.
func (w *Watcher) handleEvent(event fsnotify.Event) {
	path := event.Name

	// New directories need watching too.
	if event.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			if !w.skipDir(info.Name()) {
				if err := w.fsWatcher.Add(path); err != nil {
					w.logger.Debug("failed to watch directory", "path", path, "error", err)
				}
			}
			return
		}
	}

	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
		return
	}
	if w.config.ShouldExclude(path) || !extract.Supported(path) {
		return
	}

	w.mu.Lock()
	w.pending[path] = time.Now()
	w.mu.Unlock()
}

func (w *Watcher) processDebounced(ctx context.Context) {
	tick := w.debounce / 5
	if tick <= 0 {
		tick = time.Millisecond
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.processPending(ctx)
		}
	}
}

// processPending delivers files that have been quiet for the debounce period
// and whose content actually changed.
func (w *Watcher) processPending(ctx context.Context) {
	w.mu.Lock()
	now := time.Now()
	var ready []string
	for path, last := range w.pending {
		if now.Sub(last) >= w.debounce {
			ready = append(ready, path)
		}
	}
	for _, path := range ready {
		delete(w.pending, path)
	}
	fn := w.onChange
	w.mu.Unlock()

	var changed []string
	for _, path := range ready {
		if w.Changed(path) {
			changed = append(changed, path)
		}
	}
	if len(changed) == 0 || fn == nil {
		return
	}
	sort.Strings(changed)

	w.running.Lock()
	defer w.running.Unlock()
	w.logger.Debug("files changed", "count", len(changed))
	fn(ctx, changed)
}

// Stop stops the watcher.
func (w *Watcher) Stop() error {
	err := w.fsWatcher.Close()
	if errors.Is(err, fsnotify.ErrClosed) {
		return nil
	}
	return err
}

// WatchedDirs returns the directories being watched.
func (w *Watcher) WatchedDirs() []string {
	return w.fsWatcher.WatchList()
}
