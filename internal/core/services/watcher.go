package services

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/workbench/internal/core/domain"
	"github.com/custodia-labs/workbench/internal/core/ports/driven"
	"github.com/custodia-labs/workbench/internal/core/ports/driving"
	"github.com/custodia-labs/workbench/internal/logger"
)

// watcherDebounce coalesces bursts of write events for the same path.
const watcherDebounce = 200 * time.Millisecond

// Watcher keeps the search index in sync with the workspace: file writes
// re-index the file and removals prune the corresponding index entry.
// This is the pruning path for documents whose underlying files vanish.
type Watcher struct {
	sandbox *PathSandbox
	backend driven.FilesystemBackend
	index   driving.SearchIndex

	mu       sync.Mutex
	notifier *fsnotify.Watcher
	pending  map[string]*time.Timer
}

// NewWatcher creates a watcher over the sandbox root.
func NewWatcher(sandbox *PathSandbox, backend driven.FilesystemBackend, index driving.SearchIndex) *Watcher {
	return &Watcher{
		sandbox: sandbox,
		backend: backend,
		index:   index,
		pending: make(map[string]*time.Timer),
	}
}

// Start begins watching and blocks until ctx is cancelled or the
// underlying notifier fails. Directories created later are watched as
// they appear.
func (w *Watcher) Start(ctx context.Context) error {
	notifier, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	w.mu.Lock()
	w.notifier = notifier
	w.mu.Unlock()
	defer notifier.Close()

	if err := notifier.Add(w.sandbox.Root()); err != nil {
		return err
	}
	// Watch existing subdirectories.
	infos, err := w.backend.Glob(ctx, "/", "**/*")
	if err == nil {
		for _, info := range infos {
			if info.IsDir {
				if host, err := w.sandbox.ResolveHost(info.Path); err == nil {
					notifier.Add(host) //nolint:errcheck
				}
			}
		}
	}

	logger.Info("Watching workspace: %s", w.sandbox.Root())
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-notifier.Events:
			if !ok {
				return nil
			}
			w.handle(ctx, ev)
		case err, ok := <-notifier.Errors:
			if !ok {
				return nil
			}
			logger.Warn("Watcher error: %v", err)
		}
	}
}

// handle routes a single filesystem event.
func (w *Watcher) handle(ctx context.Context, ev fsnotify.Event) {
	rel, err := filepath.Rel(w.sandbox.Root(), ev.Name)
	if err != nil {
		return
	}
	path := "/" + filepath.ToSlash(rel)

	switch {
	case ev.Op.Has(fsnotify.Remove) || ev.Op.Has(fsnotify.Rename):
		if err := w.index.Remove(ctx, path); err != nil {
			logger.Warn("Watcher prune failed: %s: %v", path, err)
		} else {
			logger.Debug("Watcher pruned: %s", path)
		}

	case ev.Op.Has(fsnotify.Create) || ev.Op.Has(fsnotify.Write):
		info, err := w.backend.Stat(ctx, path)
		if err != nil {
			return
		}
		if info.IsDir {
			if ev.Op.Has(fsnotify.Create) {
				w.mu.Lock()
				if w.notifier != nil {
					w.notifier.Add(ev.Name) //nolint:errcheck
				}
				w.mu.Unlock()
			}
			return
		}
		w.scheduleReindex(ctx, path)
	}
}

// scheduleReindex re-indexes the path after the debounce window.
func (w *Watcher) scheduleReindex(ctx context.Context, path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if timer, ok := w.pending[path]; ok {
		timer.Stop()
	}
	w.pending[path] = time.AfterFunc(watcherDebounce, func() {
		w.mu.Lock()
		delete(w.pending, path)
		w.mu.Unlock()

		content, err := w.backend.Read(ctx, path)
		if err != nil {
			if !errors.Is(err, domain.ErrNotFound) {
				logger.Warn("Watcher read failed: %s: %v", path, err)
			}
			return
		}
		doc := domain.IndexedDocument{Path: path, Content: content, Source: "watcher"}
		if err := w.index.Upsert(ctx, doc); err != nil {
			logger.Warn("Watcher reindex failed: %s: %v", path, err)
		} else {
			logger.Debug("Watcher reindexed: %s", path)
		}
	})
}
