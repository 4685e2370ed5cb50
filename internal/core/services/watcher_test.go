package services

import (
	"context"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/workbench/internal/core/domain"
)

func newWatcherFixture(t *testing.T) (*Watcher, *mockBackend, *HybridIndex) {
	t.Helper()
	backend := newMockBackend()
	index := NewHybridIndex(nil, nil)
	w := NewWatcher(NewPathSandbox("/workspace"), backend, index)
	return w, backend, index
}

func TestWatcher_Handle(t *testing.T) {
	ctx := context.Background()

	t.Run("remove event prunes the index", func(t *testing.T) {
		w, _, index := newWatcherFixture(t)
		require.NoError(t, index.Upsert(ctx, domain.IndexedDocument{Path: "/notes.txt", Content: "stale"}))

		w.handle(ctx, fsnotify.Event{Name: "/workspace/notes.txt", Op: fsnotify.Remove})

		assert.Equal(t, 0, index.Len())
	})

	t.Run("rename event prunes the index", func(t *testing.T) {
		w, _, index := newWatcherFixture(t)
		require.NoError(t, index.Upsert(ctx, domain.IndexedDocument{Path: "/notes.txt", Content: "stale"}))

		w.handle(ctx, fsnotify.Event{Name: "/workspace/notes.txt", Op: fsnotify.Rename})

		assert.Equal(t, 0, index.Len())
	})

	t.Run("write event reindexes after the debounce", func(t *testing.T) {
		w, backend, index := newWatcherFixture(t)
		backend.put("/notes.txt", "fresh content")

		w.handle(ctx, fsnotify.Event{Name: "/workspace/notes.txt", Op: fsnotify.Write})

		require.Eventually(t, func() bool {
			return index.Len() == 1
		}, 2*time.Second, 20*time.Millisecond)

		hits, err := index.Search(ctx, "fresh", domain.SearchOptions{Mode: domain.SearchModeBM25})
		require.NoError(t, err)
		require.Len(t, hits, 1)
		assert.Equal(t, "/notes.txt", hits[0].Path)
	})

	t.Run("burst of writes coalesces into one reindex", func(t *testing.T) {
		w, backend, index := newWatcherFixture(t)
		backend.put("/notes.txt", "final state")

		for i := 0; i < 5; i++ {
			w.handle(ctx, fsnotify.Event{Name: "/workspace/notes.txt", Op: fsnotify.Write})
		}

		require.Eventually(t, func() bool {
			return index.Len() == 1
		}, 2*time.Second, 20*time.Millisecond)
	})

	t.Run("event for a vanished file is ignored", func(t *testing.T) {
		w, _, index := newWatcherFixture(t)

		w.handle(ctx, fsnotify.Event{Name: "/workspace/ghost.txt", Op: fsnotify.Write})

		time.Sleep(2 * watcherDebounce)
		assert.Equal(t, 0, index.Len())
	})
}
