package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/custodia-labs/workbench/internal/core/domain"
	"github.com/custodia-labs/workbench/internal/core/ports/driven"
	"github.com/custodia-labs/workbench/internal/logger"
)

// trackedOperation holds the read baselines recorded within one operation.
type trackedOperation struct {
	reads    map[string]domain.ReadVersion
	lastUsed time.Time
}

// ReadTracker implements optimistic read-before-write concurrency: it
// records the version of each path an operation reads and refuses a
// later write if the file changed in between. This converts a silent
// lost update into an explicit, recoverable error the agent can react
// to (re-read, then retry).
type ReadTracker struct {
	mu      sync.Mutex
	backend driven.FilesystemBackend
	ops     map[string]*trackedOperation
}

// NewReadTracker creates a tracker that stats paths through the backend.
func NewReadTracker(backend driven.FilesystemBackend) *ReadTracker {
	return &ReadTracker{
		backend: backend,
		ops:     make(map[string]*trackedOperation),
	}
}

// RecordRead captures the current version of path for the operation.
// Reading a nonexistent path establishes no baseline.
func (t *ReadTracker) RecordRead(ctx context.Context, key, path string) error {
	info, err := t.backend.Stat(ctx, path)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("stat %s: %w", path, err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	op, ok := t.ops[key]
	if !ok {
		op = &trackedOperation{reads: make(map[string]domain.ReadVersion)}
		t.ops[key] = op
	}
	op.reads[path] = info.Version()
	op.lastUsed = time.Now()
	logger.Debug("Read tracked: op=%s path=%s size=%d", key, path, info.Size)
	return nil
}

// AssertReadBeforeWrite verifies that path was read within the operation
// and that the file has not changed since. It fails with
// domain.ErrReadRequired when no baseline exists, and with
// domain.ErrStaleRead when the file disappeared or its size or
// modification time differ from the baseline.
func (t *ReadTracker) AssertReadBeforeWrite(ctx context.Context, key, path string) error {
	t.mu.Lock()
	op, ok := t.ops[key]
	var baseline domain.ReadVersion
	if ok {
		baseline, ok = op.reads[path]
		op.lastUsed = time.Now()
	}
	t.mu.Unlock()

	if !ok {
		return fmt.Errorf("%s: %w", path, domain.ErrReadRequired)
	}

	info, err := t.backend.Stat(ctx, path)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("%s no longer exists: %w", path, domain.ErrStaleRead)
		}
		return fmt.Errorf("stat %s: %w", path, err)
	}
	if current := info.Version(); current != baseline {
		logger.Debug("Stale read: op=%s path=%s baseline={%d,%d} current={%d,%d}",
			key, path, baseline.ModifiedAtNanos, baseline.SizeBytes,
			current.ModifiedAtNanos, current.SizeBytes)
		return fmt.Errorf("%s: %w", path, domain.ErrStaleRead)
	}
	return nil
}

// Evict drops all baselines for a finished operation.
func (t *ReadTracker) Evict(key string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.ops, key)
}

// EvictOlderThan drops operations idle for longer than maxIdle and
// returns how many were removed. A long-running server calls this
// periodically to bound memory.
func (t *ReadTracker) EvictOlderThan(maxIdle time.Duration) int {
	cutoff := time.Now().Add(-maxIdle)

	t.mu.Lock()
	defer t.mu.Unlock()
	evicted := 0
	for key, op := range t.ops {
		if op.lastUsed.Before(cutoff) {
			delete(t.ops, key)
			evicted++
		}
	}
	return evicted
}
