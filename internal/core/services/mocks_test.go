package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/custodia-labs/workbench/internal/core/domain"
	"github.com/custodia-labs/workbench/internal/core/ports/driven"
)

// --- Mock implementations ---

type mockFile struct {
	content string
	modTime time.Time
}

// mockBackend implements driven.FilesystemBackend over an in-memory map.
type mockBackend struct {
	mu    sync.Mutex
	files map[string]mockFile
	now   time.Time

	readErr  error
	writeErr error
	statErr  error
}

func newMockBackend() *mockBackend {
	return &mockBackend{
		files: make(map[string]mockFile),
		now:   time.Unix(1700000000, 0),
	}
}

// put creates or replaces a file, advancing the fake clock so every
// mutation changes the modification time.
func (m *mockBackend) put(path, content string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = m.now.Add(time.Second)
	m.files[path] = mockFile{content: content, modTime: m.now}
}

// touch rewrites a file's content without advancing size, changing only
// the modification time.
func (m *mockBackend) touch(path string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f := m.files[path]
	m.now = m.now.Add(time.Second)
	f.modTime = m.now
	m.files[path] = f
}

func (m *mockBackend) remove(path string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.files, path)
}

func (m *mockBackend) Read(_ context.Context, path string) (string, error) {
	if m.readErr != nil {
		return "", m.readErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.files[path]
	if !ok {
		return "", fmt.Errorf("%s: %w", path, domain.ErrNotFound)
	}
	return f.content, nil
}

func (m *mockBackend) Write(_ context.Context, path, content string) error {
	if m.writeErr != nil {
		return m.writeErr
	}
	m.put(path, content)
	return nil
}

func (m *mockBackend) Delete(_ context.Context, path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.files[path]; !ok {
		return fmt.Errorf("%s: %w", path, domain.ErrNotFound)
	}
	delete(m.files, path)
	return nil
}

func (m *mockBackend) Stat(_ context.Context, path string) (domain.FileInfo, error) {
	if m.statErr != nil {
		return domain.FileInfo{}, m.statErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.files[path]
	if !ok {
		return domain.FileInfo{}, fmt.Errorf("%s: %w", path, domain.ErrNotFound)
	}
	return domain.FileInfo{
		Path:    path,
		Size:    int64(len(f.content)),
		ModTime: f.modTime,
	}, nil
}

func (m *mockBackend) Glob(_ context.Context, base, _ string) ([]domain.FileInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var infos []domain.FileInfo
	for p, f := range m.files {
		if base == "/" || strings.HasPrefix(p, base+"/") || p == base {
			infos = append(infos, domain.FileInfo{
				Path:    p,
				Size:    int64(len(f.content)),
				ModTime: f.modTime,
			})
		}
	}
	return infos, nil
}

// mockEmbedder implements driven.EmbeddingService with fixed vectors
// per text. Texts without an entry get the fallback vector.
type mockEmbedder struct {
	vectors  map[string][]float32
	fallback []float32
	embedErr error
	calls    int
}

func newMockEmbedder() *mockEmbedder {
	return &mockEmbedder{
		vectors:  make(map[string][]float32),
		fallback: []float32{1, 0, 0},
	}
}

func (m *mockEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	m.calls++
	if m.embedErr != nil {
		return nil, m.embedErr
	}
	if v, ok := m.vectors[text]; ok {
		return v, nil
	}
	return m.fallback, nil
}

func (m *mockEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := m.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (m *mockEmbedder) Dimensions() int            { return 3 }
func (m *mockEmbedder) ModelName() string          { return "mock" }
func (m *mockEmbedder) Ping(_ context.Context) error { return nil }
func (m *mockEmbedder) Close() error               { return nil }

// mockObserver implements driven.Observer and records events.
type mockObserver struct {
	mu       sync.Mutex
	started  []driven.ToolEvent
	finished []driven.ToolEvent
}

func (m *mockObserver) ToolStarted(ev driven.ToolEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.started = append(m.started, ev)
}

func (m *mockObserver) ToolFinished(ev driven.ToolEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.finished = append(m.finished, ev)
}
