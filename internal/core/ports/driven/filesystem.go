package driven

import (
	"context"

	"github.com/custodia-labs/workbench/internal/core/domain"
)

// FilesystemBackend performs file I/O within the sandboxed workspace
// root. All paths are workspace paths (leading "/", already normalized);
// implementations resolve them to host paths and must never operate
// outside the root.
type FilesystemBackend interface {
	// Read returns the full content of a file.
	Read(ctx context.Context, path string) (string, error)

	// Write creates or overwrites a file, creating parent directories
	// as needed.
	Write(ctx context.Context, path, content string) error

	// Delete removes a file. Returns domain.ErrNotFound if absent.
	Delete(ctx context.Context, path string) error

	// Stat returns file metadata. Returns domain.ErrNotFound if absent.
	Stat(ctx context.Context, path string) (domain.FileInfo, error)

	// Glob lists entries under base matching pattern (doublestar
	// syntax, e.g. "**/*.md"). Results are workspace paths.
	Glob(ctx context.Context, base, pattern string) ([]domain.FileInfo, error)
}
