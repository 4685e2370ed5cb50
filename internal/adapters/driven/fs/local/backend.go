// Package local provides a FilesystemBackend over the host filesystem,
// confined to a sandbox root.
package local

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/custodia-labs/workbench/internal/core/domain"
	"github.com/custodia-labs/workbench/internal/core/ports/driven"
	"github.com/custodia-labs/workbench/internal/core/services"
)

// Ensure Backend implements the interface.
var _ driven.FilesystemBackend = (*Backend)(nil)

// Backend performs file I/O under a path sandbox. All incoming paths are
// workspace paths; resolution and escape checks go through the sandbox
// on every call.
type Backend struct {
	sandbox *services.PathSandbox
}

// New creates a backend confined to the sandbox, creating the root
// directory if needed.
func New(sandbox *services.PathSandbox) (*Backend, error) {
	if err := os.MkdirAll(sandbox.Root(), 0o755); err != nil {
		return nil, fmt.Errorf("create workspace root: %w", err)
	}
	return &Backend{sandbox: sandbox}, nil
}

// Read returns the full content of a file.
func (b *Backend) Read(ctx context.Context, workspacePath string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	host, err := b.sandbox.ResolveHost(workspacePath)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(host)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("%s: %w", workspacePath, domain.ErrNotFound)
		}
		return "", fmt.Errorf("read %s: %w", workspacePath, err)
	}
	return string(data), nil
}

// Write creates or overwrites a file, creating parent directories.
func (b *Backend) Write(ctx context.Context, workspacePath, content string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	host, err := b.sandbox.ResolveHost(workspacePath)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(host), 0o755); err != nil {
		return fmt.Errorf("create parent dirs for %s: %w", workspacePath, err)
	}
	if err := os.WriteFile(host, []byte(content), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", workspacePath, err)
	}
	return nil
}

// Delete removes a file.
func (b *Backend) Delete(ctx context.Context, workspacePath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	host, err := b.sandbox.ResolveHost(workspacePath)
	if err != nil {
		return err
	}
	if err := os.Remove(host); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%s: %w", workspacePath, domain.ErrNotFound)
		}
		return fmt.Errorf("delete %s: %w", workspacePath, err)
	}
	return nil
}

// Stat returns file metadata.
func (b *Backend) Stat(ctx context.Context, workspacePath string) (domain.FileInfo, error) {
	if err := ctx.Err(); err != nil {
		return domain.FileInfo{}, err
	}
	host, err := b.sandbox.ResolveHost(workspacePath)
	if err != nil {
		return domain.FileInfo{}, err
	}
	info, err := os.Stat(host)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return domain.FileInfo{}, fmt.Errorf("%s: %w", workspacePath, domain.ErrNotFound)
		}
		return domain.FileInfo{}, fmt.Errorf("stat %s: %w", workspacePath, err)
	}
	return domain.FileInfo{
		Path:    workspacePath,
		Size:    info.Size(),
		ModTime: info.ModTime(),
		IsDir:   info.IsDir(),
	}, nil
}

// Glob lists entries under base matching the doublestar pattern.
// Results are workspace paths sorted lexicographically.
func (b *Backend) Glob(ctx context.Context, base, pattern string) ([]domain.FileInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	hostBase, err := b.sandbox.ResolveHost(base)
	if err != nil {
		return nil, err
	}

	fsys := os.DirFS(hostBase)
	matches, err := doublestar.Glob(fsys, pattern)
	if err != nil {
		return nil, fmt.Errorf("glob %q under %s: %w", pattern, base, err)
	}
	sort.Strings(matches)

	infos := make([]domain.FileInfo, 0, len(matches))
	for _, match := range matches {
		stat, err := fs.Stat(fsys, match)
		if err != nil {
			// Entry raced a deletion between glob and stat.
			continue
		}
		infos = append(infos, domain.FileInfo{
			Path:    path.Join(base, match),
			Size:    stat.Size(),
			ModTime: stat.ModTime(),
			IsDir:   stat.IsDir(),
		})
	}
	return infos, nil
}
