package services

import (
	"fmt"
	"path"
	"path/filepath"
	"strings"

	"github.com/custodia-labs/workbench/internal/core/domain"
)

// PathSandbox validates virtual workspace paths and resolves them onto a
// host root directory. A runtime holds two instances: one for the file
// surface, one for the command-execution working directory.
type PathSandbox struct {
	root string
}

// NewPathSandbox creates a sandbox rooted at the given host directory.
// The root is cleaned and made absolute by the caller (the runtime
// constructor does this).
func NewPathSandbox(root string) *PathSandbox {
	return &PathSandbox{root: filepath.Clean(root)}
}

// Root returns the host root directory.
func (s *PathSandbox) Root() string {
	return s.root
}

// Normalize turns a raw path argument into a canonical workspace path:
// a leading "/" is added if absent, and the path is rejected with
// domain.ErrPathTraversal if it contains ".." segments or starts with "~".
func (s *PathSandbox) Normalize(raw string) (string, error) {
	if strings.HasPrefix(raw, "~") {
		return "", fmt.Errorf("%q: %w", raw, domain.ErrPathTraversal)
	}
	if !strings.HasPrefix(raw, "/") {
		raw = "/" + raw
	}
	for _, seg := range strings.Split(raw, "/") {
		if seg == ".." {
			return "", fmt.Errorf("%q: %w", raw, domain.ErrPathTraversal)
		}
	}
	// path.Clean collapses duplicate separators and "." segments; ".."
	// was already rejected so Clean cannot move above the root.
	return path.Clean(raw), nil
}

// ResolveHost maps a normalized workspace path onto the host filesystem
// and verifies the result stays inside the root. The relative-path check
// guards against platform separator differences and symlink-adjacent
// tricks that survive normalization.
func (s *PathSandbox) ResolveHost(workspacePath string) (string, error) {
	host := filepath.Join(s.root, filepath.FromSlash(strings.TrimPrefix(workspacePath, "/")))

	rel, err := filepath.Rel(s.root, host)
	if err != nil {
		return "", fmt.Errorf("%q: %w", workspacePath, domain.ErrPathEscape)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%q: %w", workspacePath, domain.ErrPathEscape)
	}
	return host, nil
}

// Resolve normalizes raw and resolves it to a host path in one step.
func (s *PathSandbox) Resolve(raw string) (workspacePath, hostPath string, err error) {
	workspacePath, err = s.Normalize(raw)
	if err != nil {
		return "", "", err
	}
	hostPath, err = s.ResolveHost(workspacePath)
	if err != nil {
		return "", "", err
	}
	return workspacePath, hostPath, nil
}
