package driving

import (
	"context"

	"github.com/custodia-labs/workbench/internal/core/domain"
)

// WorkspaceRuntime is the driving interface over the sandboxed file
// surface. Every call carries the operation context explicitly; the
// runtime enforces tool policy and read-before-write tracking.
type WorkspaceRuntime interface {
	// ReadFile returns a file's content and records the read baseline
	// for the operation.
	ReadFile(ctx context.Context, op domain.OperationContext, path string) (string, error)

	// WriteFile creates or overwrites a file. Plain overwrite; exempt
	// from read-before-write by default policy.
	WriteFile(ctx context.Context, op domain.OperationContext, path, content string) error

	// EditFile replaces the first occurrence of oldText with newText.
	// Subject to read-before-write when policy requires it.
	EditFile(ctx context.Context, op domain.OperationContext, path, oldText, newText string) error

	// DeleteFile removes a file. Subject to read-before-write when
	// policy requires it.
	DeleteFile(ctx context.Context, op domain.OperationContext, path string) error

	// ListFiles lists entries under base matching the glob pattern.
	ListFiles(ctx context.Context, op domain.OperationContext, base, pattern string) ([]domain.FileInfo, error)

	// StatFile returns metadata for a file without recording a read.
	StatFile(ctx context.Context, op domain.OperationContext, path string) (domain.FileInfo, error)

	// NormalizePath canonicalizes a raw path argument into a workspace
	// path, rejecting traversal.
	NormalizePath(raw string) (string, error)

	// PolicyFor resolves the effective policy for a tool in the
	// runtime's toolkit.
	PolicyFor(tool string) domain.ToolPolicy

	// EndOperation releases read-tracking state for a finished operation.
	EndOperation(op domain.OperationContext)

	// Close releases runtime resources.
	Close() error
}
