package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// Sandbox errors. Both are fatal to the calling tool and never retried.

	// ErrPathTraversal indicates a workspace path contains a ".." segment
	// or a "~" prefix and was rejected before touching the filesystem.
	ErrPathTraversal = errors.New("path traversal rejected")

	// ErrPathEscape indicates a path resolved outside the sandbox root.
	ErrPathEscape = errors.New("path escapes sandbox root")

	// Read-before-write errors. Both are recoverable: the caller should
	// (re-)read the file and retry the write.

	// ErrReadRequired indicates a write was attempted on a path that was
	// never read within the same operation.
	ErrReadRequired = errors.New("read required before write")

	// ErrStaleRead indicates the file changed (or disappeared) since it
	// was last read within the operation.
	ErrStaleRead = errors.New("file changed since last read")

	// ErrToolDisabled indicates the tool is disabled by policy.
	ErrToolDisabled = errors.New("tool disabled by policy")
)
