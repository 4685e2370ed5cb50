package domain

import "time"

// ReadVersion fingerprints a file's on-disk state at the moment of a read.
// It is compared against the file's current fingerprint before any write
// to the same path within the same operation.
type ReadVersion struct {
	// ModifiedAtNanos is the file's modification time in Unix nanoseconds.
	ModifiedAtNanos int64

	// SizeBytes is the file's size at read time.
	SizeBytes int64
}

// FileInfo describes a file within the workspace.
type FileInfo struct {
	// Path is the workspace-relative path (always starts with "/").
	Path string

	// Size is the file size in bytes.
	Size int64

	// ModTime is the last modification time.
	ModTime time.Time

	// IsDir reports whether the entry is a directory.
	IsDir bool
}

// Version returns the read fingerprint for this file.
func (fi FileInfo) Version() ReadVersion {
	return ReadVersion{
		ModifiedAtNanos: fi.ModTime.UnixNano(),
		SizeBytes:       fi.Size,
	}
}

// IndexedDocument is a unit of searchable content, keyed by workspace path.
// Re-indexing the same path overwrites the prior entry.
type IndexedDocument struct {
	// Path is the workspace path the content belongs to.
	Path string

	// Content is the full text content.
	Content string

	// Source records where the content came from ("filesystem", "manual", ...).
	Source string
}
