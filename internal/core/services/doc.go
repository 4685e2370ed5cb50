// Package services implements the core workspace behaviour: path
// sandboxing, tool policy resolution, read-before-write tracking, the
// hybrid search index, and the workspace runtime facade that composes
// them.
package services
