package mcp

import (
	"github.com/custodia-labs/workbench/internal/core/ports/driving"
)

// Ports aggregates all driving port interfaces required by the MCP server.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Runtime is the sandboxed workspace file surface.
	Runtime driving.WorkspaceRuntime

	// Index is the hybrid search index.
	Index driving.SearchIndex
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p.Runtime == nil {
		return ErrMissingRuntime
	}
	if p.Index == nil {
		return ErrMissingIndex
	}
	return nil
}
