// Package mcp provides an MCP (Model Context Protocol) server adapter
// for the workspace runtime. It exposes the indexing, search, and file
// tools to tool-calling agents.
package mcp

import "errors"

// Errors returned when required ports are not provided.
var (
	ErrMissingRuntime = errors.New("mcp: workspace runtime is required")
	ErrMissingIndex   = errors.New("mcp: search index is required")
)
