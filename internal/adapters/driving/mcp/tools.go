package mcp

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/workbench/internal/core/domain"
	"github.com/custodia-labs/workbench/internal/core/services"
)

// Maximum files indexed per workspace_index call unless overridden.
const defaultMaxFiles = 200

// ErrApprovalRequired is returned when a tool's policy demands approval
// and the caller did not signal it.
var ErrApprovalRequired = errors.New("tool requires approval before execution")

// --- Shared input fragments ---

// OperationInput carries the logical-operation identity common to all
// workspace tools. When nothing is supplied a fresh operation id is
// generated, so read-before-write tracking spans only that single call.
type OperationInput struct {
	OperationID    string `json:"operation_id,omitempty" jsonschema:"id of the logical operation this call belongs to"`
	ConversationID string `json:"conversation_id,omitempty" jsonschema:"conversation id, used with the tool call id as a fallback operation key"`
	ToolCallID     string `json:"tool_call_id,omitempty" jsonschema:"individual tool call id"`
	Approved       bool   `json:"approved,omitempty" jsonschema:"set true when the user approved a tool that needs approval"`
}

// operation derives the explicit operation context for a call.
func (in OperationInput) operation() domain.OperationContext {
	op := domain.OperationContext{
		OperationID:    in.OperationID,
		ConversationID: in.ConversationID,
		ToolCallID:     in.ToolCallID,
	}
	if op.Key() == "" {
		op.OperationID = uuid.NewString()
	}
	return op
}

// checkApproval gates tools whose policy demands user approval.
func (s *Server) checkApproval(tool string, in OperationInput) error {
	if s.ports.Runtime.PolicyFor(tool).NeedsApproval && !in.Approved {
		return fmt.Errorf("%s: %w", tool, ErrApprovalRequired)
	}
	return nil
}

// --- workspace_index ---

// IndexInput is the input schema for the workspace_index tool.
type IndexInput struct {
	OperationInput
	Path     string `json:"path" jsonschema:"workspace directory to index"`
	Glob     string `json:"glob,omitempty" jsonschema:"glob pattern for files to include (default **/*)"`
	MaxFiles int    `json:"max_files,omitempty" jsonschema:"maximum number of files to index (default 200)"`
}

// IndexOutput is the output schema for the workspace_index tool.
type IndexOutput struct {
	Indexed    int `json:"indexed"`
	TotalFound int `json:"total_found"`
}

// --- workspace_index_content ---

// IndexContentInput is the input schema for the workspace_index_content tool.
type IndexContentInput struct {
	OperationInput
	Path    string `json:"path" jsonschema:"workspace path to index the content under"`
	Content string `json:"content" jsonschema:"raw text content to index"`
	Source  string `json:"source,omitempty" jsonschema:"label for where the content came from (default manual)"`
}

// IndexContentOutput is the output schema for the workspace_index_content tool.
type IndexContentOutput struct {
	Indexed bool   `json:"indexed"`
	Path    string `json:"path"`
}

// --- workspace_search ---

// SearchInput is the input schema for the workspace_search tool.
type SearchInput struct {
	Query          string   `json:"query" jsonschema:"the search query"`
	Mode           string   `json:"mode,omitempty" jsonschema:"bm25, vector, or hybrid (default hybrid)"`
	TopK           int      `json:"top_k,omitempty" jsonschema:"maximum number of results (default 5)"`
	MinScore       float64  `json:"min_score,omitempty" jsonschema:"drop results scoring below this value"`
	IncludeContent *bool    `json:"include_content,omitempty" jsonschema:"attach full document content to each result (default true)"`
	SnippetLength  int      `json:"snippet_length,omitempty" jsonschema:"maximum snippet size in characters (default 200)"`
	VectorWeight   *float64 `json:"vector_weight,omitempty" jsonschema:"blend weight for the vector score in hybrid mode (default 0.6)"`
}

// ScoreDetails breaks a combined score into its halves.
type ScoreDetails struct {
	BM25   *float64 `json:"bm25,omitempty"`
	Vector *float64 `json:"vector,omitempty"`
}

// SearchResultOutput represents a single search result.
type SearchResultOutput struct {
	Path         string       `json:"path"`
	Score        float64      `json:"score"`
	ScoreDetails ScoreDetails `json:"score_details"`
	Content      string       `json:"content,omitempty"`
	Snippet      string       `json:"snippet"`
	LineRange    [2]int       `json:"line_range"`
}

// SearchOutput is the output schema for the workspace_search tool.
type SearchOutput struct {
	Query   string               `json:"query"`
	Results []SearchResultOutput `json:"results"`
}

// --- File tools ---

// ReadFileInput is the input schema for the read_file tool.
type ReadFileInput struct {
	OperationInput
	Path string `json:"path" jsonschema:"workspace path to read"`
}

// ReadFileOutput is the output schema for the read_file tool.
type ReadFileOutput struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

// WriteFileInput is the input schema for the write_file tool.
type WriteFileInput struct {
	OperationInput
	Path    string `json:"path" jsonschema:"workspace path to write"`
	Content string `json:"content" jsonschema:"full file content"`
}

// WriteFileOutput is the output schema for the write_file tool.
type WriteFileOutput struct {
	Path    string `json:"path"`
	Written bool   `json:"written"`
}

// EditFileInput is the input schema for the edit_file tool.
type EditFileInput struct {
	OperationInput
	Path    string `json:"path" jsonschema:"workspace path to edit"`
	OldText string `json:"old_text" jsonschema:"exact text to replace"`
	NewText string `json:"new_text" jsonschema:"replacement text"`
}

// EditFileOutput is the output schema for the edit_file tool.
type EditFileOutput struct {
	Path   string `json:"path"`
	Edited bool   `json:"edited"`
}

// DeleteFileInput is the input schema for the delete_file tool.
type DeleteFileInput struct {
	OperationInput
	Path string `json:"path" jsonschema:"workspace path to delete"`
}

// DeleteFileOutput is the output schema for the delete_file tool.
type DeleteFileOutput struct {
	Path    string `json:"path"`
	Deleted bool   `json:"deleted"`
}

// ListFilesInput is the input schema for the list_files tool.
type ListFilesInput struct {
	OperationInput
	Path string `json:"path,omitempty" jsonschema:"workspace directory to list (default /)"`
	Glob string `json:"glob,omitempty" jsonschema:"glob pattern (default **/*)"`
}

// FileEntry describes one listed file.
type FileEntry struct {
	Path  string `json:"path"`
	Size  int64  `json:"size"`
	IsDir bool   `json:"is_dir"`
}

// ListFilesOutput is the output schema for the list_files tool.
type ListFilesOutput struct {
	Entries []FileEntry `json:"entries"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "workspace_index",
		Description: "Index workspace files matching a glob into the search index",
	}, s.handleIndex)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "workspace_index_content",
		Description: "Index raw text content under a workspace path",
	}, s.handleIndexContent)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "workspace_search",
		Description: "Search indexed workspace documents (BM25, vector, or hybrid)",
	}, s.handleSearch)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        services.ToolReadFile,
		Description: "Read a file from the workspace",
	}, s.handleReadFile)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        services.ToolWriteFile,
		Description: "Create or overwrite a workspace file",
	}, s.handleWriteFile)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        services.ToolEditFile,
		Description: "Replace text in a workspace file (requires a prior read in the same operation)",
	}, s.handleEditFile)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        services.ToolDeleteFile,
		Description: "Delete a workspace file (requires a prior read in the same operation)",
	}, s.handleDeleteFile)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        services.ToolListFiles,
		Description: "List workspace files matching a glob",
	}, s.handleListFiles)
}

// handleIndex lists matching files, reads each through the runtime, and
// upserts them into the search index.
func (s *Server) handleIndex(
	ctx context.Context, _ *mcp.CallToolRequest, input IndexInput,
) (*mcp.CallToolResult, IndexOutput, error) {
	op := input.operation()
	glob := input.Glob
	if glob == "" {
		glob = "**/*"
	}
	maxFiles := input.MaxFiles
	if maxFiles <= 0 {
		maxFiles = defaultMaxFiles
	}

	entries, err := s.ports.Runtime.ListFiles(ctx, op, input.Path, glob)
	if err != nil {
		return nil, IndexOutput{}, err
	}

	files := entries[:0]
	for _, e := range entries {
		if !e.IsDir {
			files = append(files, e)
		}
	}
	total := len(files)
	if len(files) > maxFiles {
		files = files[:maxFiles]
	}

	indexed := 0
	for _, f := range files {
		content, err := s.ports.Runtime.ReadFile(ctx, op, f.Path)
		if err != nil {
			return nil, IndexOutput{}, fmt.Errorf("read %s: %w", f.Path, err)
		}
		doc := domain.IndexedDocument{Path: f.Path, Content: content, Source: "filesystem"}
		if err := s.ports.Index.Upsert(ctx, doc); err != nil {
			return nil, IndexOutput{}, err
		}
		indexed++
	}

	return nil, IndexOutput{Indexed: indexed, TotalFound: total}, nil
}

// handleIndexContent normalizes the path and upserts the supplied
// content directly, with no filesystem I/O.
func (s *Server) handleIndexContent(
	ctx context.Context, _ *mcp.CallToolRequest, input IndexContentInput,
) (*mcp.CallToolResult, IndexContentOutput, error) {
	path, err := s.ports.Runtime.NormalizePath(input.Path)
	if err != nil {
		return nil, IndexContentOutput{}, err
	}
	source := input.Source
	if source == "" {
		source = "manual"
	}

	doc := domain.IndexedDocument{Path: path, Content: input.Content, Source: source}
	if err := s.ports.Index.Upsert(ctx, doc); err != nil {
		return nil, IndexContentOutput{}, err
	}
	return nil, IndexContentOutput{Indexed: true, Path: path}, nil
}

// handleSearch runs a hybrid search and shapes the results.
func (s *Server) handleSearch(
	ctx context.Context, _ *mcp.CallToolRequest, input SearchInput,
) (*mcp.CallToolResult, SearchOutput, error) {
	opts := domain.SearchOptions{
		Mode:           domain.SearchMode(input.Mode),
		TopK:           input.TopK,
		MinScore:       input.MinScore,
		SnippetLength:  input.SnippetLength,
		IncludeContent: true,
		VectorWeight:   domain.DefaultVectorWeight,
	}
	if input.IncludeContent != nil {
		opts.IncludeContent = *input.IncludeContent
	}
	if input.VectorWeight != nil {
		opts.VectorWeight = *input.VectorWeight
	}

	hits, err := s.ports.Index.Search(ctx, input.Query, opts)
	if err != nil {
		return nil, SearchOutput{}, err
	}

	output := SearchOutput{
		Query:   input.Query,
		Results: make([]SearchResultOutput, len(hits)),
	}
	for i, hit := range hits {
		output.Results[i] = SearchResultOutput{
			Path:         hit.Path,
			Score:        hit.Score,
			ScoreDetails: ScoreDetails{BM25: hit.BM25Score, Vector: hit.VectorScore},
			Content:      hit.Content,
			Snippet:      hit.Snippet,
			LineRange:    [2]int{hit.LineStart, hit.LineEnd},
		}
	}
	return nil, output, nil
}

// handleReadFile reads a file and records the operation's read baseline.
func (s *Server) handleReadFile(
	ctx context.Context, _ *mcp.CallToolRequest, input ReadFileInput,
) (*mcp.CallToolResult, ReadFileOutput, error) {
	if err := s.checkApproval(services.ToolReadFile, input.OperationInput); err != nil {
		return nil, ReadFileOutput{}, err
	}
	op := input.operation()
	content, err := s.ports.Runtime.ReadFile(ctx, op, input.Path)
	if err != nil {
		return nil, ReadFileOutput{}, err
	}
	return nil, ReadFileOutput{Path: input.Path, Content: content}, nil
}

// handleWriteFile creates or overwrites a file.
func (s *Server) handleWriteFile(
	ctx context.Context, _ *mcp.CallToolRequest, input WriteFileInput,
) (*mcp.CallToolResult, WriteFileOutput, error) {
	if err := s.checkApproval(services.ToolWriteFile, input.OperationInput); err != nil {
		return nil, WriteFileOutput{}, err
	}
	op := input.operation()
	if err := s.ports.Runtime.WriteFile(ctx, op, input.Path, input.Content); err != nil {
		return nil, WriteFileOutput{}, err
	}
	return nil, WriteFileOutput{Path: input.Path, Written: true}, nil
}

// handleEditFile replaces text in a file under read-before-write.
func (s *Server) handleEditFile(
	ctx context.Context, _ *mcp.CallToolRequest, input EditFileInput,
) (*mcp.CallToolResult, EditFileOutput, error) {
	if err := s.checkApproval(services.ToolEditFile, input.OperationInput); err != nil {
		return nil, EditFileOutput{}, err
	}
	op := input.operation()
	if err := s.ports.Runtime.EditFile(ctx, op, input.Path, input.OldText, input.NewText); err != nil {
		return nil, EditFileOutput{}, err
	}
	return nil, EditFileOutput{Path: input.Path, Edited: true}, nil
}

// handleDeleteFile deletes a file under read-before-write.
func (s *Server) handleDeleteFile(
	ctx context.Context, _ *mcp.CallToolRequest, input DeleteFileInput,
) (*mcp.CallToolResult, DeleteFileOutput, error) {
	if err := s.checkApproval(services.ToolDeleteFile, input.OperationInput); err != nil {
		return nil, DeleteFileOutput{}, err
	}
	op := input.operation()
	if err := s.ports.Runtime.DeleteFile(ctx, op, input.Path); err != nil {
		return nil, DeleteFileOutput{}, err
	}
	return nil, DeleteFileOutput{Path: input.Path, Deleted: true}, nil
}

// handleListFiles lists workspace entries matching a glob.
func (s *Server) handleListFiles(
	ctx context.Context, _ *mcp.CallToolRequest, input ListFilesInput,
) (*mcp.CallToolResult, ListFilesOutput, error) {
	op := input.operation()
	base := input.Path
	if base == "" {
		base = "/"
	}
	infos, err := s.ports.Runtime.ListFiles(ctx, op, base, input.Glob)
	if err != nil {
		return nil, ListFilesOutput{}, err
	}

	out := ListFilesOutput{Entries: make([]FileEntry, len(infos))}
	for i, info := range infos {
		out.Entries[i] = FileEntry{Path: info.Path, Size: info.Size, IsDir: info.IsDir}
	}
	return nil, out, nil
}
