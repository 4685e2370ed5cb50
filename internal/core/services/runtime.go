package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/custodia-labs/workbench/internal/core/domain"
	"github.com/custodia-labs/workbench/internal/core/ports/driven"
	"github.com/custodia-labs/workbench/internal/core/ports/driving"
)

// Ensure WorkspaceRuntime implements the interface.
var _ driving.WorkspaceRuntime = (*WorkspaceRuntime)(nil)

// Toolkit and tool names exposed by the runtime.
const (
	ToolkitWorkspace = "workspace"

	ToolReadFile   = "read_file"
	ToolWriteFile  = "write_file"
	ToolEditFile   = "edit_file"
	ToolDeleteFile = "delete_file"
	ToolListFiles  = "list_files"
	ToolStatFile   = "stat_file"
)

// Tracker eviction cadence for the background janitor.
const (
	trackerMaxIdle       = 30 * time.Minute
	trackerSweepInterval = 5 * time.Minute
)

// DefaultPolicyConfig is the policy applied when no configuration is
// present: every workspace tool enabled, and the mutating tools that
// target existing content gated by read-before-write. Plain overwrite
// (write_file) is deliberately exempt.
func DefaultPolicyConfig() domain.PolicyConfig {
	yes := true
	return domain.PolicyConfig{
		ToolkitWorkspace: {
			Defaults: domain.ToolPolicy{Enabled: true},
			Tools: map[string]domain.ToolPolicyOverride{
				ToolEditFile:   {RequireReadBeforeWrite: &yes},
				ToolDeleteFile: {RequireReadBeforeWrite: &yes},
			},
		},
	}
}

// RuntimeConfig configures a WorkspaceRuntime.
type RuntimeConfig struct {
	// Sandbox resolves workspace paths for the file surface (required).
	Sandbox *PathSandbox

	// ExecSandbox resolves working directories for sandboxed command
	// execution. Optional; defaults to Sandbox.
	ExecSandbox *PathSandbox

	// Backend performs the actual file I/O (required).
	Backend driven.FilesystemBackend

	// Policies is the tool policy configuration. Nil selects
	// DefaultPolicyConfig.
	Policies domain.PolicyConfig

	// Observer receives tool lifecycle events. Nil selects the
	// logging observer.
	Observer driven.Observer
}

// WorkspaceRuntime is the facade over the sandboxed file surface. It
// composes the path sandbox, the policy resolver, and the read tracker,
// and enforces them on every tool operation.
type WorkspaceRuntime struct {
	sandbox     *PathSandbox
	execSandbox *PathSandbox
	backend     driven.FilesystemBackend
	policies    *PolicyResolver
	tracker     *ReadTracker
	observer    driven.Observer
	stopJanitor chan struct{}
	closeOnce   sync.Once
}

// NewWorkspaceRuntime creates a runtime from the given configuration.
func NewWorkspaceRuntime(cfg RuntimeConfig) (*WorkspaceRuntime, error) {
	if cfg.Sandbox == nil {
		return nil, fmt.Errorf("runtime: sandbox is required: %w", domain.ErrInvalidInput)
	}
	if cfg.Backend == nil {
		return nil, fmt.Errorf("runtime: filesystem backend is required: %w", domain.ErrInvalidInput)
	}
	if cfg.ExecSandbox == nil {
		cfg.ExecSandbox = cfg.Sandbox
	}
	if cfg.Policies == nil {
		cfg.Policies = DefaultPolicyConfig()
	}
	if cfg.Observer == nil {
		cfg.Observer = LoggingObserver{}
	}

	rt := &WorkspaceRuntime{
		sandbox:     cfg.Sandbox,
		execSandbox: cfg.ExecSandbox,
		backend:     cfg.Backend,
		policies:    NewPolicyResolver(cfg.Policies),
		tracker:     NewReadTracker(cfg.Backend),
		observer:    cfg.Observer,
		stopJanitor: make(chan struct{}),
	}
	go rt.janitor()
	return rt, nil
}

// janitor bounds the read tracker's memory over a long-running process.
func (rt *WorkspaceRuntime) janitor() {
	ticker := time.NewTicker(trackerSweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-rt.stopJanitor:
			return
		case <-ticker.C:
			rt.tracker.EvictOlderThan(trackerMaxIdle)
		}
	}
}

// Close stops background work. Safe to call more than once. The
// backend's lifetime is owned by the caller that constructed it.
func (rt *WorkspaceRuntime) Close() error {
	rt.closeOnce.Do(func() { close(rt.stopJanitor) })
	return nil
}

// Backend exposes the filesystem backend to collaborators (the indexing
// tools read file content through it).
func (rt *WorkspaceRuntime) Backend() driven.FilesystemBackend {
	return rt.backend
}

// Sandbox exposes the file-surface path sandbox.
func (rt *WorkspaceRuntime) Sandbox() *PathSandbox {
	return rt.sandbox
}

// NormalizePath canonicalizes a raw path argument into a workspace path.
func (rt *WorkspaceRuntime) NormalizePath(raw string) (string, error) {
	return rt.sandbox.Normalize(raw)
}

// ResolveWorkDir validates a working directory for sandboxed command
// execution against the exec root.
func (rt *WorkspaceRuntime) ResolveWorkDir(raw string) (string, error) {
	_, host, err := rt.execSandbox.Resolve(raw)
	return host, err
}

// PolicyFor resolves the effective policy for a workspace tool.
func (rt *WorkspaceRuntime) PolicyFor(tool string) domain.ToolPolicy {
	return rt.policies.PolicyFor(ToolkitWorkspace, tool)
}

// EndOperation releases read-tracking state for a finished operation.
func (rt *WorkspaceRuntime) EndOperation(op domain.OperationContext) {
	if key := op.Key(); key != "" {
		rt.tracker.Evict(key)
	}
}

// begin runs the shared entry checks for a tool call: cancellation,
// path normalization, and policy. It dispatches the on-start event and
// returns the finish callback for the on-end event.
func (rt *WorkspaceRuntime) begin(
	ctx context.Context, op domain.OperationContext, tool, rawPath string,
) (path string, finish func(error), err error) {
	if err := ctx.Err(); err != nil {
		return "", nil, err
	}

	if rawPath != "" {
		path, err = rt.sandbox.Normalize(rawPath)
		if err != nil {
			return "", nil, err
		}
		// Resolution failures (escape) surface before any I/O.
		if _, err := rt.sandbox.ResolveHost(path); err != nil {
			return "", nil, err
		}
	}

	policy := rt.PolicyFor(tool)
	if !policy.Enabled {
		return "", nil, fmt.Errorf("%s: %w", tool, domain.ErrToolDisabled)
	}

	ev := driven.ToolEvent{
		Toolkit:   ToolkitWorkspace,
		Tool:      tool,
		Operation: op,
		Path:      path,
		Started:   time.Now(),
	}
	rt.observer.ToolStarted(ev)
	finish = func(opErr error) {
		ev.Err = opErr
		rt.observer.ToolFinished(ev)
	}
	return path, finish, nil
}

// guardWrite applies the read-before-write check when the tool's policy
// demands it.
func (rt *WorkspaceRuntime) guardWrite(
	ctx context.Context, op domain.OperationContext, tool, path string,
) error {
	if !rt.PolicyFor(tool).RequireReadBeforeWrite {
		return nil
	}
	return rt.tracker.AssertReadBeforeWrite(ctx, op.Key(), path)
}

// ReadFile returns a file's content and records the read baseline.
func (rt *WorkspaceRuntime) ReadFile(
	ctx context.Context, op domain.OperationContext, rawPath string,
) (string, error) {
	path, finish, err := rt.begin(ctx, op, ToolReadFile, rawPath)
	if err != nil {
		return "", err
	}

	content, err := rt.backend.Read(ctx, path)
	if err == nil {
		err = rt.tracker.RecordRead(ctx, op.Key(), path)
	}
	finish(err)
	if err != nil {
		return "", err
	}
	return content, nil
}

// WriteFile creates or overwrites a file.
func (rt *WorkspaceRuntime) WriteFile(
	ctx context.Context, op domain.OperationContext, rawPath, content string,
) error {
	path, finish, err := rt.begin(ctx, op, ToolWriteFile, rawPath)
	if err != nil {
		return err
	}

	if err = rt.guardWrite(ctx, op, ToolWriteFile, path); err == nil {
		err = rt.backend.Write(ctx, path, content)
	}
	if err == nil {
		// The write establishes a fresh baseline so the operation can
		// keep editing without an interposed read.
		err = rt.tracker.RecordRead(ctx, op.Key(), path)
	}
	finish(err)
	return err
}

// EditFile replaces the first occurrence of oldText with newText.
func (rt *WorkspaceRuntime) EditFile(
	ctx context.Context, op domain.OperationContext, rawPath, oldText, newText string,
) error {
	path, finish, err := rt.begin(ctx, op, ToolEditFile, rawPath)
	if err != nil {
		return err
	}

	err = rt.editFile(ctx, op, path, oldText, newText)
	finish(err)
	return err
}

func (rt *WorkspaceRuntime) editFile(
	ctx context.Context, op domain.OperationContext, path, oldText, newText string,
) error {
	if err := rt.guardWrite(ctx, op, ToolEditFile, path); err != nil {
		return err
	}

	content, err := rt.backend.Read(ctx, path)
	if err != nil {
		return err
	}
	if !strings.Contains(content, oldText) {
		return fmt.Errorf("text to replace not found in %s: %w", path, domain.ErrInvalidInput)
	}

	updated := strings.Replace(content, oldText, newText, 1)
	if err := rt.backend.Write(ctx, path, updated); err != nil {
		return err
	}
	return rt.tracker.RecordRead(ctx, op.Key(), path)
}

// DeleteFile removes a file.
func (rt *WorkspaceRuntime) DeleteFile(
	ctx context.Context, op domain.OperationContext, rawPath string,
) error {
	path, finish, err := rt.begin(ctx, op, ToolDeleteFile, rawPath)
	if err != nil {
		return err
	}

	if err = rt.guardWrite(ctx, op, ToolDeleteFile, path); err == nil {
		err = rt.backend.Delete(ctx, path)
	}
	finish(err)
	return err
}

// ListFiles lists entries under base matching the glob pattern.
func (rt *WorkspaceRuntime) ListFiles(
	ctx context.Context, op domain.OperationContext, rawBase, pattern string,
) ([]domain.FileInfo, error) {
	base, finish, err := rt.begin(ctx, op, ToolListFiles, rawBase)
	if err != nil {
		return nil, err
	}
	if pattern == "" {
		pattern = "**/*"
	}

	infos, err := rt.backend.Glob(ctx, base, pattern)
	finish(err)
	if err != nil {
		return nil, err
	}
	return infos, nil
}

// StatFile returns metadata for a file without recording a read.
func (rt *WorkspaceRuntime) StatFile(
	ctx context.Context, op domain.OperationContext, rawPath string,
) (domain.FileInfo, error) {
	path, finish, err := rt.begin(ctx, op, ToolStatFile, rawPath)
	if err != nil {
		return domain.FileInfo{}, err
	}

	info, err := rt.backend.Stat(ctx, path)
	finish(err)
	if err != nil {
		return domain.FileInfo{}, err
	}
	return info, nil
}
