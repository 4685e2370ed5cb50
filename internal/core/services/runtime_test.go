package services

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/workbench/internal/core/domain"
)

type runtimeFixture struct {
	rt       *WorkspaceRuntime
	backend  *mockBackend
	observer *mockObserver
}

func newRuntimeFixture(t *testing.T, policies domain.PolicyConfig) *runtimeFixture {
	t.Helper()
	backend := newMockBackend()
	observer := &mockObserver{}
	rt, err := NewWorkspaceRuntime(RuntimeConfig{
		Sandbox:  NewPathSandbox("/workspace"),
		Backend:  backend,
		Policies: policies,
		Observer: observer,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = rt.Close() })
	return &runtimeFixture{rt: rt, backend: backend, observer: observer}
}

func opCtx(id string) domain.OperationContext {
	return domain.OperationContext{OperationID: id}
}

func TestNewWorkspaceRuntime(t *testing.T) {
	t.Run("requires a sandbox", func(t *testing.T) {
		_, err := NewWorkspaceRuntime(RuntimeConfig{Backend: newMockBackend()})
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("requires a backend", func(t *testing.T) {
		_, err := NewWorkspaceRuntime(RuntimeConfig{Sandbox: NewPathSandbox("/workspace")})
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("close is idempotent", func(t *testing.T) {
		fx := newRuntimeFixture(t, nil)
		assert.NoError(t, fx.rt.Close())
		assert.NoError(t, fx.rt.Close())
	})
}

func TestWorkspaceRuntime_ReadFile(t *testing.T) {
	ctx := context.Background()

	t.Run("returns content and establishes a read baseline", func(t *testing.T) {
		fx := newRuntimeFixture(t, nil)
		fx.backend.put("/notes.txt", "draft")

		content, err := fx.rt.ReadFile(ctx, opCtx("op-1"), "notes.txt")
		require.NoError(t, err)
		assert.Equal(t, "draft", content)

		// The baseline unlocks a subsequent edit within the operation.
		err = fx.rt.EditFile(ctx, opCtx("op-1"), "/notes.txt", "draft", "final")
		assert.NoError(t, err)
	})

	t.Run("missing file", func(t *testing.T) {
		fx := newRuntimeFixture(t, nil)
		_, err := fx.rt.ReadFile(ctx, opCtx("op-1"), "/missing.txt")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("path traversal rejected before I/O", func(t *testing.T) {
		fx := newRuntimeFixture(t, nil)
		_, err := fx.rt.ReadFile(ctx, opCtx("op-1"), "../../etc/passwd")
		assert.ErrorIs(t, err, domain.ErrPathTraversal)
		assert.Empty(t, fx.observer.started, "rejected calls never reach the observer")
	})

	t.Run("cancelled context fails fast", func(t *testing.T) {
		fx := newRuntimeFixture(t, nil)
		cancelled, cancel := context.WithCancel(ctx)
		cancel()

		_, err := fx.rt.ReadFile(cancelled, opCtx("op-1"), "/notes.txt")
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestWorkspaceRuntime_WriteFile(t *testing.T) {
	ctx := context.Background()

	t.Run("creates files without a prior read", func(t *testing.T) {
		fx := newRuntimeFixture(t, nil)

		err := fx.rt.WriteFile(ctx, opCtx("op-1"), "/new.txt", "hello")
		require.NoError(t, err)

		content, err := fx.backend.Read(ctx, "/new.txt")
		require.NoError(t, err)
		assert.Equal(t, "hello", content)
	})

	t.Run("write establishes a baseline for follow-up edits", func(t *testing.T) {
		fx := newRuntimeFixture(t, nil)

		require.NoError(t, fx.rt.WriteFile(ctx, opCtx("op-1"), "/new.txt", "hello"))
		err := fx.rt.EditFile(ctx, opCtx("op-1"), "/new.txt", "hello", "hello world")
		assert.NoError(t, err)
	})
}

func TestWorkspaceRuntime_EditFile(t *testing.T) {
	ctx := context.Background()

	t.Run("requires a read in the same operation", func(t *testing.T) {
		fx := newRuntimeFixture(t, nil)
		fx.backend.put("/notes.txt", "draft")

		err := fx.rt.EditFile(ctx, opCtx("op-1"), "/notes.txt", "draft", "final")
		assert.ErrorIs(t, err, domain.ErrReadRequired)
	})

	t.Run("read in a different operation does not count", func(t *testing.T) {
		fx := newRuntimeFixture(t, nil)
		fx.backend.put("/notes.txt", "draft")

		_, err := fx.rt.ReadFile(ctx, opCtx("op-1"), "/notes.txt")
		require.NoError(t, err)

		err = fx.rt.EditFile(ctx, opCtx("op-2"), "/notes.txt", "draft", "final")
		assert.ErrorIs(t, err, domain.ErrReadRequired)
	})

	t.Run("stale read rejected after external change", func(t *testing.T) {
		fx := newRuntimeFixture(t, nil)
		fx.backend.put("/notes.txt", "draft")

		_, err := fx.rt.ReadFile(ctx, opCtx("op-1"), "/notes.txt")
		require.NoError(t, err)

		fx.backend.put("/notes.txt", "changed elsewhere")

		err = fx.rt.EditFile(ctx, opCtx("op-1"), "/notes.txt", "draft", "final")
		assert.ErrorIs(t, err, domain.ErrStaleRead)
	})

	t.Run("replaces only the first occurrence", func(t *testing.T) {
		fx := newRuntimeFixture(t, nil)
		fx.backend.put("/notes.txt", "foo bar foo")

		_, err := fx.rt.ReadFile(ctx, opCtx("op-1"), "/notes.txt")
		require.NoError(t, err)

		require.NoError(t, fx.rt.EditFile(ctx, opCtx("op-1"), "/notes.txt", "foo", "baz"))

		content, err := fx.backend.Read(ctx, "/notes.txt")
		require.NoError(t, err)
		assert.Equal(t, "baz bar foo", content)
	})

	t.Run("missing old text", func(t *testing.T) {
		fx := newRuntimeFixture(t, nil)
		fx.backend.put("/notes.txt", "draft")

		_, err := fx.rt.ReadFile(ctx, opCtx("op-1"), "/notes.txt")
		require.NoError(t, err)

		err = fx.rt.EditFile(ctx, opCtx("op-1"), "/notes.txt", "absent", "x")
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("successful edit refreshes the baseline", func(t *testing.T) {
		fx := newRuntimeFixture(t, nil)
		fx.backend.put("/notes.txt", "one")

		op := opCtx("op-1")
		_, err := fx.rt.ReadFile(ctx, op, "/notes.txt")
		require.NoError(t, err)

		require.NoError(t, fx.rt.EditFile(ctx, op, "/notes.txt", "one", "two"))
		require.NoError(t, fx.rt.EditFile(ctx, op, "/notes.txt", "two", "three"))

		content, err := fx.backend.Read(ctx, "/notes.txt")
		require.NoError(t, err)
		assert.Equal(t, "three", content)
	})
}

func TestWorkspaceRuntime_DeleteFile(t *testing.T) {
	ctx := context.Background()

	t.Run("requires a read in the same operation", func(t *testing.T) {
		fx := newRuntimeFixture(t, nil)
		fx.backend.put("/old.txt", "bye")

		err := fx.rt.DeleteFile(ctx, opCtx("op-1"), "/old.txt")
		assert.ErrorIs(t, err, domain.ErrReadRequired)
	})

	t.Run("deletes after a read", func(t *testing.T) {
		fx := newRuntimeFixture(t, nil)
		fx.backend.put("/old.txt", "bye")

		op := opCtx("op-1")
		_, err := fx.rt.ReadFile(ctx, op, "/old.txt")
		require.NoError(t, err)
		require.NoError(t, fx.rt.DeleteFile(ctx, op, "/old.txt"))

		_, err = fx.backend.Read(ctx, "/old.txt")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestWorkspaceRuntime_ListAndStat(t *testing.T) {
	ctx := context.Background()

	t.Run("list files under a base", func(t *testing.T) {
		fx := newRuntimeFixture(t, nil)
		fx.backend.put("/docs/a.txt", "a")
		fx.backend.put("/docs/b.txt", "b")
		fx.backend.put("/other.txt", "c")

		infos, err := fx.rt.ListFiles(ctx, opCtx("op-1"), "/docs", "")
		require.NoError(t, err)
		assert.Len(t, infos, 2)
	})

	t.Run("stat does not establish a read baseline", func(t *testing.T) {
		fx := newRuntimeFixture(t, nil)
		fx.backend.put("/notes.txt", "draft")

		op := opCtx("op-1")
		info, err := fx.rt.StatFile(ctx, op, "/notes.txt")
		require.NoError(t, err)
		assert.Equal(t, int64(5), info.Size)

		err = fx.rt.EditFile(ctx, op, "/notes.txt", "draft", "final")
		assert.ErrorIs(t, err, domain.ErrReadRequired)
	})
}

func TestWorkspaceRuntime_Policies(t *testing.T) {
	ctx := context.Background()

	t.Run("disabled tool is rejected", func(t *testing.T) {
		no := false
		fx := newRuntimeFixture(t, domain.PolicyConfig{
			ToolkitWorkspace: {
				Defaults: domain.ToolPolicy{Enabled: true},
				Tools: map[string]domain.ToolPolicyOverride{
					ToolDeleteFile: {Enabled: &no},
				},
			},
		})
		fx.backend.put("/old.txt", "bye")

		err := fx.rt.DeleteFile(ctx, opCtx("op-1"), "/old.txt")
		assert.ErrorIs(t, err, domain.ErrToolDisabled)
	})

	t.Run("write_file can opt into read-before-write", func(t *testing.T) {
		yes := true
		fx := newRuntimeFixture(t, domain.PolicyConfig{
			ToolkitWorkspace: {
				Defaults: domain.ToolPolicy{Enabled: true},
				Tools: map[string]domain.ToolPolicyOverride{
					ToolWriteFile: {RequireReadBeforeWrite: &yes},
				},
			},
		})
		fx.backend.put("/notes.txt", "draft")

		err := fx.rt.WriteFile(ctx, opCtx("op-1"), "/notes.txt", "overwrite")
		assert.ErrorIs(t, err, domain.ErrReadRequired)
	})

	t.Run("PolicyFor exposes the effective policy", func(t *testing.T) {
		fx := newRuntimeFixture(t, nil)

		assert.True(t, fx.rt.PolicyFor(ToolEditFile).RequireReadBeforeWrite)
		assert.False(t, fx.rt.PolicyFor(ToolWriteFile).RequireReadBeforeWrite)
		assert.True(t, fx.rt.PolicyFor(ToolReadFile).Enabled)
	})
}

func TestWorkspaceRuntime_Observer(t *testing.T) {
	ctx := context.Background()

	t.Run("emits paired start and finish events", func(t *testing.T) {
		fx := newRuntimeFixture(t, nil)
		fx.backend.put("/notes.txt", "draft")

		_, err := fx.rt.ReadFile(ctx, opCtx("op-1"), "notes.txt")
		require.NoError(t, err)

		require.Len(t, fx.observer.started, 1)
		require.Len(t, fx.observer.finished, 1)
		assert.Equal(t, ToolkitWorkspace, fx.observer.started[0].Toolkit)
		assert.Equal(t, ToolReadFile, fx.observer.started[0].Tool)
		assert.Equal(t, "/notes.txt", fx.observer.started[0].Path)
		assert.NoError(t, fx.observer.finished[0].Err)
	})

	t.Run("finish event carries the operation error", func(t *testing.T) {
		fx := newRuntimeFixture(t, nil)

		_, err := fx.rt.ReadFile(ctx, opCtx("op-1"), "/missing.txt")
		require.Error(t, err)

		require.Len(t, fx.observer.finished, 1)
		assert.ErrorIs(t, fx.observer.finished[0].Err, domain.ErrNotFound)
	})
}

func TestWorkspaceRuntime_EndOperation(t *testing.T) {
	ctx := context.Background()

	t.Run("releases the operation's read baselines", func(t *testing.T) {
		fx := newRuntimeFixture(t, nil)
		fx.backend.put("/notes.txt", "draft")

		op := opCtx("op-1")
		_, err := fx.rt.ReadFile(ctx, op, "/notes.txt")
		require.NoError(t, err)

		fx.rt.EndOperation(op)

		err = fx.rt.EditFile(ctx, op, "/notes.txt", "draft", "final")
		assert.ErrorIs(t, err, domain.ErrReadRequired)
	})
}

func TestWorkspaceRuntime_ResolveWorkDir(t *testing.T) {
	t.Run("defaults to the file sandbox", func(t *testing.T) {
		fx := newRuntimeFixture(t, nil)

		host, err := fx.rt.ResolveWorkDir("proj")
		require.NoError(t, err)
		assert.Equal(t, filepath.Join("/workspace", "proj"), host)
	})

	t.Run("separate exec root", func(t *testing.T) {
		rt, err := NewWorkspaceRuntime(RuntimeConfig{
			Sandbox:     NewPathSandbox("/workspace"),
			ExecSandbox: NewPathSandbox("/exec"),
			Backend:     newMockBackend(),
		})
		require.NoError(t, err)
		t.Cleanup(func() { _ = rt.Close() })

		host, err := rt.ResolveWorkDir("/build")
		require.NoError(t, err)
		assert.Equal(t, filepath.Join("/exec", "build"), host)
	})

	t.Run("traversal rejected", func(t *testing.T) {
		fx := newRuntimeFixture(t, nil)
		_, err := fx.rt.ResolveWorkDir("../outside")
		assert.ErrorIs(t, err, domain.ErrPathTraversal)
	})
}

func TestWorkspaceRuntime_NormalizePath(t *testing.T) {
	fx := newRuntimeFixture(t, nil)

	path, err := fx.rt.NormalizePath("docs/readme.md")
	require.NoError(t, err)
	assert.Equal(t, "/docs/readme.md", path)

	_, err = fx.rt.NormalizePath("../escape")
	assert.ErrorIs(t, err, domain.ErrPathTraversal)
}
