package driven

import (
	"time"

	"github.com/custodia-labs/workbench/internal/core/domain"
)

// ToolEvent describes one tool invocation lifecycle edge.
type ToolEvent struct {
	// Toolkit and Tool name the invoked tool.
	Toolkit string
	Tool    string

	// Operation is the logical operation the call belongs to.
	Operation domain.OperationContext

	// Path is the workspace path argument, if the tool takes one.
	Path string

	// Started is when the invocation began.
	Started time.Time

	// Err is the invocation's failure, set only on ToolFinished.
	Err error
}

// Observer receives fixed lifecycle events from the runtime. There are
// exactly two events; implementations must not block.
type Observer interface {
	// ToolStarted fires before the tool body executes (after the
	// cancellation and policy checks).
	ToolStarted(ev ToolEvent)

	// ToolFinished fires after the tool body returns, with ev.Err set
	// on failure.
	ToolFinished(ev ToolEvent)
}
