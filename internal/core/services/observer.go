package services

import (
	"time"

	"github.com/custodia-labs/workbench/internal/core/ports/driven"
	"github.com/custodia-labs/workbench/internal/logger"
)

// LoggingObserver writes tool lifecycle events to the verbose logger.
// It is the default observer when none is injected.
type LoggingObserver struct{}

// ToolStarted logs the start of a tool invocation.
func (LoggingObserver) ToolStarted(ev driven.ToolEvent) {
	logger.Debug("Tool start: %s.%s op=%s path=%s", ev.Toolkit, ev.Tool, ev.Operation.Key(), ev.Path)
}

// ToolFinished logs the end of a tool invocation.
func (LoggingObserver) ToolFinished(ev driven.ToolEvent) {
	if ev.Err != nil {
		logger.Warn("Tool failed: %s.%s op=%s path=%s err=%v elapsed=%s",
			ev.Toolkit, ev.Tool, ev.Operation.Key(), ev.Path, ev.Err, time.Since(ev.Started))
		return
	}
	logger.Debug("Tool done: %s.%s op=%s path=%s elapsed=%s",
		ev.Toolkit, ev.Tool, ev.Operation.Key(), ev.Path, time.Since(ev.Started))
}
