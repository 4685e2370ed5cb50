package domain

// OperationContext identifies the logical unit of agent work a tool call
// belongs to. It is threaded explicitly through every runtime call; there
// is no ambient per-call state.
//
// A single operation usually spans several tool calls (read, then edit,
// then delete), and the read tracker keys its baselines by the operation.
type OperationContext struct {
	// OperationID is the orchestrator-assigned id for the unit of work.
	OperationID string

	// ConversationID identifies the agent conversation, used with
	// ToolCallID as a fallback key when no operation id is set.
	ConversationID string

	// ToolCallID identifies the individual tool invocation.
	ToolCallID string
}

// Key derives the tracking key for this operation. Preference order:
// the operation id, then conversation id + tool call id. Returns ""
// when nothing identifies the operation; callers must substitute a
// generated id in that case.
func (c OperationContext) Key() string {
	if c.OperationID != "" {
		return c.OperationID
	}
	if c.ConversationID != "" || c.ToolCallID != "" {
		return c.ConversationID + ":" + c.ToolCallID
	}
	return ""
}
