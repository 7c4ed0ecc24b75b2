package entity

import pkgerrors "github.com/marschhuynh/agentcore/pkg/errors"

// EventKind is the discriminated-union tag from §6's event stream.
type EventKind string

const (
	EventMessageStarted  EventKind = "message_started"
	EventAssistantChunk  EventKind = "assistant_chunk"
	EventToolCalls       EventKind = "tool_calls"
	EventToolResult      EventKind = "tool_result"
	EventAssistantMessage EventKind = "assistant_message"
	EventDone            EventKind = "done"
	EventError           EventKind = "error"
)

// Event is one element of the conversation's totally-ordered event
// stream. Only the fields relevant to Kind are populated.
type Event struct {
	Kind           EventKind
	ConversationID string
	MessageID      string

	// assistant_chunk
	Delta string

	// tool_calls
	ToolCalls []ToolCall

	// tool_result
	ToolResult *ToolExecutionResult

	// assistant_message / done
	Content string
	Usage   Usage

	// error
	ErrorCategory pkgerrors.Category
	ErrorMessage  string
}
