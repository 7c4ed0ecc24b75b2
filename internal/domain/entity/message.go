package entity

import (
	"time"

	"github.com/google/uuid"
)

// Role is one of the four message roles the wire protocols distinguish.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// ToolStatus is the outcome recorded on a tool-role message.
type ToolStatus string

const (
	ToolStatusSuccess ToolStatus = "success"
	ToolStatusError   ToolStatus = "error"
)

// ContentPart is one element of a structured message body. Text is the
// only kind the core itself interprets; Attachment is opaque input-only
// data a provider adapter may forward without inspecting.
type ContentPart struct {
	Text       string
	Attachment any

	// CacheControl marks a part for prompt caching. Nothing in this module
	// sets it: the provider adapters apply §4.3's prompt-cache annotation
	// rule to their own wire types instead.
	CacheControl bool
}

// ToolCall is one structured tool invocation request emitted by the LLM
// inside an assistant message.
type ToolCall struct {
	ID            string
	Name          string
	ArgumentsJSON string
}

// Message is a turn-visible, immutable-once-appended record. Unexported
// fields plus accessors keep callers from mutating an appended message.
type Message struct {
	id             string
	conversationID string
	role           Role
	content        string
	parts          []ContentPart
	toolCalls      []ToolCall
	toolCallID     string
	toolName       string
	toolStatus     ToolStatus
	aborted        bool
	timestamp      time.Time
	usage          *Usage
}

// NewUserMessage constructs a fresh user message with a new id and the
// current timestamp, as step 1 of the turn algorithm (§4.1) requires.
func NewUserMessage(conversationID, content string) *Message {
	return &Message{
		id:             uuid.NewString(),
		conversationID: conversationID,
		role:           RoleUser,
		content:        content,
		timestamp:      time.Now(),
	}
}

// NewAssistantMessage constructs the terminal or intermediate assistant
// message of a turn. content is "" and toolCalls set is the mandated shape
// for a tool-calling turn per Open Question (i) — see SPEC_FULL.md.
func NewAssistantMessage(conversationID, content string, toolCalls []ToolCall, usage *Usage) *Message {
	return &Message{
		id:             uuid.NewString(),
		conversationID: conversationID,
		role:           RoleAssistant,
		content:        content,
		toolCalls:      toolCalls,
		timestamp:      time.Now(),
		usage:          usage,
	}
}

// NewAbortedAssistantMessage persists partial streamed content with the
// abort marker recorded on metadata (the aborted flag), not on role, per
// the Orchestrator's cancellation contract (§4.1).
func NewAbortedAssistantMessage(conversationID, partialContent string) *Message {
	return &Message{
		id:             uuid.NewString(),
		conversationID: conversationID,
		role:           RoleAssistant,
		content:        partialContent,
		aborted:        true,
		timestamp:      time.Now(),
	}
}

// NewToolMessage constructs the tool-role message persisted for one entry
// of a Tool Execution Result (§3).
func NewToolMessage(conversationID, toolCallID, toolName, content string, status ToolStatus) *Message {
	return &Message{
		id:             uuid.NewString(),
		conversationID: conversationID,
		role:           RoleTool,
		content:        content,
		toolCallID:     toolCallID,
		toolName:       toolName,
		toolStatus:     status,
		timestamp:      time.Now(),
	}
}

// NewSystemMessage constructs a system-role message, used by the Context
// Builder for the identity/system-prompt prefix and reminders.
func NewSystemMessage(content string) *Message {
	return &Message{
		id:        uuid.NewString(),
		role:      RoleSystem,
		content:   content,
		timestamp: time.Now(),
	}
}

// ReconstructMessage rehydrates a Message from persisted storage without
// re-validating invariants a fresh construction would check.
func ReconstructMessage(id, conversationID string, role Role, content string, toolCalls []ToolCall, toolCallID, toolName string, toolStatus ToolStatus, aborted bool, timestamp time.Time, usage *Usage) *Message {
	return &Message{
		id:             id,
		conversationID: conversationID,
		role:           role,
		content:        content,
		toolCalls:      toolCalls,
		toolCallID:     toolCallID,
		toolName:       toolName,
		toolStatus:     toolStatus,
		aborted:        aborted,
		timestamp:      timestamp,
		usage:          usage,
	}
}

func (m *Message) ID() string             { return m.id }
func (m *Message) ConversationID() string  { return m.conversationID }
func (m *Message) Role() Role              { return m.role }
func (m *Message) Content() string         { return m.content }
func (m *Message) Parts() []ContentPart    { return m.parts }
func (m *Message) ToolCalls() []ToolCall   { return m.toolCalls }
func (m *Message) ToolCallID() string      { return m.toolCallID }
func (m *Message) ToolName() string        { return m.toolName }
func (m *Message) ToolStatus() ToolStatus  { return m.toolStatus }
func (m *Message) Aborted() bool           { return m.aborted }
func (m *Message) Timestamp() time.Time    { return m.timestamp }
func (m *Message) Usage() *Usage           { return m.usage }

// WithParts returns a copy carrying structured content parts, used by
// provider adapters building outbound payloads without mutating the
// original (§8 P3 — no-mutation).
func (m *Message) WithParts(parts []ContentPart) *Message {
	clone := *m
	clone.parts = append([]ContentPart(nil), parts...)
	return &clone
}

// HasToolCalls reports whether this assistant message emitted tool calls.
func (m *Message) HasToolCalls() bool { return len(m.toolCalls) > 0 }

// IsTerminalAssistant reports whether this assistant message ends the turn
// (no tool calls to dispatch).
func (m *Message) IsTerminalAssistant() bool {
	return m.role == RoleAssistant && !m.HasToolCalls()
}
