package entity

import "time"

// ToolInvocation is a concrete call requested by the LLM (§3).
// ArgumentsJSON is kept as a string; implementors parse it lazily.
type ToolInvocation struct {
	ID            string
	Name          string
	ArgumentsJSON string
}

// ResultKind distinguishes a tool result body's shape.
type ResultKind string

const (
	ResultText ResultKind = "text"
	ResultJSON ResultKind = "json"
)

// ErrorReason is the closed set of tool-execution failure reasons (§3).
type ErrorReason string

const (
	ReasonAborted          ErrorReason = "aborted"
	ReasonDenied           ErrorReason = "denied"
	ReasonTimeout          ErrorReason = "timeout"
	ReasonPermissionDenied ErrorReason = "permission_denied"
	ReasonNotFound         ErrorReason = "not_found"
	ReasonToolNotFound     ErrorReason = "tool_not_found"
	ReasonNetworkError     ErrorReason = "network_error"
	ReasonRateLimit        ErrorReason = "rate_limit"
	ReasonInvalidInput     ErrorReason = "invalid_input"
	ReasonUnknown          ErrorReason = "unknown"
)

// ToolExecutionResult is the outcome of one dispatched tool invocation
// (§3). It is ephemeral inside the loop; its serialized form becomes a
// tool Message.
type ToolExecutionResult struct {
	ID          string
	Name        string
	Status      ToolStatus
	Kind        ResultKind
	Body        string
	Metadata    map[string]any
	DurationMs  int64
	ErrorReason ErrorReason
}

// Success builds a successful text result.
func Success(id, name, body string, duration time.Duration) ToolExecutionResult {
	return ToolExecutionResult{
		ID:         id,
		Name:       name,
		Status:     ToolStatusSuccess,
		Kind:       ResultText,
		Body:       body,
		DurationMs: duration.Milliseconds(),
	}
}

// Failure builds a failed result carrying a closed error reason.
func Failure(id, name string, reason ErrorReason, body string, duration time.Duration) ToolExecutionResult {
	return ToolExecutionResult{
		ID:          id,
		Name:        name,
		Status:      ToolStatusError,
		Kind:        ResultText,
		Body:        body,
		ErrorReason: reason,
		DurationMs:  duration.Milliseconds(),
	}
}
