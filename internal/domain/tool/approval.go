package tool

import (
	"context"
	"time"

	"github.com/marschhuynh/agentcore/internal/domain/entity"
)

// ApprovalDecisionKind is the closed set of outcomes an approval callback
// may return for a batch of invocations (§4.5 step 2).
type ApprovalDecisionKind string

const (
	ApproveAll    ApprovalDecisionKind = "approve_all"
	ApproveSubset ApprovalDecisionKind = "approve_subset"
	DenyAll       ApprovalDecisionKind = "deny_all"
	Edit          ApprovalDecisionKind = "edit"
)

// ApprovalDecision is the callback's verdict on a batch of invocations.
type ApprovalDecision struct {
	Kind Kind

	// ApproveSubset: indices (into the original batch) that are approved;
	// everything else is denied.
	ApprovedIndices map[int]bool

	// Edit: replacement invocations, re-dispatched from step 1. Bounded to
	// one edit per batch by the Executor.
	EditedInvocations []entity.ToolInvocation
}

// Kind aliases ApprovalDecisionKind so call sites read ApprovalDecision{Kind: tool.ApproveAll}.
type Kind = ApprovalDecisionKind

// ApprovalCallback is presented the full batch and returns one decision
// for it. It is a suspension point (§5). It receives no context: the
// Executor calls it synchronously and waits for its decision, so cancelling
// the turn does not reach a callback that is still running.
type ApprovalCallback func(invocations []entity.ToolInvocation) ApprovalDecision

// AlwaysApprove is the approval callback used when requireToolApproval is
// unset — every invocation proceeds to dispatch.
func AlwaysApprove(_ []entity.ToolInvocation) ApprovalDecision {
	return ApprovalDecision{Kind: ApproveAll}
}

// ExecuteOptions configures one executeToolCalls batch dispatch (§4.5).
type ExecuteOptions struct {
	ApprovalCallback ApprovalCallback
	MaxConcurrency   int           // default 3
	ToolTimeout      time.Duration // default 30s
}

// Executor is the Tool Executor's public contract (§4.5), implemented by
// infrastructure/tool.Executor.
type Executor interface {
	ExecuteToolCalls(ctx context.Context, invocations []entity.ToolInvocation, opts ExecuteOptions) []entity.ToolExecutionResult
}
