// Package service holds the core's domain services: the Orchestrator, its
// state machines, the context builder, and the delegation service.
// Grounded on the teacher's domain/service package (agent_loop.go,
// state_machine.go, hooks.go).
package service

import (
	"context"

	"github.com/marschhuynh/agentcore/internal/domain/entity"
	"github.com/marschhuynh/agentcore/internal/domain/tool"
)

// LLMMessage is the wire-agnostic message shape passed to a provider.
type LLMMessage struct {
	Role       entity.Role
	Content    string
	Parts      []entity.ContentPart
	ToolCalls  []entity.ToolCall
	ToolCallID string
	ToolName   string
}

// LLMParams is `params` from §4.3.
type LLMParams struct {
	Model        string
	Messages     []LLMMessage
	Temperature  float64
	TopP         float64
	MaxTokens    int
	Tools        []tool.Definition
	IncludeUsage bool
}

// LLMResponse is the non-streaming / finished-stream result shape (§4.3).
type LLMResponse struct {
	Content      string
	ToolCalls    []entity.ToolCall
	FinishReason string
	Usage        entity.Usage
}

// StreamHandlers are the callbacks streamCompletion drives (§4.3).
// Re-architected from the source's closures into an explicit struct per
// SPEC_FULL.md §9's Design Notes.
type StreamHandlers struct {
	OnChunk         func(delta string)
	OnToolCallDelta func(index int, idDelta, nameDelta, argsDelta string)
	OnFinish        func(resp LLMResponse)
}

// ModelInfo is one entry of listModels (§4.3).
type ModelInfo struct {
	ID          string
	DisplayName string
}

// LLMClient is the LLM Provider Abstraction's public contract (§4.3).
type LLMClient interface {
	GenerateCompletion(ctx context.Context, params LLMParams) (LLMResponse, error)
	StreamCompletion(ctx context.Context, params LLMParams, handlers StreamHandlers) (LLMResponse, error)
	ListModels(ctx context.Context) ([]ModelInfo, error)
}
