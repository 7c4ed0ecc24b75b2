// Orchestrator implements the reason-act loop (§4.1), grounded on the
// teacher's agent_loop.go: the same index-keyed streaming accumulation,
// bounded tool dispatch via the injected Executor, and loop/cost guards,
// generalized to the spec's exact turn algorithm and termination rules.
package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/marschhuynh/agentcore/internal/domain/entity"
	"github.com/marschhuynh/agentcore/internal/domain/memory"
	"github.com/marschhuynh/agentcore/internal/domain/tool"
	"github.com/marschhuynh/agentcore/internal/domain/valueobject"
	pkgerrors "github.com/marschhuynh/agentcore/pkg/errors"
)

const defaultMaxLLMCallsPerTurn = 25

// SendOptions are the per-call options to Send (§4.1).
type SendOptions struct {
	Stream           bool
	CancellationCtx  context.Context // ctx.Done() is the cancellation token
	ApprovalCallback tool.ApprovalCallback
	TurnHint         TurnHint
}

// Orchestrator is the public contract's home: send(conversationId,
// userInput, options) → AssistantMessage (§4.1).
type Orchestrator struct {
	config         valueobject.AgentConfig
	memory         memory.Port
	registry       tool.Registry
	executor       tool.Executor
	llm            LLMClient
	contextBuilder *ContextBuilder
	events         EventSink
	metrics        MetricsSink
	logger         *zap.Logger

	maxLLMCallsPerTurn int
	loopDetector       LoopDetector
	costGuard          CostGuard
}

// NewOrchestrator wires one Orchestrator instance for one AgentConfig.
func NewOrchestrator(
	cfg valueobject.AgentConfig,
	mem memory.Port,
	registry tool.Registry,
	executor tool.Executor,
	llm LLMClient,
	contextBuilder *ContextBuilder,
	events EventSink,
	metrics MetricsSink,
	logger *zap.Logger,
) *Orchestrator {
	if events == nil {
		events = NopEventSink{}
	}
	if metrics == nil {
		metrics = NopMetricsSink{}
	}
	return &Orchestrator{
		config:             cfg,
		memory:             mem,
		registry:           registry,
		executor:           executor,
		llm:                llm,
		contextBuilder:     contextBuilder,
		events:             events,
		metrics:            metrics,
		logger:             logger,
		maxLLMCallsPerTurn: defaultMaxLLMCallsPerTurn,
	}
}

// SetMaxLLMCallsPerTurn overrides the default iteration guard (§4.1 step 6).
func (o *Orchestrator) SetMaxLLMCallsPerTurn(n int) { o.maxLLMCallsPerTurn = n }

// SetLoopDetector installs a repeated-tool-call guard (SPEC_FULL.md §1.3).
func (o *Orchestrator) SetLoopDetector(threshold int) { o.loopDetector = LoopDetector{Threshold: threshold} }

// SetCostGuard installs a soft token-budget guard (SPEC_FULL.md §1.3).
func (o *Orchestrator) SetCostGuard(budget int) { o.costGuard = CostGuard{Budget: budget} }

// SpecialistRequest is §3's Specialist Agent Request.
type SpecialistRequest struct {
	ParentDepth     int
	TaskDescription string
	AgentTemplateID string
	InheritedTools  []string
	ShareContext    bool
}

// Send is the Orchestrator's public contract (§4.1).
func (o *Orchestrator) Send(ctx context.Context, conversationID, userInput string, opts SendOptions) (*entity.Message, error) {
	if opts.CancellationCtx != nil {
		ctx = opts.CancellationCtx
	}
	start := time.Now()
	sm := NewTurnStateMachine(o.logger)

	// Step 1: append the user message.
	userMsg := entity.NewUserMessage(conversationID, userInput)
	history, err := o.memory.Get(ctx, conversationID)
	if err != nil {
		o.logger.Warn("memory read failed, proceeding with empty history", zap.Error(err))
		history = nil
	}
	history = o.repairDanglingToolCalls(conversationID, history)

	if err := o.memory.Append(ctx, conversationID, []*entity.Message{userMsg}); err != nil {
		o.logger.Warn("memory append failed for user message, continuing in-memory", zap.Error(err))
	}
	history = append(history, userMsg)

	o.events.Emit(entity.Event{Kind: entity.EventMessageStarted, ConversationID: conversationID, MessageID: userMsg.ID()})

	_ = sm.Transition(TurnAwaitingLLM)

	var totalUsage entity.Usage
	iterations := 0

	for {
		iterations++
		if iterations > o.maxLLMCallsPerTurn {
			o.events.Emit(entity.Event{Kind: entity.EventError, ConversationID: conversationID,
				ErrorCategory: pkgerrors.TooManyIterations, ErrorMessage: "turn exceeded maxLLMCallsPerTurn"})
			o.metrics.RecordTurn(conversationID, totalUsage, time.Since(start).Milliseconds(), true)
			return nil, pkgerrors.New(pkgerrors.TooManyIterations, "turn exceeded maxLLMCallsPerTurn")
		}

		if ctx.Err() != nil {
			return o.abort(ctx, conversationID, "", sm, totalUsage, start)
		}

		_ = sm.Transition(TurnStreaming)

		params := o.buildParams(history, opts.TurnHint)
		assistantContent, toolCalls, finishReason, usage, streamErr := o.runOneLLMCall(ctx, conversationID, params)
		totalUsage = totalUsage.Add(usage)
		o.costGuard.Add(usage)

		if streamErr != nil {
			if ctx.Err() != nil {
				return o.abort(ctx, conversationID, assistantContent, sm, totalUsage, start)
			}
			_ = sm.Transition(TurnFailed)
			o.metrics.RecordTurn(conversationID, totalUsage, time.Since(start).Milliseconds(), true)
			cat := pkgerrors.CategoryOf(streamErr)
			o.events.Emit(entity.Event{Kind: entity.EventError, ConversationID: conversationID,
				ErrorCategory: cat, ErrorMessage: streamErr.Error()})
			return nil, streamErr
		}

		if o.costGuard.Exceeded() {
			o.events.Emit(entity.Event{Kind: entity.EventError, ConversationID: conversationID,
				ErrorCategory: pkgerrors.TooManyIterations, ErrorMessage: "turn exceeded its soft token budget"})
			o.metrics.RecordTurn(conversationID, totalUsage, time.Since(start).Milliseconds(), true)
			return nil, pkgerrors.New(pkgerrors.TooManyIterations, "turn exceeded its soft token budget")
		}

		cleanContent := stripReasoningTags(assistantContent)

		if len(toolCalls) == 0 {
			// Step 5, no tool calls: persist, emit done, return.
			assistantMsg := entity.NewAssistantMessage(conversationID, cleanContent, nil, &totalUsage)
			if err := o.memory.Append(ctx, conversationID, []*entity.Message{assistantMsg}); err != nil {
				o.logger.Warn("memory append failed for assistant message", zap.Error(err))
			}
			_ = sm.Transition(TurnDone)
			o.events.Emit(entity.Event{Kind: entity.EventAssistantMessage, ConversationID: conversationID,
				MessageID: assistantMsg.ID(), Content: cleanContent})
			o.events.Emit(entity.Event{Kind: entity.EventDone, ConversationID: conversationID, Usage: totalUsage})
			o.metrics.RecordTurn(conversationID, totalUsage, time.Since(start).Milliseconds(), false)
			return assistantMsg, nil
		}

		// Step 5, tool calls emitted: persist the assistant message with its
		// tool calls (its content may be empty, per Open Question (i)),
		// dispatch, append tool results in call order, then loop.
		assistantMsg := entity.NewAssistantMessage(conversationID, cleanContent, toolCalls, nil)
		if err := o.memory.Append(ctx, conversationID, []*entity.Message{assistantMsg}); err != nil {
			o.logger.Warn("memory append failed for assistant message", zap.Error(err))
		}
		history = append(history, assistantMsg)
		o.events.Emit(entity.Event{Kind: entity.EventToolCalls, ConversationID: conversationID,
			MessageID: assistantMsg.ID(), ToolCalls: toolCalls})

		_ = sm.Transition(TurnToolDispatch)

		invocations := make([]entity.ToolInvocation, len(toolCalls))
		for i, tc := range toolCalls {
			invocations[i] = entity.ToolInvocation{ID: tc.ID, Name: tc.Name, ArgumentsJSON: tc.ArgumentsJSON}
			if o.loopDetector.Observe(tc.Name, tc.ArgumentsJSON) {
				o.events.Emit(entity.Event{Kind: entity.EventError, ConversationID: conversationID,
					ErrorCategory: pkgerrors.TooManyIterations, ErrorMessage: "repeated identical tool call detected"})
				o.metrics.RecordTurn(conversationID, totalUsage, time.Since(start).Milliseconds(), true)
				return nil, pkgerrors.New(pkgerrors.TooManyIterations, "repeated identical tool call detected")
			}
		}

		approval := opts.ApprovalCallback
		if !o.config.RequireToolApproval {
			approval = tool.AlwaysApprove
		} else if approval == nil {
			approval = tool.AlwaysApprove
		}

		results := o.executor.ExecuteToolCalls(ctx, invocations, tool.ExecuteOptions{
			ApprovalCallback: approval,
			MaxConcurrency:   o.config.MaxToolConcurrency,
		})

		toolMessages := make([]*entity.Message, len(results))
		for i, r := range results {
			o.metrics.RecordToolCall(r.Name, r.DurationMs, r.Status == entity.ToolStatusSuccess)
			toolMessages[i] = entity.NewToolMessage(conversationID, r.ID, r.Name, r.Body, r.Status)
			o.events.Emit(entity.Event{Kind: entity.EventToolResult, ConversationID: conversationID,
				MessageID: toolMessages[i].ID(), ToolResult: &results[i]})
		}
		if err := o.memory.Append(ctx, conversationID, toolMessages); err != nil {
			o.logger.Warn("memory append failed for tool messages", zap.Error(err))
		}
		for _, tm := range toolMessages {
			history = append(history, tm)
		}

		_ = sm.Transition(TurnAwaitingLLM)
		// loop to step 3
	}
}

func (o *Orchestrator) abort(ctx context.Context, conversationID, partialContent string, sm *TurnStateMachine, usage entity.Usage, start time.Time) (*entity.Message, error) {
	msg := entity.NewAbortedAssistantMessage(conversationID, partialContent)
	// Use a background context for this last, best-effort persistence —
	// the incoming ctx is already cancelled.
	if err := o.memory.Append(context.Background(), conversationID, []*entity.Message{msg}); err != nil {
		o.logger.Warn("memory append failed for aborted message", zap.Error(err))
	}
	_ = sm.Transition(TurnAborted)
	o.events.Emit(entity.Event{Kind: entity.EventError, ConversationID: conversationID,
		ErrorCategory: pkgerrors.Aborted, ErrorMessage: "turn aborted by cancellation"})
	o.metrics.RecordTurn(conversationID, usage, time.Since(start).Milliseconds(), true)
	return nil, pkgerrors.New(pkgerrors.Aborted, "turn aborted by cancellation")
}

// repairDanglingToolCalls appends an error-status tool message for each
// tool call of the most recent assistant message in history that has no
// tool result (e.g. from a process that crashed mid-dispatch), per
// SPEC_FULL.md §1.3. The synthesized messages are only added to the
// in-memory history for the next LLM call; they are not persisted.
func (o *Orchestrator) repairDanglingToolCalls(conversationID string, history []*entity.Message) []*entity.Message {
	conv := entity.ReconstructConversation(conversationID, history)
	pending := conv.PendingToolCallIDs()
	if len(pending) == 0 {
		return history
	}
	for _, id := range pending {
		repair := entity.NewToolMessage(conversationID, id, "", "turn interrupted before this tool call completed", entity.ToolStatusError)
		history = append(history, repair)
	}
	return history
}

func (o *Orchestrator) buildParams(history []*entity.Message, hint TurnHint) LLMParams {
	prefix := o.contextBuilder.BuildPrefix(o.config, hint)
	messages := make([]LLMMessage, 0, len(prefix)+len(history))
	for _, m := range append(prefix, history...) {
		messages = append(messages, toLLMMessage(m))
	}
	return LLMParams{
		Model:        o.config.Model,
		Messages:     messages,
		Temperature:  o.config.Temperature,
		TopP:         o.config.TopP,
		MaxTokens:    o.config.MaxTokens,
		Tools:        o.registry.Definitions(o.config.EnabledTools),
		IncludeUsage: true,
	}
}

func toLLMMessage(m *entity.Message) LLMMessage {
	return LLMMessage{
		Role:       m.Role(),
		Content:    m.Content(),
		Parts:      m.Parts(),
		ToolCalls:  m.ToolCalls(),
		ToolCallID: m.ToolCallID(),
		ToolName:   m.ToolName(),
	}
}

// runOneLLMCall makes one streaming LLM call (step 3-4), emitting
// assistant_chunk events per delta and assembling the final content/tool
// calls/usage. Non-streaming is handled identically per §4.1 — the
// handlers simply fire once with the whole response.
func (o *Orchestrator) runOneLLMCall(ctx context.Context, conversationID string, params LLMParams) (string, []entity.ToolCall, string, entity.Usage, error) {
	var content string
	resp, err := o.llm.StreamCompletion(ctx, params, StreamHandlers{
		OnChunk: func(delta string) {
			content += delta
			o.events.Emit(entity.Event{Kind: entity.EventAssistantChunk, ConversationID: conversationID, Delta: delta})
		},
	})
	if err != nil {
		return content, nil, "", entity.Usage{}, err
	}
	if resp.Content != "" {
		content = resp.Content
	}
	return content, resp.ToolCalls, resp.FinishReason, resp.Usage.Normalize(), nil
}
