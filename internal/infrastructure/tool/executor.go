// Package tool provides the bounded-concurrency Tool Executor (§4.5),
// grounded on agent_loop.go's inline semaphore+WaitGroup tool dispatch and
// on domain/tool.Executor's policy-checked single-call shape.
package tool

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/marschhuynh/agentcore/internal/domain/entity"
	domaintool "github.com/marschhuynh/agentcore/internal/domain/tool"
	"github.com/marschhuynh/agentcore/internal/infrastructure/mcp"
	"github.com/marschhuynh/agentcore/pkg/safego"
)

// Executor runs executeToolCalls(invocations, options) → results (§4.5).
// Implements domaintool.Executor.
type Executor struct {
	registry domaintool.Registry
	logger   *zap.Logger
}

func NewExecutor(registry domaintool.Registry, logger *zap.Logger) *Executor {
	return &Executor{registry: registry, logger: logger}
}

var _ domaintool.Executor = (*Executor)(nil)

// ExecuteToolCalls dispatches invocations with bounded concurrency and
// returns results in the same order as the input, regardless of
// completion order (§4.5, §8 P2).
func (e *Executor) ExecuteToolCalls(ctx context.Context, invocations []entity.ToolInvocation, opts domaintool.ExecuteOptions) []entity.ToolExecutionResult {
	if opts.MaxConcurrency <= 0 {
		opts.MaxConcurrency = 3
	}
	if opts.ToolTimeout <= 0 {
		opts.ToolTimeout = 30 * time.Second
	}
	if opts.ApprovalCallback == nil {
		opts.ApprovalCallback = domaintool.AlwaysApprove
	}

	// Step 2: approval. Bounded to one edit per batch.
	decision := opts.ApprovalCallback(invocations)
	if decision.Kind == domaintool.Edit && decision.EditedInvocations != nil {
		invocations = decision.EditedInvocations
		decision = opts.ApprovalCallback(invocations)
		if decision.Kind == domaintool.Edit {
			// A second edit in the same batch is not honored; treat as
			// approve-all of the already-edited set to guarantee progress.
			decision = domaintool.ApprovalDecision{Kind: domaintool.ApproveAll}
		}
	}

	results := make([]entity.ToolExecutionResult, len(invocations))
	approved := make([]bool, len(invocations))
	switch decision.Kind {
	case domaintool.DenyAll:
		for i := range invocations {
			results[i] = entity.Failure(invocations[i].ID, invocations[i].Name, entity.ReasonDenied, "tool call denied", 0)
		}
		return results
	case domaintool.ApproveSubset:
		for i := range invocations {
			approved[i] = decision.ApprovedIndices[i]
			if !approved[i] {
				results[i] = entity.Failure(invocations[i].ID, invocations[i].Name, entity.ReasonDenied, "tool call denied", 0)
			}
		}
	default: // ApproveAll (including the post-edit fallback above)
		for i := range invocations {
			approved[i] = true
		}
	}

	// Step 3: bounded worker pool, preserving input-order placement.
	sem := make(chan struct{}, opts.MaxConcurrency)
	var wg sync.WaitGroup
	for i, inv := range invocations {
		if !approved[i] {
			continue
		}
		i, inv := i, inv
		wg.Add(1)
		sem <- struct{}{}
		safego.Go(e.logger, "tool-worker", func() {
			defer wg.Done()
			defer func() { <-sem }()
			results[i] = e.runOne(ctx, inv, opts.ToolTimeout)
		}, zap.String("tool", inv.Name))
	}
	wg.Wait()

	return results
}

func (e *Executor) runOne(ctx context.Context, inv entity.ToolInvocation, timeout time.Duration) (result entity.ToolExecutionResult) {
	start := time.Now()

	// Step 4 containment: a panicking tool implementation must not abort
	// the batch, the turn, or the orchestrator.
	defer func() {
		if r := recover(); r != nil {
			result = entity.Failure(inv.ID, inv.Name, entity.ReasonUnknown, fmt.Sprintf("tool panicked: %v", r), time.Since(start))
		}
	}()

	impl, ok := e.registry.Lookup(inv.Name)
	if !ok {
		return entity.Failure(inv.ID, inv.Name, entity.ReasonToolNotFound, fmt.Sprintf("tool %q not found", inv.Name), time.Since(start))
	}

	if !json.Valid([]byte(inv.ArgumentsJSON)) && inv.ArgumentsJSON != "" {
		return entity.Failure(inv.ID, inv.Name, entity.ReasonInvalidInput, "arguments is not valid JSON", time.Since(start))
	}

	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	body, err := impl.Call(callCtx, inv.ArgumentsJSON)
	duration := time.Since(start)
	if err != nil {
		if errors.Is(err, mcp.ErrDegraded) {
			// A degraded MCP server is treated the same as an unregistered
			// tool (§7): the caller cannot reach it either way.
			return entity.Failure(inv.ID, inv.Name, entity.ReasonToolNotFound, err.Error(), duration)
		}
		if callCtx.Err() == context.DeadlineExceeded {
			return entity.Failure(inv.ID, inv.Name, entity.ReasonTimeout, err.Error(), duration)
		}
		if ctx.Err() == context.Canceled {
			return entity.Failure(inv.ID, inv.Name, entity.ReasonAborted, err.Error(), duration)
		}
		return entity.Failure(inv.ID, inv.Name, entity.ReasonUnknown, err.Error(), duration)
	}

	return entity.Success(inv.ID, inv.Name, body, duration)
}
