package tool

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/marschhuynh/agentcore/internal/domain/service"
	domaintool "github.com/marschhuynh/agentcore/internal/domain/tool"
)

// assignTaskTool is the "assign_task" built-in whose implementation is the
// Delegation Service itself (§4.7) — from the Orchestrator's perspective
// delegation is indistinguishable from any other tool call that happens to
// take a while.
type assignTaskTool struct {
	delegation   *service.DelegationService
	parentDepth  int
	enabledTools []string
}

// NewAssignTaskTool builds the assign_task built-in bound to one parent
// agent's depth and tool allowlist.
func NewAssignTaskTool(delegation *service.DelegationService, parentDepth int, enabledTools []string) domaintool.Impl {
	return &assignTaskTool{delegation: delegation, parentDepth: parentDepth, enabledTools: enabledTools}
}

func (t *assignTaskTool) Definition() domaintool.Definition {
	return domaintool.Definition{
		Name:        "assign_task",
		Description: "Delegates a task to a specialist sub-agent template and returns its result.",
		JSONSchemaForArguments: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"agent": map[string]any{"type": "string", "description": "agent template id"},
				"task":  map[string]any{"type": "string", "description": "task description for the specialist"},
			},
			"required": []string{"agent", "task"},
		},
	}
}

func (t *assignTaskTool) Call(ctx context.Context, argumentsJSON string) (string, error) {
	var args struct {
		Agent string `json:"agent"`
		Task  string `json:"task"`
	}
	if err := json.Unmarshal([]byte(argumentsJSON), &args); err != nil {
		return "", fmt.Errorf("invalid assign_task arguments: %w", err)
	}

	return t.delegation.Spawn(ctx, service.SpecialistRequest{
		ParentDepth:     t.parentDepth,
		TaskDescription: args.Task,
		AgentTemplateID: args.Agent,
		ShareContext:    false,
	}, t.enabledTools)
}
