package tool

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/marschhuynh/agentcore/internal/domain/service"
	domaintool "github.com/marschhuynh/agentcore/internal/domain/tool"
)

// RegisterBuiltins registers the repo's local (non-MCP) tools into
// registry. Mirrors the teacher's single-entry-point RegisterAllTools;
// the teacher's own catalog (git/browser/LSP/web-search/...) is
// domain-specific and not reproduced — see DESIGN.md.
func RegisterBuiltins(registry domaintool.Registry) error {
	for _, impl := range []domaintool.Impl{
		&echoTool{},
	} {
		if err := registry.Register(impl); err != nil {
			return err
		}
	}
	return nil
}

// RegisterDelegation registers the assign_task built-in, which needs a live
// DelegationService (and therefore the owning agent's depth/tool context)
// rather than being stateless like the other builtins.
func RegisterDelegation(registry domaintool.Registry, delegation *service.DelegationService, parentDepth int, enabledTools []string) error {
	return registry.Register(NewAssignTaskTool(delegation, parentDepth, enabledTools))
}

// echoTool is the minimal representative built-in used by the spec's own
// end-to-end scenarios (§8): it returns its "s" argument unchanged.
type echoTool struct{}

func (echoTool) Definition() domaintool.Definition {
	return domaintool.Definition{
		Name:        "echo",
		Description: "Returns the given string unchanged.",
		JSONSchemaForArguments: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"s": map[string]any{"type": "string"},
			},
			"required": []string{"s"},
		},
	}
}

func (echoTool) Call(_ context.Context, argumentsJSON string) (string, error) {
	var args struct {
		S string `json:"s"`
	}
	if argumentsJSON != "" {
		if err := json.Unmarshal([]byte(argumentsJSON), &args); err != nil {
			return "", fmt.Errorf("invalid arguments: %w", err)
		}
	}
	return args.S, nil
}
