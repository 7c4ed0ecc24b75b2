package tool

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	domaintool "github.com/marschhuynh/agentcore/internal/domain/tool"
	"github.com/marschhuynh/agentcore/internal/infrastructure/mcp"
)

// mcpToolImpl wraps one remote MCP tool as a domaintool.Impl, prefixed
// mcp_<serverId>_<remoteName> to guarantee global uniqueness (§3) — the
// teacher's own mcp_manager.go instead uses a bare "server_remoteName"
// convention; this is the one place that convention is adapted to match
// the spec exactly.
type mcpToolImpl struct {
	client       *mcp.Client
	remoteName   string
	definition   domaintool.Definition
}

func newMCPToolImpl(client *mcp.Client, schema mcp.ToolSchema) *mcpToolImpl {
	return &mcpToolImpl{
		client:     client,
		remoteName: schema.Name,
		definition: domaintool.Definition{
			Name:                   fmt.Sprintf("mcp_%s_%s", client.ServerID(), schema.Name),
			Description:            schema.Description,
			JSONSchemaForArguments: schema.InputSchema,
		},
	}
}

func (t *mcpToolImpl) Definition() domaintool.Definition { return t.definition }

func (t *mcpToolImpl) Call(ctx context.Context, argumentsJSON string) (string, error) {
	return t.client.CallTool(ctx, t.remoteName, argumentsJSON)
}

// RegisterMCPTools discovers and registers every tool exposed by client
// into registry, returning the count registered. A name collision with an
// already-registered tool is skipped with a warning rather than aborting
// discovery for the rest of the server's tools.
func RegisterMCPTools(ctx context.Context, client *mcp.Client, registry domaintool.Registry, logger *zap.Logger) (int, error) {
	schemas, err := client.ListTools(ctx)
	if err != nil {
		return 0, err
	}

	count := 0
	for _, schema := range schemas {
		impl := newMCPToolImpl(client, schema)
		if err := registry.Register(impl); err != nil {
			logger.Warn("mcp tool name collision, skipping",
				zap.String("tool", impl.Definition().Name), zap.Error(err))
			continue
		}
		count++
	}
	return count, nil
}
