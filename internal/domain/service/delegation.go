package service

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/marschhuynh/agentcore/internal/domain/memory"
	"github.com/marschhuynh/agentcore/internal/domain/tool"
	"github.com/marschhuynh/agentcore/internal/domain/valueobject"
	pkgerrors "github.com/marschhuynh/agentcore/pkg/errors"
)

// AgentTemplate is the persisted shape a specialist sub-agent is spawned
// from: a system prompt and a tool allowlist. Grounded on the teacher's
// SpawnConfig / Permission pair (domain/agent/spawner.go).
type AgentTemplate struct {
	ID           string
	Enabled      bool
	SystemPrompt string
	Tools        []string
}

// TemplateLookup resolves a template by id.
type TemplateLookup func(id string) (AgentTemplate, bool)

// DelegationService spawns specialist sub-agents (§4.7): a fresh
// Orchestrator with a narrowed AgentConfig, parentDepth+1, and its own
// memory scope. Grounded on domain/agent.InMemorySpawner's depth-cap and
// tool-inheritance checks, generalized from subprocess-style spawning to
// constructing a fresh in-process Orchestrator.
type DelegationService struct {
	templates    TemplateLookup
	registry     tool.Registry
	executor     tool.Executor
	llm          LLMClient
	events       EventSink
	metrics      MetricsSink
	logger       *zap.Logger
	maxDepth     int
	newMemory    func() memory.Port

	mu       sync.Mutex
	spawned  int
}

func NewDelegationService(
	templates TemplateLookup,
	registry tool.Registry,
	executor tool.Executor,
	llm LLMClient,
	events EventSink,
	metrics MetricsSink,
	logger *zap.Logger,
	maxDepth int,
	newMemory func() memory.Port,
) *DelegationService {
	return &DelegationService{
		templates: templates,
		registry:  registry,
		executor:  executor,
		llm:       llm,
		events:    events,
		metrics:   metrics,
		logger:    logger,
		maxDepth:  maxDepth,
		newMemory: newMemory,
	}
}

// Spawn runs a specialist sub-agent to completion and returns its terminal
// assistant content as the tool result (§4.7). The specialist gets the
// template's tools, narrowed by parentEnabledTools and req.InheritedTools
// where those are non-empty: a template tool missing from the parent's
// enabled set or from the registry is elided with a warning, one outside
// req.InheritedTools is elided silently; inheritance never escalates.
func (d *DelegationService) Spawn(ctx context.Context, req SpecialistRequest, parentEnabledTools []string) (string, error) {
	if req.ParentDepth+1 > d.maxDepth {
		return "", pkgerrors.New(pkgerrors.DepthExceeded, fmt.Sprintf("delegation depth %d exceeds max %d", req.ParentDepth+1, d.maxDepth))
	}

	tmpl, ok := d.templates(req.AgentTemplateID)
	if !ok || !tmpl.Enabled {
		return "", pkgerrors.New(pkgerrors.NotFound, fmt.Sprintf("agent template %q not found or disabled", req.AgentTemplateID))
	}

	inherited := intersectTools(tmpl.Tools, req.InheritedTools, parentEnabledTools, d.registry, d.logger)

	cfg := valueobject.DefaultAgentConfig(fmt.Sprintf("%s-specialist-%d", tmpl.ID, d.nextSpawnID()), "")
	cfg = cfg.WithSystemPrompt(tmpl.SystemPrompt).WithEnabledTools(inherited).WithMaxDelegationDepth(d.maxDepth)

	mem := d.newMemory()
	contextBuilder := NewContextBuilder("")
	subOrchestrator := NewOrchestrator(cfg, mem, d.registry, d.executor, d.llm, contextBuilder, d.events, d.metrics, d.logger)

	conversationID := fmt.Sprintf("specialist-%s-%d", tmpl.ID, d.nextSpawnID())
	result, err := subOrchestrator.Send(ctx, conversationID, req.TaskDescription, SendOptions{})
	if err != nil {
		return "", err
	}
	return result.Content(), nil
}

func (d *DelegationService) nextSpawnID() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.spawned++
	return d.spawned
}

// intersectTools resolves the template's tool list against the registry
// and the inheritance constraints, eliding anything that doesn't resolve
// rather than failing the spawn (§4.7).
func intersectTools(templateTools, requestedInherited, parentEnabled []string, registry tool.Registry, logger *zap.Logger) []string {
	parentAllowed := toSet(parentEnabled)
	requestedAllowed := toSet(requestedInherited)

	var resolved []string
	for _, name := range templateTools {
		if len(parentAllowed) > 0 && !parentAllowed[name] {
			logger.Warn("delegation tool elided: not enabled on parent", zap.String("tool", name))
			continue
		}
		if len(requestedAllowed) > 0 && !requestedAllowed[name] {
			continue
		}
		if _, ok := registry.Lookup(name); !ok {
			logger.Warn("delegation tool elided: not found in registry", zap.String("tool", name))
			continue
		}
		resolved = append(resolved, name)
	}
	return resolved
}

func toSet(items []string) map[string]bool {
	if len(items) == 0 {
		return nil
	}
	set := make(map[string]bool, len(items))
	for _, i := range items {
		set[i] = true
	}
	return set
}
