// Package tool defines the core's tool abstraction: definitions exposed to
// the LLM, the registry that owns tool lifetimes, and the composite port
// that routes a call by name prefix across local and MCP-backed sources.
//
// Grounded on the teacher's domain/tool.Registry/Executor/Policy shape.
package tool

import (
	"context"
	"fmt"
	"sync"

	"github.com/marschhuynh/agentcore/internal/domain/entity"
)

// Definition is the §3 Tool Definition: what the LLM sees.
type Definition struct {
	Name                  string
	Description           string
	JSONSchemaForArguments map[string]any
}

// Impl is one executable tool. Implementations must be safe for
// concurrent Call from multiple worker-pool goroutines.
type Impl interface {
	Definition() Definition
	Call(ctx context.Context, argumentsJSON string) (string, error)
}

// Registry holds {name → Impl} for built-in tools and wrapped MCP tools,
// keyed for O(1) lookup. Registration order decides collision resolution:
// the first registration under a name wins, later ones are reported as a
// registration-time collision rather than silently shadowing it.
type Registry interface {
	Register(impl Impl) error
	Unregister(name string) error
	Lookup(name string) (Impl, bool)
	// Definitions returns JSON-schema descriptors for the LLM, filtered to
	// names present in enabled (an empty enabled list means "all").
	Definitions(enabled []string) []Definition
}

// Collision is returned by Register when name is already taken.
type Collision struct {
	Name string
}

func (c *Collision) Error() string {
	return fmt.Sprintf("tool %q already registered", c.Name)
}

// InMemoryRegistry is the core's composite port: a name-prefixed union of
// whatever sources (local built-ins, N MCP servers) registered into it.
// Routing is implicit — the registry itself owns the flat {name → Impl}
// map, and callers resolve by full (possibly prefixed) name; the "prefix
// routes to owning source" rule of §4.5 is realized by MCP tools
// registering under their `mcp_<serverId>_<remoteName>` name rather than
// by any dispatch logic here.
type InMemoryRegistry struct {
	mu    sync.RWMutex
	tools map[string]Impl
	order []string
}

func NewInMemoryRegistry() *InMemoryRegistry {
	return &InMemoryRegistry{tools: make(map[string]Impl)}
}

func (r *InMemoryRegistry) Register(impl Impl) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	name := impl.Definition().Name
	if _, exists := r.tools[name]; exists {
		return &Collision{Name: name}
	}
	r.tools[name] = impl
	r.order = append(r.order, name)
	return nil
}

func (r *InMemoryRegistry) Unregister(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[name]; !exists {
		return fmt.Errorf("tool %q not registered", name)
	}
	delete(r.tools, name)
	for i, n := range r.order {
		if n == name {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return nil
}

func (r *InMemoryRegistry) Lookup(name string) (Impl, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	impl, ok := r.tools[name]
	return impl, ok
}

func (r *InMemoryRegistry) Definitions(enabled []string) []Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	allowed := map[string]bool(nil)
	if len(enabled) > 0 {
		allowed = make(map[string]bool, len(enabled))
		for _, name := range enabled {
			allowed[name] = true
		}
	}

	defs := make([]Definition, 0, len(r.order))
	for _, name := range r.order {
		if allowed != nil && !allowed[name] {
			continue
		}
		defs = append(defs, r.tools[name].Definition())
	}
	return defs
}

// ResultFromMessage returns the tool-role message content for an
// entity.ToolExecutionResult, which is its Body. The Orchestrator builds
// tool messages from r.Body directly and does not call it.
func ResultFromMessage(r entity.ToolExecutionResult) string {
	return r.Body
}
