// Package valueobject holds immutable value objects — equality by value,
// "wither" methods instead of setters, grounded on the teacher's
// ModelConfig value object.
package valueobject

// AgentConfig is the §3 Agent Configuration value object. Immutable: every
// change produces a new value via a With* method.
type AgentConfig struct {
	ID                   string
	SystemPrompt         string
	Temperature          float64
	TopP                 float64
	MaxTokens            int
	Model                string
	EnabledTools         []string
	MaxToolConcurrency   int
	RequireToolApproval  bool
	MaxDelegationDepth   int
}

// DefaultAgentConfig returns a config with the spec's stated defaults
// (maxToolConcurrency=3, maxDelegationDepth=3) and approval disabled.
func DefaultAgentConfig(id, model string) AgentConfig {
	return AgentConfig{
		ID:                 id,
		Temperature:        1.0,
		TopP:                1.0,
		Model:               model,
		MaxToolConcurrency:  3,
		MaxDelegationDepth:  3,
	}
}

func (c AgentConfig) WithSystemPrompt(prompt string) AgentConfig {
	c.SystemPrompt = prompt
	return c
}

func (c AgentConfig) WithTemperature(t float64) AgentConfig {
	c.Temperature = t
	return c
}

func (c AgentConfig) WithEnabledTools(tools []string) AgentConfig {
	c.EnabledTools = append([]string(nil), tools...)
	return c
}

func (c AgentConfig) WithMaxDelegationDepth(depth int) AgentConfig {
	c.MaxDelegationDepth = depth
	return c
}

// ToolEnabled reports whether name is in the enabled-tools allowlist. An
// empty allowlist means "all registered tools enabled" — the common case
// for a top-level agent; specialist sub-agents always carry an explicit,
// narrowed list (§4.7).
func (c AgentConfig) ToolEnabled(name string) bool {
	if len(c.EnabledTools) == 0 {
		return true
	}
	for _, t := range c.EnabledTools {
		if t == name {
			return true
		}
	}
	return false
}

// Equals compares two configs by value.
func (c AgentConfig) Equals(other AgentConfig) bool {
	if c.ID != other.ID || c.SystemPrompt != other.SystemPrompt ||
		c.Temperature != other.Temperature || c.TopP != other.TopP ||
		c.MaxTokens != other.MaxTokens || c.Model != other.Model ||
		c.MaxToolConcurrency != other.MaxToolConcurrency ||
		c.RequireToolApproval != other.RequireToolApproval ||
		c.MaxDelegationDepth != other.MaxDelegationDepth {
		return false
	}
	if len(c.EnabledTools) != len(other.EnabledTools) {
		return false
	}
	for i, t := range c.EnabledTools {
		if other.EnabledTools[i] != t {
			return false
		}
	}
	return true
}
