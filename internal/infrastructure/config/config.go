// Package config loads the process-level configuration cmd/agentcore wires
// the core from. Nothing in internal/domain or internal/infrastructure's
// other packages imports this one — the core itself only ever receives
// already-parsed values (AgentConfig, RetryConfig, ...), never a config
// file path. Grounded on the teacher's infrastructure/config.Config/Load,
// narrowed from its Telegram/Database/MCP/heartbeat surface down to what
// this spec's components actually take as construction parameters.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"

	"github.com/marschhuynh/agentcore/internal/domain/valueobject"
	"github.com/marschhuynh/agentcore/internal/infrastructure/llm"
	"github.com/marschhuynh/agentcore/internal/infrastructure/transport"
)

// Config is the root application configuration.
type Config struct {
	Server    ServerConfig     `mapstructure:"server"`
	Log       LogConfig        `mapstructure:"log"`
	Agent     AgentConfig      `mapstructure:"agent"`
	Retry     RetryConfig      `mapstructure:"retry"`
	Providers []ProviderConfig `mapstructure:"providers"`
	MCP       MCPConfig        `mapstructure:"mcp"`
	Memory    MemoryConfig     `mapstructure:"memory"`
}

// ServerConfig configures the demo HTTP interface (§6).
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// LogConfig configures the zap logger (infrastructure/logger) that the serve
// command builds. The root command's one-shot run builds its logger from
// fixed values and does not read it.
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"output_path"`
}

// AgentConfig mirrors domain/valueobject.AgentConfig's construction
// parameters plus the tool-approval policy (§4).
type AgentConfig struct {
	ID                  string   `mapstructure:"id"`
	Model               string   `mapstructure:"model"`
	SystemPrompt        string   `mapstructure:"system_prompt"`
	Temperature         float64  `mapstructure:"temperature"`
	TopP                float64  `mapstructure:"top_p"`
	MaxTokens           int      `mapstructure:"max_tokens"`
	EnabledTools        []string `mapstructure:"enabled_tools"`
	MaxToolConcurrency  int      `mapstructure:"max_tool_concurrency"`
	MaxDelegationDepth  int      `mapstructure:"max_delegation_depth"`
	MaxLLMCallsPerTurn  int      `mapstructure:"max_llm_calls_per_turn"`
	ApprovalPolicy      string   `mapstructure:"approval_policy"` // never | session-scoped | always
	LoopDetectThreshold int      `mapstructure:"loop_detect_threshold"`
	CostBudgetTokens    int      `mapstructure:"cost_budget_tokens"`
}

// ToValueObject builds the domain's immutable valueobject.AgentConfig from
// the parsed file/env values.
func (a AgentConfig) ToValueObject() valueobject.AgentConfig {
	cfg := valueobject.DefaultAgentConfig(a.ID, a.Model)
	cfg.SystemPrompt = a.SystemPrompt
	if a.Temperature != 0 {
		cfg.Temperature = a.Temperature
	}
	if a.TopP != 0 {
		cfg.TopP = a.TopP
	}
	cfg.MaxTokens = a.MaxTokens
	if len(a.EnabledTools) > 0 {
		cfg = cfg.WithEnabledTools(a.EnabledTools)
	}
	if a.MaxToolConcurrency > 0 {
		cfg.MaxToolConcurrency = a.MaxToolConcurrency
	}
	if a.MaxDelegationDepth > 0 {
		cfg = cfg.WithMaxDelegationDepth(a.MaxDelegationDepth)
	}
	cfg.RequireToolApproval = a.Policy() != valueobject.ApprovalNever
	return cfg
}

// Policy returns the configured tool-approval policy, defaulting to never.
func (a AgentConfig) Policy() valueobject.ApprovalPolicy {
	if a.ApprovalPolicy == "" {
		return valueobject.ApprovalNever
	}
	return valueobject.ApprovalPolicy(a.ApprovalPolicy)
}

// RetryConfig mirrors transport.RetryConfig in config-file-friendly units.
type RetryConfig struct {
	BaseDelaySeconds float64 `mapstructure:"base_delay_seconds"`
	Multiplier       float64 `mapstructure:"multiplier"`
	MaxDelaySeconds  float64 `mapstructure:"max_delay_seconds"`
	JitterFactor     float64 `mapstructure:"jitter_factor"`
	MaxRetries       int     `mapstructure:"max_retries"`
}

func (r RetryConfig) BaseDelay() time.Duration { return toDuration(r.BaseDelaySeconds) }
func (r RetryConfig) MaxDelay() time.Duration  { return toDuration(r.MaxDelaySeconds) }

func toDuration(seconds float64) time.Duration {
	return time.Duration(seconds * float64(time.Second))
}

// ToTransport converts to the transport package's runtime RetryConfig.
func (r RetryConfig) ToTransport() transport.RetryConfig {
	return transport.RetryConfig{
		BaseDelay:    r.BaseDelay(),
		Multiplier:   r.Multiplier,
		MaxDelay:     r.MaxDelay(),
		JitterFactor: r.JitterFactor,
		MaxRetries:   r.MaxRetries,
	}
}

// ProviderConfig mirrors the §4.3 provider descriptor
// {key, baseUrl, auth, promptCaching?, getModels?, includeUsage?, customHeaders?}.
type ProviderConfig struct {
	Name          string            `mapstructure:"name"`
	Type          string            `mapstructure:"type"` // openai | anthropic
	BaseURL       string            `mapstructure:"base_url"`
	APIKeyEnv     string            `mapstructure:"api_key_env"`
	Models        []string          `mapstructure:"models"`
	PromptCaching bool              `mapstructure:"prompt_caching"`
	IncludeUsage  bool              `mapstructure:"include_usage"`
	Copilot       bool              `mapstructure:"copilot"`
	CustomHeaders map[string]string `mapstructure:"custom_headers"`
}

// APIKey resolves the provider's API key from its configured env var.
func (p ProviderConfig) APIKey() string {
	if p.APIKeyEnv == "" {
		return ""
	}
	return os.Getenv(p.APIKeyEnv)
}

// ToLLMConfig builds the llm package's runtime ProviderConfig, applying
// retry as the shared fallback when the provider doesn't override it.
func (p ProviderConfig) ToLLMConfig(retry RetryConfig) llm.ProviderConfig {
	return llm.ProviderConfig{
		Name:          p.Name,
		Type:          p.Type,
		BaseURL:       p.BaseURL,
		APIKey:        p.APIKey(),
		Models:        p.Models,
		Retry:         retry.ToTransport(),
		PromptCaching: p.PromptCaching,
		IncludeUsage:  p.IncludeUsage,
		Copilot:       p.Copilot,
		CustomHeaders: p.CustomHeaders,
	}
}

// MCPConfig lists the MCP servers the Composite Port connects to (§4.4).
type MCPConfig struct {
	Servers []MCPServerConfig `mapstructure:"servers"`
}

type MCPServerConfig struct {
	Name      string   `mapstructure:"name"`
	Transport string   `mapstructure:"transport"` // stdio | http
	Command   string   `mapstructure:"command"`
	Args      []string `mapstructure:"args"`
	Endpoint  string   `mapstructure:"endpoint"`
	Enabled   bool     `mapstructure:"enabled"`
}

// MemoryConfig selects the Memory Port backend (§5).
type MemoryConfig struct {
	Backend string `mapstructure:"backend"` // memory | file
	Dir     string `mapstructure:"dir"`     // backend=file
}

// Load reads configuration from (in ascending priority): built-in
// defaults, ./config.yaml or ./config/config.yaml, and AGENTCORE_-prefixed
// environment variables.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	v.SetEnvPrefix("AGENTCORE")
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8089)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.output_path", "stdout")

	v.SetDefault("agent.id", "default")
	v.SetDefault("agent.temperature", 1.0)
	v.SetDefault("agent.top_p", 1.0)
	v.SetDefault("agent.max_tool_concurrency", 3)
	v.SetDefault("agent.max_delegation_depth", 3)
	v.SetDefault("agent.max_llm_calls_per_turn", 25)
	v.SetDefault("agent.approval_policy", "never")
	v.SetDefault("agent.loop_detect_threshold", 5)

	v.SetDefault("retry.base_delay_seconds", 1)
	v.SetDefault("retry.multiplier", 2)
	v.SetDefault("retry.max_delay_seconds", 60)
	v.SetDefault("retry.jitter_factor", 0.2)
	v.SetDefault("retry.max_retries", 10)

	v.SetDefault("memory.backend", "memory")
	v.SetDefault("memory.dir", filepath.Join(".", "data", "conversations"))
}
