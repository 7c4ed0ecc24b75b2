// Package llm hosts the data-driven provider factory registry behind the
// LLM Provider Abstraction (§4.3), grounded on the teacher's
// infrastructure/llm/provider.go: concrete providers self-register via
// init() and are constructed from a ProviderConfig by type name.
package llm

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/marschhuynh/agentcore/internal/domain/service"
	"github.com/marschhuynh/agentcore/internal/infrastructure/transport"
)

// Provider is the infrastructure-layer contract every concrete LLM backend
// implements; it embeds service.LLMClient so a Provider is directly usable
// by the Orchestrator.
type Provider interface {
	service.LLMClient

	Name() string
	SupportsModel(model string) bool
}

// ProviderConfig is the data-driven provider descriptor from §4.3:
// {key, baseUrl, auth, promptCaching?, getModels?, includeUsage?,
// customHeaders?}. Constructed by cmd/'s viper-backed config loader, never
// parsed inside this package.
type ProviderConfig struct {
	Name    string
	Type    string // "openai" | "anthropic"
	BaseURL string
	APIKey  string
	Models  []string
	Retry   transport.RetryConfig

	// PromptCaching enables the cache_control annotation pass (§4.3).
	PromptCaching bool

	// IncludeUsage requests usage accounting on streamed responses
	// (OpenAI's stream_options.include_usage).
	IncludeUsage bool

	// Copilot selects GitHub Copilot's X-Initiator header rule on top of
	// the otherwise OpenAI-compatible wire shape.
	Copilot bool

	// CustomHeaders are added verbatim to every outbound request.
	CustomHeaders map[string]string
}

// Factory builds a Provider from config.
type Factory func(cfg ProviderConfig, logger *zap.Logger) Provider

var (
	factoryMu sync.RWMutex
	factories = map[string]Factory{}
)

// RegisterFactory registers a provider factory for typeName. Called from
// init() in each provider sub-package (llm/openai, llm/anthropic).
func RegisterFactory(typeName string, factory Factory) {
	factoryMu.Lock()
	defer factoryMu.Unlock()
	factories[typeName] = factory
}

// Create builds a Provider using the registered factory for cfg.Type.
func Create(cfg ProviderConfig, logger *zap.Logger) (Provider, error) {
	t := cfg.Type
	if t == "" {
		t = "openai"
	}

	factoryMu.RLock()
	factory, ok := factories[t]
	factoryMu.RUnlock()
	if !ok {
		available := make([]string, 0, len(factories))
		factoryMu.RLock()
		for k := range factories {
			available = append(available, k)
		}
		factoryMu.RUnlock()
		return nil, fmt.Errorf("unknown provider type %q (available: %v)", t, available)
	}

	if cfg.Retry == (transport.RetryConfig{}) {
		cfg.Retry = transport.DefaultRetryConfig()
	}

	return factory(cfg, logger), nil
}
