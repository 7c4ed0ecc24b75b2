package config

import (
	"testing"
	"time"

	"github.com/marschhuynh/agentcore/internal/domain/valueobject"
)

func TestRetryConfigToTransport(t *testing.T) {
	rc := RetryConfig{BaseDelaySeconds: 2, Multiplier: 3, MaxDelaySeconds: 60, JitterFactor: 0.2, MaxRetries: 5}
	tc := rc.ToTransport()
	if tc.BaseDelay != 2*time.Second || tc.MaxDelay != 60*time.Second {
		t.Fatalf("unexpected conversion: %+v", tc)
	}
	if tc.Multiplier != 3 || tc.JitterFactor != 0.2 || tc.MaxRetries != 5 {
		t.Fatalf("unexpected conversion: %+v", tc)
	}
}

func TestAgentConfigToValueObjectAppliesOverrides(t *testing.T) {
	a := AgentConfig{
		ID:                 "main",
		Model:              "gpt-5",
		SystemPrompt:       "be helpful",
		EnabledTools:       []string{"echo"},
		MaxToolConcurrency: 7,
		MaxDelegationDepth: 2,
		ApprovalPolicy:     "always",
	}
	vo := a.ToValueObject()

	if vo.Model != "gpt-5" || vo.SystemPrompt != "be helpful" {
		t.Fatalf("unexpected config: %+v", vo)
	}
	if vo.MaxToolConcurrency != 7 || vo.MaxDelegationDepth != 2 {
		t.Fatalf("unexpected concurrency/depth: %+v", vo)
	}
	if !vo.ToolEnabled("echo") || vo.ToolEnabled("other") {
		t.Fatalf("unexpected tool allowlist: %+v", vo.EnabledTools)
	}
	if !vo.RequireToolApproval {
		t.Fatal("approval=always must require tool approval")
	}
}

func TestAgentConfigToValueObjectKeepsDefaultsWhenUnset(t *testing.T) {
	a := AgentConfig{ID: "main", Model: "gpt-5"}
	vo := a.ToValueObject()
	if vo.MaxToolConcurrency != 3 || vo.MaxDelegationDepth != 3 {
		t.Fatalf("expected DefaultAgentConfig's values to survive an empty override: %+v", vo)
	}
}

func TestAgentConfigPolicyDefaultsToNever(t *testing.T) {
	a := AgentConfig{}
	if a.Policy() != valueobject.ApprovalNever {
		t.Fatalf("got %v", a.Policy())
	}
}

func TestProviderConfigToLLMConfig(t *testing.T) {
	p := ProviderConfig{Name: "main", Type: "openai", BaseURL: "https://api.openai.com/v1", Models: []string{"gpt-5"}}
	retry := RetryConfig{BaseDelaySeconds: 1, Multiplier: 2, MaxDelaySeconds: 60, JitterFactor: 0.2, MaxRetries: 10}

	llmCfg := p.ToLLMConfig(retry)
	if llmCfg.Name != "main" || llmCfg.Type != "openai" || llmCfg.BaseURL != p.BaseURL {
		t.Fatalf("unexpected conversion: %+v", llmCfg)
	}
	if llmCfg.Retry.MaxRetries != 10 {
		t.Fatalf("retry not carried through: %+v", llmCfg.Retry)
	}
}

func TestProviderAPIKeyFromEnv(t *testing.T) {
	t.Setenv("TEST_PROVIDER_KEY", "sk-test-123")
	p := ProviderConfig{APIKeyEnv: "TEST_PROVIDER_KEY"}
	if p.APIKey() != "sk-test-123" {
		t.Fatalf("got %q", p.APIKey())
	}
}

func TestProviderAPIKeyEmptyWhenUnset(t *testing.T) {
	p := ProviderConfig{}
	if p.APIKey() != "" {
		t.Fatalf("expected empty key, got %q", p.APIKey())
	}
}

func TestLoadAppliesDefaultsWithNoFile(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 8089 {
		t.Fatalf("server.port default = %d, want 8089", cfg.Server.Port)
	}
	if cfg.Agent.ApprovalPolicy != "never" {
		t.Fatalf("agent.approval_policy default = %q", cfg.Agent.ApprovalPolicy)
	}
	if cfg.Retry.MaxRetries != 10 {
		t.Fatalf("retry.max_retries default = %d, want 10", cfg.Retry.MaxRetries)
	}
}
