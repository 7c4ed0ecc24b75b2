package anthropic

import (
	"testing"

	"go.uber.org/zap"

	agentllm "github.com/marschhuynh/agentcore/internal/infrastructure/llm"
)

func TestProviderDefaultsBaseURL(t *testing.T) {
	p := New(agentllm.ProviderConfig{Name: "main"}, zap.NewNop())
	if p.cfg.BaseURL != "https://api.anthropic.com" {
		t.Fatalf("got %q", p.cfg.BaseURL)
	}
}

func TestProviderSupportsModelEmptyAllowlistAllowsAny(t *testing.T) {
	p := New(agentllm.ProviderConfig{Name: "main"}, zap.NewNop())
	if !p.SupportsModel("claude-opus") {
		t.Fatal("expected an empty allowlist to accept any model")
	}
}

func TestProviderSupportsModelNarrowedAllowlist(t *testing.T) {
	p := New(agentllm.ProviderConfig{Name: "main", Models: []string{"claude-opus"}}, zap.NewNop())
	if !p.SupportsModel("claude-opus") || p.SupportsModel("claude-haiku") {
		t.Fatal("allowlist not honored")
	}
}

func TestListModelsReflectsConfiguredModelsOnly(t *testing.T) {
	p := New(agentllm.ProviderConfig{Name: "main", Models: []string{"claude-opus", "claude-haiku"}}, zap.NewNop())
	models, err := p.ListModels(nil)
	if err != nil {
		t.Fatalf("ListModels: %v", err)
	}
	if len(models) != 2 {
		t.Fatalf("got %+v", models)
	}
}
