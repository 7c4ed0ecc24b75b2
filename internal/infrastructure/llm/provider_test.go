package llm

import (
	"context"
	"testing"

	"go.uber.org/zap"

	"github.com/marschhuynh/agentcore/internal/domain/service"
)

type stubProvider struct{ name string }

func (s *stubProvider) Name() string                    { return s.name }
func (s *stubProvider) SupportsModel(model string) bool { return true }
func (s *stubProvider) GenerateCompletion(ctx context.Context, params service.LLMParams) (service.LLMResponse, error) {
	return service.LLMResponse{}, nil
}
func (s *stubProvider) StreamCompletion(ctx context.Context, params service.LLMParams, handlers service.StreamHandlers) (service.LLMResponse, error) {
	return service.LLMResponse{}, nil
}
func (s *stubProvider) ListModels(ctx context.Context) ([]service.ModelInfo, error) { return nil, nil }

func TestCreateUsesRegisteredFactoryForType(t *testing.T) {
	RegisterFactory("stub-test-type", func(cfg ProviderConfig, logger *zap.Logger) Provider {
		return &stubProvider{name: cfg.Name}
	})

	p, err := Create(ProviderConfig{Name: "main", Type: "stub-test-type"}, zap.NewNop())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if p.Name() != "main" {
		t.Fatalf("got %q", p.Name())
	}
}

func TestCreateDefaultsToOpenAIWhenTypeEmpty(t *testing.T) {
	RegisterFactory("openai", func(cfg ProviderConfig, logger *zap.Logger) Provider {
		return &stubProvider{name: "default-openai"}
	})

	p, err := Create(ProviderConfig{Name: "main"}, zap.NewNop())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if p.Name() != "default-openai" {
		t.Fatalf("got %q", p.Name())
	}
}

func TestCreateUnknownTypeFails(t *testing.T) {
	_, err := Create(ProviderConfig{Name: "main", Type: "no-such-provider-type"}, zap.NewNop())
	if err == nil {
		t.Fatal("expected an error for an unregistered provider type")
	}
}

func TestCreateAppliesDefaultRetryWhenUnset(t *testing.T) {
	var captured ProviderConfig
	RegisterFactory("stub-retry-capture", func(cfg ProviderConfig, logger *zap.Logger) Provider {
		captured = cfg
		return &stubProvider{name: cfg.Name}
	})

	if _, err := Create(ProviderConfig{Name: "main", Type: "stub-retry-capture"}, zap.NewNop()); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if captured.Retry.MaxRetries == 0 {
		t.Fatal("expected Create to fill in a default retry policy")
	}
}
