package openai

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/marschhuynh/agentcore/internal/domain/entity"
	"github.com/marschhuynh/agentcore/internal/domain/service"
	agentllm "github.com/marschhuynh/agentcore/internal/infrastructure/llm"
	"github.com/marschhuynh/agentcore/internal/infrastructure/transport"
)

func init() {
	agentllm.RegisterFactory("openai", func(cfg agentllm.ProviderConfig, logger *zap.Logger) agentllm.Provider {
		return New(cfg, logger)
	})
}

// Provider is the OpenAI-compatible adapter. It also serves GitHub
// Copilot's Chat API when cfg.Copilot is set, and any other
// OpenAI-shaped backend (OpenRouter, DeepInfra, Z.ai, Moonshot, Bailian,
// vLLM, Ollama, ...) via cfg.BaseURL/cfg.CustomHeaders.
type Provider struct {
	cfg    agentllm.ProviderConfig
	client *http.Client
	logger *zap.Logger
}

func New(cfg agentllm.ProviderConfig, logger *zap.Logger) *Provider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Retry == (transport.RetryConfig{}) {
		cfg.Retry = transport.DefaultRetryConfig()
	}

	tr := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   15 * time.Second,
		ResponseHeaderTimeout: 300 * time.Second,
		IdleConnTimeout:       90 * time.Second,
		MaxIdleConns:          10,
		MaxIdleConnsPerHost:   5,
		TLSClientConfig:       &tls.Config{MinVersion: tls.VersionTLS12},
	}

	return &Provider{
		cfg:    cfg,
		client: &http.Client{Transport: tr},
		logger: logger.With(zap.String("provider", cfg.Name), zap.String("type", "openai")),
	}
}

var _ agentllm.Provider = (*Provider)(nil)

func (p *Provider) Name() string { return p.cfg.Name }

func (p *Provider) SupportsModel(model string) bool {
	if len(p.cfg.Models) == 0 {
		return true
	}
	for _, m := range p.cfg.Models {
		if m == model {
			return true
		}
	}
	return false
}

// GenerateCompletion implements service.LLMClient (non-streaming).
func (p *Provider) GenerateCompletion(ctx context.Context, params service.LLMParams) (service.LLMResponse, error) {
	req := BuildRequest(params, p.cfg.PromptCaching)

	return transport.Do(ctx, p.logger, p.cfg.Retry, func(ctx context.Context) (service.LLMResponse, bool, error) {
		body, err := json.Marshal(req)
		if err != nil {
			return service.LLMResponse{}, false, fmt.Errorf("marshal request: %w", err)
		}

		httpReq, err := p.newRequest(ctx, body, params.Messages)
		if err != nil {
			return service.LLMResponse{}, false, fmt.Errorf("create request: %w", err)
		}

		resp, err := p.client.Do(httpReq)
		if err != nil {
			return service.LLMResponse{}, false, &transport.RetryableError{Category: transport.ClassifyDialError(err), Err: err}
		}
		defer resp.Body.Close()

		respBody, err := io.ReadAll(resp.Body)
		if err != nil {
			return service.LLMResponse{}, false, fmt.Errorf("read response: %w", err)
		}

		if resp.StatusCode != http.StatusOK {
			return service.LLMResponse{}, false, p.httpError(resp, respBody)
		}

		return parseResponse(respBody)
	})
}

// StreamCompletion implements service.LLMClient with SSE streaming.
func (p *Provider) StreamCompletion(ctx context.Context, params service.LLMParams, handlers service.StreamHandlers) (service.LLMResponse, error) {
	req := BuildRequest(params, p.cfg.PromptCaching)
	streamReq := &StreamRequest{Request: req, Stream: true}
	if p.cfg.IncludeUsage {
		streamReq.StreamOptions = &StreamOptions{IncludeUsage: true}
	}

	return transport.Do(ctx, p.logger, p.cfg.Retry, func(ctx context.Context) (service.LLMResponse, bool, error) {
		body, err := json.Marshal(streamReq)
		if err != nil {
			return service.LLMResponse{}, false, fmt.Errorf("marshal request: %w", err)
		}

		httpReq, err := p.newRequest(ctx, body, params.Messages)
		if err != nil {
			return service.LLMResponse{}, false, fmt.Errorf("create request: %w", err)
		}
		httpReq.Header.Set("Accept", "text/event-stream")

		resp, err := p.client.Do(httpReq)
		if err != nil {
			return service.LLMResponse{}, false, &transport.RetryableError{Category: transport.ClassifyDialError(err), Err: err}
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			respBody, _ := io.ReadAll(resp.Body)
			return service.LLMResponse{}, false, p.httpError(resp, respBody)
		}

		// Force-close the body on cancellation so the scanner unblocks.
		streamDone := make(chan struct{})
		go func() {
			select {
			case <-ctx.Done():
				p.logger.Info("context cancelled, force-closing SSE stream", zap.Error(ctx.Err()))
				resp.Body.Close()
			case <-streamDone:
			}
		}()

		out, streamStarted, err := ParseSSEStream(resp.Body, handlers, p.logger)
		close(streamDone)
		return out, streamStarted, err
	})
}

// ListModels implements service.LLMClient by calling GET /models.
func (p *Provider) ListModels(ctx context.Context) ([]service.ModelInfo, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, p.cfg.BaseURL+"/models", nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	p.setAuthHeaders(httpReq, nil)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("list models %d: %s", resp.StatusCode, string(body))
	}

	var list ModelList
	if err := json.Unmarshal(body, &list); err != nil {
		return nil, fmt.Errorf("parse model list: %w", err)
	}

	out := make([]service.ModelInfo, 0, len(list.Data))
	for _, m := range list.Data {
		out = append(out, service.ModelInfo{ID: m.ID, DisplayName: m.ID})
	}
	return out, nil
}

func (p *Provider) newRequest(ctx context.Context, body []byte, messages []service.LLMMessage) (*http.Request, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.BaseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	p.setAuthHeaders(httpReq, messages)
	return httpReq, nil
}

func (p *Provider) setAuthHeaders(req *http.Request, messages []service.LLMMessage) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.cfg.APIKey)
	for k, v := range p.cfg.CustomHeaders {
		req.Header.Set(k, v)
	}
	if p.cfg.Copilot {
		req.Header.Set("X-Initiator", initiator(messages))
	}
}

// initiator implements GitHub Copilot's rule: "user" iff the last
// non-system message has role user, else "agent" (§4.3).
func initiator(messages []service.LLMMessage) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == entity.RoleSystem {
			continue
		}
		if messages[i].Role == entity.RoleUser {
			return "user"
		}
		return "agent"
	}
	return "agent"
}

func (p *Provider) httpError(resp *http.Response, body []byte) error {
	cat := transport.ClassifyStatus(resp.StatusCode)
	err := fmt.Errorf("API error %d: %s", resp.StatusCode, string(body))
	re := &transport.RetryableError{Category: cat, Err: err}
	if d, ok := transport.ParseRetryAfter(resp.Header.Get("Retry-After")); ok {
		re.RetryAfter = d
	}
	return re
}

func parseResponse(body []byte) (service.LLMResponse, bool, error) {
	var apiResp Response
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return service.LLMResponse{}, false, fmt.Errorf("parse response: %w", err)
	}
	if len(apiResp.Choices) == 0 {
		return service.LLMResponse{}, false, fmt.Errorf("empty response: no choices")
	}

	choice := apiResp.Choices[0]
	resp := service.LLMResponse{
		Content:      contentText(choice.Message.Content),
		FinishReason: choice.FinishReason,
		Usage:        toEntityUsage(apiResp.Usage),
	}
	for _, tc := range choice.Message.ToolCalls {
		resp.ToolCalls = append(resp.ToolCalls, entity.ToolCall{
			ID:            tc.ID,
			Name:          tc.Function.Name,
			ArgumentsJSON: tc.Function.Arguments,
		})
	}
	return resp, false, nil
}
