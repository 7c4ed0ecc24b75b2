package anthropic

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
	agentllm.RegisterFactory("anthropic", func(cfg agentllm.ProviderConfig, logger *zap.Logger) agentllm.Provider {
		return New(cfg, logger)
	})
}

// Provider implements the Anthropic Messages API natively.
type Provider struct {
	cfg    agentllm.ProviderConfig
	client *http.Client
	logger *zap.Logger
}

func New(cfg agentllm.ProviderConfig, logger *zap.Logger) *Provider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.anthropic.com"
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
		logger: logger.With(zap.String("provider", cfg.Name), zap.String("type", "anthropic")),
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

func (p *Provider) GenerateCompletion(ctx context.Context, params service.LLMParams) (service.LLMResponse, error) {
	req := BuildRequest(params, p.cfg.PromptCaching)

	return transport.Do(ctx, p.logger, p.cfg.Retry, func(ctx context.Context) (service.LLMResponse, bool, error) {
		body, err := json.Marshal(req)
		if err != nil {
			return service.LLMResponse{}, false, fmt.Errorf("marshal request: %w", err)
		}

		httpReq, err := p.newRequest(ctx, body)
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

func (p *Provider) StreamCompletion(ctx context.Context, params service.LLMParams, handlers service.StreamHandlers) (service.LLMResponse, error) {
	req := BuildRequest(params, p.cfg.PromptCaching)
	req.Stream = true

	return transport.Do(ctx, p.logger, p.cfg.Retry, func(ctx context.Context) (service.LLMResponse, bool, error) {
		body, err := json.Marshal(req)
		if err != nil {
			return service.LLMResponse{}, false, fmt.Errorf("marshal request: %w", err)
		}

		httpReq, err := p.newRequest(ctx, body)
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

// ListModels is not exposed by the Anthropic API in a stable, unauthenticated
// form the way OpenAI's is; the configured Models list is the source of truth.
func (p *Provider) ListModels(ctx context.Context) ([]service.ModelInfo, error) {
	out := make([]service.ModelInfo, 0, len(p.cfg.Models))
	for _, m := range p.cfg.Models {
		out = append(out, service.ModelInfo{ID: m, DisplayName: m})
	}
	return out, nil
}

func (p *Provider) newRequest(ctx context.Context, body []byte) (*http.Request, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.BaseURL+"/v1/messages", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", p.cfg.APIKey)
	httpReq.Header.Set("anthropic-version", apiVersion)
	for k, v := range p.cfg.CustomHeaders {
		httpReq.Header.Set(k, v)
	}
	return httpReq, nil
}

func (p *Provider) httpError(resp *http.Response, body []byte) error {
	cat := transport.ClassifyStatus(resp.StatusCode)
	err := fmt.Errorf("Anthropic API error %d: %s", resp.StatusCode, string(body))
	re := &transport.RetryableError{Category: cat, Err: err}
	if d, ok := transport.ParseRetryAfter(resp.Header.Get("Retry-After")); ok {
		re.RetryAfter = d
	}
	return re
}

func parseResponse(body []byte) (service.LLMResponse, bool, error) {
	var apiResp Response
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return service.LLMResponse{}, false, fmt.Errorf("parse Anthropic response: %w", err)
	}

	resp := service.LLMResponse{
		FinishReason: apiResp.StopReason,
		Usage:        toEntityUsage(apiResp.Usage),
	}
	for _, block := range apiResp.Content {
		switch block.Type {
		case "text":
			resp.Content += block.Text
		case "tool_use":
			argsJSON, _ := json.Marshal(block.Input)
			resp.ToolCalls = append(resp.ToolCalls, entity.ToolCall{
				ID:            block.ID,
				Name:          block.Name,
				ArgumentsJSON: string(argsJSON),
			})
		}
	}
	return resp, false, nil
}
