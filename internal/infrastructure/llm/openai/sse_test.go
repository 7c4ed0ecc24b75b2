package openai

import (
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/marschhuynh/agentcore/internal/domain/service"
)

func TestParseSSEStreamAccumulatesContentDeltas(t *testing.T) {
	body := strings.Join([]string{
		`data: {"choices":[{"delta":{"content":"Hel"}}]}`,
		`data: {"choices":[{"delta":{"content":"lo"}}]}`,
		`data: {"choices":[{"delta":{},"finish_reason":"stop"}]}`,
		`data: [DONE]`,
		"",
	}, "\n")

	var chunks []string
	resp, started, err := ParseSSEStream(strings.NewReader(body), service.StreamHandlers{
		OnChunk: func(delta string) { chunks = append(chunks, delta) },
	}, zap.NewNop())
	if err != nil {
		t.Fatalf("ParseSSEStream: %v", err)
	}
	if !started {
		t.Fatal("expected streamStarted=true")
	}
	if resp.Content != "Hello" || resp.FinishReason != "stop" {
		t.Fatalf("got %+v", resp)
	}
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunk callbacks, got %d", len(chunks))
	}
}

func TestParseSSEStreamAssemblesToolCallFragmentsByIndex(t *testing.T) {
	body := strings.Join([]string{
		`data: {"choices":[{"delta":{"tool_calls":[{"index":0,"id":"call1","function":{"name":"echo","arguments":"{\"s\":"}}]}}]}`,
		`data: {"choices":[{"delta":{"tool_calls":[{"index":0,"function":{"arguments":"\"x\"}"}}]}}]}`,
		`data: {"choices":[{"delta":{},"finish_reason":"tool_calls"}]}`,
		"",
	}, "\n")

	resp, _, err := ParseSSEStream(strings.NewReader(body), service.StreamHandlers{}, zap.NewNop())
	if err != nil {
		t.Fatalf("ParseSSEStream: %v", err)
	}
	if len(resp.ToolCalls) != 1 {
		t.Fatalf("got %+v", resp.ToolCalls)
	}
	tc := resp.ToolCalls[0]
	if tc.ID != "call1" || tc.Name != "echo" || tc.ArgumentsJSON != `{"s":"x"}` {
		t.Fatalf("got %+v", tc)
	}
}

func TestParseSSEStreamCapturesUsage(t *testing.T) {
	body := strings.Join([]string{
		`data: {"choices":[{"delta":{"content":"hi"},"finish_reason":"stop"}],"usage":{"prompt_tokens":3,"completion_tokens":2,"total_tokens":5}}`,
		"",
	}, "\n")

	resp, _, err := ParseSSEStream(strings.NewReader(body), service.StreamHandlers{}, zap.NewNop())
	if err != nil {
		t.Fatalf("ParseSSEStream: %v", err)
	}
	if resp.Usage.TotalTokens != 5 {
		t.Fatalf("got %+v", resp.Usage)
	}
}

func TestParseSSEStreamSkipsUnparseableLinesWithoutFailing(t *testing.T) {
	body := strings.Join([]string{
		`data: not json`,
		`data: {"choices":[{"delta":{"content":"ok"},"finish_reason":"stop"}]}`,
		"",
	}, "\n")

	resp, _, err := ParseSSEStream(strings.NewReader(body), service.StreamHandlers{}, zap.NewNop())
	if err != nil {
		t.Fatalf("ParseSSEStream: %v", err)
	}
	if resp.Content != "ok" {
		t.Fatalf("got %+v", resp)
	}
}

func TestParseSSEStreamIgnoresNonDataLines(t *testing.T) {
	body := strings.Join([]string{
		`: keep-alive comment`,
		`event: message`,
		`data: {"choices":[{"delta":{"content":"ok"},"finish_reason":"stop"}]}`,
		"",
	}, "\n")

	resp, _, err := ParseSSEStream(strings.NewReader(body), service.StreamHandlers{}, zap.NewNop())
	if err != nil {
		t.Fatalf("ParseSSEStream: %v", err)
	}
	if resp.Content != "ok" {
		t.Fatalf("got %+v", resp)
	}
}
