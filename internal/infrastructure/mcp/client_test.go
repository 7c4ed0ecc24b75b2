package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"
)

// scriptedTransport answers Send per-method from a canned response table,
// or, when timeoutOnCall is true, blocks until the caller's context
// deadline expires so CallTool's timeout-handling path can be exercised.
type scriptedTransport struct {
	responses    map[string]*Response
	timeoutOnCall bool
	closed       bool
}

func (s *scriptedTransport) Send(ctx context.Context, req *Request) (*Response, error) {
	if s.timeoutOnCall && req.Method == "tools/call" {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	resp, ok := s.responses[req.Method]
	if !ok {
		return nil, errors.New("unscripted method: " + req.Method)
	}
	return resp, nil
}

func (s *scriptedTransport) Close() error {
	s.closed = true
	return nil
}

func rawResult(v any) json.RawMessage {
	b, _ := json.Marshal(v)
	return b
}

func newReadyClient(t *testing.T, responses map[string]*Response) (*Client, *scriptedTransport) {
	t.Helper()
	tr := &scriptedTransport{responses: responses}
	c := NewClient("srv1", tr, zap.NewNop())
	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	return c, tr
}

func TestClientConnectTransitionsToReady(t *testing.T) {
	c, _ := newReadyClient(t, map[string]*Response{
		"initialize": {JSONRPC: "2.0", Result: rawResult(map[string]any{})},
	})
	if c.State() != StateReady {
		t.Fatalf("got %v", c.State())
	}
}

func TestClientConnectErrorsTransitionsToErrored(t *testing.T) {
	tr := &scriptedTransport{responses: map[string]*Response{
		"initialize": {JSONRPC: "2.0", Error: &RPCError{Code: -1, Message: "boom"}},
	}}
	c := NewClient("srv1", tr, zap.NewNop())
	if err := c.Connect(context.Background()); err == nil {
		t.Fatal("expected an error")
	}
	if c.State() != StateErrored {
		t.Fatalf("got %v", c.State())
	}
}

func TestClientListToolsCachesSchemas(t *testing.T) {
	c, _ := newReadyClient(t, map[string]*Response{
		"initialize": {JSONRPC: "2.0", Result: rawResult(map[string]any{})},
		"tools/list": {JSONRPC: "2.0", Result: rawResult(map[string]any{
			"tools": []ToolSchema{{Name: "search", Description: "search the web"}},
		})},
	})

	tools, err := c.ListTools(context.Background())
	if err != nil {
		t.Fatalf("ListTools: %v", err)
	}
	if len(tools) != 1 || tools[0].Name != "search" {
		t.Fatalf("got %+v", tools)
	}
	if cached := c.Tools(); len(cached) != 1 || cached[0].Name != "search" {
		t.Fatalf("expected ListTools result to be cached, got %+v", cached)
	}
}

func TestClientCallToolReturnsConcatenatedTextBlocks(t *testing.T) {
	c, _ := newReadyClient(t, map[string]*Response{
		"initialize": {JSONRPC: "2.0", Result: rawResult(map[string]any{})},
		"tools/call": {JSONRPC: "2.0", Result: rawResult(map[string]any{
			"content": []map[string]string{{"type": "text", "text": "hello "}, {"type": "text", "text": "world"}},
		})},
	})

	out, err := c.CallTool(context.Background(), "search", `{"q":"x"}`)
	if err != nil {
		t.Fatalf("CallTool: %v", err)
	}
	if out != "hello world" {
		t.Fatalf("got %q", out)
	}
	if c.State() != StateReady {
		t.Fatalf("expected state to return to ready after the call, got %v", c.State())
	}
}

func TestClientCallToolSurfacesIsErrorAsGoError(t *testing.T) {
	c, _ := newReadyClient(t, map[string]*Response{
		"initialize": {JSONRPC: "2.0", Result: rawResult(map[string]any{})},
		"tools/call": {JSONRPC: "2.0", Result: rawResult(map[string]any{
			"content": []map[string]string{{"type": "text", "text": "invalid argument"}},
			"isError": true,
		})},
	})

	if _, err := c.CallTool(context.Background(), "search", `{}`); err == nil {
		t.Fatal("expected isError:true to surface as a Go error")
	}
}

func TestClientCallToolInvalidArgumentsJSONFailsFast(t *testing.T) {
	c, _ := newReadyClient(t, map[string]*Response{
		"initialize": {JSONRPC: "2.0", Result: rawResult(map[string]any{})},
	})

	if _, err := c.CallTool(context.Background(), "search", `not json`); err == nil {
		t.Fatal("expected invalid arguments JSON to error before calling the transport")
	}
}

func TestClientDegradesAfterThreeConsecutiveTimeouts(t *testing.T) {
	tr := &scriptedTransport{responses: map[string]*Response{
		"initialize": {JSONRPC: "2.0", Result: rawResult(map[string]any{})},
	}, timeoutOnCall: true}
	c := NewClient("srv1", tr, zap.NewNop())
	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	c.callTimeout = 5 * time.Millisecond

	for i := 0; i < 3; i++ {
		if _, err := c.CallTool(context.Background(), "slow", `{}`); err == nil {
			t.Fatalf("call %d: expected a timeout error", i)
		}
	}

	if _, err := c.CallTool(context.Background(), "slow", `{}`); err == nil {
		t.Fatal("expected the client to refuse calls once degraded")
	}

	c.ResetDegraded()
	if _, err := c.CallTool(context.Background(), "slow", `{}`); err == nil {
		t.Fatal("expected the reset client to still time out on this scripted transport")
	}
}

func TestClientDisconnectClosesTransportAndResetsState(t *testing.T) {
	c, tr := newReadyClient(t, map[string]*Response{
		"initialize": {JSONRPC: "2.0", Result: rawResult(map[string]any{})},
	})
	if err := c.Disconnect(); err != nil {
		t.Fatalf("Disconnect: %v", err)
	}
	if !tr.closed {
		t.Fatal("expected the transport to be closed")
	}
	if c.State() != StateDisconnected {
		t.Fatalf("got %v", c.State())
	}
}
