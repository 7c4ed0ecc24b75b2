package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// ErrDegraded marks a CallTool failure caused by the circuit having
// already tripped (§4.4/§7), distinct from an ordinary call error, so
// callers can classify it as the tool being unreachable rather than the
// call itself having failed.
var ErrDegraded = errors.New("mcp server is degraded")

const clientProtocolVersion = "2024-11-05"

// SessionState mirrors the MCP session state machine (§4.8):
// disconnected → connecting → ready → {running|ready} → closing →
// disconnected, with any state able to move to errored.
type SessionState string

const (
	StateDisconnected SessionState = "disconnected"
	StateConnecting   SessionState = "connecting"
	StateReady        SessionState = "ready"
	StateRunning       SessionState = "running"
	StateClosing      SessionState = "closing"
	StateErrored      SessionState = "errored"
)

// Client is the MCP client's lifecycle: connect, listTools, callTool,
// disconnect (§4.4).
type Client struct {
	serverID  string
	transport Transport
	logger    *zap.Logger

	nextID int64

	mu          sync.RWMutex
	state       SessionState
	tools       []ToolSchema
	callTimeout time.Duration

	consecutiveTimeouts int32
	degraded            atomic.Bool
}

// NewClient constructs a client over an already-built transport (stdio or
// HTTP). serverID is used to prefix discovered tool names (§3).
func NewClient(serverID string, transport Transport, logger *zap.Logger) *Client {
	return &Client{
		serverID:    serverID,
		transport:   transport,
		logger:      logger,
		state:       StateDisconnected,
		callTimeout: 30 * time.Second,
	}
}

func (c *Client) ServerID() string { return c.serverID }

func (c *Client) State() SessionState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

func (c *Client) setState(s SessionState) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

// Connect sends the `initialize` handshake (§4.4 step 1).
func (c *Client) Connect(ctx context.Context) error {
	c.setState(StateConnecting)

	params, _ := json.Marshal(map[string]any{
		"protocolVersion": clientProtocolVersion,
		"capabilities":    map[string]any{},
		"clientInfo":      map[string]any{"name": "agentcore", "version": "1"},
	})

	_, err := c.call(ctx, "initialize", params)
	if err != nil {
		c.setState(StateErrored)
		return fmt.Errorf("mcp initialize: %w", err)
	}
	c.setState(StateReady)
	return nil
}

// ListTools calls tools/list and caches the schema list (§4.4 step 2).
func (c *Client) ListTools(ctx context.Context) ([]ToolSchema, error) {
	result, err := c.call(ctx, "tools/list", nil)
	if err != nil {
		c.setState(StateErrored)
		return nil, fmt.Errorf("mcp tools/list: %w", err)
	}

	var parsed struct {
		Tools []ToolSchema `json:"tools"`
	}
	if err := json.Unmarshal(result, &parsed); err != nil {
		return nil, fmt.Errorf("mcp tools/list decode: %w", err)
	}

	c.mu.Lock()
	c.tools = parsed.Tools
	c.mu.Unlock()
	return parsed.Tools, nil
}

// Tools returns the cached tool schema list from the last ListTools call.
func (c *Client) Tools() []ToolSchema {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]ToolSchema(nil), c.tools...)
}

// CallTool calls tools/call (§4.4 step 3). If the server has been marked
// degraded by repeated timeouts, the call is refused immediately.
func (c *Client) CallTool(ctx context.Context, name string, argumentsJSON string) (string, error) {
	if c.degraded.Load() {
		return "", fmt.Errorf("mcp server %q is degraded after repeated timeouts: %w", c.serverID, ErrDegraded)
	}

	c.setState(StateRunning)
	defer c.setState(StateReady)

	var args any
	if argumentsJSON != "" {
		if err := json.Unmarshal([]byte(argumentsJSON), &args); err != nil {
			return "", fmt.Errorf("invalid tool arguments: %w", err)
		}
	} else {
		args = map[string]any{}
	}

	params, _ := json.Marshal(map[string]any{"name": name, "arguments": args})

	callCtx, cancel := context.WithTimeout(ctx, c.callTimeout)
	defer cancel()

	result, err := c.call(callCtx, "tools/call", params)
	if err != nil {
		if callCtx.Err() == context.DeadlineExceeded {
			n := atomic.AddInt32(&c.consecutiveTimeouts, 1)
			if n >= 3 {
				c.degraded.Store(true)
				c.logger.Warn("mcp server marked degraded after repeated timeouts",
					zap.String("server", c.serverID))
			}
			return "", fmt.Errorf("mcp tool call timed out")
		}
		return "", err
	}
	atomic.StoreInt32(&c.consecutiveTimeouts, 0)

	var parsed struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
		IsError bool `json:"isError"`
	}
	if err := json.Unmarshal(result, &parsed); err != nil {
		return string(result), nil
	}

	var text string
	for _, block := range parsed.Content {
		if block.Type == "text" {
			text += block.Text
		}
	}
	if parsed.IsError {
		return text, fmt.Errorf("tool reported an error: %s", text)
	}
	return text, nil
}

// ResetDegraded clears the degraded flag, allowing calls to resume; per
// §4.4 this requires a manual reset.
func (c *Client) ResetDegraded() {
	c.degraded.Store(false)
	atomic.StoreInt32(&c.consecutiveTimeouts, 0)
}

// Disconnect terminates the transport. Idempotent (§4.4 step 4).
func (c *Client) Disconnect() error {
	c.setState(StateClosing)
	err := c.transport.Close()
	c.setState(StateDisconnected)
	return err
}

func (c *Client) call(ctx context.Context, method string, params json.RawMessage) (json.RawMessage, error) {
	id := atomic.AddInt64(&c.nextID, 1)
	req := &Request{JSONRPC: "2.0", ID: int(id), Method: method, Params: params}

	resp, err := c.transport.Send(ctx, req)
	if err != nil {
		return nil, err
	}
	if resp.Error != nil {
		return nil, resp.Error
	}
	return resp.Result, nil
}
