// Package mcp implements a Model Context Protocol client: JSON-RPC 2.0
// over stdio (newline-delimited) or HTTP POST with a session header.
//
// The stdio transport's id→promise demultiplexing is grounded on the
// teacher's own internal/infrastructure/sideload/transport_stdio.go, which
// solves the identical problem for a sibling "sideload module" subsystem.
// The HTTP call shape is grounded on internal/infrastructure/tool/mcp_adapter.go.
package mcp

import "encoding/json"

// Request is a JSON-RPC 2.0 request or notification (ID nil means
// notification).
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      any             `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// Response is a JSON-RPC 2.0 response.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      any             `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
}

// RPCError is a JSON-RPC 2.0 error object.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string { return e.Message }

// ToolSchema is one entry of a tools/list result.
type ToolSchema struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"inputSchema"`
}

// normalizeID ensures a consistent key type for the pending-request map:
// JSON numbers decode as float64, so an id sent as an int must be
// re-normalized on receipt to match.
func normalizeID(id any) any {
	if f, ok := id.(float64); ok {
		return int(f)
	}
	return id
}
