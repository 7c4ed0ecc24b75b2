package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"
)

// HTTPTransport POSTs one JSON-RPC request per call to endpoint, carrying
// a shared session id header once the server has assigned one (§6).
// Grounded on the teacher's mcp_adapter.go call shape.
type HTTPTransport struct {
	endpoint  string
	client    *http.Client
	sessionID atomic.Value // string
}

func NewHTTPTransport(endpoint string, client *http.Client) *HTTPTransport {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPTransport{endpoint: endpoint, client: client}
}

func (t *HTTPTransport) Send(ctx context.Context, req *Request) (*Response, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if sid, ok := t.sessionID.Load().(string); ok && sid != "" {
		httpReq.Header.Set("Mcp-Session-Id", sid)
	}

	httpResp, err := t.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("mcp http request: %w", err)
	}
	defer httpResp.Body.Close()

	if sid := httpResp.Header.Get("Mcp-Session-Id"); sid != "" {
		t.sessionID.Store(sid)
	}

	if httpResp.StatusCode >= 400 {
		return nil, fmt.Errorf("mcp http request failed: status %d", httpResp.StatusCode)
	}

	var resp Response
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		return nil, fmt.Errorf("mcp http decode: %w", err)
	}
	return &resp, nil
}

func (t *HTTPTransport) Close() error { return nil }
