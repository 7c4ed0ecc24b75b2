package mcp

import "context"

// Transport is the wire-level abstraction both the stdio and HTTP
// bindings implement.
type Transport interface {
	// Send transmits req and waits for its matched response.
	Send(ctx context.Context, req *Request) (*Response, error)
	// Close shuts down the transport. Idempotent.
	Close() error
}
