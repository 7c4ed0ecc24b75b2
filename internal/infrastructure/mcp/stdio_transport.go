package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"
)

// StdioTransport communicates with a child process's stdin/stdout,
// newline-delimited JSON per message (§6). Requests are multiplexed by
// JSON-RPC id against a single reader goroutine — out-of-order completion
// is supported (§4.4).
type StdioTransport struct {
	stdin  io.WriteCloser
	stdout io.ReadCloser
	reader *bufio.Reader

	mu      sync.Mutex
	pending map[any]chan *Response

	done      chan struct{}
	closeOnce sync.Once
}

// NewStdioTransport wraps an already-spawned child process's pipes.
// Ownership of stdin/stdout passes to the transport; Close closes stdin,
// which is expected to make the child exit and its stdout reader EOF.
func NewStdioTransport(stdin io.WriteCloser, stdout io.ReadCloser) *StdioTransport {
	t := &StdioTransport{
		stdin:   stdin,
		stdout:  stdout,
		reader:  bufio.NewReaderSize(stdout, 64*1024),
		pending: make(map[any]chan *Response),
		done:    make(chan struct{}),
	}
	go t.readLoop()
	return t
}

func (t *StdioTransport) readLoop() {
	defer close(t.done)
	for {
		line, err := t.reader.ReadBytes('\n')
		if err != nil {
			return
		}
		var resp Response
		if err := json.Unmarshal(line, &resp); err != nil || resp.ID == nil {
			continue // not a well-formed response; ignore (e.g. a notification)
		}
		key := normalizeID(resp.ID)
		t.mu.Lock()
		ch, exists := t.pending[key]
		if exists {
			delete(t.pending, key)
		}
		t.mu.Unlock()
		if ch != nil {
			ch <- &resp
		}
	}
}

func (t *StdioTransport) Send(ctx context.Context, req *Request) (*Response, error) {
	ch := make(chan *Response, 1)
	key := normalizeID(req.ID)

	t.mu.Lock()
	t.pending[key] = ch
	t.mu.Unlock()

	if err := t.write(req); err != nil {
		t.mu.Lock()
		delete(t.pending, key)
		t.mu.Unlock()
		return nil, fmt.Errorf("mcp stdio write: %w", err)
	}

	select {
	case resp := <-ch:
		return resp, nil
	case <-ctx.Done():
		t.mu.Lock()
		delete(t.pending, key)
		t.mu.Unlock()
		return nil, ctx.Err()
	case <-t.done:
		return nil, fmt.Errorf("mcp stdio transport closed")
	}
}

func (t *StdioTransport) Close() error {
	var err error
	t.closeOnce.Do(func() {
		err = t.stdin.Close()
	})
	return err
}

func (t *StdioTransport) write(req *Request) error {
	data, err := json.Marshal(req)
	if err != nil {
		return err
	}
	data = append(data, '\n')

	t.mu.Lock()
	defer t.mu.Unlock()
	_, err = t.stdin.Write(data)
	return err
}
