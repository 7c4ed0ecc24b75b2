// Package eventbus provides the concrete EventSink the Orchestrator emits
// turn-lifecycle events into (§6): a buffered channel with non-blocking
// publish and per-subscriber fan-out. Grounded on the teacher's
// infrastructure/eventbus.InMemoryBus, narrowed from a generic
// publish/subscribe bus down to service.EventSink's single Emit method
// plus a Subscribe hook for consumers (the HTTP interface's SSE handler).
package eventbus

import (
	"sync"

	"go.uber.org/zap"

	"github.com/marschhuynh/agentcore/internal/domain/entity"
	"github.com/marschhuynh/agentcore/internal/domain/service"
)

// Subscriber receives every event published to the bus. Slow subscribers
// never block Emit — see Bus.dispatch.
type Subscriber func(entity.Event)

// Bus is the buffered, non-blocking EventSink implementation.
type Bus struct {
	mu          sync.RWMutex
	subscribers []Subscriber
	eventCh     chan entity.Event
	closed      bool
	logger      *zap.Logger
	wg          sync.WaitGroup
}

// New creates a Bus with the given channel buffer size and starts its
// dispatch goroutine.
func New(logger *zap.Logger, bufferSize int) *Bus {
	if bufferSize <= 0 {
		bufferSize = 256
	}
	b := &Bus{
		eventCh: make(chan entity.Event, bufferSize),
		logger:  logger,
	}
	b.wg.Add(1)
	go b.dispatch()
	return b
}

var _ service.EventSink = (*Bus)(nil)

// Emit implements service.EventSink. A full buffer drops the event with a
// warning rather than blocking the Orchestrator's turn loop.
func (b *Bus) Emit(event entity.Event) {
	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return
	}
	b.mu.RUnlock()

	select {
	case b.eventCh <- event:
	default:
		b.logger.Warn("event buffer full, dropping event", zap.String("kind", string(event.Kind)))
	}
}

// Subscribe registers a handler invoked for every subsequently dispatched
// event. Handlers run sequentially on the dispatch goroutine; a handler
// that blocks stalls the bus for everyone — keep them fast or hand off.
func (b *Bus) Subscribe(sub Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers = append(b.subscribers, sub)
}

// Close drains and stops the dispatch goroutine.
func (b *Bus) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	close(b.eventCh)
	b.mu.Unlock()

	b.wg.Wait()
}

func (b *Bus) dispatch() {
	defer b.wg.Done()
	for event := range b.eventCh {
		b.mu.RLock()
		subs := make([]Subscriber, len(b.subscribers))
		copy(subs, b.subscribers)
		b.mu.RUnlock()

		for _, sub := range subs {
			sub(event)
		}
	}
}
