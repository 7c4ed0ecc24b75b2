package eventbus

import (
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/marschhuynh/agentcore/internal/domain/entity"
)

func TestBusDeliversToSubscriber(t *testing.T) {
	bus := New(zap.NewNop(), 8)
	defer bus.Close()

	var mu sync.Mutex
	var got []entity.Event
	done := make(chan struct{})
	bus.Subscribe(func(e entity.Event) {
		mu.Lock()
		got = append(got, e)
		mu.Unlock()
		if e.Kind == entity.EventDone {
			close(done)
		}
	})

	bus.Emit(entity.Event{Kind: entity.EventMessageStarted, ConversationID: "c1"})
	bus.Emit(entity.Event{Kind: entity.EventDone, ConversationID: "c1"})

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for dispatch")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(got) != 2 {
		t.Fatalf("got %d events, want 2", len(got))
	}
}

func TestBusFansOutToMultipleSubscribers(t *testing.T) {
	bus := New(zap.NewNop(), 8)
	defer bus.Close()

	var wg sync.WaitGroup
	wg.Add(2)
	bus.Subscribe(func(entity.Event) { wg.Done() })
	bus.Subscribe(func(entity.Event) { wg.Done() })

	bus.Emit(entity.Event{Kind: entity.EventDone})

	waitWithTimeout(t, &wg, time.Second)
}

func TestBusEmitAfterCloseIsNoop(t *testing.T) {
	bus := New(zap.NewNop(), 1)
	bus.Close()
	// Must not panic: a closed bus silently drops emitted events.
	bus.Emit(entity.Event{Kind: entity.EventDone})
}

func TestBusDropsWhenBufferFull(t *testing.T) {
	bus := New(zap.NewNop(), 1)
	defer bus.Close()

	block := make(chan struct{})
	released := make(chan struct{})
	var once sync.Once
	bus.Subscribe(func(entity.Event) {
		<-block
		once.Do(func() { close(released) })
	})

	// First event occupies the dispatch goroutine inside the subscriber.
	bus.Emit(entity.Event{Kind: entity.EventMessageStarted})
	time.Sleep(20 * time.Millisecond)
	// Second and third fill/overflow the size-1 buffer; Emit must not block.
	bus.Emit(entity.Event{Kind: entity.EventAssistantChunk})
	bus.Emit(entity.Event{Kind: entity.EventDone})

	close(block)
	select {
	case <-released:
	case <-time.After(time.Second):
		t.Fatal("dispatch goroutine appears stuck")
	}
}

func waitWithTimeout(t *testing.T, wg *sync.WaitGroup, timeout time.Duration) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(timeout):
		t.Fatal("timed out waiting for subscribers")
	}
}
