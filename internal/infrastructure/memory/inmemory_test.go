package memory

import (
	"context"
	"sync"
	"testing"

	"github.com/marschhuynh/agentcore/internal/domain/entity"
)

func TestInMemoryPortAppendAndGet(t *testing.T) {
	p := NewInMemoryPort()
	ctx := context.Background()

	m1 := entity.NewUserMessage("c1", "hello")
	m2 := entity.NewAssistantMessage("c1", "hi there", nil, nil)

	if err := p.Append(ctx, "c1", []*entity.Message{m1}); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := p.Append(ctx, "c1", []*entity.Message{m2}); err != nil {
		t.Fatalf("Append: %v", err)
	}

	got, err := p.Get(ctx, "c1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(got) != 2 || got[0].Content() != "hello" || got[1].Content() != "hi there" {
		t.Fatalf("unexpected messages: %+v", got)
	}
}

func TestInMemoryPortGetUnknownConversationIsEmpty(t *testing.T) {
	p := NewInMemoryPort()
	got, err := p.Get(context.Background(), "missing")
	if err != nil || len(got) != 0 {
		t.Fatalf("got=%v err=%v", got, err)
	}
}

func TestInMemoryPortClearRemovesConversation(t *testing.T) {
	p := NewInMemoryPort()
	ctx := context.Background()
	_ = p.Append(ctx, "c1", []*entity.Message{entity.NewUserMessage("c1", "x")})

	if err := p.Clear(ctx, "c1"); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	got, _ := p.Get(ctx, "c1")
	if len(got) != 0 {
		t.Fatalf("expected empty after clear, got %v", got)
	}
}

func TestInMemoryPortGetReturnsACopyNotTheBackingSlice(t *testing.T) {
	p := NewInMemoryPort()
	ctx := context.Background()
	_ = p.Append(ctx, "c1", []*entity.Message{entity.NewUserMessage("c1", "x")})

	got, _ := p.Get(ctx, "c1")
	got[0] = entity.NewUserMessage("c1", "mutated")

	again, _ := p.Get(ctx, "c1")
	if again[0].Content() != "x" {
		t.Fatalf("mutation of Get's result leaked into storage: %q", again[0].Content())
	}
}

func TestInMemoryPortConcurrentAppendsLoseNoWrites(t *testing.T) {
	p := NewInMemoryPort()
	ctx := context.Background()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		id := "c1"
		if i%2 == 0 {
			id = "c2"
		}
		go func(id string) {
			defer wg.Done()
			_ = p.Append(ctx, id, []*entity.Message{entity.NewUserMessage(id, "x")})
		}(id)
	}
	wg.Wait()

	c1, _ := p.Get(ctx, "c1")
	c2, _ := p.Get(ctx, "c2")
	if len(c1)+len(c2) != 20 {
		t.Fatalf("lost writes: c1=%d c2=%d", len(c1), len(c2))
	}
}
