package memory

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/marschhuynh/agentcore/internal/domain/entity"
)

func TestFilePortAppendAndGetRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conversations.json")
	p := NewFilePort(path)
	ctx := context.Background()

	toolCalls := []entity.ToolCall{{ID: "tc1", Name: "echo", ArgumentsJSON: `{"s":"x"}`}}
	msg := entity.NewAssistantMessage("c1", "", toolCalls, &entity.Usage{PromptTokens: 3, CompletionTokens: 2, TotalTokens: 5})

	if err := p.Append(ctx, "c1", []*entity.Message{msg}); err != nil {
		t.Fatalf("Append: %v", err)
	}

	got, err := p.Get(ctx, "c1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d messages, want 1", len(got))
	}
	if got[0].Role() != entity.RoleAssistant || len(got[0].ToolCalls()) != 1 {
		t.Fatalf("unexpected round-tripped message: %+v", got[0])
	}
	if got[0].Usage() == nil || got[0].Usage().TotalTokens != 5 {
		t.Fatalf("usage did not round-trip: %+v", got[0].Usage())
	}
}

func TestFilePortGetOnMissingFileIsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "does-not-exist.json")
	p := NewFilePort(path)

	got, err := p.Get(context.Background(), "c1")
	if err != nil || len(got) != 0 {
		t.Fatalf("got=%v err=%v", got, err)
	}
}

func TestFilePortPersistsAcrossPortInstances(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conversations.json")
	ctx := context.Background()

	first := NewFilePort(path)
	_ = first.Append(ctx, "c1", []*entity.Message{entity.NewUserMessage("c1", "hello")})

	second := NewFilePort(path)
	got, err := second.Get(ctx, "c1")
	if err != nil || len(got) != 1 || got[0].Content() != "hello" {
		t.Fatalf("got=%v err=%v", got, err)
	}
}

func TestFilePortClearRemovesOnlyTargetConversation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conversations.json")
	p := NewFilePort(path)
	ctx := context.Background()

	_ = p.Append(ctx, "c1", []*entity.Message{entity.NewUserMessage("c1", "a")})
	_ = p.Append(ctx, "c2", []*entity.Message{entity.NewUserMessage("c2", "b")})

	if err := p.Clear(ctx, "c1"); err != nil {
		t.Fatalf("Clear: %v", err)
	}

	c1, _ := p.Get(ctx, "c1")
	c2, _ := p.Get(ctx, "c2")
	if len(c1) != 0 {
		t.Fatalf("expected c1 cleared, got %v", c1)
	}
	if len(c2) != 1 {
		t.Fatalf("expected c2 untouched, got %v", c2)
	}
}
