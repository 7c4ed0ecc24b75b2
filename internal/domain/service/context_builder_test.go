package service

import (
	"strings"
	"testing"

	"github.com/marschhuynh/agentcore/internal/domain/valueobject"
)

func TestBuildPrefixIncludesIdentitySystemPromptAndReminderInOrder(t *testing.T) {
	b := NewContextBuilder("you are a test agent")
	cfg := valueobject.DefaultAgentConfig("a1", "gpt-5").WithSystemPrompt("be terse")

	msgs := b.BuildPrefix(cfg, TurnHint{CurrentTime: "2026-07-31T00:00:00Z", WorkingDir: "/work"})

	if len(msgs) != 3 {
		t.Fatalf("got %d messages, want 3", len(msgs))
	}
	if msgs[0].Content() != "you are a test agent" {
		t.Fatalf("identity message got %q", msgs[0].Content())
	}
	if msgs[1].Content() != "be terse" {
		t.Fatalf("system prompt message got %q", msgs[1].Content())
	}
	if !strings.Contains(msgs[2].Content(), "2026-07-31T00:00:00Z") || !strings.Contains(msgs[2].Content(), "/work") {
		t.Fatalf("reminder missing runtime hint: %q", msgs[2].Content())
	}
}

func TestBuildPrefixOmitsReminderWhenHintEmpty(t *testing.T) {
	b := NewContextBuilder("you are a test agent")
	cfg := valueobject.DefaultAgentConfig("a1", "gpt-5")

	msgs := b.BuildPrefix(cfg, TurnHint{})
	if len(msgs) != 1 {
		t.Fatalf("got %d messages, want 1 (identity only)", len(msgs))
	}
}

func TestBuildPrefixOmitsIdentityWhenBuilderHasNone(t *testing.T) {
	b := NewContextBuilder("")
	cfg := valueobject.DefaultAgentConfig("a1", "gpt-5").WithSystemPrompt("be terse")

	msgs := b.BuildPrefix(cfg, TurnHint{})
	if len(msgs) != 1 || msgs[0].Content() != "be terse" {
		t.Fatalf("got %+v", msgs)
	}
}

func TestBuildReminderIncludesChannel(t *testing.T) {
	reminder := buildReminder(TurnHint{Channel: "#ops"})
	if !strings.Contains(reminder, "#ops") {
		t.Fatalf("got %q", reminder)
	}
}
