package service

import (
	"fmt"

	"github.com/marschhuynh/agentcore/internal/domain/entity"
	"github.com/marschhuynh/agentcore/internal/domain/valueobject"
)

// TurnHint carries the purely informational fields a caller may supply
// for the current turn (current time, working directory). The Context
// Builder performs no I/O itself; gathering these values is the caller's
// job, grounded on the teacher's prompt.RuntimeBlockOptions.
type TurnHint struct {
	CurrentTime string
	WorkingDir  string
	Channel     string
}

// ContextBuilder assembles the prefix prepended to conversation history
// (§4.2): core-identity system message → user-configured system prompt →
// reminders. It is a pure function of its inputs.
type ContextBuilder struct {
	identity string
}

// NewContextBuilder takes the fixed core-identity preamble every agent
// carries regardless of its configured system prompt.
func NewContextBuilder(identity string) *ContextBuilder {
	return &ContextBuilder{identity: identity}
}

// BuildPrefix returns the system/reminder messages to prepend to history.
func (b *ContextBuilder) BuildPrefix(cfg valueobject.AgentConfig, hint TurnHint) []*entity.Message {
	var prefix []*entity.Message

	if b.identity != "" {
		prefix = append(prefix, entity.NewSystemMessage(b.identity))
	}
	if cfg.SystemPrompt != "" {
		prefix = append(prefix, entity.NewSystemMessage(cfg.SystemPrompt))
	}

	if reminder := buildReminder(hint); reminder != "" {
		prefix = append(prefix, entity.NewSystemMessage(reminder))
	}

	return prefix
}

// buildReminder renders a short system-role note — the spec's example is
// date/working directory — from purely factual, caller-supplied values.
func buildReminder(hint TurnHint) string {
	if hint.CurrentTime == "" && hint.WorkingDir == "" && hint.Channel == "" {
		return ""
	}
	reminder := "## Runtime\n"
	if hint.CurrentTime != "" {
		reminder += fmt.Sprintf("- Time: %s\n", hint.CurrentTime)
	}
	if hint.WorkingDir != "" {
		reminder += fmt.Sprintf("- Working directory: %s\n", hint.WorkingDir)
	}
	if hint.Channel != "" {
		reminder += fmt.Sprintf("- Channel: %s\n", hint.Channel)
	}
	return reminder
}
