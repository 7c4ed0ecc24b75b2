package openai

import (
	"encoding/json"
	"testing"

	"github.com/marschhuynh/agentcore/internal/domain/entity"
	"github.com/marschhuynh/agentcore/internal/domain/service"
	domaintool "github.com/marschhuynh/agentcore/internal/domain/tool"
)

func TestBuildRequestStripsProviderPrefixFromModel(t *testing.T) {
	req := BuildRequest(service.LLMParams{Model: "openrouter/anthropic/claude"}, false)
	if req.Model != "anthropic/claude" {
		t.Fatalf("got %q", req.Model)
	}
}

func TestBuildRequestWithoutCachingUsesPlainContent(t *testing.T) {
	params := service.LLMParams{
		Model:    "gpt-5",
		Messages: []service.LLMMessage{{Role: entity.RoleUser, Content: "hello"}},
	}
	req := BuildRequest(params, false)

	var text string
	if err := json.Unmarshal(req.Messages[0].Content, &text); err != nil {
		t.Fatalf("expected a plain string content, got %s: %v", req.Messages[0].Content, err)
	}
	if text != "hello" {
		t.Fatalf("got %q", text)
	}
}

func TestBuildRequestWithCachingAnnotatesLastSystemAndRecentTurns(t *testing.T) {
	params := service.LLMParams{
		Model: "gpt-5",
		Messages: []service.LLMMessage{
			{Role: entity.RoleSystem, Content: "identity"},
			{Role: entity.RoleUser, Content: "turn 1"},
			{Role: entity.RoleAssistant, Content: "reply 1"},
			{Role: entity.RoleUser, Content: "turn 2"},
		},
	}
	req := BuildRequest(params, true)

	var sysBlocks []ContentBlock
	if err := json.Unmarshal(req.Messages[0].Content, &sysBlocks); err != nil {
		t.Fatalf("expected the system message to be annotated as blocks: %v", err)
	}
	if sysBlocks[0].CacheControl == nil {
		t.Fatal("expected the system message to carry a cache_control marker")
	}

	var reply1Blocks []ContentBlock
	if err := json.Unmarshal(req.Messages[2].Content, &reply1Blocks); err != nil {
		t.Fatal("expected reply 1 (among the last two user/assistant messages) to be annotated")
	}
	_ = reply1Blocks
}

func TestBuildRequestConvertsToolDefinitions(t *testing.T) {
	params := service.LLMParams{
		Model: "gpt-5",
		Tools: []domaintool.Definition{{Name: "echo", Description: "echoes", JSONSchemaForArguments: nil}},
	}
	req := BuildRequest(params, false)

	if len(req.Tools) != 1 || req.Tools[0].Function.Name != "echo" {
		t.Fatalf("got %+v", req.Tools)
	}
	if req.Tools[0].Function.Parameters["type"] != "object" {
		t.Fatalf("expected ConvertSchema to default type=object, got %+v", req.Tools[0].Function.Parameters)
	}
}

func TestBuildRequestCarriesToolCallsOnAssistantMessage(t *testing.T) {
	params := service.LLMParams{
		Model: "gpt-5",
		Messages: []service.LLMMessage{
			{Role: entity.RoleAssistant, ToolCalls: []entity.ToolCall{{ID: "1", Name: "echo", ArgumentsJSON: `{"s":"x"}`}}},
		},
	}
	req := BuildRequest(params, false)

	if len(req.Messages[0].ToolCalls) != 1 || req.Messages[0].ToolCalls[0].Function.Name != "echo" {
		t.Fatalf("got %+v", req.Messages[0].ToolCalls)
	}
}

func TestConvertSchemaDefaultsWhenNil(t *testing.T) {
	out := ConvertSchema(nil)
	if out["type"] != "object" {
		t.Fatalf("got %+v", out)
	}
}

func TestConvertSchemaPreservesExistingType(t *testing.T) {
	out := ConvertSchema(map[string]any{"type": "string"})
	if out["type"] != "string" {
		t.Fatalf("got %+v", out)
	}
}
