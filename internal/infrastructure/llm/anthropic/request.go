package anthropic

import (
	"encoding/json"
	"strings"

	"github.com/marschhuynh/agentcore/internal/domain/entity"
	"github.com/marschhuynh/agentcore/internal/domain/service"
)

const defaultMaxTokens = 8192 // Anthropic requires an explicit max_tokens

// BuildRequest converts the wire-agnostic params into Anthropic's native
// shape: system-role messages collapse into the top-level system field as
// content blocks, user/tool messages map onto "user" role, and the
// cache_control annotation pass (§4.3) runs on a fresh copy only — params
// itself is never mutated.
func BuildRequest(params service.LLMParams, promptCaching bool) *Request {
	model := params.Model
	if idx := strings.Index(model, "/"); idx >= 0 {
		model = model[idx+1:]
	}

	req := &Request{
		Model:     model,
		MaxTokens: params.MaxTokens,
	}
	if req.MaxTokens == 0 {
		req.MaxTokens = defaultMaxTokens
	}
	req.Temperature = params.Temperature

	var systemBlocks []ContentBlock
	sysSeen := 0
	userAssistantIdx := lastTwoUserAssistant(params.Messages)

	for i, msg := range params.Messages {
		switch msg.Role {
		case entity.RoleSystem:
			sysSeen++
			block := ContentBlock{Type: "text", Text: msg.Content}
			if promptCaching && sysSeen <= 2 {
				block.CacheControl = &CacheControl{Type: "ephemeral"}
			}
			systemBlocks = append(systemBlocks, block)

		case entity.RoleAssistant:
			var blocks []ContentBlock
			if msg.Content != "" {
				blocks = append(blocks, ContentBlock{Type: "text", Text: msg.Content})
			}
			for _, tc := range msg.ToolCalls {
				blocks = append(blocks, ContentBlock{Type: "tool_use", ID: tc.ID, Name: tc.Name, Input: decodeArgs(tc.ArgumentsJSON)})
			}
			if promptCaching && userAssistantIdx[i] && len(blocks) > 0 {
				blocks[len(blocks)-1].CacheControl = &CacheControl{Type: "ephemeral"}
			}
			if len(blocks) > 0 {
				req.Messages = append(req.Messages, Message{Role: "assistant", Content: blocks})
			}

		case entity.RoleTool:
			block := ContentBlock{Type: "tool_result", ToolUseID: msg.ToolCallID, Content: msg.Content}
			if promptCaching && userAssistantIdx[i] {
				block.CacheControl = &CacheControl{Type: "ephemeral"}
			}
			req.Messages = append(req.Messages, Message{Role: "user", Content: []ContentBlock{block}})

		default: // user
			block := ContentBlock{Type: "text", Text: msg.Content}
			if promptCaching && userAssistantIdx[i] {
				block.CacheControl = &CacheControl{Type: "ephemeral"}
			}
			req.Messages = append(req.Messages, Message{Role: "user", Content: []ContentBlock{block}})
		}
	}

	if len(systemBlocks) > 0 {
		b, _ := json.Marshal(systemBlocks)
		req.System = b
	}

	for _, td := range params.Tools {
		req.Tools = append(req.Tools, Tool{
			Name:        td.Name,
			Description: td.Description,
			InputSchema: ConvertSchema(td.JSONSchemaForArguments),
		})
	}

	return req
}

// lastTwoUserAssistant marks the last two user/assistant/tool messages
// (Anthropic maps tool results onto role "user") for cache annotation.
func lastTwoUserAssistant(messages []service.LLMMessage) map[int]bool {
	targets := map[int]bool{}
	found := 0
	for i := len(messages) - 1; i >= 0 && found < 2; i-- {
		r := messages[i].Role
		if r == entity.RoleUser || r == entity.RoleAssistant || r == entity.RoleTool {
			targets[i] = true
			found++
		}
	}
	return targets
}

func decodeArgs(argumentsJSON string) map[string]any {
	if argumentsJSON == "" {
		return map[string]any{}
	}
	var out map[string]any
	if err := json.Unmarshal([]byte(argumentsJSON), &out); err != nil {
		return map[string]any{}
	}
	return out
}
