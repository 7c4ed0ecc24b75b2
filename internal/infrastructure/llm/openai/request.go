package openai

import (
	"strings"

	"github.com/marschhuynh/agentcore/internal/domain/entity"
	"github.com/marschhuynh/agentcore/internal/domain/service"
)

// BuildRequest converts the wire-agnostic params into the OpenAI request
// shape, applying the §4.3 cache_control annotation pass on a fresh copy
// when caching is enabled — the caller's params.Messages are never
// mutated.
func BuildRequest(params service.LLMParams, promptCaching bool) *Request {
	model := params.Model
	if idx := strings.Index(model, "/"); idx >= 0 {
		model = model[idx+1:]
	}

	req := &Request{
		Model:       model,
		Temperature: params.Temperature,
		TopP:        params.TopP,
		MaxTokens:   params.MaxTokens,
	}

	targets := map[int]bool{}
	if promptCaching {
		targets = annotationTargets(params.Messages)
	}

	for i, msg := range params.Messages {
		req.Messages = append(req.Messages, buildMessage(msg, targets[i]))
	}

	for _, td := range params.Tools {
		req.Tools = append(req.Tools, Tool{
			Type: "function",
			Function: ToolFunction{
				Name:        td.Name,
				Description: td.Description,
				Parameters:  ConvertSchema(td.JSONSchemaForArguments),
			},
		})
	}

	return req
}

func buildMessage(msg service.LLMMessage, annotate bool) Message {
	out := Message{
		Role:       string(msg.Role),
		ToolCallID: msg.ToolCallID,
	}

	text := msg.Content
	if len(msg.Parts) > 0 {
		text = msg.Parts[len(msg.Parts)-1].Text
	}
	if text != "" || len(msg.ToolCalls) == 0 {
		if annotate {
			out.Content = AnnotatedContent(text)
		} else {
			out.Content = PlainContent(text)
		}
	}

	for _, tc := range msg.ToolCalls {
		out.ToolCalls = append(out.ToolCalls, ToolCall{
			ID:   tc.ID,
			Type: "function",
			Function: ToolCallFunc{
				Name:      tc.Name,
				Arguments: tc.ArgumentsJSON,
			},
		})
	}

	return out
}

// annotationTargets implements §4.3's rule: the last content part of each
// of the first two system messages, and the last two user/assistant
// messages.
func annotationTargets(messages []service.LLMMessage) map[int]bool {
	targets := map[int]bool{}

	sysSeen := 0
	for i, m := range messages {
		if m.Role == entity.RoleSystem {
			sysSeen++
			if sysSeen <= 2 {
				targets[i] = true
			}
		}
	}

	found := 0
	for i := len(messages) - 1; i >= 0 && found < 2; i-- {
		if messages[i].Role == entity.RoleUser || messages[i].Role == entity.RoleAssistant {
			targets[i] = true
			found++
		}
	}

	return targets
}
