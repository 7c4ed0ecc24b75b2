// Package openai is the OpenAI-compatible provider adapter (§4.3):
// OpenAI itself, OpenRouter, DeepInfra, Z.ai, Moonshot, and (with the
// Copilot flag) GitHub Copilot's Chat API. Grounded on the teacher's
// infrastructure/llm/openai package (provider.go, sse.go, types.go),
// generalized from a fixed single-backend client into a descriptor-driven
// adapter and extended with the cache_control annotation pass §4.3 adds.
package openai

import "encoding/json"

// Request is the OpenAI chat completions wire shape.
type Request struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Temperature float64   `json:"temperature,omitempty"`
	TopP        float64   `json:"top_p,omitempty"`
	Tools       []Tool    `json:"tools,omitempty"`
}

// StreamRequest wraps Request with the streaming flags.
type StreamRequest struct {
	*Request
	Stream        bool           `json:"stream"`
	StreamOptions *StreamOptions `json:"stream_options,omitempty"`
}

type StreamOptions struct {
	IncludeUsage bool `json:"include_usage"`
}

// Message is one chat message. Content is json.RawMessage so it can carry
// either a plain string or a []ContentBlock array when cache annotation is
// applied (§4.3).
type Message struct {
	Role       string          `json:"role"`
	Content    json.RawMessage `json:"content,omitempty"`
	ToolCalls  []ToolCall      `json:"tool_calls,omitempty"`
	ToolCallID string          `json:"tool_call_id,omitempty"`
}

// CacheControl is the ephemeral prompt-cache marker (§4.3).
type CacheControl struct {
	Type string `json:"type"`
}

// ContentBlock is one element of an array-shaped message content.
type ContentBlock struct {
	Type         string        `json:"type"`
	Text         string        `json:"text,omitempty"`
	CacheControl *CacheControl `json:"cache_control,omitempty"`
}

// PlainContent marshals content as a bare JSON string.
func PlainContent(text string) json.RawMessage {
	b, _ := json.Marshal(text)
	return b
}

// AnnotatedContent marshals content as a single text block carrying the
// ephemeral cache_control marker.
func AnnotatedContent(text string) json.RawMessage {
	b, _ := json.Marshal([]ContentBlock{{Type: "text", Text: text, CacheControl: &CacheControl{Type: "ephemeral"}}})
	return b
}

// contentText decodes an inbound message's content, which may be a plain
// string or an array of content blocks, into its concatenated text.
func contentText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var blocks []ContentBlock
	if err := json.Unmarshal(raw, &blocks); err == nil {
		var out string
		for _, b := range blocks {
			out += b.Text
		}
		return out
	}
	return ""
}

type Tool struct {
	Type     string       `json:"type"`
	Function ToolFunction `json:"function"`
}

type ToolFunction struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

type ToolCall struct {
	Index    int          `json:"index"`
	ID       string       `json:"id"`
	Type     string       `json:"type"`
	Function ToolCallFunc `json:"function"`
}

type ToolCallFunc struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

type Response struct {
	ID      string   `json:"id"`
	Model   string   `json:"model"`
	Choices []Choice `json:"choices"`
	Usage   Usage    `json:"usage"`
}

type Choice struct {
	Message      Message `json:"message"`
	FinishReason string  `json:"finish_reason"`
}

type Usage struct {
	PromptTokens     int             `json:"prompt_tokens"`
	CompletionTokens int             `json:"completion_tokens"`
	TotalTokens      int             `json:"total_tokens"`
	PromptDetails    *PromptDetails  `json:"prompt_tokens_details,omitempty"`
}

type PromptDetails struct {
	CachedTokens int `json:"cached_tokens"`
}

// --- Streaming types ---

type StreamChunk struct {
	Model   string         `json:"model"`
	Choices []StreamChoice `json:"choices"`
	Usage   *Usage         `json:"usage,omitempty"`
}

type StreamChoice struct {
	Delta        StreamDelta `json:"delta"`
	FinishReason *string     `json:"finish_reason"`
}

type StreamDelta struct {
	Content   string     `json:"content,omitempty"`
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`
}

// ModelList is the /models response shape.
type ModelList struct {
	Data []struct {
		ID string `json:"id"`
	} `json:"data"`
}

// ConvertSchema ensures a tool parameter schema has a "type" key.
func ConvertSchema(schema map[string]any) map[string]any {
	if schema == nil {
		return map[string]any{"type": "object", "properties": map[string]any{}}
	}
	out := make(map[string]any, len(schema))
	for k, v := range schema {
		out[k] = v
	}
	if _, ok := out["type"]; !ok {
		out["type"] = "object"
	}
	return out
}
