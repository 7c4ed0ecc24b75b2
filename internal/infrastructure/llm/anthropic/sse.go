package anthropic

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/marschhuynh/agentcore/internal/domain/entity"
	"github.com/marschhuynh/agentcore/internal/domain/service"
)

const idleTimeout = 60 * time.Second

type toolCallAccumulator struct {
	id   string
	name string
	args strings.Builder
}

// ParseSSEStream decodes Anthropic's typed event-stream format:
// message_start, content_block_start/delta/stop, message_delta,
// message_stop. Unlike OpenAI's index-only deltas, tool_use blocks carry
// their id and name at content_block_start; only the JSON fragments
// stream incrementally via input_json_delta.
func ParseSSEStream(reader io.Reader, handlers service.StreamHandlers, logger *zap.Logger) (resp service.LLMResponse, streamStarted bool, err error) {
	tReader := &timedReader{r: reader, timeout: idleTimeout}
	scanner := bufio.NewScanner(tReader)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var content strings.Builder
	toolCalls := map[int]*toolCallAccumulator{}
	var finishReason string
	var usage entity.Usage
	var eventType string

	for scanner.Scan() {
		line := scanner.Text()

		if strings.HasPrefix(line, "event: ") {
			eventType = strings.TrimPrefix(line, "event: ")
			continue
		}
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		data := strings.TrimPrefix(line, "data: ")

		switch eventType {
		case "message_start":
			var evt StreamEvent
			if jsonErr := json.Unmarshal([]byte(data), &evt); jsonErr == nil && evt.Message != nil {
				usage = toEntityUsage(evt.Message.Usage)
			}

		case "content_block_start":
			var evt StreamEvent
			if jsonErr := json.Unmarshal([]byte(data), &evt); jsonErr == nil && evt.ContentBlock != nil && evt.ContentBlock.Type == "tool_use" {
				toolCalls[evt.Index] = &toolCallAccumulator{id: evt.ContentBlock.ID, name: evt.ContentBlock.Name}
				streamStarted = true
				if handlers.OnToolCallDelta != nil {
					handlers.OnToolCallDelta(evt.Index, evt.ContentBlock.ID, evt.ContentBlock.Name, "")
				}
			}

		case "content_block_delta":
			var evt StreamEvent
			if jsonErr := json.Unmarshal([]byte(data), &evt); jsonErr != nil || evt.Delta == nil {
				continue
			}
			switch evt.Delta.Type {
			case "text_delta":
				if evt.Delta.Text != "" {
					streamStarted = true
					content.WriteString(evt.Delta.Text)
					if handlers.OnChunk != nil {
						handlers.OnChunk(evt.Delta.Text)
					}
				}
			case "input_json_delta":
				if acc, ok := toolCalls[evt.Index]; ok {
					acc.args.WriteString(evt.Delta.PartialJSON)
					if handlers.OnToolCallDelta != nil {
						handlers.OnToolCallDelta(evt.Index, "", "", evt.Delta.PartialJSON)
					}
				}
			}

		case "message_delta":
			var evt StreamEvent
			if jsonErr := json.Unmarshal([]byte(data), &evt); jsonErr == nil {
				if evt.Delta != nil && evt.Delta.StopReason != "" {
					finishReason = evt.Delta.StopReason
				}
				if evt.Usage != nil {
					usage = toEntityUsage(*evt.Usage)
				}
			}

		case "message_stop":
			// stream complete; loop exits on the next scan EOF
		}

		eventType = ""
	}

	if scanErr := scanner.Err(); scanErr != nil {
		if isIdleTimeoutErr(scanErr) {
			logger.Warn("SSE stream idle timeout", zap.Duration("idle_timeout", idleTimeout))
			if content.Len() == 0 && len(toolCalls) == 0 {
				return service.LLMResponse{}, streamStarted, fmt.Errorf("SSE stream stalled: no data for %v", idleTimeout)
			}
		} else {
			return service.LLMResponse{}, streamStarted, fmt.Errorf("SSE scan error: %w", scanErr)
		}
	}

	resp = service.LLMResponse{
		Content:      content.String(),
		FinishReason: finishReason,
		Usage:        usage,
	}

	for i := 0; i < len(toolCalls); i++ {
		acc, ok := toolCalls[i]
		if !ok {
			continue
		}
		resp.ToolCalls = append(resp.ToolCalls, entity.ToolCall{
			ID:            acc.id,
			Name:          acc.name,
			ArgumentsJSON: acc.args.String(),
		})
	}

	if handlers.OnFinish != nil {
		handlers.OnFinish(resp)
	}

	return resp, streamStarted, nil
}

// toEntityUsage applies §4.3's prompt-token normalization at the adapter
// edge: Anthropic reports input_tokens (fresh only) and
// cache_read_input_tokens separately, so prompt_tokens must be their sum
// for invariant P5 (prompt_tokens >= cachedPromptTokens) to hold.
func toEntityUsage(u Usage) entity.Usage {
	cached := u.CacheReadInputTokens
	return entity.Usage{
		PromptTokens:       u.InputTokens + u.CacheReadInputTokens,
		CompletionTokens:   u.OutputTokens,
		CachedPromptTokens: &cached,
	}
}

var errIdleTimeout = fmt.Errorf("SSE read idle timeout")

type timedReader struct {
	r       io.Reader
	timeout time.Duration
}

func (t *timedReader) Read(p []byte) (int, error) {
	type result struct {
		n   int
		err error
	}
	ch := make(chan result, 1)
	go func() {
		n, err := t.r.Read(p)
		ch <- result{n, err}
	}()
	select {
	case res := <-ch:
		return res.n, res.err
	case <-time.After(t.timeout):
		return 0, errIdleTimeout
	}
}

func isIdleTimeoutErr(err error) bool {
	return err != nil && strings.Contains(err.Error(), "SSE read idle timeout")
}
