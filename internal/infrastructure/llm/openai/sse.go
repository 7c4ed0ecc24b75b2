package openai

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

// toolCallAccumulator accumulates one tool call's streamed fragments,
// keyed by its delta index rather than its id — the id and name may
// arrive split across chunks or not at all until the final fragment.
type toolCallAccumulator struct {
	id   string
	name string
	args strings.Builder
}

// idleTimeout bounds L2 of the three-tier termination protection: break on
// finish_reason (L1) without waiting for [DONE] (some backends never send
// it), an idle read timeout (L2) for stalled connections, and the
// caller's own context deadline (L3).
const idleTimeout = 60 * time.Second

// ParseSSEStream decodes an OpenAI-compatible text/event-stream body,
// driving handlers as deltas arrive and returning the assembled final
// response. streamStarted reports whether any delta was emitted, which
// the transport layer uses to forbid retrying a partially-consumed
// stream (§4.3 Open Question iii).
func ParseSSEStream(reader io.Reader, handlers service.StreamHandlers, logger *zap.Logger) (resp service.LLMResponse, streamStarted bool, err error) {
	tReader := &timedReader{r: reader, timeout: idleTimeout}
	scanner := bufio.NewScanner(tReader)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var content strings.Builder
	toolCalls := map[int]*toolCallAccumulator{}
	var finishReason string
	var usage entity.Usage

	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		data := strings.TrimPrefix(line, "data: ")
		if data == "[DONE]" {
			break
		}

		var chunk StreamChunk
		if jsonErr := json.Unmarshal([]byte(data), &chunk); jsonErr != nil {
			logger.Debug("skip unparseable SSE chunk", zap.Error(jsonErr))
			continue
		}

		if chunk.Usage != nil {
			usage = toEntityUsage(*chunk.Usage)
		}

		if len(chunk.Choices) == 0 {
			continue
		}
		choice := chunk.Choices[0]

		if choice.Delta.Content != "" {
			streamStarted = true
			content.WriteString(choice.Delta.Content)
			if handlers.OnChunk != nil {
				handlers.OnChunk(choice.Delta.Content)
			}
		}

		for _, tc := range choice.Delta.ToolCalls {
			streamStarted = true
			acc, ok := toolCalls[tc.Index]
			if !ok {
				acc = &toolCallAccumulator{}
				toolCalls[tc.Index] = acc
			}
			if tc.ID != "" {
				acc.id = tc.ID
			}
			if tc.Function.Name != "" {
				acc.name = tc.Function.Name
			}
			acc.args.WriteString(tc.Function.Arguments)
			if handlers.OnToolCallDelta != nil {
				handlers.OnToolCallDelta(tc.Index, tc.ID, tc.Function.Name, tc.Function.Arguments)
			}
		}

		if choice.FinishReason != nil {
			finishReason = *choice.FinishReason
			break // L1: don't wait for [DONE]
		}
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

func toEntityUsage(u Usage) entity.Usage {
	out := entity.Usage{
		PromptTokens:     u.PromptTokens,
		CompletionTokens: u.CompletionTokens,
		TotalTokens:      u.TotalTokens,
	}
	if u.PromptDetails != nil {
		cached := u.PromptDetails.CachedTokens
		out.CachedPromptTokens = &cached
	}
	return out
}

var errIdleTimeout = fmt.Errorf("SSE read idle timeout")

// timedReader applies a per-Read deadline so a stalled connection surfaces
// as a distinguishable error instead of hanging forever.
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
