// Package monitoring provides the concrete MetricsSink (§6): atomic
// counters and latency sums, sampled without locking the hot path.
// Grounded on the teacher's infrastructure/monitoring.Monitor, narrowed
// from its general request/tool/session/token counter set down to the two
// calls service.MetricsSink defines: per-turn and per-tool-call recording.
package monitoring

import (
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/marschhuynh/agentcore/internal/domain/entity"
	"github.com/marschhuynh/agentcore/internal/domain/service"
)

// Monitor accumulates turn and tool-call counters in process memory.
type Monitor struct {
	logger *zap.Logger

	turnsTotal    uint64
	turnsFailed   uint64
	turnLatencySum uint64 // ms
	promptTokens  uint64
	completionTokens uint64

	toolCallsTotal   uint64
	toolCallsSuccess uint64
	toolCallsFailed  uint64
	toolLatencySum   uint64 // ms

	startTime time.Time
}

func New(logger *zap.Logger) *Monitor {
	return &Monitor{logger: logger, startTime: time.Now()}
}

var _ service.MetricsSink = (*Monitor)(nil)

// RecordTurn implements service.MetricsSink.
func (m *Monitor) RecordTurn(conversationID string, usage entity.Usage, durationMs int64, failed bool) {
	atomic.AddUint64(&m.turnsTotal, 1)
	if failed {
		atomic.AddUint64(&m.turnsFailed, 1)
	}
	atomic.AddUint64(&m.turnLatencySum, uint64(durationMs))
	atomic.AddUint64(&m.promptTokens, uint64(usage.PromptTokens))
	atomic.AddUint64(&m.completionTokens, uint64(usage.CompletionTokens))

	m.logger.Debug("turn recorded",
		zap.String("conversation_id", conversationID),
		zap.Int64("duration_ms", durationMs),
		zap.Bool("failed", failed),
		zap.Int("total_tokens", usage.TotalTokens),
	)
}

// RecordToolCall implements service.MetricsSink.
func (m *Monitor) RecordToolCall(name string, durationMs int64, succeeded bool) {
	atomic.AddUint64(&m.toolCallsTotal, 1)
	if succeeded {
		atomic.AddUint64(&m.toolCallsSuccess, 1)
	} else {
		atomic.AddUint64(&m.toolCallsFailed, 1)
	}
	atomic.AddUint64(&m.toolLatencySum, uint64(durationMs))

	m.logger.Debug("tool call recorded",
		zap.String("tool", name),
		zap.Int64("duration_ms", durationMs),
		zap.Bool("succeeded", succeeded),
	)
}

// Snapshot is a point-in-time read of the accumulated counters, exposed
// for the HTTP interface's /metrics-style endpoint.
type Snapshot struct {
	UptimeSeconds     float64
	TurnsTotal        uint64
	TurnsFailed       uint64
	AvgTurnLatencyMs  float64
	PromptTokens      uint64
	CompletionTokens  uint64
	ToolCallsTotal    uint64
	ToolCallsSuccess  uint64
	ToolCallsFailed   uint64
	AvgToolLatencyMs  float64
}

func (m *Monitor) Snapshot() Snapshot {
	turns := atomic.LoadUint64(&m.turnsTotal)
	tools := atomic.LoadUint64(&m.toolCallsTotal)

	var avgTurn, avgTool float64
	if turns > 0 {
		avgTurn = float64(atomic.LoadUint64(&m.turnLatencySum)) / float64(turns)
	}
	if tools > 0 {
		avgTool = float64(atomic.LoadUint64(&m.toolLatencySum)) / float64(tools)
	}

	return Snapshot{
		UptimeSeconds:    time.Since(m.startTime).Seconds(),
		TurnsTotal:       turns,
		TurnsFailed:      atomic.LoadUint64(&m.turnsFailed),
		AvgTurnLatencyMs: avgTurn,
		PromptTokens:     atomic.LoadUint64(&m.promptTokens),
		CompletionTokens: atomic.LoadUint64(&m.completionTokens),
		ToolCallsTotal:   tools,
		ToolCallsSuccess: atomic.LoadUint64(&m.toolCallsSuccess),
		ToolCallsFailed:  atomic.LoadUint64(&m.toolCallsFailed),
		AvgToolLatencyMs: avgTool,
	}
}
