package service

import "github.com/marschhuynh/agentcore/internal/domain/entity"

// EventSink is the fan-out port for the conversation event stream (§6).
// Handlers MUST NOT block the turn loop; implementations (see
// infrastructure/eventbus) dispatch asynchronously.
type EventSink interface {
	Emit(event entity.Event)
}

// NopEventSink discards every event; used when a caller doesn't want one.
type NopEventSink struct{}

func (NopEventSink) Emit(entity.Event) {}

// MetricsSink is the additive-monoid usage/latency aggregation port (§5,
// §6). Implementations use atomic counters; see infrastructure/monitoring.
type MetricsSink interface {
	RecordTurn(conversationID string, usage entity.Usage, durationMs int64, failed bool)
	RecordToolCall(name string, durationMs int64, succeeded bool)
}

// NopMetricsSink discards every observation.
type NopMetricsSink struct{}

func (NopMetricsSink) RecordTurn(string, entity.Usage, int64, bool) {}
func (NopMetricsSink) RecordToolCall(string, int64, bool)           {}
