package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/marschhuynh/agentcore/internal/domain/entity"
	"github.com/marschhuynh/agentcore/internal/domain/service"
	"github.com/marschhuynh/agentcore/internal/domain/tool"
	"github.com/marschhuynh/agentcore/internal/infrastructure/eventbus"
)

type conversationHandler struct {
	orch   *service.Orchestrator
	bus    *eventbus.Bus
	logger *zap.Logger
}

// sendRequest is the JSON body for POST /conversations/{id}/messages.
type sendRequest struct {
	Message string `json:"message" binding:"required"`
}

// sseEvent is the wire shape every event is rendered as.
type sseEvent struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// SendMessage runs one turn and streams its event feed as SSE, closing the
// stream once the Orchestrator returns (§4.1, §6).
func (h *conversationHandler) SendMessage(c *gin.Context) {
	conversationID := c.Param("id")

	var req sendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("X-Accel-Buffering", "no")
	c.Writer.WriteHeader(http.StatusOK)

	sub := newRequestSubscriber(conversationID)
	h.bus.Subscribe(sub.receive)
	defer sub.stop()

	ctx := c.Request.Context()
	flusher, _ := c.Writer.(http.Flusher)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, err := h.orch.Send(ctx, conversationID, req.Message, service.SendOptions{
			Stream:           true,
			CancellationCtx:  ctx,
			ApprovalCallback: tool.AlwaysApprove,
		})
		if err != nil {
			h.logger.Warn("turn failed", zap.String("conversation_id", conversationID), zap.Error(err))
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-done:
			h.flushRemaining(sub, c.Writer, flusher)
			return
		case event := <-sub.events:
			writeSSE(c.Writer, flusher, toSSEEvent(event))
		}
	}
}

// flushRemaining drains any events emitted between the Orchestrator
// returning and this goroutine noticing — Emit is asynchronous relative to
// Send's return, so a handful of events can still be in flight.
func (h *conversationHandler) flushRemaining(sub *requestSubscriber, w http.ResponseWriter, flusher http.Flusher) {
	for {
		select {
		case event := <-sub.events:
			writeSSE(w, flusher, toSSEEvent(event))
		default:
			return
		}
	}
}

// StreamEvents subscribes to the conversation's event feed independent of
// any particular Send call — useful for a second browser tab watching the
// same conversation.
func (h *conversationHandler) StreamEvents(c *gin.Context) {
	conversationID := c.Param("id")

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.WriteHeader(http.StatusOK)

	sub := newRequestSubscriber(conversationID)
	h.bus.Subscribe(sub.receive)
	defer sub.stop()

	ctx := c.Request.Context()
	flusher, _ := c.Writer.(http.Flusher)

	for {
		select {
		case <-ctx.Done():
			return
		case event := <-sub.events:
			writeSSE(c.Writer, flusher, toSSEEvent(event))
		}
	}
}

func writeSSE(w http.ResponseWriter, flusher http.Flusher, evt sseEvent) {
	data, _ := json.Marshal(evt.Data)
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", evt.Event, data)
	if flusher != nil {
		flusher.Flush()
	}
}

func toSSEEvent(event entity.Event) sseEvent {
	return sseEvent{Event: string(event.Kind), Data: event}
}

// requestSubscriber filters the bus's global event stream down to one
// conversation for the lifetime of a single HTTP request.
type requestSubscriber struct {
	conversationID string
	events         chan entity.Event

	mu      sync.Mutex
	stopped bool
}

func newRequestSubscriber(conversationID string) *requestSubscriber {
	return &requestSubscriber{conversationID: conversationID, events: make(chan entity.Event, 64)}
}

func (s *requestSubscriber) receive(event entity.Event) {
	if event.ConversationID != s.conversationID {
		return
	}
	s.mu.Lock()
	stopped := s.stopped
	s.mu.Unlock()
	if stopped {
		return
	}
	select {
	case s.events <- event:
	default:
	}
}

// stop marks the subscriber inert. The bus keeps a reference to receive
// for the rest of the process's life — there's no Unsubscribe — but after
// stop, receive becomes a no-op so a long-running server doesn't
// accumulate active per-request goroutines feeding closed handlers.
func (s *requestSubscriber) stop() {
	s.mu.Lock()
	s.stopped = true
	s.mu.Unlock()
}
