// Package http is the demo external interface from §6: a gin router
// exposing POST /conversations/{id}/messages (send + SSE-stream the
// Orchestrator's event feed for that turn) and GET /conversations/{id}/events
// (subscribe to the shared event bus for a conversation, independent of any
// in-flight Send call). Grounded on the teacher's interfaces/http/server.go
// and handlers/agent_handler.go's RunAgent SSE loop.
package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/marschhuynh/agentcore/internal/domain/service"
	"github.com/marschhuynh/agentcore/internal/infrastructure/eventbus"
	"github.com/marschhuynh/agentcore/internal/infrastructure/monitoring"
)

// Server wraps the net/http.Server gin builds.
type Server struct {
	server *http.Server
	logger *zap.Logger
}

// Config configures the HTTP interface (§6).
type Config struct {
	Host string
	Port int
	Mode string // debug, release
}

// NewServer builds the router and the underlying http.Server.
func NewServer(cfg Config, orch *service.Orchestrator, bus *eventbus.Bus, monitor *monitoring.Monitor, logger *zap.Logger) *Server {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(ginLogger(logger))

	h := &conversationHandler{orch: orch, bus: bus, logger: logger.With(zap.String("handler", "conversation"))}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "time": time.Now().Unix()})
	})
	router.GET("/metrics", func(c *gin.Context) {
		c.JSON(http.StatusOK, monitor.Snapshot())
	})

	v1 := router.Group("/conversations")
	{
		v1.POST("/:id/messages", h.SendMessage)
		v1.GET("/:id/events", h.StreamEvents)
	}

	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	return &Server{
		server: &http.Server{Addr: addr, Handler: router},
		logger: logger,
	}
}

// Start runs the server in the background; ListenAndServe errors other
// than a clean shutdown are logged, not returned, matching the teacher's
// fire-and-forget Start/Stop pair.
func (s *Server) Start(ctx context.Context) error {
	s.logger.Info("starting HTTP server", zap.String("address", s.server.Addr))
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("HTTP server error", zap.Error(err))
		}
	}()
	return nil
}

// Stop gracefully shuts the server down.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("stopping HTTP server")
	return s.server.Shutdown(ctx)
}

func ginLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		c.Next()
		logger.Info("http request",
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("ip", c.ClientIP()),
		)
	}
}
