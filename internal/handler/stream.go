package handler

import (
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/budaic/i-know-where-you-live/internal/tracker"
)

// heartbeatInterval keeps idle SSE connections alive through proxies.
const heartbeatInterval = 15 * time.Second

type StreamHandler interface {
	StreamSession(c *gin.Context)
}

type streamHandler struct {
	registry *tracker.Registry
	logger   *zap.Logger
}

func NewStreamHandler(registry *tracker.Registry, logger *zap.Logger) StreamHandler {
	return &streamHandler{registry: registry, logger: logger}
}

// StreamSession handles GET /api/profiles/create/stream/:sessionId, pushing
// progress events over SSE until the session finishes or the client disconnects.
func (h *streamHandler) StreamSession(c *gin.Context) {
	id := c.Param("sessionId")
	session := h.registry.Session(id)
	if session == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
		return
	}

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	updates := h.registry.Subscribe(id)
	defer h.registry.Unsubscribe(id, updates)

	h.logger.Info("SSE stream opened", zap.String("session_id", id))

	// Current state first so late subscribers don't start blind.
	c.SSEvent("connected", session)
	c.Writer.Flush()

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	c.Stream(func(w io.Writer) bool {
		select {
		case update, ok := <-updates:
			if !ok {
				return false
			}
			c.SSEvent("progress", update)
			return true
		case <-heartbeat.C:
			c.SSEvent("heartbeat", gin.H{"timestamp": time.Now()})
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})

	h.logger.Info("SSE stream closed", zap.String("session_id", id))
}
