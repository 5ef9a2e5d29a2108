package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/budaic/i-know-where-you-live/internal/tracker"
)

type SessionHandler interface {
	GetAllSessions(c *gin.Context)
	GetSessionStatus(c *gin.Context)
	RecoverSession(c *gin.Context)
	StopSession(c *gin.Context)
}

type sessionHandler struct {
	registry *tracker.Registry
	logger   *zap.Logger
}

func NewSessionHandler(registry *tracker.Registry, logger *zap.Logger) SessionHandler {
	return &sessionHandler{registry: registry, logger: logger}
}

// GetAllSessions handles GET /api/profiles/sessions
func (h *sessionHandler) GetAllSessions(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"sessions": h.registry.Sessions()})
}

// GetSessionStatus handles GET /api/profiles/sessions/:id. The source field
// tells the client whether the session is live or only recoverable from the
// durable store.
func (h *sessionHandler) GetSessionStatus(c *gin.Context) {
	id := c.Param("id")
	session, source := h.registry.SessionWithSource(id)
	if session == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"session": session, "source": source})
}

// StopSession handles DELETE /api/profiles/sessions/:id. The background
// search keeps running and its profile is still saved; only live tracking
// for this session stops.
func (h *sessionHandler) StopSession(c *gin.Context) {
	id := c.Param("id")
	if !h.registry.StopSession(id) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
		return
	}
	h.logger.Info("Session stopped", zap.String("session_id", id))
	c.JSON(http.StatusOK, gin.H{"message": "Session stopped"})
}

// RecoverSession handles POST /api/profiles/sessions/:id/recover. Recovery only
// applies to in-flight sessions; for completed or unknown sessions the
// client should fall back to the profile list.
func (h *sessionHandler) RecoverSession(c *gin.Context) {
	id := c.Param("id")
	session := h.registry.Recover(id)
	if session == nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error":       "No recoverable session",
			"recoverable": false,
		})
		return
	}
	h.logger.Info("Session recovered", zap.String("session_id", id))
	c.JSON(http.StatusOK, gin.H{
		"recoverable": true,
		"session":     session,
	})
}
