package handler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/budaic/i-know-where-you-live/internal/models"
	"github.com/budaic/i-know-where-you-live/internal/profiler"
	"github.com/budaic/i-know-where-you-live/internal/repository"
)

type ProfileHandler interface {
	CreateProfiles(c *gin.Context)
	GetAllProfiles(c *gin.Context)
	GetProfileByID(c *gin.Context)
	DeleteProfile(c *gin.Context)
}

type profileHandler struct {
	service     *profiler.Service
	profileRepo repository.ProfileRepository
	logger      *zap.Logger
}

func NewProfileHandler(service *profiler.Service, profileRepo repository.ProfileRepository, logger *zap.Logger) ProfileHandler {
	return &profileHandler{service: service, profileRepo: profileRepo, logger: logger}
}

type createProfilesRequest struct {
	Subjects []struct {
		Name        string `json:"name" binding:"required"`
		HardContext string `json:"hardContext"`
		SoftContext string `json:"softContext"`
	} `json:"subjects" binding:"required"`
	SessionID string `json:"sessionId"`
	Mode      string `json:"mode"`
}

// CreateProfiles handles POST /api/profiles/create. Each subject's search
// runs in the background; a client-supplied sessionId tracks the first
// accepted subject, and the response echoes the session ID to stream.
func (h *profileHandler) CreateProfiles(c *gin.Context) {
	var req createProfilesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}
	if len(req.Subjects) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "At least one subject is required"})
		return
	}

	var (
		firstSessionID string
		accepted       int
		failures       []string
	)
	for _, s := range req.Subjects {
		subject := models.Subject{
			Name:        s.Name,
			HardContext: s.HardContext,
			SoftContext: s.SoftContext,
		}
		requestedID := ""
		if accepted == 0 {
			requestedID = req.SessionID
		}
		sessionID, err := h.service.StartSearch(subject, requestedID, profiler.Mode(req.Mode))
		if err != nil {
			h.logger.Warn("Rejected subject",
				zap.String("name", s.Name), zap.Error(err))
			failures = append(failures, fmt.Sprintf("%s: %v", s.Name, err))
			continue
		}
		accepted++
		if firstSessionID == "" {
			firstSessionID = sessionID
		}
	}

	if accepted == 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":  "No valid subjects",
			"errors": failures,
		})
		return
	}

	resp := gin.H{
		"message":   fmt.Sprintf("Profile creation started for %d subject(s)", accepted),
		"sessionId": firstSessionID,
	}
	if len(failures) > 0 {
		resp["errors"] = failures
	}
	c.JSON(http.StatusAccepted, resp)
}

// GetAllProfiles handles GET /api/profiles
func (h *profileHandler) GetAllProfiles(c *gin.Context) {
	profiles, err := h.profileRepo.GetAll()
	if err != nil {
		h.logger.Error("Failed to get profiles", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve profiles"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"profiles": profiles})
}

// GetProfileByID handles GET /api/profiles/:id
func (h *profileHandler) GetProfileByID(c *gin.Context) {
	id := c.Param("id")
	profile, err := h.profileRepo.GetByID(id)
	if err != nil {
		if errors.Is(err, repository.ErrProfileNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Profile not found"})
			return
		}
		h.logger.Error("Failed to get profile", zap.String("id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve profile"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"profile": profile})
}

// DeleteProfile handles DELETE /api/profiles/:id
func (h *profileHandler) DeleteProfile(c *gin.Context) {
	id := c.Param("id")
	if err := h.profileRepo.Delete(id); err != nil {
		if errors.Is(err, repository.ErrProfileNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Profile not found"})
			return
		}
		h.logger.Error("Failed to delete profile", zap.String("id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete profile"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Profile deleted"})
}
