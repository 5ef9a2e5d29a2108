package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/budaic/i-know-where-you-live/internal/handler"
	"github.com/budaic/i-know-where-you-live/internal/profiler"
	"github.com/budaic/i-know-where-you-live/internal/repository"
	"github.com/budaic/i-know-where-you-live/internal/tracker"
)

type Server struct {
	router *gin.Engine
	logger *zap.Logger
}

func NewServer(service *profiler.Service, profileRepo repository.ProfileRepository, registry *tracker.Registry, logger *zap.Logger) *Server {
	router := gin.Default()

	s := &Server{
		router: router,
		logger: logger,
	}

	s.setupRoutes(service, profileRepo, registry)
	return s
}

func (s *Server) setupRoutes(service *profiler.Service, profileRepo repository.ProfileRepository, registry *tracker.Registry) {
	profileHandler := handler.NewProfileHandler(service, profileRepo, s.logger)
	sessionHandler := handler.NewSessionHandler(registry, s.logger)
	streamHandler := handler.NewStreamHandler(registry, s.logger)

	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := s.router.Group("/api/profiles")
	{
		api.POST("/create", profileHandler.CreateProfiles)
		api.GET("", profileHandler.GetAllProfiles)
		api.GET("/:id", profileHandler.GetProfileByID)
		api.DELETE("/:id", profileHandler.DeleteProfile)

		api.GET("/sessions", sessionHandler.GetAllSessions)
		api.GET("/sessions/:id", sessionHandler.GetSessionStatus)
		api.DELETE("/sessions/:id", sessionHandler.StopSession)
		api.POST("/sessions/:id/recover", sessionHandler.RecoverSession)
		api.GET("/create/stream/:sessionId", streamHandler.StreamSession)
	}
}

func (s *Server) Run(addr string) error {
	s.logger.Info("Server starting", zap.String("addr", addr))
	return s.router.Run(addr)
}
