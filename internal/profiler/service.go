package profiler

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/budaic/i-know-where-you-live/internal/models"
	"github.com/budaic/i-know-where-you-live/internal/orchestrator"
	"github.com/budaic/i-know-where-you-live/internal/repository"
	"github.com/budaic/i-know-where-you-live/internal/tracker"
)

// Mode selects the search strategy for a run.
type Mode string

const (
	// ModePhased runs the LinkedIn, GitHub, website and general phases in
	// order, carrying context forward between them.
	ModePhased Mode = "phased"
	// ModeIterative runs repeated rounds of optimized general queries with
	// a strict validation pipeline.
	ModeIterative Mode = "iterative"
)

// searchTimeout bounds a full profile run. Generous: a run makes dozens of
// LLM and search calls with deliberate delays between them.
const searchTimeout = 15 * time.Minute

// Service drives complete profile creation runs: session registration,
// search orchestration, profile assembly and persistence.
type Service struct {
	orch      *orchestrator.Orchestrator
	assembler *Assembler
	registry  *tracker.Registry
	profiles  repository.ProfileRepository
	mode      Mode
	logger    *zap.Logger
}

func NewService(orch *orchestrator.Orchestrator, assembler *Assembler, registry *tracker.Registry, profiles repository.ProfileRepository, mode Mode, logger *zap.Logger) *Service {
	if mode != ModeIterative {
		mode = ModePhased
	}
	return &Service{
		orch:      orch,
		assembler: assembler,
		registry:  registry,
		profiles:  profiles,
		mode:      mode,
		logger:    logger.Named("service"),
	}
}

// StartSearch validates the subject, registers a live session and launches
// the search in the background. It returns the session ID immediately so
// the client can subscribe to progress events. An empty sessionID gets a
// generated one; an empty mode uses the configured default.
func (s *Service) StartSearch(subject models.Subject, sessionID string, mode Mode) (string, error) {
	if err := subject.Validate(); err != nil {
		return "", err
	}

	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	if mode != ModePhased && mode != ModeIterative {
		mode = s.mode
	}
	s.registry.Register(sessionID, subject.Name)

	go s.run(sessionID, subject, mode)
	return sessionID, nil
}

func (s *Service) run(sessionID string, subject models.Subject, mode Mode) {
	ctx, cancel := context.WithTimeout(context.Background(), searchTimeout)
	defer cancel()

	s.logger.Info("Profile search started",
		zap.String("session_id", sessionID),
		zap.String("subject", subject.Name),
		zap.String("mode", string(mode)))

	var (
		log *models.ProfileCreationLog
		err error
	)
	if mode == ModeIterative {
		log, err = s.orch.RunIterative(ctx, subject, sessionID)
	} else {
		log, err = s.orch.Run(ctx, subject, sessionID)
	}
	if err != nil {
		s.logger.Error("Profile search failed",
			zap.String("session_id", sessionID), zap.Error(err))
		s.registry.Fail(sessionID, fmt.Sprintf("search failed: %v", err))
		return
	}

	profile := s.assembler.Assemble(ctx, log)

	if err := s.profiles.Save(profile); err != nil {
		s.logger.Error("Failed to save profile",
			zap.String("session_id", sessionID), zap.Error(err))
		s.registry.Fail(sessionID, fmt.Sprintf("failed to save profile: %v", err))
		return
	}

	s.registry.Complete(sessionID, profile)
	s.logger.Info("Profile search complete",
		zap.String("session_id", sessionID),
		zap.String("profile_id", profile.ID),
		zap.Int("sources", len(profile.Sources)))
}
