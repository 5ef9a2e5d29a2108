package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/budaic/i-know-where-you-live/internal/config"
	"github.com/budaic/i-know-where-you-live/internal/fetcher"
	"github.com/budaic/i-know-where-you-live/internal/llm"
	"github.com/budaic/i-know-where-you-live/internal/orchestrator"
	"github.com/budaic/i-know-where-you-live/internal/profiler"
	"github.com/budaic/i-know-where-you-live/internal/repository"
	"github.com/budaic/i-know-where-you-live/internal/search"
	"github.com/budaic/i-know-where-you-live/internal/server"
	"github.com/budaic/i-know-where-you-live/internal/tracker"
	"github.com/budaic/i-know-where-you-live/internal/validate"
)

func main() {
	logger, err := zap.NewDevelopment()
	if err != nil {
		panic(err) // Should not happen in development
	}
	defer func() {
		_ = logger.Sync() // Flushes buffer, if any
	}()

	// Load configuration
	cfgPath := "configs/config.yml"
	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	// Database connection
	db, err := repository.NewPostgresDB(cfg.Database.URL, logger)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	// Run migrations
	repository.MigrateDB(db, logger)

	// Durable session store
	sessionStore, err := repository.NewSessionStore(cfg.Sessions.Path, logger)
	if err != nil {
		logger.Fatal("Failed to open session store", zap.Error(err))
	}
	defer sessionStore.Close()

	// LLM client
	completer, err := llm.NewClient(llm.Config{
		APIKey:  cfg.OpenAI.APIKey,
		Model:   cfg.OpenAI.Model,
		Timeout: cfg.OpenAITimeout(),
	}, logger)
	if err != nil {
		logger.Fatal("Failed to create LLM client", zap.Error(err))
	}

	// Search backend and platform adapter
	searchClient := search.NewClient(cfg.SearchAPI.URL, cfg.SearchAPI.APIKey, cfg.SearchTimeout(), logger)
	searcher := search.NewAdapter(searchClient, logger)

	contentFetcher := fetcher.NewFetcher(15*time.Second, logger)

	validator := validate.NewValidator(completer, cfg.Search.ValidationBatchSize,
		time.Duration(cfg.Search.BatchDelayMillis)*time.Millisecond, logger)

	// Session registry with durable mirror
	registry := tracker.NewRegistry(sessionStore, tracker.Config{
		MemoryTTL:     time.Duration(cfg.Sessions.MemoryTTLMinutes) * time.Minute,
		StoreTTL:      time.Duration(cfg.Sessions.StoreTTLHours) * time.Hour,
		SweepInterval: time.Duration(cfg.Sessions.SweepMinutes) * time.Minute,
	}, logger)
	defer registry.Stop()

	orch := orchestrator.New(searcher, validator, completer, contentFetcher, registry, orchestrator.Config{
		Thresholds: validate.Thresholds{
			Profile: cfg.Search.ProfileThreshold,
			General: cfg.Search.GeneralThreshold,
		},
		QueryDelay:          time.Duration(cfg.Search.QueryDelayMillis) * time.Millisecond,
		MinRounds:           cfg.Search.MinRounds,
		RoundDelay:          time.Duration(cfg.Search.RoundDelayMillis) * time.Millisecond,
		ConfidenceThreshold: cfg.Search.ConfidenceThreshold,
	}, logger)

	assembler := profiler.NewAssembler(completer, logger)
	profileRepo := repository.NewProfileRepository(db, logger)
	service := profiler.NewService(orch, assembler, registry, profileRepo, profiler.Mode(cfg.Search.Mode), logger)

	// Context for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Initialize and run the server
	srv := server.NewServer(service, profileRepo, registry, logger)
	go func() {
		if err := srv.Run(cfg.Server.Port); err != nil {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("Application stopped.")
}
