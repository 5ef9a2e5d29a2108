package orchestrator

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/budaic/i-know-where-you-live/internal/fetcher"
	"github.com/budaic/i-know-where-you-live/internal/llm"
	"github.com/budaic/i-know-where-you-live/internal/models"
	"github.com/budaic/i-know-where-you-live/internal/validate"
)

// Searcher is the platform-aware search surface the orchestrator drives.
type Searcher interface {
	SearchLinkedIn(ctx context.Context, name string) ([]models.CandidateDocument, error)
	SearchGitHub(ctx context.Context, name string) ([]models.CandidateDocument, error)
	SearchWebsite(ctx context.Context, name string) ([]models.CandidateDocument, error)
	SearchGeneral(ctx context.Context, query string) ([]models.CandidateDocument, error)
}

// SourceValidator scores candidate documents. Implementations never return
// errors: failures become fail-safe verdicts.
type SourceValidator interface {
	ValidateBatch(ctx context.Context, docs []models.CandidateDocument, subject models.Subject, generated *models.GeneratedContext) []models.ValidationResult
}

// ProgressSink receives phase events. All methods must tolerate sessions
// nobody is subscribed to.
type ProgressSink interface {
	PhaseStart(sessionID string, phase models.Phase, message string)
	PhaseProgress(sessionID string, phase models.Phase, status models.Status, message string, results *models.PhaseResults)
	PhaseComplete(sessionID string, phase models.Phase, message string, results *models.PhaseResults)
	Error(sessionID string, message string)
}

// noopSink swallows events for untracked runs.
type noopSink struct{}

func (noopSink) PhaseStart(string, models.Phase, string)                                         {}
func (noopSink) PhaseProgress(string, models.Phase, models.Status, string, *models.PhaseResults) {}
func (noopSink) PhaseComplete(string, models.Phase, string, *models.PhaseResults)                {}
func (noopSink) Error(string, string)                                                            {}

// Config tunes a search run.
type Config struct {
	Thresholds          validate.Thresholds
	QueryDelay          time.Duration
	MinRounds           int
	RoundDelay          time.Duration
	ConfidenceThreshold float64
}

// Orchestrator runs the multi-phase search for one subject at a time. The
// per-run GeneratedContext is owned exclusively by the run; phases execute
// strictly sequentially because each phase's queries are conditioned on the
// context accumulated by the previous ones.
type Orchestrator struct {
	searcher  Searcher
	validator SourceValidator
	completer llm.Completer
	fetcher   fetcher.ContentFetcher
	sink      ProgressSink
	cfg       Config
	logger    *zap.Logger
}

// New creates an orchestrator. sink may be nil for untracked runs.
func New(searcher Searcher, validator SourceValidator, completer llm.Completer, contentFetcher fetcher.ContentFetcher, sink ProgressSink, cfg Config, logger *zap.Logger) *Orchestrator {
	if sink == nil {
		sink = noopSink{}
	}
	if cfg.Thresholds == (validate.Thresholds{}) {
		cfg.Thresholds = validate.DefaultThresholds
	}
	if cfg.MinRounds <= 0 {
		cfg.MinRounds = 3
	}
	if cfg.ConfidenceThreshold == 0 {
		cfg.ConfidenceThreshold = 0.6
	}
	return &Orchestrator{
		searcher:  searcher,
		validator: validator,
		completer: completer,
		fetcher:   contentFetcher,
		sink:      sink,
		cfg:       cfg,
		logger:    logger,
	}
}

type platformPhase struct {
	phase  models.Phase
	label  string
	search func(ctx context.Context, name string) ([]models.CandidateDocument, error)
	query  func(name string) string
	assign func(*models.GeneratedContext, string)
}

// Run executes the fixed-phase search flow:
// linkedin -> github -> website -> general.
//
// A search backend failure aborts the run (state machine to error) but the
// returned log keeps every phase already completed. Failures inside a single
// candidate's validation, fetch, or summarization never abort anything.
func (o *Orchestrator) Run(ctx context.Context, subject models.Subject, sessionID string) (*models.ProfileCreationLog, error) {
	o.logger.Info("Starting multi-phase search", zap.String("subject", subject.Name))

	result := &models.ProfileCreationLog{
		SubjectName:      subject.Name,
		HardContext:      subject.HardContext,
		SoftContext:      subject.SoftContext,
		GeneratedContext: models.GeneratedContext{AdditionalFindings: []string{}},
		SearchLogs:       []models.SearchLog{},
	}

	phases := []platformPhase{
		{
			phase:  models.PhaseLinkedIn,
			label:  "LinkedIn",
			search: o.searcher.SearchLinkedIn,
			query:  func(name string) string { return name + " linkedin.com" },
			assign: func(g *models.GeneratedContext, s string) { g.LinkedInData = s },
		},
		{
			phase:  models.PhaseGitHub,
			label:  "GitHub",
			search: o.searcher.SearchGitHub,
			query:  func(name string) string { return name + " github" },
			assign: func(g *models.GeneratedContext, s string) { g.GitHubData = s },
		},
		{
			phase:  models.PhaseWebsite,
			label:  "Website",
			search: o.searcher.SearchWebsite,
			query:  func(name string) string { return name + " personal website OR portfolio" },
			assign: func(g *models.GeneratedContext, s string) { g.WebsiteData = s },
		},
	}

	for _, p := range phases {
		log, err := o.runPlatformPhase(ctx, p, subject, &result.GeneratedContext, sessionID)
		if err != nil {
			o.sink.Error(sessionID, fmt.Sprintf("%s phase failed: %v", p.label, err))
			return result, fmt.Errorf("%s phase: %w", p.label, err)
		}
		result.SearchLogs = append(result.SearchLogs, *log)
	}

	generalLogs := o.runGeneralPhase(ctx, subject, &result.GeneratedContext, sessionID)
	result.SearchLogs = append(result.SearchLogs, generalLogs...)

	result.FinalSources = validate.CollectFinalSources(result.SearchLogs, o.cfg.Thresholds)

	o.logger.Info("Multi-phase search complete",
		zap.String("subject", subject.Name),
		zap.Int("final_sources", len(result.FinalSources)))
	return result, nil
}

func (o *Orchestrator) runPlatformPhase(ctx context.Context, p platformPhase, subject models.Subject, generated *models.GeneratedContext, sessionID string) (*models.SearchLog, error) {
	query := p.query(subject.Name)
	o.sink.PhaseStart(sessionID, p.phase, fmt.Sprintf("Searching %s for %s", p.label, subject.Name))
	o.sink.PhaseProgress(sessionID, p.phase, models.StatusSearching, fmt.Sprintf("Querying %s", p.label), nil)

	docs, err := p.search(ctx, subject.Name)
	if err != nil {
		return nil, err
	}
	o.logger.Info("Phase search done",
		zap.String("phase", p.label), zap.Int("results", len(docs)))

	log := &models.SearchLog{
		Phase:            p.label,
		Query:            query,
		ResultsFound:     len(docs),
		ValidatedResults: []models.ValidationResult{},
		Timestamp:        time.Now(),
	}

	// Zero results is a legitimate outcome, not a failure.
	if len(docs) == 0 {
		o.sink.PhaseComplete(sessionID, p.phase,
			fmt.Sprintf("No %s results found", p.label),
			&models.PhaseResults{SearchLog: log})
		return log, nil
	}

	o.sink.PhaseProgress(sessionID, p.phase, models.StatusValidating,
		fmt.Sprintf("Validating %d %s results", len(docs), p.label),
		&models.PhaseResults{Found: len(docs)})

	log.ValidatedResults = o.validator.ValidateBatch(ctx, docs, subject, generated)

	if winner := validate.SelectBest(log.ValidatedResults, o.cfg.Thresholds); winner != nil {
		o.logger.Info("Phase winner selected",
			zap.String("phase", p.label),
			zap.String("url", winner.URL),
			zap.Int("score", winner.RelevancyScore))
		log.SelectedURL = winner.URL

		if summary := o.summarizeWinner(ctx, *winner, docs, p.label); summary != "" {
			p.assign(generated, summary)
			log.ContextAdded = summary
		}
	} else {
		o.logger.Info("No qualified source for phase", zap.String("phase", p.label))
	}

	o.sink.PhaseComplete(sessionID, p.phase,
		fmt.Sprintf("%s phase complete", p.label),
		&models.PhaseResults{
			Found:        len(docs),
			ContextAdded: log.ContextAdded,
			SearchLog:    log,
		})
	return log, nil
}

// summarizeWinner fetches the winner's extended content (falling back to the
// already-available snippet) and reduces it to a short factual summary.
func (o *Orchestrator) summarizeWinner(ctx context.Context, winner models.ValidationResult, docs []models.CandidateDocument, label string) string {
	content := o.fetcher.Fetch(ctx, winner.URL)
	if content == "" {
		for _, doc := range docs {
			if doc.URL == winner.URL {
				content = doc.Text
				break
			}
		}
	}
	if content == "" {
		return ""
	}
	return o.summarizeContent(ctx, content, label)
}

func (o *Orchestrator) summarizeContent(ctx context.Context, content, label string) string {
	prompt := fmt.Sprintf(`Summarize the key information from this %s profile in 1-2 sentences.
Focus on: name, job/role, education, skills, location, notable achievements.

Content:
%s

Return a concise summary (max 2 sentences):`, label, fetcher.Truncate(content, 1500))

	summary, err := o.completer.Complete(ctx, "", prompt, llm.Options{Temperature: 0.3, MaxTokens: 150})
	if err != nil {
		o.logger.Warn("Content summarization failed", zap.String("phase", label), zap.Error(err))
		return fetcher.Truncate(content, 200)
	}
	return summary
}

func (o *Orchestrator) delay(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}
