package orchestrator

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/budaic/i-know-where-you-live/internal/fetcher"
	"github.com/budaic/i-know-where-you-live/internal/llm"
	"github.com/budaic/i-know-where-you-live/internal/models"
)

const generalFindingChars = 200

// proposedQuery is one LLM-suggested general-phase search.
type proposedQuery struct {
	Query  string `json:"query"`
	Target string `json:"target"`
}

// runGeneralPhase proposes targeted queries conditioned on the context the
// earlier phases accumulated, then searches, validates, and appends the top
// qualifying findings. Every failure here is local: a failed query or fetch
// skips that item and the phase carries on.
func (o *Orchestrator) runGeneralPhase(ctx context.Context, subject models.Subject, generated *models.GeneratedContext, sessionID string) []models.SearchLog {
	o.sink.PhaseStart(sessionID, models.PhaseGeneral, "Generating targeted search queries")

	queries := o.proposeQueries(ctx, subject, generated)
	o.logger.Info("General queries proposed", zap.Int("count", len(queries)))

	var logs []models.SearchLog
	for i, q := range queries {
		o.sink.PhaseProgress(sessionID, models.PhaseGeneral, models.StatusSearching,
			fmt.Sprintf("Searching: %s", q.Target), nil)

		log := models.SearchLog{
			Phase:            "General: " + q.Target,
			Query:            q.Query,
			ResultsFound:     0,
			ValidatedResults: []models.ValidationResult{},
			Timestamp:        time.Now(),
		}

		docs, err := o.searcher.SearchGeneral(ctx, q.Query)
		if err != nil {
			o.logger.Warn("General query failed, skipping",
				zap.String("target", q.Target), zap.Error(err))
			logs = append(logs, log)
			continue
		}
		log.ResultsFound = len(docs)

		if len(docs) > 0 {
			o.sink.PhaseProgress(sessionID, models.PhaseGeneral, models.StatusValidating,
				fmt.Sprintf("Validating %d results for %s", len(docs), q.Target),
				&models.PhaseResults{Found: len(docs)})

			log.ValidatedResults = o.validator.ValidateBatch(ctx, docs, subject, generated)

			qualified := 0
			for _, r := range log.ValidatedResults {
				if !o.cfg.Thresholds.Qualifies(r) {
					continue
				}
				qualified++
				if qualified > 2 {
					continue // top 2 per query feed the context
				}
				finding := o.buildFinding(ctx, r, docs, q.Target)
				if finding != "" {
					generated.AdditionalFindings = append(generated.AdditionalFindings, finding)
				}
			}
			o.logger.Info("General query processed",
				zap.String("target", q.Target),
				zap.Int("found", len(docs)),
				zap.Int("qualified", qualified))
		}

		logs = append(logs, log)

		if i < len(queries)-1 {
			o.delay(ctx, o.cfg.QueryDelay)
		}
	}

	o.sink.PhaseComplete(sessionID, models.PhaseGeneral, "General search phase complete",
		&models.PhaseResults{Qualified: len(generated.AdditionalFindings)})
	return logs
}

// buildFinding fetches a qualifying source's content (snippet fallback) and
// turns it into one AdditionalFindings entry prefixed by its query target.
func (o *Orchestrator) buildFinding(ctx context.Context, r models.ValidationResult, docs []models.CandidateDocument, target string) string {
	content := o.fetcher.Fetch(ctx, r.URL)
	if content == "" {
		for _, doc := range docs {
			if doc.URL == r.URL {
				content = doc.Text
				break
			}
		}
	}
	if content == "" {
		return ""
	}
	return fmt.Sprintf("From %s: %s", target, fetcher.Truncate(content, generalFindingChars))
}

// proposeQueries asks the LLM for five queries targeting distinct aspects of
// the subject's footprint. On any failure a deterministic fallback set keeps
// the phase running.
func (o *Orchestrator) proposeQueries(ctx context.Context, subject models.Subject, generated *models.GeneratedContext) []proposedQuery {
	prompt := fmt.Sprintf(`Generate 5 search queries to find more information about %s.

Hard Context: %s
Soft Context: %s
Generated Context: %s

Generate queries that:
- Target different aspects (education, work, publications, social media, etc.)
- Use known information from generated context
- Are specific enough to avoid wrong matches
- Don't duplicate LinkedIn/GitHub/website searches already done

Return ONLY valid JSON array:
[
  {"query": "query 1", "target": "education records"},
  {"query": "query 2", "target": "publications"},
  {"query": "query 3", "target": "social media"},
  {"query": "query 4", "target": "professional activities"},
  {"query": "query 5", "target": "mentions or interviews"}
]`,
		subject.Name,
		orNone(subject.HardContext),
		orNone(subject.SoftContext),
		orNone(generated.Format()))

	raw, err := o.completer.Complete(ctx,
		"You are an expert OSINT researcher who generates effective search queries. Always respond with valid JSON only.",
		prompt, llm.Options{Temperature: 0.7})
	if err == nil {
		var queries []proposedQuery
		if perr := llm.ExtractJSON(raw, &queries); perr == nil && len(queries) > 0 {
			return queries
		}
		o.logger.Warn("Query proposal reply was not parseable, using fallback queries")
	} else {
		o.logger.Warn("Query proposal failed, using fallback queries", zap.Error(err))
	}

	return []proposedQuery{
		{Query: subject.Name + " education", Target: "education"},
		{Query: subject.Name + " work experience", Target: "work"},
		{Query: subject.Name + " publications OR articles", Target: "publications"},
		{Query: subject.Name + " social media", Target: "social"},
		{Query: subject.Name + " interview OR mention", Target: "mentions"},
	}
}

func orNone(s string) string {
	if s == "" {
		return "None"
	}
	return s
}
