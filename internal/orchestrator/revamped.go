package orchestrator

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/budaic/i-know-where-you-live/internal/fetcher"
	"github.com/budaic/i-know-where-you-live/internal/llm"
	"github.com/budaic/i-know-where-you-live/internal/models"
)

// rawQuery is one generated (pre-optimization) query in the iterative mode.
type rawQuery struct {
	Query string
	Type  string // "simple", "hard-context", "generated-context"
}

// processedResult is a search hit that survived the 3-stage pipeline.
type processedResult struct {
	Doc           models.CandidateDocument
	ContextPoints []string
	Confidence    float64
}

// RunIterative executes the iterative search mode: at least MinRounds rounds
// of query generation, LLM query optimization, multi-query search, and a
// 3-stage validation pipeline (name check, strict context match, bullet
// point extraction), accumulating everything that passes. Sources above the
// confidence threshold become the final source pool.
func (o *Orchestrator) RunIterative(ctx context.Context, subject models.Subject, sessionID string) (*models.ProfileCreationLog, error) {
	o.logger.Info("Starting iterative search",
		zap.String("subject", subject.Name),
		zap.Int("min_rounds", o.cfg.MinRounds))

	result := &models.ProfileCreationLog{
		SubjectName:      subject.Name,
		HardContext:      subject.HardContext,
		SoftContext:      subject.SoftContext,
		GeneratedContext: models.GeneratedContext{AdditionalFindings: []string{}},
		SearchLogs:       []models.SearchLog{},
	}

	var accumulated []processedResult
	processedURLs := make(map[string]bool)

	for round := 1; round <= o.cfg.MinRounds; round++ {
		o.sink.PhaseProgress(sessionID, models.PhaseGeneral, models.StatusSearching,
			fmt.Sprintf("Search round %d/%d: generating queries and collecting results", round, o.cfg.MinRounds), nil)

		contextSoFar := buildContextDigest(accumulated)
		queries := o.buildRoundQueries(subject, contextSoFar)
		optimized := o.optimizeQueries(ctx, queries, subject)

		docs, err := o.executeQueries(ctx, optimized)
		if err != nil {
			o.sink.Error(sessionID, fmt.Sprintf("search round %d failed: %v", round, err))
			return result, fmt.Errorf("search round %d: %w", round, err)
		}

		// Later rounds re-surface earlier hits; process each URL once per run.
		fresh := docs[:0:0]
		for _, doc := range docs {
			if processedURLs[doc.URL] {
				continue
			}
			processedURLs[doc.URL] = true
			fresh = append(fresh, doc)
		}

		o.sink.PhaseProgress(sessionID, models.PhaseGeneral, models.StatusValidating,
			fmt.Sprintf("Search round %d/%d: processing %d results", round, o.cfg.MinRounds, len(fresh)), nil)

		processed := o.processResults(ctx, fresh, subject, contextSoFar)
		accumulated = append(accumulated, processed...)

		log := models.SearchLog{
			Phase:            "general",
			Query:            strings.Join(optimized, "; "),
			ResultsFound:     len(docs),
			ValidatedResults: []models.ValidationResult{},
			Timestamp:        time.Now(),
			SearchRound:      round,
			TotalRounds:      o.cfg.MinRounds,
		}
		if len(processed) > 0 {
			log.SelectedURL = processed[0].Doc.URL
		}
		result.SearchLogs = append(result.SearchLogs, log)

		o.sink.PhaseProgress(sessionID, models.PhaseGeneral, models.StatusCompleted,
			fmt.Sprintf("Search round %d/%d complete: %d valid results", round, o.cfg.MinRounds, len(processed)),
			&models.PhaseResults{Found: len(docs), Qualified: len(processed), SearchLog: &log})

		if round < o.cfg.MinRounds {
			o.delay(ctx, o.cfg.RoundDelay)
		}
	}

	digest := buildContextDigest(accumulated)
	if digest != "" {
		result.GeneratedContext.AdditionalFindings = append(result.GeneratedContext.AdditionalFindings, digest)
	}

	// Everything strongly related survives, not just a fixed top-N.
	strong := make([]processedResult, 0, len(accumulated))
	for _, p := range accumulated {
		if p.Confidence > o.cfg.ConfidenceThreshold {
			strong = append(strong, p)
		}
	}
	sort.SliceStable(strong, func(i, j int) bool {
		return strong[i].Confidence > strong[j].Confidence
	})

	result.FinalSources = make([]models.ValidationResult, 0, len(strong))
	for _, p := range strong {
		result.FinalSources = append(result.FinalSources, p.toValidationResult())
	}

	finalLog := models.SearchLog{
		Phase:            "Revamped Search Complete",
		Query:            "Multi-round iterative search with context building",
		ResultsFound:     len(accumulated),
		ValidatedResults: result.FinalSources,
		ContextAdded:     digest,
		Timestamp:        time.Now(),
		SearchRound:      o.cfg.MinRounds,
		TotalRounds:      o.cfg.MinRounds,
	}
	result.SearchLogs = append(result.SearchLogs, finalLog)

	o.sink.PhaseComplete(sessionID, models.PhaseGeneral,
		fmt.Sprintf("Iterative search complete: %d high-confidence sources", len(result.FinalSources)),
		&models.PhaseResults{Found: len(accumulated), Qualified: len(result.FinalSources), ContextAdded: digest})

	o.logger.Info("Iterative search complete",
		zap.Int("processed", len(accumulated)),
		zap.Int("final_sources", len(result.FinalSources)))
	return result, nil
}

func (o *Orchestrator) buildRoundQueries(subject models.Subject, generatedContext string) []rawQuery {
	queries := []rawQuery{{Query: subject.Name, Type: "simple"}}
	if strings.TrimSpace(subject.HardContext) != "" {
		queries = append(queries, rawQuery{
			Query: subject.Name + " " + subject.HardContext,
			Type:  "hard-context",
		})
	}
	if strings.TrimSpace(generatedContext) != "" {
		queries = append(queries, rawQuery{
			Query: subject.Name + " " + fetcher.Truncate(generatedContext, 200),
			Type:  "generated-context",
		})
	}
	return queries
}

// optimizeQueries rewrites each raw query through the LLM for better search
// effectiveness. The original query is the fallback for any failure.
func (o *Orchestrator) optimizeQueries(ctx context.Context, queries []rawQuery, subject models.Subject) []string {
	optimized := make([]string, len(queries))
	for i, q := range queries {
		optimized[i] = o.optimizeQuery(ctx, q, subject)
	}
	return optimized
}

func (o *Orchestrator) optimizeQuery(ctx context.Context, q rawQuery, subject models.Subject) string {
	prompt := fmt.Sprintf(`Original Query: %q
Subject Name: %s
Hard Context: %s
Query Type: %s

OPTIMIZATION GOALS:
- Make the query more specific and targeted for web search
- Include relevant keywords that would appear in high-quality sources
- Use proper search operators and syntax
- Focus on finding substantial, detailed information about the subject
- Include context-specific terms that would help identify the right person

Return ONLY valid JSON:
{
  "optimizedQuery": "optimized search query here",
  "reasoning": "explanation of why this query is better",
  "searchStrategy": "description of the search approach used"
}`,
		q.Query, subject.Name, orNone(subject.HardContext), q.Type)

	raw, err := o.completer.Complete(ctx,
		"You are an expert search query optimizer. Create highly effective search queries that will find the most relevant and detailed information about people.",
		prompt, llm.Options{Temperature: 0.3, MaxTokens: 300})
	if err != nil {
		o.logger.Warn("Query optimization failed, keeping original", zap.Error(err))
		return q.Query
	}

	var reply struct {
		OptimizedQuery string `json:"optimizedQuery"`
		Reasoning      string `json:"reasoning"`
		SearchStrategy string `json:"searchStrategy"`
	}
	if err := llm.ExtractJSON(raw, &reply); err != nil || strings.TrimSpace(reply.OptimizedQuery) == "" {
		return q.Query
	}

	o.logger.Debug("Query optimized",
		zap.String("original", q.Query),
		zap.String("optimized", reply.OptimizedQuery),
		zap.String("strategy", reply.SearchStrategy))
	return reply.OptimizedQuery
}

// executeQueries runs every query against the general search surface,
// deduplicating by URL across queries. A run-level error is returned only
// when every query fails.
func (o *Orchestrator) executeQueries(ctx context.Context, queries []string) ([]models.CandidateDocument, error) {
	seen := make(map[string]bool)
	var all []models.CandidateDocument
	succeeded := 0

	for i, query := range queries {
		docs, err := o.searcher.SearchGeneral(ctx, query)
		if err != nil {
			o.logger.Warn("Round query failed", zap.String("query", query), zap.Error(err))
		} else {
			succeeded++
		}
		for _, doc := range docs {
			if seen[doc.URL] {
				continue
			}
			seen[doc.URL] = true
			all = append(all, doc)
		}
		if i < len(queries)-1 {
			o.delay(ctx, o.cfg.QueryDelay)
		}
	}

	if succeeded == 0 {
		return nil, fmt.Errorf("all %d queries failed", len(queries))
	}
	return all, nil
}

// processResults runs each hit through the 3-stage pipeline. Stage failures
// drop the single result; unexpected errors are logged and skipped.
func (o *Orchestrator) processResults(ctx context.Context, docs []models.CandidateDocument, subject models.Subject, generatedContext string) []processedResult {
	var processed []processedResult

	for _, doc := range docs {
		if !hasNameMatch(doc.Text, subject.Name) {
			continue
		}

		match, err := o.contextMatch(ctx, doc, subject, generatedContext)
		if err != nil {
			o.logger.Warn("Context match check failed, skipping result",
				zap.String("url", doc.URL), zap.Error(err))
			continue
		}
		if !match {
			continue
		}

		points := o.extractContextPoints(ctx, doc, subject, generatedContext)
		if len(points) == 0 {
			continue
		}

		processed = append(processed, processedResult{
			Doc:           doc,
			ContextPoints: points,
			Confidence:    calculateConfidence(doc, len(points)),
		})
	}

	return processed
}

// contextMatch asks the LLM for a strict yes/no on whether the text carries
// substantial evidence tying it to the subject's context.
func (o *Orchestrator) contextMatch(ctx context.Context, doc models.CandidateDocument, subject models.Subject, generatedContext string) (bool, error) {
	prompt := fmt.Sprintf(`Text: %s
Summary: %s
Subject: %s
Hard Context: %s
Generated Context: %s

STRICT VALIDATION RULES:
- The text must contain SPECIFIC, DETAILED information that DIRECTLY relates to the hard context or generated context
- Generic mentions of the subject name are NOT sufficient
- The text must provide SUBSTANTIAL evidence that this is the same person described in the context
- If the text only mentions the name without substantial context matching, answer "NO"

Does this text contain SUBSTANTIAL, SPECIFIC information that STRONGLY matches the hard context or generated context for %s? Answer only "YES" or "NO".`,
		fetcher.Truncate(doc.Text, 2000), doc.Summary, subject.Name,
		orNone(subject.HardContext), orNone(generatedContext), subject.Name)

	raw, err := o.completer.Complete(ctx,
		`You are a STRICT context matching assistant. Only return "YES" if there is STRONG, SPECIFIC evidence. Respond with only "YES" or "NO".`,
		prompt, llm.Options{Temperature: 0, MaxTokens: 10})
	if err != nil {
		return false, err
	}
	return strings.EqualFold(strings.TrimSpace(raw), "YES"), nil
}

// extractContextPoints asks for exactly 3 bullet points tying the text to
// the subject. Returns whatever bullets actually came back, capped at 3.
func (o *Orchestrator) extractContextPoints(ctx context.Context, doc models.CandidateDocument, subject models.Subject, generatedContext string) []string {
	prompt := fmt.Sprintf(`Text: %s
Summary: %s
Subject: %s
Hard Context: %s
Generated Context: %s

Generate exactly 3 bullet points on how this text relates %s to the hard context or generated context. Be specific and factual. Format each point with a bullet point (-).`,
		fetcher.Truncate(doc.Text, 2000), doc.Summary, subject.Name,
		orNone(subject.HardContext), orNone(generatedContext), subject.Name)

	raw, err := o.completer.Complete(ctx,
		"You are a context analysis assistant. Generate exactly 3 specific, factual bullet points. Format each point with a bullet point (-).",
		prompt, llm.Options{Temperature: 0.3, MaxTokens: 300})
	if err != nil {
		o.logger.Warn("Context point extraction failed", zap.String("url", doc.URL), zap.Error(err))
		return nil
	}

	return parseBulletPoints(raw, 3)
}

func (p processedResult) toValidationResult() models.ValidationResult {
	confidence := models.ConfidenceLow
	switch {
	case p.Confidence > 0.8:
		confidence = models.ConfidenceHigh
	case p.Confidence > 0.6:
		confidence = models.ConfidenceMedium
	}

	score := int(p.Confidence * 10)
	if score < 1 {
		score = 1
	}
	if score > 10 {
		score = 10
	}

	return models.ValidationResult{
		URL:            p.Doc.URL,
		RelevancyScore: score,
		IsLikelyMatch:  p.Confidence > 0.5,
		Confidence:     confidence,
		Reasoning: fmt.Sprintf("Strong context match (confidence: %.2f) with %d context points",
			p.Confidence, len(p.ContextPoints)),
		SamePersonElements:      p.ContextPoints,
		DifferentPersonElements: []string{},
		Category:                models.CategoryOther,
	}
}

// calculateConfidence composes the result confidence from provider score,
// text and summary sufficiency, and extracted point count, clipped to [0,1].
func calculateConfidence(doc models.CandidateDocument, points int) float64 {
	confidence := doc.Score * 0.3
	if len(doc.Text) > 100 {
		confidence += 0.2
	}
	if len(doc.Summary) > 50 {
		confidence += 0.2
	}
	bonus := float64(points) * 0.1
	if bonus > 0.3 {
		bonus = 0.3
	}
	confidence += bonus
	if confidence > 1.0 {
		confidence = 1.0
	}
	if confidence < 0 {
		confidence = 0
	}
	return confidence
}

// hasNameMatch requires every significant token of the subject name (longer
// than 2 characters) to appear in the text.
func hasNameMatch(text, subjectName string) bool {
	textLower := strings.ToLower(text)
	for _, word := range strings.Fields(strings.ToLower(subjectName)) {
		if len(word) <= 2 {
			continue
		}
		if !strings.Contains(textLower, word) {
			return false
		}
	}
	return true
}

// buildContextDigest renders accumulated results as a structured findings
// summary used both as prompt context for later rounds and as the run's
// generated context.
func buildContextDigest(results []processedResult) string {
	if len(results) == 0 {
		return ""
	}

	var b strings.Builder
	fmt.Fprintf(&b, "COMPREHENSIVE CONTEXT SUMMARY (%d sources analyzed):\n\n", len(results))

	seen := make(map[string]bool)
	b.WriteString("KEY FINDINGS:\n")
	n := 0
	for _, r := range results {
		for _, point := range r.ContextPoints {
			if seen[point] {
				continue
			}
			seen[point] = true
			n++
			fmt.Fprintf(&b, "%d. %s\n", n, point)
		}
	}

	b.WriteString("\nDETAILED SOURCE BREAKDOWN:\n")
	for i, r := range results {
		fmt.Fprintf(&b, "\nSource %d: %s\n", i+1, r.Doc.URL)
		fmt.Fprintf(&b, "Confidence: %.1f%%\n", r.Confidence*100)
		b.WriteString("Context Points:\n")
		for _, point := range r.ContextPoints {
			fmt.Fprintf(&b, "  - %s\n", point)
		}
	}

	return b.String()
}

func parseBulletPoints(raw string, max int) []string {
	var points []string
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		var point string
		switch {
		case strings.HasPrefix(line, "- "):
			point = strings.TrimSpace(line[2:])
		case strings.HasPrefix(line, "-"):
			point = strings.TrimSpace(line[1:])
		case strings.HasPrefix(line, "• "):
			point = strings.TrimSpace(strings.TrimPrefix(line, "• "))
		default:
			continue
		}
		if point == "" {
			continue
		}
		points = append(points, point)
		if len(points) == max {
			break
		}
	}
	return points
}
