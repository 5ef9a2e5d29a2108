package validate

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/budaic/i-know-where-you-live/internal/llm"
	"github.com/budaic/i-know-where-you-live/internal/models"
	"github.com/budaic/i-know-where-you-live/internal/search"
)

const (
	maxPromptContentChars = 1000
	validatorSystemPrompt = "You are an OSINT analyst. Respond with ONLY valid JSON. No other text."
)

// Validator scores one candidate document against the subject description.
// It never returns an error past its boundary: every failure path yields a
// well-formed fail-safe verdict.
type Validator struct {
	completer  llm.Completer
	logger     *zap.Logger
	batchSize  int
	batchDelay time.Duration
}

// NewValidator creates a source validator. batchSize bounds the concurrent
// LLM calls during batch validation.
func NewValidator(completer llm.Completer, batchSize int, batchDelay time.Duration, logger *zap.Logger) *Validator {
	if batchSize <= 0 {
		batchSize = 3
	}
	return &Validator{
		completer:  completer,
		logger:     logger,
		batchSize:  batchSize,
		batchDelay: batchDelay,
	}
}

// Validate produces a verdict for a single candidate document.
//
// A cheap sanity check runs before any LLM call: the candidate text must
// contain the subject's last-name token, non-profile documents must also
// contain the first-name token, and LinkedIn profile pages accept either
// token alone. Failing the check short-circuits to a score-1 verdict naming
// the missing tokens.
func (v *Validator) Validate(ctx context.Context, doc models.CandidateDocument, subject models.Subject, generated *models.GeneratedContext) models.ValidationResult {
	category := search.Classify(doc.URL)

	first, last, err := subject.NameTokens()
	if err != nil {
		return failSafe(doc.URL, category, err.Error())
	}

	if verdict, ok := v.sanityCheck(doc, category, first, last); !ok {
		return verdict
	}

	prompt := buildScoringPrompt(doc, subject, generated)

	raw, err := v.completer.Complete(ctx, validatorSystemPrompt, prompt, llm.Options{
		Temperature: 0.2,
		MaxTokens:   600,
	})
	if err != nil {
		v.logger.Warn("Validation completion failed", zap.String("url", doc.URL), zap.Error(err))
		return failSafe(doc.URL, category, "Validation failed")
	}

	var reply struct {
		RelevancyScore          float64  `json:"relevancyScore"`
		IsLikelyMatch           bool     `json:"isLikelyMatch"`
		Confidence              string   `json:"confidence"`
		Reasoning               string   `json:"reasoning"`
		SamePersonElements      []string `json:"samePersonElements"`
		DifferentPersonElements []string `json:"differentPersonElements"`
	}
	if err := llm.ExtractJSON(raw, &reply); err != nil {
		v.logger.Warn("Validation reply was not parseable JSON",
			zap.String("url", doc.URL), zap.Error(err))
		return failSafe(doc.URL, category, "Validation failed")
	}

	result := models.ValidationResult{
		URL:                     doc.URL,
		RelevancyScore:          clampScore(reply.RelevancyScore),
		IsLikelyMatch:           reply.IsLikelyMatch,
		Confidence:              parseConfidence(reply.Confidence),
		Reasoning:               reply.Reasoning,
		SamePersonElements:      reply.SamePersonElements,
		DifferentPersonElements: reply.DifferentPersonElements,
		Category:                category,
	}
	if result.Reasoning == "" {
		result.Reasoning = "Unable to determine"
	}
	if result.SamePersonElements == nil {
		result.SamePersonElements = []string{}
	}
	if result.DifferentPersonElements == nil {
		result.DifferentPersonElements = []string{}
	}
	return result
}

// ValidateBatch validates candidates with bounded concurrency, preserving
// input order, with a short delay between batches to respect rate limits.
func (v *Validator) ValidateBatch(ctx context.Context, docs []models.CandidateDocument, subject models.Subject, generated *models.GeneratedContext) []models.ValidationResult {
	results := make([]models.ValidationResult, len(docs))

	for start := 0; start < len(docs); start += v.batchSize {
		end := start + v.batchSize
		if end > len(docs) {
			end = len(docs)
		}

		g, gctx := errgroup.WithContext(ctx)
		for i := start; i < end; i++ {
			i := i
			g.Go(func() error {
				results[i] = v.Validate(gctx, docs[i], subject, generated)
				return nil
			})
		}
		_ = g.Wait() // Validate never returns an error.

		if end < len(docs) && v.batchDelay > 0 {
			select {
			case <-ctx.Done():
				for i := end; i < len(docs); i++ {
					results[i] = failSafe(docs[i].URL, search.Classify(docs[i].URL), "Validation cancelled")
				}
				return results
			case <-time.After(v.batchDelay):
			}
		}
	}

	return results
}

func (v *Validator) sanityCheck(doc models.CandidateDocument, category models.Category, first, last string) (models.ValidationResult, bool) {
	text := strings.ToLower(doc.Title + " " + doc.Text)
	firstFound := strings.Contains(text, first)
	lastFound := strings.Contains(text, last)

	linkedinProfile := category == models.CategoryProfile && search.IsLinkedInProfile(doc.URL)

	var pass bool
	switch {
	case linkedinProfile:
		pass = firstFound || lastFound
	case category == models.CategoryProfile:
		pass = lastFound
	default:
		pass = firstFound && lastFound
	}
	if pass {
		return models.ValidationResult{}, true
	}

	var missing []string
	if !firstFound {
		missing = append(missing, fmt.Sprintf("First name %q not found", first))
	}
	if !lastFound {
		missing = append(missing, fmt.Sprintf("Last name %q not found", last))
	}

	result := failSafe(doc.URL, category, "Subject name not present in source text")
	result.DifferentPersonElements = missing
	return result, false
}

func buildScoringPrompt(doc models.CandidateDocument, subject models.Subject, generated *models.GeneratedContext) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Validate if this source is about %q.\n\n", subject.Name)
	fmt.Fprintf(&b, "Context: %s | %s\n", orNone(subject.HardContext), orNone(subject.SoftContext))
	fmt.Fprintf(&b, "Known: %s\n\n", orNone(generated.Format()))
	fmt.Fprintf(&b, "Source: %s\n", doc.Title)
	fmt.Fprintf(&b, "Content: %s\n\n", orNone(truncate(doc.Text, maxPromptContentChars)))

	b.WriteString(`Score 1-10 using this rubric:
- 1-3: only the name matches
- 4-5: name plus some context matches
- 6-8: name plus professional background matches
- 9-10: name, professional background, and multiple independent context points match

Determine if this is the same person, and list matching/conflicting elements.

Respond with ONLY this JSON:
{
  "relevancyScore": 7,
  "isLikelyMatch": true,
  "confidence": "high",
  "reasoning": "Brief explanation",
  "samePersonElements": ["element1", "element2"],
  "differentPersonElements": ["element1"]
}`)

	return b.String()
}

func failSafe(url string, category models.Category, reasoning string) models.ValidationResult {
	return models.ValidationResult{
		URL:                     url,
		RelevancyScore:          1,
		IsLikelyMatch:           false,
		Confidence:              models.ConfidenceLow,
		Reasoning:               reasoning,
		SamePersonElements:      []string{},
		DifferentPersonElements: []string{},
		Category:                category,
	}
}

func clampScore(score float64) int {
	s := int(score)
	if s < 1 {
		return 1
	}
	if s > 10 {
		return 10
	}
	return s
}

func parseConfidence(s string) models.Confidence {
	switch models.Confidence(strings.ToLower(s)) {
	case models.ConfidenceHigh:
		return models.ConfidenceHigh
	case models.ConfidenceMedium:
		return models.ConfidenceMedium
	}
	return models.ConfidenceLow
}

func orNone(s string) string {
	if s == "" {
		return "None"
	}
	return s
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
