package profiler

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/budaic/i-know-where-you-live/internal/llm"
	"github.com/budaic/i-know-where-you-live/internal/models"
)

// aliasPattern accepts handle-like strings: lowercase letters, at most one
// separator, optional trailing digits. "jdoe", "john_doe", "jdoe99" pass;
// "John Doe", "j.d.o.e" and bare numbers do not.
var aliasPattern = regexp.MustCompile(`^[a-z]+[_\-.]?[a-z]*\d*$`)

// Assembler turns a finished search run into a persisted-shape Profile,
// generating the summary and alias list with the LLM.
type Assembler struct {
	completer llm.Completer
	logger    *zap.Logger
}

func NewAssembler(completer llm.Completer, logger *zap.Logger) *Assembler {
	return &Assembler{completer: completer, logger: logger.Named("profiler")}
}

// Assemble builds the final profile from a creation log. LLM failures
// degrade to a deterministic summary rather than failing the run.
func (a *Assembler) Assemble(ctx context.Context, log *models.ProfileCreationLog) *models.Profile {
	profile := &models.Profile{
		ID:               uuid.NewString(),
		Name:             log.SubjectName,
		Aliases:          []string{},
		HardContext:      log.HardContext,
		SoftContext:      log.SoftContext,
		GeneratedContext: log.GeneratedContext,
		SearchLogs:       log.SearchLogs,
		CreatedAt:        time.Now(),
	}

	profile.Sources = flattenSources(profile.ID, log.FinalSources)

	if len(log.FinalSources) == 0 {
		profile.ProfileSummary = fmt.Sprintf(
			"No verified sources were found for %s. The searches did not surface results that could be confidently linked to this person.",
			log.SubjectName)
		return profile
	}

	summary, aliases := a.generateSummary(ctx, log)
	profile.ProfileSummary = summary
	profile.Aliases = ValidateAliases(aliases, log.SubjectName)
	return profile
}

func (a *Assembler) generateSummary(ctx context.Context, log *models.ProfileCreationLog) (string, []string) {
	var sources strings.Builder
	for i, src := range log.FinalSources {
		fmt.Fprintf(&sources, "%d. %s (score %d/10, %s confidence)\n   %s\n",
			i+1, src.URL, src.RelevancyScore, src.Confidence, src.Reasoning)
		for _, el := range src.SamePersonElements {
			fmt.Fprintf(&sources, "   - %s\n", el)
		}
	}

	prompt := fmt.Sprintf(`Person: %s
Known Context: %s
Discovered Context: %s

Verified Sources:
%s

Write a factual profile summary of this person based ONLY on the verified sources above. 2-4 sentences. Do not speculate beyond what the sources state.

Also extract any usernames, handles, or aliases this person uses online.

STRICT ALIAS RULES:
- Only include handles actually observed in the source URLs or findings (e.g. a github.com/jdoe URL means the alias "jdoe")
- Aliases must be lowercase handle-style strings, NOT full names or display names
- Do NOT invent plausible-looking handles
- Return an empty array if no handles were observed

Return ONLY valid JSON:
{
  "summary": "profile summary here",
  "aliases": ["handle1", "handle2"]
}`,
		log.SubjectName,
		orNone(log.HardContext),
		orNone(log.GeneratedContext.Format()),
		sources.String())

	raw, err := a.completer.Complete(ctx,
		"You are an OSINT analyst writing factual profile summaries. Respond with ONLY valid JSON.",
		prompt, llm.Options{Temperature: 0.3, MaxTokens: 500})
	if err != nil {
		a.logger.Warn("Summary generation failed, using fallback", zap.Error(err))
		return fallbackSummary(log), nil
	}

	var reply struct {
		Summary string   `json:"summary"`
		Aliases []string `json:"aliases"`
	}
	if err := llm.ExtractJSON(raw, &reply); err != nil || strings.TrimSpace(reply.Summary) == "" {
		a.logger.Warn("Summary response unparseable, using fallback", zap.Error(err))
		return fallbackSummary(log), nil
	}
	return reply.Summary, reply.Aliases
}

func fallbackSummary(log *models.ProfileCreationLog) string {
	return fmt.Sprintf("%d verified sources were found for %s. See the source list for details.",
		len(log.FinalSources), log.SubjectName)
}

// ValidateAliases filters LLM-proposed aliases down to handle-shaped strings
// that plausibly derive from the subject's name: the handle must contain the
// first or last name token (or their initials-joined form).
func ValidateAliases(aliases []string, subjectName string) []string {
	tokens := strings.Fields(strings.ToLower(subjectName))
	valid := []string{}
	seen := make(map[string]bool)

	for _, alias := range aliases {
		alias = strings.ToLower(strings.TrimSpace(alias))
		if alias == "" || seen[alias] || !aliasPattern.MatchString(alias) {
			continue
		}
		if !aliasDerivesFromName(alias, tokens) {
			continue
		}
		seen[alias] = true
		valid = append(valid, alias)
	}
	return valid
}

func aliasDerivesFromName(alias string, tokens []string) bool {
	for _, tok := range tokens {
		if len(tok) > 2 && strings.Contains(alias, tok) {
			return true
		}
	}
	// initials form, e.g. "jdoe" for "john doe"
	if len(tokens) >= 2 {
		initials := ""
		for _, tok := range tokens[:len(tokens)-1] {
			initials += tok[:1]
		}
		last := tokens[len(tokens)-1]
		if strings.Contains(alias, initials+last) {
			return true
		}
	}
	return false
}

// flattenSources maps validation verdicts onto persisted Source rows.
func flattenSources(profileID string, results []models.ValidationResult) []models.Source {
	sources := make([]models.Source, 0, len(results))
	now := time.Now()
	for _, r := range results {
		sources = append(sources, models.Source{
			ID:                  uuid.NewString(),
			ProfileID:           profileID,
			URL:                 r.URL,
			SiteSummary:         strings.Join(r.SamePersonElements, "; "),
			RelevancyScore:      r.RelevancyScore,
			Confidence:          r.Confidence,
			ValidationReasoning: r.Reasoning,
			Category:            r.Category,
			CreatedAt:           now,
		})
	}
	return sources
}

func orNone(s string) string {
	if strings.TrimSpace(s) == "" {
		return "None provided"
	}
	return s
}
