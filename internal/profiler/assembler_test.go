package profiler

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/budaic/i-know-where-you-live/internal/llm"
	"github.com/budaic/i-know-where-you-live/internal/models"
)

type fakeCompleter struct {
	reply string
	err   error
}

func (f *fakeCompleter) Complete(ctx context.Context, system, user string, opts llm.Options) (string, error) {
	return f.reply, f.err
}

func creationLog(sources ...models.ValidationResult) *models.ProfileCreationLog {
	return &models.ProfileCreationLog{
		SubjectName:  "Jane Doe",
		HardContext:  "software engineer in Budapest",
		FinalSources: sources,
		SearchLogs:   []models.SearchLog{{Phase: "LinkedIn"}},
	}
}

func source(url string, score int) models.ValidationResult {
	return models.ValidationResult{
		URL: url, RelevancyScore: score, IsLikelyMatch: true,
		Confidence: models.ConfidenceHigh, Reasoning: "match",
		SamePersonElements: []string{"employer"}, Category: models.CategoryProfile,
	}
}

func TestAssemble_EmptySourcesFallback(t *testing.T) {
	a := NewAssembler(&fakeCompleter{reply: "should not be called"}, zap.NewNop())

	profile := a.Assemble(context.Background(), creationLog())

	assert.NotEmpty(t, profile.ID)
	assert.Equal(t, "Jane Doe", profile.Name)
	assert.Contains(t, profile.ProfileSummary, "No verified sources")
	assert.Empty(t, profile.Sources)
	assert.Empty(t, profile.Aliases)
}

func TestAssemble_SummaryAndAliases(t *testing.T) {
	a := NewAssembler(&fakeCompleter{reply: `{
		"summary": "Jane Doe is a software engineer based in Budapest.",
		"aliases": ["janedoe", "jdoe99", "Jane Doe", "totally-unrelated"]
	}`}, zap.NewNop())

	log := creationLog(source("https://linkedin.com/in/janedoe", 8), source("https://github.com/janedoe", 7))
	profile := a.Assemble(context.Background(), log)

	assert.Equal(t, "Jane Doe is a software engineer based in Budapest.", profile.ProfileSummary)
	// Handle-shaped, name-derived aliases survive; display names and
	// unrelated handles are filtered out.
	assert.Equal(t, []string{"janedoe", "jdoe99"}, profile.Aliases)

	require.Len(t, profile.Sources, 2)
	assert.Equal(t, profile.ID, profile.Sources[0].ProfileID)
	assert.Equal(t, "https://linkedin.com/in/janedoe", profile.Sources[0].URL)
	assert.Equal(t, models.ConfidenceHigh, profile.Sources[0].Confidence)
	assert.Equal(t, "employer", profile.Sources[0].SiteSummary)
}

func TestAssemble_LLMFailureDegrades(t *testing.T) {
	a := NewAssembler(&fakeCompleter{err: errors.New("llm down")}, zap.NewNop())

	profile := a.Assemble(context.Background(), creationLog(source("https://janedoe.dev", 8)))

	assert.Contains(t, profile.ProfileSummary, "1 verified sources")
	assert.Empty(t, profile.Aliases)
	require.Len(t, profile.Sources, 1)
}

func TestValidateAliases(t *testing.T) {
	got := ValidateAliases([]string{
		"janedoe",   // contains last name
		"jane_d",    // contains first name
		"jdoe",      // initials + last name
		"JDoe",      // normalized to lowercase then kept
		"Jane Doe",  // display name, rejected by pattern
		"x__y",      // two separators, rejected
		"cooldev42", // handle-shaped but unrelated to the name
		"janedoe",   // duplicate
		"",          // empty
		"doe-jane",  // separator form
	}, "Jane Doe")

	assert.Equal(t, []string{"janedoe", "jane_d", "jdoe", "doe-jane"}, got)
}

func TestValidateAliases_ShortTokensIgnored(t *testing.T) {
	// "B." is too short to anchor an alias; only the surname can.
	got := ValidateAliases([]string{"bnagy", "nagy42", "b"}, "B. Nagy")
	assert.Equal(t, []string{"bnagy", "nagy42"}, got)
}
