package orchestrator

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/budaic/i-know-where-you-live/internal/llm"
	"github.com/budaic/i-know-where-you-live/internal/models"
)

type fakeSearcher struct {
	linkedin    []models.CandidateDocument
	linkedinErr error
	github      []models.CandidateDocument
	githubErr   error
	website     []models.CandidateDocument
	websiteErr  error
	general     []models.CandidateDocument
	generalErr  error
}

func (f *fakeSearcher) SearchLinkedIn(ctx context.Context, name string) ([]models.CandidateDocument, error) {
	return f.linkedin, f.linkedinErr
}
func (f *fakeSearcher) SearchGitHub(ctx context.Context, name string) ([]models.CandidateDocument, error) {
	return f.github, f.githubErr
}
func (f *fakeSearcher) SearchWebsite(ctx context.Context, name string) ([]models.CandidateDocument, error) {
	return f.website, f.websiteErr
}
func (f *fakeSearcher) SearchGeneral(ctx context.Context, query string) ([]models.CandidateDocument, error) {
	return f.general, f.generalErr
}

// fakeValidator turns every document into a verdict from its script, keyed
// by URL. Unknown URLs fail.
type fakeValidator struct {
	verdicts map[string]models.ValidationResult
}

func (f *fakeValidator) ValidateBatch(ctx context.Context, docs []models.CandidateDocument, subject models.Subject, generated *models.GeneratedContext) []models.ValidationResult {
	out := make([]models.ValidationResult, 0, len(docs))
	for _, doc := range docs {
		if v, ok := f.verdicts[doc.URL]; ok {
			out = append(out, v)
			continue
		}
		out = append(out, models.ValidationResult{
			URL: doc.URL, RelevancyScore: 1, Confidence: models.ConfidenceLow,
			SamePersonElements: []string{}, DifferentPersonElements: []string{},
			Category: models.CategoryOther,
		})
	}
	return out
}

// routedCompleter answers prompts by substring matching, so one fake can
// serve summaries, query proposals, and yes/no checks in a single run.
type routedCompleter struct {
	routes map[string]string // prompt substring -> reply
	err    error
}

func (r *routedCompleter) Complete(ctx context.Context, system, user string, opts llm.Options) (string, error) {
	if r.err != nil {
		return "", r.err
	}
	for needle, reply := range r.routes {
		if strings.Contains(user, needle) || strings.Contains(system, needle) {
			return reply, nil
		}
	}
	return "", errors.New("no route for prompt")
}

type fakeFetcher struct {
	pages map[string]string
}

func (f *fakeFetcher) Fetch(ctx context.Context, url string) string {
	return f.pages[url]
}

// recordingSink captures event ordering.
type recordingSink struct {
	events []string
	errors []string
}

func (r *recordingSink) PhaseStart(sessionID string, phase models.Phase, message string) {
	r.events = append(r.events, string(phase)+":start")
}
func (r *recordingSink) PhaseProgress(sessionID string, phase models.Phase, status models.Status, message string, results *models.PhaseResults) {
	r.events = append(r.events, string(phase)+":"+string(status))
}
func (r *recordingSink) PhaseComplete(sessionID string, phase models.Phase, message string, results *models.PhaseResults) {
	r.events = append(r.events, string(phase)+":complete")
}
func (r *recordingSink) Error(sessionID string, message string) {
	r.errors = append(r.errors, message)
}

func matchVerdict(url string, score int, cat models.Category) models.ValidationResult {
	return models.ValidationResult{
		URL: url, RelevancyScore: score, IsLikelyMatch: true,
		Confidence: models.ConfidenceHigh, Reasoning: "match",
		SamePersonElements: []string{"context"}, DifferentPersonElements: []string{},
		Category: cat,
	}
}

var testSubject = models.Subject{Name: "Jane Doe", HardContext: "software engineer in Budapest"}

func TestRun_AccumulatesContextAcrossPhases(t *testing.T) {
	searcher := &fakeSearcher{
		linkedin: []models.CandidateDocument{{URL: "https://linkedin.com/in/janedoe", Text: "Jane Doe, engineer"}},
		github:   []models.CandidateDocument{{URL: "https://github.com/janedoe", Text: "janedoe repos"}},
		website:  []models.CandidateDocument{{URL: "https://janedoe.dev", Text: "Jane's site"}},
		general:  []models.CandidateDocument{{URL: "https://news.example.com/jane", Text: "Jane Doe spoke at a conference about Go"}},
	}
	validator := &fakeValidator{verdicts: map[string]models.ValidationResult{
		"https://linkedin.com/in/janedoe": matchVerdict("https://linkedin.com/in/janedoe", 8, models.CategoryProfile),
		"https://github.com/janedoe":      matchVerdict("https://github.com/janedoe", 7, models.CategoryProfile),
		"https://janedoe.dev":             matchVerdict("https://janedoe.dev", 7, models.CategoryOther),
		"https://news.example.com/jane":   matchVerdict("https://news.example.com/jane", 8, models.CategoryOther),
	}}
	completer := &routedCompleter{routes: map[string]string{
		"Summarize the key information": "Jane Doe is a software engineer in Budapest.",
		"Generate 5 search queries":     `[{"query": "Jane Doe conference", "target": "talks"}]`,
	}}
	sink := &recordingSink{}

	o := New(searcher, validator, completer, &fakeFetcher{pages: map[string]string{}}, sink, Config{}, zap.NewNop())
	result, err := o.Run(context.Background(), testSubject, "session-1")

	require.NoError(t, err)
	assert.Equal(t, "Jane Doe is a software engineer in Budapest.", result.GeneratedContext.LinkedInData)
	assert.Equal(t, "Jane Doe is a software engineer in Budapest.", result.GeneratedContext.GitHubData)
	assert.Equal(t, "Jane Doe is a software engineer in Budapest.", result.GeneratedContext.WebsiteData)
	require.NotEmpty(t, result.GeneratedContext.AdditionalFindings)
	assert.Contains(t, result.GeneratedContext.AdditionalFindings[0], "From talks:")

	// linkedin, github, website, one general query log.
	require.Len(t, result.SearchLogs, 4)
	assert.Equal(t, "https://linkedin.com/in/janedoe", result.SearchLogs[0].SelectedURL)

	// Final sources: all four qualifying URLs, deduped, score desc.
	require.Len(t, result.FinalSources, 4)
	assert.Equal(t, 8, result.FinalSources[0].RelevancyScore)

	assert.Empty(t, sink.errors)
	assert.Equal(t, "linkedin:start", sink.events[0])
	assert.Contains(t, sink.events, "general:complete")
}

func TestRun_SearchFailureAbortsButKeepsPartial(t *testing.T) {
	searcher := &fakeSearcher{
		linkedin:  []models.CandidateDocument{{URL: "https://linkedin.com/in/janedoe", Text: "Jane Doe"}},
		githubErr: errors.New("backend down"),
	}
	validator := &fakeValidator{verdicts: map[string]models.ValidationResult{
		"https://linkedin.com/in/janedoe": matchVerdict("https://linkedin.com/in/janedoe", 8, models.CategoryProfile),
	}}
	completer := &routedCompleter{routes: map[string]string{
		"Summarize the key information": "Jane Doe, engineer.",
	}}
	sink := &recordingSink{}

	o := New(searcher, validator, completer, &fakeFetcher{}, sink, Config{}, zap.NewNop())
	result, err := o.Run(context.Background(), testSubject, "session-1")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "GitHub phase")
	require.Len(t, result.SearchLogs, 1, "completed LinkedIn phase is kept")
	require.Len(t, sink.errors, 1)
}

func TestRun_ZeroResultsPhaseContinues(t *testing.T) {
	searcher := &fakeSearcher{
		// Everything empty: the run should still walk all phases cleanly.
		general: nil,
	}
	validator := &fakeValidator{}
	completer := &routedCompleter{routes: map[string]string{
		"Generate 5 search queries": `[{"query": "Jane Doe education", "target": "education"}]`,
	}}
	sink := &recordingSink{}

	o := New(searcher, validator, completer, &fakeFetcher{}, sink, Config{}, zap.NewNop())
	result, err := o.Run(context.Background(), testSubject, "session-1")

	require.NoError(t, err)
	assert.Empty(t, result.FinalSources)
	assert.True(t, result.GeneratedContext.IsEmpty())
	assert.Contains(t, sink.events, "github:complete")
}

func TestRun_FallbackQueriesWhenProposalFails(t *testing.T) {
	searcher := &fakeSearcher{}
	completer := &routedCompleter{err: errors.New("llm down")}

	o := New(searcher, &fakeValidator{}, completer, &fakeFetcher{}, nil, Config{}, zap.NewNop())
	result, err := o.Run(context.Background(), testSubject, "session-1")

	require.NoError(t, err)
	// 3 platform logs + 5 deterministic fallback queries.
	assert.Len(t, result.SearchLogs, 8)
}

func TestRun_WinnerSummaryFallsBackToSnippet(t *testing.T) {
	searcher := &fakeSearcher{
		linkedin: []models.CandidateDocument{{URL: "https://linkedin.com/in/janedoe", Text: "Jane Doe snippet text"}},
	}
	validator := &fakeValidator{verdicts: map[string]models.ValidationResult{
		"https://linkedin.com/in/janedoe": matchVerdict("https://linkedin.com/in/janedoe", 8, models.CategoryProfile),
	}}
	// Summarization fails; fetch returns nothing.
	completer := &routedCompleter{routes: map[string]string{
		"Generate 5 search queries": `[]`,
	}}

	o := New(searcher, validator, completer, &fakeFetcher{}, nil, Config{}, zap.NewNop())
	result, err := o.Run(context.Background(), testSubject, "session-1")

	require.NoError(t, err)
	assert.Contains(t, result.GeneratedContext.LinkedInData, "Jane Doe snippet text",
		"snippet survives when fetch and summarization both fail")
}
