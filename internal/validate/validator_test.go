package validate

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/budaic/i-know-where-you-live/internal/llm"
	"github.com/budaic/i-know-where-you-live/internal/models"
)

// fakeCompleter returns a fixed reply (or error) and counts calls.
type fakeCompleter struct {
	reply string
	err   error
	calls atomic.Int64
}

func (f *fakeCompleter) Complete(ctx context.Context, system, user string, opts llm.Options) (string, error) {
	f.calls.Add(1)
	return f.reply, f.err
}

var subject = models.Subject{
	Name:        "Jane Doe",
	HardContext: "software engineer in Budapest",
}

func candidate(url, text string) models.CandidateDocument {
	return models.CandidateDocument{URL: url, Title: "Result", Text: text, Score: 0.8}
}

func newTestValidator(c llm.Completer) *Validator {
	return NewValidator(c, 3, 0, zap.NewNop())
}

func TestValidate_ParsesVerdict(t *testing.T) {
	completer := &fakeCompleter{reply: `{
		"relevancyScore": 8,
		"isLikelyMatch": true,
		"confidence": "high",
		"reasoning": "employer and city line up",
		"samePersonElements": ["employer", "city"],
		"differentPersonElements": []
	}`}
	v := newTestValidator(completer)

	got := v.Validate(context.Background(), candidate("https://janedoe.dev", "Jane Doe is a software engineer in Budapest"), subject, &models.GeneratedContext{})

	assert.Equal(t, 8, got.RelevancyScore)
	assert.True(t, got.IsLikelyMatch)
	assert.Equal(t, models.ConfidenceHigh, got.Confidence)
	assert.Equal(t, models.CategoryOther, got.Category)
	assert.Equal(t, []string{"employer", "city"}, got.SamePersonElements)
}

func TestValidate_ClampsScore(t *testing.T) {
	completer := &fakeCompleter{reply: `{"relevancyScore": 42, "isLikelyMatch": true, "confidence": "high", "reasoning": "x"}`}
	v := newTestValidator(completer)

	got := v.Validate(context.Background(), candidate("https://janedoe.dev", "jane doe bio"), subject, &models.GeneratedContext{})
	assert.Equal(t, 10, got.RelevancyScore)
	assert.Equal(t, []string{}, got.SamePersonElements, "nil slices normalized")
}

func TestValidate_CompletionErrorFailsSafe(t *testing.T) {
	completer := &fakeCompleter{err: errors.New("llm down")}
	v := newTestValidator(completer)

	got := v.Validate(context.Background(), candidate("https://janedoe.dev", "jane doe bio"), subject, &models.GeneratedContext{})
	assert.Equal(t, 1, got.RelevancyScore)
	assert.False(t, got.IsLikelyMatch)
	assert.Equal(t, models.ConfidenceLow, got.Confidence)
}

func TestValidate_GarbageReplyFailsSafe(t *testing.T) {
	completer := &fakeCompleter{reply: "I am not sure about that."}
	v := newTestValidator(completer)

	got := v.Validate(context.Background(), candidate("https://janedoe.dev", "jane doe bio"), subject, &models.GeneratedContext{})
	assert.False(t, got.IsLikelyMatch)
	assert.Equal(t, 1, got.RelevancyScore)
}

func TestValidate_SanityCheckSkipsLLM(t *testing.T) {
	completer := &fakeCompleter{reply: `{"relevancyScore": 9, "isLikelyMatch": true}`}
	v := newTestValidator(completer)

	got := v.Validate(context.Background(), candidate("https://example.com/article", "an article about someone else entirely"), subject, &models.GeneratedContext{})

	assert.False(t, got.IsLikelyMatch)
	assert.Equal(t, 1, got.RelevancyScore)
	assert.Contains(t, got.DifferentPersonElements, `First name "jane" not found`)
	assert.Contains(t, got.DifferentPersonElements, `Last name "doe" not found`)
	assert.Equal(t, int64(0), completer.calls.Load(), "no LLM call on sanity failure")
}

func TestValidate_SanityCheckNonProfileNeedsBothNames(t *testing.T) {
	completer := &fakeCompleter{reply: `{"relevancyScore": 7, "isLikelyMatch": true, "confidence": "medium", "reasoning": "x"}`}
	v := newTestValidator(completer)

	// Only the last name appears; a generic page must carry both.
	got := v.Validate(context.Background(), candidate("https://example.com/article", "the doe family archive"), subject, &models.GeneratedContext{})
	assert.False(t, got.IsLikelyMatch)
	assert.Equal(t, int64(0), completer.calls.Load())
}

func TestValidate_LinkedInProfileAcceptsSingleToken(t *testing.T) {
	completer := &fakeCompleter{reply: `{"relevancyScore": 6, "isLikelyMatch": true, "confidence": "medium", "reasoning": "x"}`}
	v := newTestValidator(completer)

	got := v.Validate(context.Background(), candidate("https://linkedin.com/in/jdoe", "Doe - Software Engineer"), subject, &models.GeneratedContext{})
	assert.True(t, got.IsLikelyMatch)
	assert.Equal(t, models.CategoryProfile, got.Category)
	assert.Equal(t, int64(1), completer.calls.Load())
}

func TestValidateBatch_PreservesOrder(t *testing.T) {
	completer := &fakeCompleter{reply: `{"relevancyScore": 7, "isLikelyMatch": true, "confidence": "medium", "reasoning": "x"}`}
	v := newTestValidator(completer)

	docs := []models.CandidateDocument{
		candidate("https://a.example.com", "jane doe a"),
		candidate("https://b.example.com", "jane doe b"),
		candidate("https://c.example.com", "jane doe c"),
		candidate("https://d.example.com", "jane doe d"),
	}
	results := v.ValidateBatch(context.Background(), docs, subject, &models.GeneratedContext{})

	require.Len(t, results, 4)
	for i, r := range results {
		assert.Equal(t, docs[i].URL, r.URL)
	}
}

func TestValidateBatch_CancelledContextFailsRemainderSafe(t *testing.T) {
	completer := &fakeCompleter{reply: `{"relevancyScore": 7, "isLikelyMatch": true, "confidence": "medium", "reasoning": "x"}`}
	v := NewValidator(completer, 2, 10, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	docs := []models.CandidateDocument{
		candidate("https://a.example.com", "jane doe a"),
		candidate("https://b.example.com", "jane doe b"),
		candidate("https://c.example.com", "jane doe c"),
	}
	results := v.ValidateBatch(ctx, docs, subject, &models.GeneratedContext{})

	require.Len(t, results, 3)
	assert.Equal(t, "Validation cancelled", results[2].Reasoning)
}

func TestTruncateKeepsRunesWhole(t *testing.T) {
	s := "r\u00e9sum\u00e9 of J\u00f8rgen"
	for n := 0; n <= len(s); n++ {
		got := truncate(s, n)
		assert.True(t, utf8.ValidString(got), "cut at %d produced invalid UTF-8: %q", n, got)
		assert.LessOrEqual(t, len(got), n)
	}
}
