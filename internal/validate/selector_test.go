package validate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/budaic/i-know-where-you-live/internal/models"
)

func verdict(url string, score int, match bool, conf models.Confidence, cat models.Category, elements ...string) models.ValidationResult {
	return models.ValidationResult{
		URL:                url,
		RelevancyScore:     score,
		IsLikelyMatch:      match,
		Confidence:         conf,
		Category:           cat,
		SamePersonElements: elements,
	}
}

func TestQualifies_CategoryThresholds(t *testing.T) {
	th := DefaultThresholds

	// Profile pages clear the lower floor.
	assert.True(t, th.Qualifies(verdict("u", 5, true, models.ConfidenceMedium, models.CategoryProfile)))
	assert.False(t, th.Qualifies(verdict("u", 4, true, models.ConfidenceMedium, models.CategoryProfile)))

	// Everything else needs the general floor.
	assert.True(t, th.Qualifies(verdict("u", 6, true, models.ConfidenceMedium, models.CategoryOther)))
	assert.False(t, th.Qualifies(verdict("u", 5, true, models.ConfidenceMedium, models.CategoryOther)))
	assert.False(t, th.Qualifies(verdict("u", 5, true, models.ConfidenceMedium, models.CategoryPost)))

	// Score alone is not enough.
	assert.False(t, th.Qualifies(verdict("u", 9, false, models.ConfidenceHigh, models.CategoryProfile)))
}

func TestSelectBest_NothingQualifies(t *testing.T) {
	results := []models.ValidationResult{
		verdict("a", 3, true, models.ConfidenceLow, models.CategoryOther),
		verdict("b", 9, false, models.ConfidenceHigh, models.CategoryProfile),
	}
	assert.Nil(t, SelectBest(results, DefaultThresholds))
}

func TestSelectBest_ProfileBeatsHigherScoredPost(t *testing.T) {
	results := []models.ValidationResult{
		verdict("https://example.com/post", 9, true, models.ConfidenceHigh, models.CategoryPost),
		verdict("https://linkedin.com/in/jane", 6, true, models.ConfidenceMedium, models.CategoryProfile),
	}
	best := SelectBest(results, DefaultThresholds)
	require.NotNil(t, best)
	assert.Equal(t, "https://linkedin.com/in/jane", best.URL)
}

func TestSelectBest_ScoreThenConfidenceThenEvidence(t *testing.T) {
	results := []models.ValidationResult{
		verdict("a", 7, true, models.ConfidenceMedium, models.CategoryOther),
		verdict("b", 8, true, models.ConfidenceMedium, models.CategoryOther),
		verdict("c", 8, true, models.ConfidenceHigh, models.CategoryOther),
		verdict("d", 8, true, models.ConfidenceHigh, models.CategoryOther, "e1", "e2"),
	}
	best := SelectBest(results, DefaultThresholds)
	require.NotNil(t, best)
	assert.Equal(t, "d", best.URL)
}

func TestSelectBest_StableForEqualCandidates(t *testing.T) {
	results := []models.ValidationResult{
		verdict("first", 7, true, models.ConfidenceMedium, models.CategoryOther, "e"),
		verdict("second", 7, true, models.ConfidenceMedium, models.CategoryOther, "e"),
	}
	best := SelectBest(results, DefaultThresholds)
	require.NotNil(t, best)
	assert.Equal(t, "first", best.URL)
}

func TestCollectFinalSources_DedupesAndSorts(t *testing.T) {
	logs := []models.SearchLog{
		{
			Phase:     "linkedin",
			Timestamp: time.Now(),
			ValidatedResults: []models.ValidationResult{
				verdict("https://linkedin.com/in/jane", 6, true, models.ConfidenceMedium, models.CategoryProfile),
				verdict("https://example.com/weak", 3, true, models.ConfidenceLow, models.CategoryOther),
			},
		},
		{
			Phase:     "general",
			Timestamp: time.Now(),
			ValidatedResults: []models.ValidationResult{
				// Same URL seen again with a different score: first wins.
				verdict("https://linkedin.com/in/jane", 9, true, models.ConfidenceHigh, models.CategoryProfile),
				verdict("https://janedoe.dev", 8, true, models.ConfidenceHigh, models.CategoryOther),
			},
		},
	}

	sources := CollectFinalSources(logs, DefaultThresholds)
	require.Len(t, sources, 2)
	assert.Equal(t, "https://janedoe.dev", sources[0].URL)
	assert.Equal(t, "https://linkedin.com/in/jane", sources[1].URL)
	assert.Equal(t, 6, sources[1].RelevancyScore)
}
