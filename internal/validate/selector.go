package validate

import (
	"sort"

	"github.com/budaic/i-know-where-you-live/internal/models"
)

// Thresholds are the per-category qualifying score floors. Profile pages
// carry a strong structural prior and may use a lower floor.
type Thresholds struct {
	Profile int
	General int
}

// DefaultThresholds match the tuning the phased search runs with.
var DefaultThresholds = Thresholds{Profile: 5, General: 6}

// Qualifies reports whether a verdict clears its category's floor.
func (t Thresholds) Qualifies(r models.ValidationResult) bool {
	if !r.IsLikelyMatch {
		return false
	}
	if r.Category == models.CategoryProfile {
		return r.RelevancyScore >= t.Profile
	}
	return r.RelevancyScore >= t.General
}

// SelectBest reduces a phase's verdicts to at most one winner. Returns nil
// when nothing qualifies, which is not an error: the phase simply adds no
// source to context.
//
// Ordering is deterministic: profile-shaped URLs first, then score
// descending, confidence tier descending, corroborating-evidence count
// descending. The sort is stable, so equal candidates keep input order.
func SelectBest(results []models.ValidationResult, thresholds Thresholds) *models.ValidationResult {
	qualified := make([]models.ValidationResult, 0, len(results))
	for _, r := range results {
		if thresholds.Qualifies(r) {
			qualified = append(qualified, r)
		}
	}
	if len(qualified) == 0 {
		return nil
	}

	sort.SliceStable(qualified, func(i, j int) bool {
		a, b := qualified[i], qualified[j]
		if (a.Category == models.CategoryProfile) != (b.Category == models.CategoryProfile) {
			return a.Category == models.CategoryProfile
		}
		if a.RelevancyScore != b.RelevancyScore {
			return a.RelevancyScore > b.RelevancyScore
		}
		if a.Confidence.Rank() != b.Confidence.Rank() {
			return a.Confidence.Rank() > b.Confidence.Rank()
		}
		return len(a.SamePersonElements) > len(b.SamePersonElements)
	})

	winner := qualified[0]
	return &winner
}

// CollectFinalSources builds the run-level source list: the qualifying
// verdicts from every log, deduplicated by URL (first seen wins), sorted by
// score descending.
func CollectFinalSources(logs []models.SearchLog, thresholds Thresholds) []models.ValidationResult {
	seen := make(map[string]bool)
	var sources []models.ValidationResult

	for _, log := range logs {
		for _, r := range log.ValidatedResults {
			if !thresholds.Qualifies(r) || seen[r.URL] {
				continue
			}
			seen[r.URL] = true
			sources = append(sources, r)
		}
	}

	sort.SliceStable(sources, func(i, j int) bool {
		return sources[i].RelevancyScore > sources[j].RelevancyScore
	})
	return sources
}
