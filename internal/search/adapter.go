package search

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/budaic/i-know-where-you-live/internal/models"
)

// Adapter layers platform-specific query shaping, retries, and URL
// deduplication over a raw search backend. A failed query never escapes a
// single platform call as an error for an individual item: the caller gets
// whatever was collected plus a logged omission. Only a total backend
// failure (no attempt succeeded) is surfaced.
type Adapter struct {
	backend      Backend
	logger       *zap.Logger
	attemptDelay time.Duration
}

const (
	linkedinMaxAttempts   = 3
	linkedinTargetResults = 5
	defaultNumResults     = 10
)

// NewAdapter creates a platform-aware search adapter.
func NewAdapter(backend Backend, logger *zap.Logger) *Adapter {
	return &Adapter{
		backend:      backend,
		logger:       logger,
		attemptDelay: time.Second,
	}
}

// SetAttemptDelay overrides the inter-attempt delay. Used by tests.
func (a *Adapter) SetAttemptDelay(d time.Duration) {
	a.attemptDelay = d
}

// SearchLinkedIn looks for LinkedIn member profiles with progressively
// broader query phrasings, stopping early once the target count is met.
// Results are deduplicated by URL across attempts, filtered to profile
// pages, and sorted by backend score descending.
func (a *Adapter) SearchLinkedIn(ctx context.Context, name string) ([]models.CandidateDocument, error) {
	queries := []string{
		fmt.Sprintf("%s site:linkedin.com/in/", name),
		fmt.Sprintf("%q site:linkedin.com/in/", name),
		fmt.Sprintf("%s linkedin profile site:linkedin.com/in/", name),
	}

	seen := make(map[string]bool)
	var all []models.CandidateDocument
	succeeded := 0

	for attempt, query := range queries[:linkedinMaxAttempts] {
		docs, err := a.backend.Query(ctx, query, defaultNumResults)
		if err != nil {
			a.logger.Warn("LinkedIn search attempt failed",
				zap.Int("attempt", attempt+1), zap.Error(err))
		} else {
			succeeded++
		}
		for _, doc := range docs {
			if seen[doc.URL] || !IsLinkedInURL(doc.URL) {
				continue
			}
			seen[doc.URL] = true
			all = append(all, doc)
		}

		if countProfiles(all) >= linkedinTargetResults {
			break
		}
		if attempt < linkedinMaxAttempts-1 {
			a.sleep(ctx)
		}
	}

	// A broader fallback pass when the targeted queries came up short.
	if countProfiles(all) < linkedinTargetResults {
		docs, err := a.backend.Query(ctx, fmt.Sprintf("%s site:linkedin.com", name), 2*defaultNumResults)
		if err != nil {
			a.logger.Warn("LinkedIn fallback search failed", zap.Error(err))
		} else {
			succeeded++
		}
		for _, doc := range docs {
			if seen[doc.URL] || !IsLinkedInProfile(doc.URL) {
				continue
			}
			seen[doc.URL] = true
			all = append(all, doc)
		}
	}

	if succeeded == 0 {
		return nil, fmt.Errorf("linkedin search: all attempts failed")
	}

	profiles := make([]models.CandidateDocument, 0, linkedinTargetResults)
	for _, doc := range all {
		if IsLinkedInProfile(doc.URL) {
			profiles = append(profiles, doc)
		}
	}
	sort.SliceStable(profiles, func(i, j int) bool {
		return profiles[i].Score > profiles[j].Score
	})
	if len(profiles) > linkedinTargetResults {
		profiles = profiles[:linkedinTargetResults]
	}

	a.logger.Info("LinkedIn search complete",
		zap.String("name", name),
		zap.Int("urls_seen", len(all)),
		zap.Int("profiles", len(profiles)))
	return profiles, nil
}

// SearchGitHub looks for the subject's GitHub presence.
func (a *Adapter) SearchGitHub(ctx context.Context, name string) ([]models.CandidateDocument, error) {
	return a.single(ctx, fmt.Sprintf("%s github", name))
}

// SearchWebsite looks for a personal website or portfolio.
func (a *Adapter) SearchWebsite(ctx context.Context, name string) ([]models.CandidateDocument, error) {
	return a.single(ctx, fmt.Sprintf("%s personal website OR portfolio", name))
}

// SearchGeneral runs an arbitrary query.
func (a *Adapter) SearchGeneral(ctx context.Context, query string) ([]models.CandidateDocument, error) {
	return a.single(ctx, query)
}

func (a *Adapter) single(ctx context.Context, query string) ([]models.CandidateDocument, error) {
	docs, err := a.backend.Query(ctx, query, defaultNumResults)
	if err != nil {
		return nil, fmt.Errorf("search %q: %w", query, err)
	}
	return dedupe(docs), nil
}

func (a *Adapter) sleep(ctx context.Context) {
	select {
	case <-ctx.Done():
	case <-time.After(a.attemptDelay):
	}
}

func countProfiles(docs []models.CandidateDocument) int {
	n := 0
	for _, doc := range docs {
		if IsLinkedInProfile(doc.URL) {
			n++
		}
	}
	return n
}

func dedupe(docs []models.CandidateDocument) []models.CandidateDocument {
	seen := make(map[string]bool, len(docs))
	out := docs[:0]
	for _, doc := range docs {
		if seen[doc.URL] {
			continue
		}
		seen[doc.URL] = true
		out = append(out, doc)
	}
	return out
}
