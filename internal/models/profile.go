package models

import "time"

// Source is a persisted, flattened ValidationResult attached to a profile.
type Source struct {
	ID                  string     `json:"id,omitempty" db:"id"`
	ProfileID           string     `json:"profileId,omitempty" db:"profile_id"`
	URL                 string     `json:"url" db:"url"`
	SiteSummary         string     `json:"siteSummary" db:"site_summary"`
	RelevancyScore      int        `json:"relevancyScore" db:"relevancy_score"`
	Confidence          Confidence `json:"confidence" db:"confidence"`
	ValidationReasoning string     `json:"validationReasoning" db:"validation_reasoning"`
	Category            Category   `json:"category" db:"category"`
	CreatedAt           time.Time  `json:"createdAt,omitempty" db:"created_at"`
}

// Profile is the final persisted entity. Immutable once stored except for deletion.
type Profile struct {
	ID               string           `json:"id,omitempty"`
	Name             string           `json:"name"`
	Aliases          []string         `json:"aliases"`
	ProfileSummary   string           `json:"profileSummary"`
	Sources          []Source         `json:"sources"`
	HardContext      string           `json:"hardContext"`
	SoftContext      string           `json:"softContext"`
	GeneratedContext GeneratedContext `json:"generatedContext"`
	SearchLogs       []SearchLog      `json:"searchLogs"`
	CreatedAt        time.Time        `json:"createdAt,omitempty"`
}
