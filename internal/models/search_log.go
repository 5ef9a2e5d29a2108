package models

import (
	"strings"
	"time"
)

// GeneratedContext accumulates facts discovered during one search run.
// It is mutated only by the orchestrator, never rolled back.
type GeneratedContext struct {
	LinkedInData       string   `json:"linkedinData,omitempty"`
	GitHubData         string   `json:"githubData,omitempty"`
	WebsiteData        string   `json:"websiteData,omitempty"`
	AdditionalFindings []string `json:"additionalFindings"`
}

// Format renders the accumulated context for inclusion in prompts.
func (g *GeneratedContext) Format() string {
	var parts []string
	if g.LinkedInData != "" {
		parts = append(parts, "LinkedIn: "+g.LinkedInData)
	}
	if g.GitHubData != "" {
		parts = append(parts, "GitHub: "+g.GitHubData)
	}
	if g.WebsiteData != "" {
		parts = append(parts, "Website: "+g.WebsiteData)
	}
	if len(g.AdditionalFindings) > 0 {
		parts = append(parts, "Additional: "+strings.Join(g.AdditionalFindings, "; "))
	}
	return strings.Join(parts, " | ")
}

// IsEmpty reports whether nothing has been accumulated yet.
func (g *GeneratedContext) IsEmpty() bool {
	return g.LinkedInData == "" && g.GitHubData == "" && g.WebsiteData == "" &&
		len(g.AdditionalFindings) == 0
}

// SearchLog records one phase execution. Append-only across a run.
type SearchLog struct {
	Phase            string             `json:"phase"`
	Query            string             `json:"query"`
	ResultsFound     int                `json:"resultsFound"`
	ValidatedResults []ValidationResult `json:"validatedResults"`
	SelectedURL      string             `json:"selectedUrl,omitempty"`
	ContextAdded     string             `json:"contextAdded,omitempty"`
	Timestamp        time.Time          `json:"timestamp"`
	SearchRound      int                `json:"searchRound,omitempty"`
	TotalRounds      int                `json:"totalRounds,omitempty"`
}

// ProfileCreationLog is the run-level aggregate handed to the profile assembler.
type ProfileCreationLog struct {
	SubjectName      string             `json:"subjectName"`
	HardContext      string             `json:"hardContext"`
	SoftContext      string             `json:"softContext"`
	GeneratedContext GeneratedContext   `json:"generatedContext"`
	SearchLogs       []SearchLog        `json:"searchLogs"`
	FinalSources     []ValidationResult `json:"finalSources"`
}
