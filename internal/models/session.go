package models

import "time"

// Phase names the orchestrator's states.
type Phase string

const (
	PhaseStarting Phase = "starting"
	PhaseLinkedIn Phase = "linkedin"
	PhaseGitHub   Phase = "github"
	PhaseWebsite  Phase = "website"
	PhaseGeneral  Phase = "general"
	PhaseComplete Phase = "complete"
	PhaseError    Phase = "error"
)

// Status is the position within a phase.
type Status string

const (
	StatusStarting   Status = "starting"
	StatusSearching  Status = "searching"
	StatusValidating Status = "validating"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// PhaseResults carries optional per-event payload data.
type PhaseResults struct {
	Found        int        `json:"found,omitempty"`
	Qualified    int        `json:"qualified,omitempty"`
	ContextAdded string     `json:"contextAdded,omitempty"`
	SearchLog    *SearchLog `json:"searchLog,omitempty"`
}

// ProgressUpdate is one live event pushed to a subscribed client.
type ProgressUpdate struct {
	SessionID   string        `json:"sessionId"`
	SubjectName string        `json:"subjectName"`
	Phase       Phase         `json:"phase"`
	Status      Status        `json:"status"`
	Message     string        `json:"message"`
	Progress    float64       `json:"progress"`
	Results     *PhaseResults `json:"results,omitempty"`
	Timestamp   time.Time     `json:"timestamp"`
}

// LiveSearchSession tracks one in-flight or recently completed run.
type LiveSearchSession struct {
	SessionID      string    `json:"sessionId"`
	SubjectName    string    `json:"subjectName"`
	StartTime      time.Time `json:"startTime"`
	CurrentPhase   Phase     `json:"currentPhase"`
	Progress       float64   `json:"progress"`
	Errors         []string  `json:"errors"`
	IsActive       bool      `json:"isActive"`
	PartialProfile *Profile  `json:"partialProfile,omitempty"`
	LastUpdate     time.Time `json:"lastUpdate"`
	IsComplete     bool      `json:"isComplete"`
	FinalProfile   *Profile  `json:"finalProfile,omitempty"`
}

// Clone copies the session along with every slice the tracker keeps
// appending to while a run is live, so callers can read or serialize the
// result without holding the tracker's lock. FinalProfile is written once
// at completion and is shared.
func (s *LiveSearchSession) Clone() *LiveSearchSession {
	out := *s
	out.Errors = append([]string(nil), s.Errors...)
	if s.PartialProfile != nil {
		partial := *s.PartialProfile
		partial.SearchLogs = append([]SearchLog(nil), s.PartialProfile.SearchLogs...)
		out.PartialProfile = &partial
	}
	return &out
}
