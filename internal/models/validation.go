package models

// Confidence is the validator's self-reported certainty tier.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// Rank orders confidence tiers for sorting, higher is better.
func (c Confidence) Rank() int {
	switch c {
	case ConfidenceHigh:
		return 3
	case ConfidenceMedium:
		return 2
	case ConfidenceLow:
		return 1
	}
	return 0
}

// Category classifies a candidate URL by its shape.
type Category string

const (
	CategoryProfile Category = "profile"
	CategoryPost    Category = "post"
	CategoryCompany Category = "company"
	CategoryOther   Category = "other"
)

// ValidationResult is the verdict on a single candidate document.
// Immutable once produced.
type ValidationResult struct {
	URL                     string     `json:"url"`
	RelevancyScore          int        `json:"relevancyScore"` // integer in [1,10]
	IsLikelyMatch           bool       `json:"isLikelyMatch"`
	Confidence              Confidence `json:"confidence"`
	Reasoning               string     `json:"reasoning"`
	SamePersonElements      []string   `json:"samePersonElements"`
	DifferentPersonElements []string   `json:"differentPersonElements"`
	Category                Category   `json:"category"`
}

// CandidateDocument is one raw search hit before validation.
type CandidateDocument struct {
	URL     string  `json:"url"`
	Title   string  `json:"title"`
	Text    string  `json:"text,omitempty"`
	Summary string  `json:"summary,omitempty"`
	Score   float64 `json:"score,omitempty"`
}
