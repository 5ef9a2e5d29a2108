package models

import (
	"fmt"
	"strings"
)

// Subject is the immutable input for one profile search.
type Subject struct {
	Name        string `json:"name"`
	HardContext string `json:"hardContext"`
	SoftContext string `json:"softContext"`
}

// NameTokens splits the subject name into its first and last tokens.
// A name must contain at least two whitespace-separated tokens.
func (s Subject) NameTokens() (first, last string, err error) {
	parts := strings.Fields(s.Name)
	if len(parts) < 2 {
		return "", "", fmt.Errorf("name %q must contain at least a first and last name", s.Name)
	}
	return strings.ToLower(parts[0]), strings.ToLower(parts[len(parts)-1]), nil
}

// Validate checks that the subject is well formed.
func (s Subject) Validate() error {
	_, _, err := s.NameTokens()
	return err
}
