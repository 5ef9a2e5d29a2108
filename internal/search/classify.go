package search

import (
	"strings"

	"github.com/budaic/i-know-where-you-live/internal/models"
)

// Classify buckets a URL into a closed category by its shape. Profile pages
// carry a strong structural prior, so the selector prefers them.
func Classify(url string) models.Category {
	u := strings.ToLower(url)

	switch {
	case strings.Contains(u, "/posts/"),
		strings.Contains(u, "/pulse/"),
		strings.Contains(u, "/status/"),
		strings.Contains(u, "/blog/"):
		return models.CategoryPost
	case strings.Contains(u, "/company/"),
		strings.Contains(u, "/orgs/"),
		strings.Contains(u, "/school/"):
		return models.CategoryCompany
	case strings.Contains(u, "linkedin.com/in/"):
		return models.CategoryProfile
	case isGitHubUserRoot(u):
		return models.CategoryProfile
	}
	return models.CategoryOther
}

// isGitHubUserRoot reports whether the URL is a bare github.com/<user> page
// rather than a repository or deeper path.
func isGitHubUserRoot(u string) bool {
	idx := strings.Index(u, "github.com/")
	if idx < 0 {
		return false
	}
	rest := strings.Trim(u[idx+len("github.com/"):], "/")
	if rest == "" {
		return false
	}
	return !strings.Contains(rest, "/") && !strings.Contains(rest, "?")
}

// IsLinkedInProfile reports whether the URL is a LinkedIn member profile.
func IsLinkedInProfile(url string) bool {
	u := strings.ToLower(url)
	return strings.Contains(u, "linkedin.com") && strings.Contains(u, "/in/")
}

// IsLinkedInURL reports whether the URL is on LinkedIn at all.
func IsLinkedInURL(url string) bool {
	return strings.Contains(strings.ToLower(url), "linkedin.com")
}
