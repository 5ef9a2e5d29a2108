package search

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/budaic/i-know-where-you-live/internal/models"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		url  string
		want models.Category
	}{
		{"https://www.linkedin.com/in/janedoe", models.CategoryProfile},
		{"https://linkedin.com/in/janedoe/", models.CategoryProfile},
		{"https://github.com/janedoe", models.CategoryProfile},
		{"https://github.com/janedoe/some-repo", models.CategoryOther},
		{"https://www.linkedin.com/posts/janedoe_update-123", models.CategoryPost},
		{"https://www.linkedin.com/pulse/article-janedoe", models.CategoryPost},
		{"https://twitter.com/janedoe/status/12345", models.CategoryPost},
		{"https://example.com/blog/post-about-jane", models.CategoryPost},
		{"https://www.linkedin.com/company/acme", models.CategoryCompany},
		{"https://github.com/orgs/acme", models.CategoryCompany},
		{"https://www.linkedin.com/school/unideb", models.CategoryCompany},
		{"https://janedoe.dev/about", models.CategoryOther},
		{"https://news.example.com/article", models.CategoryOther},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Classify(tt.url), "url %s", tt.url)
	}
}

func TestClassify_PostBeatsProfileShape(t *testing.T) {
	// A LinkedIn post URL that also mentions a member path segment stays a
	// post: the content is an update, not the person's profile page.
	assert.Equal(t, models.CategoryPost,
		Classify("https://www.linkedin.com/posts/activity?in/janedoe"))
}

func TestIsLinkedInProfile(t *testing.T) {
	assert.True(t, IsLinkedInProfile("https://www.linkedin.com/in/janedoe"))
	assert.False(t, IsLinkedInProfile("https://www.linkedin.com/company/acme"))
	assert.False(t, IsLinkedInProfile("https://example.com/in/janedoe"))
}
