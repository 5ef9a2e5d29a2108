package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNameTokens(t *testing.T) {
	first, last, err := Subject{Name: "Jane Doe"}.NameTokens()
	require.NoError(t, err)
	assert.Equal(t, "jane", first)
	assert.Equal(t, "doe", last)

	// Middle names collapse to the outer tokens.
	first, last, err = Subject{Name: "Jane Marie van Doe"}.NameTokens()
	require.NoError(t, err)
	assert.Equal(t, "jane", first)
	assert.Equal(t, "doe", last)
}

func TestNameTokens_SingleToken(t *testing.T) {
	_, _, err := Subject{Name: "Madonna"}.NameTokens()
	assert.Error(t, err)
	assert.Error(t, Subject{Name: "  "}.Validate())
}

func TestGeneratedContextFormat(t *testing.T) {
	g := &GeneratedContext{}
	assert.True(t, g.IsEmpty())
	assert.Equal(t, "", g.Format())

	g.LinkedInData = "Engineer at Acme"
	g.AdditionalFindings = []string{"spoke at GopherCon", "maintains an OSS project"}
	assert.False(t, g.IsEmpty())
	assert.Equal(t,
		"LinkedIn: Engineer at Acme | Additional: spoke at GopherCon; maintains an OSS project",
		g.Format())
}
