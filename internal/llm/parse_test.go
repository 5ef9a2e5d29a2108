package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scored struct {
	Score     int    `json:"score"`
	Reasoning string `json:"reasoning"`
}

func TestExtractJSON_Plain(t *testing.T) {
	var out scored
	err := ExtractJSON(`{"score": 7, "reasoning": "matches"}`, &out)
	require.NoError(t, err)
	assert.Equal(t, 7, out.Score)
	assert.Equal(t, "matches", out.Reasoning)
}

func TestExtractJSON_CodeFence(t *testing.T) {
	raw := "```json\n{\"score\": 3, \"reasoning\": \"weak\"}\n```"
	var out scored
	require.NoError(t, ExtractJSON(raw, &out))
	assert.Equal(t, 3, out.Score)
}

func TestExtractJSON_SurroundingProse(t *testing.T) {
	raw := `Sure, here is the assessment: {"score": 9, "reasoning": "same employer and city"} Hope that helps!`
	var out scored
	require.NoError(t, ExtractJSON(raw, &out))
	assert.Equal(t, 9, out.Score)
}

func TestExtractJSON_NestedBracesInsideStrings(t *testing.T) {
	raw := `{"score": 5, "reasoning": "page says {unbalanced"}`
	var out scored
	require.NoError(t, ExtractJSON(raw, &out))
	assert.Equal(t, "page says {unbalanced", out.Reasoning)
}

func TestExtractJSON_Array(t *testing.T) {
	raw := "Queries:\n```json\n[\"a b\", \"c d\"]\n```"
	var out []string
	require.NoError(t, ExtractJSON(raw, &out))
	assert.Equal(t, []string{"a b", "c d"}, out)
}

func TestExtractJSON_NoJSON(t *testing.T) {
	var out scored
	err := ExtractJSON("I cannot answer that.", &out)
	assert.Error(t, err)
}
