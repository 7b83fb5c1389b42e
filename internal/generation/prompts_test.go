package generation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/cardpress/internal/models"
)

func TestRecommendedCount(t *testing.T) {
	tests := []struct {
		name   string
		length int
		want   int
	}{
		{"short", 100, 3},
		{"just under medium", 499, 3},
		{"medium", 500, 5},
		{"long", 1500, 7},
		{"very long", 3000, 9},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			content := make([]rune, tt.length)
			for i := range content {
				content[i] = 'a'
			}
			assert.Equal(t, tt.want, RecommendedCount(string(content)))
		})
	}
}

func TestStripFences(t *testing.T) {
	assert.Equal(t, `{"a":1}`, stripFences("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, stripFences("```\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, stripFences(`{"a":1}`))
	assert.Equal(t, `{"a":1}`, stripFences("  {\"a\":1}  "))
}

func TestParseSummary(t *testing.T) {
	payload, err := parseSummary("```json\n{\"summary\": \"Two sentences.\", \"keywords\": [\"go\", \"feeds\"]}\n```")
	require.NoError(t, err)
	assert.Equal(t, "Two sentences.", payload.Summary)
	assert.Equal(t, []string{"go", "feeds"}, payload.Keywords)

	_, err = parseSummary("I could not summarize this.")
	assert.Error(t, err)

	_, err = parseSummary(`{"summary": "", "keywords": []}`)
	assert.Error(t, err)
}

func TestParseSectionsNormalizesKinds(t *testing.T) {
	raw := `{"sections": [
		{"kind": "weird", "title": "A", "body": "first"},
		{"kind": "body", "title": "B", "body": "second"},
		{"kind": "body", "title": "C", "body": "third"}
	]}`

	drafts := parseSections(raw)
	require.Len(t, drafts, 3)
	assert.Equal(t, models.KindOpening, drafts[0].Kind)
	assert.Equal(t, models.KindBody, drafts[1].Kind)
	assert.Equal(t, models.KindClosing, drafts[2].Kind)
}

func TestParseSectionsFallback(t *testing.T) {
	drafts := parseSections("First paragraph.\n\nSecond paragraph.\n\nThird paragraph.")
	require.Len(t, drafts, 3)
	assert.Equal(t, models.KindOpening, drafts[0].Kind)
	assert.Equal(t, "First paragraph.", drafts[0].Body)
	assert.Equal(t, models.KindClosing, drafts[2].Kind)

	assert.Nil(t, parseSections("   "))
}

func TestParseChat(t *testing.T) {
	payload := parseChat(`{"reply": "Done.", "action_taken": "shortened section 2", "sections": [{"kind": "opening", "title": "T", "body": "B"}]}`)
	assert.Equal(t, "Done.", payload.Reply)
	assert.Equal(t, "shortened section 2", payload.ActionTaken)
	require.Len(t, payload.Sections, 1)

	conversational := parseChat("Sure, what would you like changed?")
	assert.Equal(t, "Sure, what would you like changed?", conversational.Reply)
	assert.Equal(t, "no changes", conversational.ActionTaken)
	assert.Nil(t, conversational.Sections)
}
