// Package generation produces summaries, section batches and chat-driven
// edits through an external text-generation collaborator.
package generation

import (
	"context"

	"github.com/jonesrussell/cardpress/internal/models"
)

// Recommended section count tiers by content length (runes).
const (
	shortContent  = 500
	mediumContent = 1500
	longContent   = 3000

	countShort  = 3
	countMedium = 5
	countLong   = 7
	countMax    = 9
)

// SummaryResult is the output of the summarization step.
type SummaryResult struct {
	Summary          string   `json:"summary"`
	Keywords         []string `json:"keywords"`
	RecommendedCount int      `json:"recommended_count"`
	Model            string   `json:"model"`
}

// SectionDraft is one generated section before persistence.
type SectionDraft struct {
	Kind  models.SectionKind `json:"kind"`
	Title string             `json:"title"`
	Body  string             `json:"body"`
}

// ChatTurn is one prior exchange in a chat conversation.
type ChatTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest carries a mutation instruction plus the current state.
type ChatRequest struct {
	Instruction string
	Sections    []models.Section
	History     []ChatTurn
}

// ChatResult is the collaborator's answer to a chat instruction. Sections
// is nil when the instruction was conversational and changed nothing.
type ChatResult struct {
	Reply       string
	Sections    []SectionDraft
	ActionTaken string
}

// Generator is the text-generation collaborator interface.
type Generator interface {
	Summarize(ctx context.Context, title, content string) (*SummaryResult, error)
	GenerateSections(ctx context.Context, title, summary string, count int) ([]SectionDraft, error)
	Chat(ctx context.Context, req ChatRequest) (*ChatResult, error)
}

// RecommendedCount maps content length to a section count tier.
func RecommendedCount(content string) int {
	length := len([]rune(content))
	switch {
	case length < shortContent:
		return countShort
	case length < mediumContent:
		return countMedium
	case length < longContent:
		return countLong
	default:
		return countMax
	}
}
