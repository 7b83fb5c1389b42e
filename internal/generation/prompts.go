package generation

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jonesrussell/cardpress/internal/models"
)

const summarizeSystem = `You summarize articles for a card-based content editor.
Respond with a single JSON object and nothing else:
{"summary": "...", "keywords": ["...", "..."]}
The summary is 2-4 sentences in the article's language. Keywords are 3-6 short phrases.`

const sectionsSystem = `You split an article summary into presentation sections for a card-based editor.
Respond with a single JSON object and nothing else:
{"sections": [{"kind": "opening|body|closing", "title": "...", "body": "..."}]}
The first section kind is "opening", the last is "closing", the rest are "body".
Each body is 1-3 sentences. Produce exactly the requested number of sections.`

const chatSystem = `You edit presentation sections for a card-based editor based on user instructions.
Respond with a single JSON object and nothing else:
{"reply": "...", "action_taken": "...", "sections": [{"kind": "...", "title": "...", "body": "..."}]}
If the instruction changes the sections, return the FULL updated section list in "sections".
If the instruction is a question or requires no change, omit "sections" entirely.
"action_taken" is a short past-tense phrase describing what you did, e.g. "shortened section 2" or "no changes".`

func summarizePrompt(title, content string) string {
	var b strings.Builder
	if title != "" {
		fmt.Fprintf(&b, "Title: %s\n\n", title)
	}
	fmt.Fprintf(&b, "Article:\n%s", content)
	return b.String()
}

func sectionsPrompt(title, summary string, count int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Produce exactly %d sections.\n\n", count)
	if title != "" {
		fmt.Fprintf(&b, "Title: %s\n\n", title)
	}
	fmt.Fprintf(&b, "Summary:\n%s", summary)
	return b.String()
}

func chatPrompt(req ChatRequest) string {
	var b strings.Builder
	b.WriteString("Current sections:\n")
	for i, s := range req.Sections {
		fmt.Fprintf(&b, "%d. [%s] %s: %s\n", i+1, s.Kind, s.Title, s.Body)
	}
	if len(req.History) > 0 {
		b.WriteString("\nRecent conversation:\n")
		for _, turn := range req.History {
			fmt.Fprintf(&b, "%s: %s\n", turn.Role, turn.Content)
		}
	}
	fmt.Fprintf(&b, "\nInstruction: %s", req.Instruction)
	return b.String()
}

// stripFences removes a markdown code fence wrapper, if present, so the
// remainder can be parsed as JSON.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

type summaryPayload struct {
	Summary  string   `json:"summary"`
	Keywords []string `json:"keywords"`
}

type sectionsPayload struct {
	Sections []SectionDraft `json:"sections"`
}

type chatPayload struct {
	Reply       string         `json:"reply"`
	ActionTaken string         `json:"action_taken"`
	Sections    []SectionDraft `json:"sections"`
}

func parseSummary(raw string) (*summaryPayload, error) {
	var payload summaryPayload
	if err := json.Unmarshal([]byte(stripFences(raw)), &payload); err != nil {
		return nil, fmt.Errorf("%w: summary response not valid JSON", models.ErrGenerationFailed)
	}
	if payload.Summary == "" {
		return nil, fmt.Errorf("%w: empty summary", models.ErrGenerationFailed)
	}
	return &payload, nil
}

// parseSections decodes a section batch, normalizing unknown kinds. When
// the response is not JSON at all, the raw text becomes a single body
// section so a usable artifact still comes out of a sloppy response.
func parseSections(raw string) []SectionDraft {
	trimmed := stripFences(raw)
	var payload sectionsPayload
	if err := json.Unmarshal([]byte(trimmed), &payload); err != nil || len(payload.Sections) == 0 {
		return fallbackSections(trimmed)
	}
	for i := range payload.Sections {
		if !payload.Sections[i].Kind.IsValid() {
			payload.Sections[i].Kind = models.KindBody
		}
	}
	payload.Sections[0].Kind = models.KindOpening
	if len(payload.Sections) > 1 {
		payload.Sections[len(payload.Sections)-1].Kind = models.KindClosing
	}
	return payload.Sections
}

// fallbackSections splits raw text on blank lines into body sections.
func fallbackSections(raw string) []SectionDraft {
	paragraphs := strings.Split(raw, "\n\n")
	drafts := make([]SectionDraft, 0, len(paragraphs))
	for _, p := range paragraphs {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		drafts = append(drafts, SectionDraft{Kind: models.KindBody, Body: p})
	}
	if len(drafts) == 0 {
		return nil
	}
	drafts[0].Kind = models.KindOpening
	if len(drafts) > 1 {
		drafts[len(drafts)-1].Kind = models.KindClosing
	}
	return drafts
}

func parseChat(raw string) *chatPayload {
	trimmed := stripFences(raw)
	var payload chatPayload
	if err := json.Unmarshal([]byte(trimmed), &payload); err != nil || payload.Reply == "" {
		// Treat a non-JSON response as a plain conversational reply.
		return &chatPayload{Reply: strings.TrimSpace(raw), ActionTaken: "no changes"}
	}
	for i := range payload.Sections {
		if !payload.Sections[i].Kind.IsValid() {
			payload.Sections[i].Kind = models.KindBody
		}
	}
	if payload.ActionTaken == "" {
		payload.ActionTaken = "no changes"
	}
	return &payload
}
