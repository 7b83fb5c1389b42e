package generation

import (
	"context"
	"fmt"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/jonesrussell/cardpress/internal/config"
	"github.com/jonesrussell/cardpress/internal/logger"
	"github.com/jonesrussell/cardpress/internal/models"
)

const (
	summaryMaxTokens  = 1024
	sectionsMaxTokens = 2048
	chatMaxTokens     = 2048
)

// AnthropicGenerator implements Generator against the Anthropic Messages API.
type AnthropicGenerator struct {
	client  anthropic.Client
	model   string
	timeout time.Duration
	logger  logger.Logger
}

// NewAnthropicGenerator builds a generator from config.
func NewAnthropicGenerator(cfg *config.GenerationConfig, log logger.Logger) *AnthropicGenerator {
	return &AnthropicGenerator{
		client:  anthropic.NewClient(option.WithAPIKey(cfg.APIKey)),
		model:   cfg.Model,
		timeout: cfg.Timeout,
		logger:  log,
	}
}

// Summarize produces a summary, keywords and a recommended section count
// for the given content.
func (g *AnthropicGenerator) Summarize(ctx context.Context, title, content string) (*SummaryResult, error) {
	raw, err := g.complete(ctx, summarizeSystem, summarizePrompt(title, content), summaryMaxTokens)
	if err != nil {
		return nil, err
	}

	payload, err := parseSummary(raw)
	if err != nil {
		return nil, err
	}

	return &SummaryResult{
		Summary:          payload.Summary,
		Keywords:         payload.Keywords,
		RecommendedCount: RecommendedCount(content),
		Model:            g.model,
	}, nil
}

// GenerateSections produces a batch of count sections from a summary.
func (g *AnthropicGenerator) GenerateSections(ctx context.Context, title, summary string, count int) ([]SectionDraft, error) {
	raw, err := g.complete(ctx, sectionsSystem, sectionsPrompt(title, summary, count), sectionsMaxTokens)
	if err != nil {
		return nil, err
	}

	drafts := parseSections(raw)
	if len(drafts) == 0 {
		return nil, fmt.Errorf("%w: empty section response", models.ErrGenerationFailed)
	}
	return drafts, nil
}

// Chat applies a user instruction to the current section batch.
func (g *AnthropicGenerator) Chat(ctx context.Context, req ChatRequest) (*ChatResult, error) {
	raw, err := g.complete(ctx, chatSystem, chatPrompt(req), chatMaxTokens)
	if err != nil {
		return nil, err
	}

	payload := parseChat(raw)
	return &ChatResult{
		Reply:       payload.Reply,
		Sections:    payload.Sections,
		ActionTaken: payload.ActionTaken,
	}, nil
}

func (g *AnthropicGenerator) complete(ctx context.Context, system, prompt string, maxTokens int64) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	msg, err := g.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(g.model),
		MaxTokens: maxTokens,
		System: []anthropic.TextBlockParam{
			{Text: system},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		g.logger.Error("completion request failed", logger.Error(err))
		return "", fmt.Errorf("%w: %v", models.ErrGenerationFailed, err)
	}

	var out string
	for _, block := range msg.Content {
		out += block.Text
	}
	if out == "" {
		return "", fmt.Errorf("%w: empty completion", models.ErrGenerationFailed)
	}
	return out, nil
}
