package reasoning

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"predictmax/internal/apperr"
	"predictmax/internal/recommend"
)

const defaultAnthropicModel = "claude-sonnet-4-5"

type Anthropic struct {
	client    anthropic.Client
	model     string
	maxTokens int64
	timeout   time.Duration
}

func NewAnthropic(apiKey, model, baseURL string, maxTokens int64, timeout time.Duration) *Anthropic {
	opts := []option.RequestOption{option.WithAPIKey(apiKey), option.WithMaxRetries(1)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	if model == "" {
		model = defaultAnthropicModel
	}
	return &Anthropic{
		client:    anthropic.NewClient(opts...),
		model:     model,
		maxTokens: maxTokensOrDefault(maxTokens),
		timeout:   timeout,
	}
}

func (g *Anthropic) Name() string { return "anthropic" }

func (g *Anthropic) Generate(ctx context.Context, in recommend.ReasoningInput) (string, error) {
	ctx, cancel := withTimeout(ctx, g.timeout)
	defer cancel()

	msg, err := g.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(g.model),
		MaxTokens: g.maxTokens,
		System:    []anthropic.TextBlockParam{{Text: systemPrompt}},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(Prompt(in))),
		},
	})
	if err != nil {
		return "", apperr.Reasoning("anthropic", err)
	}
	var parts []string
	for _, block := range msg.Content {
		if block.Type == "text" && strings.TrimSpace(block.Text) != "" {
			parts = append(parts, strings.TrimSpace(block.Text))
		}
	}
	if len(parts) == 0 {
		return "", apperr.Reasoning("anthropic", errors.New("no text content"))
	}
	return strings.Join(parts, "\n"), nil
}
