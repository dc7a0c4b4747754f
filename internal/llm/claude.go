package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/hyperjump/nyaya/internal/config"
)

// ClaudeGenerator calls the Anthropic Messages API.
type ClaudeGenerator struct {
	client      anthropic.Client
	model       string
	temperature *float32
	maxTokens   int64
}

// NewClaudeGenerator creates an Anthropic client for cfg.Model.
func NewClaudeGenerator(cfg config.GenerationConfig) (*ClaudeGenerator, error) {
	if cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	maxTokens := int64(cfg.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = 1024
	}
	return &ClaudeGenerator{
		client:      anthropic.NewClient(option.WithAPIKey(cfg.APIKey)),
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   maxTokens,
	}, nil
}

// Generate sends prompt as a single user message and joins the text blocks of the reply.
func (g *ClaudeGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := g.client.Messages.New(ctx, g.params(prompt))
	if err != nil {
		return "", fmt.Errorf("claude generate: %w", err)
	}
	var out strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			out.WriteString(block.Text)
		}
	}
	return strings.TrimSpace(out.String()), nil
}

func (g *ClaudeGenerator) params(prompt string) anthropic.MessageNewParams {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(g.model),
		MaxTokens: g.maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	}
	if g.temperature != nil {
		params.Temperature = anthropic.Float(float64(*g.temperature))
	}
	return params
}

// Name returns "anthropic".
func (g *ClaudeGenerator) Name() string {
	return "anthropic"
}
