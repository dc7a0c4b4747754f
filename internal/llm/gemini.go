package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/hyperjump/nyaya/internal/config"
	"google.golang.org/genai"
)

// GeminiGenerator calls the Gemini API.
type GeminiGenerator struct {
	client      *genai.Client
	model       string
	temperature *float32
	maxTokens   int32
}

// NewGeminiGenerator creates a Gemini API client for cfg.Model.
func NewGeminiGenerator(ctx context.Context, cfg config.GenerationConfig) (*GeminiGenerator, error) {
	if cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &GeminiGenerator{
		client:      client,
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   int32(cfg.MaxTokens),
	}, nil
}

// Generate sends prompt as a single user turn and returns the first candidate with text.
func (g *GeminiGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	contents := []*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)}
	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, g.generateConfig())
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}
	var out strings.Builder
	if resp != nil {
		for _, cand := range resp.Candidates {
			if cand == nil || cand.Content == nil {
				continue
			}
			for _, part := range cand.Content.Parts {
				if part != nil && part.Text != "" {
					out.WriteString(part.Text)
				}
			}
			if out.Len() > 0 {
				break
			}
		}
	}
	return strings.TrimSpace(out.String()), nil
}

// Name returns "gemini".
func (g *GeminiGenerator) Name() string {
	return "gemini"
}

func (g *GeminiGenerator) generateConfig() *genai.GenerateContentConfig {
	gcfg := &genai.GenerateContentConfig{}
	if g.temperature != nil {
		gcfg.Temperature = genai.Ptr(*g.temperature)
	}
	if g.maxTokens > 0 {
		gcfg.MaxOutputTokens = g.maxTokens
	}
	return gcfg
}
