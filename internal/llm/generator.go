// Package llm provides the text generation backends that turn a filled prompt into an answer.
package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/hyperjump/nyaya/internal/config"
	"go.uber.org/zap"
)

var (
	// ErrMissingAPIKey is returned when a hosted provider is selected without credentials.
	ErrMissingAPIKey = errors.New("llm: api key required")
	// ErrUnknownProvider is returned for an unrecognised provider name.
	ErrUnknownProvider = errors.New("llm: unknown provider")
)

// Generator produces text for a prompt. An empty string is a valid result;
// errors are reserved for transport, auth and timeout failures.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
	Name() string
}

// NewGenerator builds the configured provider wrapped with per-attempt timeouts and
// bounded retry.
func NewGenerator(ctx context.Context, cfg config.GenerationConfig, logger *zap.Logger) (Generator, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	var (
		inner Generator
		err   error
	)
	switch cfg.Provider {
	case "", "local":
		inner = NewLocalGenerator()
	case "gemini":
		inner, err = NewGeminiGenerator(ctx, cfg)
	case "anthropic":
		inner, err = NewClaudeGenerator(cfg)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, cfg.Provider)
	}
	if err != nil {
		return nil, err
	}
	logger.Info("generator ready", zap.String("provider", inner.Name()), zap.String("model", cfg.Model))
	return NewRetrying(inner, RetryConfig{
		MaxRetries: cfg.RetriesOrDefault(),
		BaseDelay:  cfg.RetryBaseDelay,
		MaxDelay:   cfg.RetryMaxDelay,
		Timeout:    cfg.Timeout,
	}, logger), nil
}
