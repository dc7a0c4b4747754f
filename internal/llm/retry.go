package llm

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"
)

// RetryConfig bounds retries around a generator.
type RetryConfig struct {
	// MaxRetries is the number of attempts after the first; 0 disables retry.
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
	// Timeout applies to each attempt; 0 means no per-attempt limit.
	Timeout time.Duration
}

// Retrying wraps a generator with a per-attempt timeout and exponential backoff
// (BaseDelay * 1.5^attempt, capped at MaxDelay). Empty output is returned as-is and
// never retried.
type Retrying struct {
	inner  Generator
	cfg    RetryConfig
	logger *zap.Logger
}

// NewRetrying wraps inner.
func NewRetrying(inner Generator, cfg RetryConfig, logger *zap.Logger) *Retrying {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = 500 * time.Millisecond
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = 5 * time.Second
	}
	return &Retrying{inner: inner, cfg: cfg, logger: logger}
}

// Generate calls the inner generator until it succeeds, retries run out or ctx ends.
func (r *Retrying) Generate(ctx context.Context, prompt string) (string, error) {
	var lastErr error
	for attempt := 0; attempt <= r.cfg.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		out, err := r.attempt(ctx, prompt)
		if err == nil {
			return out, nil
		}
		lastErr = err
		if attempt == r.cfg.MaxRetries || ctx.Err() != nil {
			break
		}

		delay := Backoff(r.cfg.BaseDelay, r.cfg.MaxDelay, attempt)
		r.logger.Warn("retrying generation",
			zap.String("provider", r.inner.Name()),
			zap.Int("attempt", attempt+1),
			zap.Duration("delay", delay),
			zap.Error(err))

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(delay):
		}
	}
	return "", fmt.Errorf("generation failed after %d attempts: %w", r.cfg.MaxRetries+1, lastErr)
}

func (r *Retrying) attempt(ctx context.Context, prompt string) (string, error) {
	if r.cfg.Timeout <= 0 {
		return r.inner.Generate(ctx, prompt)
	}
	actx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
	defer cancel()
	out, err := r.inner.Generate(actx, prompt)
	if err != nil && errors.Is(actx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		return "", fmt.Errorf("attempt timed out after %s: %w", r.cfg.Timeout, err)
	}
	return out, err
}

// Name returns the wrapped generator's name.
func (r *Retrying) Name() string {
	return r.inner.Name()
}

// Backoff returns base * 1.5^attempt, capped at maxDelay.
func Backoff(base, maxDelay time.Duration, attempt int) time.Duration {
	delay := time.Duration(float64(base) * math.Pow(1.5, float64(attempt)))
	if delay > maxDelay {
		delay = maxDelay
	}
	return delay
}
