package llm

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hyperjump/nyaya/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scriptedGenerator struct {
	calls   atomic.Int32
	results []string
	errs    []error
	block   bool
}

func (g *scriptedGenerator) Generate(ctx context.Context, _ string) (string, error) {
	i := int(g.calls.Add(1)) - 1
	if g.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	if i < len(g.errs) && g.errs[i] != nil {
		return "", g.errs[i]
	}
	if i < len(g.results) {
		return g.results[i], nil
	}
	return "", nil
}

func (g *scriptedGenerator) Name() string { return "scripted" }

func fastRetry(retries int) RetryConfig {
	return RetryConfig{MaxRetries: retries, BaseDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond}
}

func TestRetrying_SucceedsAfterTransientErrors(t *testing.T) {
	transient := errors.New("503")
	g := &scriptedGenerator{errs: []error{transient, transient}, results: []string{"", "", "answer"}}
	r := NewRetrying(g, fastRetry(2), nil)

	out, err := r.Generate(context.Background(), "p")
	require.NoError(t, err)
	assert.Equal(t, "answer", out)
	assert.EqualValues(t, 3, g.calls.Load())
	assert.Equal(t, "scripted", r.Name())
}

func TestRetrying_GivesUp(t *testing.T) {
	boom := errors.New("unauthorized")
	g := &scriptedGenerator{errs: []error{boom, boom, boom, boom}}
	_, err := NewRetrying(g, fastRetry(1), nil).Generate(context.Background(), "p")
	assert.ErrorIs(t, err, boom)
	assert.EqualValues(t, 2, g.calls.Load())
}

func TestRetrying_EmptyIsNotRetried(t *testing.T) {
	g := &scriptedGenerator{results: []string{""}}
	out, err := NewRetrying(g, fastRetry(3), nil).Generate(context.Background(), "p")
	require.NoError(t, err)
	assert.Empty(t, out)
	assert.EqualValues(t, 1, g.calls.Load())
}

func TestRetrying_PerAttemptTimeout(t *testing.T) {
	g := &scriptedGenerator{block: true}
	cfg := fastRetry(1)
	cfg.Timeout = 10 * time.Millisecond
	start := time.Now()
	_, err := NewRetrying(g, cfg, nil).Generate(context.Background(), "p")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.EqualValues(t, 2, g.calls.Load())
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestRetrying_ParentCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	g := &scriptedGenerator{}
	_, err := NewRetrying(g, fastRetry(3), nil).Generate(ctx, "p")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, g.calls.Load())
}

func TestBackoff(t *testing.T) {
	base := 100 * time.Millisecond
	assert.Equal(t, 100*time.Millisecond, Backoff(base, time.Second, 0))
	assert.Equal(t, 150*time.Millisecond, Backoff(base, time.Second, 1))
	assert.Equal(t, 225*time.Millisecond, Backoff(base, time.Second, 2))
	assert.Equal(t, time.Second, Backoff(base, time.Second, 10))
}

func TestLocalGenerator(t *testing.T) {
	out, err := NewLocalGenerator().Generate(context.Background(), "anything")
	require.NoError(t, err)
	assert.Equal(t, LocalAnswer, out)
}

func TestNewGenerator(t *testing.T) {
	ctx := context.Background()
	g, err := NewGenerator(ctx, config.GenerationConfig{Provider: "local"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "local", g.Name())
	_, ok := g.(*Retrying)
	assert.True(t, ok)

	_, err = NewGenerator(ctx, config.GenerationConfig{Provider: "gemini"}, nil)
	assert.ErrorIs(t, err, ErrMissingAPIKey)
	_, err = NewGenerator(ctx, config.GenerationConfig{Provider: "anthropic"}, nil)
	assert.ErrorIs(t, err, ErrMissingAPIKey)
	_, err = NewGenerator(ctx, config.GenerationConfig{Provider: "gpt"}, nil)
	assert.ErrorIs(t, err, ErrUnknownProvider)
}

func TestNewClaudeGenerator_DefaultsMaxTokens(t *testing.T) {
	g, err := NewClaudeGenerator(config.GenerationConfig{APIKey: "k", Model: "claude-3-5-haiku-latest"})
	require.NoError(t, err)
	assert.EqualValues(t, 1024, g.maxTokens)
}

func TestTemperature_SameMeaningForEveryProvider(t *testing.T) {
	zero := float32(0)

	claude, err := NewClaudeGenerator(config.GenerationConfig{APIKey: "k", Temperature: &zero})
	require.NoError(t, err)
	p := claude.params("q")
	require.True(t, p.Temperature.Valid(), "zero temperature is sent to anthropic")
	assert.Zero(t, p.Temperature.Value)

	gemini := &GeminiGenerator{temperature: &zero}
	gc := gemini.generateConfig()
	require.NotNil(t, gc.Temperature)
	assert.Zero(t, *gc.Temperature)

	claude, err = NewClaudeGenerator(config.GenerationConfig{APIKey: "k"})
	require.NoError(t, err)
	assert.False(t, claude.params("q").Temperature.Valid(), "unset temperature leaves the provider default")
	assert.Nil(t, (&GeminiGenerator{}).generateConfig().Temperature)
}
