// Package answer sequences the pipeline for one question: classify, retrieve, score,
// build evidence, synthesize and respond. Refusals are ordinary results, not errors.
package answer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hyperjump/nyaya/internal/confidence"
	"github.com/hyperjump/nyaya/internal/config"
	"github.com/hyperjump/nyaya/internal/intent"
	"github.com/hyperjump/nyaya/internal/llm"
	"github.com/hyperjump/nyaya/internal/models"
	"github.com/hyperjump/nyaya/internal/proof"
	"github.com/hyperjump/nyaya/internal/retrieval"
	"go.uber.org/zap"
)

// Stage is a pipeline state.
type Stage string

const (
	StageClassify   Stage = "classify"
	StageRetrieve   Stage = "retrieve"
	StageScore      Stage = "score"
	StageGate       Stage = "gate"
	StageSynthesize Stage = "synthesize"
	StageRespond    Stage = "respond"
)

// Outcome is the kind of response produced.
type Outcome string

const (
	OutcomeAnswered Outcome = "answered"
	// OutcomeDegraded carries full evidence but no generated answer.
	OutcomeDegraded Outcome = "degraded"
	OutcomeRefused  Outcome = "refused"
)

// RefusalReason says why no answer was attempted.
type RefusalReason string

const (
	RefusalNone           RefusalReason = ""
	RefusalNonLegal       RefusalReason = "non_legal"
	RefusalUnderspecified RefusalReason = "underspecified"
	RefusalNoEvidence     RefusalReason = "no_evidence"
	RefusalLowConfidence  RefusalReason = "low_confidence"
	RefusalEmptyContext   RefusalReason = "empty_context"
)

// DegradeReason says why synthesis produced no answer.
type DegradeReason string

const (
	DegradeNone             DegradeReason = ""
	DegradeGenerationEmpty  DegradeReason = "generation_empty"
	DegradeGenerationFailed DegradeReason = "generation_failed"
)

// Result is the public response plus how it was reached.
type Result struct {
	RequestID     string
	Response      models.AskResponse
	Outcome       Outcome
	RefusalReason RefusalReason
	DegradeReason DegradeReason
	// Stage is the last stage the request reached.
	Stage     Stage
	Intent    intent.Intent
	SubIntent intent.SubIntent
	Path      retrieval.Path
	Score     confidence.Breakdown
}

// Refused reports whether the pipeline declined to answer.
func (r *Result) Refused() bool {
	return r.Outcome == OutcomeRefused
}

// Orchestrator runs the answer pipeline. It holds only shared, read-mostly
// collaborators and is safe for concurrent use.
type Orchestrator struct {
	classifier *intent.Classifier
	retriever  *retrieval.Retriever
	scorer     *confidence.Scorer
	evidence   *proof.Builder
	generator  llm.Generator
	cfg        config.GenerationConfig
	logger     *zap.Logger
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the per-request logger.
func WithLogger(l *zap.Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.logger = l
		}
	}
}

// NewOrchestrator wires the pipeline stages.
func NewOrchestrator(
	classifier *intent.Classifier,
	retriever *retrieval.Retriever,
	scorer *confidence.Scorer,
	evidence *proof.Builder,
	generator llm.Generator,
	cfg config.GenerationConfig,
	opts ...Option,
) *Orchestrator {
	o := &Orchestrator{
		classifier: classifier,
		retriever:  retriever,
		scorer:     scorer,
		evidence:   evidence,
		generator:  generator,
		cfg:        cfg,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Ask answers one question. The returned error is non-nil only for unexpected
// failures such as an unreachable store; every no-evidence condition is a refusal.
func (o *Orchestrator) Ask(ctx context.Context, query string) (*Result, error) {
	start := time.Now()
	res := &Result{RequestID: uuid.NewString()}
	err := o.run(ctx, strings.TrimSpace(query), res)

	fields := []zap.Field{
		zap.String("request_id", res.RequestID),
		zap.String("stage", string(res.Stage)),
		zap.String("intent", res.Intent.String()),
		zap.String("sub_intent", res.SubIntent.String()),
		zap.String("path", string(res.Path)),
		zap.Duration("took", time.Since(start)),
	}
	if err != nil {
		o.logger.Error("ask failed", append(fields, zap.Error(err))...)
		return nil, err
	}
	o.logger.Info("ask",
		append(fields,
			zap.String("outcome", string(res.Outcome)),
			zap.String("refusal", string(res.RefusalReason)),
			zap.String("degrade", string(res.DegradeReason)),
			zap.Float64("confidence", res.Response.Confidence),
			zap.Int("citations", len(res.Response.Citations)))...)
	return res, nil
}

func (o *Orchestrator) run(ctx context.Context, query string, res *Result) error {
	if query == "" {
		return models.ErrEmptyQuery
	}

	res.Stage = StageClassify
	res.Intent = o.classifier.Classify(query)
	switch res.Intent {
	case intent.NonLegal:
		refuse(res, RefusalNonLegal, MessageNonLegal, 0)
		return nil
	case intent.Underspecified:
		refuse(res, RefusalUnderspecified, MessageUnderspecified, 0)
		return nil
	}
	q := o.classifier.Analyze(query)
	res.SubIntent = q.SubIntent

	res.Stage = StageRetrieve
	retrieved, err := o.retriever.Retrieve(ctx, q)
	if err != nil {
		return fmt.Errorf("retrieve: %w", err)
	}
	res.Path = retrieved.Path
	if retrieved.Empty() {
		refuse(res, RefusalNoEvidence, MessageNoLawFound, 0)
		return nil
	}
	candidates := retrieved.Candidates

	res.Stage = StageScore
	res.Score = o.scorer.Breakdown(candidates)
	score := res.Score.Score
	if !o.scorer.Answerable(score) {
		refuse(res, RefusalLowConfidence, MessageNoLawFound, score)
		return nil
	}

	res.Stage = StageGate
	ev := o.evidence.Build(candidates)

	res.Stage = StageSynthesize
	promptContext := BuildContext(candidates, o.cfg.MaxContextChars)
	if strings.TrimSpace(promptContext) == "" {
		refuse(res, RefusalEmptyContext, MessageNoLawFound, 0)
		return nil
	}
	prompt := FillPrompt(o.cfg.PromptTemplate, promptContext, query)
	text, genErr := o.generator.Generate(ctx, prompt)

	res.Stage = StageRespond
	res.Response = models.AskResponse{
		Citations:  ev.Citations,
		Confidence: score,
		Disclaimer: models.Disclaimer,
		Proof:      ev.Proof,
	}
	switch {
	case genErr != nil:
		if errors.Is(genErr, context.Canceled) && ctx.Err() != nil {
			// the caller went away; nothing useful to return
			return genErr
		}
		o.logger.Warn("generation failed, returning evidence only",
			zap.String("request_id", res.RequestID),
			zap.String("provider", o.generator.Name()),
			zap.Error(genErr))
		res.Outcome = OutcomeDegraded
		res.DegradeReason = DegradeGenerationFailed
		res.Response.Answer = MessageModelEmpty
	case strings.TrimSpace(text) == "":
		res.Outcome = OutcomeDegraded
		res.DegradeReason = DegradeGenerationEmpty
		res.Response.Answer = MessageModelEmpty
	default:
		res.Outcome = OutcomeAnswered
		res.Response.Answer = strings.TrimSpace(text)
	}
	return nil
}

func refuse(res *Result, reason RefusalReason, message string, score float64) {
	res.Outcome = OutcomeRefused
	res.RefusalReason = reason
	res.Response = models.AskResponse{
		Answer:     message,
		Citations:  []models.Citation{},
		Confidence: score,
		Disclaimer: models.Disclaimer,
	}
}
