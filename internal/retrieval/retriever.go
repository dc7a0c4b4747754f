// Package retrieval produces the scored candidate passages for a legal question,
// either by exact section lookup or by semantic search followed by reranking.
package retrieval

import (
	"context"
	"fmt"
	"strings"

	"github.com/hyperjump/nyaya/internal/config"
	"github.com/hyperjump/nyaya/internal/intent"
	"github.com/hyperjump/nyaya/internal/metadata"
	"github.com/hyperjump/nyaya/internal/models"
	"github.com/hyperjump/nyaya/internal/ranking"
	"github.com/hyperjump/nyaya/internal/store"
	"github.com/hyperjump/nyaya/pkg/utils"
	"go.uber.org/zap"
)

// Path names the retrieval path that produced a result.
type Path string

const (
	PathExact    Path = "exact"
	PathSemantic Path = "semantic"
)

// Result is the candidate set for one query.
type Result struct {
	Candidates []models.CandidatePassage
	Path       Path
	// Gate is zero for exact results, which bypass reranking.
	Gate ranking.GateResult
	// Considered counts semantic hits that cleared the similarity floor before reranking.
	Considered int
}

// Empty reports whether no candidate survived.
func (r *Result) Empty() bool {
	return r == nil || len(r.Candidates) == 0
}

// Retriever selects the retrieval path and returns gated candidates.
// It holds no per-request state and is safe for concurrent use.
type Retriever struct {
	store  store.VectorStore
	ranker *ranking.Ranker
	cfg    config.RetrievalConfig
	logger *zap.Logger
}

// Option configures a Retriever.
type Option func(*Retriever)

// WithLogger sets a logger for per-path debug output.
func WithLogger(l *zap.Logger) Option {
	return func(r *Retriever) {
		if l != nil {
			r.logger = l
		}
	}
}

// NewRetriever creates a retriever over st.
func NewRetriever(st store.VectorStore, ranker *ranking.Ranker, cfg config.RetrievalConfig, opts ...Option) *Retriever {
	r := &Retriever{store: st, ranker: ranker, cfg: cfg, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Retrieve runs the exact path for section lookups and falls back to the semantic
// path when the lookup finds nothing. Store failures are returned as errors; an empty
// result is not an error.
func (r *Retriever) Retrieve(ctx context.Context, q *intent.Query) (*Result, error) {
	if q.SubIntent == intent.SectionLookup {
		res, err := r.exact(ctx, q.Section)
		if err != nil {
			return nil, err
		}
		if !res.Empty() {
			return res, nil
		}
		r.logger.Debug("exact lookup empty, falling back to semantic", zap.String("section", q.Section))
		general := *q
		general.SubIntent = intent.General
		return r.semantic(ctx, &general)
	}
	return r.semantic(ctx, q)
}

func (r *Retriever) exact(ctx context.Context, section string) (*Result, error) {
	records, err := r.store.ExactLookup(ctx, store.Filter{"section": section})
	if err != nil {
		return nil, fmt.Errorf("exact lookup for section %s: %w", section, err)
	}
	res := &Result{Path: PathExact}
	for _, rec := range records {
		if strings.TrimSpace(rec.Text) == "" {
			continue
		}
		res.Candidates = append(res.Candidates, models.CandidatePassage{
			Text:         rec.Text,
			Metadata:     metadata.Normalize(rec.Metadata),
			Similarity:   r.cfg.ExactSimilarity,
			IsExactMatch: true,
		})
		if len(res.Candidates) == r.cfg.FinalK {
			break
		}
	}
	return res, nil
}

func (r *Retriever) semantic(ctx context.Context, q *intent.Query) (*Result, error) {
	hits, err := r.store.Search(ctx, q.Original, r.cfg.CandidatesK)
	if err != nil {
		return nil, fmt.Errorf("semantic search: %w", err)
	}
	candidates := make([]models.CandidatePassage, 0, len(hits))
	for _, h := range hits {
		if strings.TrimSpace(h.Text) == "" {
			continue
		}
		sim := Similarity(h.Distance)
		if sim < r.cfg.SimilarityThresholdOrDefault() {
			continue
		}
		candidates = append(candidates, models.CandidatePassage{
			Text:       h.Text,
			Metadata:   metadata.Normalize(h.Metadata),
			Similarity: sim,
		})
	}
	selected, gate := r.ranker.Select(q, candidates)
	r.logger.Debug("semantic retrieval",
		zap.String("sub_intent", q.SubIntent.String()),
		zap.Int("hits", len(hits)),
		zap.Int("above_floor", len(candidates)),
		zap.Int("selected", len(selected)),
		zap.String("gate", gate.Reason))
	return &Result{
		Candidates: selected,
		Path:       PathSemantic,
		Gate:       gate,
		Considered: len(candidates),
	}, nil
}

// Similarity converts a cosine distance into a similarity in [0,1].
func Similarity(distance float64) float64 {
	return utils.Clamp(1-distance, 0, 1)
}
