package ranking

import (
	"fmt"
	"sort"

	"github.com/hyperjump/nyaya/internal/intent"
	"github.com/hyperjump/nyaya/internal/models"
)

// Ranker blends similarity with lexical overlap and gates punishment queries.
// It holds no per-request state and is safe for concurrent use.
type Ranker struct {
	config     *RankingConfig
	similarity Scorer
	anchor     *AnchorScorer
	keyword    Scorer
}

// NewRanker creates a new Ranker with the given configuration and anchor phrases.
func NewRanker(config *RankingConfig, anchors []string) *Ranker {
	if config == nil {
		config = DefaultRankingConfig()
	}
	config.ApplyDefaults()

	return &Ranker{
		config:     config,
		similarity: SimilarityScorer{},
		anchor:     NewAnchorScorer(anchors),
		keyword:    KeywordScorer{},
	}
}

// Rank calculates the blended score for one candidate.
func (r *Ranker) Rank(query *intent.Query, c *models.CandidatePassage) float64 {
	return r.RankWithContext(NewScoringContext(query, c))
}

// RankWithContext calculates the blended score using a pre-built context.
func (r *Ranker) RankWithContext(ctx *ScoringContext) float64 {
	return r.breakdown(ctx).FinalScore
}

// RankWithBreakdown returns detailed scoring information.
func (r *Ranker) RankWithBreakdown(query *intent.Query, c *models.CandidatePassage) *ScoreBreakdown {
	return r.breakdown(NewScoringContext(query, c))
}

func (r *Ranker) breakdown(ctx *ScoringContext) *ScoreBreakdown {
	b := &ScoreBreakdown{
		Similarity:     r.similarity.Score(ctx),
		KeywordOverlap: r.keyword.Score(ctx),
	}
	if ctx.Query.SubIntent == intent.Punishment {
		b.Formula = "punishment"
		b.AnchorOverlap = r.anchor.Score(ctx)
		b.FinalScore = r.config.PunishmentSimilarityWeight*b.Similarity +
			r.config.PunishmentAnchorWeight*b.AnchorOverlap +
			r.config.PunishmentKeywordWeight*b.KeywordOverlap
		return b
	}
	b.Formula = "general"
	b.FinalScore = r.config.GeneralSimilarityWeight*b.Similarity +
		r.config.GeneralKeywordWeight*b.KeywordOverlap
	return b
}

// Rerank returns a copy of candidates with RerankScore set, sorted by score descending.
// Ties keep their retrieval order.
func (r *Ranker) Rerank(query *intent.Query, candidates []models.CandidatePassage) []models.CandidatePassage {
	ranked := make([]models.CandidatePassage, len(candidates))
	copy(ranked, candidates)
	for i := range ranked {
		ranked[i].RerankScore = r.Rank(query, &ranked[i])
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].RerankScore > ranked[j].RerankScore
	})
	return ranked
}

// Gate applies the answerability gate. For punishment queries every candidate without an
// anchor phrase is dropped; the result may be empty. Other sub-intents pass through.
func (r *Ranker) Gate(query *intent.Query, ranked []models.CandidatePassage) ([]models.CandidatePassage, GateResult) {
	if query.SubIntent != intent.Punishment {
		return ranked, GateResult{Reason: fmt.Sprintf("gate skipped for %s query", query.SubIntent)}
	}
	kept := make([]models.CandidatePassage, 0, len(ranked))
	for _, c := range ranked {
		if r.anchor.HasAnchor(NewScoringContext(query, &c).Text) {
			kept = append(kept, c)
		}
	}
	res := GateResult{Applied: true, Dropped: len(ranked) - len(kept)}
	switch {
	case len(kept) == 0:
		res.Emptied = true
		res.Reason = "no candidate contains punishment language"
	case res.Dropped > 0:
		res.Reason = fmt.Sprintf("dropped %d candidates without punishment language", res.Dropped)
	default:
		res.Reason = "all candidates contain punishment language"
	}
	return kept, res
}

// Select reranks, gates and truncates candidates to FinalK.
func (r *Ranker) Select(query *intent.Query, candidates []models.CandidatePassage) ([]models.CandidatePassage, GateResult) {
	kept, res := r.Gate(query, r.Rerank(query, candidates))
	return TopN(kept, r.config.FinalK), res
}

// GetConfig returns the ranking configuration.
func (r *Ranker) GetConfig() *RankingConfig {
	return r.config
}

// TopN returns the top N candidates.
func TopN(candidates []models.CandidatePassage, n int) []models.CandidatePassage {
	if n >= len(candidates) {
		return candidates
	}
	return candidates[:n]
}
