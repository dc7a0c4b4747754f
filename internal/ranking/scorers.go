package ranking

import (
	"strings"

	"github.com/hyperjump/nyaya/internal/intent"
)

// SimilarityScorer passes through the retrieval similarity.
type SimilarityScorer struct{}

// Score returns the candidate's raw similarity.
func (SimilarityScorer) Score(ctx *ScoringContext) float64 { return ctx.Candidate.Similarity }

// Name returns "similarity".
func (SimilarityScorer) Name() string { return "similarity" }

// AnchorScorer scores the fraction of punishment anchor phrases present in the text.
type AnchorScorer struct {
	anchors []string
}

// NewAnchorScorer creates an AnchorScorer over the given phrases.
func NewAnchorScorer(anchors []string) *AnchorScorer {
	lower := make([]string, 0, len(anchors))
	for _, a := range anchors {
		if a = strings.ToLower(strings.TrimSpace(a)); a != "" {
			lower = append(lower, a)
		}
	}
	return &AnchorScorer{anchors: lower}
}

// Score returns hits / len(anchors).
func (s *AnchorScorer) Score(ctx *ScoringContext) float64 {
	return intent.Overlap(ctx.Text, s.anchors)
}

// HasAnchor reports whether text contains at least one anchor phrase.
func (s *AnchorScorer) HasAnchor(lowerText string) bool {
	return intent.ContainsAny(lowerText, s.anchors)
}

// Name returns "anchor".
func (s *AnchorScorer) Name() string { return "anchor" }

// KeywordScorer scores the fraction of query keywords present in the text.
type KeywordScorer struct{}

// Score returns hits / len(keywords), 0 when the query has no keywords.
func (KeywordScorer) Score(ctx *ScoringContext) float64 {
	return intent.Overlap(ctx.Text, ctx.Query.Keywords)
}

// Name returns "keyword".
func (KeywordScorer) Name() string { return "keyword" }
