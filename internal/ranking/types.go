// Package ranking reranks retrieved statute passages with lexical signals and applies
// the answerability gate.
package ranking

import (
	"strings"

	"github.com/hyperjump/nyaya/internal/intent"
	"github.com/hyperjump/nyaya/internal/models"
)

// ScoringContext provides everything a scorer needs for one candidate.
type ScoringContext struct {
	// Query is the analyzed query.
	Query *intent.Query
	// Candidate is the passage being scored.
	Candidate *models.CandidatePassage
	// Text is the lowercased passage text.
	Text string
}

// NewScoringContext creates a ScoringContext for a query and candidate.
func NewScoringContext(query *intent.Query, c *models.CandidatePassage) *ScoringContext {
	return &ScoringContext{
		Query:     query,
		Candidate: c,
		Text:      strings.ToLower(c.Text),
	}
}

// Scorer is the interface for all scoring components. Scores are in [0,1].
type Scorer interface {
	// Score calculates the score for a candidate given the scoring context.
	Score(ctx *ScoringContext) float64
	// Name returns the name of the scorer for debugging/logging.
	Name() string
}

// ScoreBreakdown provides detailed scoring information for debugging.
type ScoreBreakdown struct {
	FinalScore     float64
	Similarity     float64
	AnchorOverlap  float64
	KeywordOverlap float64
	// Formula is "punishment" or "general".
	Formula string
}

// GateResult reports what the answerability gate did to a ranked set.
type GateResult struct {
	// Applied is false when the sub-intent does not require the gate.
	Applied bool
	// Dropped counts candidates removed for lacking an anchor phrase.
	Dropped int
	// Emptied is true when the gate removed every candidate.
	Emptied bool
	// Reason is a short operator-facing explanation.
	Reason string
}
