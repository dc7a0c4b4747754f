// Package confidence turns a gated candidate set into a single trust score.
package confidence

import (
	"math"
	"strings"

	"github.com/hyperjump/nyaya/internal/config"
	"github.com/hyperjump/nyaya/internal/intent"
	"github.com/hyperjump/nyaya/internal/models"
	"github.com/hyperjump/nyaya/pkg/utils"
)

// Breakdown explains how a score was reached.
type Breakdown struct {
	Base            float64 `json:"base"`
	ExactMatch      bool    `json:"exact_match"`
	PunishmentBonus float64 `json:"punishment_bonus"`
	RecentBonus     float64 `json:"recent_bonus"`
	Score           float64 `json:"score"`
}

// Scorer computes confidence. It is immutable and safe for concurrent use.
type Scorer struct {
	cfg   config.ConfidenceConfig
	terms []string
}

// NewScorer creates a scorer. terms is the punishment vocabulary that earns the
// punishment bonus when it appears in any candidate text.
func NewScorer(cfg config.ConfidenceConfig, terms []string) *Scorer {
	lowered := make([]string, 0, len(terms))
	for _, t := range terms {
		if t = strings.ToLower(strings.TrimSpace(t)); t != "" {
			lowered = append(lowered, t)
		}
	}
	return &Scorer{cfg: cfg, terms: lowered}
}

// Score returns the confidence for candidates, always within [0, Cap].
func (s *Scorer) Score(candidates []models.CandidatePassage) float64 {
	return s.Breakdown(candidates).Score
}

// Breakdown computes the score and its components. An exact match short-circuits to
// ExactMatchScore; otherwise the punishment and recency bonuses add to the best similarity.
func (s *Scorer) Breakdown(candidates []models.CandidatePassage) Breakdown {
	var b Breakdown
	if len(candidates) == 0 {
		return b
	}
	for _, c := range candidates {
		b.Base = math.Max(b.Base, c.Similarity)
		if c.IsExactMatch {
			b.ExactMatch = true
		}
	}
	if b.ExactMatch {
		b.Score = s.clamp(s.cfg.ExactMatchScore)
		return b
	}
	score := b.Base
	if s.hasPunishmentLanguage(candidates) {
		b.PunishmentBonus = s.cfg.PunishmentBonusOrDefault()
		score += b.PunishmentBonus
	}
	if s.hasRecentProvision(candidates) {
		b.RecentBonus = s.cfg.RecentBonusOrDefault()
		score += b.RecentBonus
	}
	b.Score = s.clamp(score)
	return b
}

// Answerable reports whether score clears the answer threshold.
func (s *Scorer) Answerable(score float64) bool {
	return score >= s.cfg.AnswerThreshold
}

// Cap returns the configured ceiling.
func (s *Scorer) Cap() float64 {
	return s.cfg.Cap
}

func (s *Scorer) hasPunishmentLanguage(candidates []models.CandidatePassage) bool {
	for _, c := range candidates {
		if intent.ContainsAny(strings.ToLower(c.Text), s.terms) {
			return true
		}
	}
	return false
}

func (s *Scorer) hasRecentProvision(candidates []models.CandidatePassage) bool {
	for _, c := range candidates {
		for _, year := range s.cfg.RecentYears {
			if year != "" && strings.Contains(c.Metadata.EffectiveFrom, year) {
				return true
			}
		}
	}
	return false
}

func (s *Scorer) clamp(v float64) float64 {
	return utils.Clamp(v, 0, s.cfg.Cap)
}
