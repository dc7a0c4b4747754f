package confidence

import (
	"testing"

	"github.com/hyperjump/nyaya/internal/config"
	"github.com/hyperjump/nyaya/internal/models"
	"github.com/stretchr/testify/assert"
)

func defaultConfig() config.ConfidenceConfig {
	return config.ConfidenceConfig{
		AnswerThreshold: 0.3,
		Cap:             0.9,
		ExactMatchScore: 0.95,
		RecentYears:     []string{"2023", "2024"},
	}
}

func newScorer() *Scorer {
	return NewScorer(defaultConfig(), config.DefaultLexicon().ConfidenceTerms)
}

func cand(text, effective string, sim float64) models.CandidatePassage {
	return models.CandidatePassage{
		Text:       text,
		Metadata:   models.Metadata{Act: "BNS", Section: "1", EffectiveFrom: effective},
		Similarity: sim,
	}
}

func TestScore(t *testing.T) {
	tests := []struct {
		name       string
		candidates []models.CandidatePassage
		want       float64
	}{
		{"empty", nil, 0},
		{"base only", []models.CandidatePassage{cand("Territorial extent.", "1860-01-01", 0.4)}, 0.4},
		{"max similarity wins", []models.CandidatePassage{
			cand("Extent.", "1860", 0.4), cand("Definitions.", "1860", 0.55),
		}, 0.55},
		{"punishment bonus", []models.CandidatePassage{cand("Shall be liable to imprisonment.", "1860", 0.4)}, 0.6},
		{"recent bonus", []models.CandidatePassage{cand("Extent.", "2024-07-01", 0.4)}, 0.5},
		{"both bonuses add", []models.CandidatePassage{cand("Punished with death.", "2023-12-25", 0.45)}, 0.75},
		{"bonuses from different candidates", []models.CandidatePassage{
			cand("Punished with fine.", "1860", 0.3), cand("Extent.", "2024", 0.42),
		}, 0.72},
		{"clamped to cap", []models.CandidatePassage{cand("Rigorous imprisonment.", "2024", 0.85)}, 0.9},
	}
	s := newScorer()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, s.Score(tt.candidates), 1e-9)
		})
	}
}

func TestScore_ExactMatchShortCircuit(t *testing.T) {
	s := newScorer()
	c := cand("Punished with imprisonment.", "2024", 0.99)
	c.IsExactMatch = true
	b := s.Breakdown([]models.CandidatePassage{c, cand("Extent.", "1860", 0.5)})

	assert.True(t, b.ExactMatch)
	assert.Equal(t, 0.9, b.Score, "0.95 short-circuit is clamped to the cap")
	assert.Zero(t, b.PunishmentBonus, "no bonuses on the exact path")
	assert.Zero(t, b.RecentBonus)
}

func TestScore_NeverOutsideRange(t *testing.T) {
	cfg := defaultConfig()
	bonus := 5.0
	cfg.PunishmentBonus = &bonus
	s := NewScorer(cfg, []string{"theft"})
	assert.Equal(t, 0.9, s.Score([]models.CandidatePassage{cand("theft", "", 1)}))
	assert.Equal(t, 0.0, s.Score([]models.CandidatePassage{cand("x", "", -3)}))
}

func TestScore_BonusesCanBeSwitchedOff(t *testing.T) {
	cfg := defaultConfig()
	off := 0.0
	cfg.PunishmentBonus = &off
	cfg.RecentBonus = &off
	s := NewScorer(cfg, config.DefaultLexicon().ConfidenceTerms)
	b := s.Breakdown([]models.CandidatePassage{cand("Punished with death.", "2024-07-01", 0.45)})
	assert.InDelta(t, 0.45, b.Score, 1e-9)
	assert.Zero(t, b.PunishmentBonus)
	assert.Zero(t, b.RecentBonus)
}

func TestScore_TermsAreCaseInsensitive(t *testing.T) {
	s := NewScorer(defaultConfig(), []string{"  IMPRISONMENT "})
	assert.InDelta(t, 0.6, s.Score([]models.CandidatePassage{cand("Imprisonment for life", "", 0.4)}), 1e-9)
}

func TestAnswerable(t *testing.T) {
	s := newScorer()
	assert.True(t, s.Answerable(0.3))
	assert.False(t, s.Answerable(0.2999))
	assert.Equal(t, 0.9, s.Cap())
}
