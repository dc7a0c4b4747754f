package ranking

// RankingConfig holds the blend weights of the lexical rerank.
type RankingConfig struct {
	// Punishment sub-intent: similarity, anchor overlap, keyword overlap.
	PunishmentSimilarityWeight float64 `yaml:"punishment_similarity_weight"` // default: 0.55
	PunishmentAnchorWeight     float64 `yaml:"punishment_anchor_weight"`     // default: 0.30
	PunishmentKeywordWeight    float64 `yaml:"punishment_keyword_weight"`    // default: 0.15

	// Every other sub-intent: similarity, keyword overlap.
	GeneralSimilarityWeight float64 `yaml:"general_similarity_weight"` // default: 0.80
	GeneralKeywordWeight    float64 `yaml:"general_keyword_weight"`    // default: 0.20

	// FinalK is the number of candidates kept after gating.
	FinalK int `yaml:"final_k"` // default: 5
}

// DefaultRankingConfig returns the default ranking configuration.
func DefaultRankingConfig() *RankingConfig {
	return &RankingConfig{
		PunishmentSimilarityWeight: 0.55,
		PunishmentAnchorWeight:     0.30,
		PunishmentKeywordWeight:    0.15,
		GeneralSimilarityWeight:    0.80,
		GeneralKeywordWeight:       0.20,
		FinalK:                     5,
	}
}

// ApplyDefaults fills zero values with defaults.
func (c *RankingConfig) ApplyDefaults() {
	d := DefaultRankingConfig()
	if c.PunishmentSimilarityWeight == 0 {
		c.PunishmentSimilarityWeight = d.PunishmentSimilarityWeight
	}
	if c.PunishmentAnchorWeight == 0 {
		c.PunishmentAnchorWeight = d.PunishmentAnchorWeight
	}
	if c.PunishmentKeywordWeight == 0 {
		c.PunishmentKeywordWeight = d.PunishmentKeywordWeight
	}
	if c.GeneralSimilarityWeight == 0 {
		c.GeneralSimilarityWeight = d.GeneralSimilarityWeight
	}
	if c.GeneralKeywordWeight == 0 {
		c.GeneralKeywordWeight = d.GeneralKeywordWeight
	}
	if c.FinalK <= 0 {
		c.FinalK = d.FinalK
	}
}
