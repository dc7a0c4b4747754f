package benchmark

import (
	"context"
	"fmt"
	"testing"

	"github.com/hyperjump/nyaya/internal/confidence"
	"github.com/hyperjump/nyaya/internal/config"
	"github.com/hyperjump/nyaya/internal/embedding"
	"github.com/hyperjump/nyaya/internal/intent"
	"github.com/hyperjump/nyaya/internal/models"
	"github.com/hyperjump/nyaya/internal/ranking"
	"github.com/hyperjump/nyaya/internal/vector"
)

func candidates(n int) []models.CandidatePassage {
	out := make([]models.CandidatePassage, n)
	for i := range out {
		text := "Definitions of words used in the Sanhita."
		if i%2 == 0 {
			text = "Whoever commits theft shall be punished with imprisonment which may extend to three years, or with fine, or with both."
		}
		out[i] = models.CandidatePassage{
			Text:       text,
			Metadata:   models.Metadata{Act: "BNS", Section: fmt.Sprint(300 + i), EffectiveFrom: "2024-07-01"},
			Similarity: float64(n-i) / float64(n),
		}
	}
	return out
}

func BenchmarkClassifyAndAnalyze(b *testing.B) {
	c := intent.NewClassifier(config.DefaultLexicon())
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = c.Classify("What is the punishment for theft of a motor vehicle under BNS?")
		_ = c.Analyze("What is the punishment for theft of a motor vehicle under BNS?")
	}
}

func BenchmarkRankerSelect(b *testing.B) {
	lex := config.DefaultLexicon()
	r := ranking.NewRanker(nil, lex.PunishmentAnchors)
	q := intent.NewClassifier(lex).Analyze("What is the punishment for theft?")
	cands := candidates(25)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = r.Select(q, cands)
	}
}

func BenchmarkConfidenceScore(b *testing.B) {
	cfg := &config.Config{}
	config.ApplyDefaults(cfg)
	s := confidence.NewScorer(cfg.Confidence, cfg.Lexicon.ConfidenceTerms)
	cands := candidates(5)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = s.Score(cands)
	}
}

func BenchmarkMemoryIndexSearch(b *testing.B) {
	idx, _ := vector.NewMemoryIndex(384)
	ctx := context.Background()
	vecs := make([][]float32, 1000)
	ids := make([]string, 1000)
	for i := 0; i < 1000; i++ {
		vecs[i] = make([]float32, 384)
		vecs[i][0] = float32(i) / 1000
		vecs[i][1] = 1
		ids[i] = fmt.Sprintf("p%04d", i)
	}
	_ = idx.Add(ctx, ids, vecs)
	query := make([]float32, 384)
	query[0] = 1.0
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = idx.Search(ctx, query, 25)
	}
}

func BenchmarkHashingEmbedder_Embed(b *testing.B) {
	e := embedding.NewHashingEmbedder(384)
	ctx := context.Background()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = e.Embed(ctx, "Whoever commits theft shall be punished with imprisonment")
	}
}
