package ranking

import (
	"math"
	"testing"

	"github.com/hyperjump/nyaya/internal/config"
	"github.com/hyperjump/nyaya/internal/intent"
	"github.com/hyperjump/nyaya/internal/models"
)

func newTestRanker(finalK int) *Ranker {
	lex := config.DefaultLexicon()
	return NewRanker(&RankingConfig{FinalK: finalK}, lex.PunishmentAnchors)
}

func analyze(query string) *intent.Query {
	return intent.NewClassifier(config.DefaultLexicon()).Analyze(query)
}

func candidate(text, section string, sim float64) models.CandidatePassage {
	return models.CandidatePassage{
		Text:       text,
		Metadata:   models.Metadata{Act: "Bharatiya Nyaya Sanhita (BNS)", Section: section},
		Similarity: sim,
	}
}

func almostEqual(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestNewRanker(t *testing.T) {
	r := NewRanker(nil, nil)
	if r == nil || r.GetConfig() == nil {
		t.Fatal("Expected non-nil ranker and config")
	}
	if r.GetConfig().FinalK != 5 {
		t.Errorf("FinalK = %d, want 5", r.GetConfig().FinalK)
	}

	r = NewRanker(&RankingConfig{GeneralKeywordWeight: 0.5}, nil)
	if r.GetConfig().GeneralKeywordWeight != 0.5 {
		t.Errorf("custom weight lost: %v", r.GetConfig().GeneralKeywordWeight)
	}
	if r.GetConfig().GeneralSimilarityWeight != 0.8 {
		t.Errorf("unset weight should default: %v", r.GetConfig().GeneralSimilarityWeight)
	}
}

func TestRanker_RankWithBreakdown(t *testing.T) {
	r := newTestRanker(5)

	// keywords: [cheating]; anchors hit: "shall be punished", "punished with", "imprisonment", "fine" = 4/8
	q := analyze("What is the punishment for cheating under BNS?")
	c := candidate("Whoever commits cheating shall be punished with imprisonment and fine.", "318", 0.6)
	b := r.RankWithBreakdown(q, &c)
	if b.Formula != "punishment" {
		t.Fatalf("formula = %s", b.Formula)
	}
	if !almostEqual(b.AnchorOverlap, 0.5) {
		t.Errorf("anchor overlap = %v, want 0.5", b.AnchorOverlap)
	}
	if !almostEqual(b.KeywordOverlap, 1) {
		t.Errorf("keyword overlap = %v, want 1", b.KeywordOverlap)
	}
	want := 0.55*0.6 + 0.30*0.5 + 0.15*1
	if !almostEqual(b.FinalScore, want) {
		t.Errorf("score = %v, want %v", b.FinalScore, want)
	}

	// keywords: [does, theft, mean]; only "theft" present
	q = analyze("What does theft mean")
	c = candidate("Whoever intending to take dishonestly commits theft.", "303", 0.5)
	b = r.RankWithBreakdown(q, &c)
	want = 0.80*0.5 + 0.20*(1.0/3.0)
	if b.Formula != "general" || !almostEqual(b.FinalScore, want) {
		t.Errorf("general breakdown = %+v, want score %v", b, want)
	}
}

func TestRanker_Rerank_stableAndDescending(t *testing.T) {
	r := newTestRanker(5)
	q := analyze("explain criminal trespass")
	in := []models.CandidatePassage{
		candidate("unrelated text a", "1", 0.5),
		candidate("criminal trespass is entering property", "329", 0.5),
		candidate("unrelated text b", "2", 0.5),
		candidate("unrelated text c", "3", 0.7),
	}
	out := r.Rerank(q, in)
	wantOrder := []string{"329", "3", "1", "2"}
	for i, s := range wantOrder {
		if out[i].Metadata.Section != s {
			t.Fatalf("position %d: got section %s, want %s (order %v)", i, out[i].Metadata.Section, s, sections(out))
		}
	}
	if in[0].RerankScore != 0 {
		t.Error("Rerank must not mutate its input")
	}
}

func TestRanker_Gate(t *testing.T) {
	r := newTestRanker(5)

	t.Run("punishment drops unanchored", func(t *testing.T) {
		q := analyze("penalty for theft")
		kept, res := r.Gate(q, []models.CandidatePassage{
			candidate("theft means dishonest taking", "303", 0.8),
			candidate("shall be punished with imprisonment for three years", "303", 0.6),
		})
		if !res.Applied || res.Dropped != 1 || res.Emptied {
			t.Errorf("gate result = %+v", res)
		}
		if len(kept) != 1 || kept[0].Similarity != 0.6 {
			t.Errorf("kept = %+v", kept)
		}
	})

	t.Run("punishment with no anchors empties", func(t *testing.T) {
		q := analyze("punishment for trespass")
		kept, res := r.Gate(q, []models.CandidatePassage{candidate("trespass is entry into property", "329", 0.9)})
		if len(kept) != 0 || !res.Emptied {
			t.Errorf("expected empty gate result, got %v %+v", kept, res)
		}
	})

	t.Run("general skips gate", func(t *testing.T) {
		q := analyze("what is theft")
		in := []models.CandidatePassage{candidate("theft means dishonest taking", "303", 0.8)}
		kept, res := r.Gate(q, in)
		if res.Applied || len(kept) != 1 {
			t.Errorf("gate should be skipped: %+v", res)
		}
	})
}

func TestRanker_Select_truncatesToFinalK(t *testing.T) {
	r := newTestRanker(2)
	q := analyze("punishment for murder")
	in := []models.CandidatePassage{
		candidate("murder shall be punished with death", "103", 0.5),
		candidate("definition of murder", "101", 0.9),
		candidate("punished with imprisonment for life and fine", "103", 0.6),
		candidate("liable to fine", "104", 0.4),
	}
	out, res := r.Select(q, in)
	if len(out) != 2 {
		t.Fatalf("len = %d, want 2", len(out))
	}
	if res.Dropped != 1 {
		t.Errorf("dropped = %d, want 1", res.Dropped)
	}
	for _, c := range out {
		if c.Metadata.Section == "101" {
			t.Error("unanchored candidate survived the gate")
		}
		if c.RerankScore == 0 {
			t.Error("rerank score not set")
		}
	}
	if out[0].RerankScore < out[1].RerankScore {
		t.Error("results not sorted by rerank score")
	}
}

func TestTopN(t *testing.T) {
	in := []models.CandidatePassage{{}, {}, {}}
	if got := TopN(in, 5); len(got) != 3 {
		t.Errorf("TopN(5) = %d", len(got))
	}
	if got := TopN(in, 2); len(got) != 2 {
		t.Errorf("TopN(2) = %d", len(got))
	}
}

func sections(cs []models.CandidatePassage) []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = c.Metadata.Section
	}
	return out
}
