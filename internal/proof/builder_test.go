package proof

import (
	"strings"
	"testing"

	"github.com/hyperjump/nyaya/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cand(act, section, effective, text string, sim float64) models.CandidatePassage {
	return models.CandidatePassage{
		Text:       text,
		Metadata:   models.Metadata{Act: act, Section: section, EffectiveFrom: effective},
		Similarity: sim,
	}
}

func TestCitations_DedupPreservesOrder(t *testing.T) {
	cands := []models.CandidatePassage{
		cand("BNS", "318", "2024-07-01", "Cheating, clause 1", 0.8),
		cand("BNS", "303", "2024-07-01", "Theft", 0.7),
		cand("BNS", "318", "2024-07-01", "Cheating, clause 2", 0.6),
		cand("IPC", "318", "1860-01-01", "Concealment of birth", 0.5),
		cand("BNS", "318", "2023-12-25", "Cheating, gazette text", 0.4),
	}
	got := Citations(cands)
	assert.Equal(t, []models.Citation{
		{Act: "BNS", Section: "318", EffectiveFrom: "2024-07-01"},
		{Act: "BNS", Section: "303", EffectiveFrom: "2024-07-01"},
		{Act: "IPC", Section: "318", EffectiveFrom: "1860-01-01"},
		{Act: "BNS", Section: "318", EffectiveFrom: "2023-12-25"},
	}, got)
}

func TestBuild_SourcesOnePerCandidate(t *testing.T) {
	long := strings.Repeat("whoever commits theft ", 60)
	cands := []models.CandidatePassage{
		cand("BNS", "318", "2024", "Cheating,\n\n clause 1", 0.8),
		cand("BNS", "318", "2024", long, 0.6),
	}
	ev := NewBuilder(100).Build(cands)

	require.Len(t, ev.Citations, 1)
	require.NotNil(t, ev.Proof)
	require.Len(t, ev.Proof.Sources, 2, "proof sources are not deduplicated")
	assert.Equal(t, "Cheating, clause 1", ev.Proof.Sources[0].TextSnippet)
	assert.Equal(t, 0.8, ev.Proof.Sources[0].RelevanceScore)
	assert.True(t, strings.HasSuffix(ev.Proof.Sources[1].TextSnippet, "..."))
	assert.LessOrEqual(t, len([]rune(ev.Proof.Sources[1].TextSnippet)), 103)
	assert.Contains(t, ev.Proof.Reasoning, "2 retrieved passages")
	assert.Contains(t, ev.Proof.Reasoning, "BNS section 318")
}

func TestReasoning(t *testing.T) {
	exact := cand("BNS", "303", "2024", "Theft", 0.99)
	exact.IsExactMatch = true
	assert.Equal(t, "Grounded in 1 retrieved passage found by an exact section match: BNS section 303.",
		Reasoning([]models.CandidatePassage{exact}))
	assert.Equal(t, "No provision was retrieved.", Reasoning(nil))
}

func TestBuild_EmptyCandidates(t *testing.T) {
	ev := NewBuilder(500).Build(nil)
	assert.Empty(t, ev.Citations)
	assert.NotNil(t, ev.Citations, "citations marshal as [] rather than null")
	assert.Empty(t, ev.Proof.Sources)
}
