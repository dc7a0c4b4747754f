// Package proof builds the citation list and evidentiary trail for a gated candidate set.
package proof

import (
	"fmt"
	"strings"

	"github.com/hyperjump/nyaya/internal/models"
	"github.com/hyperjump/nyaya/pkg/utils"
)

// Evidence is built before synthesis so it survives a generation failure.
type Evidence struct {
	Citations []models.Citation
	Proof     *models.Proof
}

// Builder formats evidence. It is immutable and safe for concurrent use.
type Builder struct {
	snippetChars int
}

// NewBuilder creates a builder that cuts passage text to snippetChars runes.
// Zero or negative keeps the full text.
func NewBuilder(snippetChars int) *Builder {
	return &Builder{snippetChars: snippetChars}
}

// Build returns one citation per distinct (act, section, effective_from) in rank order,
// first occurrence winning, and one proof source per candidate.
func (b *Builder) Build(candidates []models.CandidatePassage) Evidence {
	return Evidence{
		Citations: Citations(candidates),
		Proof: &models.Proof{
			Sources:   b.sources(candidates),
			Reasoning: Reasoning(candidates),
		},
	}
}

// Citations deduplicates candidate metadata into an ordered citation list.
func Citations(candidates []models.CandidatePassage) []models.Citation {
	seen := make(map[models.Citation]struct{}, len(candidates))
	out := make([]models.Citation, 0, len(candidates))
	for _, c := range candidates {
		cit := models.Citation{
			Act:           c.Metadata.Act,
			Section:       c.Metadata.Section,
			EffectiveFrom: c.Metadata.EffectiveFrom,
		}
		if _, dup := seen[cit]; dup {
			continue
		}
		seen[cit] = struct{}{}
		out = append(out, cit)
	}
	return out
}

func (b *Builder) sources(candidates []models.CandidatePassage) []models.ProofSource {
	out := make([]models.ProofSource, len(candidates))
	for i, c := range candidates {
		out[i] = models.ProofSource{
			Act:            c.Metadata.Act,
			Section:        c.Metadata.Section,
			TextSnippet:    utils.Snippet(utils.CollapseWhitespace(c.Text), b.snippetChars),
			RelevanceScore: c.Similarity,
		}
	}
	return out
}

// Reasoning summarises how the answer is grounded.
func Reasoning(candidates []models.CandidatePassage) string {
	if len(candidates) == 0 {
		return "No provision was retrieved."
	}
	cits := Citations(candidates)
	refs := make([]string, len(cits))
	for i, c := range cits {
		refs[i] = fmt.Sprintf("%s section %s", c.Act, c.Section)
	}
	how := "semantic retrieval with lexical reranking"
	if candidates[0].IsExactMatch {
		how = "an exact section match"
	}
	return fmt.Sprintf("Grounded in %d retrieved %s found by %s: %s.",
		len(candidates), plural(len(candidates), "passage"), how, strings.Join(refs, "; "))
}

func plural(n int, word string) string {
	if n == 1 {
		return word
	}
	return word + "s"
}
