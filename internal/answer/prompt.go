package answer

import (
	"strings"

	"github.com/hyperjump/nyaya/internal/models"
	"github.com/hyperjump/nyaya/pkg/utils"
)

// ContextSeparator is placed between passages in the synthesis context.
const ContextSeparator = "\n\n---\n\n"

// BuildContext joins candidate texts in rank order and truncates the joined string to
// maxChars runes, so earlier passages survive when the budget cuts mid-passage.
func BuildContext(candidates []models.CandidatePassage, maxChars int) string {
	texts := make([]string, 0, len(candidates))
	for _, c := range candidates {
		texts = append(texts, strings.TrimSpace(c.Text))
	}
	return utils.TruncateRunes(strings.Join(texts, ContextSeparator), maxChars)
}

// FillPrompt substitutes {{context}} and {{query}} in template.
func FillPrompt(template, context, query string) string {
	return strings.NewReplacer("{{context}}", context, "{{query}}", query).Replace(template)
}
