package indexer

import (
	"regexp"

	"github.com/hyperjump/nyaya/pkg/utils"
)

var (
	gazetteHeader = regexp.MustCompile(`(?m)^\s*THE GAZETTE OF INDIA EXTRAORDINARY.*$`)
	ruleLine      = regexp.MustCompile(`(?m)^\s*_+\s*$`)
)

// Preprocess normalizes passage text for indexing: drops repeated gazette page headers
// and underscore rules left over from PDF extraction, then collapses whitespace.
func Preprocess(text string) string {
	text = gazetteHeader.ReplaceAllString(text, "")
	text = ruleLine.ReplaceAllString(text, "")
	return utils.CollapseWhitespace(text)
}
