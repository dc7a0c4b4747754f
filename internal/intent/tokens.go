package intent

import (
	"regexp"
	"strings"
)

var wordPattern = regexp.MustCompile(`[a-z]+`)

// keywords returns the first maxKeywords alphabetic tokens of at least three letters
// that are not stopwords. lower must already be lowercased.
func (c *Classifier) keywords(lower string) []string {
	var out []string
	for _, tok := range wordPattern.FindAllString(lower, -1) {
		if len(tok) < 3 {
			continue
		}
		if _, stop := c.stopwords[tok]; stop {
			continue
		}
		out = append(out, tok)
		if len(out) == c.maxKeywords {
			break
		}
	}
	return out
}

// ContainsAny reports whether any term is a substring of text.
func ContainsAny(text string, terms []string) bool {
	for _, t := range terms {
		if strings.Contains(text, t) {
			return true
		}
	}
	return false
}

// Overlap returns the fraction of terms that occur as substrings of text.
// An empty term list scores 0.
func Overlap(text string, terms []string) float64 {
	if len(terms) == 0 {
		return 0
	}
	hits := 0
	for _, t := range terms {
		if strings.Contains(text, t) {
			hits++
		}
	}
	return float64(hits) / float64(len(terms))
}
