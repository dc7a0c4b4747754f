// Package intent classifies legal questions before any retrieval cost is paid and
// extracts the query features the retriever and reranker key on.
package intent

import (
	"regexp"
	"strings"

	"github.com/hyperjump/nyaya/internal/config"
)

// Intent is the outcome of the first, cheap lexical gate.
type Intent int

const (
	// Legal queries continue into retrieval.
	Legal Intent = iota
	// NonLegal queries are refused without retrieval.
	NonLegal
	// Underspecified queries look legal-adjacent but name nothing retrievable.
	Underspecified
)

// String returns a string representation of the intent.
func (i Intent) String() string {
	switch i {
	case Legal:
		return "legal"
	case NonLegal:
		return "non_legal"
	case Underspecified:
		return "underspecified_legal"
	default:
		return "unknown"
	}
}

// SubIntent selects the retrieval path and the rerank formula.
type SubIntent int

const (
	General SubIntent = iota
	SectionLookup
	Punishment
)

// String returns a string representation of the sub-intent.
func (s SubIntent) String() string {
	switch s {
	case General:
		return "general"
	case SectionLookup:
		return "section_lookup"
	case Punishment:
		return "punishment"
	default:
		return "unknown"
	}
}

var sectionPattern = regexp.MustCompile(`\bsection\s+(\d{1,4})\b`)

// Query is the analyzed form of a question.
type Query struct {
	// Original is the query as received.
	Original string
	// Lower is the lowercased query all matching runs against.
	Lower string
	// SubIntent is section_lookup, punishment or general, in that precedence.
	SubIntent SubIntent
	// Section is the section number named by the query, empty unless SubIntent is SectionLookup.
	Section string
	// Keywords are up to MaxQueryKeywords non-stopword tokens used for keyword overlap.
	Keywords []string
}

// Classifier holds the term lists. It is immutable after construction and safe for concurrent use.
type Classifier struct {
	nonLegal        []string
	legal           []string
	punishmentTerms []string
	stopwords       map[string]struct{}
	maxKeywords     int
}

// NewClassifier builds a classifier from the lexicon. Terms are lowercased once here.
func NewClassifier(lex config.LexiconConfig) *Classifier {
	stop := make(map[string]struct{}, len(lex.Stopwords))
	for _, w := range lex.Stopwords {
		stop[strings.ToLower(w)] = struct{}{}
	}
	n := lex.MaxQueryKeywords
	if n <= 0 {
		n = 6
	}
	return &Classifier{
		nonLegal:        lowerAll(lex.NonLegalTerms),
		legal:           lowerAll(lex.LegalTerms),
		punishmentTerms: lowerAll(lex.PunishmentIntentTerms),
		stopwords:       stop,
		maxKeywords:     n,
	}
}

// Classify decides whether query is legal, non-legal or underspecified.
// The block-list is checked first so a personal query is never answered even when it
// also contains a legal term.
func (c *Classifier) Classify(query string) Intent {
	q := strings.ToLower(query)
	if ContainsAny(q, c.nonLegal) {
		return NonLegal
	}
	if ContainsAny(q, c.legal) {
		return Legal
	}
	return Underspecified
}

// Analyze extracts the sub-intent, section number and keywords from query.
func (c *Classifier) Analyze(query string) *Query {
	q := &Query{Original: query, Lower: strings.ToLower(query)}
	if sec := ExtractSection(q.Lower); sec != "" {
		q.SubIntent = SectionLookup
		q.Section = sec
	} else if ContainsAny(q.Lower, c.punishmentTerms) {
		q.SubIntent = Punishment
	}
	q.Keywords = c.keywords(q.Lower)
	return q
}

// ExtractSection returns the 1-4 digit section number following "section", or "".
func ExtractSection(query string) string {
	m := sectionPattern.FindStringSubmatch(strings.ToLower(query))
	if m == nil {
		return ""
	}
	return m[1]
}

func lowerAll(terms []string) []string {
	out := make([]string, 0, len(terms))
	for _, t := range terms {
		if t = strings.ToLower(strings.TrimSpace(t)); t != "" {
			out = append(out, t)
		}
	}
	return out
}
