package config

// LexiconConfig holds the keyword lists used by the intent classifier, the reranker
// and the confidence scorer. All terms are matched against lowercased text.
type LexiconConfig struct {
	NonLegalTerms         []string `yaml:"non_legal_terms"`
	LegalTerms            []string `yaml:"legal_terms"`
	PunishmentIntentTerms []string `yaml:"punishment_intent_terms"`
	PunishmentAnchors     []string `yaml:"punishment_anchors"`
	ConfidenceTerms       []string `yaml:"confidence_terms"`
	Stopwords             []string `yaml:"stopwords"`
	MaxQueryKeywords      int      `yaml:"max_query_keywords"`
}

var (
	defaultNonLegalTerms = []string{
		"relationship", "love", "affair", "marriage problem", "cheating partner",
		"cheating on me", "my partner", "boyfriend", "girlfriend",
	}
	defaultLegalTerms = []string{
		"crime", "offence", "punishment", "section", "law", "act", "ipc", "bns",
		"illegal", "imprisonment", "fine", "penalty",
	}
	defaultPunishmentIntentTerms = []string{
		"punishment", "penalty", "sentence", "imprisonment", "fine", "death",
	}
	defaultPunishmentAnchors = []string{
		"shall be punished", "punished with", "imprisonment", "fine", "death",
		"rigorous imprisonment", "simple imprisonment", "liable to fine",
	}
	defaultConfidenceTerms = []string{
		"punishment", "imprisonment", "fine", "death", "forfeiture", "rigorous", "simple",
	}
	defaultStopwords = []string{
		"what", "is", "the", "a", "an", "of", "for", "in", "indian", "india", "law", "under",
		"section", "bns", "ipc", "bnss", "bsa", "act", "please", "explain", "punishment", "penalty",
	}
)

// DefaultLexicon returns a lexicon populated with the built-in term lists.
func DefaultLexicon() LexiconConfig {
	var l LexiconConfig
	applyLexiconDefaults(&l)
	return l
}

func applyLexiconDefaults(l *LexiconConfig) {
	if l.NonLegalTerms == nil {
		l.NonLegalTerms = append([]string(nil), defaultNonLegalTerms...)
	}
	if l.LegalTerms == nil {
		l.LegalTerms = append([]string(nil), defaultLegalTerms...)
	}
	if l.PunishmentIntentTerms == nil {
		l.PunishmentIntentTerms = append([]string(nil), defaultPunishmentIntentTerms...)
	}
	if l.PunishmentAnchors == nil {
		l.PunishmentAnchors = append([]string(nil), defaultPunishmentAnchors...)
	}
	if l.ConfidenceTerms == nil {
		l.ConfidenceTerms = append([]string(nil), defaultConfidenceTerms...)
	}
	if l.Stopwords == nil {
		l.Stopwords = append([]string(nil), defaultStopwords...)
	}
	if l.MaxQueryKeywords == 0 {
		l.MaxQueryKeywords = 6
	}
}
