package models

import (
	"errors"
	"strings"
)

// Disclaimer is attached to every answer, refusals included.
const Disclaimer = "This response is informational and not legal advice."

// ErrEmptyQuery is returned when a request carries no query text.
var ErrEmptyQuery = errors.New("query cannot be empty")

// AskRequest is a single legal question. AsOfDate is accepted for future temporal
// filtering and is not consumed by the pipeline yet.
type AskRequest struct {
	Query    string `json:"query" validate:"required,max=2000"`
	AsOfDate string `json:"as_of_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
}

// Validate trims the query and rejects empty input.
func (r *AskRequest) Validate() error {
	r.Query = strings.TrimSpace(r.Query)
	if r.Query == "" {
		return ErrEmptyQuery
	}
	return nil
}

// Citation identifies one distinct provision backing an answer.
type Citation struct {
	Act           string `json:"act"`
	Section       string `json:"section"`
	EffectiveFrom string `json:"effective_from"`
}

// ProofSource is the evidence contributed by a single surviving passage.
type ProofSource struct {
	Act            string  `json:"act"`
	Section        string  `json:"section"`
	TextSnippet    string  `json:"text_snippet"`
	RelevanceScore float64 `json:"relevance_score"`
}

// Proof is the evidentiary payload returned with an answer.
type Proof struct {
	Sources   []ProofSource `json:"sources"`
	Reasoning string        `json:"reasoning"`
}

// AskResponse is the public answer shape. Proof is nil on refusals.
type AskResponse struct {
	Answer     string     `json:"answer"`
	Citations  []Citation `json:"citations"`
	Confidence float64    `json:"confidence"`
	Disclaimer string     `json:"disclaimer"`
	Proof      *Proof     `json:"proof"`
}
