// Package models defines core data structures for statute passages, candidates and answers.
package models

import "time"

// RecordType classifies the kind of legal text a passage carries.
type RecordType string

const (
	RecordBareAct        RecordType = "bare_act"
	RecordInterpretation RecordType = "interpretation"
	RecordCaseLaw        RecordType = "case_law"
)

// Passage is a stored corpus chunk. Metadata is kept exactly as ingested; key names
// vary across corpus versions and are only canonicalized when read back.
type Passage struct {
	ID        string                 `json:"id" db:"id"`
	Source    string                 `json:"source" db:"source"`
	Text      string                 `json:"text" db:"text"`
	Metadata  map[string]interface{} `json:"metadata" db:"metadata"`
	CreatedAt time.Time              `json:"created_at" db:"created_at"`
	UpdatedAt time.Time              `json:"updated_at" db:"updated_at"`
}

// Metadata is the canonical passage metadata every pipeline stage works with.
type Metadata struct {
	Act            string     `json:"act"`
	ActDisplayName string     `json:"act_name"`
	Section        string     `json:"section"`
	EffectiveFrom  string     `json:"effective_from"`
	Version        string     `json:"version,omitempty"`
	RecordType     RecordType `json:"type"`
}

// CandidatePassage is one retrieved passage flowing through reranking and gating.
type CandidatePassage struct {
	Text         string
	Metadata     Metadata
	Similarity   float64
	IsExactMatch bool
	// RerankScore orders candidates and is discarded after selection.
	RerankScore float64
}
