// Package store exposes the statute corpus to the retrieval pipeline: nearest-neighbour
// search over embedded passage text and exact metadata lookup.
//
// Distances returned by every implementation are cosine distances (1 - cosine
// similarity), so callers may convert them with similarity = max(0, 1 - distance).
package store

import (
	"context"
	"errors"
)

// ErrStoreNotReady is returned when a store is used before it is opened or after Close.
var ErrStoreNotReady = errors.New("store not ready")

// ErrUnsupportedFilter is returned when an exact lookup names a field that is not indexed.
var ErrUnsupportedFilter = errors.New("unsupported lookup field")

// Filter selects passages whose canonical metadata fields equal the given values.
type Filter map[string]string

// Hit is one nearest-neighbour result.
type Hit struct {
	Text     string
	Metadata map[string]any
	Distance float64
}

// Record is a stored passage as written by ingestion and returned by exact lookup.
// Metadata is kept as ingested; key names may differ across corpus versions.
type Record struct {
	ID       string
	Source   string
	Text     string
	Metadata map[string]any
}

// VectorStore is the corpus contract the retriever and indexer depend on.
// Implementations are safe for concurrent use.
type VectorStore interface {
	Search(ctx context.Context, queryText string, k int) ([]Hit, error)
	ExactLookup(ctx context.Context, filter Filter) ([]Record, error)
	Add(ctx context.Context, records []Record) error
	// Replace swaps every passage ingested from source for records. A failure leaves
	// the previous passages of source searchable.
	Replace(ctx context.Context, source string, records []Record) error
	// Delete removes every passage ingested from source and returns how many were removed.
	Delete(ctx context.Context, source string) (int64, error)
	Count(ctx context.Context) (int64, error)
	Close() error
}

// Stats summarises a store for status reporting.
type Stats struct {
	Backend    string `json:"backend"`
	Passages   int64  `json:"passages"`
	VectorSize int    `json:"vector_index_size"`
	DiskBytes  int64  `json:"disk_bytes"`
	// Sources is the number of tracked corpus files; 0 when the backend does not track them.
	Sources int `json:"sources"`
}

// StatsReporter is implemented by stores that can describe themselves.
type StatsReporter interface {
	Stats(ctx context.Context) (*Stats, error)
}
