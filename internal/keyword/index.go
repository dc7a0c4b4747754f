// Package keyword provides the exact-match metadata index used for deterministic section lookup.
package keyword

import (
	"context"
	"errors"
)

// ErrEmptyFilter is returned when a lookup names no fields.
var ErrEmptyFilter = errors.New("lookup filter is empty")

// Fields are the canonical, string-valued metadata fields indexed for one passage.
type Fields map[string]string

// MetadataIndex defines exact metadata lookup operations.
type MetadataIndex interface {
	Index(ctx context.Context, id string, fields Fields) error
	// Lookup returns the IDs of passages whose fields equal every filter value, ordered by ID.
	Lookup(ctx context.Context, filter Fields, limit int) ([]string, error)
	Delete(ctx context.Context, id string) error
	Close() error
	// DocCount returns the total number of passages in the index.
	DocCount() (uint64, error)
}
