// Package vector provides the cosine vector index backing semantic passage search.
package vector

import (
	"context"
	"errors"
)

// ErrDimensionMismatch is returned when a vector's length differs from the index dimension.
var ErrDimensionMismatch = errors.New("vector dimension mismatch")

// VectorIndex defines vector storage and similarity search.
type VectorIndex interface {
	Add(ctx context.Context, ids []string, vectors [][]float32) error
	Search(ctx context.Context, query []float32, k int) ([]*VectorResult, error)
	Remove(ctx context.Context, ids []string) error
	Save(path string) error
	Load(path string) error
	Size() int
	Dimensions() int
	Close() error
}

// VectorResult is a single vector search hit. Score is cosine similarity in [-1,1].
type VectorResult struct {
	ID    string
	Score float64
}

// Distance returns the cosine distance 1 - Score.
func (r *VectorResult) Distance() float64 {
	return 1 - r.Score
}
