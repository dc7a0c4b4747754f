// Package storage defines the persistence interface for statute passages and their sources.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/hyperjump/nyaya/internal/models"
)

// ErrNotFound is returned when a passage or source does not exist.
var ErrNotFound = errors.New("not found")

// Source records one ingested corpus file.
type Source struct {
	Path         string    `json:"path"`
	ModTime      int64     `json:"mod_time"`
	Size         int64     `json:"size"`
	PassageCount int       `json:"passage_count"`
	IndexedAt    time.Time `json:"indexed_at"`
}

// Storage defines passage and source persistence operations.
type Storage interface {
	// Passage operations
	UpsertPassages(ctx context.Context, passages []*models.Passage) error
	GetPassage(ctx context.Context, id string) (*models.Passage, error)
	GetPassages(ctx context.Context, ids []string) (map[string]*models.Passage, error)
	ListPassages(ctx context.Context, offset, limit int) ([]*models.Passage, error)
	PassageIDsBySource(ctx context.Context, source string) ([]string, error)
	DeletePassagesBySource(ctx context.Context, source string) (int64, error)

	// Source operations
	PutSource(ctx context.Context, src *Source) error
	GetSource(ctx context.Context, path string) (*Source, error)
	ListSources(ctx context.Context) ([]*Source, error)
	DeleteSource(ctx context.Context, path string) error

	// Stats
	CountPassages(ctx context.Context) (int64, error)

	Close() error
}
