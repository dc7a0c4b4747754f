// Package indexer loads prepared statute chunk files into the vector store.
package indexer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hyperjump/nyaya/internal/storage"
	"github.com/hyperjump/nyaya/internal/store"
	"go.uber.org/zap"
)

// DefaultExtensions are the chunk file extensions indexed when none are configured.
var DefaultExtensions = []string{".json", ".jsonl"}

// Indexer writes chunk files into a vector store, one source per file.
type Indexer struct {
	store   store.VectorStore
	sources storage.Storage // optional; enables skipping unchanged files
	logger  *zap.Logger
}

// IndexerOption configures an Indexer.
type IndexerOption func(*Indexer)

// WithLogger sets a logger for debug output (file indexed, source deleted, etc.).
func WithLogger(l *zap.Logger) IndexerOption {
	return func(idx *Indexer) { idx.logger = l }
}

// WithSourceTracking records each indexed file's mtime and size in st so unchanged
// files are skipped on the next sync.
func WithSourceTracking(st storage.Storage) IndexerOption {
	return func(idx *Indexer) { idx.sources = st }
}

// NewIndexer creates an indexer writing to st.
func NewIndexer(st store.VectorStore, opts ...IndexerOption) *Indexer {
	idx := &Indexer{store: st, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(idx)
	}
	return idx
}

// IndexFile reads a chunk file and replaces every passage previously ingested from it.
// The source key is the absolute path. Returns the number of passages written; 0 with a
// nil error means the file was unchanged since the last sync.
func (idx *Indexer) IndexFile(ctx context.Context, path string) (int, error) {
	idx.logger.Debug("indexer indexing file", zap.String("path", path))
	absPath, err := filepath.Abs(path)
	if err != nil {
		return 0, fmt.Errorf("absolute path: %w", err)
	}
	info, err := os.Stat(absPath)
	if err != nil {
		return 0, fmt.Errorf("stat file: %w", err)
	}
	if !info.Mode().IsRegular() {
		return 0, fmt.Errorf("not a regular file: %s", absPath)
	}
	if idx.unchanged(ctx, absPath, info) {
		idx.logger.Debug("indexer skipping unchanged file", zap.String("path", absPath))
		return 0, nil
	}

	f, err := os.Open(absPath)
	if err != nil {
		return 0, fmt.Errorf("open file: %w", err)
	}
	chunks, blank, err := readChunks(f)
	_ = f.Close()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", absPath, err)
	}
	if blank > 0 {
		idx.logger.Debug("indexer dropped blank chunks", zap.String("path", absPath), zap.Int("blank", blank))
	}

	records := make([]store.Record, 0, len(chunks))
	for _, c := range chunks {
		text := Preprocess(c.Text)
		if text == "" {
			continue
		}
		records = append(records, store.Record{Source: absPath, Text: text, Metadata: c.Metadata})
	}

	// source tracking is only updated after a successful replace, so a failed
	// attempt is retried on the next sync
	if err := idx.store.Replace(ctx, absPath, records); err != nil {
		return 0, fmt.Errorf("replace passages: %w", err)
	}
	if idx.sources != nil {
		src := &storage.Source{
			Path:         absPath,
			ModTime:      info.ModTime().UnixNano(),
			Size:         info.Size(),
			PassageCount: len(records),
			IndexedAt:    time.Now().UTC(),
		}
		if err := idx.sources.PutSource(ctx, src); err != nil {
			return 0, fmt.Errorf("record source: %w", err)
		}
	}
	idx.logger.Info("indexed chunk file", zap.String("path", absPath), zap.Int("passages", len(records)))
	return len(records), nil
}

func (idx *Indexer) unchanged(ctx context.Context, absPath string, info os.FileInfo) bool {
	if idx.sources == nil {
		return false
	}
	src, err := idx.sources.GetSource(ctx, absPath)
	if err != nil {
		return false
	}
	return src.ModTime == info.ModTime().UnixNano() && src.Size == info.Size()
}

// IndexDirectory walks dir recursively and indexes each regular file whose extension
// is in allowedExts (DefaultExtensions when empty). Returns the number of files
// processed and the first error encountered, if any.
func (idx *Indexer) IndexDirectory(ctx context.Context, dir string, allowedExts []string) (n int, err error) {
	if len(allowedExts) == 0 {
		allowedExts = DefaultExtensions
	}
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return 0, fmt.Errorf("absolute path: %w", err)
	}
	info, err := os.Stat(absDir)
	if err != nil {
		return 0, fmt.Errorf("stat directory: %w", err)
	}
	if !info.IsDir() {
		return 0, fmt.Errorf("not a directory: %s", absDir)
	}
	err = filepath.WalkDir(absDir, func(path string, d os.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if !ExtensionAllowed(filepath.Ext(path), allowedExts) {
			return nil
		}
		finfo, statErr := os.Stat(path)
		if statErr != nil || !finfo.Mode().IsRegular() {
			return nil
		}
		if _, indexErr := idx.IndexFile(ctx, path); indexErr != nil {
			return indexErr
		}
		n++
		return nil
	})
	return n, err
}

// DeleteSource removes every passage ingested from path and forgets the source.
func (idx *Indexer) DeleteSource(ctx context.Context, path string) (int64, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return 0, fmt.Errorf("absolute path: %w", err)
	}
	idx.logger.Debug("indexer deleting source", zap.String("path", absPath))
	n, err := idx.store.Delete(ctx, absPath)
	if err != nil {
		return 0, fmt.Errorf("delete passages: %w", err)
	}
	if idx.sources != nil {
		if err := idx.sources.DeleteSource(ctx, absPath); err != nil && !errors.Is(err, storage.ErrNotFound) {
			return n, fmt.Errorf("delete source record: %w", err)
		}
	}
	idx.logger.Info("deleted source", zap.String("path", absPath), zap.Int64("passages", n))
	return n, nil
}

// ExtensionAllowed reports whether ext (with or without the dot) is in allowed, ignoring case.
func ExtensionAllowed(ext string, allowed []string) bool {
	extNorm := strings.ToLower(strings.TrimPrefix(ext, "."))
	if extNorm == "" {
		return false
	}
	for _, a := range allowed {
		if strings.ToLower(strings.TrimPrefix(a, ".")) == extNorm {
			return true
		}
	}
	return false
}
