package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/hyperjump/nyaya/internal/embedding"
	"github.com/hyperjump/nyaya/internal/fileid"
	"github.com/hyperjump/nyaya/internal/keyword"
	"github.com/hyperjump/nyaya/internal/metadata"
	"github.com/hyperjump/nyaya/internal/models"
	"github.com/hyperjump/nyaya/internal/storage"
	"github.com/hyperjump/nyaya/internal/vector"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// exactLookupLimit bounds how many passages one exact lookup may return.
const exactLookupLimit = 100

// rebuildPageSize is the number of passages re-embedded per batch when the vector index
// is rebuilt from storage.
const rebuildPageSize = 200

// LocalStore keeps passages in SQLite, canonical metadata in a bleve index for exact
// lookups and embeddings in an in-memory cosine index that is snapshotted to disk.
type LocalStore struct {
	storage    storage.Storage
	meta       keyword.MetadataIndex
	vectors    vector.VectorIndex
	embedder   embedding.Embedder
	vectorPath string
	diskPaths  []string
	logger     *zap.Logger

	writeMu sync.Mutex // serializes writes across the three indices
	cron    *cron.Cron
	closed  bool
}

// LocalOption configures a LocalStore.
type LocalOption func(*LocalStore)

// WithLogger sets the store logger.
func WithLogger(l *zap.Logger) LocalOption {
	return func(s *LocalStore) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithSnapshotPath sets where the vector index is loaded from and saved to.
func WithSnapshotPath(path string) LocalOption {
	return func(s *LocalStore) { s.vectorPath = path }
}

// WithDiskPaths lists the on-disk artifacts counted by Stats.
func WithDiskPaths(paths ...string) LocalOption {
	return func(s *LocalStore) { s.diskPaths = paths }
}

// NewLocalStore wires the given components. If a snapshot path is set, the vector
// index is loaded from it; a missing or stale snapshot is rebuilt from storage.
func NewLocalStore(
	ctx context.Context,
	st storage.Storage,
	meta keyword.MetadataIndex,
	vectors vector.VectorIndex,
	embedder embedding.Embedder,
	opts ...LocalOption,
) (*LocalStore, error) {
	if st == nil || meta == nil || vectors == nil || embedder == nil {
		return nil, ErrStoreNotReady
	}
	if vectors.Dimensions() != embedder.Dimensions() {
		return nil, fmt.Errorf("%w: embedder produces %d, index expects %d",
			vector.ErrDimensionMismatch, embedder.Dimensions(), vectors.Dimensions())
	}
	s := &LocalStore{
		storage:  st,
		meta:     meta,
		vectors:  vectors,
		embedder: embedder,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if err := vectors.Load(s.vectorPath); err != nil {
		s.logger.Warn("vector snapshot load skipped, rebuilding", zap.String("path", s.vectorPath), zap.Error(err))
	}
	if err := s.ensureConsistent(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// ensureConsistent rebuilds the vector and metadata indices when they hold fewer
// entries than storage, e.g. after a first run or a deleted snapshot. Extra entries
// are left alone; Search and ExactLookup skip IDs that have no stored passage.
func (s *LocalStore) ensureConsistent(ctx context.Context) error {
	count, err := s.storage.CountPassages(ctx)
	if err != nil {
		return fmt.Errorf("count passages: %w", err)
	}
	if count == 0 {
		return nil
	}
	docs, err := s.meta.DocCount()
	if err != nil {
		return fmt.Errorf("metadata index count: %w", err)
	}
	reembed := int64(s.vectors.Size()) < count
	reindex := int64(docs) < count
	if !reembed && !reindex {
		return nil
	}
	s.logger.Info("rebuilding local indices",
		zap.Int64("passages", count),
		zap.Int("vectors", s.vectors.Size()),
		zap.Uint64("metadata_docs", docs))
	start := time.Now()
	for offset := 0; ; offset += rebuildPageSize {
		page, err := s.storage.ListPassages(ctx, offset, rebuildPageSize)
		if err != nil {
			return fmt.Errorf("list passages: %w", err)
		}
		if len(page) == 0 {
			break
		}
		if reembed {
			if err := s.embedPassages(ctx, page); err != nil {
				return err
			}
		}
		if reindex {
			if err := s.indexMetadata(ctx, page); err != nil {
				return err
			}
		}
	}
	s.logger.Info("local indices rebuilt", zap.Duration("took", time.Since(start)))
	return nil
}

// Search embeds queryText and returns the k nearest passages by cosine distance.
func (s *LocalStore) Search(ctx context.Context, queryText string, k int) ([]Hit, error) {
	if k <= 0 {
		return nil, nil
	}
	q, err := s.embedder.Embed(ctx, queryText)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	results, err := s.vectors.Search(ctx, q, k)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}
	ids := make([]string, len(results))
	for i, r := range results {
		ids[i] = r.ID
	}
	passages, err := s.storage.GetPassages(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load passages: %w", err)
	}
	hits := make([]Hit, 0, len(results))
	for _, r := range results {
		p, ok := passages[r.ID]
		if !ok {
			// vector without a stored passage; skip rather than fail the query
			continue
		}
		hits = append(hits, Hit{Text: p.Text, Metadata: p.Metadata, Distance: r.Distance()})
	}
	return hits, nil
}

// ExactLookup returns passages whose canonical metadata equals every filter value,
// ordered by passage ID.
func (s *LocalStore) ExactLookup(ctx context.Context, filter Filter) ([]Record, error) {
	if err := validateFilter(filter); err != nil {
		return nil, err
	}
	ids, err := s.meta.Lookup(ctx, keyword.Fields(filter), exactLookupLimit)
	if err != nil {
		return nil, fmt.Errorf("metadata lookup: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}
	passages, err := s.storage.GetPassages(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load passages: %w", err)
	}
	records := make([]Record, 0, len(ids))
	for _, id := range ids {
		if p, ok := passages[id]; ok {
			records = append(records, recordFromPassage(p))
		}
	}
	return records, nil
}

// Add upserts records into storage and both indices. Records without an ID get one
// derived from their canonical metadata and text. Texts are embedded before anything
// is written, so a failed embedding leaves the store unchanged.
func (s *LocalStore) Add(ctx context.Context, records []Record) error {
	if len(records) == 0 {
		return nil
	}
	passages := toPassages(records)
	embeddings, err := s.embed(ctx, passages)
	if err != nil {
		return err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if s.closed {
		return ErrStoreNotReady
	}
	return s.writeLocked(ctx, passages, embeddings)
}

// Replace swaps every passage ingested from source for records. The new records are
// embedded first; the previous passages are only removed once that has succeeded.
func (s *LocalStore) Replace(ctx context.Context, source string, records []Record) error {
	passages := toPassages(records)
	var embeddings [][]float32
	if len(passages) > 0 {
		var err error
		if embeddings, err = s.embed(ctx, passages); err != nil {
			return err
		}
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if s.closed {
		return ErrStoreNotReady
	}
	if _, err := s.deleteLocked(ctx, source); err != nil {
		return err
	}
	if len(passages) == 0 {
		return nil
	}
	return s.writeLocked(ctx, passages, embeddings)
}

func toPassages(records []Record) []*models.Passage {
	passages := make([]*models.Passage, len(records))
	for i := range records {
		if records[i].ID == "" {
			records[i].ID = RecordID(records[i])
		}
		passages[i] = &models.Passage{
			ID:       records[i].ID,
			Source:   records[i].Source,
			Text:     records[i].Text,
			Metadata: records[i].Metadata,
		}
	}
	return passages
}

func (s *LocalStore) writeLocked(ctx context.Context, passages []*models.Passage, embeddings [][]float32) error {
	if err := s.storage.UpsertPassages(ctx, passages); err != nil {
		return fmt.Errorf("store passages: %w", err)
	}
	if err := s.addVectors(ctx, passages, embeddings); err != nil {
		return err
	}
	return s.indexMetadata(ctx, passages)
}

func (s *LocalStore) embed(ctx context.Context, passages []*models.Passage) ([][]float32, error) {
	texts := make([]string, len(passages))
	for i, p := range passages {
		texts[i] = p.Text
	}
	embeddings, err := s.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("generate embeddings: %w", err)
	}
	if len(embeddings) != len(passages) {
		return nil, fmt.Errorf("generate embeddings: got %d vectors for %d passages", len(embeddings), len(passages))
	}
	return embeddings, nil
}

func (s *LocalStore) addVectors(ctx context.Context, passages []*models.Passage, embeddings [][]float32) error {
	ids := make([]string, len(passages))
	for i, p := range passages {
		ids[i] = p.ID
	}
	if err := s.vectors.Add(ctx, ids, embeddings); err != nil {
		return fmt.Errorf("index vectors: %w", err)
	}
	return nil
}

func (s *LocalStore) embedPassages(ctx context.Context, passages []*models.Passage) error {
	embeddings, err := s.embed(ctx, passages)
	if err != nil {
		return err
	}
	return s.addVectors(ctx, passages, embeddings)
}

func (s *LocalStore) indexMetadata(ctx context.Context, passages []*models.Passage) error {
	for _, p := range passages {
		if err := s.meta.Index(ctx, p.ID, canonicalFields(p.Source, p.Metadata)); err != nil {
			return fmt.Errorf("index metadata for %s: %w", p.ID, err)
		}
	}
	return nil
}

// Delete removes every passage ingested from source.
func (s *LocalStore) Delete(ctx context.Context, source string) (int64, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if s.closed {
		return 0, ErrStoreNotReady
	}
	return s.deleteLocked(ctx, source)
}

func (s *LocalStore) deleteLocked(ctx context.Context, source string) (int64, error) {
	ids, err := s.storage.PassageIDsBySource(ctx, source)
	if err != nil {
		return 0, fmt.Errorf("list passages for %s: %w", source, err)
	}
	if len(ids) == 0 {
		return 0, nil
	}
	if err := s.vectors.Remove(ctx, ids); err != nil {
		return 0, fmt.Errorf("remove vectors: %w", err)
	}
	for _, id := range ids {
		if err := s.meta.Delete(ctx, id); err != nil {
			return 0, fmt.Errorf("remove metadata for %s: %w", id, err)
		}
	}
	n, err := s.storage.DeletePassagesBySource(ctx, source)
	if err != nil {
		return 0, fmt.Errorf("delete passages: %w", err)
	}
	s.logger.Debug("source removed from store", zap.String("source", source), zap.Int64("passages", n))
	return n, nil
}

// Count returns the number of stored passages.
func (s *LocalStore) Count(ctx context.Context) (int64, error) {
	return s.storage.CountPassages(ctx)
}

// Stats reports passage and source counts, vector index size and on-disk footprint.
func (s *LocalStore) Stats(ctx context.Context) (*Stats, error) {
	n, err := s.storage.CountPassages(ctx)
	if err != nil {
		return nil, err
	}
	disk, err := storage.DiskUsageBytes(s.diskPaths...)
	if err != nil {
		return nil, fmt.Errorf("disk usage: %w", err)
	}
	sources, err := s.storage.ListSources(ctx)
	if err != nil {
		return nil, fmt.Errorf("list sources: %w", err)
	}
	return &Stats{Backend: "local", Passages: n, VectorSize: s.vectors.Size(), DiskBytes: disk, Sources: len(sources)}, nil
}

// Snapshot saves the vector index to the snapshot path, if one is set.
func (s *LocalStore) Snapshot() error {
	if s.vectorPath == "" {
		return nil
	}
	if err := s.vectors.Save(s.vectorPath); err != nil {
		return fmt.Errorf("save vector snapshot: %w", err)
	}
	return nil
}

// StartSnapshots saves the vector index on the given cron schedule
// (e.g. "@every 10m" or "0 */6 * * *"). An empty schedule disables periodic snapshots.
func (s *LocalStore) StartSnapshots(schedule string) error {
	if schedule == "" || s.vectorPath == "" {
		return nil
	}
	c := cron.New()
	if _, err := c.AddFunc(schedule, func() {
		if err := s.Snapshot(); err != nil {
			s.logger.Warn("scheduled vector snapshot failed", zap.Error(err))
			return
		}
		s.logger.Debug("vector snapshot saved", zap.String("path", s.vectorPath))
	}); err != nil {
		return fmt.Errorf("invalid snapshot schedule %q: %w", schedule, err)
	}
	c.Start()
	s.cron = c
	return nil
}

// Close stops scheduled snapshots, saves a final snapshot and closes every component.
func (s *LocalStore) Close() error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	if s.cron != nil {
		<-s.cron.Stop().Done()
	}
	var errs []error
	if err := s.Snapshot(); err != nil {
		errs = append(errs, err)
	}
	for _, c := range []interface{ Close() error }{s.vectors, s.meta, s.embedder, s.storage} {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// RecordID derives the deterministic ID for a record without one.
func RecordID(r Record) string {
	m := metadata.Normalize(r.Metadata)
	return fileid.PassageID(m.Act, m.Section, m.EffectiveFrom, r.Text)
}

// canonicalFields returns the exact-lookup fields for a passage. Values come from the
// normalizer so legacy key names are searchable under their canonical name.
func canonicalFields(source string, raw map[string]any) keyword.Fields {
	m := metadata.Normalize(raw)
	return keyword.Fields{
		"act":            m.Act,
		"section":        m.Section,
		"effective_from": m.EffectiveFrom,
		"type":           string(m.RecordType),
		"source":         source,
	}
}

func validateFilter(filter Filter) error {
	if len(filter) == 0 {
		return keyword.ErrEmptyFilter
	}
	for k := range filter {
		if !isIndexedField(k) {
			return fmt.Errorf("%w: %q", ErrUnsupportedFilter, k)
		}
	}
	return nil
}

func isIndexedField(name string) bool {
	for _, f := range keyword.IndexedFields {
		if f == name {
			return true
		}
	}
	return false
}

func recordFromPassage(p *models.Passage) Record {
	return Record{ID: p.ID, Source: p.Source, Text: p.Text, Metadata: p.Metadata}
}
