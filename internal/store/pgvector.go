package store

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/hyperjump/nyaya/internal/embedding"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

var tableNamePattern = regexp.MustCompile(`^[a-z_][a-z0-9_]{0,62}$`)

// PGVectorStore keeps passages and their embeddings in PostgreSQL with the pgvector
// extension. Canonical metadata is denormalized into columns for exact lookups.
type PGVectorStore struct {
	pool     *pgxpool.Pool
	table    string
	embedder embedding.Embedder
	logger   *zap.Logger
}

// NewPGVectorStore connects to connString and creates the passage table if needed.
func NewPGVectorStore(ctx context.Context, connString, table string, embedder embedding.Embedder, logger *zap.Logger) (*PGVectorStore, error) {
	if connString == "" {
		return nil, fmt.Errorf("%w: postgres url is empty", ErrStoreNotReady)
	}
	if table == "" {
		table = "statute_passages"
	}
	if !tableNamePattern.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	s := &PGVectorStore{pool: pool, table: table, embedder: embedder, logger: logger}
	if err := s.initSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	logger.Info("pgvector store ready", zap.String("table", table), zap.Int("dimensions", embedder.Dimensions()))
	return s, nil
}

func (s *PGVectorStore) initSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			source TEXT NOT NULL DEFAULT '',
			text TEXT NOT NULL,
			metadata JSONB NOT NULL DEFAULT '{}',
			act TEXT NOT NULL,
			section TEXT NOT NULL,
			effective_from TEXT NOT NULL,
			type TEXT NOT NULL,
			embedding vector(%d) NOT NULL
		)`, s.table, s.embedder.Dimensions()),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_section_idx ON %s (section)`, s.table, s.table),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_source_idx ON %s (source)`, s.table, s.table),
	}
	for _, stmt := range stmts {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}
	return nil
}

// Search returns the k passages nearest to queryText under the <=> cosine distance operator.
func (s *PGVectorStore) Search(ctx context.Context, queryText string, k int) ([]Hit, error) {
	if k <= 0 {
		return nil, nil
	}
	q, err := s.embedder.Embed(ctx, queryText)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	query := fmt.Sprintf(`
		SELECT text, metadata, embedding <=> $1::vector AS distance
		FROM %s
		ORDER BY embedding <=> $1::vector, id
		LIMIT $2`, s.table)
	rows, err := s.pool.Query(ctx, query, formatVector(q), k)
	if err != nil {
		return nil, fmt.Errorf("query passages: %w", err)
	}
	defer rows.Close()

	var hits []Hit
	for rows.Next() {
		var h Hit
		if err := rows.Scan(&h.Text, &h.Metadata, &h.Distance); err != nil {
			return nil, fmt.Errorf("scan passage: %w", err)
		}
		hits = append(hits, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate passages: %w", err)
	}
	return hits, nil
}

// ExactLookup returns passages whose canonical columns equal every filter value.
func (s *PGVectorStore) ExactLookup(ctx context.Context, filter Filter) ([]Record, error) {
	if err := validateFilter(filter); err != nil {
		return nil, err
	}
	where, args := buildWhere(filter)
	query := fmt.Sprintf(`SELECT id, source, text, metadata FROM %s WHERE %s ORDER BY id LIMIT %d`,
		s.table, where, exactLookupLimit)
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("lookup passages: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var r Record
		if err := rows.Scan(&r.ID, &r.Source, &r.Text, &r.Metadata); err != nil {
			return nil, fmt.Errorf("scan passage: %w", err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate passages: %w", err)
	}
	return records, nil
}

// Add embeds records and upserts them. Nothing is written if embedding fails.
func (s *PGVectorStore) Add(ctx context.Context, records []Record) error {
	if len(records) == 0 {
		return nil
	}
	embeddings, err := s.embed(ctx, records)
	if err != nil {
		return err
	}
	br := s.pool.SendBatch(ctx, s.upsertBatch(records, embeddings))
	defer br.Close()
	return execAll(br, len(records))
}

// Replace swaps every passage ingested from source for records in one transaction.
// Records are embedded before the transaction starts.
func (s *PGVectorStore) Replace(ctx context.Context, source string, records []Record) error {
	var embeddings [][]float32
	if len(records) > 0 {
		var err error
		if embeddings, err = s.embed(ctx, records); err != nil {
			return err
		}
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin replace: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, fmt.Sprintf(`DELETE FROM %s WHERE source = $1`, s.table), source); err != nil {
		return fmt.Errorf("delete passages: %w", err)
	}
	if len(records) > 0 {
		br := tx.SendBatch(ctx, s.upsertBatch(records, embeddings))
		err := execAll(br, len(records))
		if cerr := br.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("upsert passage: %w", cerr)
		}
		if err != nil {
			return err
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit replace: %w", err)
	}
	return nil
}

func (s *PGVectorStore) embed(ctx context.Context, records []Record) ([][]float32, error) {
	texts := make([]string, len(records))
	for i := range records {
		if records[i].ID == "" {
			records[i].ID = RecordID(records[i])
		}
		texts[i] = records[i].Text
	}
	embeddings, err := s.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("generate embeddings: %w", err)
	}
	if len(embeddings) != len(records) {
		return nil, fmt.Errorf("generate embeddings: got %d vectors for %d passages", len(embeddings), len(records))
	}
	return embeddings, nil
}

func (s *PGVectorStore) upsertBatch(records []Record, embeddings [][]float32) *pgx.Batch {
	query := fmt.Sprintf(`
		INSERT INTO %s (id, source, text, metadata, act, section, effective_from, type, embedding)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9::vector)
		ON CONFLICT (id) DO UPDATE SET
			source = EXCLUDED.source,
			text = EXCLUDED.text,
			metadata = EXCLUDED.metadata,
			act = EXCLUDED.act,
			section = EXCLUDED.section,
			effective_from = EXCLUDED.effective_from,
			type = EXCLUDED.type,
			embedding = EXCLUDED.embedding`, s.table)

	batch := &pgx.Batch{}
	for i, r := range records {
		f := canonicalFields(r.Source, r.Metadata)
		meta := r.Metadata
		if meta == nil {
			meta = map[string]any{}
		}
		batch.Queue(query, r.ID, r.Source, r.Text, meta,
			f["act"], f["section"], f["effective_from"], f["type"], formatVector(embeddings[i]))
	}
	return batch
}

func execAll(br pgx.BatchResults, n int) error {
	for i := 0; i < n; i++ {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("upsert passage: %w", err)
		}
	}
	return nil
}

// Delete removes every passage ingested from source.
func (s *PGVectorStore) Delete(ctx context.Context, source string) (int64, error) {
	tag, err := s.pool.Exec(ctx, fmt.Sprintf(`DELETE FROM %s WHERE source = $1`, s.table), source)
	if err != nil {
		return 0, fmt.Errorf("delete passages: %w", err)
	}
	return tag.RowsAffected(), nil
}

// Count returns the number of stored passages.
func (s *PGVectorStore) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.pool.QueryRow(ctx, fmt.Sprintf(`SELECT count(*) FROM %s`, s.table)).Scan(&n); err != nil {
		return 0, fmt.Errorf("count passages: %w", err)
	}
	return n, nil
}

// Stats reports the passage count. Every row carries an embedding, so the vector size equals it.
func (s *PGVectorStore) Stats(ctx context.Context) (*Stats, error) {
	n, err := s.Count(ctx)
	if err != nil {
		return nil, err
	}
	var disk int64
	err = s.pool.QueryRow(ctx, `SELECT pg_total_relation_size($1::regclass)`, s.table).Scan(&disk)
	if err != nil {
		s.logger.Debug("relation size unavailable", zap.Error(err))
		disk = 0
	}
	return &Stats{Backend: "pgvector", Passages: n, VectorSize: int(n), DiskBytes: disk}, nil
}

// Close releases the connection pool and the embedder.
func (s *PGVectorStore) Close() error {
	s.pool.Close()
	return s.embedder.Close()
}

// formatVector renders an embedding in pgvector's text input format.
func formatVector(v []float32) string {
	if len(v) == 0 {
		return "[]"
	}
	var b strings.Builder
	b.Grow(len(v) * 10)
	b.WriteByte('[')
	for i, x := range v {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatFloat(float64(x), 'f', 6, 32))
	}
	b.WriteByte(']')
	return b.String()
}

// buildWhere turns a validated filter into a conjunction over canonical columns.
// Column names are the indexed field names, values are bound as parameters.
func buildWhere(filter Filter) (string, []any) {
	keys := make([]string, 0, len(filter))
	for k := range filter {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	clauses := make([]string, len(keys))
	args := make([]any, len(keys))
	for i, k := range keys {
		clauses[i] = fmt.Sprintf("%s = $%d", k, i+1)
		args[i] = filter[k]
	}
	return strings.Join(clauses, " AND "), args
}
