package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/hyperjump/nyaya/internal/models"
)

// SQLiteStorage implements Storage using SQLite.
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage opens or creates a SQLite database at dbPath and initializes the schema.
// Parent directories are created if they do not exist.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS passages (
		id TEXT PRIMARY KEY,
		source TEXT NOT NULL DEFAULT '',
		text TEXT NOT NULL,
		metadata TEXT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_passages_source ON passages(source);

	CREATE TABLE IF NOT EXISTS sources (
		path TEXT PRIMARY KEY,
		mod_time INTEGER NOT NULL,
		size INTEGER NOT NULL,
		passage_count INTEGER NOT NULL,
		indexed_at TIMESTAMP NOT NULL
	);
	`
	_, err := db.Exec(schema)
	return err
}

// UpsertPassages inserts or replaces passages in a single transaction.
func (s *SQLiteStorage) UpsertPassages(ctx context.Context, passages []*models.Passage) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO passages (id, source, text, metadata, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   source = excluded.source, text = excluded.text,
		   metadata = excluded.metadata, updated_at = excluded.updated_at`,
	)
	if err != nil {
		return err
	}
	defer stmt.Close()

	now := time.Now()
	for _, p := range passages {
		metadataJSON, err := json.Marshal(p.Metadata)
		if err != nil {
			return fmt.Errorf("failed to marshal metadata for %s: %w", p.ID, err)
		}
		if p.CreatedAt.IsZero() {
			p.CreatedAt = now
		}
		p.UpdatedAt = now
		if _, err := stmt.ExecContext(ctx, p.ID, p.Source, p.Text, string(metadataJSON), p.CreatedAt, p.UpdatedAt); err != nil {
			return fmt.Errorf("failed to upsert passage %s: %w", p.ID, err)
		}
	}
	return tx.Commit()
}

// GetPassage returns a passage by ID.
func (s *SQLiteStorage) GetPassage(ctx context.Context, id string) (*models.Passage, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, source, text, metadata, created_at, updated_at
		 FROM passages WHERE id = ?`, id,
	)
	p, err := scanPassage(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("passage %s: %w", id, ErrNotFound)
	}
	return p, err
}

// GetPassages returns the passages for ids keyed by ID. Missing IDs are absent from the map.
func (s *SQLiteStorage) GetPassages(ctx context.Context, ids []string) (map[string]*models.Passage, error) {
	out := make(map[string]*models.Passage, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	query := `SELECT id, source, text, metadata, created_at, updated_at FROM passages WHERE id IN (?` +
		strings.Repeat(",?", len(ids)-1) + `)`
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		p, err := scanPassage(rows)
		if err != nil {
			return nil, err
		}
		out[p.ID] = p
	}
	return out, rows.Err()
}

// ListPassages returns passages ordered by ID with offset and limit.
func (s *SQLiteStorage) ListPassages(ctx context.Context, offset, limit int) ([]*models.Passage, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, source, text, metadata, created_at, updated_at
		 FROM passages ORDER BY id LIMIT ? OFFSET ?`,
		limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var passages []*models.Passage
	for rows.Next() {
		p, err := scanPassage(rows)
		if err != nil {
			return nil, err
		}
		passages = append(passages, p)
	}
	return passages, rows.Err()
}

// PassageIDsBySource returns the IDs of every passage ingested from source.
func (s *SQLiteStorage) PassageIDsBySource(ctx context.Context, source string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM passages WHERE source = ? ORDER BY id`, source)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// DeletePassagesBySource removes all passages from source and returns how many were deleted.
func (s *SQLiteStorage) DeletePassagesBySource(ctx context.Context, source string) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM passages WHERE source = ?`, source)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// PutSource inserts or replaces a source record.
func (s *SQLiteStorage) PutSource(ctx context.Context, src *Source) error {
	if src.IndexedAt.IsZero() {
		src.IndexedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO sources (path, mod_time, size, passage_count, indexed_at)
		 VALUES (?, ?, ?, ?, ?)`,
		src.Path, src.ModTime, src.Size, src.PassageCount, src.IndexedAt,
	)
	return err
}

// GetSource returns the source record for path.
func (s *SQLiteStorage) GetSource(ctx context.Context, path string) (*Source, error) {
	var src Source
	err := s.db.QueryRowContext(ctx,
		`SELECT path, mod_time, size, passage_count, indexed_at FROM sources WHERE path = ?`, path,
	).Scan(&src.Path, &src.ModTime, &src.Size, &src.PassageCount, &src.IndexedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("source %s: %w", path, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &src, nil
}

// ListSources returns all source records ordered by path.
func (s *SQLiteStorage) ListSources(ctx context.Context) ([]*Source, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT path, mod_time, size, passage_count, indexed_at FROM sources ORDER BY path`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Source
	for rows.Next() {
		var src Source
		if err := rows.Scan(&src.Path, &src.ModTime, &src.Size, &src.PassageCount, &src.IndexedAt); err != nil {
			return nil, err
		}
		out = append(out, &src)
	}
	return out, rows.Err()
}

// DeleteSource removes the source record for path.
func (s *SQLiteStorage) DeleteSource(ctx context.Context, path string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM sources WHERE path = ?`, path)
	return err
}

// CountPassages returns the total number of passages.
func (s *SQLiteStorage) CountPassages(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM passages`).Scan(&count)
	return count, err
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanPassage(row rowScanner) (*models.Passage, error) {
	var p models.Passage
	var metadataJSON sql.NullString
	if err := row.Scan(&p.ID, &p.Source, &p.Text, &metadataJSON, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	if metadataJSON.Valid && metadataJSON.String != "" && metadataJSON.String != "null" {
		if err := json.Unmarshal([]byte(metadataJSON.String), &p.Metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal metadata for %s: %w", p.ID, err)
		}
	}
	return &p, nil
}
