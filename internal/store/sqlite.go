package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	sqlitevec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3"

	"github.com/sourcelens/coderag/internal/chunk"
)

func init() {
	sqlitevec.Auto()
}

// SQLiteStore is the optional durable backend (spec.md §6, "Persisted
// state"): a single relational table holding chunk data plus a vec0
// virtual table for cosine-distance KNN search, joined by chunk id. Schema
// is created lazily on first open.
type SQLiteStore struct {
	mu  sync.RWMutex
	db  *sql.DB
	dim int
}

// NewSQLiteStore opens (or creates) a durable store at path, sized for
// embeddings of dimension dim.
func NewSQLiteStore(path string, dim int) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("store: opening sqlite database: %w", err)
	}
	s := &SQLiteStore{db: db, dim: dim}
	if err := s.ensureSchema(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) ensureSchema() error {
	if _, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS text_contexts (
			id            TEXT PRIMARY KEY,
			file_path     TEXT NOT NULL,
			file_name     TEXT NOT NULL,
			content       TEXT NOT NULL,
			start_line    INTEGER NOT NULL,
			end_line      INTEGER NOT NULL,
			last_modified TEXT NOT NULL,
			language      TEXT NOT NULL,
			function_name TEXT,
			class_name    TEXT,
			tags          TEXT
		)
	`); err != nil {
		return fmt.Errorf("store: creating text_contexts: %w", err)
	}

	stmt := fmt.Sprintf(`
		CREATE VIRTUAL TABLE IF NOT EXISTS vec_chunks USING vec0(
			chunk_id TEXT PRIMARY KEY,
			embedding float[%d] distance_metric=cosine
		)
	`, s.dim)
	if _, err := s.db.Exec(stmt); err != nil {
		return fmt.Errorf("store: creating vec_chunks: %w", err)
	}
	return nil
}

// Upsert inserts or replaces chunks by ID.
func (s *SQLiteStore) Upsert(ctx context.Context, chunks []chunk.Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin upsert tx: %w", err)
	}
	defer tx.Rollback()

	for _, c := range chunks {
		tagsJSON, err := json.Marshal(c.Tags)
		if err != nil {
			return fmt.Errorf("store: marshaling tags for %s: %w", c.ID, err)
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM text_contexts WHERE id = ?`, c.ID); err != nil {
			return fmt.Errorf("store: clearing previous row for %s: %w", c.ID, err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM vec_chunks WHERE chunk_id = ?`, c.ID); err != nil {
			return fmt.Errorf("store: clearing previous vector for %s: %w", c.ID, err)
		}

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO text_contexts
				(id, file_path, file_name, content, start_line, end_line, last_modified, language, function_name, class_name, tags)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, c.ID, c.FilePath, c.FileName, c.Content, c.StartLine, c.EndLine,
			c.LastModified.UTC().Format(time.RFC3339Nano), c.Language, c.FunctionName, c.ClassName, string(tagsJSON)); err != nil {
			return fmt.Errorf("store: inserting chunk %s: %w", c.ID, err)
		}

		if len(c.Embedding) > 0 {
			blob, err := sqlitevec.SerializeFloat32(c.Embedding)
			if err != nil {
				return fmt.Errorf("store: serializing embedding for %s: %w", c.ID, err)
			}
			if _, err := tx.ExecContext(ctx, `INSERT INTO vec_chunks(chunk_id, embedding) VALUES (?, ?)`, c.ID, blob); err != nil {
				return fmt.Errorf("store: inserting vector for %s: %w", c.ID, err)
			}
		}
	}

	return tx.Commit()
}

// Search returns the top-limit chunks by cosine similarity to query.
func (s *SQLiteStore) Search(ctx context.Context, query []float32, limit int) ([]SearchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 || len(query) == 0 {
		return nil, nil
	}
	blob, err := sqlitevec.SerializeFloat32(query)
	if err != nil {
		return nil, fmt.Errorf("store: serializing query vector: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT chunk_id, distance FROM vec_chunks
		WHERE embedding MATCH ? AND k = ?
		ORDER BY distance
	`, blob, limit)
	if err != nil {
		return nil, fmt.Errorf("store: knn query: %w", err)
	}
	defer rows.Close()

	var out []SearchResult
	for rows.Next() {
		var id string
		var distance float64
		if err := rows.Scan(&id, &distance); err != nil {
			return nil, fmt.Errorf("store: scanning knn row: %w", err)
		}
		c, err := s.loadChunk(ctx, id)
		if err != nil {
			return nil, err
		}
		if c == nil {
			continue
		}
		out = append(out, SearchResult{Chunk: *c, Similarity: float32(1 - distance)})
	}
	return out, rows.Err()
}

func (s *SQLiteStore) loadChunk(ctx context.Context, id string) (*chunk.Chunk, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, file_path, file_name, content, start_line, end_line, last_modified, language, function_name, class_name, tags
		FROM text_contexts WHERE id = ?
	`, id)
	return scanChunk(row)
}

func scanChunk(row *sql.Row) (*chunk.Chunk, error) {
	var c chunk.Chunk
	var lastModified, tagsJSON string
	if err := row.Scan(&c.ID, &c.FilePath, &c.FileName, &c.Content, &c.StartLine, &c.EndLine,
		&lastModified, &c.Language, &c.FunctionName, &c.ClassName, &tagsJSON); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("store: scanning chunk row: %w", err)
	}
	parsed, err := time.Parse(time.RFC3339Nano, lastModified)
	if err != nil {
		return nil, fmt.Errorf("store: parsing last_modified: %w", err)
	}
	c.LastModified = parsed
	if tagsJSON != "" {
		if err := json.Unmarshal([]byte(tagsJSON), &c.Tags); err != nil {
			return nil, fmt.Errorf("store: unmarshaling tags: %w", err)
		}
	}
	return &c, nil
}

// Count returns the number of stored chunks.
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM text_contexts`).Scan(&n); err != nil {
		return 0, fmt.Errorf("store: counting chunks: %w", err)
	}
	return n, nil
}

// Clear removes every stored chunk.
func (s *SQLiteStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.ExecContext(ctx, `DELETE FROM text_contexts`); err != nil {
		return fmt.Errorf("store: clearing text_contexts: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM vec_chunks`); err != nil {
		return fmt.Errorf("store: clearing vec_chunks: %w", err)
	}
	return nil
}

// AllFiles returns the distinct set of file paths with stored chunks.
func (s *SQLiteStore) AllFiles(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT file_path FROM text_contexts ORDER BY file_path`)
	if err != nil {
		return nil, fmt.Errorf("store: listing files: %w", err)
	}
	defer rows.Close()

	var files []string
	for rows.Next() {
		var path string
		if err := rows.Scan(&path); err != nil {
			return nil, fmt.Errorf("store: scanning file path: %w", err)
		}
		files = append(files, path)
	}
	return files, rows.Err()
}

// LastModified returns the last_modified of a chunk belonging to path, or
// nil if no chunk for path is stored.
func (s *SQLiteStore) LastModified(ctx context.Context, path string) (*time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var lastModified string
	err := s.db.QueryRowContext(ctx, `SELECT last_modified FROM text_contexts WHERE file_path = ? LIMIT 1`, path).Scan(&lastModified)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: reading last_modified for %s: %w", path, err)
	}
	t, err := time.Parse(time.RFC3339Nano, lastModified)
	if err != nil {
		return nil, fmt.Errorf("store: parsing last_modified: %w", err)
	}
	return &t, nil
}

// DeleteFileChunks removes every stored chunk belonging to path.
func (s *SQLiteStore) DeleteFileChunks(ctx context.Context, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx, `SELECT id FROM text_contexts WHERE file_path = ?`, path)
	if err != nil {
		return fmt.Errorf("store: finding chunks for %s: %w", path, err)
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return fmt.Errorf("store: scanning chunk id: %w", err)
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	if len(ids) == 0 {
		return nil
	}
	placeholders := make([]string, len(ids))
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = id
	}
	in := strings.Join(placeholders, ",")

	if _, err := s.db.ExecContext(ctx, fmt.Sprintf(`DELETE FROM text_contexts WHERE id IN (%s)`, in), args...); err != nil {
		return fmt.Errorf("store: deleting chunks for %s: %w", path, err)
	}
	if _, err := s.db.ExecContext(ctx, fmt.Sprintf(`DELETE FROM vec_chunks WHERE chunk_id IN (%s)`, in), args...); err != nil {
		return fmt.Errorf("store: deleting vectors for %s: %w", path, err)
	}
	return nil
}

// Close releases the underlying database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
