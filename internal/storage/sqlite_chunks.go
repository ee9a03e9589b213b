package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/THL3VPN/piaic71-hackathon1-v1/internal/domain"
	_ "modernc.org/sqlite" // SQLite driver
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS chunks (
	id          TEXT PRIMARY KEY,
	text        TEXT NOT NULL,
	source_path TEXT NOT NULL,
	heading     TEXT NOT NULL DEFAULT '',
	chunk_index INTEGER NOT NULL
)`

// SQLiteChunkStore is a file-backed chunk store for single-node deployments.
type SQLiteChunkStore struct {
	db   *sql.DB
	path string
}

// NewSQLiteChunkStore opens (creating if needed) the database at dbPath.
func NewSQLiteChunkStore(dbPath string) (*SQLiteChunkStore, error) {
	if dir := filepath.Dir(dbPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating chunks table: %w", err)
	}

	return &SQLiteChunkStore{db: db, path: dbPath}, nil
}

func (s *SQLiteChunkStore) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *SQLiteChunkStore) Path() string {
	return s.path
}

func (s *SQLiteChunkStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Fetch returns the chunks for ids keyed by id. Unknown ids are omitted.
func (s *SQLiteChunkStore) Fetch(ctx context.Context, ids []string) (map[string]domain.Chunk, error) {
	result := make(map[string]domain.Chunk, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = id
	}

	query := `SELECT id, text, source_path, heading, chunk_index FROM chunks WHERE id IN (` +
		strings.Join(placeholders, ",") + `)`
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying chunks: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var c domain.Chunk
		if err := rows.Scan(&c.ID, &c.Text, &c.SourcePath, &c.Heading, &c.ChunkIndex); err != nil {
			return nil, fmt.Errorf("scanning chunk: %w", err)
		}
		result[c.ID] = c
	}
	return result, rows.Err()
}

// Upsert writes a chunk, replacing any existing row with the same id.
func (s *SQLiteChunkStore) Upsert(ctx context.Context, c domain.Chunk) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO chunks (id, text, source_path, heading, chunk_index)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   text = excluded.text,
		   source_path = excluded.source_path,
		   heading = excluded.heading,
		   chunk_index = excluded.chunk_index`,
		c.ID, c.Text, c.SourcePath, c.Heading, c.ChunkIndex,
	)
	if err != nil {
		return fmt.Errorf("upserting chunk: %w", err)
	}
	return nil
}
