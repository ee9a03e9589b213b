package repository

import (
	"context"

	"github.com/THL3VPN/piaic71-hackathon1-v1/internal/domain"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ChunkRepository is the Postgres-backed chunk store.
type ChunkRepository struct {
	db dbtx
}

func NewChunkRepository(pool *pgxpool.Pool) *ChunkRepository {
	return &ChunkRepository{db: pool}
}

// Fetch returns the chunks for ids keyed by id. Unknown ids are omitted.
func (r *ChunkRepository) Fetch(ctx context.Context, ids []string) (map[string]domain.Chunk, error) {
	result := make(map[string]domain.Chunk, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	rows, err := r.db.Query(ctx,
		`SELECT id, text, source_path, heading, chunk_index
		 FROM chunks WHERE id = ANY($1)`,
		ids,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var c domain.Chunk
		if err := rows.Scan(&c.ID, &c.Text, &c.SourcePath, &c.Heading, &c.ChunkIndex); err != nil {
			return nil, err
		}
		result[c.ID] = c
	}
	return result, rows.Err()
}

// Exists reports which of ids are present in the store.
func (r *ChunkRepository) Exists(ctx context.Context, ids []string) (map[string]bool, error) {
	found := make(map[string]bool, len(ids))
	if len(ids) == 0 {
		return found, nil
	}

	rows, err := r.db.Query(ctx, `SELECT id FROM chunks WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		found[id] = true
	}
	return found, rows.Err()
}

// Upsert writes a chunk, replacing any existing row with the same id.
func (r *ChunkRepository) Upsert(ctx context.Context, c domain.Chunk) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO chunks (id, text, source_path, heading, chunk_index)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (id) DO UPDATE
		 SET text = EXCLUDED.text, source_path = EXCLUDED.source_path,
		     heading = EXCLUDED.heading, chunk_index = EXCLUDED.chunk_index`,
		c.ID, c.Text, c.SourcePath, c.Heading, c.ChunkIndex,
	)
	return err
}

// Delete removes a chunk. Missing ids are not an error.
func (r *ChunkRepository) Delete(ctx context.Context, id string) error {
	_, err := r.db.Exec(ctx, `DELETE FROM chunks WHERE id = $1`, id)
	return err
}
