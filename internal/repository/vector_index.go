package repository

import (
	"context"

	"github.com/THL3VPN/piaic71-hackathon1-v1/internal/domain"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

// DefaultMaxSearchK bounds a single search when the caller passes an out-of-range k.
const DefaultMaxSearchK = 20

// VectorIndexRepository answers nearest-neighbour queries over chunk embeddings.
type VectorIndexRepository struct {
	db   dbtx
	maxK int
}

func NewVectorIndexRepository(pool *pgxpool.Pool, maxK int) *VectorIndexRepository {
	if maxK < 1 {
		maxK = DefaultMaxSearchK
	}
	return &VectorIndexRepository{db: pool, maxK: maxK}
}

// Search returns up to k hits ordered by descending cosine similarity.
func (r *VectorIndexRepository) Search(ctx context.Context, embedding []float32, k int) ([]domain.VectorHit, error) {
	k = domain.ClampTopK(k, r.maxK)

	rows, err := r.db.Query(ctx,
		`SELECT chunk_id, 1 - (embedding <=> $1) AS score
		 FROM chunk_embeddings
		 ORDER BY embedding <=> $1, chunk_id
		 LIMIT $2`,
		pgvector.NewVector(embedding), k,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	hits := make([]domain.VectorHit, 0, k)
	for rows.Next() {
		var h domain.VectorHit
		if err := rows.Scan(&h.ChunkID, &h.Score); err != nil {
			return nil, err
		}
		hits = append(hits, h)
	}
	return hits, rows.Err()
}

// ListIDs pages through indexed chunk ids in ascending order, starting after afterID.
func (r *VectorIndexRepository) ListIDs(ctx context.Context, afterID string, limit int) ([]string, error) {
	if limit <= 0 {
		limit = 500
	}

	rows, err := r.db.Query(ctx,
		`SELECT chunk_id FROM chunk_embeddings
		 WHERE chunk_id > $1
		 ORDER BY chunk_id
		 LIMIT $2`,
		afterID, limit,
	)
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

// Upsert stores the embedding for chunkID.
func (r *VectorIndexRepository) Upsert(ctx context.Context, chunkID string, embedding []float32) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO chunk_embeddings (chunk_id, embedding)
		 VALUES ($1, $2)
		 ON CONFLICT (chunk_id) DO UPDATE SET embedding = EXCLUDED.embedding`,
		chunkID, pgvector.NewVector(embedding),
	)
	return err
}
