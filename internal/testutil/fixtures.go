package testutil

import (
	"context"
	"fmt"
	"math"

	"github.com/THL3VPN/piaic71-hackathon1-v1/internal/domain"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

// SeededChunk is a chunk together with the embedding indexed for it.
type SeededChunk struct {
	Chunk     domain.Chunk
	Embedding []float32
}

// SeedChunks writes chunks and their embeddings. An entry with a nil Embedding is stored
// without an index row; an empty Chunk.Text stores only the index row.
func SeedChunks(ctx context.Context, pool *pgxpool.Pool, seeds ...SeededChunk) error {
	for _, s := range seeds {
		if s.Chunk.Text != "" {
			_, err := pool.Exec(ctx,
				`INSERT INTO chunks (id, text, source_path, heading, chunk_index) VALUES ($1, $2, $3, $4, $5)`,
				s.Chunk.ID, s.Chunk.Text, s.Chunk.SourcePath, s.Chunk.Heading, s.Chunk.ChunkIndex,
			)
			if err != nil {
				return fmt.Errorf("seed chunk %s: %w", s.Chunk.ID, err)
			}
		}
		if s.Embedding != nil {
			_, err := pool.Exec(ctx,
				`INSERT INTO chunk_embeddings (chunk_id, embedding) VALUES ($1, $2)`,
				s.Chunk.ID, pgvector.NewVector(s.Embedding),
			)
			if err != nil {
				return fmt.Errorf("seed embedding %s: %w", s.Chunk.ID, err)
			}
		}
	}
	return nil
}

// Vector returns a dims-sized vector whose cosine similarity with UnitVector(dims, 0) is cos.
func Vector(dims int, cos float64) []float32 {
	v := make([]float32, dims)
	v[0] = float32(cos)
	if dims > 1 {
		v[1] = float32(math.Sqrt(math.Max(0, 1-cos*cos)))
	}
	return v
}

// UnitVector returns the dims-sized basis vector along axis.
func UnitVector(dims, axis int) []float32 {
	v := make([]float32, dims)
	v[axis] = 1
	return v
}
