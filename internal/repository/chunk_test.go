//go:build integration

package repository

import (
	"context"
	"testing"

	"github.com/THL3VPN/piaic71-hackathon1-v1/internal/domain"
	"github.com/THL3VPN/piaic71-hackathon1-v1/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunkRepository_Fetch(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewChunkRepository(pool)
	require.NoError(t, repo.Upsert(ctx, domain.Chunk{ID: "a", Text: "alpha", SourcePath: "docs/a.md", Heading: "A", ChunkIndex: 0}))
	require.NoError(t, repo.Upsert(ctx, domain.Chunk{ID: "b", Text: "beta", SourcePath: "docs/b.md", ChunkIndex: 4}))

	got, err := repo.Fetch(ctx, []string{"a", "b", "missing"})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, domain.Chunk{ID: "a", Text: "alpha", SourcePath: "docs/a.md", Heading: "A", ChunkIndex: 0}, got["a"])
	assert.Equal(t, 4, got["b"].ChunkIndex)

	exists, err := repo.Exists(ctx, []string{"a", "missing"})
	require.NoError(t, err)
	assert.True(t, exists["a"])
	assert.False(t, exists["missing"])

	require.NoError(t, repo.Delete(ctx, "a"))
	got, err = repo.Fetch(ctx, []string{"a"})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestChunkRepository_FetchEmpty(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	got, err := NewChunkRepository(pool).Fetch(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, got)
}
