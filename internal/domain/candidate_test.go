package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func candidate(id, path string, index int, score float64) RetrievalCandidate {
	return RetrievalCandidate{
		Chunk: Chunk{ID: id, SourcePath: path, ChunkIndex: index, Text: "text " + id},
		Score: score,
	}
}

func TestRankCandidates_ScoreDescending(t *testing.T) {
	candidates := []RetrievalCandidate{
		candidate("a", "docs/a.md", 0, 0.2),
		candidate("b", "docs/b.md", 0, 0.9),
		candidate("c", "docs/c.md", 0, 0.5),
	}

	RankCandidates(candidates)

	require.Len(t, candidates, 3)
	assert.Equal(t, "b", candidates[0].Chunk.ID)
	assert.Equal(t, "c", candidates[1].Chunk.ID)
	assert.Equal(t, "a", candidates[2].Chunk.ID)
	for i, c := range candidates {
		assert.Equal(t, i, c.Rank)
	}
}

func TestRankCandidates_TieBreaks(t *testing.T) {
	candidates := []RetrievalCandidate{
		candidate("z", "docs/b.md", 2, 0.7),
		candidate("y", "docs/b.md", 1, 0.7),
		candidate("x", "docs/a.md", 1, 0.7),
		candidate("w", "docs/a.md", 1, 0.7),
	}

	RankCandidates(candidates)

	ids := make([]string, len(candidates))
	for i, c := range candidates {
		ids[i] = c.Chunk.ID
	}
	// chunk_index asc, then source_path asc, then id asc
	assert.Equal(t, []string{"w", "x", "y", "z"}, ids)
}

func TestRankCandidates_Deterministic(t *testing.T) {
	build := func() []RetrievalCandidate {
		return []RetrievalCandidate{
			candidate("c1", "ch1.md", 3, 0.8),
			candidate("c2", "ch2.md", 0, 0.8),
			candidate("c3", "ch1.md", 0, 0.8),
			candidate("c4", "ch3.md", 1, 0.6),
		}
	}
	first := build()
	second := build()
	second[0], second[3] = second[3], second[0]

	RankCandidates(first)
	RankCandidates(second)

	assert.Equal(t, first, second)
}

func TestClampScore(t *testing.T) {
	tests := []struct {
		name     string
		score    float64
		expected float64
	}{
		{"negative", -0.4, 0},
		{"in range", 0.42, 0.42},
		{"above one", 1.0000002, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ClampScore(tt.score))
		})
	}
}
