package domain

import "sort"

// VectorHit is one raw (id, score) pair returned by the vector index.
type VectorHit struct {
	ChunkID string
	Score   float64
}

// RetrievalCandidate pairs a hydrated chunk with its similarity score for one query.
// Scores are only comparable within the same candidate set.
type RetrievalCandidate struct {
	Chunk Chunk
	Score float64
	Rank  int
}

// candidateLess orders by score desc, chunk index asc, source path asc, then id asc.
func candidateLess(a, b RetrievalCandidate) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	if a.Chunk.ChunkIndex != b.Chunk.ChunkIndex {
		return a.Chunk.ChunkIndex < b.Chunk.ChunkIndex
	}
	if a.Chunk.SourcePath != b.Chunk.SourcePath {
		return a.Chunk.SourcePath < b.Chunk.SourcePath
	}
	return a.Chunk.ID < b.Chunk.ID
}

// RankCandidates sorts candidates deterministically and assigns 0-indexed ranks in place.
func RankCandidates(candidates []RetrievalCandidate) {
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidateLess(candidates[i], candidates[j])
	})
	for i := range candidates {
		candidates[i].Rank = i
	}
}

// ClampScore bounds a similarity score to [0, 1].
func ClampScore(score float64) float64 {
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}
