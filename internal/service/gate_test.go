package service

import (
	"testing"

	"github.com/THL3VPN/piaic71-hackathon1-v1/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func candidates(scores ...float64) []domain.RetrievalCandidate {
	out := make([]domain.RetrievalCandidate, len(scores))
	for i, s := range scores {
		id := string(rune('a' + i))
		out[i] = domain.RetrievalCandidate{
			Chunk: chunk(id, "docs/"+id+".md", i, "text "+id),
			Score: s,
			Rank:  i,
		}
	}
	return out
}

func TestDecide(t *testing.T) {
	tests := []struct {
		name       string
		candidates []domain.RetrievalCandidate
		threshold  float64
		wantAccept bool
		wantReason domain.RefusalReason
		wantIDs    []string
	}{
		{
			name:       "empty refuses",
			candidates: nil,
			threshold:  0.5,
			wantReason: domain.RefusalEmptyResults,
		},
		{
			name:       "best below threshold refuses",
			candidates: candidates(0.3, 0.2, 0.1),
			threshold:  0.5,
			wantReason: domain.RefusalBelowThreshold,
		},
		{
			name:       "filters to qualifying candidates",
			candidates: candidates(0.9, 0.6, 0.4),
			threshold:  0.5,
			wantAccept: true,
			wantIDs:    []string{"a", "b"},
		},
		{
			name:       "score equal to threshold qualifies",
			candidates: candidates(0.5),
			threshold:  0.5,
			wantAccept: true,
			wantIDs:    []string{"a"},
		},
		{
			name:       "zero threshold accepts everything",
			candidates: candidates(0.1, 0),
			threshold:  0,
			wantAccept: true,
			wantIDs:    []string{"a", "b"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Decide(tt.candidates, tt.threshold)
			assert.Equal(t, tt.wantAccept, d.IsAccept())
			if !tt.wantAccept {
				assert.Equal(t, tt.wantReason, d.Reason())
				assert.Nil(t, d.Candidates())
				return
			}

			require.Len(t, d.Candidates(), len(tt.wantIDs))
			for i, c := range d.Candidates() {
				assert.Equal(t, tt.wantIDs[i], c.Chunk.ID)
				assert.GreaterOrEqual(t, c.Score, tt.threshold)
			}
		})
	}
}

func TestDecide_BelowThresholdRegardlessOfCount(t *testing.T) {
	scores := make([]float64, 50)
	for i := range scores {
		scores[i] = 0.49
	}
	d := Decide(candidates(scores...), 0.5)
	assert.False(t, d.IsAccept())
	assert.Equal(t, domain.RefusalBelowThreshold, d.Reason())
}
