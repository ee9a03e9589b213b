package domain

import "strings"

// Query is a single question submitted to the answer pipeline. It is never persisted by the core.
type Query struct {
	QuestionText        string
	TopK                int
	SimilarityThreshold float64
}

// Validate checks the query against the configured top_k ceiling.
func (q Query) Validate(maxTopK int) error {
	if strings.TrimSpace(q.QuestionText) == "" {
		return ErrEmptyQuestion
	}
	if q.TopK < 1 || q.TopK > maxTopK {
		return ErrTopKOutOfRange
	}
	if q.SimilarityThreshold < 0 || q.SimilarityThreshold > 1 {
		return ErrThresholdOutOfRange
	}
	return nil
}

// ClampTopK bounds k to [1, max].
func ClampTopK(k, max int) int {
	if max < 1 {
		max = 1
	}
	if k < 1 {
		return 1
	}
	if k > max {
		return max
	}
	return k
}
