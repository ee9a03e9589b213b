package service

import (
	"strings"
	"unicode"
)

// GroundingOverlap is the share of the answer's distinct words that also occur in the context.
func GroundingOverlap(answer, context string) float64 {
	answerWords := wordSet(answer)
	if len(answerWords) == 0 {
		return 0
	}
	contextWords := wordSet(context)

	shared := 0
	for w := range answerWords {
		if _, ok := contextWords[w]; ok {
			shared++
		}
	}
	return float64(shared) / float64(len(answerWords))
}

// IsGrounded reports whether answer clears minOverlap. A non-positive minimum disables the check.
func IsGrounded(answer, context string, minOverlap float64) bool {
	if minOverlap <= 0 {
		return true
	}
	return GroundingOverlap(answer, context) >= minOverlap
}

func wordSet(text string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, field := range strings.Fields(strings.ToLower(text)) {
		w := strings.TrimFunc(field, unicode.IsPunct)
		if w != "" {
			set[w] = struct{}{}
		}
	}
	return set
}
