package service

import (
	"strings"
	"unicode/utf8"

	"github.com/THL3VPN/piaic71-hackathon1-v1/internal/domain"
)

// DefaultCitationOverhead is the token cost charged per fragment for its citation header.
const DefaultCitationOverhead = 16

// TokenCounter estimates how many model tokens a text costs.
type TokenCounter interface {
	Count(text string) int
}

// EstimateTokenCounter approximates tokens as max(ceil(runes/4), words).
type EstimateTokenCounter struct{}

func (EstimateTokenCounter) Count(text string) int {
	runes := utf8.RuneCountInString(text)
	byChars := (runes + 3) / 4
	words := len(strings.Fields(text))
	if words > byChars {
		return words
	}
	return byChars
}

// ContextAssembler packs ranked candidates into a token-bounded bundle.
type ContextAssembler struct {
	counter  TokenCounter
	overhead int
}

func NewContextAssembler(counter TokenCounter, citationOverhead int) *ContextAssembler {
	if counter == nil {
		counter = EstimateTokenCounter{}
	}
	if citationOverhead < 0 {
		citationOverhead = 0
	}
	return &ContextAssembler{counter: counter, overhead: citationOverhead}
}

// Assemble walks candidates in rank order and stops at the first one that would overflow maxTokens.
// Later candidates are never pulled forward to fill the gap.
func (a *ContextAssembler) Assemble(candidates []domain.RetrievalCandidate, maxTokens int) domain.ContextBundle {
	bundle := domain.ContextBundle{
		Fragments:      []domain.RetrievalCandidate{},
		Citations:      []domain.Citation{},
		TokenBudgetMax: maxTokens,
	}
	if maxTokens <= 0 {
		bundle.TokenBudgetMax = 0
		return bundle
	}

	for _, c := range candidates {
		cost := a.counter.Count(c.Chunk.Text) + a.overhead
		if bundle.TokenBudgetUsed+cost > maxTokens {
			break
		}
		bundle.Fragments = append(bundle.Fragments, c)
		bundle.Citations = append(bundle.Citations, c.Chunk.Citation())
		bundle.TokenBudgetUsed += cost
	}
	return bundle
}
