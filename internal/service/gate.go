package service

import "github.com/THL3VPN/piaic71-hackathon1-v1/internal/domain"

// Decide is the confidence gate. Candidates must already be in rank order.
func Decide(candidates []domain.RetrievalCandidate, threshold float64) domain.Decision {
	if len(candidates) == 0 {
		return domain.Refuse(domain.RefusalEmptyResults)
	}
	if bestScore(candidates) < threshold {
		return domain.Refuse(domain.RefusalBelowThreshold)
	}

	accepted := make([]domain.RetrievalCandidate, 0, len(candidates))
	for _, c := range candidates {
		if c.Score >= threshold {
			accepted = append(accepted, c)
		}
	}
	return domain.Accept(accepted)
}

func bestScore(candidates []domain.RetrievalCandidate) float64 {
	best := 0.0
	for i, c := range candidates {
		if i == 0 || c.Score > best {
			best = c.Score
		}
	}
	return best
}
