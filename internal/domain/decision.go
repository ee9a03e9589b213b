package domain

// RefusalReason explains why no answer was produced.
type RefusalReason string

const (
	RefusalEmptyResults     RefusalReason = "EMPTY_RESULTS"
	RefusalBelowThreshold   RefusalReason = "BELOW_THRESHOLD"
	RefusalContextTooLarge  RefusalReason = "CONTEXT_TOO_LARGE"
	RefusalUngroundedAnswer RefusalReason = "UNGROUNDED_ANSWER"
)

// Message returns the user-facing text for the refusal.
func (r RefusalReason) Message() string {
	switch r {
	case RefusalEmptyResults:
		return "I don't have sufficient information in the book content to answer this question."
	case RefusalBelowThreshold:
		return "The retrieved information doesn't have sufficient confidence to provide a reliable answer."
	case RefusalUngroundedAnswer:
		return "I found relevant information but cannot generate a properly grounded response."
	default:
		return "I cannot provide an answer based on the available book content."
	}
}

// Decision is the confidence gate outcome: accept with the qualifying candidates, or refuse.
type Decision struct {
	accepted []RetrievalCandidate
	reason   RefusalReason
}

// Accept builds an accepting decision.
func Accept(candidates []RetrievalCandidate) Decision {
	return Decision{accepted: candidates}
}

// Refuse builds a refusing decision.
func Refuse(reason RefusalReason) Decision {
	return Decision{reason: reason}
}

func (d Decision) IsAccept() bool {
	return d.reason == ""
}

// Candidates returns the accepted candidates; nil when refused.
func (d Decision) Candidates() []RetrievalCandidate {
	return d.accepted
}

// Reason returns the refusal reason; empty when accepted.
func (d Decision) Reason() RefusalReason {
	return d.reason
}
