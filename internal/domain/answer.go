package domain

import "time"

// AnswerMeta carries bookkeeping shared by both answer variants.
type AnswerMeta struct {
	QueryID   string
	Retrieved []RetrievalCandidate
	BestScore float64
	Duration  time.Duration
}

// AnswerResult is either a GroundedAnswer or a Refusal. Dependency failures are
// returned as errors and never as an AnswerResult.
type AnswerResult interface {
	Meta() AnswerMeta
	isAnswerResult()
}

// GroundedAnswer is a generated answer backed by cited fragments.
type GroundedAnswer struct {
	AnswerMeta
	Answer    string
	Citations []Citation
	Bundle    ContextBundle
}

func (a *GroundedAnswer) Meta() AnswerMeta { return a.AnswerMeta }
func (*GroundedAnswer) isAnswerResult()    {}

// Refusal is a successful outcome that communicates that no answer is available.
type Refusal struct {
	AnswerMeta
	Reason  RefusalReason
	Message string
}

func (r *Refusal) Meta() AnswerMeta { return r.AnswerMeta }
func (*Refusal) isAnswerResult()    {}

// NewRefusal creates a refusal with the standard message for reason.
func NewRefusal(reason RefusalReason, meta AnswerMeta) *Refusal {
	return &Refusal{
		AnswerMeta: meta,
		Reason:     reason,
		Message:    reason.Message(),
	}
}
