package domain

// ContextBundle is the size-bounded grounding material for one accepted query.
// Fragments and Citations are index-aligned.
type ContextBundle struct {
	Fragments       []RetrievalCandidate
	Citations       []Citation
	TokenBudgetUsed int
	TokenBudgetMax  int
}

// Empty reports whether no fragment fit the budget.
func (b ContextBundle) Empty() bool {
	return len(b.Fragments) == 0
}
