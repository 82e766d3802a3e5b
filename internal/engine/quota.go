package engine

// cycleBudget counts reasoning cycles against a limit.
//
// One budget is created per Reason call. Check is called before every
// cycle; the cycle after the last permitted one fails, so a limit of n
// lets exactly n cycles run and a limit <= 0 fails before the first.
//
// The budget is the loop's only termination guarantee: rules that keep
// regenerating directives run until it is spent.
type cycleBudget struct {
	limit   int // Maximum cycles for this call
	current int // Cycles started so far
}

func newCycleBudget(limit int) *cycleBudget {
	return &cycleBudget{limit: limit}
}

// Check admits one more cycle or returns a CYCLE_LIMIT_EXCEEDED error.
func (b *cycleBudget) Check() error {
	if b.current >= b.limit {
		return NewCycleLimitError(b.limit, b.current)
	}
	b.current++
	return nil
}

// Cycles returns the number of cycles admitted so far.
func (b *cycleBudget) Cycles() int {
	return b.current
}

// Limit returns the cycle limit.
func (b *cycleBudget) Limit() int {
	return b.limit
}
