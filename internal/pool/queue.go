package pool

import "github.com/roach88/slotreason/internal/engine"

// idleQueue is a FIFO of released engines.
//
// Not safe for concurrent use on its own; Pool guards it with its mutex.
type idleQueue struct {
	engines []*engine.Engine
}

func newIdleQueue(capacity int) *idleQueue {
	if capacity < 0 {
		capacity = 8
	}
	return &idleQueue{engines: make([]*engine.Engine, 0, capacity)}
}

// Push adds an engine to the back of the queue.
func (q *idleQueue) Push(e *engine.Engine) {
	q.engines = append(q.engines, e)
}

// Pop removes and returns the front engine, or (nil, false) if empty.
func (q *idleQueue) Pop() (*engine.Engine, bool) {
	if len(q.engines) == 0 {
		return nil, false
	}
	e := q.engines[0]
	q.engines[0] = nil // Allow GC
	q.engines = q.engines[1:]
	return e, true
}

// Len returns the number of idle engines.
func (q *idleQueue) Len() int {
	return len(q.engines)
}

// Drain removes all engines.
func (q *idleQueue) Drain() []*engine.Engine {
	out := q.engines
	q.engines = nil
	return out
}
