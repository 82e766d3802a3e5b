package pool

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/roach88/slotreason/internal/engine"
	"github.com/roach88/slotreason/internal/metrics"
)

// Unbounded disables the capacity limit.
const Unbounded = -1

var (
	// ErrNotAcquired is returned when releasing an engine the pool does not
	// have checked out.
	ErrNotAcquired = errors.New("engine is not acquired from this pool")

	// ErrNoStateStore is returned by the state methods of a pool built
	// without WithStateStore.
	ErrNoStateStore = errors.New("pool has no state store")

	// ErrPoolClosed is returned by Acquire after Close.
	ErrPoolClosed = errors.New("pool is closed")
)

// Factory builds a new engine for a pool.
type Factory func() (*engine.Engine, error)

// Option configures a Pool.
type Option func(*Pool)

// WithCapacity limits the number of engines checked out at once.
// Unbounded (or any negative value) removes the limit. Zero is treated as 1.
func WithCapacity(n int) Option {
	return func(p *Pool) {
		p.capacity = n
	}
}

// WithPreload builds n engines when the pool is created.
func WithPreload(n int) Option {
	return func(p *Pool) {
		p.preload = n
	}
}

// WithStateStore enables AcquireState, ReleaseState and ClearState.
func WithStateStore(s StateStore) Option {
	return func(p *Pool) {
		p.states = s
	}
}

// WithLogger sets the pool's logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Pool) {
		p.logger = l
	}
}

// WithMetrics records pool gauges and acquire waits.
func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Pool) {
		p.metrics = m
	}
}

// Stats is a point-in-time view of a pool.
type Stats struct {
	Name     string `json:"name"`
	Capacity int    `json:"capacity"`
	Idle     int    `json:"idle"`
	Busy     int    `json:"busy"`
	Created  int    `json:"created"`
}

// Pool is a set of interchangeable engines built by one Factory.
// Safe for concurrent use; each engine is used by one holder at a time.
type Pool struct {
	name     string
	factory  Factory
	capacity int
	preload  int
	states   StateStore
	logger   *slog.Logger
	metrics  *metrics.Metrics

	sem *semaphore.Weighted // nil when unbounded

	mu      sync.Mutex
	idle    *idleQueue
	busy    map[*engine.Engine]struct{}
	created int
	closed  bool
}

// New creates a pool and runs its preload.
func New(name string, factory Factory, opts ...Option) (*Pool, error) {
	if factory == nil {
		return nil, fmt.Errorf("pool %s: nil factory", name)
	}
	p := &Pool{
		name:     name,
		factory:  factory,
		capacity: Unbounded,
		logger:   slog.Default(),
		busy:     make(map[*engine.Engine]struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.capacity == 0 {
		p.capacity = 1
	}
	if p.capacity < 0 {
		p.capacity = Unbounded
	} else {
		p.sem = semaphore.NewWeighted(int64(p.capacity))
	}
	p.idle = newIdleQueue(p.capacity)

	if err := p.runPreload(); err != nil {
		return nil, fmt.Errorf("pool %s: preload: %w", name, err)
	}
	p.reportState()
	return p, nil
}

// runPreload builds the preload engines in parallel. A bounded pool never
// holds more than capacity engines.
func (p *Pool) runPreload() error {
	n := p.preload
	if p.capacity != Unbounded && n > p.capacity {
		n = p.capacity
	}
	if n <= 0 {
		return nil
	}

	built := make([]*engine.Engine, n)
	var g errgroup.Group
	for i := range built {
		g.Go(func() error {
			e, err := p.factory()
			if err != nil {
				return err
			}
			built[i] = e
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	for _, e := range built {
		p.idle.Push(e)
		p.created++
		p.metrics.EngineCreated(p.name)
	}
	p.logger.Debug("pool preloaded", "pool", p.name, "engines", n)
	return nil
}

// Name returns the pool's name.
func (p *Pool) Name() string {
	return p.name
}

// Capacity returns the checkout limit, or Unbounded.
func (p *Pool) Capacity() int {
	return p.capacity
}

// Acquire checks out an engine. An idle engine is reused if there is one;
// otherwise a new engine is built. When capacity engines are already
// checked out, Acquire blocks until one is released or ctx is done.
func (p *Pool) Acquire(ctx context.Context) (*engine.Engine, error) {
	start := time.Now()
	if p.isClosed() {
		return nil, ErrPoolClosed
	}

	if p.sem != nil {
		if err := p.sem.Acquire(ctx, 1); err != nil {
			return nil, fmt.Errorf("acquire from pool %s: %w", p.name, err)
		}
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		p.releaseSlot()
		return nil, ErrPoolClosed
	}
	e, ok := p.idle.Pop()
	if ok {
		p.busy[e] = struct{}{}
	}
	p.mu.Unlock()

	if !ok {
		var err error
		e, err = p.factory()
		if err != nil {
			p.releaseSlot()
			return nil, fmt.Errorf("pool %s: create engine: %w", p.name, err)
		}
		p.mu.Lock()
		p.busy[e] = struct{}{}
		p.created++
		p.mu.Unlock()
		p.metrics.EngineCreated(p.name)
		p.logger.Debug("engine created", "pool", p.name, "engine", e.ID())
	}

	p.metrics.AcquireWait(p.name, time.Since(start))
	p.reportState()
	return e, nil
}

// Release resets e and returns it to the pool. Releasing an engine that is
// not checked out from this pool returns ErrNotAcquired.
func (p *Pool) Release(e *engine.Engine) error {
	p.mu.Lock()
	if _, ok := p.busy[e]; !ok {
		p.mu.Unlock()
		return fmt.Errorf("release to pool %s: %w", p.name, ErrNotAcquired)
	}
	delete(p.busy, e)
	e.Reset()
	if !p.closed {
		p.idle.Push(e)
	}
	p.mu.Unlock()

	p.releaseSlot()
	p.reportState()
	return nil
}

// Stats reports the pool's current counts.
func (p *Pool) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Stats{
		Name:     p.name,
		Capacity: p.capacity,
		Idle:     p.idle.Len(),
		Busy:     len(p.busy),
		Created:  p.created,
	}
}

// Close drops idle engines and makes further Acquire calls fail.
// Engines still checked out may be released; they are discarded.
func (p *Pool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.closed = true
	dropped := p.idle.Drain()
	p.logger.Debug("pool closed", "pool", p.name, "dropped", len(dropped), "busy", len(p.busy))
}

func (p *Pool) isClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

func (p *Pool) releaseSlot() {
	if p.sem != nil {
		p.sem.Release(1)
	}
}

func (p *Pool) reportState() {
	if p.metrics == nil {
		return
	}
	s := p.Stats()
	p.metrics.PoolState(p.name, s.Busy, s.Idle)
}
