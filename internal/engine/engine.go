package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/roach88/slotreason/internal/factstore"
	"github.com/roach88/slotreason/internal/funcs"
	"github.com/roach88/slotreason/internal/metrics"
)

// FactStore is the working memory and matcher an Engine drives.
// Implemented by *factstore.Store.
type FactStore interface {
	Load(p *factstore.Program) error
	AssertString(text string) (factstore.Fact, error)
	Retract(id factstore.FactID) error
	Facts() []factstore.Fact
	Run(ctx context.Context, maxFires int) (int, error)
	Reset()
	Rules() int
}

// DefaultReasonLimit is the default cycle budget for a Reason call.
const DefaultReasonLimit = 1000

// Engine reasons over slot facts with one loaded rule program.
//
// Thread-safety: an Engine must only be used by one goroutine at a time.
// internal/pool hands engines out to exactly one holder.
type Engine struct {
	id       string
	facts    FactStore
	program  *factstore.Program
	resolver funcs.Resolver

	reasonLimit int // Cycle budget callers should pass to Reason (default: 1000)
	maxFires    int // Rule firings per matcher run; < 0 is unbounded

	logger  *slog.Logger
	metrics *metrics.Metrics
	idGen   IDGenerator

	fires        int
	lastDuration time.Duration
}

// EngineOption allows configuration of engine parameters.
type EngineOption func(*Engine)

// WithReasonLimit sets the cycle budget reported by ReasonLimit.
//
// Default: 1000 cycles (DefaultReasonLimit)
func WithReasonLimit(limit int) EngineOption {
	return func(e *Engine) {
		e.reasonLimit = limit
	}
}

// WithMaxFires bounds the number of rule firings in each matcher run.
// A negative value (the default) means no bound.
func WithMaxFires(n int) EngineOption {
	return func(e *Engine) {
		e.maxFires = n
	}
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) EngineOption {
	return func(e *Engine) {
		e.logger = l
	}
}

// WithMetrics records reasoning metrics. A nil *metrics.Metrics records nothing.
func WithMetrics(m *metrics.Metrics) EngineOption {
	return func(e *Engine) {
		e.metrics = m
	}
}

// WithStore replaces the default in-memory fact store.
func WithStore(s FactStore) EngineOption {
	return func(e *Engine) {
		e.facts = s
	}
}

// WithIDGenerator sets the engine ID source. Default: UUIDv7Generator.
func WithIDGenerator(g IDGenerator) EngineOption {
	return func(e *Engine) {
		e.idGen = g
	}
}

// New creates an Engine and loads program into its fact store.
//
// resolver may be nil; any directive that calls a function then fails with
// FUNCTIONS_NOT_CONFIGURED.
func New(program *factstore.Program, resolver funcs.Resolver, opts ...EngineOption) (*Engine, error) {
	if program == nil {
		return nil, fmt.Errorf("new engine: nil program")
	}

	e := &Engine{
		program:     program,
		resolver:    resolver,
		reasonLimit: DefaultReasonLimit,
		maxFires:    -1,
		logger:      slog.Default(),
		idGen:       UUIDv7Generator{},
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.facts == nil {
		e.facts = factstore.New(factstore.WithLogger(e.logger))
	}

	start := time.Now()
	if err := e.facts.Load(program); err != nil {
		return nil, fmt.Errorf("new engine: %w", err)
	}
	e.id = e.idGen.Generate()

	e.logger.Debug("engine created",
		"engine", e.id,
		"rules", e.facts.Rules(),
		"duration", time.Since(start))
	return e, nil
}

// ID returns the engine identifier.
func (e *Engine) ID() string {
	return e.id
}

// ReasonLimit returns the configured cycle budget.
func (e *Engine) ReasonLimit() int {
	return e.reasonLimit
}

// Program returns the loaded rule program.
func (e *Engine) Program() *factstore.Program {
	return e.program
}

// Reset clears working memory and counters. Rules and resolver are kept.
func (e *Engine) Reset() {
	e.facts.Reset()
	e.fires = 0
	e.lastDuration = 0
}

// NumFires returns the rule firings of the last Reason call.
func (e *Engine) NumFires() int {
	return e.fires
}

// LastReasonDuration returns the wall time of the last Reason call.
func (e *Engine) LastReasonDuration() time.Duration {
	return e.lastDuration
}

// NumFacts returns the number of facts in working memory.
func (e *Engine) NumFacts() int {
	return len(e.facts.Facts())
}

// NumRules returns the number of loaded rules.
func (e *Engine) NumRules() int {
	return e.facts.Rules()
}
