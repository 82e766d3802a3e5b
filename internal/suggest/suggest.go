package suggest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/roach88/slotreason/internal/codec"
	"github.com/roach88/slotreason/internal/engine"
	"github.com/roach88/slotreason/internal/funcs"
	"github.com/roach88/slotreason/internal/ir"
	"github.com/roach88/slotreason/internal/pool"
)

// DefaultSuggestionName is the slot and template name scored intents are
// read from.
const DefaultSuggestionName = "intent_suggestion"

// Suggestion is an intent and its summed score.
type Suggestion struct {
	Intent string  `json:"intent" yaml:"intent"`
	Score  float64 `json:"score" yaml:"score"`
}

// Timing summarizes the reasoning time of past Suggest calls.
type Timing struct {
	Runs int           `json:"runs"`
	Last time.Duration `json:"last"`
	Mean time.Duration `json:"mean"`
	Max  time.Duration `json:"max"`
}

// Option configures a Suggester.
type Option func(*Suggester)

// WithAssertAsMultiple names properties whose array values are asserted as
// one fact per element.
func WithAssertAsMultiple(names ...string) Option {
	return func(s *Suggester) {
		for _, n := range names {
			s.multiple[n] = true
		}
	}
}

// WithReasonLimit bounds the reasoning cycles of each Suggest call.
func WithReasonLimit(n int) Option {
	return func(s *Suggester) {
		s.reasonLimit = n
	}
}

// WithSuggestionName changes the slot and template name suggestions are
// read from.
func WithSuggestionName(name string) Option {
	return func(s *Suggester) {
		s.name = name
	}
}

// WithProperties records the context properties callers should read for
// each user. Suggest itself reads whatever the adapter exposes.
func WithProperties(names ...string) Option {
	return func(s *Suggester) {
		s.properties = append(s.properties, names...)
	}
}

// WithLogger sets the suggester's logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Suggester) {
		s.logger = l
	}
}

// Suggester ranks intents using engines from a pool. Safe for concurrent use.
type Suggester struct {
	pool        *pool.Pool
	multiple    map[string]bool
	properties  []string
	reasonLimit int
	name        string
	logger      *slog.Logger

	mu     sync.Mutex
	timing Timing
	total  time.Duration
}

// New creates a Suggester over p.
func New(p *pool.Pool, opts ...Option) *Suggester {
	s := &Suggester{
		pool:        p,
		multiple:    make(map[string]bool),
		reasonLimit: engine.DefaultReasonLimit,
		name:        DefaultSuggestionName,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Suggest reads the user's context, reasons over it and returns the
// suggested intents, highest score first.
func (s *Suggester) Suggest(ctx context.Context, userID string, adapter ContextAdapter) (suggestions []Suggestion, err error) {
	s.logger.Info("intent suggestion started", "user", userID)

	props, err := DumpProperties(ctx, adapter, userID)
	if err != nil {
		return nil, fmt.Errorf("suggest for %s: %w", userID, err)
	}

	start := time.Now()
	e, err := s.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("suggest for %s: %w", userID, err)
	}
	defer func() {
		err = errors.Join(err, s.pool.Release(e))
	}()

	if err := e.SetFacts(FormatProperties(props, s.multiple)); err != nil {
		return nil, fmt.Errorf("suggest for %s: %w", userID, err)
	}
	if err := e.Reason(ctx, s.reasonLimit); err != nil {
		return nil, fmt.Errorf("suggest for %s: %w", userID, err)
	}

	values := append(e.CollectFactValues(s.name), slotValues(e, s.name)...)
	suggestions, err = SumScores(values)
	if err != nil {
		return nil, fmt.Errorf("suggest for %s: %w", userID, err)
	}

	t := s.record(time.Since(start))
	s.logger.Info("intent suggestion finished",
		"user", userID,
		"suggestions", len(suggestions),
		"duration", t.Last,
		"mean", t.Mean,
		"max", t.Max)
	return suggestions, nil
}

// Properties returns the names set with WithProperties.
func (s *Suggester) Properties() []string {
	return slices.Clone(s.properties)
}

// Timing returns the accumulated reasoning times.
func (s *Suggester) Timing() Timing {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.timing
}

func (s *Suggester) record(d time.Duration) Timing {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.timing.Runs++
	s.timing.Last = d
	s.total += d
	s.timing.Mean = s.total / time.Duration(s.timing.Runs)
	s.timing.Max = max(s.timing.Max, d)
	return s.timing
}

func slotValues(e *engine.Engine, name string) []ir.IRValue {
	var out []ir.IRValue
	for _, f := range e.SlotsByName(name) {
		if v, ok := codec.SlotValue(f.Values[1:]).(ir.IRArray); ok {
			out = append(out, v)
		}
	}
	return out
}

// FormatProperties turns properties into fact input. A property named in
// multiple whose value is an array contributes one entry per element;
// every other property contributes one entry. Null values are dropped.
func FormatProperties(props []Property, multiple map[string]bool) engine.PairsInput {
	var out engine.PairsInput
	add := func(name string, v ir.IRValue) {
		if _, null := v.(ir.IRNull); v == nil || null {
			return
		}
		out = append(out, ir.IRArray{ir.IRString(name), v})
	}
	for _, p := range props {
		arr, isArray := p.Value.(ir.IRArray)
		if multiple[p.Name] && isArray {
			for _, elem := range arr {
				add(p.Name, elem)
			}
			continue
		}
		add(p.Name, p.Value)
	}
	return out
}

// SumScores adds up the scores of [intent, score] values per intent and
// ranks the result by descending score. Ties keep first-seen order.
func SumScores(values []ir.IRValue) ([]Suggestion, error) {
	var order []string
	scores := make(map[string]float64)
	for i, v := range values {
		arr, ok := v.(ir.IRArray)
		if !ok || len(arr) != 2 {
			return nil, fmt.Errorf("suggestion %d: want [intent, score], got %v", i, ir.ToGo(v))
		}
		intent := funcs.Text(arr[0])
		var score float64
		switch n := arr[1].(type) {
		case ir.IRInt:
			score = float64(n)
		case ir.IRFloat:
			score = float64(n)
		default:
			return nil, fmt.Errorf("suggestion %d: score for %s is %T, want a number", i, intent, arr[1])
		}
		if _, seen := scores[intent]; !seen {
			order = append(order, intent)
		}
		scores[intent] += score
	}

	out := make([]Suggestion, len(order))
	for i, intent := range order {
		out[i] = Suggestion{Intent: intent, Score: scores[intent]}
	}
	slices.SortStableFunc(out, func(a, b Suggestion) int {
		switch {
		case a.Score > b.Score:
			return -1
		case a.Score < b.Score:
			return 1
		}
		return 0
	})
	return out, nil
}
