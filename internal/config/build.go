package config

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/slotreason/internal/compiler"
	"github.com/roach88/slotreason/internal/engine"
	"github.com/roach88/slotreason/internal/funcs"
	"github.com/roach88/slotreason/internal/metrics"
	"github.com/roach88/slotreason/internal/pool"
	"github.com/roach88/slotreason/internal/store"
	"github.com/roach88/slotreason/internal/suggest"
)

// Runtime is everything a configuration builds.
type Runtime struct {
	Registry   *pool.Registry
	States     pool.StateStore
	Suggesters map[string]*suggest.Suggester

	closers []io.Closer
}

// Close closes the pools and the state store.
func (r *Runtime) Close() error {
	r.Registry.Close()
	var first error
	for _, c := range r.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// BuildOption configures Build.
type BuildOption func(*buildOptions)

type buildOptions struct {
	catalog *funcs.Catalog
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// WithCatalog sets the function catalog pools resolve namespaces from.
// Defaults to funcs.NewCatalog().
func WithCatalog(c *funcs.Catalog) BuildOption {
	return func(o *buildOptions) {
		o.catalog = c
	}
}

// WithLogger sets the logger of pools, engines and suggesters.
func WithLogger(l *slog.Logger) BuildOption {
	return func(o *buildOptions) {
		o.logger = l
	}
}

// WithMetrics sets the metrics of pools and engines.
func WithMetrics(m *metrics.Metrics) BuildOption {
	return func(o *buildOptions) {
		o.metrics = m
	}
}

// OpenStateStore opens the configured state backend. The returned closer
// is nil when the backend needs no closing.
func (c *Config) OpenStateStore() (pool.StateStore, io.Closer, error) {
	switch c.State.Backend {
	case BackendSQLite:
		s, err := store.Open(c.State.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("open state store: %w", err)
		}
		return s, s, nil
	case BackendFile:
		s, err := store.NewFileStore(c.State.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("open state store: %w", err)
		}
		return s, nil, nil
	}
	return nil, nil, nil
}

// Factory compiles the pool's rules once and returns a factory building
// engines over them.
func (p PoolConfig) Factory(catalog *funcs.Catalog, opts ...engine.EngineOption) (pool.Factory, error) {
	program, err := compiler.LoadProgram(p.Rules...)
	if err != nil {
		return nil, fmt.Errorf("pool %s: %w", p.Name, err)
	}
	resolver, err := catalog.Resolver(p.Functions...)
	if err != nil {
		return nil, fmt.Errorf("pool %s: %w", p.Name, err)
	}

	opts = append([]engine.EngineOption{
		engine.WithReasonLimit(p.ReasonLimitOrDefault()),
		engine.WithMaxFires(p.MaxFiresOrDefault()),
	}, opts...)
	return func() (*engine.Engine, error) {
		return engine.New(program, resolver, opts...)
	}, nil
}

// Build creates the registry, the state store and a suggester for every
// pool with a suggest section.
func (c *Config) Build(opts ...BuildOption) (*Runtime, error) {
	o := buildOptions{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.catalog == nil {
		o.catalog = funcs.NewCatalog()
	}

	states, closer, err := c.OpenStateStore()
	if err != nil {
		return nil, err
	}

	defaults := []pool.Option{pool.WithLogger(o.logger), pool.WithMetrics(o.metrics)}
	if states != nil {
		defaults = append(defaults, pool.WithStateStore(states))
	}

	rt := &Runtime{
		Registry:   pool.NewRegistry(defaults...),
		States:     states,
		Suggesters: make(map[string]*suggest.Suggester),
	}
	if closer != nil {
		rt.closers = append(rt.closers, closer)
	}

	for _, pc := range c.Pools {
		factory, err := pc.Factory(o.catalog,
			engine.WithLogger(o.logger),
			engine.WithMetrics(o.metrics))
		if err != nil {
			rt.Close()
			return nil, err
		}
		p, err := rt.Registry.Pool(pc.Name, factory,
			pool.WithCapacity(pc.CapacityOrDefault()),
			pool.WithPreload(pc.Preload))
		if err != nil {
			rt.Close()
			return nil, err
		}

		if pc.Suggest != nil {
			sopts := []suggest.Option{
				suggest.WithProperties(pc.Suggest.Properties...),
				suggest.WithAssertAsMultiple(pc.Suggest.AssertAsMultiple...),
				suggest.WithReasonLimit(pc.ReasonLimitOrDefault()),
				suggest.WithLogger(o.logger),
			}
			if pc.Suggest.SuggestionName != "" {
				sopts = append(sopts, suggest.WithSuggestionName(pc.Suggest.SuggestionName))
			}
			rt.Suggesters[pc.Name] = suggest.New(p, sopts...)
		}
		o.logger.Debug("pool configured",
			"pool", pc.Name,
			"rules", pc.Rules,
			"capacity", pc.CapacityOrDefault(),
			"preload", pc.Preload)
	}
	return rt, nil
}
