package pool

import (
	"slices"
	"sync"

	"golang.org/x/sync/singleflight"
)

// Registry maps names to pools. Safe for concurrent use.
//
// Pools are built outside the registry lock: a pool whose preload is slow
// delays only callers asking for that same name.
type Registry struct {
	defaults []Option
	building singleflight.Group

	mu     sync.Mutex
	pools  map[string]*Pool
	closed bool
}

// NewRegistry creates an empty registry. defaults are applied to every pool
// it creates, before the options passed to Pool.
func NewRegistry(defaults ...Option) *Registry {
	return &Registry{
		defaults: defaults,
		pools:    make(map[string]*Pool),
	}
}

// Pool returns the pool registered under name, creating it with factory and
// opts if there is none. Once a pool exists, factory and opts are ignored.
// Concurrent calls for a missing name share one build.
func (r *Registry) Pool(name string, factory Factory, opts ...Option) (*Pool, error) {
	if p, ok := r.Get(name); ok {
		return p, nil
	}

	v, err, _ := r.building.Do(name, func() (interface{}, error) {
		if p, ok := r.Get(name); ok {
			return p, nil
		}

		all := append(slices.Clone(r.defaults), opts...)
		p, err := New(name, factory, all...)
		if err != nil {
			return nil, err
		}

		r.mu.Lock()
		defer r.mu.Unlock()
		if r.closed {
			p.Close()
			return nil, ErrPoolClosed
		}
		r.pools[name] = p
		return p, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Pool), nil
}

// Get returns the pool registered under name.
func (r *Registry) Get(name string) (*Pool, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.pools[name]
	return p, ok
}

// Names returns the registered pool names in sorted order.
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.pools))
	for name := range r.pools {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Close closes every registered pool. Pools still being built when Close
// runs are closed as soon as they finish, and Pool reports ErrPoolClosed.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	for _, p := range r.pools {
		p.Close()
	}
}
