package testutil

import (
	"context"
	"slices"
	"sync"

	"github.com/roach88/slotreason/internal/funcs"
	"github.com/roach88/slotreason/internal/ir"
)

// Call is one recorded function invocation.
type Call struct {
	Name string
	Args []ir.IRValue
}

// Recorder records function invocations made through the namespaces it
// wraps.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type Recorder struct {
	mu    sync.Mutex
	calls []Call
}

// NewRecorder creates an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Wrap returns fn recording every call under name.
func (r *Recorder) Wrap(name string, fn funcs.Func) funcs.Func {
	return func(ctx context.Context, args []ir.IRValue) (ir.IRValue, error) {
		r.mu.Lock()
		r.calls = append(r.calls, Call{Name: name, Args: slices.Clone(args)})
		r.mu.Unlock()
		return fn(ctx, args)
	}
}

// Namespace returns a copy of ns with every function wrapped.
func (r *Recorder) Namespace(ns funcs.Namespace) funcs.Namespace {
	out := make(funcs.Namespace, len(ns))
	for name, fn := range ns {
		out[name] = r.Wrap(name, fn)
	}
	return out
}

// Calls returns the recorded calls in order.
func (r *Recorder) Calls() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.calls)
}

// Count returns how many times name was called.
func (r *Recorder) Count(name string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, c := range r.calls {
		if c.Name == name {
			n++
		}
	}
	return n
}

// Reset forgets all recorded calls.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = nil
}

// Const returns a function that always returns v.
func Const(v ir.IRValue) funcs.Func {
	return func(context.Context, []ir.IRValue) (ir.IRValue, error) {
		return v, nil
	}
}

// Fail returns a function that always fails with err.
func Fail(err error) funcs.Func {
	return func(context.Context, []ir.IRValue) (ir.IRValue, error) {
		return nil, err
	}
}
