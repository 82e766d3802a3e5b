// Package funcs provides the function namespaces that directive facts call
// into.
//
// A Resolver maps a function name to a Func. Engines hold exactly one
// Resolver, usually a Namespace taken from a Catalog by name.
package funcs

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/roach88/slotreason/internal/ir"
)

// Func is a host function invoked by call_f, slot_f, unique_slot_f and
// call_and_assert directives. Arguments arrive decoded. Returning ir.IRNull
// asserts nothing.
type Func func(ctx context.Context, args []ir.IRValue) (ir.IRValue, error)

// Resolver looks up functions by name.
type Resolver interface {
	Resolve(name string) (Func, bool)
}

// Namespace is a Resolver backed by a map.
type Namespace map[string]Func

// Resolve implements Resolver.
func (n Namespace) Resolve(name string) (Func, bool) {
	f, ok := n[name]
	return f, ok
}

// Names returns the function names in sorted order.
func (n Namespace) Names() []string {
	names := make([]string, 0, len(n))
	for name := range n {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Merge returns a namespace holding the functions of all given namespaces.
// Later namespaces override earlier ones.
func Merge(namespaces ...Namespace) Namespace {
	out := make(Namespace)
	for _, ns := range namespaces {
		for name, f := range ns {
			out[name] = f
		}
	}
	return out
}

// StdNamespace is the name under which the builtin namespace is registered.
const StdNamespace = "std"

var (
	// ErrUnknownNamespace is returned when a catalog has no namespace by the requested name.
	ErrUnknownNamespace = errors.New("unknown function namespace")

	// ErrDuplicateNamespace is returned when registering a name twice.
	ErrDuplicateNamespace = errors.New("function namespace already registered")
)

// Catalog holds named namespaces. It is safe for concurrent use.
type Catalog struct {
	mu         sync.RWMutex
	namespaces map[string]Namespace
}

// NewCatalog returns a catalog with the std namespace registered.
func NewCatalog() *Catalog {
	return &Catalog{
		namespaces: map[string]Namespace{StdNamespace: Std()},
	}
}

// Register adds a namespace under name.
func (c *Catalog) Register(name string, ns Namespace) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.namespaces[name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateNamespace, name)
	}
	c.namespaces[name] = ns
	return nil
}

// Namespace returns the namespace registered under name.
func (c *Catalog) Namespace(name string) (Namespace, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ns, ok := c.namespaces[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownNamespace, name)
	}
	return ns, nil
}

// Resolver returns the merged namespaces for names, or nil for no names.
// A nil Resolver is valid for engines that call no functions.
func (c *Catalog) Resolver(names ...string) (Resolver, error) {
	if len(names) == 0 {
		return nil, nil
	}
	nss := make([]Namespace, 0, len(names))
	for _, name := range names {
		ns, err := c.Namespace(name)
		if err != nil {
			return nil, err
		}
		nss = append(nss, ns)
	}
	if len(nss) == 1 {
		return nss[0], nil
	}
	return Merge(nss...), nil
}

// Names returns the registered namespace names in sorted order.
func (c *Catalog) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.namespaces))
	for name := range c.namespaces {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
