package suggest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"sync"

	"github.com/roach88/slotreason/internal/ir"
)

var (
	// ErrPropertyNotDefined is returned when reading a property the adapter
	// does not expose.
	ErrPropertyNotDefined = errors.New("property not defined")

	// ErrUnknownUser is returned when the adapter has no data for a user.
	ErrUnknownUser = errors.New("unknown user")
)

// ContextAdapter reads and writes named context properties of a user.
type ContextAdapter interface {
	PropertyNames() []string
	ReadProperty(ctx context.Context, name, userID string) (ir.IRValue, error)
	WriteProperty(ctx context.Context, name, userID string, v ir.IRValue) error
}

// Property is a named context value.
type Property struct {
	Name  string
	Value ir.IRValue
}

// DumpProperties reads every property the adapter exposes, in the order of
// PropertyNames.
func DumpProperties(ctx context.Context, a ContextAdapter, userID string) ([]Property, error) {
	names := a.PropertyNames()
	out := make([]Property, 0, len(names))
	for _, name := range names {
		v, err := a.ReadProperty(ctx, name, userID)
		if err != nil {
			return nil, fmt.Errorf("read property %s: %w", name, err)
		}
		out = append(out, Property{Name: name, Value: v})
	}
	return out, nil
}

// JSONAdapter serves properties from a JSON document of the form
// {"<user>": {"<property>": <value>}}. Writes stay in memory.
type JSONAdapter struct {
	names []string

	mu    sync.RWMutex
	users map[string]ir.IRObject
}

// NewJSONAdapter decodes the document from r. names lists the properties
// exposed by PropertyNames, in order.
func NewJSONAdapter(r io.Reader, names []string) (*JSONAdapter, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read context: %w", err)
	}
	doc, err := ir.UnmarshalIRValue(data)
	if err != nil {
		return nil, fmt.Errorf("decode context: %w", err)
	}
	root, ok := doc.(ir.IRObject)
	if !ok {
		return nil, fmt.Errorf("decode context: top level is %T, want an object of users", doc)
	}

	users := make(map[string]ir.IRObject, len(root))
	for user, v := range root {
		props, ok := v.(ir.IRObject)
		if !ok {
			return nil, fmt.Errorf("decode context: user %q is %T, want an object", user, v)
		}
		users[user] = props
	}
	return &JSONAdapter{names: slices.Clone(names), users: users}, nil
}

// LoadJSONAdapter reads a JSONAdapter document from path.
func LoadJSONAdapter(path string, names []string) (*JSONAdapter, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open context: %w", err)
	}
	defer f.Close()
	return NewJSONAdapter(f, names)
}

// PropertyNames returns the exposed property names.
func (a *JSONAdapter) PropertyNames() []string {
	return slices.Clone(a.names)
}

// ReadProperty returns the user's value for name. A property that is exposed
// but absent for the user reads as null.
func (a *JSONAdapter) ReadProperty(_ context.Context, name, userID string) (ir.IRValue, error) {
	if !slices.Contains(a.names, name) {
		return nil, fmt.Errorf("%w: %s", ErrPropertyNotDefined, name)
	}
	a.mu.RLock()
	defer a.mu.RUnlock()
	props, ok := a.users[userID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownUser, userID)
	}
	v, ok := props[name]
	if !ok {
		return ir.IRNull{}, nil
	}
	return v, nil
}

// WriteProperty sets the user's value for name, creating the user if needed.
func (a *JSONAdapter) WriteProperty(_ context.Context, name, userID string, v ir.IRValue) error {
	if !slices.Contains(a.names, name) {
		return fmt.Errorf("%w: %s", ErrPropertyNotDefined, name)
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	props, ok := a.users[userID]
	if !ok {
		props = ir.IRObject{}
		a.users[userID] = props
	}
	props[name] = v
	return nil
}

// MappingAdapter exposes the properties of another adapter under new names.
// mapping is {source name: exposed name} and must be one-to-one.
type MappingAdapter struct {
	source  ContextAdapter
	inverse map[string]string
	names   []string
}

// NewMappingAdapter wraps source with a renaming.
func NewMappingAdapter(source ContextAdapter, mapping map[string]string) (*MappingAdapter, error) {
	m := &MappingAdapter{
		source:  source,
		inverse: make(map[string]string, len(mapping)),
	}
	for from, to := range mapping {
		if prev, dup := m.inverse[to]; dup {
			return nil, fmt.Errorf("mapping: %q and %q both map to %q", prev, from, to)
		}
		m.inverse[to] = from
		m.names = append(m.names, to)
	}
	slices.Sort(m.names)
	return m, nil
}

// PropertyNames returns the exposed names in sorted order.
func (m *MappingAdapter) PropertyNames() []string {
	return slices.Clone(m.names)
}

// ReadProperty reads the source property mapped to name.
func (m *MappingAdapter) ReadProperty(ctx context.Context, name, userID string) (ir.IRValue, error) {
	from, ok := m.inverse[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrPropertyNotDefined, name)
	}
	return m.source.ReadProperty(ctx, from, userID)
}

// WriteProperty writes the source property mapped to name.
func (m *MappingAdapter) WriteProperty(ctx context.Context, name, userID string, v ir.IRValue) error {
	from, ok := m.inverse[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrPropertyNotDefined, name)
	}
	return m.source.WriteProperty(ctx, from, userID, v)
}
