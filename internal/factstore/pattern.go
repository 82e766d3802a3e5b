package factstore

import (
	"fmt"
	"strings"
)

// TermKind distinguishes the elements of a pattern.
type TermKind int

const (
	// TermConst matches one value equal to Term.Value.
	TermConst TermKind = iota + 1
	// TermVar binds or tests one value (?x).
	TermVar
	// TermMultiVar binds or tests a run of zero or more values ($?x).
	TermMultiVar
	// TermWildcard matches any one value (?).
	TermWildcard
	// TermMultiWildcard matches any run of values ($?).
	TermMultiWildcard
)

// Term is one element of a pattern sequence.
type Term struct {
	Kind  TermKind
	Value Value
	Name  string
}

func (t Term) multi() bool {
	return t.Kind == TermMultiVar || t.Kind == TermMultiWildcard
}

func (t Term) String() string {
	switch t.Kind {
	case TermConst:
		return t.Value.String()
	case TermVar:
		return "?" + t.Name
	case TermMultiVar:
		return "$?" + t.Name
	case TermWildcard:
		return "?"
	case TermMultiWildcard:
		return "$?"
	}
	return "<invalid>"
}

// FieldPattern matches the values of one field of a named fact.
type FieldPattern struct {
	Name  string
	Terms []Term
}

// Pattern matches facts of one template. Ordered patterns match Values with
// Terms; named patterns match the listed Fields and ignore the others.
type Pattern struct {
	Template string
	Named    bool
	Terms    []Term
	Fields   []FieldPattern
}

func (p Pattern) String() string {
	var b strings.Builder
	b.WriteByte('(')
	b.WriteString(p.Template)
	if p.Named {
		for _, f := range p.Fields {
			b.WriteString(" (")
			b.WriteString(f.Name)
			for _, t := range f.Terms {
				b.WriteByte(' ')
				b.WriteString(t.String())
			}
			b.WriteByte(')')
		}
	} else {
		for _, t := range p.Terms {
			b.WriteByte(' ')
			b.WriteString(t.String())
		}
	}
	b.WriteByte(')')
	return b.String()
}

// Variables returns the variable names used by the pattern, in order of first use.
func (p Pattern) Variables() []string {
	var names []string
	seen := make(map[string]bool)
	add := func(terms []Term) {
		for _, t := range terms {
			if (t.Kind == TermVar || t.Kind == TermMultiVar) && !seen[t.Name] {
				seen[t.Name] = true
				names = append(names, t.Name)
			}
		}
	}
	add(p.Terms)
	for _, f := range p.Fields {
		add(f.Terms)
	}
	return names
}

// binding is the value of a variable. Single variables hold exactly one value.
type binding struct {
	values []Value
	multi  bool
}

// Bindings maps variable names to bound values.
type Bindings map[string]binding

func (b Bindings) clone() Bindings {
	out := make(Bindings, len(b)+2)
	for k, v := range b {
		out[k] = v
	}
	return out
}

// Value returns the single value bound to name.
func (b Bindings) Value(name string) (Value, bool) {
	bnd, ok := b[name]
	if !ok || bnd.multi || len(bnd.values) != 1 {
		return nil, false
	}
	return bnd.values[0], true
}

// Values returns the values bound to name, for single and multi variables.
func (b Bindings) Values(name string) ([]Value, bool) {
	bnd, ok := b[name]
	return bnd.values, ok
}

func sameValues(a, b []Value) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Match reports whether the fact matches the pattern under the given
// bindings, returning the extended bindings on success. The input bindings
// are never modified.
func (p Pattern) Match(f Fact, b Bindings) (Bindings, bool) {
	if f.Template != p.Template {
		return nil, false
	}
	if p.Named != f.Named() {
		// (tmpl) with no terms also matches a named fact of that template.
		if !(len(p.Terms) == 0 && len(p.Fields) == 0) {
			return nil, false
		}
		return b.clone(), true
	}

	out := b.clone()
	if !p.Named {
		return out, matchSeq(p.Terms, f.Values, out)
	}
	for _, fp := range p.Fields {
		fld, ok := f.Field(fp.Name)
		if !ok || !matchSeq(fp.Terms, fld.Values, out) {
			return nil, false
		}
	}
	return out, true
}

// matchSeq matches terms against values, extending b in place. At most one
// term is multi-valued; terms before it match the head of the sequence and
// terms after it match the tail.
func matchSeq(terms []Term, values []Value, b Bindings) bool {
	multiAt := -1
	for i, t := range terms {
		if t.multi() {
			multiAt = i
			break
		}
	}

	if multiAt < 0 {
		if len(terms) != len(values) {
			return false
		}
		for i, t := range terms {
			if !matchOne(t, values[i], b) {
				return false
			}
		}
		return true
	}

	before := terms[:multiAt]
	after := terms[multiAt+1:]
	if len(values) < len(before)+len(after) {
		return false
	}
	for i, t := range before {
		if !matchOne(t, values[i], b) {
			return false
		}
	}
	tailStart := len(values) - len(after)
	for i, t := range after {
		if !matchOne(t, values[tailStart+i], b) {
			return false
		}
	}

	run := values[len(before):tailStart]
	mt := terms[multiAt]
	if mt.Kind == TermMultiWildcard {
		return true
	}
	if bound, ok := b[mt.Name]; ok {
		return sameValues(bound.values, run)
	}
	b[mt.Name] = binding{values: append([]Value{}, run...), multi: true}
	return true
}

func matchOne(t Term, v Value, b Bindings) bool {
	switch t.Kind {
	case TermConst:
		return t.Value == v
	case TermWildcard:
		return true
	case TermVar:
		if bound, ok := b[t.Name]; ok {
			return len(bound.values) == 1 && bound.values[0] == v
		}
		b[t.Name] = binding{values: []Value{v}}
		return true
	}
	return false
}

// Instantiate substitutes bindings into an assert pattern and returns the
// resulting fact text. Wildcards and unbound variables are errors.
func (p Pattern) Instantiate(b Bindings) (string, error) {
	subst := func(terms []Term) ([]Value, error) {
		var out []Value
		for _, t := range terms {
			switch t.Kind {
			case TermConst:
				out = append(out, t.Value)
			case TermVar, TermMultiVar:
				vals, ok := b.Values(t.Name)
				if !ok {
					return nil, fmt.Errorf("variable ?%s is not bound", t.Name)
				}
				out = append(out, vals...)
			default:
				return nil, fmt.Errorf("wildcard %s cannot be asserted", t)
			}
		}
		return out, nil
	}

	f := Fact{Template: p.Template}
	if !p.Named {
		vals, err := subst(p.Terms)
		if err != nil {
			return "", err
		}
		f.Values = vals
		return f.String(), nil
	}
	f.Fields = make([]Field, 0, len(p.Fields))
	for _, fp := range p.Fields {
		vals, err := subst(fp.Terms)
		if err != nil {
			return "", fmt.Errorf("field %s: %w", fp.Name, err)
		}
		f.Fields = append(f.Fields, Field{Name: fp.Name, Values: vals})
	}
	return f.String(), nil
}
