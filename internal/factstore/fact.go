package factstore

import (
	"fmt"
	"strings"
)

// FactID identifies a fact in working memory. IDs increase monotonically and
// are not reused until the store is reset.
type FactID int64

// Fact is an entry in working memory.
// Ordered facts carry Values; named facts carry Fields in template order.
type Fact struct {
	ID       FactID
	Template string
	Values   []Value
	Fields   []Field
}

// Field is one field of a named fact.
type Field struct {
	Name   string
	Multi  bool
	Values []Value
}

// Named reports whether the fact was asserted against a declared template.
func (f Fact) Named() bool {
	return f.Fields != nil
}

// Field returns the named field, if present.
func (f Fact) Field(name string) (Field, bool) {
	for _, fld := range f.Fields {
		if fld.Name == name {
			return fld, true
		}
	}
	return Field{}, false
}

// String renders the fact in its textual form, e.g. (slot size "big").
// The rendering parses back to an equal fact.
func (f Fact) String() string {
	var b strings.Builder
	b.WriteByte('(')
	b.WriteString(f.Template)
	if f.Named() {
		for _, fld := range f.Fields {
			b.WriteString(" (")
			b.WriteString(fld.Name)
			if len(fld.Values) > 0 {
				b.WriteByte(' ')
				b.WriteString(FormatValues(fld.Values))
			}
			b.WriteByte(')')
		}
	} else if len(f.Values) > 0 {
		b.WriteByte(' ')
		b.WriteString(FormatValues(f.Values))
	}
	b.WriteByte(')')
	return b.String()
}

// Template declares the fields of a named fact.
type Template struct {
	Name   string
	Fields []TemplateField
}

// TemplateField declares one field. Single fields hold exactly one value and
// default to the symbol nil; multi fields hold any number of values and
// default to empty.
type TemplateField struct {
	Name    string
	Multi   bool
	Default []Value
}

// field returns the declared field by name.
func (t *Template) field(name string) (TemplateField, bool) {
	for _, f := range t.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return TemplateField{}, false
}

// validate checks field names are unique and defaults fit the field kind.
func (t *Template) validate() error {
	if !IsSymbolText(t.Name) {
		return fmt.Errorf("template name %q is not a symbol", t.Name)
	}
	seen := make(map[string]bool, len(t.Fields))
	for _, f := range t.Fields {
		if !IsSymbolText(f.Name) {
			return fmt.Errorf("template %s: field name %q is not a symbol", t.Name, f.Name)
		}
		if seen[f.Name] {
			return fmt.Errorf("template %s: duplicate field %s", t.Name, f.Name)
		}
		seen[f.Name] = true
		if !f.Multi && len(f.Default) > 1 {
			return fmt.Errorf("template %s: single field %s has %d default values", t.Name, f.Name, len(f.Default))
		}
	}
	return nil
}

// complete resolves a parsed named fact against the template: unknown fields
// are rejected, missing fields take their defaults, and fields are put in
// declaration order.
func (t *Template) complete(parsed []Field) ([]Field, error) {
	given := make(map[string][]Value, len(parsed))
	for _, fld := range parsed {
		decl, ok := t.field(fld.Name)
		if !ok {
			return nil, fmt.Errorf("template %s has no field %s", t.Name, fld.Name)
		}
		if _, dup := given[fld.Name]; dup {
			return nil, fmt.Errorf("field %s given twice for template %s", fld.Name, t.Name)
		}
		if !decl.Multi && len(fld.Values) != 1 {
			return nil, fmt.Errorf("field %s of template %s takes exactly one value, got %d", fld.Name, t.Name, len(fld.Values))
		}
		given[fld.Name] = fld.Values
	}

	out := make([]Field, len(t.Fields))
	for i, decl := range t.Fields {
		values, ok := given[decl.Name]
		if !ok {
			values = decl.Default
			if !decl.Multi && len(values) == 0 {
				values = []Value{Symbol("nil")}
			}
		}
		out[i] = Field{Name: decl.Name, Multi: decl.Multi, Values: append([]Value{}, values...)}
	}
	return out, nil
}
