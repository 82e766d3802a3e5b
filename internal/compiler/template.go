package compiler

import (
	"fmt"
	"strings"

	"cuelang.org/go/cue"

	"github.com/roach88/slotreason/internal/factstore"
)

// CompileTemplate parses a CUE value into a named fact template.
//
// The CUE value should be the template struct itself, e.g.:
//
//	ctx := cuecontext.New()
//	v := ctx.CompileString(`template: user: { slots: ["id"], multislots: ["requests"] }`)
//	tmpl, err := CompileTemplate(v.LookupPath(cue.ParsePath("template.user")))
//
// Single-value fields come first, in the order listed under slots, followed
// by the multislots. An optional defaults struct gives field defaults.
func CompileTemplate(v cue.Value) (factstore.Template, error) {
	if err := v.Err(); err != nil {
		return factstore.Template{}, formatCUEError(err)
	}

	var tmpl factstore.Template
	labels := v.Path().Selectors()
	if len(labels) > 0 {
		tmpl.Name = strings.Trim(labels[len(labels)-1].String(), `"`)
	}
	field := "template." + tmpl.Name

	if !factstore.IsSymbolText(tmpl.Name) {
		return factstore.Template{}, &CompileError{
			Field:   field,
			Message: fmt.Sprintf("template name %q is not a symbol", tmpl.Name),
			Pos:     v.Pos(),
		}
	}

	singles, err := stringList(v, "slots", field)
	if err != nil {
		return factstore.Template{}, err
	}
	multis, err := stringList(v, "multislots", field)
	if err != nil {
		return factstore.Template{}, err
	}
	if len(singles)+len(multis) == 0 {
		return factstore.Template{}, &CompileError{
			Field:   field,
			Message: "template needs at least one slot or multislot",
			Pos:     v.Pos(),
		}
	}

	for _, name := range singles {
		tmpl.Fields = append(tmpl.Fields, factstore.TemplateField{Name: name})
	}
	for _, name := range multis {
		tmpl.Fields = append(tmpl.Fields, factstore.TemplateField{Name: name, Multi: true})
	}

	defaultsVal := v.LookupPath(cue.ParsePath("defaults"))
	if defaultsVal.Exists() {
		iter, err := defaultsVal.Fields()
		if err != nil {
			return factstore.Template{}, formatCUEError(err)
		}
		for iter.Next() {
			name := iter.Label()
			idx := -1
			for i, f := range tmpl.Fields {
				if f.Name == name {
					idx = i
				}
			}
			if idx < 0 {
				return factstore.Template{}, &CompileError{
					Field:   field + ".defaults." + name,
					Message: "default given for undeclared field",
					Pos:     iter.Value().Pos(),
				}
			}
			values, err := nativeValues(iter.Value(), field+".defaults."+name)
			if err != nil {
				return factstore.Template{}, err
			}
			tmpl.Fields[idx].Default = values
		}
	}

	return tmpl, nil
}

// stringList reads an optional list of strings.
func stringList(v cue.Value, name, field string) ([]string, error) {
	listVal := v.LookupPath(cue.ParsePath(name))
	if !listVal.Exists() {
		return nil, nil
	}
	iter, err := listVal.List()
	if err != nil {
		return nil, &CompileError{
			Field:   field + "." + name,
			Message: "must be a list of strings",
			Pos:     listVal.Pos(),
		}
	}
	var out []string
	for iter.Next() {
		s, err := iter.Value().String()
		if err != nil {
			return nil, &CompileError{
				Field:   field + "." + name,
				Message: "must be a list of strings",
				Pos:     iter.Value().Pos(),
			}
		}
		out = append(out, s)
	}
	return out, nil
}

// nativeValues converts a concrete CUE scalar, or a list of scalars, to
// native fact values.
func nativeValues(v cue.Value, field string) ([]factstore.Value, error) {
	if v.IncompleteKind() == cue.ListKind {
		iter, err := v.List()
		if err != nil {
			return nil, formatCUEError(err)
		}
		var out []factstore.Value
		for iter.Next() {
			val, err := nativeValue(iter.Value(), field)
			if err != nil {
				return nil, err
			}
			out = append(out, val)
		}
		return out, nil
	}
	val, err := nativeValue(v, field)
	if err != nil {
		return nil, err
	}
	return []factstore.Value{val}, nil
}

func nativeValue(v cue.Value, field string) (factstore.Value, error) {
	switch v.Kind() {
	case cue.StringKind:
		s, err := v.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return factstore.String(s), nil
	case cue.IntKind:
		n, err := v.Int64()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return factstore.Integer(n), nil
	case cue.FloatKind:
		f, err := v.Float64()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return factstore.Float(f), nil
	case cue.BoolKind:
		b, err := v.Bool()
		if err != nil {
			return nil, formatCUEError(err)
		}
		if b {
			return factstore.Symbol("True"), nil
		}
		return factstore.Symbol("False"), nil
	}
	return nil, &CompileError{
		Field:   field,
		Message: fmt.Sprintf("unsupported default kind %v", v.IncompleteKind()),
		Pos:     v.Pos(),
	}
}
