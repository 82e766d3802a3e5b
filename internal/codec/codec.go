// Package codec translates between host values (ir.IRValue) and the native
// values held by the fact store.
//
// Encoding renders host values as fact literals: strings are quoted, numbers
// are bare, booleans become the symbols True and False, and arrays become
// space-separated value lists. Decoding reverses this. Symbols are
// interpreted in a fixed order: True/False as booleans, ASCII digit runs as
// integers, float text as floats, anything else as strings.
package codec

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/roach88/slotreason/internal/factstore"
	"github.com/roach88/slotreason/internal/ir"
)

// SlotTemplate is the template name of slot facts.
const SlotTemplate = "slot"

// Reserved boolean symbols.
const (
	SymbolTrue  = factstore.Symbol("True")
	SymbolFalse = factstore.Symbol("False")
)

// ErrUnsupported reports a host value that has no fact encoding.
var ErrUnsupported = errors.New("unsupported value")

// Encode renders a scalar or an array of scalars as native literal text.
// Arrays render as their elements joined by spaces; nested arrays, objects
// and nulls are rejected.
func Encode(v ir.IRValue) (string, error) {
	if arr, ok := v.(ir.IRArray); ok {
		parts := make([]string, len(arr))
		for i, elem := range arr {
			s, err := encodeScalar(elem)
			if err != nil {
				return "", fmt.Errorf("element %d: %w", i, err)
			}
			parts[i] = s
		}
		return strings.Join(parts, " "), nil
	}
	return encodeScalar(v)
}

func encodeScalar(v ir.IRValue) (string, error) {
	switch val := v.(type) {
	case ir.IRString:
		return factstore.Quote(string(val)), nil
	case ir.IRInt:
		return factstore.Integer(val).String(), nil
	case ir.IRFloat:
		if math.IsNaN(float64(val)) || math.IsInf(float64(val), 0) {
			return "", fmt.Errorf("%w: non-finite float %v", ErrUnsupported, float64(val))
		}
		return factstore.Float(val).String(), nil
	case ir.IRBool:
		if val {
			return string(SymbolTrue), nil
		}
		return string(SymbolFalse), nil
	case nil, ir.IRNull:
		return "", fmt.Errorf("%w: null", ErrUnsupported)
	case ir.IRArray:
		return "", fmt.Errorf("%w: nested array", ErrUnsupported)
	case ir.IRObject:
		return "", fmt.Errorf("%w: object is only encodable as a named fact", ErrUnsupported)
	default:
		return "", fmt.Errorf("%w: %T", ErrUnsupported, v)
	}
}

// EncodeNative re-renders a native value as literal text, keeping its type.
func EncodeNative(v factstore.Value) string {
	return v.String()
}

// Decode converts a native value to its host equivalent.
func Decode(v factstore.Value) ir.IRValue {
	switch val := v.(type) {
	case factstore.Symbol:
		return decodeSymbol(string(val))
	case factstore.String:
		return ir.IRString(val)
	case factstore.Integer:
		return ir.IRInt(val)
	case factstore.Float:
		return ir.IRFloat(val)
	}
	return ir.IRNull{}
}

func decodeSymbol(s string) ir.IRValue {
	switch factstore.Symbol(s) {
	case SymbolTrue:
		return ir.IRBool(true)
	case SymbolFalse:
		return ir.IRBool(false)
	}
	if isDigits(s) {
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return ir.IRInt(n)
		}
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && !math.IsInf(f, 0) && !math.IsNaN(f) {
		return ir.IRFloat(f)
	}
	return ir.IRString(s)
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// DecodeAll decodes values element-wise.
func DecodeAll(values []factstore.Value) ir.IRArray {
	out := make(ir.IRArray, len(values))
	for i, v := range values {
		out[i] = Decode(v)
	}
	return out
}

// SlotValue decodes the value part of a slot fact: one element decodes to a
// scalar, any other count to an array.
func SlotValue(values []factstore.Value) ir.IRValue {
	if len(values) == 1 {
		return Decode(values[0])
	}
	return DecodeAll(values)
}

// Normalize collapses a one-element array to its element, matching how
// SlotValue reads the value back from a slot fact.
func Normalize(v ir.IRValue) ir.IRValue {
	if arr, ok := v.(ir.IRArray); ok && len(arr) == 1 {
		return arr[0]
	}
	return v
}

// Name renders a slot or fact name as a symbol when it reads back as one,
// otherwise as a quoted string.
func Name(name string) string {
	if factstore.IsSymbolText(name) {
		return name
	}
	return factstore.Quote(name)
}

// EncodeSlot renders the fact text (slot <name> <value>...).
func EncodeSlot(name string, v ir.IRValue) (string, error) {
	enc, err := Encode(v)
	if err != nil {
		return "", fmt.Errorf("slot %s: %w", name, err)
	}
	if enc == "" {
		return fmt.Sprintf("(%s %s)", SlotTemplate, Name(name)), nil
	}
	return fmt.Sprintf("(%s %s %s)", SlotTemplate, Name(name), enc), nil
}

// EncodeFact renders a generic fact value under name. Objects become named
// facts of template name, with one field per key in sorted order; field
// values may be scalars or arrays of scalars. Scalars and arrays become slot
// facts named name.
func EncodeFact(name string, v ir.IRValue) (string, error) {
	obj, ok := v.(ir.IRObject)
	if !ok {
		return EncodeSlot(name, v)
	}
	if !factstore.IsSymbolText(name) {
		return "", fmt.Errorf("%w: template name %q is not a symbol", ErrUnsupported, name)
	}

	var b strings.Builder
	b.WriteByte('(')
	b.WriteString(name)
	for _, k := range obj.SortedKeys() {
		if !factstore.IsSymbolText(k) {
			return "", fmt.Errorf("%w: field name %q is not a symbol", ErrUnsupported, k)
		}
		enc, err := Encode(obj[k])
		if err != nil {
			return "", fmt.Errorf("fact %s field %s: %w", name, k, err)
		}
		b.WriteString(" (")
		b.WriteString(k)
		if enc != "" {
			b.WriteByte(' ')
			b.WriteString(enc)
		}
		b.WriteByte(')')
	}
	b.WriteByte(')')
	return b.String(), nil
}

// FactValue decodes a fact for external observers: ordered facts as arrays,
// named facts as objects whose single fields hold scalars and multi fields
// hold arrays.
func FactValue(f factstore.Fact) ir.IRValue {
	if !f.Named() {
		return DecodeAll(f.Values)
	}
	obj := make(ir.IRObject, len(f.Fields))
	for _, fld := range f.Fields {
		if fld.Multi || len(fld.Values) != 1 {
			obj[fld.Name] = DecodeAll(fld.Values)
			continue
		}
		obj[fld.Name] = Decode(fld.Values[0])
	}
	return obj
}

// FromGo converts plain Go values into a generic fact value and checks its
// shape: a scalar, an array of scalars, or an object whose values are
// scalars or arrays of scalars.
func FromGo(v any) (ir.IRValue, error) {
	val, err := ir.FromGo(v)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupported, err)
	}
	if err := CheckGeneric(val); err != nil {
		return nil, err
	}
	return val, nil
}

// CheckGeneric validates the shape of a generic fact value. Null is allowed
// at the top level; setters skip it.
func CheckGeneric(v ir.IRValue) error {
	switch val := v.(type) {
	case ir.IRNull:
		return nil
	case ir.IRObject:
		for _, k := range val.SortedKeys() {
			if err := checkSlotValue(val[k]); err != nil {
				return fmt.Errorf("key %s: %w", k, err)
			}
		}
		return nil
	}
	return checkSlotValue(v)
}

func checkSlotValue(v ir.IRValue) error {
	if arr, ok := v.(ir.IRArray); ok {
		for i, elem := range arr {
			if !ir.IsScalar(elem) {
				return fmt.Errorf("%w: element %d is %T", ErrUnsupported, i, elem)
			}
		}
		return nil
	}
	if !ir.IsScalar(v) {
		return fmt.Errorf("%w: %T", ErrUnsupported, v)
	}
	return nil
}
