package engine

import (
	"fmt"

	"github.com/roach88/slotreason/internal/codec"
	"github.com/roach88/slotreason/internal/ir"
)

// Input is bulk host input for SetSlots, SetFacts and ReplaceSlots.
// Implemented by MapInput and PairsInput.
type Input interface {
	entries() ([]Entry, error)
}

// Entry is one named value of an Input.
type Entry struct {
	Name  string
	Value ir.IRValue
}

// MapInput maps names to values. Entries are written in sorted name order.
type MapInput map[string]ir.IRValue

func (m MapInput) entries() ([]Entry, error) {
	keys := ir.IRObject(m).SortedKeys()
	out := make([]Entry, len(keys))
	for i, k := range keys {
		out[i] = Entry{Name: k, Value: m[k]}
	}
	return out, nil
}

// PairsInput is a list of [name, value] pairs. A pair with more than two
// elements uses its tail as an array value.
type PairsInput []ir.IRArray

func (p PairsInput) entries() ([]Entry, error) {
	out := make([]Entry, len(p))
	for i, pair := range p {
		if len(pair) < 2 {
			return nil, inputError("entry %d has %d element(s), want a name and a value", i, len(pair))
		}
		name, ok := pair[0].(ir.IRString)
		if !ok {
			return nil, inputError("entry %d: name is %T, want a string", i, pair[0])
		}
		value := pair[1]
		if len(pair) > 2 {
			value = pair[1:]
		}
		out[i] = Entry{Name: string(name), Value: value}
	}
	return out, nil
}

// ParseInput converts a decoded document into an Input: an object becomes
// a MapInput, an array of arrays a PairsInput. Anything else fails with
// INVALID_SLOT_FORMAT.
func ParseInput(v ir.IRValue) (Input, error) {
	switch val := v.(type) {
	case ir.IRObject:
		return MapInput(val), nil
	case ir.IRArray:
		pairs := make(PairsInput, len(val))
		for i, elem := range val {
			pair, ok := elem.(ir.IRArray)
			if !ok {
				return nil, inputError("entry %d is %T, want a [name, value] list", i, elem)
			}
			pairs[i] = pair
		}
		return pairs, nil
	}
	return nil, inputError("input is %T, want a mapping or a list of pairs", v)
}

// encodeInput validates and encodes every entry before anything is
// asserted. Null values are skipped.
func encodeInput(in Input, encode func(string, ir.IRValue) (string, error)) ([]Entry, []string, error) {
	if in == nil {
		return nil, nil, inputError("input is nil")
	}
	entries, err := in.entries()
	if err != nil {
		return nil, nil, err
	}
	kept := entries[:0:0]
	var texts []string
	for _, en := range entries {
		if en.Value == nil || isNull(en.Value) {
			continue
		}
		text, err := encode(en.Name, en.Value)
		if err != nil {
			return nil, nil, valueError(err, "cannot encode %s", en.Name)
		}
		kept = append(kept, en)
		texts = append(texts, text)
	}
	return kept, texts, nil
}

func (e *Engine) assertAll(texts []string) error {
	for _, text := range texts {
		if _, err := e.facts.AssertString(text); err != nil {
			return valueError(err, "assert %s", text)
		}
	}
	return nil
}

// SetSlots asserts every entry as a slot fact. Existing slots with the same
// names are left in place; use ReplaceSlots to overwrite.
func (e *Engine) SetSlots(in Input) error {
	_, texts, err := encodeInput(in, codec.EncodeSlot)
	if err != nil {
		return fmt.Errorf("set slots: %w", err)
	}
	if err := e.assertAll(texts); err != nil {
		return fmt.Errorf("set slots: %w", err)
	}
	return nil
}

// SetFacts asserts every entry as a generic fact: objects become named
// facts of the template named by the entry, scalars and arrays become slots.
func (e *Engine) SetFacts(in Input) error {
	_, texts, err := encodeInput(in, codec.EncodeFact)
	if err != nil {
		return fmt.Errorf("set facts: %w", err)
	}
	if err := e.assertAll(texts); err != nil {
		return fmt.Errorf("set facts: %w", err)
	}
	return nil
}

// ReplaceSlots retracts the existing slots of every named entry, then
// asserts the new value. A null value only retracts.
func (e *Engine) ReplaceSlots(in Input) error {
	if in == nil {
		return fmt.Errorf("replace slots: %w", inputError("input is nil"))
	}
	entries, err := in.entries()
	if err != nil {
		return fmt.Errorf("replace slots: %w", err)
	}
	_, texts, err := encodeInput(in, codec.EncodeSlot)
	if err != nil {
		return fmt.Errorf("replace slots: %w", err)
	}
	for _, en := range entries {
		if _, err := e.RetractSlotsByName(en.Name); err != nil {
			return fmt.Errorf("replace slots: %w", err)
		}
	}
	if err := e.assertAll(texts); err != nil {
		return fmt.Errorf("replace slots: %w", err)
	}
	return nil
}

// AssertSlot asserts (slot name value...). Uniqueness is not enforced.
func (e *Engine) AssertSlot(name string, v ir.IRValue) error {
	text, err := codec.EncodeSlot(name, v)
	if err != nil {
		return valueError(err, "cannot encode slot %s", name)
	}
	return e.assertAll([]string{text})
}

// AssertFact asserts a generic fact value under name.
func (e *Engine) AssertFact(name string, v ir.IRValue) error {
	text, err := codec.EncodeFact(name, v)
	if err != nil {
		return valueError(err, "cannot encode fact %s", name)
	}
	return e.assertAll([]string{text})
}

// AssertObject asserts obj as a named fact of template. The template must
// be declared by the loaded program.
func (e *Engine) AssertObject(template string, obj ir.IRObject) error {
	if obj == nil {
		obj = ir.IRObject{}
	}
	return e.AssertFact(template, obj)
}
