package engine

import (
	"context"
	"fmt"

	"github.com/roach88/slotreason/internal/codec"
	"github.com/roach88/slotreason/internal/factstore"
	"github.com/roach88/slotreason/internal/ir"
)

// Directive templates.
const (
	DirectiveCallF         = "call_f"
	DirectiveSlotF         = "slot_f"
	DirectiveUniqueSlot    = "unique_slot"
	DirectiveUniqueSlotF   = "unique_slot_f"
	DirectiveCallAndAssert = "call_and_assert"
)

// DirectiveShape describes the positional fields of a directive.
type DirectiveShape struct {
	// Fields names the required leading fields, in order.
	Fields []string

	// MinArgs is the number of required fields.
	MinArgs int

	// FuncArg is the position of the function name, or -1.
	FuncArg int

	// Code is reported when the directive is malformed.
	Code RuntimeErrorCode
}

// DirectiveShapes maps every directive template to its shape.
var DirectiveShapes = map[string]DirectiveShape{
	DirectiveCallF: {
		Fields:  []string{"function name"},
		MinArgs: 1,
		FuncArg: 0,
		Code:    ErrCodeInvalidCallF,
	},
	DirectiveSlotF: {
		Fields:  []string{"slot name", "function name"},
		MinArgs: 2,
		FuncArg: 1,
		Code:    ErrCodeInvalidSlotF,
	},
	DirectiveUniqueSlot: {
		Fields:  []string{"slot name", "slot value"},
		MinArgs: 2,
		FuncArg: -1,
		Code:    ErrCodeInvalidUniqueSlot,
	},
	DirectiveUniqueSlotF: {
		Fields:  []string{"slot name", "function name"},
		MinArgs: 2,
		FuncArg: 1,
		Code:    ErrCodeInvalidUniqueSlotF,
	},
	DirectiveCallAndAssert: {
		Fields:  []string{"fact name", "function name"},
		MinArgs: 2,
		FuncArg: 1,
		Code:    ErrCodeInvalidCallAndAssert,
	},
}

// pendingAssert is an assertion recorded during the scan. Unique asserts are
// resolved against the scanned snapshot when the pass is applied.
type pendingAssert struct {
	text      string
	unique    string // slot name for unique_slot*, "" otherwise
	candidate ir.IRValue
	dropped   bool // superseded by a later unique directive for the same slot
}

// directivePass holds the effects recorded by one scan of working memory.
// Nothing touches working memory until apply.
type directivePass struct {
	e        *Engine
	ctx      context.Context
	snapshot []factstore.Fact

	retract    []factstore.FactID
	retracting map[factstore.FactID]bool
	asserts    []pendingAssert
	lastUnique map[string]int // slot name → index into asserts

	processed int
}

// processDirectives runs one directive pass and returns how many directives
// it processed. A malformed directive or failing function aborts the pass
// before anything is applied; directives after it are not processed.
func (e *Engine) processDirectives(ctx context.Context) (int, error) {
	p := &directivePass{
		e:          e,
		ctx:        ctx,
		snapshot:   e.facts.Facts(),
		retracting: make(map[factstore.FactID]bool),
		lastUnique: make(map[string]int),
	}

	for _, f := range p.snapshot {
		shape, ok := DirectiveShapes[f.Template]
		if !ok {
			continue
		}
		if err := p.process(f, shape); err != nil {
			return p.processed, err
		}
		p.processed++
		e.metrics.Directive(f.Template)
		e.logger.Debug("directive processed",
			"engine", e.id,
			"directive", f.String())
	}

	if p.processed == 0 {
		return 0, nil
	}
	return p.processed, p.apply()
}

func (p *directivePass) process(f factstore.Fact, shape DirectiveShape) error {
	if f.Named() {
		return directiveError(shape.Code, f, "%s must be an ordered fact", f.Template)
	}
	if len(f.Values) < shape.MinArgs {
		return directiveError(shape.Code, f, "no %s is provided in (%s)", shape.Fields[len(f.Values)], f.Template)
	}
	p.retractID(f.ID)

	switch f.Template {
	case DirectiveCallF:
		_, err := p.call(f, shape)
		return err

	case DirectiveSlotF:
		v, err := p.call(f, shape)
		if err != nil || isNull(v) {
			return err
		}
		text, err := codec.EncodeSlot(valueText(f.Values[0]), v)
		if err != nil {
			return p.resultError(f, err)
		}
		p.asserts = append(p.asserts, pendingAssert{text: text})

	case DirectiveUniqueSlot:
		// Re-render the native values so the slot keeps the types the rule wrote.
		text := fmt.Sprintf("(%s %s)", SlotTemplate, factstore.FormatValues(f.Values))
		p.unique(valueText(f.Values[0]), codec.SlotValue(f.Values[1:]), text)

	case DirectiveUniqueSlotF:
		v, err := p.call(f, shape)
		if err != nil || isNull(v) {
			return err
		}
		name := valueText(f.Values[0])
		text, err := codec.EncodeSlot(name, v)
		if err != nil {
			return p.resultError(f, err)
		}
		p.unique(name, v, text)

	case DirectiveCallAndAssert:
		v, err := p.call(f, shape)
		if err != nil || isNull(v) {
			return err
		}
		text, err := codec.EncodeFact(valueText(f.Values[0]), v)
		if err != nil {
			return p.resultError(f, err)
		}
		p.asserts = append(p.asserts, pendingAssert{text: text})
	}
	return nil
}

// call resolves and invokes the directive's function with decoded arguments.
// A nil result is reported as IRNull.
func (p *directivePass) call(f factstore.Fact, shape DirectiveShape) (ir.IRValue, error) {
	name := valueText(f.Values[shape.FuncArg])
	if p.e.resolver == nil {
		return nil, &RuntimeError{
			Code:      ErrCodeFunctionsNotConfigured,
			Message:   fmt.Sprintf("cannot call %s: no function namespace configured", name),
			Directive: f.String(),
			FactID:    f.ID,
		}
	}
	fn, ok := p.e.resolver.Resolve(name)
	if !ok {
		return nil, &RuntimeError{
			Code:      ErrCodeFunctionNotFound,
			Message:   fmt.Sprintf("function %s not found", name),
			Directive: f.String(),
			FactID:    f.ID,
		}
	}

	args := codec.DecodeAll(f.Values[shape.FuncArg+1:])
	v, err := fn(p.ctx, args)
	if err != nil {
		return nil, &RuntimeError{
			Code:      ErrCodeFunctionFailed,
			Message:   fmt.Sprintf("function %s failed", name),
			Directive: f.String(),
			FactID:    f.ID,
			Err:       err,
		}
	}
	if v == nil {
		return ir.IRNull{}, nil
	}
	return v, nil
}

func (p *directivePass) resultError(f factstore.Fact, err error) error {
	re := valueError(err, "cannot assert result of %s", f.Template)
	re.Directive = f.String()
	re.FactID = f.ID
	return re
}

// unique records a unique_slot* assertion. A later directive for the same
// slot in the same pass supersedes earlier ones.
func (p *directivePass) unique(name string, candidate ir.IRValue, text string) {
	if i, ok := p.lastUnique[name]; ok {
		p.asserts[i].dropped = true
	}
	p.lastUnique[name] = len(p.asserts)
	p.asserts = append(p.asserts, pendingAssert{text: text, unique: name, candidate: candidate})
}

func (p *directivePass) retractID(id factstore.FactID) {
	if p.retracting[id] {
		return
	}
	p.retracting[id] = true
	p.retract = append(p.retract, id)
}

// apply resolves unique asserts against the snapshot, then retracts and
// asserts. Retractions come first so a slot is never visible with both its
// old and new value.
func (p *directivePass) apply() error {
	var texts []string
	for _, a := range p.asserts {
		if a.dropped {
			continue
		}
		if a.unique == "" {
			texts = append(texts, a.text)
			continue
		}
		stale, needsAssert := resolveUnique(p.snapshot, a.unique, a.candidate)
		for _, f := range stale {
			p.retractID(f.ID)
		}
		if needsAssert {
			texts = append(texts, a.text)
		}
	}

	for _, id := range p.retract {
		if err := p.e.facts.Retract(id); err != nil {
			return fmt.Errorf("retract fact %d: %w", id, err)
		}
	}
	for _, text := range texts {
		if _, err := p.e.facts.AssertString(text); err != nil {
			return valueError(err, "assert %s", text)
		}
	}
	return nil
}

func isNull(v ir.IRValue) bool {
	_, ok := v.(ir.IRNull)
	return ok
}

