package compiler

import (
	"fmt"

	"github.com/roach88/slotreason/internal/engine"
	"github.com/roach88/slotreason/internal/factstore"
	"github.com/roach88/slotreason/internal/funcs"
)

// Validation error codes (E120-E129)
const (
	ErrDirectiveArity    = "E120" // directive assert cannot carry its required fields
	ErrDirectiveNamed    = "E121" // directive asserted with named fields
	ErrUnknownFunction   = "E122" // function name not in the resolver
	ErrInvalidFunction   = "E123" // function position is not a name
	ErrSlotWithoutName   = "E124" // (slot) asserted without a name
	ErrNoFunctionsConfig = "E125" // rule calls functions but none are configured
)

// ValidationError represents a rule-set lint finding.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Line    int    `json:"line,omitempty"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("[%s] line %d: %s: %s", e.Code, e.Line, e.Field, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Validate checks the assert actions of every rule against the directive
// conventions. Only failures that are certain at runtime are reported: a
// directive whose required fields could come from a multi-value variable is
// accepted. Function names are checked when resolver is non-nil; with a nil
// resolver every function directive is reported.
// Returns all errors found (does not fail-fast).
func Validate(p *factstore.Program, resolver funcs.Resolver) []ValidationError {
	var errs []ValidationError
	for _, rule := range p.Rules {
		for i, action := range rule.Actions {
			if action.Kind != factstore.ActionAssert {
				continue
			}
			field := fmt.Sprintf("rule.%s.then[%d]", rule.Name, i)
			errs = append(errs, validateAssert(action.Pattern, field, resolver)...)
		}
	}
	return errs
}

func validateAssert(pat factstore.Pattern, field string, resolver funcs.Resolver) []ValidationError {
	var errs []ValidationError

	if pat.Template == engine.SlotTemplate {
		if !pat.Named && len(pat.Terms) == 0 {
			errs = append(errs, ValidationError{
				Field:   field,
				Message: "slot fact needs a slot name",
				Code:    ErrSlotWithoutName,
			})
		}
		return errs
	}

	shape, isDirective := engine.DirectiveShapes[pat.Template]
	if !isDirective {
		return nil
	}

	if pat.Named {
		return []ValidationError{{
			Field:   field,
			Message: fmt.Sprintf("%s directive must be an ordered fact", pat.Template),
			Code:    ErrDirectiveNamed,
		}}
	}

	// Terms before the first multi-value term have fixed positions.
	fixed := len(pat.Terms)
	for i, term := range pat.Terms {
		if term.Kind == factstore.TermMultiVar || term.Kind == factstore.TermMultiWildcard {
			fixed = i
			break
		}
	}
	if fixed == len(pat.Terms) && len(pat.Terms) < shape.MinArgs {
		errs = append(errs, ValidationError{
			Field:   field,
			Message: fmt.Sprintf("%s directive needs at least %d field(s), has %d", pat.Template, shape.MinArgs, len(pat.Terms)),
			Code:    ErrDirectiveArity,
		})
	}

	if shape.FuncArg < 0 {
		return errs
	}
	if resolver == nil {
		return append(errs, ValidationError{
			Field:   field,
			Message: fmt.Sprintf("%s directive calls a function but no function namespace is configured", pat.Template),
			Code:    ErrNoFunctionsConfig,
		})
	}
	if shape.FuncArg >= fixed {
		return errs
	}
	term := pat.Terms[shape.FuncArg]
	if term.Kind != factstore.TermConst {
		return errs
	}
	name, ok := factstore.Text(term.Value)
	if !ok {
		return append(errs, ValidationError{
			Field:   field,
			Message: fmt.Sprintf("function name %s is not a symbol or string", term.Value),
			Code:    ErrInvalidFunction,
		})
	}
	if _, found := resolver.Resolve(name); !found {
		errs = append(errs, ValidationError{
			Field:   field,
			Message: fmt.Sprintf("function %q is not defined", name),
			Code:    ErrUnknownFunction,
		})
	}
	return errs
}
