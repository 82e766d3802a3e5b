package compiler

import (
	"fmt"
	"strings"

	"cuelang.org/go/cue"

	"github.com/roach88/slotreason/internal/factstore"
)

// CompileRule parses a CUE value into a factstore rule.
// Uses CUE SDK's Go API directly (not CLI subprocess).
//
// The CUE value should be the rule struct itself, e.g.:
//
//	ctx := cuecontext.New()
//	v := ctx.CompileString(`rule: "greet": { when: [...], then: [...] }`)
//	rule, err := CompileRule(v.LookupPath(cue.ParsePath(`rule."greet"`)))
func CompileRule(v cue.Value) (factstore.Rule, error) {
	if err := v.Err(); err != nil {
		return factstore.Rule{}, formatCUEError(err)
	}

	var rule factstore.Rule

	// The name may be quoted in CUE, e.g. `rule: "pizza-ready": { ... }`
	labels := v.Path().Selectors()
	if len(labels) > 0 {
		rule.Name = strings.Trim(labels[len(labels)-1].String(), `"`)
	}
	field := "rule." + rule.Name

	salienceVal := v.LookupPath(cue.ParsePath("salience"))
	if salienceVal.Exists() {
		n, err := salienceVal.Int64()
		if err != nil {
			return factstore.Rule{}, &CompileError{
				Field:   field + ".salience",
				Message: "salience must be an integer",
				Pos:     salienceVal.Pos(),
			}
		}
		rule.Salience = int(n)
	}

	var err error
	rule.Conditions, err = parseWhen(v, field)
	if err != nil {
		return factstore.Rule{}, err
	}

	rule.Actions, err = parseThen(v, field, rule.Conditions)
	if err != nil {
		return factstore.Rule{}, err
	}

	return rule, nil
}

// parseWhen extracts the rule's conditions. Each entry has exactly one of
// match or absent.
func parseWhen(v cue.Value, field string) ([]factstore.Condition, error) {
	whenVal := v.LookupPath(cue.ParsePath("when"))
	if !whenVal.Exists() {
		return nil, &CompileError{
			Field:   field + ".when",
			Message: "when clause is required",
			Pos:     v.Pos(),
		}
	}
	iter, err := whenVal.List()
	if err != nil {
		return nil, &CompileError{
			Field:   field + ".when",
			Message: "when must be a list of conditions",
			Pos:     whenVal.Pos(),
		}
	}

	var conds []factstore.Condition
	for i := 0; iter.Next(); i++ {
		entry := iter.Value()
		entryField := fmt.Sprintf("%s.when[%d]", field, i)

		matchVal := entry.LookupPath(cue.ParsePath("match"))
		absentVal := entry.LookupPath(cue.ParsePath("absent"))
		if matchVal.Exists() == absentVal.Exists() {
			return nil, &CompileError{
				Field:   entryField,
				Message: "condition needs exactly one of 'match' or 'absent'",
				Pos:     entry.Pos(),
			}
		}

		patVal := matchVal
		if absentVal.Exists() {
			patVal = absentVal
		}
		text, err := patVal.String()
		if err != nil {
			return nil, &CompileError{
				Field:   entryField,
				Message: "pattern must be a string",
				Pos:     patVal.Pos(),
			}
		}
		pat, err := factstore.ParsePattern(text)
		if err != nil {
			return nil, &CompileError{
				Field:   entryField,
				Message: err.Error(),
				Pos:     patVal.Pos(),
			}
		}
		conds = append(conds, factstore.Condition{Pattern: pat, Absent: absentVal.Exists()})
	}

	if len(conds) == 0 {
		return nil, &CompileError{
			Field:   field + ".when",
			Message: "at least one condition is required",
			Pos:     whenVal.Pos(),
		}
	}
	return conds, nil
}

// parseThen extracts the rule's actions. Each entry has exactly one of
// assert (fact text with variables) or retract (index of a match condition).
func parseThen(v cue.Value, field string, conds []factstore.Condition) ([]factstore.Action, error) {
	thenVal := v.LookupPath(cue.ParsePath("then"))
	if !thenVal.Exists() {
		return nil, &CompileError{
			Field:   field + ".then",
			Message: "then clause is required",
			Pos:     v.Pos(),
		}
	}
	iter, err := thenVal.List()
	if err != nil {
		return nil, &CompileError{
			Field:   field + ".then",
			Message: "then must be a list of actions",
			Pos:     thenVal.Pos(),
		}
	}

	bound := make(map[string]bool)
	for _, c := range conds {
		if !c.Absent {
			for _, name := range c.Pattern.Variables() {
				bound[name] = true
			}
		}
	}

	var actions []factstore.Action
	for i := 0; iter.Next(); i++ {
		entry := iter.Value()
		entryField := fmt.Sprintf("%s.then[%d]", field, i)

		assertVal := entry.LookupPath(cue.ParsePath("assert"))
		retractVal := entry.LookupPath(cue.ParsePath("retract"))
		if assertVal.Exists() == retractVal.Exists() {
			return nil, &CompileError{
				Field:   entryField,
				Message: "action needs exactly one of 'assert' or 'retract'",
				Pos:     entry.Pos(),
			}
		}

		if retractVal.Exists() {
			n, err := retractVal.Int64()
			if err != nil {
				return nil, &CompileError{
					Field:   entryField,
					Message: "retract must be the index of a match condition",
					Pos:     retractVal.Pos(),
				}
			}
			if n < 0 || int(n) >= len(conds) || conds[n].Absent {
				return nil, &CompileError{
					Field:   entryField,
					Message: fmt.Sprintf("retract index %d does not refer to a match condition", n),
					Pos:     retractVal.Pos(),
				}
			}
			actions = append(actions, factstore.Action{Kind: factstore.ActionRetract, Target: int(n)})
			continue
		}

		text, err := assertVal.String()
		if err != nil {
			return nil, &CompileError{
				Field:   entryField,
				Message: "assert must be a fact string",
				Pos:     assertVal.Pos(),
			}
		}
		pat, err := factstore.ParsePattern(text)
		if err != nil {
			return nil, &CompileError{
				Field:   entryField,
				Message: err.Error(),
				Pos:     assertVal.Pos(),
			}
		}
		for _, name := range pat.Variables() {
			if !bound[name] {
				return nil, &CompileError{
					Field:   entryField,
					Message: fmt.Sprintf("variable ?%s is not bound by a match condition", name),
					Pos:     assertVal.Pos(),
				}
			}
		}
		actions = append(actions, factstore.Action{Kind: factstore.ActionAssert, Pattern: pat})
	}

	return actions, nil
}
