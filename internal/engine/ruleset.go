package engine

import (
	"fmt"

	"github.com/roach88/slotreason/internal/factstore"
	"github.com/roach88/slotreason/internal/ir"
)

// RuleSetHash identifies the engine's program. Persisted states record it
// so a state can be checked against the rules it was produced under.
func (e *Engine) RuleSetHash() (string, error) {
	return ProgramHash(e.program)
}

// ProgramHash hashes a program's templates, rules and initial facts.
func ProgramHash(p *factstore.Program) (string, error) {
	if p == nil {
		return "", fmt.Errorf("program hash: nil program")
	}
	return ir.RuleSetHash(describeProgram(p))
}

func describeProgram(p *factstore.Program) ir.IRObject {
	templates := make(ir.IRArray, 0, len(p.Templates))
	for _, t := range p.Templates {
		fields := make(ir.IRArray, 0, len(t.Fields))
		for _, f := range t.Fields {
			fields = append(fields, ir.IRObject{
				"name":    ir.IRString(f.Name),
				"multi":   ir.IRBool(f.Multi),
				"default": ir.IRString(factstore.FormatValues(f.Default)),
			})
		}
		templates = append(templates, ir.IRObject{
			"name":   ir.IRString(t.Name),
			"fields": fields,
		})
	}

	rules := make(ir.IRArray, 0, len(p.Rules))
	for _, r := range p.Rules {
		conds := make(ir.IRArray, 0, len(r.Conditions))
		for _, c := range r.Conditions {
			s := c.Pattern.String()
			if c.Absent {
				s = "(not " + s + ")"
			}
			conds = append(conds, ir.IRString(s))
		}
		actions := make(ir.IRArray, 0, len(r.Actions))
		for _, a := range r.Actions {
			switch a.Kind {
			case factstore.ActionRetract:
				actions = append(actions, ir.IRString(fmt.Sprintf("(retract %d)", a.Target)))
			default:
				actions = append(actions, ir.IRString("(assert "+a.Pattern.String()+")"))
			}
		}
		rules = append(rules, ir.IRObject{
			"name":       ir.IRString(r.Name),
			"salience":   ir.IRInt(r.Salience),
			"conditions": conds,
			"actions":    actions,
		})
	}

	facts := make(ir.IRArray, len(p.Facts))
	for i, f := range p.Facts {
		facts[i] = ir.IRString(f)
	}

	return ir.IRObject{
		"templates": templates,
		"rules":     rules,
		"facts":     facts,
	}
}
