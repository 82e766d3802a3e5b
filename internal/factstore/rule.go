package factstore

import "fmt"

// Condition is one element of a rule's left-hand side. Match conditions bind
// variables and contribute a fact to the activation; absent conditions hold
// when no fact matches under the bindings made so far.
type Condition struct {
	Pattern Pattern
	Absent  bool
}

// ActionKind distinguishes rule actions.
type ActionKind int

const (
	// ActionAssert asserts the instantiated pattern.
	ActionAssert ActionKind = iota + 1
	// ActionRetract retracts the fact bound to a match condition.
	ActionRetract
)

// Action is one element of a rule's right-hand side.
type Action struct {
	Kind    ActionKind
	Pattern Pattern // ActionAssert
	Target  int     // ActionRetract: index into Rule.Conditions
}

// Rule is a named production.
type Rule struct {
	Name       string
	Salience   int
	Conditions []Condition
	Actions    []Action
}

// Program is a loadable rule set. Facts are asserted after every load and
// reset, in order.
type Program struct {
	Templates []Template
	Rules     []Rule
	Facts     []string
}

// Validate checks internal consistency of the program: templates are well
// formed, rule names are unique, named patterns refer to declared fields,
// assert actions only use variables bound by earlier match conditions, and
// retract actions target match conditions.
func (p *Program) Validate() error {
	templates := make(map[string]*Template, len(p.Templates))
	for i := range p.Templates {
		t := &p.Templates[i]
		if err := t.validate(); err != nil {
			return err
		}
		if _, dup := templates[t.Name]; dup {
			return fmt.Errorf("duplicate template %s", t.Name)
		}
		templates[t.Name] = t
	}

	names := make(map[string]bool, len(p.Rules))
	for i := range p.Rules {
		r := &p.Rules[i]
		if r.Name == "" {
			return fmt.Errorf("rule %d has no name", i)
		}
		if names[r.Name] {
			return fmt.Errorf("duplicate rule %s", r.Name)
		}
		names[r.Name] = true
		if err := validateRule(r, templates); err != nil {
			return fmt.Errorf("rule %s: %w", r.Name, err)
		}
	}
	return nil
}

func validatePattern(p Pattern, templates map[string]*Template) error {
	t, declared := templates[p.Template]
	if p.Named && !declared {
		return fmt.Errorf("pattern %s uses fields of undeclared template %s", p, p.Template)
	}
	if !declared {
		return nil
	}
	if !p.Named && len(p.Terms) > 0 {
		return fmt.Errorf("pattern %s: template %s requires named fields", p, p.Template)
	}
	for _, fp := range p.Fields {
		decl, ok := t.field(fp.Name)
		if !ok {
			return fmt.Errorf("pattern %s: template %s has no field %s", p, p.Template, fp.Name)
		}
		if !decl.Multi {
			for _, term := range fp.Terms {
				if term.multi() {
					return fmt.Errorf("pattern %s: single field %s cannot hold %s", p, fp.Name, term)
				}
			}
		}
	}
	return nil
}

func validateRule(r *Rule, templates map[string]*Template) error {
	if len(r.Conditions) == 0 {
		return fmt.Errorf("no conditions")
	}
	bound := make(map[string]bool)
	for _, c := range r.Conditions {
		if err := validatePattern(c.Pattern, templates); err != nil {
			return err
		}
		if !c.Absent {
			for _, v := range c.Pattern.Variables() {
				bound[v] = true
			}
		}
	}
	for i, a := range r.Actions {
		switch a.Kind {
		case ActionAssert:
			if err := validatePattern(a.Pattern, templates); err != nil {
				return fmt.Errorf("action %d: %w", i, err)
			}
			for _, v := range a.Pattern.Variables() {
				if !bound[v] {
					return fmt.Errorf("action %d: variable ?%s is not bound by a match condition", i, v)
				}
			}
			for _, term := range append(append([]Term{}, a.Pattern.Terms...), fieldTerms(a.Pattern)...) {
				if term.Kind == TermWildcard || term.Kind == TermMultiWildcard {
					return fmt.Errorf("action %d: wildcard %s cannot be asserted", i, term)
				}
			}
		case ActionRetract:
			if a.Target < 0 || a.Target >= len(r.Conditions) {
				return fmt.Errorf("action %d: retract target %d out of range", i, a.Target)
			}
			if r.Conditions[a.Target].Absent {
				return fmt.Errorf("action %d: retract target %d is an absent condition", i, a.Target)
			}
		default:
			return fmt.Errorf("action %d: unknown kind %d", i, a.Kind)
		}
	}
	return nil
}

func fieldTerms(p Pattern) []Term {
	var out []Term
	for _, f := range p.Fields {
		out = append(out, f.Terms...)
	}
	return out
}
