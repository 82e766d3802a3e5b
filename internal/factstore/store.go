package factstore

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"
)

// Store holds working memory and the loaded rules.
type Store struct {
	templates map[string]*Template
	rules     []Rule
	initial   []string

	facts  []Fact // ascending ID order
	byText map[string]FactID
	nextID FactID
	fired  map[string]firedActivation

	allowDuplicates bool
	logger          *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithDuplicates lets identical facts coexist. By default asserting a fact
// equal to an existing one returns the existing fact.
func WithDuplicates() Option {
	return func(s *Store) {
		s.allowDuplicates = true
	}
}

// WithLogger sets the logger used for rule firing traces.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		s.logger = l
	}
}

// New creates an empty store with no rules.
func New(opts ...Option) *Store {
	s := &Store{
		templates: make(map[string]*Template),
		byText:    make(map[string]FactID),
		fired:     make(map[string]firedActivation),
		nextID:    1,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load replaces the rule set with p and resets working memory. The program
// is validated first; on error the store is unchanged.
func (s *Store) Load(p *Program) error {
	if err := p.Validate(); err != nil {
		return fmt.Errorf("load program: %w", err)
	}

	templates := make(map[string]*Template, len(p.Templates))
	for i := range p.Templates {
		t := p.Templates[i]
		t.Fields = slices.Clone(t.Fields)
		templates[t.Name] = &t
	}

	// Check initial facts against the new templates before committing.
	probe := &Store{templates: templates, byText: make(map[string]FactID), fired: make(map[string]firedActivation), nextID: 1, logger: s.logger}
	for _, text := range p.Facts {
		if _, err := probe.AssertString(text); err != nil {
			return fmt.Errorf("load program: initial fact %s: %w", text, err)
		}
	}

	s.templates = templates
	s.rules = slices.Clone(p.Rules)
	s.initial = slices.Clone(p.Facts)
	s.Reset()
	return nil
}

// Reset clears working memory and refraction state, restarts fact IDs, and
// asserts the program's initial facts. Rules and templates are kept.
func (s *Store) Reset() {
	s.facts = nil
	s.byText = make(map[string]FactID)
	s.fired = make(map[string]firedActivation)
	s.nextID = 1
	for _, text := range s.initial {
		if _, err := s.AssertString(text); err != nil {
			s.logger.Error("initial fact rejected", "fact", text, "error", err)
		}
	}
}

// Rules returns the number of loaded rules.
func (s *Store) Rules() int {
	return len(s.rules)
}

// RuleNames returns the loaded rule names in declaration order.
func (s *Store) RuleNames() []string {
	names := make([]string, len(s.rules))
	for i, r := range s.rules {
		names[i] = r.Name
	}
	return names
}

// Template returns a declared template.
func (s *Store) Template(name string) (Template, bool) {
	t, ok := s.templates[name]
	if !ok {
		return Template{}, false
	}
	return *t, true
}

// AssertString parses and asserts a fact in textual form.
func (s *Store) AssertString(text string) (Fact, error) {
	f, err := ParseFact(text)
	if err != nil {
		return Fact{}, err
	}
	return s.Assert(f)
}

// Assert adds a fact to working memory and returns it with its ID. Named
// facts are completed from their template. Unless duplicates are allowed, an
// equal existing fact is returned instead of adding a new one.
func (s *Store) Assert(f Fact) (Fact, error) {
	resolved, err := s.resolve(f)
	if err != nil {
		return Fact{}, err
	}

	text := resolved.String()
	if !s.allowDuplicates {
		if id, ok := s.byText[text]; ok {
			existing, _ := s.Fact(id)
			return existing, nil
		}
	}

	resolved.ID = s.nextID
	s.nextID++
	s.facts = append(s.facts, resolved)
	if _, ok := s.byText[text]; !ok {
		s.byText[text] = resolved.ID
	}
	s.forgetBlocked(resolved)
	return resolved, nil
}

func (s *Store) resolve(f Fact) (Fact, error) {
	t, declared := s.templates[f.Template]
	switch {
	case f.Named() && !declared:
		return Fact{}, fmt.Errorf("template %s is not declared", f.Template)
	case !f.Named() && declared && len(f.Values) > 0:
		return Fact{}, fmt.Errorf("template %s requires named fields", f.Template)
	case declared:
		fields, err := t.complete(f.Fields)
		if err != nil {
			return Fact{}, err
		}
		return Fact{Template: f.Template, Fields: fields}, nil
	}
	return Fact{Template: f.Template, Values: slices.Clone(f.Values)}, nil
}

// Retract removes a fact by ID.
func (s *Store) Retract(id FactID) error {
	i, ok := slices.BinarySearchFunc(s.facts, id, byID)
	if !ok {
		return fmt.Errorf("fact %d does not exist", id)
	}
	f := s.facts[i]
	s.facts = slices.Delete(s.facts, i, i+1)

	text := f.String()
	if s.byText[text] == id {
		delete(s.byText, text)
		// A remaining duplicate takes over the dedup entry.
		for _, other := range s.facts {
			if other.String() == text {
				s.byText[text] = other.ID
				break
			}
		}
	}
	s.forgetRetracted(id)
	return nil
}

// Fact returns the fact with the given ID.
func (s *Store) Fact(id FactID) (Fact, bool) {
	i, ok := slices.BinarySearchFunc(s.facts, id, byID)
	if !ok {
		return Fact{}, false
	}
	return s.facts[i], true
}

// Facts returns a snapshot of working memory in ID order.
func (s *Store) Facts() []Fact {
	return slices.Clone(s.facts)
}

// FactsByTemplate returns the facts of one template in ID order.
func (s *Store) FactsByTemplate(name string) []Fact {
	var out []Fact
	for _, f := range s.facts {
		if f.Template == name {
			out = append(out, f)
		}
	}
	return out
}

// NumFacts returns the number of facts in working memory.
func (s *Store) NumFacts() int {
	return len(s.facts)
}

// Run fires activations until the agenda is empty or maxFires activations
// have fired (maxFires < 0 means no bound). It returns the number fired.
func (s *Store) Run(ctx context.Context, maxFires int) (int, error) {
	fired := 0
	for maxFires < 0 || fired < maxFires {
		if err := ctx.Err(); err != nil {
			return fired, err
		}
		act, ok := s.next()
		if !ok {
			break
		}
		s.fired[act.key] = firedActivation{rule: act.rule, facts: act.facts}
		rule := s.rules[act.rule].Name
		s.logger.Debug("rule fired", "rule", rule, "facts", act.facts)
		if err := s.fire(act); err != nil {
			return fired, fmt.Errorf("rule %s: %w", rule, err)
		}
		fired++
	}
	return fired, nil
}

func byID(f Fact, target FactID) int {
	return cmp.Compare(f.ID, target)
}
