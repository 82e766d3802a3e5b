package factstore

import (
	"cmp"
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// activation is a rule together with the facts that satisfied its match
// conditions. facts is indexed by condition; absent conditions hold 0.
type activation struct {
	rule     int
	facts    []FactID
	bindings Bindings
	key      string
	recency  []FactID // matched IDs, newest first
}

func newActivation(rule int, facts []FactID, b Bindings) activation {
	var sb strings.Builder
	sb.WriteString(strconv.Itoa(rule))
	sb.WriteByte(':')
	recency := make([]FactID, 0, len(facts))
	for i, id := range facts {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(strconv.FormatInt(int64(id), 10))
		if id != 0 {
			recency = append(recency, id)
		}
	}
	slices.SortFunc(recency, func(a, b FactID) int { return cmp.Compare(b, a) })
	return activation{
		rule:     rule,
		facts:    append([]FactID{}, facts...),
		bindings: b,
		key:      sb.String(),
		recency:  recency,
	}
}

// firedActivation records a fired activation for refraction.
type firedActivation struct {
	rule  int
	facts []FactID
}

// activations computes every current activation of rule ri, fired or not.
func (s *Store) activations(ri int) []activation {
	r := &s.rules[ri]
	var out []activation
	ids := make([]FactID, len(r.Conditions))
	s.join(ri, r, 0, Bindings{}, ids, &out)
	return out
}

func (s *Store) join(ri int, r *Rule, ci int, b Bindings, ids []FactID, out *[]activation) {
	if ci == len(r.Conditions) {
		*out = append(*out, newActivation(ri, ids, b))
		return
	}
	c := r.Conditions[ci]
	if c.Absent {
		for _, f := range s.facts {
			if _, ok := c.Pattern.Match(f, b); ok {
				return
			}
		}
		ids[ci] = 0
		s.join(ri, r, ci+1, b, ids, out)
		return
	}
	for _, f := range s.facts {
		nb, ok := c.Pattern.Match(f, b)
		if !ok {
			continue
		}
		ids[ci] = f.ID
		s.join(ri, r, ci+1, nb, ids, out)
	}
	ids[ci] = 0
}

// compareActivations orders the agenda: higher salience first, then the
// activation whose newest fact is most recent, then rule declaration order.
func (s *Store) compareActivations(a, b activation) int {
	if c := cmp.Compare(s.rules[b.rule].Salience, s.rules[a.rule].Salience); c != 0 {
		return c
	}
	for i := 0; i < len(a.recency) && i < len(b.recency); i++ {
		if c := cmp.Compare(b.recency[i], a.recency[i]); c != 0 {
			return c
		}
	}
	if c := cmp.Compare(len(b.recency), len(a.recency)); c != 0 {
		return c
	}
	if c := cmp.Compare(a.rule, b.rule); c != 0 {
		return c
	}
	return strings.Compare(a.key, b.key)
}

// Agenda returns the names of the rules that would fire next, in firing order.
func (s *Store) Agenda() []string {
	acts := s.pending()
	names := make([]string, len(acts))
	for i, a := range acts {
		names[i] = s.rules[a.rule].Name
	}
	return names
}

// pending returns the unfired activations in agenda order.
func (s *Store) pending() []activation {
	var acts []activation
	for ri := range s.rules {
		for _, a := range s.activations(ri) {
			if _, done := s.fired[a.key]; !done {
				acts = append(acts, a)
			}
		}
	}
	slices.SortFunc(acts, s.compareActivations)
	return acts
}

// next returns the activation to fire next.
func (s *Store) next() (activation, bool) {
	var best activation
	found := false
	for ri := range s.rules {
		for _, a := range s.activations(ri) {
			if _, done := s.fired[a.key]; done {
				continue
			}
			if !found || s.compareActivations(a, best) < 0 {
				best = a
				found = true
			}
		}
	}
	return best, found
}

// forgetRetracted drops refraction records that involve a retracted fact.
// Such activations can never recur because fact IDs are not reused.
func (s *Store) forgetRetracted(id FactID) {
	for key, fa := range s.fired {
		if slices.Contains(fa.facts, id) {
			delete(s.fired, key)
		}
	}
}

// forgetBlocked drops refraction records of rules whose absent conditions
// the new fact now blocks, so they may fire again once unblocked.
func (s *Store) forgetBlocked(f Fact) {
	valid := make(map[int]map[string]bool)
	for key, fa := range s.fired {
		if !s.hasAbsentOn(fa.rule, f.Template) {
			continue
		}
		keys, ok := valid[fa.rule]
		if !ok {
			keys = make(map[string]bool)
			for _, a := range s.activations(fa.rule) {
				keys[a.key] = true
			}
			valid[fa.rule] = keys
		}
		if !keys[key] {
			delete(s.fired, key)
		}
	}
}

func (s *Store) hasAbsentOn(ri int, template string) bool {
	for _, c := range s.rules[ri].Conditions {
		if c.Absent && c.Pattern.Template == template {
			return true
		}
	}
	return false
}

// fire executes the actions of an activation in order.
func (s *Store) fire(a activation) error {
	r := &s.rules[a.rule]
	for i, act := range r.Actions {
		switch act.Kind {
		case ActionRetract:
			if err := s.Retract(a.facts[act.Target]); err != nil {
				return fmt.Errorf("action %d: %w", i, err)
			}
		case ActionAssert:
			text, err := act.Pattern.Instantiate(a.bindings)
			if err != nil {
				return fmt.Errorf("action %d: %w", i, err)
			}
			if _, err := s.AssertString(text); err != nil {
				return fmt.Errorf("action %d: %w", i, err)
			}
		}
	}
	return nil
}
