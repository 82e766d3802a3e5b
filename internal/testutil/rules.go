package testutil

import (
	"strconv"
	"strings"
	"testing"

	"github.com/roach88/slotreason/internal/factstore"
	"github.com/stretchr/testify/require"
)

// Rule builds a rule from textual patterns.
//
// A condition prefixed with "not " is an absent condition. An action of the
// form "retract N" retracts the fact matched by condition N; every other
// action is an assert pattern.
//
// Example:
//
//	testutil.Rule(t, "ready", 0,
//		[]string{"(slot size ?s)", "not (slot status $?)"},
//		[]string{`(unique_slot status "ready")`})
func Rule(t testing.TB, name string, salience int, when, then []string) factstore.Rule {
	t.Helper()
	r := factstore.Rule{Name: name, Salience: salience}
	for _, w := range when {
		text, absent := strings.CutPrefix(w, "not ")
		p, err := factstore.ParsePattern(text)
		require.NoError(t, err, "rule %s condition %q", name, w)
		r.Conditions = append(r.Conditions, factstore.Condition{Pattern: p, Absent: absent})
	}
	for _, a := range then {
		if n, ok := strings.CutPrefix(a, "retract "); ok {
			idx, err := strconv.Atoi(n)
			require.NoError(t, err, "rule %s action %q", name, a)
			r.Actions = append(r.Actions, factstore.Action{Kind: factstore.ActionRetract, Target: idx})
			continue
		}
		p, err := factstore.ParsePattern(a)
		require.NoError(t, err, "rule %s action %q", name, a)
		r.Actions = append(r.Actions, factstore.Action{Kind: factstore.ActionAssert, Pattern: p})
	}
	return r
}

// Program returns a program holding rules and no templates or facts.
func Program(rules ...factstore.Rule) *factstore.Program {
	return &factstore.Program{Rules: rules}
}
