package engine

import (
	"testing"

	"github.com/roach88/slotreason/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRuleSetHash(t *testing.T) {
	rule := func(salience int) *Engine {
		return newEngine(t, testutil.Program(
			testutil.Rule(t, "grow", salience, []string{"(slot size small)"}, []string{"(slot size big)", "retract 0"}),
		), nil)
	}

	a, err := rule(0).RuleSetHash()
	require.NoError(t, err)
	b, err := rule(0).RuleSetHash()
	require.NoError(t, err)
	c, err := rule(5).RuleSetHash()
	require.NoError(t, err)

	assert.Len(t, a, 64)
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c, "salience is part of the rule set")
}

func TestProgramHash_Nil(t *testing.T) {
	_, err := ProgramHash(nil)
	assert.Error(t, err)
}
