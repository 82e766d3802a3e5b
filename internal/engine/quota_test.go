package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCycleBudget_AdmitsExactlyLimit(t *testing.T) {
	b := newCycleBudget(3)
	for i := 1; i <= 3; i++ {
		require.NoError(t, b.Check(), "cycle %d", i)
		assert.Equal(t, i, b.Cycles())
	}

	err := b.Check()
	require.Error(t, err)
	assert.True(t, IsCycleLimitError(err))
	assert.Equal(t, 3, b.Cycles())
	assert.Equal(t, 3, b.Limit())
}

func TestCycleBudget_NonPositiveLimit(t *testing.T) {
	for _, limit := range []int{0, -5} {
		b := newCycleBudget(limit)
		assert.True(t, IsCycleLimitError(b.Check()), "limit %d", limit)
		assert.Zero(t, b.Cycles())
	}
}
