package engine

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUUIDv7Generator(t *testing.T) {
	gen := UUIDv7Generator{}
	a, b := gen.Generate(), gen.Generate()

	assert.NotEqual(t, a, b)
	parsed, err := uuid.Parse(a)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(7), parsed.Version())
}

func TestIDGeneratorFunc(t *testing.T) {
	n := 0
	gen := IDGeneratorFunc(func() string {
		n++
		return "engine-" + string(rune('0'+n))
	})

	e := newEngine(t, nil, nil, WithIDGenerator(gen))
	assert.Equal(t, "engine-1", e.ID())
	assert.Equal(t, "engine-2", gen.Generate())
}
