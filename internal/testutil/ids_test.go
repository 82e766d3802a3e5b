package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStaticIDGenerator(t *testing.T) {
	gen := NewStaticIDGenerator("engine-1")
	assert.Equal(t, "engine-1", gen.Generate())
	assert.Equal(t, "engine-1", gen.Generate())

	assert.Equal(t, "test-engine", NewStaticIDGenerator("").Generate())
}
