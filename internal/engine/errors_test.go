package engine

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRuntimeError_Error(t *testing.T) {
	err := &RuntimeError{Code: ErrCodeFunctionNotFound, Message: "function f not found"}
	assert.Equal(t, "FUNCTION_NOT_FOUND: function f not found", err.Error())

	err.Directive = "(call_f f)"
	assert.Equal(t, "FUNCTION_NOT_FOUND: function f not found (directive=(call_f f))", err.Error())

	err.Err = errors.New("cause")
	assert.Equal(t, "FUNCTION_NOT_FOUND: function f not found (directive=(call_f f)): cause", err.Error())
}

func TestRuntimeError_Unwrap(t *testing.T) {
	cause := errors.New("cause")
	err := fmt.Errorf("outer: %w", &RuntimeError{Code: ErrCodeFunctionFailed, Err: cause})

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, ErrCodeFunctionFailed, CodeOf(err))
	assert.True(t, IsFunctionError(err))
}

func TestCodeOf_NonRuntimeError(t *testing.T) {
	assert.Equal(t, RuntimeErrorCode(""), CodeOf(errors.New("plain")))
	assert.Equal(t, RuntimeErrorCode(""), CodeOf(nil))
	assert.False(t, IsCycleLimitError(nil))
	assert.False(t, IsDirectiveError(errors.New("plain")))
}

func TestNewCycleLimitError(t *testing.T) {
	err := NewCycleLimitError(5, 5)
	assert.True(t, IsCycleLimitError(fmt.Errorf("wrapped: %w", err)))
	assert.Equal(t, map[string]string{"limit": "5", "cycles": "5"}, err.Details)
	assert.Contains(t, err.Error(), "5 cycle(s)")
}

func TestIsDirectiveError(t *testing.T) {
	for _, code := range []RuntimeErrorCode{
		ErrCodeInvalidCallF, ErrCodeInvalidSlotF, ErrCodeInvalidUniqueSlot,
		ErrCodeInvalidUniqueSlotF, ErrCodeInvalidCallAndAssert,
	} {
		assert.True(t, IsDirectiveError(&RuntimeError{Code: code}), code)
	}
	assert.False(t, IsDirectiveError(&RuntimeError{Code: ErrCodeInvalidValue}))
}

func TestErrorCodes(t *testing.T) {
	codes := ErrorCodes()
	assert.Len(t, codes, 11)

	seen := make(map[RuntimeErrorCode]bool)
	for _, c := range codes {
		assert.False(t, seen[c], "duplicate code %s", c)
		seen[c] = true
	}
	assert.True(t, seen[ErrCodeCycleLimitExceeded])
}
