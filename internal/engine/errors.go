package engine

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/roach88/slotreason/internal/factstore"
)

// RuntimeError represents an error detected while reasoning or while
// writing host values into working memory.
//
// Runtime errors include:
//   - Malformed directives: one code per directive kind
//   - Function failures: no namespace configured, unknown function, function error
//   - Cycle limit: the reasoning loop ran out of cycles
//   - Malformed host input to the bulk setters
//
// None of them are retried and none roll back working memory.
type RuntimeError struct {
	// Code identifies the error category.
	Code RuntimeErrorCode

	// Message is a human-readable description.
	Message string

	// Directive is the textual form of the offending directive fact, if any.
	Directive string

	// FactID identifies the offending directive fact (0 when not applicable).
	FactID factstore.FactID

	// Details contains additional context.
	Details map[string]string

	// Err is the underlying cause, if any.
	Err error
}

// RuntimeErrorCode categorizes runtime errors.
type RuntimeErrorCode string

const (
	// ErrCodeInvalidCallF indicates a call_f directive without a function name.
	ErrCodeInvalidCallF RuntimeErrorCode = "INVALID_CALL_F"

	// ErrCodeInvalidSlotF indicates a slot_f directive without slot or function name.
	ErrCodeInvalidSlotF RuntimeErrorCode = "INVALID_SLOT_F"

	// ErrCodeInvalidUniqueSlot indicates a unique_slot directive without slot or value.
	ErrCodeInvalidUniqueSlot RuntimeErrorCode = "INVALID_UNIQUE_SLOT"

	// ErrCodeInvalidUniqueSlotF indicates a unique_slot_f directive without slot or function name.
	ErrCodeInvalidUniqueSlotF RuntimeErrorCode = "INVALID_UNIQUE_SLOT_F"

	// ErrCodeInvalidCallAndAssert indicates a call_and_assert directive without fact or function name.
	ErrCodeInvalidCallAndAssert RuntimeErrorCode = "INVALID_CALL_AND_ASSERT"

	// ErrCodeFunctionsNotConfigured indicates a function directive on an engine without a resolver.
	ErrCodeFunctionsNotConfigured RuntimeErrorCode = "FUNCTIONS_NOT_CONFIGURED"

	// ErrCodeFunctionNotFound indicates the resolver does not know the function.
	ErrCodeFunctionNotFound RuntimeErrorCode = "FUNCTION_NOT_FOUND"

	// ErrCodeFunctionFailed indicates the function returned an error.
	ErrCodeFunctionFailed RuntimeErrorCode = "FUNCTION_FAILED"

	// ErrCodeCycleLimitExceeded indicates the reasoning loop exhausted its cycle budget.
	ErrCodeCycleLimitExceeded RuntimeErrorCode = "CYCLE_LIMIT_EXCEEDED"

	// ErrCodeInvalidSlotFormat indicates malformed input to the bulk setters.
	ErrCodeInvalidSlotFormat RuntimeErrorCode = "INVALID_SLOT_FORMAT"

	// ErrCodeInvalidValue indicates a value that cannot be written as a fact.
	ErrCodeInvalidValue RuntimeErrorCode = "INVALID_VALUE"
)

// ErrorCodes returns every runtime error code.
func ErrorCodes() []RuntimeErrorCode {
	return []RuntimeErrorCode{
		ErrCodeInvalidCallF,
		ErrCodeInvalidSlotF,
		ErrCodeInvalidUniqueSlot,
		ErrCodeInvalidUniqueSlotF,
		ErrCodeInvalidCallAndAssert,
		ErrCodeFunctionsNotConfigured,
		ErrCodeFunctionNotFound,
		ErrCodeFunctionFailed,
		ErrCodeCycleLimitExceeded,
		ErrCodeInvalidSlotFormat,
		ErrCodeInvalidValue,
	}
}

// Error implements the error interface.
func (e *RuntimeError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Directive != "" {
		msg = fmt.Sprintf("%s (directive=%s)", msg, e.Directive)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *RuntimeError) Unwrap() error {
	return e.Err
}

// CodeOf returns the code of the first RuntimeError in err's chain, or ""
// when there is none.
func CodeOf(err error) RuntimeErrorCode {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code
	}
	return ""
}

// IsCycleLimitError returns true if the error is a cycle limit error.
// Uses errors.As to handle wrapped errors.
func IsCycleLimitError(err error) bool {
	return CodeOf(err) == ErrCodeCycleLimitExceeded
}

// IsDirectiveError returns true if the error reports a malformed directive.
func IsDirectiveError(err error) bool {
	switch CodeOf(err) {
	case ErrCodeInvalidCallF, ErrCodeInvalidSlotF, ErrCodeInvalidUniqueSlot,
		ErrCodeInvalidUniqueSlotF, ErrCodeInvalidCallAndAssert:
		return true
	}
	return false
}

// IsFunctionError returns true if the error comes from resolving or calling
// a function.
func IsFunctionError(err error) bool {
	switch CodeOf(err) {
	case ErrCodeFunctionsNotConfigured, ErrCodeFunctionNotFound, ErrCodeFunctionFailed:
		return true
	}
	return false
}

// NewCycleLimitError creates a RuntimeError for an exhausted cycle budget.
func NewCycleLimitError(limit, cycles int) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeCycleLimitExceeded,
		Message: fmt.Sprintf("reasoning did not finish within %d cycle(s)", limit),
		Details: map[string]string{
			"limit":  strconv.Itoa(limit),
			"cycles": strconv.Itoa(cycles),
		},
	}
}

func directiveError(code RuntimeErrorCode, f factstore.Fact, format string, args ...any) *RuntimeError {
	return &RuntimeError{
		Code:      code,
		Message:   fmt.Sprintf(format, args...),
		Directive: f.String(),
		FactID:    f.ID,
	}
}

func inputError(format string, args ...any) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeInvalidSlotFormat,
		Message: fmt.Sprintf(format, args...),
	}
}

func valueError(err error, format string, args ...any) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeInvalidValue,
		Message: fmt.Sprintf(format, args...),
		Err:     err,
	}
}
