package harness

import (
	"fmt"
	"strings"

	"github.com/roach88/slotreason/internal/engine"
	"github.com/roach88/slotreason/internal/factstore"
	"github.com/roach88/slotreason/internal/ir"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string   // Assertion type for categorization
	Expected string   // Human-readable expected outcome
	Actual   string   // Human-readable actual outcome
	Facts    []string // Working memory for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	fmt.Fprintf(&buf, "\nWorking memory:\n")
	for i, f := range e.Facts {
		fmt.Fprintf(&buf, "  [%d] %s\n", i+1, f)
	}

	return buf.String()
}

// EvaluateAssertions runs every assertion against e and returns the
// failure messages.
func EvaluateAssertions(e *engine.Engine, assertions []Assertion) []string {
	var errs []string
	for i, a := range assertions {
		if err := evaluateAssertion(e, a); err != nil {
			errs = append(errs, fmt.Sprintf("assertion %d: %s", i, err.Error()))
		}
	}
	return errs
}

func evaluateAssertion(e *engine.Engine, a Assertion) error {
	switch a.Type {
	case AssertSlotEquals:
		return assertSlotEquals(e, a)
	case AssertSlotAbsent:
		return assertSlotCount(e, Assertion{Type: a.Type, Slot: a.Slot, Count: 0})
	case AssertSlotCount:
		return assertSlotCount(e, a)
	case AssertFactPresent:
		return assertFactPresence(e, a, true)
	case AssertFactAbsent:
		return assertFactPresence(e, a, false)
	case AssertFactCount:
		return assertFactCount(e, a)
	default:
		return fmt.Errorf("unknown assertion type: %s", a.Type)
	}
}

// assertSlotEquals checks the slot's current value, newest fact wins.
func assertSlotEquals(e *engine.Engine, a Assertion) error {
	want, err := convertToIRValue(a.Value)
	if err != nil {
		return fmt.Errorf("slot_equals value: %w", err)
	}

	got, ok := e.Slots()[a.Slot]
	if !ok {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("slot %s = %s", a.Slot, formatValue(want)),
			Actual:   "slot not found",
			Facts:    e.Dump(),
		}
	}
	if !ir.Equal(want, got) {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("slot %s = %s", a.Slot, formatValue(want)),
			Actual:   fmt.Sprintf("slot %s = %s", a.Slot, formatValue(got)),
			Facts:    e.Dump(),
		}
	}
	return nil
}

func assertSlotCount(e *engine.Engine, a Assertion) error {
	n := len(e.SlotsByName(a.Slot))
	if n != a.Count {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("%d slot fact(s) named %s", a.Count, a.Slot),
			Actual:   fmt.Sprintf("%d", n),
			Facts:    e.Dump(),
		}
	}
	return nil
}

// assertFactPresence compares by canonical fact text, so spacing in the
// assertion does not matter.
func assertFactPresence(e *engine.Engine, a Assertion, present bool) error {
	f, err := factstore.ParseFact(a.Fact)
	if err != nil {
		return fmt.Errorf("%s: %w", a.Type, err)
	}
	text := f.String()

	found := false
	for _, have := range e.Dump() {
		if have == text {
			found = true
			break
		}
	}
	if found == present {
		return nil
	}

	expected, actual := "fact "+text+" present", "not found"
	if !present {
		expected, actual = "fact "+text+" absent", "found"
	}
	return &AssertionError{
		Type:     a.Type,
		Expected: expected,
		Actual:   actual,
		Facts:    e.Dump(),
	}
}

func assertFactCount(e *engine.Engine, a Assertion) error {
	n := 0
	for _, f := range e.Facts() {
		if f.Template == a.Template {
			n++
		}
	}
	if n != a.Count {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("%d fact(s) of %s", a.Count, a.Template),
			Actual:   fmt.Sprintf("%d", n),
			Facts:    e.Dump(),
		}
	}
	return nil
}
