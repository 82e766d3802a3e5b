package harness

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/slotreason/internal/compiler"
	"github.com/roach88/slotreason/internal/engine"
	"github.com/roach88/slotreason/internal/funcs"
	"github.com/roach88/slotreason/internal/ir"
)

func pizzaEngine(t *testing.T) *engine.Engine {
	t.Helper()
	program, err := compiler.LoadProgram(pizzaRules)
	require.NoError(t, err)
	resolver, err := funcs.NewCatalog().Resolver("std")
	require.NoError(t, err)
	e, err := engine.New(program, resolver)
	require.NoError(t, err)

	require.NoError(t, e.SetSlots(engine.MapInput(ir.IRObject{"size": ir.IRString("small"), "n": ir.IRInt(3)})))
	require.NoError(t, e.Reason(context.Background(), 10))
	return e
}

func TestEvaluateAssertions(t *testing.T) {
	e := pizzaEngine(t)

	tests := []struct {
		name      string
		assertion Assertion
		wantErr   string
	}{
		{"slot equals", Assertion{Type: AssertSlotEquals, Slot: "size", Value: "big"}, ""},
		{"slot equals int", Assertion{Type: AssertSlotEquals, Slot: "n", Value: 3}, ""},
		{"slot equals wrong", Assertion{Type: AssertSlotEquals, Slot: "size", Value: "small"}, `slot size = "big"`},
		{"slot equals missing", Assertion{Type: AssertSlotEquals, Slot: "crust", Value: "thin"}, "slot not found"},
		{"slot absent", Assertion{Type: AssertSlotAbsent, Slot: "crust"}, ""},
		{"slot absent but present", Assertion{Type: AssertSlotAbsent, Slot: "size"}, "0 slot fact(s) named size"},
		{"slot count", Assertion{Type: AssertSlotCount, Slot: "size", Count: 1}, ""},
		{"fact present", Assertion{Type: AssertFactPresent, Fact: `(slot size "big")`}, ""},
		{"fact present missing", Assertion{Type: AssertFactPresent, Fact: `(slot size "small")`}, "not found"},
		{"fact absent", Assertion{Type: AssertFactAbsent, Fact: `(slot size "small")`}, ""},
		{"fact absent but present", Assertion{Type: AssertFactAbsent, Fact: "(slot n 3)"}, "found"},
		{"fact unparseable", Assertion{Type: AssertFactPresent, Fact: "(slot"}, "fact_present"},
		{"fact count", Assertion{Type: AssertFactCount, Template: "slot", Count: 2}, ""},
		{"fact count wrong", Assertion{Type: AssertFactCount, Template: "slot", Count: 5}, "5 fact(s) of slot"},
		{"unknown", Assertion{Type: "trace_contains"}, "unknown assertion type"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := EvaluateAssertions(e, []Assertion{tt.assertion})
			if tt.wantErr == "" {
				assert.Empty(t, errs)
				return
			}
			require.Len(t, errs, 1)
			assert.Contains(t, errs[0], tt.wantErr)
		})
	}
}

func TestAssertionError_Error(t *testing.T) {
	err := &AssertionError{
		Type:     AssertSlotEquals,
		Expected: `slot size = "big"`,
		Actual:   "slot not found",
		Facts:    []string{"(slot n 3)"},
	}

	msg := err.Error()
	assert.Contains(t, msg, "Assertion failed: slot_equals")
	assert.Contains(t, msg, `Expected: slot size = "big"`)
	assert.Contains(t, msg, "Actual: slot not found")
	assert.Contains(t, msg, "[1] (slot n 3)")
}
