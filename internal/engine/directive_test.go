package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/roach88/slotreason/internal/factstore"
	"github.com/roach88/slotreason/internal/funcs"
	"github.com/roach88/slotreason/internal/ir"
	"github.com/roach88/slotreason/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDirective_CallF(t *testing.T) {
	rec := testutil.NewRecorder()
	ns := rec.Namespace(funcs.Namespace{"notify": testutil.Const(ir.IRBool(true))})
	p := testutil.Program(
		testutil.Rule(t, "notify", 0, []string{"(slot user ?u)"}, []string{"(call_f notify ?u 3)"}),
	)
	e := newEngine(t, p, ns)

	require.NoError(t, e.AssertSlot("user", ir.IRString("spock")))
	require.NoError(t, e.Reason(context.Background(), 10))

	require.Len(t, rec.Calls(), 1)
	assert.Equal(t, []ir.IRValue{ir.IRString("spock"), ir.IRInt(3)}, rec.Calls()[0].Args)
	// The directive is consumed and nothing else is asserted.
	assert.Equal(t, []string{`(slot user "spock")`}, e.Dump())

	require.NoError(t, e.Reason(context.Background(), 10))
	assert.Equal(t, 1, rec.Count("notify"))
}

func TestDirective_SlotF(t *testing.T) {
	ns := funcs.Namespace{"greet": func(_ context.Context, args []ir.IRValue) (ir.IRValue, error) {
		return ir.IRString("hello " + string(args[0].(ir.IRString))), nil
	}}
	p := testutil.Program(
		testutil.Rule(t, "greet", 0, []string{"(slot name ?n)"}, []string{"(slot_f greeting greet ?n)"}),
	)
	e := newEngine(t, p, ns)

	require.NoError(t, e.AssertSlot("greeting", ir.IRString("old")))
	require.NoError(t, e.AssertSlot("name", ir.IRString("kirk")))
	require.NoError(t, e.Reason(context.Background(), 10))

	// slot_f does not enforce uniqueness.
	assert.Equal(t, 2, slotCount(e, "greeting"))
	assert.Equal(t, ir.IRString("hello kirk"), e.Slots()["greeting"])
}

func TestDirective_UniqueSlotKeepsEqualFact(t *testing.T) {
	p := testutil.Program(
		testutil.Rule(t, "ready", 0, []string{"(slot trigger ?)"}, []string{`(unique_slot status "ready")`}),
	)
	e := newEngine(t, p, nil)
	mustAssert(t, e,
		`(slot status "old")`,
		`(slot status "ready")`,
		`(slot status "other")`,
	)
	kept := e.SlotsByName("status")[1].ID

	require.NoError(t, e.AssertSlot("trigger", ir.IRBool(true)))
	require.NoError(t, e.Reason(context.Background(), 10))

	slots := e.SlotsByName("status")
	require.Len(t, slots, 1)
	assert.Equal(t, kept, slots[0].ID)
	assert.Equal(t, ir.IRString("ready"), e.Slots()["status"])
}

func TestDirective_UniqueSlotAcrossCycles(t *testing.T) {
	p := testutil.Program(
		testutil.Rule(t, "start", 0, []string{"(slot go ?)"},
			[]string{`(unique_slot status "ready")`, "(unique_slot phase 1)"}),
		testutil.Rule(t, "one", 0, []string{"(slot phase 1)"},
			[]string{`(unique_slot status "ready")`, "(unique_slot phase 2)"}),
		testutil.Rule(t, "two", 0, []string{"(slot phase 2)"},
			[]string{`(unique_slot status "ready")`}),
	)
	e := newEngine(t, p, nil)

	require.NoError(t, e.AssertSlot("go", ir.IRBool(true)))
	require.NoError(t, e.Reason(context.Background(), 10))

	assert.Equal(t, 1, slotCount(e, "status"))
	assert.Equal(t, 1, slotCount(e, "phase"))
	assert.Equal(t, ir.IRInt(2), e.Slots()["phase"])
	assert.Equal(t, 3, e.NumFires())
}

func TestDirective_UniqueSlotKeepsNativeTypes(t *testing.T) {
	e := newEngine(t, nil, nil)
	mustAssert(t, e, "(unique_slot status ready)", "(unique_slot items a 2)")

	require.NoError(t, e.Reason(context.Background(), 10))

	assert.Equal(t, []string{"(slot status ready)", "(slot items a 2)"}, e.Dump())
	assert.Equal(t, ir.IRString("ready"), e.Slots()["status"])
	assert.Equal(t, ir.IRArray{ir.IRString("a"), ir.IRInt(2)}, e.Slots()["items"])
}

func TestDirective_UniqueSlotLastInPassWins(t *testing.T) {
	e := newEngine(t, nil, nil)
	mustAssert(t, e, "(unique_slot s 1)", "(unique_slot s 2)")

	require.NoError(t, e.Reason(context.Background(), 10))
	assert.Equal(t, []string{"(slot s 2)"}, e.Dump())
}

func TestDirective_UniqueSlotSupersededByExistingValue(t *testing.T) {
	e := newEngine(t, nil, nil)
	mustAssert(t, e, "(slot s a)")
	kept := e.SlotsByName("s")[0].ID
	mustAssert(t, e, "(unique_slot s b)", "(unique_slot s a)")

	require.NoError(t, e.Reason(context.Background(), 10))

	slots := e.SlotsByName("s")
	require.Len(t, slots, 1)
	assert.Equal(t, kept, slots[0].ID)
}

func TestDirective_UniqueSlotF(t *testing.T) {
	rec := testutil.NewRecorder()
	ns := rec.Namespace(funcs.Namespace{
		"pick": testutil.Const(ir.IRArray{ir.IRString("x")}),
	})
	e := newEngine(t, nil, ns)
	mustAssert(t, e, `(slot choice "x")`, `(slot choice "y")`, "(unique_slot_f choice pick)")

	require.NoError(t, e.Reason(context.Background(), 10))

	// A one-element result equals the existing scalar slot.
	assert.Equal(t, []string{`(slot choice "x")`}, e.Dump())
	assert.Equal(t, 1, rec.Count("pick"))
}

func TestDirective_UniqueSlotFNumericResultKeepsFact(t *testing.T) {
	ns := funcs.Namespace{"two": testutil.Const(ir.IRFloat(2))}
	e := newEngine(t, nil, ns)
	mustAssert(t, e, "(slot x 2)")
	kept := e.SlotsByName("x")[0].ID
	initial := e.Slots()
	mustAssert(t, e, "(unique_slot_f x two)")

	require.NoError(t, e.Reason(context.Background(), 10))

	slots := e.SlotsByName("x")
	require.Len(t, slots, 1)
	assert.Equal(t, kept, slots[0].ID)
	assert.Equal(t, []string{"(slot x 2)"}, e.Dump())
	assert.Empty(t, e.CollectResultingSlots(initial))
}

func TestDirective_CallAndAssertList(t *testing.T) {
	rec := testutil.NewRecorder()
	ns := rec.Namespace(funcs.Namespace{
		"rank_fn": testutil.Const(ir.IRArray{ir.IRString("x"), ir.IRString("y")}),
	})
	p := testutil.Program(
		testutil.Rule(t, "suggest", 0, []string{"(slot query ?q)"}, []string{"(call_and_assert suggestion rank_fn ?q)"}),
	)
	e := newEngine(t, p, ns)

	require.NoError(t, e.AssertSlot("query", ir.IRString("pizza")))
	require.NoError(t, e.Reason(context.Background(), 10))

	assert.Contains(t, e.Dump(), `(slot suggestion "x" "y")`)
	assert.Equal(t, ir.IRArray{ir.IRString("x"), ir.IRString("y")}, e.Slots()["suggestion"])
	assert.Equal(t, []ir.IRValue{ir.IRString("pizza")}, rec.Calls()[0].Args)
}

func TestDirective_CallAndAssertObject(t *testing.T) {
	p := testutil.Program()
	p.Templates = []factstore.Template{{
		Name: "user",
		Fields: []factstore.TemplateField{
			{Name: "id"},
			{Name: "tags", Multi: true},
		},
	}}
	ns := funcs.Namespace{"lookup": testutil.Const(ir.IRObject{
		"id":   ir.IRString("u1"),
		"tags": ir.IRArray{ir.IRString("a"), ir.IRString("b")},
	})}
	e := newEngine(t, p, ns)
	mustAssert(t, e, "(call_and_assert user lookup)")

	require.NoError(t, e.Reason(context.Background(), 10))

	assert.Equal(t, []ir.IRValue{
		ir.IRObject{"id": ir.IRString("u1"), "tags": ir.IRArray{ir.IRString("a"), ir.IRString("b")}},
	}, e.CollectFactValues("user"))
}

func TestDirective_NullResultAssertsNothing(t *testing.T) {
	ns := funcs.Namespace{"nothing": testutil.Const(nil)}
	e := newEngine(t, nil, ns)
	mustAssert(t, e,
		`(slot s "keep")`,
		"(slot_f a nothing)",
		"(unique_slot_f s nothing)",
		"(call_and_assert b nothing)",
	)

	require.NoError(t, e.Reason(context.Background(), 10))
	assert.Equal(t, []string{`(slot s "keep")`}, e.Dump())
}

func TestDirective_Errors(t *testing.T) {
	boom := errors.New("boom")
	ns := funcs.Namespace{
		"ok":     testutil.Const(ir.IRInt(1)),
		"boom":   testutil.Fail(boom),
		"object": testutil.Const(ir.IRObject{"a": ir.IRInt(1)}),
		"nested": testutil.Const(ir.IRArray{ir.IRArray{ir.IRInt(1)}}),
	}

	tests := []struct {
		name     string
		resolver funcs.Resolver
		fact     string
		code     RuntimeErrorCode
	}{
		{"call_f without function", ns, "(call_f)", ErrCodeInvalidCallF},
		{"slot_f without function", ns, "(slot_f s)", ErrCodeInvalidSlotF},
		{"slot_f without slot", ns, "(slot_f)", ErrCodeInvalidSlotF},
		{"unique_slot without value", ns, "(unique_slot s)", ErrCodeInvalidUniqueSlot},
		{"unique_slot_f without function", ns, "(unique_slot_f s)", ErrCodeInvalidUniqueSlotF},
		{"call_and_assert without function", ns, "(call_and_assert f)", ErrCodeInvalidCallAndAssert},
		{"no resolver", nil, "(call_f ok)", ErrCodeFunctionsNotConfigured},
		{"unknown function", ns, "(slot_f s missing)", ErrCodeFunctionNotFound},
		{"function error", ns, "(call_and_assert f boom)", ErrCodeFunctionFailed},
		{"object slot value", ns, "(slot_f s object)", ErrCodeInvalidValue},
		{"nested result", ns, "(unique_slot_f s nested)", ErrCodeInvalidValue},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEngine(t, nil, tt.resolver)
			mustAssert(t, e, tt.fact)

			err := e.Reason(context.Background(), 10)
			require.Error(t, err)
			assert.Equal(t, tt.code, CodeOf(err))

			var re *RuntimeError
			require.ErrorAs(t, err, &re)
			assert.Equal(t, tt.fact, re.Directive)
			assert.NotZero(t, re.FactID)

			// Nothing from the failing pass is applied.
			assert.Equal(t, []string{tt.fact}, e.Dump())
		})
	}
}

func TestDirective_FunctionErrorWraps(t *testing.T) {
	boom := errors.New("boom")
	e := newEngine(t, nil, funcs.Namespace{"boom": testutil.Fail(boom)})
	mustAssert(t, e, "(call_f boom)")

	err := e.Reason(context.Background(), 10)
	assert.ErrorIs(t, err, boom)
	assert.True(t, IsFunctionError(err))
	assert.False(t, IsDirectiveError(err))
}

func TestDirective_AbortStopsScan(t *testing.T) {
	rec := testutil.NewRecorder()
	ns := rec.Namespace(funcs.Namespace{
		"ok":    testutil.Const(ir.IRInt(1)),
		"boom":  testutil.Fail(errors.New("boom")),
		"after": testutil.Const(ir.IRInt(2)),
	})
	e := newEngine(t, nil, ns)
	mustAssert(t, e, "(slot_f a ok)", "(call_f boom)", "(call_f after)")

	err := e.Reason(context.Background(), 10)
	require.Error(t, err)

	assert.Equal(t, 1, rec.Count("ok"))
	assert.Equal(t, 0, rec.Count("after"))
	assert.Equal(t, []string{"(slot_f a ok)", "(call_f boom)", "(call_f after)"}, e.Dump())
}

func TestDirective_EarlierCyclesStayApplied(t *testing.T) {
	ns := funcs.Namespace{"boom": testutil.Fail(errors.New("boom"))}
	p := testutil.Program(
		testutil.Rule(t, "fail-later", 0, []string{"(slot step 1)"}, []string{"(call_f boom)"}),
	)
	e := newEngine(t, p, ns)
	mustAssert(t, e, "(unique_slot step 1)")

	require.Error(t, e.Reason(context.Background(), 10))
	assert.Equal(t, ir.IRInt(1), e.Slots()["step"])
}

func TestDirectiveShapes(t *testing.T) {
	for name, shape := range DirectiveShapes {
		assert.Len(t, shape.Fields, shape.MinArgs, name)
		assert.Less(t, shape.FuncArg, shape.MinArgs, name)
		assert.NotEmpty(t, shape.Code, name)
	}
	assert.Equal(t, -1, DirectiveShapes[DirectiveUniqueSlot].FuncArg)
}
