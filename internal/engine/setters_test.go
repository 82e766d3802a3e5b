package engine

import (
	"testing"

	"github.com/roach88/slotreason/internal/factstore"
	"github.com/roach88/slotreason/internal/ir"
	"github.com/roach88/slotreason/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func userProgram() *factstore.Program {
	p := testutil.Program()
	p.Templates = []factstore.Template{{
		Name: "user",
		Fields: []factstore.TemplateField{
			{Name: "id"},
			{Name: "requests", Multi: true},
		},
	}}
	return p
}

func TestSetSlots_Pairs(t *testing.T) {
	e := newEngine(t, nil, nil)
	err := e.SetSlots(PairsInput{
		{ir.IRString("pizza_size"), ir.IRString("big")},
		{ir.IRString("pizza_ingredients"), ir.IRString("cheese"), ir.IRString("tomato")},
		{ir.IRString("skipped"), ir.IRNull{}},
	})
	require.NoError(t, err)

	assert.Equal(t, map[string]ir.IRValue{
		"pizza_size":        ir.IRString("big"),
		"pizza_ingredients": ir.IRArray{ir.IRString("cheese"), ir.IRString("tomato")},
	}, e.Slots())
}

func TestSetSlots_SkipsNull(t *testing.T) {
	e := newEngine(t, nil, nil)
	require.NoError(t, e.SetSlots(MapInput{"a": ir.IRNull{}, "b": nil, "c": ir.IRInt(1)}))
	assert.Equal(t, []string{"(slot c 1)"}, e.Dump())
}

func TestSetSlots_InvalidInputAssertsNothing(t *testing.T) {
	tests := []struct {
		name string
		in   Input
		code RuntimeErrorCode
	}{
		{"short pair", PairsInput{{ir.IRString("a"), ir.IRInt(1)}, {ir.IRString("b")}}, ErrCodeInvalidSlotFormat},
		{"non-string name", PairsInput{{ir.IRInt(1), ir.IRInt(1)}}, ErrCodeInvalidSlotFormat},
		{"nil input", nil, ErrCodeInvalidSlotFormat},
		{"object value", MapInput{"a": ir.IRInt(1), "b": ir.IRObject{"x": ir.IRInt(1)}}, ErrCodeInvalidValue},
		{"nested array", MapInput{"a": ir.IRArray{ir.IRArray{}}}, ErrCodeInvalidValue},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEngine(t, nil, nil)
			err := e.SetSlots(tt.in)
			require.Error(t, err)
			assert.Equal(t, tt.code, CodeOf(err))
			assert.Zero(t, e.NumFacts())
		})
	}
}

func TestParseInput(t *testing.T) {
	in, err := ParseInput(ir.IRObject{"a": ir.IRInt(1)})
	require.NoError(t, err)
	assert.Equal(t, MapInput{"a": ir.IRInt(1)}, in)

	in, err = ParseInput(ir.IRArray{ir.IRArray{ir.IRString("a"), ir.IRInt(1)}})
	require.NoError(t, err)
	assert.Equal(t, PairsInput{{ir.IRString("a"), ir.IRInt(1)}}, in)

	for _, bad := range []ir.IRValue{ir.IRString("a"), ir.IRArray{ir.IRString("a")}, ir.IRNull{}} {
		_, err := ParseInput(bad)
		assert.Equal(t, ErrCodeInvalidSlotFormat, CodeOf(err), "%#v", bad)
	}
}

func TestSetFacts(t *testing.T) {
	e := newEngine(t, userProgram(), nil)
	err := e.SetFacts(MapInput{
		"content_name": ir.IRString("star trek"),
		"user": ir.IRObject{
			"id":       ir.IRString("1234"),
			"requests": ir.IRArray{ir.IRString("r1"), ir.IRString("r2")},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{
		`(slot content_name "star trek")`,
		`(user (id "1234") (requests "r1" "r2"))`,
	}, e.Dump())
}

func TestSetFacts_UndeclaredTemplate(t *testing.T) {
	e := newEngine(t, nil, nil)
	err := e.SetFacts(MapInput{"user": ir.IRObject{"id": ir.IRString("1")}})
	assert.Equal(t, ErrCodeInvalidValue, CodeOf(err))
}

func TestReplaceSlots(t *testing.T) {
	e := newEngine(t, nil, nil)
	mustAssert(t, e, "(slot a 1)", "(slot a 2)", "(slot b 1)", "(slot c 1)")

	require.NoError(t, e.ReplaceSlots(MapInput{"a": ir.IRInt(3), "b": ir.IRNull{}}))

	assert.Equal(t, map[string]ir.IRValue{"a": ir.IRInt(3), "c": ir.IRInt(1)}, e.Slots())
	assert.Equal(t, 1, slotCount(e, "a"))
}

func TestReplaceSlots_InvalidInputChangesNothing(t *testing.T) {
	e := newEngine(t, nil, nil)
	mustAssert(t, e, "(slot a 1)")

	err := e.ReplaceSlots(MapInput{"a": ir.IRInt(2), "b": ir.IRObject{}})
	require.Error(t, err)
	assert.Equal(t, []string{"(slot a 1)"}, e.Dump())
}

func TestAssertSlotAndFact(t *testing.T) {
	e := newEngine(t, userProgram(), nil)

	require.NoError(t, e.AssertSlot("two words", ir.IRBool(false)))
	require.NoError(t, e.AssertFact("tags", ir.IRArray{ir.IRString("a"), ir.IRInt(1)}))
	require.NoError(t, e.AssertObject("user", ir.IRObject{"id": ir.IRString("u1")}))
	require.NoError(t, e.AssertObject("user", nil))

	assert.Equal(t, []string{
		`(slot "two words" False)`,
		`(slot tags "a" 1)`,
		`(user (id "u1") (requests))`,
		`(user (id nil) (requests))`,
	}, e.Dump())

	assert.Equal(t, ErrCodeInvalidValue, CodeOf(e.AssertSlot("x", ir.IRObject{})))
	assert.Equal(t, ErrCodeInvalidValue, CodeOf(e.AssertObject("user", ir.IRObject{"unknown": ir.IRInt(1)})))
}
