package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/roach88/slotreason/internal/funcs"
	"github.com/roach88/slotreason/internal/ir"
	"github.com/roach88/slotreason/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// counterRules re-asserts slot x with a new value on every cycle.
func counterRules(t *testing.T) (*Engine, *testutil.Recorder) {
	t.Helper()
	rec := testutil.NewRecorder()
	ns := rec.Namespace(funcs.Namespace{"inc": func(_ context.Context, args []ir.IRValue) (ir.IRValue, error) {
		return args[0].(ir.IRInt) + 1, nil
	}})
	p := testutil.Program(
		testutil.Rule(t, "count", 0, []string{"(slot x ?n)"}, []string{"(unique_slot_f x inc ?n)"}),
	)
	e := newEngine(t, p, ns)
	require.NoError(t, e.AssertSlot("x", ir.IRInt(0)))
	return e, rec
}

func TestReason_CycleLimit(t *testing.T) {
	e, rec := counterRules(t)

	err := e.Reason(context.Background(), 5)
	require.Error(t, err)
	assert.True(t, IsCycleLimitError(err))

	var re *RuntimeError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, "5", re.Details["limit"])
	assert.Equal(t, "5", re.Details["cycles"])

	// Exactly five cycles ran, each applying its update.
	assert.Equal(t, 5, rec.Count("inc"))
	assert.Equal(t, ir.IRInt(5), e.Slots()["x"])
	assert.Equal(t, 1, slotCount(e, "x"))
	assert.Equal(t, 5, e.NumFires())
}

func TestReason_NonPositiveLimitFailsImmediately(t *testing.T) {
	for _, limit := range []int{0, -1} {
		e, rec := counterRules(t)

		err := e.Reason(context.Background(), limit)
		assert.True(t, IsCycleLimitError(err), "limit %d", limit)
		assert.Zero(t, rec.Count("inc"))
		assert.Zero(t, e.NumFires())
	}
}

func TestReason_EmptyMemoryFinishesInOneCycle(t *testing.T) {
	e := newEngine(t, nil, nil)
	assert.NoError(t, e.Reason(context.Background(), 1))
}

func TestReason_Idempotent(t *testing.T) {
	p := testutil.Program(
		testutil.Rule(t, "ready", 0, []string{"(slot size ?s)"}, []string{`(unique_slot status "ready")`}),
		testutil.Rule(t, "price", 0, []string{`(slot status "ready")`, "(slot size big)"}, []string{"(slot price 10)"}),
	)
	e := newEngine(t, p, nil)
	mustAssert(t, e, "(slot size big)")

	require.NoError(t, e.Reason(context.Background(), 10))
	first := e.Slots()
	assert.Equal(t, ir.IRInt(10), first["price"])

	require.NoError(t, e.Reason(context.Background(), 1))
	assert.Zero(t, e.NumFires())
	assert.Empty(t, e.CollectResultingSlots(first))
}

func TestReason_MaxFiresBoundsEachRun(t *testing.T) {
	p := testutil.Program(
		testutil.Rule(t, "a", 0, []string{"(slot a ?)"}, []string{"(slot b 1)"}),
		testutil.Rule(t, "b", 0, []string{"(slot b ?)"}, []string{"(slot c 1)"}),
	)
	e := newEngine(t, p, nil, WithMaxFires(1))
	require.NoError(t, e.AssertSlot("a", ir.IRInt(1)))

	require.NoError(t, e.Reason(context.Background(), 10))
	assert.Equal(t, 1, e.NumFires())
	assert.Contains(t, e.Slots(), "b")
	assert.NotContains(t, e.Slots(), "c")
}

func TestReason_ContextCancelled(t *testing.T) {
	e, rec := counterRules(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := e.Reason(ctx, 10)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Zero(t, rec.Count("inc"))
}

func TestReason_FunctionsSeeCallContext(t *testing.T) {
	type key struct{}
	var seen any
	ns := funcs.Namespace{"peek": func(ctx context.Context, _ []ir.IRValue) (ir.IRValue, error) {
		seen = ctx.Value(key{})
		return nil, nil
	}}
	e := newEngine(t, nil, ns)
	mustAssert(t, e, "(call_f peek)")

	ctx := context.WithValue(context.Background(), key{}, "request-1")
	require.NoError(t, e.Reason(ctx, 10))
	assert.Equal(t, "request-1", seen)
}

func TestReason_RecordsDuration(t *testing.T) {
	e, _ := counterRules(t)
	_ = e.Reason(context.Background(), 3)
	assert.Positive(t, e.LastReasonDuration())
}
