package testutil

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/roach88/slotreason/internal/funcs"
	"github.com/roach88/slotreason/internal/ir"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorder_RecordsCallsInOrder(t *testing.T) {
	rec := NewRecorder()
	ns := rec.Namespace(funcs.Namespace{
		"one": Const(ir.IRInt(1)),
		"two": Const(ir.IRInt(2)),
	})

	ctx := context.Background()
	v, err := ns["one"](ctx, []ir.IRValue{ir.IRString("a")})
	require.NoError(t, err)
	assert.Equal(t, ir.IRInt(1), v)
	_, _ = ns["two"](ctx, nil)
	_, _ = ns["one"](ctx, nil)

	calls := rec.Calls()
	require.Len(t, calls, 3)
	assert.Equal(t, Call{Name: "one", Args: []ir.IRValue{ir.IRString("a")}}, calls[0])
	assert.Equal(t, "two", calls[1].Name)
	assert.Equal(t, 2, rec.Count("one"))

	rec.Reset()
	assert.Empty(t, rec.Calls())
}

func TestRecorder_ArgsAreCopied(t *testing.T) {
	rec := NewRecorder()
	fn := rec.Wrap("f", Const(ir.IRNull{}))

	args := []ir.IRValue{ir.IRInt(1)}
	_, _ = fn(context.Background(), args)
	args[0] = ir.IRInt(2)

	assert.Equal(t, ir.IRInt(1), rec.Calls()[0].Args[0])
}

func TestFail(t *testing.T) {
	boom := errors.New("boom")
	_, err := Fail(boom)(context.Background(), nil)
	assert.ErrorIs(t, err, boom)
}

func TestRecorder_ThreadSafe(t *testing.T) {
	rec := NewRecorder()
	fn := rec.Wrap("f", Const(ir.IRNull{}))

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_, _ = fn(context.Background(), nil)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1000, rec.Count("f"))
}

func TestRule(t *testing.T) {
	r := Rule(t, "r", 5,
		[]string{"(slot a ?x)", "not (slot b $?)"},
		[]string{"(slot b ?x)", "retract 0"})

	assert.Equal(t, "r", r.Name)
	assert.Equal(t, 5, r.Salience)
	require.Len(t, r.Conditions, 2)
	assert.False(t, r.Conditions[0].Absent)
	assert.True(t, r.Conditions[1].Absent)
	require.Len(t, r.Actions, 2)
	assert.Equal(t, 0, r.Actions[1].Target)

	p := Program(r)
	assert.NoError(t, p.Validate())
}
