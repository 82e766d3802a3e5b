package engine

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/roach88/slotreason/internal/factstore"
	"github.com/roach88/slotreason/internal/funcs"
	"github.com/roach88/slotreason/internal/ir"
	"github.com/roach88/slotreason/internal/metrics"
	"github.com/roach88/slotreason/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newEngine builds an engine over rules with a fixed ID and discarded logs.
func newEngine(t *testing.T, p *factstore.Program, resolver funcs.Resolver, opts ...EngineOption) *Engine {
	t.Helper()
	if p == nil {
		p = testutil.Program()
	}
	opts = append([]EngineOption{
		WithLogger(quietLogger()),
		WithIDGenerator(testutil.NewStaticIDGenerator("engine-1")),
	}, opts...)
	e, err := New(p, resolver, opts...)
	require.NoError(t, err)
	return e
}

func mustAssert(t *testing.T, e *Engine, texts ...string) {
	t.Helper()
	for _, text := range texts {
		_, err := e.facts.AssertString(text)
		require.NoError(t, err, text)
	}
}

func slotCount(e *Engine, name string) int {
	return len(e.SlotsByName(name))
}

func TestNew(t *testing.T) {
	e := newEngine(t, testutil.Program(
		testutil.Rule(t, "a", 0, []string{"(slot a ?x)"}, []string{"(slot b ?x)"}),
		testutil.Rule(t, "b", 0, []string{"(slot b ?x)"}, []string{"(slot c ?x)"}),
	), nil)

	assert.Equal(t, "engine-1", e.ID())
	assert.Equal(t, 2, e.NumRules())
	assert.Equal(t, 0, e.NumFacts())
	assert.Equal(t, DefaultReasonLimit, e.ReasonLimit())
	assert.NotNil(t, e.Program())
}

func TestNew_Errors(t *testing.T) {
	_, err := New(nil, nil)
	assert.Error(t, err)

	dup := testutil.Program(
		testutil.Rule(t, "same", 0, []string{"(slot a ?x)"}, nil),
		testutil.Rule(t, "same", 0, []string{"(slot b ?x)"}, nil),
	)
	_, err = New(dup, nil, WithLogger(quietLogger()))
	assert.Error(t, err)
}

func TestNew_DefaultIDIsUUID(t *testing.T) {
	e, err := New(testutil.Program(), nil, WithLogger(quietLogger()))
	require.NoError(t, err)
	assert.Len(t, e.ID(), 36)
}

func TestWithReasonLimit(t *testing.T) {
	e := newEngine(t, nil, nil, WithReasonLimit(7))
	assert.Equal(t, 7, e.ReasonLimit())
}

func TestSlots_RoundTrip(t *testing.T) {
	e := newEngine(t, nil, nil)

	in := MapInput{
		"pizza_size":        ir.IRString("big"),
		"pizza_ingredients": ir.IRArray{ir.IRString("cheese"), ir.IRString("pepperoni")},
		"count":             ir.IRInt(2),
		"price":             ir.IRFloat(12.5),
		"delivery":          ir.IRBool(true),
		"whole":             ir.IRFloat(3),
	}
	require.NoError(t, e.SetSlots(in))

	got := e.Slots()
	assert.Len(t, got, len(in))
	for name, want := range in {
		assert.Equal(t, want, got[name], name)
	}
}

func TestSlotRegistry(t *testing.T) {
	e := newEngine(t, nil, nil)
	mustAssert(t, e,
		`(slot size "big")`,
		`(slot "size" "small")`,
		`(slot color "red")`,
		`(other size "big")`,
	)

	assert.Len(t, e.AllSlots(), 3)
	assert.Len(t, e.SlotsByName("size"), 2)
	assert.Empty(t, e.SlotsByName("missing"))

	n, err := e.RetractSlotsByName("size")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Empty(t, e.SlotsByName("size"))
	assert.Equal(t, 2, e.NumFacts())

	n, err = e.RetractSlotsByName("size")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestSlots_NewestWins(t *testing.T) {
	e := newEngine(t, nil, nil)
	require.NoError(t, e.AssertSlot("status", ir.IRString("old")))
	require.NoError(t, e.AssertSlot("status", ir.IRString("new")))

	assert.Equal(t, ir.IRString("new"), e.Slots()["status"])
	assert.Equal(t, 2, slotCount(e, "status"))
}

func TestCollectFactValues(t *testing.T) {
	p := &factstore.Program{
		Templates: []factstore.Template{{
			Name: "user",
			Fields: []factstore.TemplateField{
				{Name: "id"},
				{Name: "requests", Multi: true},
			},
		}},
	}
	e := newEngine(t, p, nil)
	mustAssert(t, e,
		`(intent_suggestion intent_1 0.231)`,
		`(intent_suggestion intent_2 0.327)`,
		`(user (id "123") (requests "a" "b"))`,
	)

	assert.Equal(t, []ir.IRValue{
		ir.IRArray{ir.IRString("intent_1"), ir.IRFloat(0.231)},
		ir.IRArray{ir.IRString("intent_2"), ir.IRFloat(0.327)},
	}, e.CollectFactValues("intent_suggestion"))

	assert.Equal(t, []ir.IRValue{
		ir.IRObject{"id": ir.IRString("123"), "requests": ir.IRArray{ir.IRString("a"), ir.IRString("b")}},
	}, e.CollectFactValues("user"))

	assert.Empty(t, e.CollectFactValues("nothing"))
}

func TestReset(t *testing.T) {
	p := testutil.Program(testutil.Rule(t, "copy", 0, []string{"(slot a ?x)"}, []string{"(slot b ?x)"}))
	p.Facts = []string{`(slot seed 1)`}
	e := newEngine(t, p, nil)

	require.NoError(t, e.AssertSlot("a", ir.IRInt(1)))
	require.NoError(t, e.Reason(context.Background(), 10))
	assert.Equal(t, 1, e.NumFires())

	e.Reset()
	assert.Equal(t, 1, e.NumRules())
	assert.Equal(t, 0, e.NumFires())
	assert.Zero(t, e.LastReasonDuration())
	assert.Equal(t, map[string]ir.IRValue{"seed": ir.IRInt(1)}, e.Slots())

	// Rules still fire after a reset.
	require.NoError(t, e.AssertSlot("a", ir.IRInt(2)))
	require.NoError(t, e.Reason(context.Background(), 10))
	assert.Equal(t, ir.IRInt(2), e.Slots()["b"])
}

func TestDumpRestore(t *testing.T) {
	p := testutil.Program()
	p.Facts = []string{`(slot seed 1)`}
	src := newEngine(t, p, nil)
	require.NoError(t, src.SetSlots(MapInput{
		"size":     ir.IRString("big"),
		"toppings": ir.IRArray{ir.IRString("ham"), ir.IRString("olive")},
	}))
	dump := src.Dump()
	assert.Equal(t, []string{
		`(slot seed 1)`,
		`(slot size "big")`,
		`(slot toppings "ham" "olive")`,
	}, dump)

	dst := newEngine(t, p, nil)
	require.NoError(t, dst.AssertSlot("stale", ir.IRInt(1)))
	require.NoError(t, dst.Restore(dump))

	assert.Equal(t, src.Slots(), dst.Slots())
	assert.Equal(t, 3, dst.NumFacts())

	assert.Error(t, dst.Restore([]string{"(unterminated"}))
}

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	p := testutil.Program(
		testutil.Rule(t, "ready", 0, []string{"(slot size ?s)"}, []string{`(unique_slot status "ready")`}),
	)
	e := newEngine(t, p, nil, WithMetrics(m))

	require.NoError(t, e.AssertSlot("size", ir.IRString("big")))
	require.NoError(t, e.Reason(context.Background(), 10))

	assert.Equal(t, 1.0, promtest.ToFloat64(m.RuleFires))
	assert.Equal(t, 1.0, promtest.ToFloat64(m.Directives.WithLabelValues(DirectiveUniqueSlot)))

	require.Error(t, e.Reason(context.Background(), 0))
	assert.Equal(t, 1.0, promtest.ToFloat64(m.ReasonErrors.WithLabelValues(string(ErrCodeCycleLimitExceeded))))
}
