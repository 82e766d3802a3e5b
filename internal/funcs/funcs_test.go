package funcs

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/slotreason/internal/ir"
)

func call(t *testing.T, name string, args ...ir.IRValue) (ir.IRValue, error) {
	t.Helper()
	f, ok := Std().Resolve(name)
	require.True(t, ok, "std has %s", name)
	return f(context.Background(), args)
}

func TestStd(t *testing.T) {
	tests := []struct {
		name string
		fn   string
		args []ir.IRValue
		want ir.IRValue
	}{
		{"concat", "concat", []ir.IRValue{ir.IRString("a"), ir.IRInt(1), ir.IRBool(true)}, ir.IRString("a1True")},
		{"upper", "upper", []ir.IRValue{ir.IRString("big")}, ir.IRString("BIG")},
		{"lower", "lower", []ir.IRValue{ir.IRString("BiG")}, ir.IRString("big")},
		{"add ints", "add", []ir.IRValue{ir.IRInt(1), ir.IRInt(2)}, ir.IRInt(3)},
		{"add mixed", "add", []ir.IRValue{ir.IRInt(1), ir.IRFloat(0.5)}, ir.IRFloat(1.5)},
		{"add none", "add", nil, ir.IRInt(0)},
		{"inc int", "inc", []ir.IRValue{ir.IRInt(4)}, ir.IRInt(5)},
		{"inc float", "inc", []ir.IRValue{ir.IRFloat(0.5)}, ir.IRFloat(1.5)},
		{"max", "max", []ir.IRValue{ir.IRInt(1), ir.IRFloat(2.5), ir.IRInt(2)}, ir.IRFloat(2.5)},
		{"min", "min", []ir.IRValue{ir.IRInt(3), ir.IRInt(-1)}, ir.IRInt(-1)},
		{"len string", "len", []ir.IRValue{ir.IRString("héllo")}, ir.IRInt(5)},
		{"len args", "len", []ir.IRValue{ir.IRInt(1), ir.IRInt(2)}, ir.IRInt(2)},
		{"join", "join", []ir.IRValue{ir.IRString(", "), ir.IRString("a"), ir.IRInt(2)}, ir.IRString("a, 2")},
		{"split", "split", []ir.IRValue{ir.IRString("a,b"), ir.IRString(",")}, ir.IRArray{ir.IRString("a"), ir.IRString("b")}},
		{"list", "list", []ir.IRValue{ir.IRString("x"), ir.IRString("y")}, ir.IRArray{ir.IRString("x"), ir.IRString("y")}},
		{"empty list", "list", nil, ir.IRArray{}},
		{"not", "not", []ir.IRValue{ir.IRBool(true)}, ir.IRBool(false)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := call(t, tt.fn, tt.args...)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStdErrors(t *testing.T) {
	tests := []struct {
		fn   string
		args []ir.IRValue
	}{
		{"upper", []ir.IRValue{ir.IRInt(1)}},
		{"upper", nil},
		{"add", []ir.IRValue{ir.IRString("x")}},
		{"inc", []ir.IRValue{ir.IRBool(true)}},
		{"max", nil},
		{"join", nil},
		{"split", []ir.IRValue{ir.IRString("a")}},
		{"not", []ir.IRValue{ir.IRString("yes")}},
	}

	for _, tt := range tests {
		t.Run(tt.fn, func(t *testing.T) {
			_, err := call(t, tt.fn, tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.fn)
		})
	}
}

func TestNamespaceResolve(t *testing.T) {
	ns := Namespace{
		"hello": func(context.Context, []ir.IRValue) (ir.IRValue, error) {
			return ir.IRString("hi"), nil
		},
	}

	f, ok := ns.Resolve("hello")
	require.True(t, ok)
	got, err := f(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, ir.IRString("hi"), got)

	_, ok = ns.Resolve("missing")
	assert.False(t, ok)
	assert.Equal(t, []string{"hello"}, ns.Names())
}

func TestCatalog(t *testing.T) {
	c := NewCatalog()
	assert.Equal(t, []string{StdNamespace}, c.Names())

	custom := Namespace{
		"upper": func(context.Context, []ir.IRValue) (ir.IRValue, error) {
			return ir.IRString("custom"), nil
		},
	}
	require.NoError(t, c.Register("custom", custom))
	assert.ErrorIs(t, c.Register("custom", custom), ErrDuplicateNamespace)

	_, err := c.Namespace("nope")
	assert.ErrorIs(t, err, ErrUnknownNamespace)

	r, err := c.Resolver()
	require.NoError(t, err)
	assert.Nil(t, r)

	r, err = c.Resolver(StdNamespace, "custom")
	require.NoError(t, err)
	f, ok := r.Resolve("upper")
	require.True(t, ok)
	got, err := f(context.Background(), []ir.IRValue{ir.IRString("x")})
	require.NoError(t, err)
	assert.Equal(t, ir.IRString("custom"), got, "later namespaces override earlier ones")

	_, ok = r.Resolve("concat")
	assert.True(t, ok)

	_, err = c.Resolver("nope")
	assert.ErrorIs(t, err, ErrUnknownNamespace)
}
