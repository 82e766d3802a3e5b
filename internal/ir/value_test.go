package ir

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIRValueSealed(t *testing.T) {
	var _ IRValue = IRNull{}
	var _ IRValue = IRString("test")
	var _ IRValue = IRInt(42)
	var _ IRValue = IRFloat(1.5)
	var _ IRValue = IRBool(true)
	var _ IRValue = IRArray{IRString("a"), IRInt(1)}
	var _ IRValue = IRObject{"key": IRString("value")}
}

func TestIRObjectSortedKeysRFC8785Order(t *testing.T) {
	obj := IRObject{
		"a":  IRInt(1),
		"A":  IRInt(2),
		"aa": IRInt(3),
		"aA": IRInt(4),
		"Aa": IRInt(5),
		"AA": IRInt(6),
	}

	// 'A' = 65, 'a' = 97
	assert.Equal(t, []string{"A", "AA", "Aa", "a", "aA", "aa"}, obj.SortedKeys())
}

func TestSortedKeysUTF16Order(t *testing.T) {
	// U+1F600 encodes as surrogates 0xD83D 0xDE00 in UTF-16, which sorts
	// before U+FFFD (0xFFFD). UTF-8 byte order would put it after.
	obj := IRObject{
		"\U0001F600": IRInt(1),
		"\uFFFD":     IRInt(2),
	}
	assert.Equal(t, []string{"\U0001F600", "\uFFFD"}, obj.SortedKeys())
}

func TestEqual(t *testing.T) {
	tests := []struct {
		name  string
		a, b  IRValue
		equal bool
	}{
		{"same string", IRString("big"), IRString("big"), true},
		{"different string", IRString("big"), IRString("small"), false},
		{"int vs float", IRInt(1), IRFloat(1), false},
		{"float", IRFloat(0.5), IRFloat(0.5), true},
		{"bool", IRBool(true), IRBool(true), true},
		{"string vs bool", IRString("True"), IRBool(true), false},
		{"null", IRNull{}, IRNull{}, true},
		{"null vs string", IRNull{}, IRString(""), false},
		{"array order", IRArray{IRInt(1), IRInt(2)}, IRArray{IRInt(2), IRInt(1)}, false},
		{"array", IRArray{IRInt(1), IRString("x")}, IRArray{IRInt(1), IRString("x")}, true},
		{"array length", IRArray{IRInt(1)}, IRArray{IRInt(1), IRInt(1)}, false},
		{"scalar vs single array", IRInt(1), IRArray{IRInt(1)}, false},
		{"object", IRObject{"a": IRInt(1)}, IRObject{"a": IRInt(1)}, true},
		{"object missing key", IRObject{"a": IRInt(1)}, IRObject{"b": IRInt(1)}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.equal, Equal(tt.a, tt.b))
			assert.Equal(t, tt.equal, Equal(tt.b, tt.a))
		})
	}
}

func TestIsScalar(t *testing.T) {
	assert.True(t, IsScalar(IRString("x")))
	assert.True(t, IsScalar(IRInt(1)))
	assert.True(t, IsScalar(IRFloat(1)))
	assert.True(t, IsScalar(IRBool(false)))
	assert.False(t, IsScalar(IRNull{}))
	assert.False(t, IsScalar(IRArray{}))
	assert.False(t, IsScalar(IRObject{}))
}

func TestMarshalIRValue(t *testing.T) {
	tests := []struct {
		name  string
		value IRValue
		want  string
	}{
		{"null", IRNull{}, `null`},
		{"string", IRString("cheese"), `"cheese"`},
		{"int", IRInt(-7), `-7`},
		{"float with fraction", IRFloat(0.25), `0.25`},
		{"integral float", IRFloat(3), `3.0`},
		{"large float", IRFloat(1e21), `1e+21`},
		{"bool", IRBool(false), `false`},
		{"array", IRArray{IRString("a"), IRInt(1)}, `["a",1]`},
		{"object sorted", IRObject{"z": IRInt(1), "a": IRNull{}}, `{"a":null,"z":1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := MarshalIRValue(tt.value)
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(got))
		})
	}
}

func TestUnmarshalIRValueNumbers(t *testing.T) {
	v, err := UnmarshalIRValue([]byte(`{"count": 3, "score": 0.75, "big": 3.0, "exp": 1e3}`))
	require.NoError(t, err)

	obj, ok := v.(IRObject)
	require.True(t, ok)
	assert.Equal(t, IRInt(3), obj["count"])
	assert.Equal(t, IRFloat(0.75), obj["score"])
	assert.Equal(t, IRFloat(3), obj["big"])
	assert.Equal(t, IRFloat(1000), obj["exp"])
}

func TestMarshalRoundTrip(t *testing.T) {
	original := IRObject{
		"pizza_size":        IRString("big"),
		"pizza_ingredients": IRArray{IRString("cheese"), IRString("pepperoni")},
		"quantity":          IRInt(2),
		"confidence":        IRFloat(0.5),
		"confirmed":         IRBool(true),
		"removed":           IRNull{},
	}

	data, err := json.Marshal(original)
	require.NoError(t, err)

	var decoded IRObject
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.True(t, Equal(original, decoded), "decoded %v", decoded)
}

func TestUnmarshalIRObjectRejectsArray(t *testing.T) {
	var obj IRObject
	err := json.Unmarshal([]byte(`[1,2]`), &obj)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected JSON object")
}

func TestFromGo(t *testing.T) {
	v, err := FromGo(map[string]any{
		"name":  "Spock",
		"age":   161,
		"tags":  []any{"vulcan", true},
		"ratio": 0.5,
		"none":  nil,
		"list":  []string{"a", "b"},
	})
	require.NoError(t, err)

	want := IRObject{
		"name":  IRString("Spock"),
		"age":   IRInt(161),
		"tags":  IRArray{IRString("vulcan"), IRBool(true)},
		"ratio": IRFloat(0.5),
		"none":  IRNull{},
		"list":  IRArray{IRString("a"), IRString("b")},
	}
	assert.True(t, Equal(want, v), "got %v", v)
}

func TestFromGoUnsupported(t *testing.T) {
	_, err := FromGo(struct{}{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported type")
}

func TestToGo(t *testing.T) {
	got := ToGo(IRObject{
		"a": IRArray{IRInt(1), IRFloat(2.5)},
		"b": IRNull{},
		"c": IRBool(true),
	})
	assert.Equal(t, map[string]any{
		"a": []any{int64(1), 2.5},
		"b": nil,
		"c": true,
	}, got)
}
