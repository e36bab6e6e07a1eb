package ir

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalCanonicalBasic(t *testing.T) {
	tests := []struct {
		name     string
		input    any
		expected string
	}{
		{"string", String("hello"), `"hello"`},
		{"empty string", String(""), `""`},
		{"int", Int(42), "42"},
		{"negative int", Int(-100), "-100"},
		{"max int64", Int(9223372036854775807), "9223372036854775807"},
		{"bool true", Bool(true), "true"},
		{"bool false", Bool(false), "false"},
		{"empty array", Array{}, "[]"},
		{"empty object", Object{}, "{}"},
		{"array of ints", Array{Int(1), Int(2), Int(3)}, "[1,2,3]"},
		{"simple object", Object{"a": Int(1)}, `{"a":1}`},
		{"go int", 7, "7"},
		{"go string", "x", `"x"`},
		{"go float slice", []float64{-0.001, 0, 0.001}, "[-0.001,0,0.001]"},
		{"go float map", map[string]float64{"b": 2, "a": 0.5}, `{"a":0.5,"b":2}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := MarshalCanonical(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, string(result))
		})
	}
}

func TestMarshalCanonicalFloats(t *testing.T) {
	tenth, fifth := 0.1, 0.2

	tests := []struct {
		name     string
		input    float64
		expected string
	}{
		{"integral", 20, "20"},
		{"fraction", 0.62, "0.62"},
		{"negative", -0.001, "-0.001"},
		{"negative zero", math.Copysign(0, -1), "0"},
		{"small", 1e-10, "1e-10"},
		{"large", 1.5e300, "1.5e+300"},
		{"shortest round trip", tenth + fifth, "0.30000000000000004"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := MarshalCanonical(Float(tt.input))
			require.NoError(t, err)
			assert.Equal(t, tt.expected, string(result))
		})
	}
}

func TestMarshalCanonicalRejectsNonFinite(t *testing.T) {
	for _, f := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		_, err := MarshalCanonical(Float(f))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "non-finite")
	}

	_, err := MarshalCanonical(Object{"NuclearRadius": Float(math.NaN())})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "NuclearRadius")
}

func TestMarshalCanonicalRejectsNull(t *testing.T) {
	_, err := MarshalCanonical(nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "null")
}

func TestMarshalCanonicalRejectsUnsupported(t *testing.T) {
	_, err := MarshalCanonical(struct{}{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported")
}

func TestMarshalCanonicalNestedSortedKeys(t *testing.T) {
	obj := Object{
		"z": Object{
			"b": Int(1),
			"a": Int(2),
		},
		"a": Int(3),
	}

	result, err := MarshalCanonical(obj)
	require.NoError(t, err)
	assert.Equal(t, `{"a":3,"z":{"a":2,"b":1}}`, string(result))
}

func TestMarshalCanonicalUTF16Ordering(t *testing.T) {
	// U+E000 vs U+10000: UTF-16 order differs from UTF-8.
	obj := Object{
		"\uE000":     Int(1),
		"\U00010000": Int(2),
	}

	result, err := MarshalCanonical(obj)
	require.NoError(t, err)

	// 0xD800 < 0xE000, so the surrogate pair sorts first.
	expected := "{\"\U00010000\":2,\"\uE000\":1}"
	assert.Equal(t, expected, string(result))
}

func TestMarshalCanonicalNoHTMLEscape(t *testing.T) {
	result, err := MarshalCanonical(Object{"label": String("<3d1 4s1> & more")})
	require.NoError(t, err)

	assert.Equal(t, `{"label":"<3d1 4s1> & more"}`, string(result))
	assert.NotContains(t, string(result), "\\u003c")
	assert.NotContains(t, string(result), "\\u0026")
}

func TestMarshalCanonicalNFCNormalization(t *testing.T) {
	composed := "caf\u00E9"
	decomposed := "cafe\u0301"

	r1, err := MarshalCanonical(Object{composed: String(composed)})
	require.NoError(t, err)
	r2, err := MarshalCanonical(Object{decomposed: String(decomposed)})
	require.NoError(t, err)

	assert.Equal(t, r1, r2)
}

func TestMarshalCanonicalLineSeparators(t *testing.T) {
	result, err := MarshalCanonical(String("a\u2028b\u2029c"))
	require.NoError(t, err)
	assert.Equal(t, "\"a\u2028b\u2029c\"", string(result))

	// A literal backslash followed by the text u2028 stays escaped.
	result, err = MarshalCanonical(String(`a\u2028`))
	require.NoError(t, err)
	assert.Equal(t, `"a\\u2028"`, string(result))
}

func TestMarshalCanonicalStringEscaping(t *testing.T) {
	result, err := MarshalCanonical(String("line\nquote\"tab\t"))
	require.NoError(t, err)
	assert.Equal(t, `"line\nquote\"tab\t"`, string(result))
}

func TestFromJSONRoundTrip(t *testing.T) {
	obj := Object{
		"Z":       Int(20),
		"delta":   Float(0.65),
		"configs": Strings([]string{"3d1 4s1"}),
		"include": Bool(true),
		"nested":  Object{"r": Float(-0.001)},
	}
	first, err := MarshalCanonical(obj)
	require.NoError(t, err)

	decoded, err := FromJSON(first)
	require.NoError(t, err)
	second, err := MarshalCanonical(decoded)
	require.NoError(t, err)

	assert.Equal(t, string(first), string(second))
}

func TestFromJSONRejectsNull(t *testing.T) {
	_, err := FromJSON([]byte(`{"a":null}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "null")
}

func TestObjectMarshalJSONIsCanonical(t *testing.T) {
	obj := Object{"b": Float(1.5), "a": String("<x>")}
	data, err := obj.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `{"a":"<x>","b":1.5}`, string(data))
}
