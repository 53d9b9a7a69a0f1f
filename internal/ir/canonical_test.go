package ir

import (
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
		{"go map", map[string]any{"b": "x", "a": 1}, `{"a":1,"b":"x"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := MarshalCanonical(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, string(result))
		})
	}
}

func TestMarshalCanonicalNestedSortedKeys(t *testing.T) {
	obj := Object{
		"z": Object{"b": Int(1), "a": Int(2)},
		"a": Int(3),
	}

	result, err := MarshalCanonical(obj)
	require.NoError(t, err)
	assert.Equal(t, `{"a":3,"z":{"a":2,"b":1}}`, string(result))
}

func TestMarshalCanonicalNoHTMLEscape(t *testing.T) {
	result, err := MarshalCanonical(String("<ref name=\"a&b\">"))
	require.NoError(t, err)
	assert.Equal(t, `"<ref name=\"a&b\">"`, string(result))
}

func TestMarshalCanonicalRejects(t *testing.T) {
	_, err := MarshalCanonical(nil)
	assert.Error(t, err)

	_, err = MarshalCanonical(3.14)
	assert.Error(t, err)

	_, err = MarshalCanonical(Object{"n": nil})
	assert.Error(t, err)

	_, err = MarshalCanonical(struct{}{})
	assert.Error(t, err)
}

func TestMarshalCanonicalNFCNormalization(t *testing.T) {
	decomposed := String("Cafe\u0301")
	composed := String("Caf\u00e9")

	a, err := MarshalCanonical(decomposed)
	require.NoError(t, err)
	b, err := MarshalCanonical(composed)
	require.NoError(t, err)

	assert.Equal(t, a, b)
}

func TestMarshalCanonicalRejectsInvalidUTF8(t *testing.T) {
	tests := []struct {
		name  string
		input any
	}{
		{"string", String("caf\xe9")},
		{"nested string", Object{"title": Array{String("ok"), String("\xff\xfe")}}},
		{"key", Object{"\xff": String("x")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := MarshalCanonical(tt.input)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "not valid UTF-8")
		})
	}

	// Distinct invalid byte strings must not collapse to the same U+FFFD text.
	_, errA := ReferenceHash(Object{"title": String("\xff")})
	_, errB := ReferenceHash(Object{"title": String("\xfe")})
	assert.Error(t, errA)
	assert.Error(t, errB)
}

func TestMarshalCanonicalKeysCollidingAfterNFC(t *testing.T) {
	_, err := MarshalCanonical(Object{
		"Cafe\u0301": String("decomposed"),
		"Caf\u00e9":  String("composed"),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "equal after NFC normalization")
}

func TestMarshalCanonicalNormalizedKeyOrder(t *testing.T) {
	// "e\u0301" composes to U+00E9, which sorts after "f".
	got, err := MarshalCanonical(Object{"e\u0301": Int(1), "f": Int(2)})
	require.NoError(t, err)
	assert.Equal(t, "{\"f\":2,\"\u00e9\":1}", string(got))
}

func TestMarshalCanonicalStringEscaping(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"newline", "a\nb", `"a\nb"`},
		{"tab", "a\tb", `"a\tb"`},
		{"quote", `a"b`, `"a\"b"`},
		{"backslash", `a\b`, `"a\\b"`},
		{"line separator", "a\u2028b", "\"a\u2028b\""},
		{"paragraph separator", "a\u2029b", "\"a\u2029b\""},
		{"literal backslash-u2028 text", `is \u2028`, `"is \\u2028"`},
		{"mixed literal and actual", "lit \\u2029 and \u2029", "\"lit \\\\u2029 and \u2029\""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := MarshalCanonical(String(tt.input))
			require.NoError(t, err)
			assert.Equal(t, tt.expected, string(result))
		})
	}
}

func TestObjectSortedKeysUTF16Order(t *testing.T) {
	// UTF-8 byte order puts U+FF21 before U+1F600; UTF-16 puts the
	// surrogate pair (0xD83D...) before 0xFF21.
	obj := Object{
		"\uFF21":     Int(1),
		"\U0001F600": Int(2),
		"a":          Int(3),
		"A":          Int(4),
	}

	assert.Equal(t, []string{"A", "a", "\U0001F600", "\uFF21"}, obj.SortedKeys())
}

func TestFromJSON(t *testing.T) {
	v, err := FromJSON([]byte(`{"title":"X","year":2001,"authors":["a","b"],"doi":null,"meta":{"ok":true}}`))
	require.NoError(t, err)

	obj, ok := v.(Object)
	require.True(t, ok)
	assert.Equal(t, String("X"), obj["title"])
	assert.Equal(t, Int(2001), obj["year"])
	assert.Equal(t, Array{String("a"), String("b")}, obj["authors"])
	assert.Equal(t, Object{"ok": Bool(true)}, obj["meta"])
	_, hasDOI := obj["doi"]
	assert.False(t, hasDOI, "null members are dropped")
}

func TestFromJSONRejects(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"float", `{"score":1.5}`},
		{"exponent", `{"n":1e3}`},
		{"null top level", `null`},
		{"null in array", `[1,null]`},
		{"trailing data", `{} {}`},
		{"invalid json", `{`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FromJSON([]byte(tt.input))
			assert.Error(t, err)
		})
	}
}

func TestObjectUnmarshalJSON(t *testing.T) {
	var obj Object
	require.NoError(t, obj.UnmarshalJSON([]byte(`{"b":1,"a":"x"}`)))
	assert.Equal(t, Object{"a": String("x"), "b": Int(1)}, obj)

	out, err := obj.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `{"a":"x","b":1}`, string(out))

	assert.Error(t, obj.UnmarshalJSON([]byte(`[1]`)))
}

func FuzzMarshalCanonicalIdempotent(f *testing.F) {
	f.Add(`{"a":1,"b":"test"}`)
	f.Add(`[1,2,3]`)
	f.Add(`"hello"`)
	f.Add(`{"nested":{"deep":{"value":123}}}`)

	f.Fuzz(func(t *testing.T, jsonStr string) {
		val, err := FromJSON([]byte(jsonStr))
		if err != nil {
			t.Skip()
		}
		first, err := MarshalCanonical(val)
		if err != nil {
			t.Skip()
		}

		val2, err := FromJSON(first)
		require.NoError(t, err)
		second, err := MarshalCanonical(val2)
		require.NoError(t, err)

		assert.Equal(t, first, second, "canonical marshaling must be idempotent")
	})
}
