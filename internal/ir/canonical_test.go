package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalCanonicalScalars(t *testing.T) {
	tests := []struct {
		name     string
		input    any
		expected string
	}{
		{"collection name", IRString("carts"), `"carts"`},
		{"empty string", IRString(""), `""`},
		{"quantity", IRInt(3), "3"},
		{"negative adjustment", IRInt(-12), "-12"},
		{"zero", IRInt(0), "0"},
		{"max int64", IRInt(9223372036854775807), "9223372036854775807"},
		{"in stock", IRBool(true), "true"},
		{"out of stock", IRBool(false), "false"},
		{"empty line items", IRArray{}, "[]"},
		{"empty doc", IRObject{}, "{}"},
		{"line item quantities", IRArray{IRInt(1), IRInt(2), IRInt(3)}, "[1,2,3]"},
		{"single field doc", IRObject{"qty": IRInt(1)}, `{"qty":1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := MarshalCanonical(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, string(result))
		})
	}
}

func TestMarshalCanonicalSortsFields(t *testing.T) {
	cart := IRObject{
		"total":    IRInt(4200),
		"customer": IRString("c-1"),
		"status":   IRString("pending"),
	}

	result, err := MarshalCanonical(cart)
	require.NoError(t, err)
	assert.Equal(t, `{"customer":"c-1","status":"pending","total":4200}`, string(result))
}

func TestMarshalCanonicalSortsNestedFields(t *testing.T) {
	order := IRObject{
		"shipping": IRObject{
			"zip":  IRString("94110"),
			"city": IRString("sf"),
		},
		"customer": IRString("c-1"),
	}

	result, err := MarshalCanonical(order)
	require.NoError(t, err)
	assert.Equal(t, `{"customer":"c-1","shipping":{"city":"sf","zip":"94110"}}`, string(result))
}

func TestMarshalCanonicalUTF16Ordering(t *testing.T) {
	doc := IRObject{
		"": IRInt(1),
		"\U00010000":      IRInt(2),
	}

	result, err := MarshalCanonical(doc)
	require.NoError(t, err)
	assert.Equal(t, "{\"\U00010000\":2,\"\":1}", string(result))
}

func TestMarshalCanonicalNoHTMLEscape(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"script tag", "<script>alert(1)</script>"},
		{"ampersand selector", "qty < 5 && status == 'open'"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := MarshalCanonical(IRString(tt.input))
			require.NoError(t, err)
			assert.Contains(t, string(result), tt.input)
			assert.NotContains(t, string(result), "\\u003c")
			assert.NotContains(t, string(result), "\\u0026")
		})
	}
}

func TestMarshalCanonicalRejectsFloats(t *testing.T) {
	tests := []struct {
		name  string
		input any
	}{
		{"float64 price", float64(19.99)},
		{"float32 price", float32(19.99)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := MarshalCanonical(tt.input)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "float")
		})
	}
}

func TestMarshalCanonicalRejectsNull(t *testing.T) {
	_, err := MarshalCanonical(nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "null")

	_, err = MarshalCanonical(IRNull{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "null")
}

func TestMarshalCanonicalRejectsNullInDebugTree(t *testing.T) {
	// render.Tree never emits a bare nil, but a detail map built by hand
	// (as a test double might) should still be rejected rather than
	// silently hashing as if the field were absent.
	_, err := MarshalCanonical(map[string]any{"selector": nil})
	require.Error(t, err)
}

func TestMarshalCanonicalNFCNormalization(t *testing.T) {
	composed := "café"    // precomposed é
	decomposed := "café" // e + combining acute accent

	result1, err := MarshalCanonical(IRString(composed))
	require.NoError(t, err)
	result2, err := MarshalCanonical(IRString(decomposed))
	require.NoError(t, err)

	assert.Equal(t, result1, result2, "differently-composed Unicode text must hash equal")
}

func TestMarshalCanonicalNFCInObjectKeys(t *testing.T) {
	composed := "café"
	decomposed := "café"

	result1, err := MarshalCanonical(IRObject{composed: IRInt(1)})
	require.NoError(t, err)
	result2, err := MarshalCanonical(IRObject{decomposed: IRInt(1)})
	require.NoError(t, err)

	assert.Equal(t, result1, result2)
}

func TestMarshalCanonicalCompactNoWhitespace(t *testing.T) {
	doc := IRObject{
		"items": IRArray{IRInt(1), IRInt(2)},
		"open":  IRBool(true),
		"total": IRInt(42),
	}

	result, err := MarshalCanonical(doc)
	require.NoError(t, err)
	assert.NotContains(t, string(result), " ")
	assert.NotContains(t, string(result), "\n")
}

// TestMarshalCanonicalAcceptsRenderedTree covers the shape render.Tree and
// render.TaskTree actually produce — plain Go maps/slices/strings — so the
// planstore hash path and golden-file comparisons don't need to convert to
// IRValue first.
func TestMarshalCanonicalAcceptsRenderedTree(t *testing.T) {
	tree := map[string]any{
		"type": "Match",
		"detail": map[string]any{
			"selector": "value.status == \"open\"",
		},
		"children": []any{
			map[string]any{"type": "Read", "detail": map[string]any{"collection": "carts"}},
		},
	}

	result, err := MarshalCanonical(tree)
	require.NoError(t, err)
	assert.Contains(t, string(result), `"type":"Match"`)
	assert.Contains(t, string(result), `"collection":"carts"`)
}

func TestMarshalCanonicalRawGoScalars(t *testing.T) {
	tests := []struct {
		name     string
		input    any
		expected string
	}{
		{"string", "carts", `"carts"`},
		{"int64", int64(42), "42"},
		{"int", 42, "42"},
		{"bool", true, "true"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := MarshalCanonical(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, string(result))
		})
	}
}

func TestMarshalCanonicalSliceAny(t *testing.T) {
	result, err := MarshalCanonical([]any{int64(1), "sku-2", true})
	require.NoError(t, err)
	assert.Equal(t, `[1,"sku-2",true]`, string(result))
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
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := MarshalCanonical(IRString(tt.input))
			require.NoError(t, err)
			assert.Equal(t, tt.expected, string(result))
		})
	}
}

func TestMarshalCanonicalLineAndParagraphSeparatorsNotEscaped(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"line separator", "line1 line2"},
		{"paragraph separator", "para1 para2"},
		{"both", "a b c"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := MarshalCanonical(IRString(tt.input))
			require.NoError(t, err)
			assert.NotContains(t, string(result), "\\u2028")
			assert.NotContains(t, string(result), "\\u2029")
			assert.Contains(t, string(result), tt.input)
		})
	}
}

func TestMarshalCanonicalLiteralBackslashU2028NotUnescaped(t *testing.T) {
	// A string that happens to contain the literal six-character text
	// "\u2028" (backslash, u, 2, 0, 2, 8) must round-trip as that text, not
	// be mistaken for an actual U+2028 and left unescaped.
	input := "the escape sequence is \\u2028"
	result, err := MarshalCanonical(IRString(input))
	require.NoError(t, err)
	assert.Equal(t, `"the escape sequence is \\u2028"`, string(result))
}

func TestMarshalCanonicalDeterministicAcrossCalls(t *testing.T) {
	plan := IRObject{
		"op":  IRString("read"),
		"src": IRString("orders"),
	}

	first, err := MarshalCanonical(plan)
	require.NoError(t, err)
	second, err := MarshalCanonical(plan)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}
