package ir

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIRValueSealed(t *testing.T) {
	var _ IRValue = IRNull{}
	var _ IRValue = IRString("carts")
	var _ IRValue = IRInt(42)
	var _ IRValue = IRBool(true)
	var _ IRValue = IRArray{IRString("a"), IRInt(1)}
	var _ IRValue = IRObject{"collection": IRString("carts")}
}

func TestNoIRFloatExists(t *testing.T) {
	// Documents that no IRFloat type exists: BSON numerics in the IR are
	// always int64, so the op-graph hash stays deterministic across builds.
	var max IRInt = 9223372036854775807
	assert.Equal(t, IRInt(9223372036854775807), max)
}

func TestIRObjectSortedKeys(t *testing.T) {
	doc := IRObject{
		"total":    IRInt(4200),
		"customer": IRString("c-1"),
		"status":   IRString("pending"),
	}

	assert.Equal(t, []string{"customer", "status", "total"}, doc.SortedKeys())
}

func TestIRObjectSortedKeysEmpty(t *testing.T) {
	assert.Empty(t, IRObject{}.SortedKeys())
}

func TestIRObjectSortedKeysStable(t *testing.T) {
	doc := IRObject{"b": IRInt(1), "a": IRInt(2), "c": IRInt(3)}

	first := doc.SortedKeys()
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, doc.SortedKeys(), "key order must not depend on Go's map iteration")
	}
}

func TestIRArrayOfLineItems(t *testing.T) {
	// A Pure op's literal value can be an array of nested documents, the
	// shape a cart's line-items field takes.
	items := IRArray{
		IRObject{"sku": IRString("sku-1"), "qty": IRInt(2)},
		IRObject{"sku": IRString("sku-2"), "qty": IRInt(1)},
	}

	assert.Len(t, items, 2)
	first, ok := items[0].(IRObject)
	assert.True(t, ok)
	assert.Equal(t, IRInt(2), first["qty"])
}

func TestIRObjectNestedPath(t *testing.T) {
	doc := IRObject{
		"shipping": IRObject{
			"address": IRObject{
				"zip": IRString("94110"),
			},
		},
	}

	shipping := doc["shipping"].(IRObject)
	address := shipping["address"].(IRObject)
	assert.Equal(t, IRString("94110"), address["zip"])
}

func TestCompareKeysRFC8785ASCII(t *testing.T) {
	tests := []struct {
		a, b     string
		wantSign int
	}{
		{"a", "b", -1},
		{"b", "a", 1},
		{"a", "a", 0},
		{"aa", "a", 1},
		{"a", "aa", -1},
		{"", "", 0},
		{"", "a", -1},
	}

	for _, tt := range tests {
		t.Run(tt.a+"_vs_"+tt.b, func(t *testing.T) {
			got := compareKeysRFC8785(tt.a, tt.b)
			switch {
			case tt.wantSign < 0:
				assert.Less(t, got, 0)
			case tt.wantSign > 0:
				assert.Greater(t, got, 0)
			default:
				assert.Equal(t, 0, got)
			}
		})
	}
}

// TestSortedKeysUTF16Order is the regression test for the RFC 8785 ordering
// rule: UTF-16 code unit comparison, not Go's UTF-8 byte comparison,
// because two independently built plans must hash equal regardless of
// which order Go happened to iterate their field names in.
func TestSortedKeysUTF16Order(t *testing.T) {
	// U+E000 (Private Use Area, single UTF-16 unit 0xE000) vs U+10000
	// (Linear B, surrogate pair 0xD800 0xDC00). UTF-8 byte order puts
	// U+E000 first (0xEE < 0xF0); UTF-16 code-unit order puts U+10000
	// first (0xD800 < 0xE000).
	doc := IRObject{
		"": IRInt(1),
		"𐀀":      IRInt(2),
	}

	keys := doc.SortedKeys()
	assert.Equal(t, []string{"𐀀", ""}, keys)

	utf8Order := []string{"", "𐀀"}
	sort.Strings(utf8Order)
	assert.NotEqual(t, keys, utf8Order, "UTF-8 and UTF-16 orders must differ for this pair")
}

func TestHelperConstructors(t *testing.T) {
	assert.Equal(t, IRString("carts"), NewIRString("carts"))
	assert.Equal(t, IRInt(7), NewIRInt(7))
	assert.Equal(t, IRBool(true), NewIRBool(true))
	assert.Equal(t, IRArray{IRString("a"), IRInt(1)}, NewIRArray(IRString("a"), IRInt(1)))

	doc := NewIRObjectFromPairs(
		O("collection", NewIRString("orders")),
		IRPair{Key: "limit", Value: NewIRInt(10)},
	)
	assert.Equal(t, IRString("orders"), doc["collection"])
	assert.Equal(t, IRInt(10), doc["limit"])
}
