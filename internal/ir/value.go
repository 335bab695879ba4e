package ir

import (
	"slices"
	"unicode/utf16"
)

// IRValue is the sealed literal-value family: the BSON scalar/document/array
// shapes that can sit under a Literal expression or a Pure op. Only IRNull,
// IRString, IRInt, IRBool, IRArray, and IRObject implement it.
//
// There is no IRFloat. Non-integer numerics are out of scope so that
// canonical encoding — and the op-graph/task hashes built on it — stays
// deterministic across builds; see DESIGN.md.
type IRValue interface {
	irValue() // seals the interface to this package
}

// IRNull represents a literal null.
type IRNull struct{}

func (IRNull) irValue() {}

// IRString represents a literal string.
type IRString string

func (IRString) irValue() {}

// IRInt represents a literal integer. Always int64.
type IRInt int64

func (IRInt) irValue() {}

// IRBool represents a literal boolean.
type IRBool bool

func (IRBool) irValue() {}

// IRArray represents a literal array of values.
type IRArray []IRValue

func (IRArray) irValue() {}

// IRObject represents a literal document: a map of string keys to values.
// Iterate via SortedKeys, not Go's map order, for anything that needs to be
// deterministic (canonical encoding, debug rendering).
type IRObject map[string]IRValue

func (IRObject) irValue() {}

// NewIRString creates an IRString value.
func NewIRString(s string) IRString {
	return IRString(s)
}

// NewIRInt creates an IRInt value.
func NewIRInt(n int64) IRInt {
	return IRInt(n)
}

// NewIRBool creates an IRBool value.
func NewIRBool(b bool) IRBool {
	return IRBool(b)
}

// NewIRArray creates an IRArray from values.
func NewIRArray(vals ...IRValue) IRArray {
	return IRArray(vals)
}

// IRPair is a key-value pair for typed IRObject construction, so a literal
// object can't accidentally take a float value.
type IRPair struct {
	Key   string
	Value IRValue
}

// NewIRObjectFromPairs builds an IRObject from typed key-value pairs.
// Example: NewIRObjectFromPairs(IRPair{"name", NewIRString("cart")}, IRPair{"count", NewIRInt(5)})
func NewIRObjectFromPairs(pairs ...IRPair) IRObject {
	obj := make(IRObject, len(pairs))
	for _, p := range pairs {
		obj[p.Key] = p.Value
	}
	return obj
}

// O is shorthand for IRPair, for terser object construction.
// Example: NewIRObjectFromPairs(O("name", NewIRString("cart")), O("count", NewIRInt(5)))
func O(key string, value IRValue) IRPair {
	return IRPair{Key: key, Value: value}
}

// SortedKeys returns obj's keys ordered by UTF-16 code unit, per RFC 8785.
// Go's sort.Strings compares UTF-8 bytes and produces a different order for
// any key outside the BMP, so it cannot substitute for this.
func (obj IRObject) SortedKeys() []string {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareKeysRFC8785)
	return keys
}

// compareKeysRFC8785 orders two strings by UTF-16 code unit, the ordering
// RFC 8785 canonical JSON requires for object keys.
func compareKeysRFC8785(a, b string) int {
	a16 := utf16.Encode([]rune(a))
	b16 := utf16.Encode([]rune(b))

	n := min(len(a16), len(b16))
	for i := 0; i < n; i++ {
		if a16[i] != b16[i] {
			if a16[i] < b16[i] {
				return -1
			}
			return 1
		}
	}
	return len(a16) - len(b16)
}
