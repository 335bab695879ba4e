package ir

import (
	"bytes"
	"encoding/json"
	"fmt"

	"golang.org/x/text/unicode/norm"
)

// MarshalCanonical produces RFC 8785 canonical JSON for content-addressed
// hashing. This is the only serialization OpGraphHash and TaskHash use —
// never encoding/json's own Marshal, which sorts nothing and HTML-escapes
// by default.
//
// v may be an IRValue, or a plain Go value of the shape render.Tree and
// render.TaskTree produce (map[string]any, []any, string, bool, int/int64) —
// callers that already hold a debug tree don't need to convert it to an
// IRValue first.
//
// Canonical encoding differs from json.Marshal in four ways:
//  1. object keys sort by UTF-16 code unit, not UTF-8 byte, per RFC 8785
//  2. no HTML escaping of < > &
//  3. strings are NFC-normalized, so two differently-composed Unicode
//     representations of the same text hash equal
//  4. floats and null are rejected outright — both are forbidden in the IR
func MarshalCanonical(v any) ([]byte, error) {
	switch val := v.(type) {
	case IRValue:
		return marshalCanonicalValue(val)
	case nil:
		return nil, fmt.Errorf("ir: null is forbidden in canonical encoding")
	case string:
		return marshalCanonicalString(val)
	case int:
		return []byte(fmt.Sprintf("%d", val)), nil
	case int64:
		return []byte(fmt.Sprintf("%d", val)), nil
	case bool:
		return marshalCanonicalBool(val), nil
	case map[string]any:
		obj, err := objectFromAny(val)
		if err != nil {
			return nil, err
		}
		return marshalCanonicalObject(obj)
	case []any:
		arr, err := arrayFromAny(val)
		if err != nil {
			return nil, err
		}
		return marshalCanonicalArray(arr)
	case float32, float64:
		return nil, fmt.Errorf("ir: floats are forbidden in canonical encoding: %v", val)
	default:
		return nil, fmt.Errorf("ir: cannot canonicalize %T", v)
	}
}

// marshalCanonicalValue dispatches on the sealed IRValue family.
func marshalCanonicalValue(v IRValue) ([]byte, error) {
	switch val := v.(type) {
	case IRNull:
		return nil, fmt.Errorf("ir: null is forbidden in canonical encoding")
	case IRString:
		return marshalCanonicalString(string(val))
	case IRInt:
		return []byte(fmt.Sprintf("%d", val)), nil
	case IRBool:
		return marshalCanonicalBool(bool(val)), nil
	case IRArray:
		return marshalCanonicalArray(val)
	case IRObject:
		return marshalCanonicalObject(val)
	default:
		return nil, fmt.Errorf("ir: cannot canonicalize %T", v)
	}
}

func marshalCanonicalBool(b bool) []byte {
	if b {
		return []byte("true")
	}
	return []byte("false")
}

// objectFromAny converts a plain map, as produced by render.Tree's detail
// maps, into an IRObject so it can be canonically encoded.
func objectFromAny(m map[string]any) (IRObject, error) {
	obj := make(IRObject, len(m))
	for k, elem := range m {
		v, err := literalFromAny(elem)
		if err != nil {
			return nil, fmt.Errorf("ir: key %q: %w", k, err)
		}
		obj[k] = v
	}
	return obj, nil
}

// arrayFromAny converts a plain slice into an IRArray.
func arrayFromAny(s []any) (IRArray, error) {
	arr := make(IRArray, len(s))
	for i, elem := range s {
		v, err := literalFromAny(elem)
		if err != nil {
			return nil, fmt.Errorf("ir: index %d: %w", i, err)
		}
		arr[i] = v
	}
	return arr, nil
}

// literalFromAny converts one Go value from a debug tree into an IRValue,
// recursing into nested maps and slices. Used only by objectFromAny and
// arrayFromAny — the renderer's tree is already well-typed, so this never
// sees anything outside the handful of cases below.
func literalFromAny(v any) (IRValue, error) {
	switch val := v.(type) {
	case IRValue:
		return val, nil
	case nil:
		return nil, fmt.Errorf("null is forbidden")
	case string:
		return IRString(val), nil
	case bool:
		return IRBool(val), nil
	case int:
		return IRInt(val), nil
	case int64:
		return IRInt(val), nil
	case map[string]any:
		return objectFromAny(val)
	case []any:
		return arrayFromAny(val)
	case float32, float64:
		return nil, fmt.Errorf("floats are forbidden: %v", val)
	default:
		return nil, fmt.Errorf("unsupported type: %T", v)
	}
}

// u2028, u2029 are the LINE SEPARATOR and PARAGRAPH SEPARATOR code points.
// RFC 8785 requires them left as literal UTF-8 bytes; Go's json.Encoder
// escapes them unconditionally for JavaScript-embedding safety, a concern
// RFC 8785 canonical JSON doesn't share.
const (
	u2028 = " "
	u2029 = " "
)

// marshalCanonicalString encodes s as an RFC 8785 canonical JSON string:
// NFC-normalized, with HTML escaping disabled, and with u2028/u2029
// unescaped back to literal characters.
func marshalCanonicalString(s string) ([]byte, error) {
	normalized := norm.NFC.String(s)

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(normalized); err != nil {
		return nil, err
	}

	result := bytes.TrimSuffix(buf.Bytes(), []byte("\n"))
	return unescapeLineSeparators(result), nil
}

// unescapeLineSeparators turns the JSON escape sequences for U+2028/U+2029 back into
// literal UTF-8 bytes, without touching a literal backslash followed by the
// text "u2028"/"u2029" (i.e. \\u2028 in the encoded bytes, which is an
// escaped backslash, not an escape sequence).
func unescapeLineSeparators(data []byte) []byte {
	if !bytes.Contains(data, []byte(`\u202`)) {
		return data
	}

	var out []byte
	for i := 0; i < len(data); {
		if isLineSeparatorEscape(data, i) && precedingBackslashesEven(data, out, i) {
			if out == nil {
				out = append([]byte{}, data[:i]...)
			}
			if data[i+5] == '8' {
				out = append(out, u2028...)
			} else {
				out = append(out, u2029...)
			}
			i += 6
			continue
		}
		if out != nil {
			out = append(out, data[i])
		}
		i++
	}

	if out == nil {
		return data
	}
	return out
}

func isLineSeparatorEscape(data []byte, i int) bool {
	return i+6 <= len(data) &&
		data[i] == '\\' && data[i+1] == 'u' && data[i+2] == '2' && data[i+3] == '0' && data[i+4] == '2' &&
		(data[i+5] == '8' || data[i+5] == '9')
}

// precedingBackslashesEven reports whether an even number of backslashes
// (including zero) immediately precede position i — an even count means
// the \u202x at i starts a real escape rather than being escaped itself.
func precedingBackslashesEven(data, built []byte, i int) bool {
	count := 0
	if built != nil {
		for j := len(built) - 1; j >= 0 && built[j] == '\\'; j-- {
			count++
		}
	} else {
		for j := i - 1; j >= 0 && data[j] == '\\'; j-- {
			count++
		}
	}
	return count%2 == 0
}

// marshalCanonicalArray canonically encodes an array.
func marshalCanonicalArray(arr IRArray) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, elem := range arr {
		if i > 0 {
			buf.WriteByte(',')
		}
		elemBytes, err := marshalCanonicalValue(elem)
		if err != nil {
			return nil, fmt.Errorf("ir: array[%d]: %w", i, err)
		}
		buf.Write(elemBytes)
	}
	buf.WriteByte(']')
	return buf.Bytes(), nil
}

// marshalCanonicalObject canonically encodes an object, in RFC 8785 key
// order.
func marshalCanonicalObject(obj IRObject) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range obj.SortedKeys() {
		if i > 0 {
			buf.WriteByte(',')
		}
		keyBytes, err := marshalCanonicalString(k)
		if err != nil {
			return nil, fmt.Errorf("ir: key %q: %w", k, err)
		}
		buf.Write(keyBytes)
		buf.WriteByte(':')

		valBytes, err := marshalCanonicalValue(obj[k])
		if err != nil {
			return nil, fmt.Errorf("ir: value for key %q: %w", k, err)
		}
		buf.Write(valBytes)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
