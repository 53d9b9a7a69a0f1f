package ir

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// MarshalCanonical produces RFC 8785 canonical JSON. It is the only
// serialization that may feed a content hash.
//
// Differences from json.Marshal:
//  1. Object keys sorted by UTF-16 code units
//  2. No HTML escaping (< > & stay literal)
//  3. Strings are NFC normalized
//  4. Floats and null are rejected
//  5. Invalid UTF-8, and object keys that collide after NFC, are rejected
func MarshalCanonical(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := writeCanonical(&buf, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeCanonical(buf *bytes.Buffer, v any) error {
	switch val := v.(type) {
	case String:
		return writeCanonicalString(buf, string(val))
	case string:
		return writeCanonicalString(buf, val)
	case Int:
		buf.WriteString(strconv.FormatInt(int64(val), 10))
	case int64:
		buf.WriteString(strconv.FormatInt(val, 10))
	case int:
		buf.WriteString(strconv.Itoa(val))
	case Bool:
		buf.WriteString(strconv.FormatBool(bool(val)))
	case bool:
		buf.WriteString(strconv.FormatBool(val))
	case Array:
		buf.WriteByte('[')
		for i, elem := range val {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeCanonical(buf, elem); err != nil {
				return fmt.Errorf("array[%d]: %w", i, err)
			}
		}
		buf.WriteByte(']')
	case Object:
		keys, err := canonicalKeys(val)
		if err != nil {
			return err
		}
		buf.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeCanonicalString(buf, k.nfc); err != nil {
				return fmt.Errorf("key %q: %w", k.raw, err)
			}
			buf.WriteByte(':')
			if err := writeCanonical(buf, val[k.raw]); err != nil {
				return fmt.Errorf("value for key %q: %w", k.raw, err)
			}
		}
		buf.WriteByte('}')
	case []any, map[string]any:
		converted, err := fromAny(val)
		if err != nil {
			return err
		}
		return writeCanonical(buf, converted)
	case nil:
		return fmt.Errorf("null is forbidden in canonical JSON")
	case float32, float64:
		return fmt.Errorf("floats are forbidden in canonical JSON: %v", val)
	default:
		return fmt.Errorf("unsupported type for canonical JSON: %T", v)
	}
	return nil
}

type canonicalKey struct {
	raw string
	nfc string
}

// canonicalKeys returns obj's keys NFC-normalized and sorted by UTF-16 code
// units of the normalized form. Two keys that normalize to the same string
// would emit a duplicate member, so they are an error.
func canonicalKeys(obj Object) ([]canonicalKey, error) {
	keys := make([]canonicalKey, 0, len(obj))
	seen := make(map[string]string, len(obj))
	for raw := range obj {
		if !utf8.ValidString(raw) {
			return nil, fmt.Errorf("key %q is not valid UTF-8", raw)
		}
		nfc := norm.NFC.String(raw)
		if prev, ok := seen[nfc]; ok {
			return nil, fmt.Errorf("keys %q and %q are equal after NFC normalization", prev, raw)
		}
		seen[nfc] = raw
		keys = append(keys, canonicalKey{raw: raw, nfc: nfc})
	}
	slices.SortFunc(keys, func(a, b canonicalKey) int { return compareUTF16(a.nfc, b.nfc) })
	return keys, nil
}

// writeCanonicalString writes an NFC-normalized JSON string. Invalid UTF-8
// is an error; encoding/json would silently substitute U+FFFD.
// Only control characters, backslash and quote are escaped; U+2028 and
// U+2029 stay literal even though encoding/json escapes them.
func writeCanonicalString(buf *bytes.Buffer, s string) error {
	if !utf8.ValidString(s) {
		return fmt.Errorf("string %q is not valid UTF-8", s)
	}
	var tmp bytes.Buffer
	enc := json.NewEncoder(&tmp)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(norm.NFC.String(s)); err != nil {
		return err
	}
	out := bytes.TrimSuffix(tmp.Bytes(), []byte{'\n'})
	buf.Write(unescapeLineSeparators(out))
	return nil
}

// unescapeLineSeparators turns \u2028 and \u2029 escapes back into the
// literal characters. Escape pairs are consumed two bytes at a time so an
// escaped backslash followed by the text "u2028" is left alone.
func unescapeLineSeparators(data []byte) []byte {
	if !bytes.Contains(data, []byte(`\u202`)) {
		return data
	}
	out := make([]byte, 0, len(data))
	for i := 0; i < len(data); i++ {
		if data[i] != '\\' || i+1 >= len(data) {
			out = append(out, data[i])
			continue
		}
		if data[i+1] == 'u' && i+6 <= len(data) {
			switch string(data[i+2 : i+6]) {
			case "2028":
				out = append(out, "\u2028"...)
				i += 5
				continue
			case "2029":
				out = append(out, "\u2029"...)
				i += 5
				continue
			}
		}
		out = append(out, data[i], data[i+1])
		i++
	}
	return out
}
