package ledger

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"
)

// CanonicalJSON encodes v so that equal values always produce equal bytes:
// object keys are sorted, arrays keep their order and scalars use standard
// JSON encoding. v is normalized first, so structs and typed maps encode the
// same way as their decoded map[string]any form.
func CanonicalJSON(v any) ([]byte, error) {
	norm, err := normalize(v)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := writeCanonical(&buf, norm); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeCanonical(buf *bytes.Buffer, v any) error {
	switch val := v.(type) {
	case nil:
		buf.WriteString("null")
	case bool:
		if val {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
	case json.Number:
		buf.WriteString(val.String())
	case string:
		return writeScalar(buf, val)
	case []any:
		buf.WriteByte('[')
		for i, item := range val {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeCanonical(buf, item); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		buf.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeScalar(buf, k); err != nil {
				return err
			}
			buf.WriteByte(':')
			if err := writeCanonical(buf, val[k]); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	default:
		// normalize only yields the cases above
		return fmt.Errorf("%w: unexpected %T in normalized value", ErrInvalidInput, v)
	}
	return nil
}

// writeScalar JSON-encodes a string without HTML escaping. U+2028 and
// U+2029 are written raw, as JSON.stringify does; encoding/json would escape
// them.
func writeScalar(buf *bytes.Buffer, s string) error {
	buf.WriteByte('"')
	for {
		i := strings.IndexAny(s, "\u2028\u2029")
		if i < 0 {
			break
		}
		if err := writeQuotedBody(buf, s[:i]); err != nil {
			return err
		}
		_, size := utf8.DecodeRuneInString(s[i:])
		buf.WriteString(s[i : i+size])
		s = s[i+size:]
	}
	if err := writeQuotedBody(buf, s); err != nil {
		return err
	}
	buf.WriteByte('"')
	return nil
}

// writeQuotedBody writes the JSON encoding of s without the surrounding
// quotes.
func writeQuotedBody(buf *bytes.Buffer, s string) error {
	if s == "" {
		return nil
	}
	var tmp bytes.Buffer
	enc := json.NewEncoder(&tmp)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return err
	}
	quoted := bytes.TrimRight(tmp.Bytes(), "\n")
	buf.Write(quoted[1 : len(quoted)-1])
	return nil
}

// normalize deep-copies v into plain JSON values: map[string]any, []any,
// json.Number, string, bool and nil. Number literals are preserved, which
// keeps hashes stable across a save/load cycle.
func normalize(v any) (any, error) {
	switch v.(type) {
	case nil, bool, string, json.Number:
		return v, nil
	}

	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("%w: payload is not JSON-encodable: %v", ErrInvalidInput, err)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var out any
	if err := dec.Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return out, nil
}

// clonePayload returns an independent copy of an already-normalized value.
func clonePayload(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = clonePayload(item)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = clonePayload(item)
		}
		return out
	default:
		return val
	}
}
