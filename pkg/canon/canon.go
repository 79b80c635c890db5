// Package canon implements the deterministic serialization used to feed the
// hash chain: sorted object keys, no whitespace, RFC-3339 instants, and
// numeric fidelity preserved through json.Number rather than a lossy
// round-trip through float64.
package canon

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

// JSON produces a deterministic JSON encoding of v: object keys sorted
// lexicographically at every nesting level, no extraneous whitespace,
// time.Time values rendered as RFC-3339 strings. It rejects any value the
// encoder cannot represent (channels, functions, complex numbers, cyclic
// structures).
func JSON(v any) ([]byte, error) {
	normalized, err := normalize(v)
	if err != nil {
		return nil, fmt.Errorf("canon: %w", err)
	}
	var buf bytes.Buffer
	if err := encode(&buf, normalized); err != nil {
		return nil, fmt.Errorf("canon: %w", err)
	}
	return buf.Bytes(), nil
}

// normalize round-trips v through encoding/json with UseNumber so integers
// and floats keep their original textual form, then returns a tree of
// map[string]any / []any / json.Number / string / bool / nil that encode
// can walk deterministically.
func normalize(v any) (any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var out any
	if err := dec.Decode(&out); err != nil {
		return nil, err
	}
	return out, nil
}

func encode(buf *bytes.Buffer, v any) error {
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
		return encodeString(buf, val)
	case []any:
		return encodeArray(buf, val)
	case map[string]any:
		return encodeObject(buf, val)
	default:
		return fmt.Errorf("unsupported type %T in canonical payload", v)
	}
	return nil
}

func encodeString(buf *bytes.Buffer, s string) error {
	b, err := json.Marshal(s)
	if err != nil {
		return err
	}
	buf.Write(b)
	return nil
}

func encodeArray(buf *bytes.Buffer, arr []any) error {
	buf.WriteByte('[')
	for i, elem := range arr {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := encode(buf, elem); err != nil {
			return err
		}
	}
	buf.WriteByte(']')
	return nil
}

func encodeObject(buf *bytes.Buffer, obj map[string]any) error {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	buf.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := encodeString(buf, k); err != nil {
			return err
		}
		buf.WriteByte(':')
		if err := encode(buf, obj[k]); err != nil {
			return err
		}
	}
	buf.WriteByte('}')
	return nil
}
