package codec

import (
	"bytes"
	"encoding/json"

	"github.com/fxamacker/cbor/v2"
)

// OrderedMap is a string-keyed map that preserves insertion/decode order,
// standing in for the dotted-accessor record type of spec.md §4.1 (Python
// dicts preserve key order; Go's map[string]any does not). Descriptor and
// envelope values decoded from the wire use OrderedMap instead of
// map[string]any. The JSON codec fills it in wire order, so re-encoding
// reproduces the original key order; the CBOR codec fills it from a Go map,
// so a CBOR-decoded OrderedMap does not keep the wire key order.
type OrderedMap struct {
	keys   []string
	values map[string]any
}

// NewOrderedMap returns an empty OrderedMap.
func NewOrderedMap() *OrderedMap {
	return &OrderedMap{values: make(map[string]any)}
}

// Set inserts or updates key, appending it to the key order if new.
func (m *OrderedMap) Set(key string, value any) {
	if _, exists := m.values[key]; !exists {
		m.keys = append(m.keys, key)
	}
	m.values[key] = value
}

// Get returns the value stored for key and whether it was present.
func (m *OrderedMap) Get(key string) (any, bool) {
	v, ok := m.values[key]
	return v, ok
}

// Has reports whether key is present.
func (m *OrderedMap) Has(key string) bool {
	_, ok := m.values[key]
	return ok
}

// Keys returns the keys in their original order.
func (m *OrderedMap) Keys() []string {
	out := make([]string, len(m.keys))
	copy(out, m.keys)
	return out
}

// Len returns the number of entries.
func (m *OrderedMap) Len() int {
	return len(m.keys)
}

// Remove deletes key, if present.
func (m *OrderedMap) Remove(key string) {
	if _, ok := m.values[key]; !ok {
		return
	}
	delete(m.values, key)
	for i, k := range m.keys {
		if k == key {
			m.keys = append(m.keys[:i], m.keys[i+1:]...)
			break
		}
	}
}

// RemoveAll deletes each of keys, if present.
func (m *OrderedMap) RemoveAll(keys ...string) {
	for _, k := range keys {
		m.Remove(k)
	}
}

// MarshalJSON emits the map with keys in their original order.
func (m *OrderedMap) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range m.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		vb, err := jsonMarshalValue(m.values[k])
		if err != nil {
			return nil, err
		}
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object into the map, preserving key order via
// json.Decoder's token stream (json.Unmarshal into map[string]any would
// discard order).
func (m *OrderedMap) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	delim, ok := tok.(json.Delim)
	if !ok || delim != '{' {
		return &json.UnmarshalTypeError{Value: "non-object", Type: nil}
	}

	m.keys = nil
	m.values = make(map[string]any)

	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return &json.UnmarshalTypeError{Value: "non-string key"}
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return err
		}
		val, err := decodeJSONValue(raw)
		if err != nil {
			return err
		}
		m.Set(key, val)
	}
	// consume closing '}'
	if _, err := dec.Token(); err != nil {
		return err
	}
	return nil
}

// MarshalCBOR emits the map as a definite-length CBOR map with keys in
// their original order. The library's own map encoding (via a plain Go
// map) does not preserve insertion order, so the header and entries are
// assembled by hand instead of delegating to cbor.Marshal on a map value.
func (m *OrderedMap) MarshalCBOR() ([]byte, error) {
	var buf bytes.Buffer
	buf.Write(cborMapHeader(uint64(m.Len())))
	for _, k := range m.keys {
		kb, err := cbor.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		prepared, err := prepareForCBOR(m.values[k])
		if err != nil {
			return nil, err
		}
		vb, err := cbor.Marshal(prepared)
		if err != nil {
			return nil, err
		}
		buf.Write(vb)
	}
	return buf.Bytes(), nil
}

// cborMapHeader returns the initial bytes of a definite-length major-type-5
// (map) item with n key/value pairs, per the CBOR argument-encoding rules.
func cborMapHeader(n uint64) []byte {
	const major = 5 << 5
	switch {
	case n < 24:
		return []byte{byte(major | int(n))}
	case n < 1<<8:
		return []byte{major | 24, byte(n)}
	case n < 1<<16:
		return []byte{major | 25, byte(n >> 8), byte(n)}
	case n < 1<<32:
		return []byte{major | 26, byte(n >> 24), byte(n >> 16), byte(n >> 8), byte(n)}
	default:
		b := make([]byte, 9)
		b[0] = major | 27
		for i := 0; i < 8; i++ {
			b[8-i] = byte(n >> (8 * i))
		}
		return b
	}
}
