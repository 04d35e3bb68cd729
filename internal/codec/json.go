package codec

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
)

// jsonMediaType is the mandatory media type of spec.md §4.1.
const jsonMediaType = "application/json"

// JSON is the mandatory codec. It wraps/unwraps byte sequences as
// {"bytes":[b0,b1,...]} (optionally with "subtype") so that binary data
// round-trips through a text format, and decodes objects into *OrderedMap
// so key order survives a decode/re-encode cycle.
type JSON struct{}

// NewJSON returns the JSON codec.
func NewJSON() *JSON { return &JSON{} }

func (JSON) MediaType() string { return jsonMediaType }

func (JSON) Encode(v any) ([]byte, error) {
	return jsonMarshalValue(v)
}

func (JSON) Decode(data []byte) (any, error) {
	return decodeJSONValue(data)
}

// jsonMarshalValue recursively rewrites v so that any []byte (at any depth)
// is replaced by the {"bytes":[...]} wrapper of spec.md §4.1, then defers to
// encoding/json for the rest.
func jsonMarshalValue(v any) ([]byte, error) {
	return json.Marshal(prepareForJSON(v))
}

// Bytes is a byte sequence with an optional Subtype; a non-empty Subtype is
// carried alongside the wrapped byte sequence and reproduced on encode. Used by callers that need to tag binary payloads
// (e.g. "ndarray", "image/png") the way the Python original's wrap_bytes_for_json
// companion callers do.
type Bytes struct {
	Data    []byte
	Subtype string
}

func prepareForJSON(v any) any {
	switch val := v.(type) {
	case nil:
		return nil
	case []byte:
		return wrapBytes(val, "")
	case Bytes:
		return wrapBytes(val.Data, val.Subtype)
	case *Bytes:
		if val == nil {
			return nil
		}
		return wrapBytes(val.Data, val.Subtype)
	case json.Marshaler:
		// *OrderedMap and similar types know how to marshal themselves
		// (OrderedMap.MarshalJSON calls back into jsonMarshalValue per
		// value, so nested bytes are still wrapped).
		return val
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, e := range val {
			out[k] = prepareForJSON(e)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, e := range val {
			out[i] = prepareForJSON(e)
		}
		return out
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.IsNil() {
			return nil
		}
		out := make([]any, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			out[i] = prepareForJSON(rv.Index(i).Interface())
		}
		return out
	case reflect.Map:
		out := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			out[fmt.Sprint(iter.Key().Interface())] = prepareForJSON(iter.Value().Interface())
		}
		return out
	}

	return v
}

func wrapBytes(b []byte, subtype string) map[string]any {
	nums := make([]int, len(b))
	for i, c := range b {
		nums[i] = int(c)
	}
	out := map[string]any{"bytes": nums}
	if subtype != "" {
		out["subtype"] = subtype
	}
	return out
}

// decodeJSONValue decodes raw JSON bytes into the tuber generic value model:
// *OrderedMap for objects (promoted to []byte when the object is exactly a
// bytes-wrapper), []any for arrays, json.Number/string/bool/nil for scalars.
// Objects are built key-by-key off the decoder's token stream (rather than
// decoding into map[string]any first) so insertion order survives, the same
// requirement OrderedMap.UnmarshalJSON exists to satisfy.
func decodeJSONValue(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	v, err := decodeToken(dec)
	if err != nil {
		return nil, err
	}
	return v, nil
}

func decodeToken(dec *json.Decoder) (any, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}

	delim, ok := tok.(json.Delim)
	if !ok {
		// string, json.Number, bool, or nil
		return tok, nil
	}

	switch delim {
	case '{':
		om := NewOrderedMap()
		for dec.More() {
			keyTok, err := dec.Token()
			if err != nil {
				return nil, err
			}
			key, ok := keyTok.(string)
			if !ok {
				return nil, fmt.Errorf("object key is not a string")
			}
			val, err := decodeToken(dec)
			if err != nil {
				return nil, err
			}
			om.Set(key, val)
		}
		if _, err := dec.Token(); err != nil { // consume '}'
			return nil, err
		}
		return maybeBytesWrapper(om)
	case '[':
		out := []any{}
		for dec.More() {
			val, err := decodeToken(dec)
			if err != nil {
				return nil, err
			}
			out = append(out, val)
		}
		if _, err := dec.Token(); err != nil { // consume ']'
			return nil, err
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unexpected JSON delimiter %q", delim)
	}
}

// maybeBytesWrapper implements the byte-sequence/mapping disambiguation rule
// of spec.md §9: an object decodes to a byte sequence only if its key set is
// exactly {bytes} or {bytes, subtype}; any additional or missing key makes
// it an ordinary mapping.
func maybeBytesWrapper(om *OrderedMap) (any, error) {
	keys := om.Keys()
	isWrapper := false
	switch len(keys) {
	case 1:
		isWrapper = om.Has("bytes")
	case 2:
		isWrapper = om.Has("bytes") && om.Has("subtype")
	}
	if !isWrapper {
		return om, nil
	}

	raw, _ := om.Get("bytes")
	arr, ok := raw.([]any)
	if !ok {
		return om, nil
	}
	out := make([]byte, len(arr))
	for i, e := range arr {
		n, ok := e.(json.Number)
		if !ok {
			return nil, fmt.Errorf("invalid byte value %v in bytes wrapper", e)
		}
		iv, err := n.Int64()
		if err != nil || iv < 0 || iv > 255 {
			return nil, fmt.Errorf("invalid byte value %v in bytes wrapper", e)
		}
		out[i] = byte(iv)
	}
	return out, nil
}
