package codec

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"github.com/gsmecher/tuberd/internal/tuberr"
)

// cborMediaType is the optional binary codec of spec.md §4.1.
const cborMediaType = "application/cbor"

// CBOR is the optional binary codec, built on github.com/fxamacker/cbor/v2
// the way other_examples' indexer uses it for its own tagged payloads. It
// shares the JSON codec's byte-sequence/NDArray value model, substituting
// native CBOR byte strings and the tag 40/1040/64-87 extensions of
// spec.md §4.1 for JSON's {"bytes":[...]} wrapper.
type CBOR struct {
	decMode cbor.DecMode
}

// NewCBOR returns the CBOR codec, configured (like the indexer's record
// decoder) to accept byte-string map keys so a permissive peer's encoding
// choices don't fail decode, and to decode every CBOR integer as int64 so
// integers round-trip with the same Go type whatever their sign.
func NewCBOR() (*CBOR, error) {
	decMode, err := cbor.DecOptions{
		MapKeyByteString: cbor.MapKeyByteStringAllowed,
		IntDec:           cbor.IntDecConvertSigned,
	}.DecMode()
	if err != nil {
		return nil, err
	}
	return &CBOR{decMode: decMode}, nil
}

func (CBOR) MediaType() string { return cborMediaType }

func (c *CBOR) Encode(v any) ([]byte, error) {
	prepared, err := prepareForCBOR(v)
	if err != nil {
		return nil, err
	}
	return cbor.Marshal(prepared)
}

func (c *CBOR) Decode(data []byte) (any, error) {
	var raw any
	if err := c.decMode.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	return decodeCBORValue(raw)
}

// prepareForCBOR mirrors prepareForJSON but emits native CBOR byte strings
// and tag 40/1040/64-87 array wrappers instead of JSON's map wrapper, since
// CBOR has first-class binary support. An *NDArray with an unsupported
// element kind or a shape that does not match its data length fails the
// encode instead of
// silently producing a placeholder tag (spec.md §4.1).
func prepareForCBOR(v any) (any, error) {
	switch val := v.(type) {
	case nil:
		return nil, nil
	case []byte:
		return val, nil
	case Bytes:
		return val.Data, nil
	case *Bytes:
		if val == nil {
			return nil, nil
		}
		return val.Data, nil
	case *NDArray:
		if val == nil {
			return nil, nil
		}
		return ndArrayToCBOR(val)
	case *OrderedMap:
		return val, nil
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, e := range val {
			p, err := prepareForCBOR(e)
			if err != nil {
				return nil, err
			}
			out[k] = p
		}
		return out, nil
	case []any:
		out := make([]any, len(val))
		for i, e := range val {
			p, err := prepareForCBOR(e)
			if err != nil {
				return nil, err
			}
			out[i] = p
		}
		return out, nil
	}
	return v, nil
}

// ndArrayToCBOR builds the tag 40 (row-major) / tag 1040 (column-major)
// wrapper of spec.md §4.1: a 2-element array [shape, typed-array], where
// the typed array itself is tag 64-87 wrapping a raw byte string. Matches
// original_source/py/tuber/codecs.py's cbor_encode_ndarray.
func ndArrayToCBOR(a *NDArray) (cbor.Tag, error) {
	if err := a.Validate(); err != nil {
		return cbor.Tag{}, tuberr.New(tuberr.KindCodecEncode, "%v", err)
	}
	innerTag, err := typedArrayTag(a.Kind, a.ElemSize, a.LittleEnd)
	if err != nil {
		return cbor.Tag{}, tuberr.New(tuberr.KindCodecEncode, "%v", err)
	}
	shape := make([]int, len(a.Shape))
	copy(shape, a.Shape)
	if len(shape) == 0 {
		shape = []int{len(a.Data) / a.ElemSize}
	}
	mdTag := uint64(40)
	if !a.RowMajor {
		mdTag = 1040
	}
	return cbor.Tag{
		Number: mdTag,
		Content: []any{
			shape,
			cbor.Tag{Number: innerTag, Content: a.Data},
		},
	}, nil
}

// decodeCBORValue walks a value decoded by cbor.Unmarshal(&raw), promoting
// recognized tags (40/1040 multi-dimensional wrappers, bare 64-87 typed
// arrays) to *NDArray and everything else to the same generic value model
// JSON decode produces (*OrderedMap, []any, scalars).
func decodeCBORValue(raw any) (any, error) {
	switch v := raw.(type) {
	case cbor.Tag:
		return decodeCBORTag(v)
	case map[any]any:
		om := NewOrderedMap()
		for k, val := range v {
			d, err := decodeCBORValue(val)
			if err != nil {
				return nil, err
			}
			om.Set(fmt.Sprint(k), d)
		}
		return om, nil
	case []any:
		out := make([]any, len(v))
		for i, e := range v {
			d, err := decodeCBORValue(e)
			if err != nil {
				return nil, err
			}
			out[i] = d
		}
		return out, nil
	default:
		return v, nil
	}
}

func decodeCBORTag(t cbor.Tag) (any, error) {
	switch t.Number {
	case 40, 1040:
		pair, ok := t.Content.([]any)
		if !ok || len(pair) != 2 {
			return nil, fmt.Errorf("codec: tag %d content is not a 2-element array", t.Number)
		}
		shapeRaw, ok := pair[0].([]any)
		if !ok {
			return nil, fmt.Errorf("codec: tag %d shape is not an array", t.Number)
		}
		shape := make([]int, len(shapeRaw))
		for i, s := range shapeRaw {
			n, err := toInt(s)
			if err != nil {
				return nil, fmt.Errorf("codec: tag %d shape element: %w", t.Number, err)
			}
			shape[i] = n
		}
		innerTag, ok := pair[1].(cbor.Tag)
		if !ok {
			return nil, fmt.Errorf("codec: tag %d payload is not a typed array", t.Number)
		}
		arr, err := decodeTypedArrayTag(innerTag)
		if err != nil {
			return nil, err
		}
		arr.Shape = shape
		arr.RowMajor = t.Number == 40
		if err := arr.Validate(); err != nil {
			return nil, err
		}
		return arr, nil
	default:
		if t.Number >= 64 && t.Number <= 87 && t.Number != 76 {
			return decodeTypedArrayTag(t)
		}
		// Unrecognized tag: surface the bare content, matching a
		// permissive reader that ignores tags it doesn't understand.
		return decodeCBORValue(t.Content)
	}
}

func decodeTypedArrayTag(t cbor.Tag) (*NDArray, error) {
	data, ok := t.Content.([]byte)
	if !ok {
		return nil, fmt.Errorf("codec: typed-array tag %d content is not a byte string", t.Number)
	}
	kind, elemSize, littleEnd, err := parseTypedArrayTag(t.Number)
	if err != nil {
		return nil, err
	}
	return &NDArray{
		Kind:      kind,
		ElemSize:  elemSize,
		LittleEnd: littleEnd,
		RowMajor:  true,
		Data:      data,
		Shape:     []int{len(data) / elemSize},
	}, nil
}

func toInt(v any) (int, error) {
	switch n := v.(type) {
	case int64:
		return int(n), nil
	case uint64:
		return int(n), nil
	case int:
		return n, nil
	default:
		return 0, fmt.Errorf("not an integer: %T", v)
	}
}
