package codec

import (
	"encoding/binary"
	"fmt"
	"math"
)

// NDArray is tuber's in-memory representation of the CBOR typed-array /
// multi-dimensional-array extensions of spec.md §4.1, grounded on
// original_source/py/tuber/codecs.py's numpy-backed cbor_encode_ndarray /
// cbor_tag_decode. Go has no numpy equivalent in the retrieval pack, so
// NDArray carries exactly what those functions need: a flat byte buffer,
// its element kind/size/endianness, and the shape/ordering used to
// reconstruct it.
type NDArray struct {
	Shape     []int  // element extents, outer-to-inner
	Kind      byte   // 'u' unsigned int, 'i' signed int, 'f' float
	ElemSize  int    // bytes per element: 1,2,4,8 for integers; 2,4,8,16 for floats
	LittleEnd bool   // true if elements are little-endian
	RowMajor  bool   // true = tag 40 (C order), false = tag 1040 (Fortran order)
	Data      []byte // flat element data, length a multiple of ElemSize
}

// typedArrayTag returns the CBOR major-6 tag number for the array's element
// kind/size/endianness, per spec.md §4.1's bit layout:
// low 2 bits = log2(element size), bit 2 = endianness, bit 3 = signed,
// bit 4 = float.
func typedArrayTag(kind byte, elemSize int, littleEnd bool) (uint64, error) {
	ll, err := log2ElemSize(kind, elemSize)
	if err != nil {
		return 0, err
	}
	var tag uint64 = 64 + uint64(ll)
	switch kind {
	case 'u':
		// base, no extra bits
	case 'i':
		tag += 8
	case 'f':
		tag += 16
	default:
		return 0, fmt.Errorf("codec: unsupported ndarray element kind %q", kind)
	}
	if elemSize > 1 && littleEnd {
		tag += 4
	}
	return tag, nil
}

// log2ElemSize returns the tag's low 2 bits for elemSize, respecting that
// floats are "one power of two larger" (a 2-byte float has ll=0, matching
// the Python original's comment in cbor_tag_decode).
func log2ElemSize(kind byte, elemSize int) (int, error) {
	size := elemSize
	if kind == 'f' {
		size /= 2
	}
	switch size {
	case 1:
		return 0, nil
	case 2:
		return 1, nil
	case 4:
		return 2, nil
	case 8:
		return 3, nil
	default:
		return 0, fmt.Errorf("codec: unsupported ndarray element size %d for kind %q", elemSize, kind)
	}
}

// parseTypedArrayTag decodes a tag number in [64,87] (excluding 76) into its
// element kind/size/endianness, the inverse of typedArrayTag.
func parseTypedArrayTag(tag uint64) (kind byte, elemSize int, littleEnd bool, err error) {
	if tag < 64 || tag > 87 || tag == 76 {
		return 0, 0, false, fmt.Errorf("codec: tag %d is not a typed-array tag", tag)
	}
	isFloat := tag&0x10 != 0
	isSigned := tag&0x8 != 0
	isLE := tag&0x4 != 0
	ll := tag & 0x3
	size := 1 << ll
	if isFloat {
		size <<= 1
	}
	switch {
	case isFloat:
		kind = 'f'
	case isSigned:
		kind = 'i'
	default:
		kind = 'u'
	}
	return kind, size, isLE, nil
}

// Validate checks internal consistency: Data length must be a multiple of
// ElemSize, and the element count must match Shape (if Shape is set).
func (a *NDArray) Validate() error {
	if a.ElemSize <= 0 {
		return fmt.Errorf("codec: ndarray element size must be positive")
	}
	if len(a.Data)%a.ElemSize != 0 {
		return fmt.Errorf("codec: ndarray data length (%d) is not a multiple of element size (%d)", len(a.Data), a.ElemSize)
	}
	n := len(a.Data) / a.ElemSize
	if len(a.Shape) > 0 {
		want := 1
		for _, d := range a.Shape {
			want *= d
		}
		if want != n {
			return fmt.Errorf("codec: ndarray shape %v does not match element count %d", a.Shape, n)
		}
	}
	return nil
}

// byteOrder returns the binary.ByteOrder implied by LittleEnd.
func (a *NDArray) byteOrder() binary.ByteOrder {
	if a.LittleEnd {
		return binary.LittleEndian
	}
	return binary.BigEndian
}

// Float64s decodes the flat element buffer as float64 values (promoting
// float32 if ElemSize==4), in element order. Used by tests exercising the
// CBOR round-trip scenario of spec.md §8.
func (a *NDArray) Float64s() ([]float64, error) {
	if a.Kind != 'f' {
		return nil, fmt.Errorf("codec: ndarray kind %q is not float", a.Kind)
	}
	bo := a.byteOrder()
	n := len(a.Data) / a.ElemSize
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		chunk := a.Data[i*a.ElemSize : (i+1)*a.ElemSize]
		switch a.ElemSize {
		case 4:
			out[i] = float64(math.Float32frombits(bo.Uint32(chunk)))
		case 8:
			out[i] = math.Float64frombits(bo.Uint64(chunk))
		default:
			return nil, fmt.Errorf("codec: unsupported float element size %d", a.ElemSize)
		}
	}
	return out, nil
}

// NewFloat64NDArray builds a row-major NDArray (tag 40 on encode) from flat
// float64 values and a shape.
func NewFloat64NDArray(shape []int, values []float64) *NDArray {
	buf := make([]byte, 8*len(values))
	for i, v := range values {
		binary.LittleEndian.PutUint64(buf[i*8:], math.Float64bits(v))
	}
	return &NDArray{
		Shape:     append([]int(nil), shape...),
		Kind:      'f',
		ElemSize:  8,
		LittleEnd: true,
		RowMajor:  true,
		Data:      buf,
	}
}
