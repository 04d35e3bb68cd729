package codec

import "testing"

func TestTypedArrayTagRoundTrip(t *testing.T) {
	cases := []struct {
		name      string
		kind      byte
		elemSize  int
		littleEnd bool
	}{
		{"uint8", 'u', 1, false},
		{"uint16-le", 'u', 2, true},
		{"uint32-be", 'u', 4, false},
		{"uint64-le", 'u', 8, true},
		{"int8", 'i', 1, false},
		{"int16-le", 'i', 2, true},
		{"int32-be", 'i', 4, false},
		{"int64-le", 'i', 8, true},
		{"float32-le", 'f', 4, true},
		{"float64-be", 'f', 8, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tag, err := typedArrayTag(tc.kind, tc.elemSize, tc.littleEnd)
			if err != nil {
				t.Fatalf("typedArrayTag: %v", err)
			}
			if tag < 64 || tag > 87 || tag == 76 {
				t.Fatalf("tag %d out of the valid 64-87 (excl 76) range", tag)
			}
			kind, elemSize, littleEnd, err := parseTypedArrayTag(tag)
			if err != nil {
				t.Fatalf("parseTypedArrayTag(%d): %v", tag, err)
			}
			if kind != tc.kind || elemSize != tc.elemSize {
				t.Fatalf("got kind=%c elemSize=%d, want kind=%c elemSize=%d", kind, elemSize, tc.kind, tc.elemSize)
			}
			// Single-byte elements have no encodable endianness; the tag
			// never sets the endianness bit for them.
			if tc.elemSize > 1 && littleEnd != tc.littleEnd {
				t.Fatalf("littleEnd = %v, want %v", littleEnd, tc.littleEnd)
			}
		})
	}
}

func TestParseTypedArrayTagRejectsOutOfRange(t *testing.T) {
	for _, tag := range []uint64{0, 63, 76, 88, 200} {
		if _, _, _, err := parseTypedArrayTag(tag); err == nil {
			t.Fatalf("tag %d: expected error, got none", tag)
		}
	}
}

func TestNDArrayValidate(t *testing.T) {
	ok := &NDArray{Kind: 'f', ElemSize: 8, Data: make([]byte, 16), Shape: []int{2}}
	if err := ok.Validate(); err != nil {
		t.Fatalf("expected valid, got %v", err)
	}

	badLen := &NDArray{Kind: 'f', ElemSize: 8, Data: make([]byte, 7)}
	if err := badLen.Validate(); err == nil {
		t.Fatalf("expected error for non-multiple data length")
	}

	badShape := &NDArray{Kind: 'f', ElemSize: 8, Data: make([]byte, 16), Shape: []int{3}}
	if err := badShape.Validate(); err == nil {
		t.Fatalf("expected error for shape/element-count mismatch")
	}
}

func TestNewFloat64NDArrayRoundTrip(t *testing.T) {
	values := []float64{-1.5, 0, 2.25, 100}
	arr := NewFloat64NDArray([]int{4}, values)
	if err := arr.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	got, err := arr.Float64s()
	if err != nil {
		t.Fatalf("Float64s: %v", err)
	}
	for i, v := range values {
		if got[i] != v {
			t.Fatalf("value %d = %v, want %v", i, got[i], v)
		}
	}
}

func TestNDArrayFloat64sRejectsNonFloatKind(t *testing.T) {
	arr := &NDArray{Kind: 'u', ElemSize: 4, Data: make([]byte, 4)}
	if _, err := arr.Float64s(); err == nil {
		t.Fatalf("expected error decoding non-float kind as float64")
	}
}
