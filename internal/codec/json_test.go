package codec

import (
	"encoding/json"
	"reflect"
	"testing"
)

func TestJSONRoundTripScalars(t *testing.T) {
	c := NewJSON()
	cases := []any{"hello", true, nil, 42, 3.5}
	for _, v := range cases {
		data, err := c.Encode(v)
		if err != nil {
			t.Fatalf("Encode(%v): %v", v, err)
		}
		_, err = c.Decode(data)
		if err != nil {
			t.Fatalf("Decode(%s): %v", data, err)
		}
	}
}

func TestJSONBytesWrapping(t *testing.T) {
	c := NewJSON()
	data, err := c.Encode([]byte{0x01, 0x02, 0xff})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	decoded, err := c.Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	got, ok := decoded.([]byte)
	if !ok {
		t.Fatalf("expected []byte, got %T", decoded)
	}
	want := []byte{0x01, 0x02, 0xff}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestJSONOrderPreservedThroughDecode(t *testing.T) {
	c := NewJSON()
	// Keys deliberately out of alphabetical order so a naive map[string]any
	// decode (which Go randomizes on iteration) would be caught by a
	// re-encode mismatch.
	input := []byte(`{"zeta":1,"alpha":2,"mid":3}`)

	decoded, err := c.Decode(input)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	om, ok := decoded.(*OrderedMap)
	if !ok {
		t.Fatalf("expected *OrderedMap, got %T", decoded)
	}
	want := []string{"zeta", "alpha", "mid"}
	if !reflect.DeepEqual(om.Keys(), want) {
		t.Fatalf("key order = %v, want %v", om.Keys(), want)
	}

	reencoded, err := c.Encode(om)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if string(reencoded) != `{"zeta":1,"alpha":2,"mid":3}` {
		t.Fatalf("re-encode = %s, want original order preserved", reencoded)
	}
}

func TestJSONAmbiguousBytesWrapperKeys(t *testing.T) {
	c := NewJSON()

	// Exactly {bytes} decodes to a byte sequence.
	decoded, err := c.Decode([]byte(`{"bytes":[1,2,3]}`))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if _, ok := decoded.([]byte); !ok {
		t.Fatalf("expected []byte for exact {bytes} object, got %T", decoded)
	}

	// An extra key disqualifies it from being a bytes wrapper.
	decoded, err = c.Decode([]byte(`{"bytes":[1,2,3],"extra":true}`))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if _, ok := decoded.(*OrderedMap); !ok {
		t.Fatalf("expected *OrderedMap for {bytes,extra} object, got %T", decoded)
	}
}

func TestJSONNestedArraysPreserveOrder(t *testing.T) {
	c := NewJSON()
	decoded, err := c.Decode([]byte(`[{"b":1,"a":2},[1,2,3]]`))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	arr, ok := decoded.([]any)
	if !ok || len(arr) != 2 {
		t.Fatalf("expected a 2-element array, got %#v", decoded)
	}
	om, ok := arr[0].(*OrderedMap)
	if !ok {
		t.Fatalf("expected *OrderedMap at index 0, got %T", arr[0])
	}
	if !reflect.DeepEqual(om.Keys(), []string{"b", "a"}) {
		t.Fatalf("key order = %v", om.Keys())
	}
}

func TestOrderedMapJSONRoundTrip(t *testing.T) {
	om := NewOrderedMap()
	om.Set("one", 1)
	om.Set("two", "2")
	om.Set("three", nil)

	data, err := json.Marshal(om)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var out OrderedMap
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if !reflect.DeepEqual(out.Keys(), om.Keys()) {
		t.Fatalf("keys = %v, want %v", out.Keys(), om.Keys())
	}
}
