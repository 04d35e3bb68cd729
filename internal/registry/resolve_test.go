package registry

import (
	"testing"

	"github.com/gsmecher/tuberd/internal/tuberr"
)

type dynamicThing struct{}

func (d *dynamicThing) TuberAttr(name string) (any, bool) {
	if name == "computed" {
		return 99, true
	}
	return nil, false
}

func TestGetAttrForReflectionUsesAttributerFirst(t *testing.T) {
	v, err := GetAttrForReflection(&dynamicThing{}, "computed")
	if err != nil {
		t.Fatalf("GetAttrForReflection: %v", err)
	}
	if v != 99 {
		t.Fatalf("computed = %v", v)
	}
}

func TestGetAttrForReflectionFallsThroughToFieldsAndMethods(t *testing.T) {
	b := &board{Gain: 7}
	v, err := GetAttrForReflection(b, "Gain")
	if err != nil {
		t.Fatalf("GetAttrForReflection: %v", err)
	}
	if v.(float64) != 7 {
		t.Fatalf("Gain = %v", v)
	}

	v, err = GetAttrForReflection(b, "Identify")
	if err != nil {
		t.Fatalf("GetAttrForReflection: %v", err)
	}
	if _, ok := v.(func() string); !ok {
		t.Fatalf("Identify resolved to %T, want bare func value", v)
	}
}

func TestGetAttrUnknownNameIsAttributeError(t *testing.T) {
	_, err := GetAttrForReflection(&board{}, "DoesNotExist")
	if err == nil {
		t.Fatalf("expected error")
	}
	if tuberr.KindOf(err) != tuberr.KindAttributeError {
		t.Fatalf("Kind = %v, want AttributeError", tuberr.KindOf(err))
	}
}

func TestResolveSliceIndex(t *testing.T) {
	r := New()
	r.Register("items", []any{"a", "b", "c"})

	v, err := r.ResolveName("items[1]")
	if err != nil {
		t.Fatalf("ResolveName: %v", err)
	}
	if v.(string) != "b" {
		t.Fatalf("items[1] = %v", v)
	}
}

func TestResolveSliceIndexOutOfRange(t *testing.T) {
	r := New()
	r.Register("items", []any{"a"})

	_, err := r.ResolveName("items[5]")
	if err == nil {
		t.Fatalf("expected out-of-range error")
	}
	if tuberr.KindOf(err) != tuberr.KindValueError {
		t.Fatalf("Kind = %v, want ValueError", tuberr.KindOf(err))
	}
}

func TestResolveMapIndex(t *testing.T) {
	r := New()
	r.Register("m", map[string]any{"x": 1})

	v, err := r.ResolveName(`m['x']`)
	if err != nil {
		t.Fatalf("ResolveName: %v", err)
	}
	if v.(int) != 1 {
		t.Fatalf("m['x'] = %v", v)
	}
}

func TestResolveMapIndexMissingKeyIsNotFound(t *testing.T) {
	r := New()
	r.Register("m", map[string]any{"x": 1})

	_, err := r.ResolveName(`m['missing']`)
	if err == nil {
		t.Fatalf("expected error")
	}
	if tuberr.KindOf(err) != tuberr.KindNotFound {
		t.Fatalf("Kind = %v, want NotFound", tuberr.KindOf(err))
	}
}

func TestResolveIndexOnNonSubscriptableIsTypeError(t *testing.T) {
	r := New()
	r.Register("b", &board{Gain: 1})

	_, err := r.ResolveName("b[0]")
	if err == nil {
		t.Fatalf("expected error")
	}
	if tuberr.KindOf(err) != tuberr.KindTypeError {
		t.Fatalf("Kind = %v, want TypeError", tuberr.KindOf(err))
	}
}

func TestResolveWrapsErrorWithObjectNameSuffix(t *testing.T) {
	r := New()
	r.Register("b", &board{Gain: 1})

	_, err := r.ResolveName("b.Missing")
	if err == nil {
		t.Fatalf("expected error")
	}
	const wantSuffix = "(Invalid object name 'b.Missing')"
	if got := err.Error(); len(got) < len(wantSuffix) || got[len(got)-len(wantSuffix):] != wantSuffix {
		t.Fatalf("error = %q, want suffix %q", got, wantSuffix)
	}
}
