package registry

import (
	"reflect"
	"strconv"

	"github.com/gsmecher/tuberd/internal/tuberr"
)

// Attributer lets a host object expose attributes reflect can't see
// directly (computed properties, dynamic members) — the Go analogue of
// Python's __getattr__/property descriptors.
type Attributer interface {
	TuberAttr(name string) (any, bool)
}

// GetAttrForReflection exposes getAttr to internal/reflector, which needs
// the same attribute-resolution strategy dispatch uses, so descriptors
// never advertise an attribute invocation can't actually reach.
func GetAttrForReflection(obj any, name string) (any, error) {
	return getAttr(obj, name)
}

// getAttr resolves one dotted-path attribute segment against cur, trying,
// in order: Attributer, an exported method, an exported struct field. This
// covers what getattr(obj, name) covers in resolve_object for the subset of
// Go's static type system that's reachable by name.
func getAttr(cur any, name string) (any, error) {
	if a, ok := cur.(Attributer); ok {
		if v, found := a.TuberAttr(name); found {
			return v, nil
		}
	}

	rv := reflect.ValueOf(cur)
	if m := rv.MethodByName(name); m.IsValid() {
		return m.Interface(), nil
	}

	elem := rv
	for elem.Kind() == reflect.Ptr {
		if elem.IsNil() {
			break
		}
		elem = elem.Elem()
	}
	if elem.Kind() == reflect.Struct {
		f := elem.FieldByName(name)
		if f.IsValid() && f.CanInterface() {
			return f.Interface(), nil
		}
	}

	className := typeName(cur)
	return nil, tuberr.New(tuberr.KindAttributeError, "'%s' object has no attribute '%s'", className, name)
}

// getIndex resolves one "[key]" path segment against cur: container lookup
// (*Container or any value with TuberContainer and At methods), slice/array
// ordinal indexing, or map keying.
func getIndex(cur any, key string) (any, error) {
	if c, ok := cur.(interface {
		TuberContainer() bool
		At(key string) (any, bool)
	}); ok {
		if v, found := c.At(key); found {
			return v, nil
		}
		return nil, tuberr.New(tuberr.KindNotFound, "no container item '%s'", key)
	}

	rv := reflect.ValueOf(cur)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		idx, err := strconv.Atoi(key)
		if err != nil {
			return nil, tuberr.New(tuberr.KindTypeError, "index '%s' is not an integer", key)
		}
		if idx < 0 || idx >= rv.Len() {
			return nil, tuberr.New(tuberr.KindValueError, "index %d out of range", idx)
		}
		return rv.Index(idx).Interface(), nil
	case reflect.Map:
		mv := rv.MapIndex(reflect.ValueOf(key))
		if !mv.IsValid() {
			return nil, tuberr.New(tuberr.KindNotFound, "no key '%s'", key)
		}
		return mv.Interface(), nil
	default:
		return nil, tuberr.New(tuberr.KindTypeError, "'%s' object is not subscriptable", typeName(cur))
	}
}

func typeName(v any) string {
	t := reflect.TypeOf(v)
	for t != nil && t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t == nil {
		return "NoneType"
	}
	return t.Name()
}
