// Package reflector builds descriptors for registry nodes by reflection,
// the Go equivalent of original_source/tuber/server.py's resolve_object,
// resolve_method and TuberContainer.resolve.
package reflector

import (
	"reflect"
	"sort"
	"strings"

	"github.com/gsmecher/tuberd/internal/codec"
	"github.com/gsmecher/tuberd/internal/registry"
)

// Documented lets a host value supply its own doc string instead of relying
// on (nonexistent) Go runtime docstrings. If the string has the pybind
// shape "name(args…)\n\ndoc", the signature is split out of it exactly as
// resolve_method does.
type Documented interface {
	TuberDoc() string
}

// TuberObject marks a value as a nested object node (recursed into) rather
// than a plain property value, the Go equivalent of Python's
// "__tuber_object__" sentinel attribute.
type TuberObject interface {
	TuberObject() bool
}

// containerLike is satisfied by *registry.Container; declared locally so
// this package only depends on the methods it actually calls.
type containerLike interface {
	TuberContainer() bool
	Kind() string
	Keys() []string
	At(key string) (any, bool)
}

// attributeDenyPrefixes mirrors client.py's attribute_blacklisted: names
// under these prefixes are never exported to a client, whether as a
// property, method or nested object.
var attributeDenyPrefixes = []string{"_sa", "_ipython", "_tuber"}

func denied(name string) bool {
	if strings.HasPrefix(name, "__") {
		return true
	}
	for _, p := range attributeDenyPrefixes {
		if strings.HasPrefix(name, p) {
			return true
		}
	}
	return false
}

// ResolveObject produces the descriptor for obj. When simple is true,
// "methods"/"properties"/"objects" are flat name lists (no recursion);
// otherwise they are name-to-descriptor mappings and nested objects
// recurse fully. onlyAttrs restricts which attribute names are considered,
// mirroring resolve_object's only_attrs parameter (used by container item
// resolution to keep all items' attribute sets aligned).
func ResolveObject(obj any, simple bool, onlyAttrs []string) (any, error) {
	if c, ok := asContainer(obj); ok {
		return resolveContainer(c)
	}

	names := onlyAttrs
	if names == nil {
		names = listNames(obj)
	}

	objects := codec.NewOrderedMap()
	methods := codec.NewOrderedMap()
	props := codec.NewOrderedMap()

	for _, name := range names {
		if denied(name) {
			continue
		}
		val, err := getAttr(obj, name)
		if err != nil {
			continue
		}
		switch {
		case isTuberObject(val):
			if simple {
				objects.Set(name, true)
			} else {
				d, err := ResolveObject(val, false, nil)
				if err != nil {
					return nil, err
				}
				objects.Set(name, d)
			}
		case isCallable(val):
			if simple {
				methods.Set(name, true)
			} else {
				methods.Set(name, resolveMethod(val, name))
			}
		default:
			props.Set(name, val)
		}
	}

	out := codec.NewOrderedMap()
	out.Set("__doc__", docOf(obj))
	if simple {
		out.Set("objects", objects.Keys())
		out.Set("methods", methods.Keys())
		out.Set("properties", props.Keys())
	} else {
		out.Set("objects", objects)
		out.Set("methods", methods)
		out.Set("properties", props)
	}
	return out, nil
}

// resolveMethod produces a {"__doc__","__signature__"} descriptor for a
// callable, splitting a pybind-style leading signature line out of the doc
// string, exactly as resolve_method does.
func resolveMethod(val any, name string) *codec.OrderedMap {
	doc := docOf(val)
	sig := signatureOf(val)

	if sig == "" && doc != "" && strings.HasPrefix(doc, name+"(") {
		if i := strings.IndexByte(doc, '\n'); i >= 0 {
			sig = strings.TrimSpace(doc[:i])
			doc = strings.TrimSpace(doc[i+1:])
		} else {
			sig = doc
			doc = ""
		}
		if i := strings.IndexByte(sig, '('); i >= 0 {
			sig = "(" + sig[i+1:]
		}
	}

	out := codec.NewOrderedMap()
	if doc == "" {
		out.Set("__doc__", nil)
	} else {
		out.Set("__doc__", doc)
	}
	if sig == "" {
		out.Set("__signature__", nil)
	} else {
		out.Set("__signature__", sig)
	}
	return out
}

// resolveContainer implements TuberContainer.resolve: the first item is
// resolved fully, later items have their __doc__/methods stripped (shared
// via item_doc/item_methods), and all items share the first item's
// attribute set so the compression is well-defined.
func resolveContainer(c containerLike) (any, error) {
	out := codec.NewOrderedMap()
	out.Set("container", c.Kind())

	items := codec.NewOrderedMap()
	var itemDoc any
	var itemMethods any
	var itemAttrs []string
	first := true

	for _, k := range c.Keys() {
		v, _ := c.At(k)
		res, err := ResolveObject(v, false, itemAttrs)
		if err != nil {
			return nil, err
		}
		om, ok := res.(*codec.OrderedMap)
		if ok {
			if _, isContainer := om.Get("container"); !isContainer {
				if first {
					itemDoc, _ = om.Get("__doc__")
					itemMethods, _ = om.Get("methods")
					om.RemoveAll("__doc__", "methods")
					itemAttrs = attrNamesOf(om)
					first = false
				} else {
					om.RemoveAll("__doc__", "methods")
				}
			}
		}
		items.Set(k, res)
	}

	out.Set("item_doc", itemDoc)
	out.Set("item_methods", itemMethods)
	if c.Kind() == "list" {
		arr := make([]any, 0, items.Len())
		for _, k := range items.Keys() {
			v, _ := items.Get(k)
			arr = append(arr, v)
		}
		out.Set("items", arr)
	} else {
		out.Set("items", items)
	}
	return out, nil
}

func attrNamesOf(om *codec.OrderedMap) []string {
	var names []string
	if objects, ok := om.Get("objects"); ok {
		if m, ok := objects.(*codec.OrderedMap); ok {
			names = append(names, m.Keys()...)
		}
	}
	if props, ok := om.Get("properties"); ok {
		if m, ok := props.(*codec.OrderedMap); ok {
			names = append(names, m.Keys()...)
		}
	}
	return names
}

func asContainer(obj any) (containerLike, bool) {
	c, ok := obj.(containerLike)
	return c, ok
}

func isTuberObject(v any) bool {
	if _, ok := v.(containerLike); ok {
		return true
	}
	if t, ok := v.(TuberObject); ok {
		return t.TuberObject()
	}
	rv := reflect.ValueOf(v)
	return rv.Kind() == reflect.Ptr && rv.Elem().Kind() == reflect.Struct
}

func isCallable(v any) bool {
	switch v.(type) {
	case nil:
		return false
	}
	rv := reflect.ValueOf(v)
	return rv.Kind() == reflect.Func
}

func docOf(v any) string {
	if d, ok := v.(Documented); ok {
		return d.TuberDoc()
	}
	return ""
}

func signatureOf(v any) string {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Func {
		return ""
	}
	t := rv.Type()
	var parts []string
	for i := 0; i < t.NumIn(); i++ {
		parts = append(parts, t.In(i).String())
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

// listNames enumerates the exported method and field names of obj, sorted,
// the Go equivalent of Python's dir(obj) (which is also sorted).
func listNames(obj any) []string {
	seen := make(map[string]bool)
	var names []string

	rv := reflect.ValueOf(obj)
	rt := rv.Type()
	for i := 0; i < rt.NumMethod(); i++ {
		n := rt.Method(i).Name
		if !seen[n] {
			seen[n] = true
			names = append(names, n)
		}
	}

	elem := rv
	for elem.Kind() == reflect.Ptr {
		if elem.IsNil() {
			break
		}
		elem = elem.Elem()
	}
	if elem.Kind() == reflect.Struct {
		et := elem.Type()
		for i := 0; i < et.NumField(); i++ {
			f := et.Field(i)
			if !f.IsExported() {
				continue
			}
			if !seen[f.Name] {
				seen[f.Name] = true
				names = append(names, f.Name)
			}
		}
	}

	sort.Strings(names)
	return names
}

// getAttr resolves a single attribute name against obj via the same
// strategies as registry.getAttr (kept in sync so descriptors and dispatch
// never disagree about what's visible).
func getAttr(obj any, name string) (any, error) {
	return registry.GetAttrForReflection(obj, name)
}
