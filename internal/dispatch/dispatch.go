// Package dispatch implements the describe/invoke request classification
// of spec.md §4.3, grounded on original_source/tuber/server.py's
// describe/invoke functions.
package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"runtime/debug"
	"strings"

	"github.com/gsmecher/tuberd/internal/codec"
	"github.com/gsmecher/tuberd/internal/envelope"
	"github.com/gsmecher/tuberd/internal/reflector"
	"github.com/gsmecher/tuberd/internal/registry"
	"github.com/gsmecher/tuberd/internal/tuberr"
)

// Request is one decoded batch item, the Go shape of spec.md §4.6's request
// item schema.
type Request struct {
	Object   any // nil | string | []any (object path as list form)
	Property string
	Method   string
	Args     []any
	Kwargs   *codec.OrderedMap
	Resolve  bool
}

// Dispatch classifies and executes one request against reg, returning the
// response envelope. It never panics across the caller: a user method
// panic is recovered and turned into a RuntimeError envelope, the dispatch
// equivalent of an HTTP recovery middleware.
func Dispatch(ctx context.Context, reg *registry.Registry, req Request) (env *envelope.Envelope) {
	defer func() {
		if r := recover(); r != nil {
			env = envelope.Err(tuberr.New(tuberr.KindInternal, "panic in method call: %v\n%s", r, debug.Stack()))
		}
	}()

	if err := ctx.Err(); err != nil {
		return envelope.Err(tuberr.New(tuberr.KindCancelled, "request cancelled: %v", err))
	}

	for _, name := range []string{req.Property, req.Method} {
		for _, p := range []string{"__", "_sa", "_ipython", "_tuber"} {
			if strings.HasPrefix(name, p) {
				return envelope.Err(tuberr.New(tuberr.KindAttributeError, "attribute name '%s' is reserved", name))
			}
		}
	}

	objname, hasObject := pathString(req.Object)

	if !hasObject || req.Method == "" {
		return describe(ctx, reg, req)
	}
	return invoke(ctx, reg, req, objname)
}

// pathString normalizes the wire "object" field (null | string | array, per
// spec.md §4.6's request item schema) to the dotted-string form ParsePath
// understands. The array form is the object-path grammar of spec.md §4.2
// spelled out element by element instead of packed into one string: a bare
// string element is an attribute name, a nested array element is
// (attr, idx1, idx2, ...).
func pathString(object any) (string, bool) {
	switch v := object.(type) {
	case nil:
		return "", false
	case string:
		return v, v != ""
	case []any:
		if len(v) == 0 {
			return "", false
		}
		var b strings.Builder
		for i, elem := range v {
			switch e := elem.(type) {
			case string:
				if i > 0 {
					b.WriteByte('.')
				}
				b.WriteString(e)
			case []any:
				if len(e) == 0 {
					continue
				}
				if attr, ok := e[0].(string); ok {
					if i > 0 {
						b.WriteByte('.')
					}
					b.WriteString(attr)
				}
				for _, idx := range e[1:] {
					fmt.Fprintf(&b, "[%v]", idx)
				}
			}
		}
		s := b.String()
		return s, s != ""
	default:
		return "", false
	}
}

// describe implements server.py's describe(): registry metadata, object
// metadata, or a property/method/container descriptor, never executing a
// method call.
func describe(ctx context.Context, reg *registry.Registry, req Request) *envelope.Envelope {
	objname, hasObject := pathString(req.Object)

	if !hasObject && req.Property == "" {
		if req.Resolve {
			out := codec.NewOrderedMap()
			for _, name := range reg.Names() {
				root, _ := reg.Root(name)
				d, err := reflector.ResolveObject(root, false, nil)
				if err != nil {
					return envelope.Err(err)
				}
				out.Set(name, d)
			}
			return envelope.OK(map[string]any{"objects": out})
		}
		return envelope.OK(map[string]any{"objects": reg.Names()})
	}

	obj, err := resolvePath(reg, objname)
	if err != nil {
		return envelope.Err(err)
	}

	if req.Property == "" {
		d, err := reflector.ResolveObject(obj, !req.Resolve, nil)
		if err != nil {
			return envelope.Err(err)
		}
		return envelope.OK(toResultKwargs(d))
	}

	attr, err := registry.GetAttrForReflection(obj, req.Property)
	if err != nil {
		return envelope.Err(tuberr.New(tuberr.KindAttributeError, "'%s' object has no attribute '%s'", typeName(obj), req.Property))
	}

	if isTuberObject(attr) {
		d, err := reflector.ResolveObject(attr, !req.Resolve, nil)
		if err != nil {
			return envelope.Err(err)
		}
		return envelope.OK(toResultKwargs(d))
	}

	if !isCallable(attr) {
		return envelope.OK(attr)
	}

	return envelope.OK(toResultKwargs(methodDescriptor(attr, req.Property)))
}

// invoke implements server.py's invoke(): resolve the object and method,
// validate argument shapes, call it, and capture warnings raised during
// the call.
func invoke(ctx context.Context, reg *registry.Registry, req Request, objname string) *envelope.Envelope {
	obj, err := resolvePath(reg, objname)
	if err != nil {
		return envelope.Err(err)
	}

	attr, err := registry.GetAttrForReflection(obj, req.Method)
	if err != nil {
		return envelope.Err(tuberr.New(tuberr.KindAttributeError, "'%s' object has no attribute '%s'", typeName(obj), req.Method))
	}
	if !isCallable(attr) {
		return envelope.Err(tuberr.New(tuberr.KindTypeError, "'%s' object is not callable", req.Method))
	}

	if req.Kwargs != nil && req.Kwargs.Len() > 0 {
		return envelope.Err(tuberr.New(tuberr.KindTypeError,
			"keyword arguments for %s.%s are not supported by this host language binding", objname, req.Method))
	}

	callCtx, warnings := WithWarnings(ctx)
	result, callErr := callMethod(callCtx, attr, req.Args)

	var env *envelope.Envelope
	if callErr != nil {
		env = envelope.Err(callErr)
	} else {
		env = envelope.OK(result)
	}
	return env.WithWarnings(warnings.Messages())
}

func callMethod(ctx context.Context, attr any, args []any) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = tuberr.New(tuberr.KindInternal, "panic in method call: %v", r)
		}
	}()

	rv := reflect.ValueOf(attr)
	t := rv.Type()

	variadic := t.IsVariadic()
	want := t.NumIn()
	passesCtx := want > 0 && t.In(0) == reflect.TypeOf((*context.Context)(nil)).Elem()

	argOffset := 0
	callArgs := make([]reflect.Value, 0, want)
	if passesCtx {
		callArgs = append(callArgs, reflect.ValueOf(ctx))
		argOffset = 1
	}

	fixed := want - argOffset
	if variadic {
		fixed--
	}
	if !variadic && len(args) != fixed {
		return nil, tuberr.New(tuberr.KindTypeError, "expected %d arguments, got %d", fixed, len(args))
	}
	if variadic && len(args) < fixed {
		return nil, tuberr.New(tuberr.KindTypeError, "expected at least %d arguments, got %d", fixed, len(args))
	}

	for i, a := range args {
		var paramType reflect.Type
		switch {
		case !variadic:
			paramType = t.In(argOffset + i)
		case argOffset+i < want-1:
			paramType = t.In(argOffset + i)
		default:
			paramType = t.In(want - 1).Elem()
		}
		av, err := convertArg(a, paramType)
		if err != nil {
			return nil, tuberr.New(tuberr.KindTypeError, "argument %d: %v", i, err)
		}
		callArgs = append(callArgs, av)
	}

	out := rv.Call(callArgs)
	return unpackResults(out)
}

// convertArg coerces a decoded wire value (json.Number/string/bool/[]any/...)
// into the Go type a method parameter declares, since the codec layer
// decodes into a dynamically-typed value model rather than native types.
func convertArg(v any, want reflect.Type) (reflect.Value, error) {
	if v == nil {
		return reflect.Zero(want), nil
	}
	if n, ok := v.(json.Number); ok {
		return convertNumber(n, want)
	}
	rv := reflect.ValueOf(v)
	if rv.Type().AssignableTo(want) {
		return rv, nil
	}
	if rv.Type().ConvertibleTo(want) {
		switch want.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
			reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
			reflect.Float32, reflect.Float64, reflect.String, reflect.Bool:
			return rv.Convert(want), nil
		}
	}
	return reflect.Value{}, tuberrConvertError(v, want)
}

// convertNumber coerces a wire json.Number into whatever numeric (or
// string) type a method parameter declares.
func convertNumber(n json.Number, want reflect.Type) (reflect.Value, error) {
	switch want.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		i, err := n.Int64()
		if err != nil {
			f, ferr := n.Float64()
			if ferr != nil {
				return reflect.Value{}, tuberrConvertError(n, want)
			}
			i = int64(f)
		}
		return reflect.ValueOf(i).Convert(want), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		i, err := n.Int64()
		if err != nil {
			return reflect.Value{}, tuberrConvertError(n, want)
		}
		return reflect.ValueOf(i).Convert(want), nil
	case reflect.Float32, reflect.Float64:
		f, err := n.Float64()
		if err != nil {
			return reflect.Value{}, tuberrConvertError(n, want)
		}
		return reflect.ValueOf(f).Convert(want), nil
	case reflect.String:
		return reflect.ValueOf(n.String()), nil
	default:
		return reflect.Value{}, tuberrConvertError(n, want)
	}
}

func tuberrConvertError(v any, want reflect.Type) error {
	return tuberr.New(tuberr.KindTypeError, "cannot use %T as %s", v, want)
}

func unpackResults(out []reflect.Value) (any, error) {
	if len(out) == 0 {
		return nil, nil
	}
	last := out[len(out)-1]
	if last.Type() == reflect.TypeOf((*error)(nil)).Elem() {
		if !last.IsNil() {
			return nil, last.Interface().(error)
		}
		out = out[:len(out)-1]
	}
	switch len(out) {
	case 0:
		return nil, nil
	case 1:
		return out[0].Interface(), nil
	default:
		vals := make([]any, len(out))
		for i, v := range out {
			vals[i] = v.Interface()
		}
		return vals, nil
	}
}

func resolvePath(reg *registry.Registry, objname string) (any, error) {
	p, err := registry.ParsePath(objname)
	if err != nil {
		return nil, err
	}
	return reg.Resolve(p)
}

func isCallable(v any) bool {
	if v == nil {
		return false
	}
	return reflect.ValueOf(v).Kind() == reflect.Func
}

func isTuberObject(v any) bool {
	if v == nil {
		return false
	}
	if _, ok := v.(interface{ TuberContainer() bool }); ok {
		return true
	}
	if t, ok := v.(interface{ TuberObject() bool }); ok {
		return t.TuberObject()
	}
	rv := reflect.ValueOf(v)
	return rv.Kind() == reflect.Ptr && rv.Elem().Kind() == reflect.Struct
}

func methodDescriptor(attr any, name string) *codec.OrderedMap {
	out := codec.NewOrderedMap()
	out.Set("__doc__", nil)
	out.Set("__signature__", nil)
	if d, ok := attr.(interface{ TuberDoc() string }); ok {
		out.Set("__doc__", d.TuberDoc())
	}
	return out
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

// toResultKwargs returns the descriptor unchanged: it is already the
// result_response(**resolve_object(...)) shape, whose fields become the
// result object's fields.
func toResultKwargs(d any) any {
	return d
}
