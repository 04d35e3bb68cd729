package dispatch

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/gsmecher/tuberd/internal/codec"
	"github.com/gsmecher/tuberd/internal/registry"
	"github.com/gsmecher/tuberd/internal/tuberr"
)

type dial struct {
	Gain float64
}

func (d *dial) TuberDoc() string { return "a dial" }

func (d *dial) SetGain(gain float64) float64 {
	d.Gain = gain
	return d.Gain
}

func (d *dial) Add(a, b int) int { return a + b }

func (d *dial) WarnAndFail(ctx context.Context) (int, error) {
	Warn(ctx, "getting close to the limit")
	return 0, tuberr.New(tuberr.KindValueError, "out of range")
}

func newTestRegistry() *registry.Registry {
	reg := registry.New()
	reg.Register("dial", &dial{Gain: 1})
	return reg
}

func TestDispatchRejectsAlreadyCancelledContext(t *testing.T) {
	reg := newTestRegistry()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	env := Dispatch(ctx, reg, Request{Object: "dial", Method: "SetGain", Args: []any{1.0}})
	if !env.IsError() {
		t.Fatalf("expected an error envelope for a cancelled context")
	}
	if got, want := env.Error.Message, string(tuberr.KindCancelled)+": "; len(got) < len(want) || got[:len(want)] != want {
		t.Fatalf("message = %q, want prefix %q", got, want)
	}
}

func TestDispatchDescribeRegistryRoots(t *testing.T) {
	reg := newTestRegistry()
	env := Dispatch(context.Background(), reg, Request{})
	if env.IsError() {
		t.Fatalf("unexpected error: %v", env.Error)
	}
	m, ok := env.Result.(map[string]any)
	if !ok {
		t.Fatalf("result = %T", env.Result)
	}
	names, ok := m["objects"].([]string)
	if !ok || len(names) != 1 || names[0] != "dial" {
		t.Fatalf("objects = %v", m["objects"])
	}
}

func TestDispatchDescribeUnknownObjectIsAttributeError(t *testing.T) {
	reg := newTestRegistry()
	env := Dispatch(context.Background(), reg, Request{Object: "missing"})
	if !env.IsError() {
		t.Fatalf("expected error envelope")
	}
}

func TestDispatchDescribeObject(t *testing.T) {
	reg := newTestRegistry()
	env := Dispatch(context.Background(), reg, Request{Object: "dial"})
	if env.IsError() {
		t.Fatalf("unexpected error: %v", env.Error)
	}
	om, ok := env.Result.(*codec.OrderedMap)
	if !ok {
		t.Fatalf("result = %T, want *OrderedMap", env.Result)
	}
	if doc, _ := om.Get("__doc__"); doc != "a dial" {
		t.Fatalf("__doc__ = %v", doc)
	}
}

func TestDispatchDescribeTypedProperty(t *testing.T) {
	reg := newTestRegistry()
	env := Dispatch(context.Background(), reg, Request{Object: "dial", Property: "Gain"})
	if env.IsError() {
		t.Fatalf("unexpected error: %v", env.Error)
	}
	if env.Result.(float64) != 1 {
		t.Fatalf("Gain = %v", env.Result)
	}
}

func TestDispatchInvokeMethodWithNumericArgs(t *testing.T) {
	reg := newTestRegistry()
	req := Request{
		Object: "dial",
		Method: "Add",
		Args:   []any{json.Number("2"), json.Number("3")},
	}
	env := Dispatch(context.Background(), reg, req)
	if env.IsError() {
		t.Fatalf("unexpected error: %v", env.Error)
	}
	if env.Result.(int) != 5 {
		t.Fatalf("Add(2,3) = %v, want 5", env.Result)
	}
}

func TestDispatchInvokeMethodWithFloatArg(t *testing.T) {
	reg := newTestRegistry()
	req := Request{
		Object: "dial",
		Method: "SetGain",
		Args:   []any{json.Number("4.5")},
	}
	env := Dispatch(context.Background(), reg, req)
	if env.IsError() {
		t.Fatalf("unexpected error: %v", env.Error)
	}
	if env.Result.(float64) != 4.5 {
		t.Fatalf("SetGain(4.5) = %v", env.Result)
	}
}

func TestDispatchInvokeWrongArgCountIsTypeError(t *testing.T) {
	reg := newTestRegistry()
	req := Request{Object: "dial", Method: "Add", Args: []any{json.Number("1")}}
	env := Dispatch(context.Background(), reg, req)
	if !env.IsError() {
		t.Fatalf("expected error for wrong argument count")
	}
}

func TestDispatchInvokeUnknownMethodIsAttributeError(t *testing.T) {
	reg := newTestRegistry()
	req := Request{Object: "dial", Method: "DoesNotExist"}
	env := Dispatch(context.Background(), reg, req)
	if !env.IsError() {
		t.Fatalf("expected error for unknown method")
	}
}

func TestDispatchInvokeNonCallablePropertyIsTypeError(t *testing.T) {
	reg := registry.New()
	reg.Register("dial", &dial{Gain: 1})
	req := Request{Object: "dial", Method: "Gain"}
	env := Dispatch(context.Background(), reg, req)
	if !env.IsError() {
		t.Fatalf("expected error calling a non-callable attribute")
	}
}

func TestDispatchInvokeCapturesWarningsAndError(t *testing.T) {
	reg := newTestRegistry()
	req := Request{Object: "dial", Method: "WarnAndFail"}
	env := Dispatch(context.Background(), reg, req)
	if !env.IsError() {
		t.Fatalf("expected error result")
	}
	if len(env.Warnings) != 1 || env.Warnings[0] != "getting close to the limit" {
		t.Fatalf("warnings = %v", env.Warnings)
	}
}

func TestDispatchInvokeRejectsKwargs(t *testing.T) {
	reg := newTestRegistry()
	kwargs := codec.NewOrderedMap()
	kwargs.Set("gain", json.Number("1"))
	req := Request{Object: "dial", Method: "SetGain", Kwargs: kwargs}
	env := Dispatch(context.Background(), reg, req)
	if !env.IsError() {
		t.Fatalf("expected error for unsupported kwargs")
	}
}

func TestDispatchRecoversFromPanic(t *testing.T) {
	reg := registry.New()
	reg.Register("panicker", &panicker{})
	env := Dispatch(context.Background(), reg, Request{Object: "panicker", Method: "Boom"})
	if !env.IsError() {
		t.Fatalf("expected error envelope from recovered panic")
	}
}

type panicker struct{}

func (p *panicker) Boom() int { panic("kaboom") }

func TestPathStringArrayForm(t *testing.T) {
	got, ok := pathString([]any{"board", []any{"Channels", json.Number("0")}, "Gain"})
	if !ok {
		t.Fatalf("expected ok")
	}
	if got != "board.Channels[0].Gain" {
		t.Fatalf("pathString = %q", got)
	}
}

func TestPathStringEmptyIsNotAnObject(t *testing.T) {
	if _, ok := pathString(nil); ok {
		t.Fatalf("nil object should not be considered present")
	}
	if _, ok := pathString(""); ok {
		t.Fatalf("empty string object should not be considered present")
	}
}
