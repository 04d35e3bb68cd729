package tuberd

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/gsmecher/tuberd/internal/registry"
)

type testDial struct {
	Gain float64
}

func (d *testDial) TuberDoc() string { return "a dial" }
func (d *testDial) SetGain(gain float64) float64 {
	d.Gain = gain
	return d.Gain
}
func (d *testDial) Fail() (int, error) {
	return 0, errTestFailure{}
}

type errTestFailure struct{}

func (errTestFailure) Error() string { return "simulated failure" }

func newTestHandler(t *testing.T) *Handler {
	t.Helper()
	reg := registry.New()
	reg.Register("dial", &testDial{Gain: 1})

	cfg := DefaultConfig()
	h, err := NewHandler(cfg, reg)
	if err != nil {
		t.Fatalf("NewHandler: %v", err)
	}
	return h
}

func decodeJSONEnvelope(t *testing.T, data []byte) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	return m
}

func TestHandleSingleRequest(t *testing.T) {
	h := newTestHandler(t)
	body := []byte(`{"object":"dial","method":"SetGain","args":[2.5]}`)
	ct, data := h.Handle(context.Background(), body, map[string]string{"Content-Type": "application/json"})
	if ct != "application/json" {
		t.Fatalf("content-type = %q", ct)
	}
	m := decodeJSONEnvelope(t, data)
	if m["result"] != 2.5 {
		t.Fatalf("result = %v", m["result"])
	}
}

func TestHandleBatchFailFastStopsRemainingItems(t *testing.T) {
	h := newTestHandler(t)
	body := []byte(`[
		{"object":"dial","method":"SetGain","args":[1]},
		{"object":"dial","method":"Fail"},
		{"object":"dial","method":"SetGain","args":[2]}
	]`)
	_, data := h.Handle(context.Background(), body, map[string]string{"Content-Type": "application/json"})

	var items []map[string]any
	if err := json.Unmarshal(data, &items); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("expected 3 items, got %d", len(items))
	}
	if _, isErr := items[0]["error"]; isErr {
		t.Fatalf("item 0 should have succeeded, got %v", items[0])
	}
	if _, isErr := items[1]["error"]; !isErr {
		t.Fatalf("item 1 should have failed, got %v", items[1])
	}
	errInfo, ok := items[2]["error"].(map[string]any)
	if !ok {
		t.Fatalf("item 2 should be the 'preceding call' placeholder, got %v", items[2])
	}
	if errInfo["message"] != "RemoteError: Something went wrong in a preceding call" {
		t.Fatalf("item 2 message = %v", errInfo["message"])
	}
}

func TestHandleBatchContinueOnErrorRunsEveryItem(t *testing.T) {
	h := newTestHandler(t)
	body := []byte(`[
		{"object":"dial","method":"Fail"},
		{"object":"dial","method":"SetGain","args":[9]}
	]`)
	headers := map[string]string{
		"Content-Type":    "application/json",
		"X-Tuber-Options": "continue-on-error",
	}
	_, data := h.Handle(context.Background(), body, headers)

	var items []map[string]any
	if err := json.Unmarshal(data, &items); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	if _, isErr := items[0]["error"]; !isErr {
		t.Fatalf("item 0 should have failed")
	}
	if items[1]["result"] != float64(9) {
		t.Fatalf("item 1 should have run and set Gain=9, got %v", items[1])
	}
}

func TestHandleEmptyBatch(t *testing.T) {
	h := newTestHandler(t)
	_, data := h.Handle(context.Background(), []byte(`[]`), map[string]string{"Content-Type": "application/json"})
	var items []map[string]any
	if err := json.Unmarshal(data, &items); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if len(items) != 0 {
		t.Fatalf("expected an empty batch result, got %v", items)
	}
}

func TestHandleUnsupportedContentTypeIsRejected(t *testing.T) {
	h := newTestHandler(t)
	_, data := h.Handle(context.Background(), []byte(`{}`), map[string]string{"Content-Type": "text/xml"})
	m := decodeJSONEnvelope(t, data)
	errInfo, ok := m["error"].(map[string]any)
	if !ok {
		t.Fatalf("expected an error envelope, got %v", m)
	}
	if errInfo["message"] == "" {
		t.Fatalf("expected a non-empty error message")
	}
}

func TestHandleWithValidationEnabledStillReturnsNormalResult(t *testing.T) {
	reg := registry.New()
	reg.Register("dial", &testDial{Gain: 1})

	cfg := DefaultConfig()
	cfg.Validate = true
	h, err := NewHandler(cfg, reg)
	if err != nil {
		t.Fatalf("NewHandler: %v", err)
	}
	if h.Validator == nil {
		t.Fatalf("expected Config.Validate=true to populate Handler.Validator")
	}

	body := []byte(`{"object":"dial","method":"SetGain","args":[4.5]}`)
	_, data := h.Handle(context.Background(), body, map[string]string{"Content-Type": "application/json"})
	m := decodeJSONEnvelope(t, data)
	if m["result"] != 4.5 {
		t.Fatalf("result = %v", m["result"])
	}
}

func TestHandleDescribeContainer(t *testing.T) {
	reg := registry.New()
	c, err := registry.NewListContainer([]any{&testDial{Gain: 1}, &testDial{Gain: 2}})
	if err != nil {
		t.Fatalf("NewListContainer: %v", err)
	}
	reg.Register("dials", c)

	cfg := DefaultConfig()
	h, err := NewHandler(cfg, reg)
	if err != nil {
		t.Fatalf("NewHandler: %v", err)
	}

	body := []byte(`{"object":"dials","resolve":true}`)
	_, data := h.Handle(context.Background(), body, map[string]string{"Content-Type": "application/json"})
	m := decodeJSONEnvelope(t, data)
	result, ok := m["result"].(map[string]any)
	if !ok {
		t.Fatalf("result = %T, want an object descriptor", m["result"])
	}
	if result["container"] != "list" {
		t.Fatalf("container = %v", result["container"])
	}
	items, ok := result["items"].([]any)
	if !ok {
		t.Fatalf("items = %T", result["items"])
	}
	if len(items) < 1 {
		t.Fatalf("missing item 0, got %v", items)
	}
}
