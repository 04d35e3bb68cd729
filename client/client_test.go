package client_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	tuberd "github.com/gsmecher/tuberd"
	"github.com/gsmecher/tuberd/client"
	"github.com/gsmecher/tuberd/internal/codec"
	"github.com/gsmecher/tuberd/internal/dispatch"
	"github.com/gsmecher/tuberd/internal/registry"
)

// testDial is a tiny registered object exercised by every client test.
type testDial struct {
	Gain float64
}

func (d *testDial) TuberDoc() string { return "a test dial" }
func (d *testDial) SetGain(gain float64) float64 {
	d.Gain = gain
	return d.Gain
}
func (d *testDial) Explode() (int, error) {
	return 0, errBoom{}
}
func (d *testDial) WarnAndSetGain(ctx context.Context, gain float64) float64 {
	dispatch.Warn(ctx, "gain %v is close to the limit", gain)
	d.Gain = gain
	return d.Gain
}

type errBoom struct{}

func (errBoom) Error() string { return "boom" }

// newTestServer wires a registry into a real tuberd.Handler behind an
// httptest.Server, the same shape cmd/tuberd/router.go wires in production.
func newTestServer(t *testing.T, reg *registry.Registry) (*httptest.Server, *client.Transport) {
	t.Helper()
	cfg := tuberd.DefaultConfig()
	h, err := tuberd.NewHandler(cfg, reg)
	if err != nil {
		t.Fatalf("NewHandler: %v", err)
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()
		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		headers := map[string]string{
			"Content-Type":    r.Header.Get("Content-Type"),
			"Accept":          r.Header.Get("Accept"),
			"X-Tuber-Options": r.Header.Get("X-Tuber-Options"),
		}
		mediaType, data := h.Handle(r.Context(), body, headers)
		w.Header().Set("Content-Type", mediaType)
		_, _ = w.Write(data)
	}))
	t.Cleanup(srv.Close)

	transport := client.NewTransport(srv.URL, codec.NewRegistry())
	return srv, transport
}
