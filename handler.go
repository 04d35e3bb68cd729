package tuberd

import (
	"context"
	"strings"
	"time"

	"github.com/gsmecher/tuberd/internal/calllog"
	"github.com/gsmecher/tuberd/internal/codec"
	"github.com/gsmecher/tuberd/internal/dispatch"
	"github.com/gsmecher/tuberd/internal/envelope"
	"github.com/gsmecher/tuberd/internal/logging"
	"github.com/gsmecher/tuberd/internal/metrics"
	"github.com/gsmecher/tuberd/internal/registry"
	"github.com/gsmecher/tuberd/internal/schema"
	"github.com/gsmecher/tuberd/internal/tuberr"
)

// Handler is the request-handling core of tuberd, the Go equivalent of
// original_source/tuber/server.py's RequestHandler: it owns the registry,
// the codec registry, and (optionally) schema validation and call
// logging, and exposes a single Handle entry point that cmd/tuberd's HTTP
// layer calls per request.
type Handler struct {
	Registry      *registry.Registry
	Codecs        *codec.Registry
	DefaultFormat string
	Validator     *schema.Validator // nil disables validation
	CallLog       calllog.Writer
}

// NewHandler builds a Handler from a Config and a populated registry.
func NewHandler(cfg Config, reg *registry.Registry) (*Handler, error) {
	var codecs *codec.Registry
	var err error
	if cfg.EnableCBOR {
		codecs, err = codec.NewRegistryWithCBOR()
	} else {
		codecs = codec.NewRegistry()
	}
	if err != nil {
		return nil, err
	}

	h := &Handler{
		Registry:      reg,
		Codecs:        codecs,
		DefaultFormat: cfg.DefaultFormat,
		CallLog:       calllog.NoopWriter{},
	}
	if h.DefaultFormat == "" {
		h.DefaultFormat = "application/json"
	}

	if cfg.Validate {
		v, err := schema.NewValidator()
		if err != nil {
			return nil, err
		}
		h.Validator = v
	}

	return h, nil
}

// Handle decodes body per headers, dispatches one call or a batch of
// calls, and returns the response media type and encoded bytes — the
// signature of RequestHandler.handle.
func (h *Handler) Handle(ctx context.Context, body []byte, headers map[string]string) (string, []byte) {
	requestFormat := h.DefaultFormat
	responseFormat := h.DefaultFormat

	encode := func(v any) (string, []byte) {
		data, err := h.Codecs.Encode(responseFormat, v)
		if err != nil {
			metrics.CodecErrorsTotal.WithLabelValues(responseFormat, "encode").Inc()
			logging.FromContext(ctx).Error("tuber: failed to encode response", "error", err)
			return responseFormat, []byte(`{"error":{"message":"` + string(tuberr.KindInternal) + `: failed to encode response"}}`)
		}
		if h.Validator != nil && responseFormat == "application/json" {
			if verr := h.Validator.ValidateResponse(data); verr != nil {
				logging.FromContext(ctx).Warn("tuber: response failed schema validation", "error", verr)
				replacement, encErr := h.Codecs.Encode(responseFormat, envelope.Err(tuberr.New(tuberr.KindInternal, "response failed schema validation: %v", verr)))
				if encErr == nil {
					data = replacement
				}
			}
		}
		return responseFormat, data
	}

	if ct, ok := headers["Content-Type"]; ok && ct != "" {
		if !h.Codecs.Has(ct) {
			return encode(envelope.Err(tuberr.New(tuberr.KindValueError, "not able to decode media type %s", ct)))
		}
		requestFormat = ct
		responseFormat = ct
	}

	if accept, ok := headers["Accept"]; ok && accept != "" {
		format, err := h.negotiateAccept(accept, requestFormat)
		if err != nil {
			return encode(envelope.Err(err))
		}
		responseFormat = format
	}

	if h.Validator != nil && requestFormat == "application/json" {
		if err := h.Validator.ValidateRequest(body); err != nil {
			logging.FromContext(ctx).Warn("tuber: request failed schema validation", "error", err)
		}
	}

	decoded, err := h.Codecs.Decode(requestFormat, body)
	if err != nil {
		return encode(envelope.Err(err))
	}

	continueOnError := false
	if xopts, ok := headers["X-Tuber-Options"]; ok {
		for _, opt := range strings.Split(xopts, ",") {
			if strings.TrimSpace(opt) == "continue-on-error" {
				continueOnError = true
			}
		}
	}

	switch v := decoded.(type) {
	case *codec.OrderedMap:
		req := requestFromMap(v)
		env := h.dispatchOne(ctx, req)
		return encode(env)
	case []any:
		metrics.BatchSize.Observe(float64(len(v)))
		out := make([]*envelope.Envelope, len(v))
		earlyBail := false
		for i, item := range v {
			if earlyBail {
				out[i] = envelope.Preceding()
				continue
			}
			m, ok := item.(*codec.OrderedMap)
			if !ok {
				out[i] = envelope.Err(tuberr.New(tuberr.KindTypeError, "unexpected type in request"))
			} else {
				out[i] = h.dispatchOne(ctx, requestFromMap(m))
			}
			if out[i].IsError() && !continueOnError {
				earlyBail = true
			}
		}
		return encode(out)
	default:
		return encode(envelope.Err(tuberr.New(tuberr.KindTypeError, "unexpected type in request")))
	}
}

func (h *Handler) negotiateAccept(accept, fallback string) (string, error) {
	types := strings.Split(accept, ",")
	for i := range types {
		types[i] = strings.TrimSpace(types[i])
	}
	for _, t := range types {
		if t == "*/*" || t == "application/*" {
			return fallback, nil
		}
	}
	for _, t := range types {
		if h.Codecs.Has(t) {
			return t, nil
		}
	}
	return "", tuberr.New(tuberr.KindValueError, "not able to encode any media type matching %s", accept)
}

func requestFromMap(m *codec.OrderedMap) dispatch.Request {
	req := dispatch.Request{}
	if v, ok := m.Get("object"); ok {
		req.Object = v
	}
	if v, ok := m.Get("property"); ok {
		if s, ok := v.(string); ok {
			req.Property = s
		}
	}
	if v, ok := m.Get("method"); ok {
		if s, ok := v.(string); ok {
			req.Method = s
		}
	}
	if v, ok := m.Get("resolve"); ok {
		if b, ok := v.(bool); ok {
			req.Resolve = b
		}
	}
	if v, ok := m.Get("args"); ok {
		if a, ok := v.([]any); ok {
			req.Args = a
		}
	}
	if v, ok := m.Get("kwargs"); ok {
		if om, ok := v.(*codec.OrderedMap); ok {
			req.Kwargs = om
		}
	}
	return req
}

func (h *Handler) dispatchOne(ctx context.Context, req dispatch.Request) *envelope.Envelope {
	kind := "describe"
	if req.Method != "" {
		switch o := req.Object.(type) {
		case string:
			if o != "" {
				kind = "invoke"
			}
		case []any:
			if len(o) > 0 {
				kind = "invoke"
			}
		}
	}

	start := time.Now()
	env := dispatch.Dispatch(ctx, h.Registry, req)
	elapsed := time.Since(start)

	status := "success"
	if env.IsError() {
		status = "error"
	}
	metrics.RequestsTotal.WithLabelValues(kind, status).Inc()
	metrics.RequestDuration.WithLabelValues(kind).Observe(elapsed.Seconds())
	if n := len(env.Warnings); n > 0 {
		metrics.WarningsTotal.Add(float64(n))
	}

	if h.CallLog != nil {
		objname, _ := req.Object.(string)
		entry := calllog.Entry{
			TraceID:      logging.TraceIDFromContext(ctx),
			Object:       objname,
			Method:       req.Method,
			Kind:         kind,
			Status:       status,
			DurationMS:   elapsed.Milliseconds(),
			WarningCount: len(env.Warnings),
		}
		if env.IsError() {
			entry.ErrorMessage = env.Error.Message
		}
		_ = h.CallLog.Write(ctx, entry)
	}

	return env
}
