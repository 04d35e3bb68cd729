package client

import (
	"context"
	"fmt"

	"github.com/gsmecher/tuberd/internal/codec"
	"github.com/gsmecher/tuberd/internal/logging"
	"github.com/gsmecher/tuberd/internal/tuberr"
)

// Future is a pending result from a call queued on a Context, the Go
// equivalent of the asyncio.Future SimpleContext/Context resolve into.
type Future struct {
	result   any
	err      error
	Warnings []string
	resolved bool
}

// Result returns the call's result, or its error if the call failed or the
// batch was never flushed.
func (f *Future) Result() (any, error) {
	if !f.resolved {
		return nil, fmt.Errorf("future not yet resolved; call Context.Flush first")
	}
	return f.result, f.err
}

// call is one queued request, mirroring SimpleContext._add_call's request
// dict shape.
type call struct {
	object   string
	property string
	method   string
	args     []any
	kwargs   *codec.OrderedMap
	resolve  bool
	future   *Future
}

func (c call) toMap() *codec.OrderedMap {
	m := codec.NewOrderedMap()
	m.Set("object", c.object)
	if c.property != "" {
		m.Set("property", c.property)
	}
	if c.method != "" {
		m.Set("method", c.method)
	}
	if c.resolve {
		m.Set("resolve", true)
	}
	if len(c.args) > 0 {
		m.Set("args", c.args)
	}
	if c.kwargs != nil && c.kwargs.Len() > 0 {
		m.Set("kwargs", c.kwargs)
	}
	return m
}

// Context aggregates calls against one remote object name and flushes them
// as a single batched request, the Go equivalent of SimpleContext. Unlike
// the Python original's asyncio Context, tuber's Go client has one
// synchronous context type: futures are resolved in-process by Flush,
// there is no background event loop to bundle calls across.
type Context struct {
	transport *Transport
	objname   string
	calls     []call
}

// NewContext returns a Context whose calls are addressed relative to
// objname (e.g. "board.channels").
func NewContext(t *Transport, objname string) *Context {
	return &Context{transport: t, objname: objname}
}

// AddMethodCall queues a method call and returns a Future for its result.
func (c *Context) AddMethodCall(method string, args ...any) *Future {
	f := &Future{}
	c.calls = append(c.calls, call{object: c.objname, method: method, args: args, future: f})
	return f
}

// AddPropertyFetch queues a property fetch and returns a Future for its
// value.
func (c *Context) AddPropertyFetch(property string) *Future {
	f := &Future{}
	c.calls = append(c.calls, call{object: c.objname, property: property, future: f})
	return f
}

// AddResolve queues a describe request for the context's object.
func (c *Context) AddResolve() *Future {
	f := &Future{}
	c.calls = append(c.calls, call{object: c.objname, resolve: true, future: f})
	return f
}

// Len reports the number of calls queued so far.
func (c *Context) Len() int { return len(c.calls) }

// Flush sends every queued call as one batch and resolves each Future in
// place. The queue is emptied regardless of outcome.
func (c *Context) Flush(ctx context.Context, continueOnError bool) error {
	if len(c.calls) == 0 {
		return nil
	}

	queued := c.calls
	c.calls = nil

	batch := make([]any, len(queued))
	for i, item := range queued {
		batch[i] = item.toMap()
	}

	resp, err := c.transport.Send(ctx, batch, continueOnError)
	if err != nil {
		for _, item := range queued {
			item.future.err = err
			item.future.resolved = true
		}
		return err
	}

	results, ok := resp.([]any)
	if !ok {
		// A single error envelope came back for what was sent as a batch;
		// the server hit an exception before it could iterate the batch.
		if m, ok := resp.(*codec.OrderedMap); ok {
			if errVal, ok := m.Get("error"); ok {
				remoteErr := remoteErrorFrom(errVal)
				for _, item := range queued {
					item.future.err = remoteErr
					item.future.resolved = true
				}
				return remoteErr
			}
		}
		return tuberr.New(tuberr.KindProtocolError, "unexpected response shape for batch request")
	}

	for i, item := range queued {
		if i >= len(results) {
			item.future.err = tuberr.New(tuberr.KindProtocolError, "response batch shorter than request batch")
			item.future.resolved = true
			continue
		}
		resolveOne(ctx, item.future, results[i])
	}
	return nil
}

// resolveOne resolves one batch item's Future. Warnings travel the wire
// alongside the result/error (spec.md §4.8: "Warnings are re-emitted in the
// current process before resolution"), so they're logged here before the
// Future is handed back to the caller, not silently dropped along with the
// rest of the envelope.
func resolveOne(ctx context.Context, f *Future, raw any) {
	f.resolved = true
	m, ok := raw.(*codec.OrderedMap)
	if !ok {
		f.err = tuberr.New(tuberr.KindProtocolError, "unexpected result envelope shape")
		return
	}
	if warnVal, ok := m.Get("warnings"); ok {
		f.Warnings = emitWarnings(ctx, warnVal)
	}
	if errVal, ok := m.Get("error"); ok && errVal != nil {
		f.err = remoteErrorFrom(errVal)
		return
	}
	if result, ok := m.Get("result"); ok {
		f.result = result
		return
	}
	f.err = tuberr.New(tuberr.KindProtocolError, "result has no 'result' attribute")
}

// emitWarnings logs each remote warning via internal/logging and returns
// the string slice for the Future to carry, the client-side half of the
// warning-capture discipline server-side dispatch/envelope implement.
func emitWarnings(ctx context.Context, warnVal any) []string {
	arr, ok := warnVal.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(arr))
	for _, w := range arr {
		s, ok := w.(string)
		if !ok {
			continue
		}
		out = append(out, s)
		logging.FromContext(ctx).Warn("tuber: remote warning", "message", s)
	}
	return out
}

func remoteErrorFrom(errVal any) error {
	message := "Unknown error"
	if m, ok := errVal.(*codec.OrderedMap); ok {
		if msg, ok := m.Get("message"); ok {
			if s, ok := msg.(string); ok {
				message = s
			}
		}
	}
	return tuberr.New(tuberr.KindRemoteError, "%s", message)
}

// Call performs one method call in its own single-item batch and returns
// its result directly — a convenience wrapper around Context for callers
// that don't need explicit batching.
func Call(ctx context.Context, t *Transport, objname, method string, args ...any) (any, error) {
	c := NewContext(t, objname)
	f := c.AddMethodCall(method, args...)
	if err := c.Flush(ctx, false); err != nil {
		return nil, err
	}
	return f.Result()
}
