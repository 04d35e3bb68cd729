package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// warningsKey is the context key for the per-invocation warning collector.
// server.py uses warnings.catch_warnings(record=True), a process-global
// context manager; Go has no global-warnings equivalent (and it would race
// across concurrent requests), so each dispatch call gets its own
// collector scoped to a context.Context instead.
type warningsKey struct{}

// Warnings collects slog.Warn-equivalent messages raised by a method call
// during one dispatch invocation.
type Warnings struct {
	mu   sync.Mutex
	msgs []string
}

// WithWarnings returns a child context carrying a fresh warnings collector.
func WithWarnings(ctx context.Context) (context.Context, *Warnings) {
	w := &Warnings{}
	return context.WithValue(ctx, warningsKey{}, w), w
}

// Warn records a warning against the collector attached to ctx, if any. A
// method with no collector in scope (called outside dispatch, e.g. in a
// test) drops the warning, logging only that one was raised, rather than
// panicking.
func Warn(ctx context.Context, format string, args ...any) {
	w, ok := ctx.Value(warningsKey{}).(*Warnings)
	if !ok {
		slog.Warn("tuber: warning raised outside dispatch scope")
		return
	}
	w.add(format, args...)
}

func (w *Warnings) add(format string, args ...any) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.msgs = append(w.msgs, fmt.Sprintf(format, args...))
}

// Messages returns the warnings recorded so far, in order.
func (w *Warnings) Messages() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]string, len(w.msgs))
	copy(out, w.msgs)
	return out
}
