// Package envelope implements the per-call result/error/warning wrapper of
// spec.md §4.5, grounded on original_source/tuber/server.py's
// result_response/error_response helpers.
package envelope

import (
	"encoding/json"
	"fmt"

	"github.com/gsmecher/tuberd/internal/tuberr"
)

// Envelope is a single response entry in a batch: exactly one of Result or
// Error is set, and Warnings may be attached to either.
type Envelope struct {
	Result   any      `json:"result"`
	Error    *ErrInfo `json:"error,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
	isError  bool
}

// ErrInfo is the wire shape of a failed call: a single "<Kind>: <message>"
// string, matching error_response's message formatting.
type ErrInfo struct {
	Message string `json:"message"`
}

// OK wraps a successful result. A nil result still produces {"result":null},
// matching result_response(None).
func OK(result any) *Envelope {
	return &Envelope{Result: result}
}

// Err wraps a failed call. Any error is accepted; tuber errors render as
// "<Kind>: <message>", others as "RuntimeError: <Error() text>".
func Err(err error) *Envelope {
	return &Envelope{Error: &ErrInfo{Message: formatError(err)}, isError: true}
}

// Preceding is the synthetic envelope used for the fail-fast batch
// abandonment rule of spec.md §4.6 / §8: once one item in a batch errors and
// continue-on-error is not set, every remaining item in that batch gets this
// same message instead of being executed.
func Preceding() *Envelope {
	return Err(tuberr.New(tuberr.KindRemoteError, "Something went wrong in a preceding call"))
}

// WithWarnings attaches captured warnings to e and returns it.
func (e *Envelope) WithWarnings(warnings []string) *Envelope {
	if len(warnings) > 0 {
		e.Warnings = warnings
	}
	return e
}

// IsError reports whether e represents a failed call.
func (e *Envelope) IsError() bool {
	return e != nil && e.Error != nil
}

func formatError(err error) string {
	if err == nil {
		return ""
	}
	if _, ok := err.(*tuberr.Error); ok {
		return err.Error()
	}
	return fmt.Sprintf("%s: %s", tuberr.KindInternal, err.Error())
}

// MarshalJSON enforces the exactly-one-of-result-or-error invariant on the
// wire: a call either produced a result (possibly null) or an error, never
// keys for both, matching result_response/error_response's disjoint shapes.
func (e Envelope) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, 2)
	if e.isError {
		out["error"] = e.Error
	} else {
		out["result"] = e.Result
	}
	if len(e.Warnings) > 0 {
		out["warnings"] = e.Warnings
	}
	return json.Marshal(out)
}

// UnmarshalJSON is the client-side inverse: a "result" key (even with a null
// value) means success, an "error" key means failure.
func (e *Envelope) UnmarshalJSON(data []byte) error {
	var raw struct {
		Result   json.RawMessage `json:"result"`
		Error    *ErrInfo        `json:"error"`
		Warnings []string        `json:"warnings"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	e.Warnings = raw.Warnings
	if raw.Error != nil {
		e.Error = raw.Error
		e.isError = true
		return nil
	}
	if raw.Result != nil {
		var v any
		if err := json.Unmarshal(raw.Result, &v); err != nil {
			return err
		}
		e.Result = v
	}
	return nil
}
