// Package tuberr defines the error-kind taxonomy shared by the server and
// client halves of tuber (spec.md §7). Every kind is carried by the one
// *Error type in its Kind field, so callers can use errors.As and compare
// Kind instead of sniffing message text, while Error() still produces the
// "<Kind>: <message>" form the wire protocol expects.
package tuberr

import (
	"errors"
	"fmt"
)

// Kind identifies one of the error categories of spec.md §7.
type Kind string

// Error kinds, named after the taxonomy in spec.md §7.
const (
	KindNotFound       Kind = "NotFound"
	KindAttributeError Kind = "AttributeError"
	KindTypeError      Kind = "TypeError"
	KindValueError     Kind = "ValueError"
	KindCodecEncode    Kind = "CodecEncode"
	KindCodecDecode    Kind = "CodecDecode"
	KindRemoteError    Kind = "RemoteError"
	KindProtocolError  Kind = "ProtocolError"
	KindStateError     Kind = "StateError"
	KindCancelled      Kind = "Cancelled"
	KindInternal       Kind = "RuntimeError"
)

// Error is a tuber error carrying one of the Kind values above.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// New constructs an *Error of the given kind.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap annotates an existing error with a suffix while preserving its
// original Kind, matching server.py's registry navigator:
//
//	raise e.__class__(f"{str(e)} (Invalid object name '{objname}')")
//
// which re-raises under the *same* exception class with an appended
// explanation, not a fixed "NotFound" kind.
func Wrap(err error, suffix string) *Error {
	kind := KindOf(err)
	msg := err.Error()
	if e, ok := err.(*Error); ok {
		msg = e.Message
	}
	if suffix != "" {
		msg = msg + " " + suffix
	}
	return &Error{Kind: kind, Message: msg}
}

// KindOf returns the Kind of err if it is (or wraps) a tuber *Error,
// otherwise KindInternal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}
