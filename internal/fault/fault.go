// Package fault defines the tagged errors the poll loop branches on.
//
// Every failure that crosses a component boundary carries a Kind, so callers
// can classify with KindOf instead of matching message text.
package fault

import (
	"errors"
	"fmt"
)

// Kind is an error category.
type Kind string

const (
	KindUnknown           Kind = "unknown"
	KindConfig            Kind = "config"
	KindAPIRequest        Kind = "api_request"
	KindMalformedResponse Kind = "malformed_response"
	KindParse             Kind = "parse"
	KindDelivery          Kind = "delivery"
)

// Transient reports whether a retry on the next cycle can succeed.
// Parse failures are tied to one record and stay broken.
func (k Kind) Transient() bool {
	switch k {
	case KindAPIRequest, KindMalformedResponse, KindDelivery, KindUnknown:
		return true
	default:
		return false
	}
}

// Error is a categorized failure.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Msg != "" && e.Err != nil:
		return e.Msg + ": " + e.Err.Error()
	case e.Msg != "":
		return e.Msg
	case e.Err != nil:
		return e.Err.Error()
	default:
		return string(e.Kind)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// New returns a categorized error with a formatted message.
func New(kind Kind, format string, args ...any) error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Wrap categorizes err. It returns nil if err is nil.
func Wrap(kind Kind, err error, msg string) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// KindOf returns the category of the outermost *Error in err's chain.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
