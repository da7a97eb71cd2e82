package offer

import "errors"

// Kind is a stable category for programmatic error handling at the service
// boundary. Transports map each Kind to a distinct status.
type Kind string

const (
	// KindDecode: the external text could not be decoded into a payload.
	KindDecode Kind = "Decode"
	// KindUnauthorized: the signature does not verify against the trusted key.
	KindUnauthorized Kind = "Unauthorized"
	// KindStore: the persistence layer failed.
	KindStore Kind = "Store"
	// KindEncode: a stored payload could not be rendered back to text.
	KindEncode Kind = "Encode"
	// KindCollision: a different payload already owns the derived code.
	KindCollision Kind = "Collision"
	// KindInvalid: the request itself is malformed (bad code width, empty input).
	KindInvalid Kind = "Invalid"
)

// Retryable reports whether a caller may retry the same request unchanged.
func (k Kind) Retryable() bool {
	switch k {
	case KindDecode, KindStore, KindEncode:
		return true
	default:
		return false
	}
}

// Error is the structured error returned by the exchange service.
//
// Message is for humans; branch on Kind.
type Error struct {
	Kind    Kind
	Op      string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	msg := e.Message
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// NewError returns an *Error without a cause.
func NewError(kind Kind, op, msg string) error {
	return &Error{Kind: kind, Op: op, Message: msg}
}

// WrapError returns an *Error wrapping cause.
func WrapError(kind Kind, op, msg string, cause error) error {
	if cause == nil {
		return NewError(kind, op, msg)
	}
	return &Error{Kind: kind, Op: op, Message: msg, Cause: cause}
}

// IsKind reports whether err is (or wraps) an *Error with the given Kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// KindOf returns the Kind of a structured error, or "" if err is not one.
func KindOf(err error) Kind {
	var e *Error
	if !errors.As(err, &e) {
		return ""
	}
	return e.Kind
}
