package service

import (
	"errors"
	"fmt"
)

// Kind classifies a failure of a booking operation.  Handlers map kinds to
// transport status codes.
type Kind string

const (
	KindInvalidInput        Kind = "INVALID_INPUT"
	KindNotFoundUpstream    Kind = "NOT_FOUND_UPSTREAM"
	KindUpstreamUnavailable Kind = "UPSTREAM_UNAVAILABLE"
	KindUnauthorized        Kind = "UNAUTHORIZED"
	KindTransactionFailed   Kind = "TRANSACTION_FAILED"
	// KindInternal covers unexpected store failures outside a transaction.
	KindInternal Kind = "INTERNAL"
)

// Error is returned by every BookingService operation.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the kind carried by err, or KindInternal when err is not
// a service error.
func KindOf(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindInternal
}

func newError(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}
