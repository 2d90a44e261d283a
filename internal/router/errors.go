package router

import (
	"errors"
	"fmt"
)

// ErrorKind classifies router failures
type ErrorKind string

const (
	KindUnauthorized    ErrorKind = "unauthorized"
	KindNotFound        ErrorKind = "not_found"
	KindInvalidState    ErrorKind = "invalid_state"
	KindInvalidInput    ErrorKind = "invalid_input"
	KindConflict        ErrorKind = "conflict"
	KindUpstreamFailure ErrorKind = "upstream_failure"
)

// Sentinels for errors.Is
var (
	ErrUnauthorized    = &Error{Kind: KindUnauthorized}
	ErrNotFound        = &Error{Kind: KindNotFound}
	ErrInvalidState    = &Error{Kind: KindInvalidState}
	ErrInvalidInput    = &Error{Kind: KindInvalidInput}
	ErrConflict        = &Error{Kind: KindConflict}
	ErrUpstreamFailure = &Error{Kind: KindUpstreamFailure}
)

// Error is a typed router failure
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any router error of the same kind
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

func newError(kind ErrorKind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func upstream(message string, err error) *Error {
	return &Error{Kind: KindUpstreamFailure, Message: message, Err: err}
}

// KindOf returns the kind of a router error, or upstream_failure for any other error
func KindOf(err error) ErrorKind {
	var routerErr *Error
	if errors.As(err, &routerErr) {
		return routerErr.Kind
	}
	return KindUpstreamFailure
}
