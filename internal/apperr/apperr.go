// Package apperr is the error taxonomy shared by services and handlers.
// Every failure that reaches the request boundary is an *Error with a Kind;
// the Kind decides the HTTP status and whether the failure is routine.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind string

const (
	KindAuthentication Kind = "AUTHENTICATION"
	KindAuthorization  Kind = "AUTHORIZATION"
	KindValidation     Kind = "VALIDATION"
	KindNotFound       Kind = "NOT_FOUND"
	KindInvalidState   Kind = "INVALID_STATE"
	KindConflict       Kind = "CONFLICT"
	KindRateLimited    Kind = "RATE_LIMITED"
	KindUpstream       Kind = "UPSTREAM"
	KindInternal       Kind = "INTERNAL"
)

var kindStatus = map[Kind]int{
	KindAuthentication: http.StatusUnauthorized,
	KindAuthorization:  http.StatusForbidden,
	KindValidation:     http.StatusBadRequest,
	KindNotFound:       http.StatusNotFound,
	KindInvalidState:   http.StatusConflict,
	KindConflict:       http.StatusConflict,
	KindRateLimited:    http.StatusTooManyRequests,
	KindUpstream:       http.StatusBadGateway,
	KindInternal:       http.StatusInternalServerError,
}

type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Status returns the HTTP status for the error kind.
func (e *Error) Status() int {
	if s, ok := kindStatus[e.Kind]; ok {
		return s
	}
	return http.StatusInternalServerError
}

// Routine reports whether the error is an expected outcome rather than a fault.
func (e *Error) Routine() bool {
	return e.Kind != KindUpstream && e.Kind != KindInternal
}

func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

func Wrap(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Message: msg, Err: err}
}

func Authentication(msg string) *Error { return New(KindAuthentication, msg) }
func Authorization(msg string) *Error  { return New(KindAuthorization, msg) }
func Validation(msg string) *Error     { return New(KindValidation, msg) }
func NotFound(msg string) *Error       { return New(KindNotFound, msg) }
func InvalidState(msg string) *Error   { return New(KindInvalidState, msg) }
func Conflict(msg string) *Error       { return New(KindConflict, msg) }
func RateLimited(msg string) *Error    { return New(KindRateLimited, msg) }

func Upstream(msg string, err error) *Error { return Wrap(KindUpstream, msg, err) }
func Internal(msg string, err error) *Error { return Wrap(KindInternal, msg, err) }

// From converts any error into an *Error, treating unknown errors as internal.
func From(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Internal("internal server error", err)
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}
