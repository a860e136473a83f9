// Package errors provides standardized domain errors with codes for the Pathagar API.
//
// Usage:
//
//	// In services - return typed errors
//	if book.Status != domain.BookStatusAvailable {
//	    return errors.NotAvailable("book is not available for request")
//	}
//
//	// In handlers and tests - check with errors.Is
//	if errors.Is(err, errors.ErrStateConflict) {
//	    ...
//	}
//
//	// Or group by the coarse kind the client understands
//	var domainErr *errors.Error
//	if errors.As(err, &domainErr) && domainErr.Code.Kind() == errors.KindPermissionDenied {
//	    ...
//	}
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Re-export standard library functions for convenience.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	Join   = errors.Join
)

// Code represents a machine-readable error code.
type Code string

// Error codes used throughout the application.
const (
	CodeNotFound               Code = "NOT_FOUND"
	CodeAlreadyExists          Code = "ALREADY_EXISTS"
	CodeUnauthorized           Code = "UNAUTHORIZED"
	CodeForbidden              Code = "FORBIDDEN"
	CodeValidation             Code = "VALIDATION"
	CodeConflict               Code = "CONFLICT"
	CodeInternal               Code = "INTERNAL"
	CodeInvalidCredentials     Code = "INVALID_CREDENTIALS"
	CodeRateLimited            Code = "RATE_LIMITED"
	CodeStateConflict          Code = "STATE_CONFLICT"
	CodeInvalidState           Code = "INVALID_STATE"
	CodeInvalidTransition      Code = "INVALID_TRANSITION"
	CodeThreadClosed           Code = "THREAD_CLOSED"
	CodeDuplicatePending       Code = "DUPLICATE_PENDING"
	CodeNotAvailable           Code = "NOT_AVAILABLE"
	CodeNotHolder              Code = "NOT_HOLDER"
	CodeInsufficientReputation Code = "INSUFFICIENT_REPUTATION"
)

// Kind is the coarse error taxonomy exposed to clients.
// Several codes share a kind; clients display, they never retry.
type Kind string

// Error kinds.
const (
	KindValidation       Kind = "ValidationError"
	KindStateConflict    Kind = "StateConflict"
	KindPermissionDenied Kind = "PermissionDenied"
	KindNotFound         Kind = "NotFound"
	KindRateGate         Kind = "RateGate"
	KindInternal         Kind = "Internal"
)

// HTTPStatus returns the appropriate HTTP status code for an error code.
func (c Code) HTTPStatus() int {
	switch c {
	case CodeNotFound:
		return http.StatusNotFound
	case CodeAlreadyExists, CodeConflict, CodeStateConflict, CodeInvalidTransition,
		CodeThreadClosed, CodeNotAvailable:
		return http.StatusConflict
	case CodeUnauthorized, CodeInvalidCredentials:
		return http.StatusUnauthorized
	case CodeForbidden, CodeNotHolder:
		return http.StatusForbidden
	// Request-queue refusals are the caller's to fix, so they share 400
	// with malformed input.
	case CodeValidation, CodeInvalidState, CodeDuplicatePending, CodeInsufficientReputation:
		return http.StatusBadRequest
	case CodeRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// Kind maps a code onto the client-facing taxonomy.
func (c Code) Kind() Kind {
	switch c {
	case CodeValidation:
		return KindValidation
	case CodeAlreadyExists, CodeConflict, CodeStateConflict, CodeInvalidState,
		CodeInvalidTransition, CodeThreadClosed, CodeDuplicatePending, CodeNotAvailable:
		return KindStateConflict
	case CodeUnauthorized, CodeInvalidCredentials, CodeForbidden, CodeNotHolder:
		return KindPermissionDenied
	case CodeNotFound:
		return KindNotFound
	case CodeInsufficientReputation, CodeRateLimited:
		return KindRateGate
	default:
		return KindInternal
	}
}

// Error is a domain error with a code, message, and optional details.
type Error struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
	cause   error  // unexported, for wrapping
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.cause
}

// Is reports whether target matches this error.
// Matches if target is an *Error with the same Code.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

// HTTPStatus returns the HTTP status code for this error.
func (e *Error) HTTPStatus() int {
	return e.Code.HTTPStatus()
}

// WithDetails returns a new error with additional details.
func (e *Error) WithDetails(details any) *Error {
	return &Error{
		Code:    e.Code,
		Message: e.Message,
		Details: details,
		cause:   e.cause,
	}
}

// WithCause wraps an underlying error.
func (e *Error) WithCause(err error) *Error {
	return &Error{
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
		cause:   err,
	}
}

// Sentinel errors for use with errors.Is().
var (
	ErrNotFound               = &Error{Code: CodeNotFound, Message: "not found"}
	ErrAlreadyExists          = &Error{Code: CodeAlreadyExists, Message: "already exists"}
	ErrUnauthorized           = &Error{Code: CodeUnauthorized, Message: "unauthorized"}
	ErrForbidden              = &Error{Code: CodeForbidden, Message: "forbidden"}
	ErrValidation             = &Error{Code: CodeValidation, Message: "validation error"}
	ErrConflict               = &Error{Code: CodeConflict, Message: "conflict"}
	ErrInternal               = &Error{Code: CodeInternal, Message: "internal error"}
	ErrInvalidCredentials     = &Error{Code: CodeInvalidCredentials, Message: "invalid credentials"}
	ErrRateLimited            = &Error{Code: CodeRateLimited, Message: "too many requests"}
	ErrStateConflict          = &Error{Code: CodeStateConflict, Message: "state conflict"}
	ErrInvalidState           = &Error{Code: CodeInvalidState, Message: "invalid state"}
	ErrInvalidTransition      = &Error{Code: CodeInvalidTransition, Message: "invalid transition"}
	ErrThreadClosed           = &Error{Code: CodeThreadClosed, Message: "handover thread is closed"}
	ErrDuplicatePending       = &Error{Code: CodeDuplicatePending, Message: "request already pending"}
	ErrNotAvailable           = &Error{Code: CodeNotAvailable, Message: "book not available"}
	ErrNotHolder              = &Error{Code: CodeNotHolder, Message: "not the current holder"}
	ErrInsufficientReputation = &Error{Code: CodeInsufficientReputation, Message: "insufficient reputation"}
)

// Constructor functions for creating errors with custom messages.

// NotFound creates a not found error.
func NotFound(msg string) *Error {
	return &Error{Code: CodeNotFound, Message: msg}
}

// NotFoundf creates a not found error with formatted message.
func NotFoundf(format string, args ...any) *Error {
	return &Error{Code: CodeNotFound, Message: fmt.Sprintf(format, args...)}
}

// AlreadyExists creates an already exists error.
func AlreadyExists(msg string) *Error {
	return &Error{Code: CodeAlreadyExists, Message: msg}
}

// Unauthorized creates an unauthorized error.
func Unauthorized(msg string) *Error {
	return &Error{Code: CodeUnauthorized, Message: msg}
}

// Forbidden creates a forbidden error.
func Forbidden(msg string) *Error {
	return &Error{Code: CodeForbidden, Message: msg}
}

// Validation creates a validation error.
func Validation(msg string) *Error {
	return &Error{Code: CodeValidation, Message: msg}
}

// Validationf creates a validation error with formatted message.
func Validationf(format string, args ...any) *Error {
	return &Error{Code: CodeValidation, Message: fmt.Sprintf(format, args...)}
}

// ValidationWithDetails creates a validation error with details.
func ValidationWithDetails(msg string, details any) *Error {
	return &Error{Code: CodeValidation, Message: msg, Details: details}
}

// Conflict creates a conflict error.
func Conflict(msg string) *Error {
	return &Error{Code: CodeConflict, Message: msg}
}

// Internal creates an internal error.
func Internal(msg string) *Error {
	return &Error{Code: CodeInternal, Message: msg}
}

// InvalidCredentials creates an invalid credentials error.
func InvalidCredentials(msg string) *Error {
	return &Error{Code: CodeInvalidCredentials, Message: msg}
}

// RateLimited creates a rate limited error.
func RateLimited(msg string) *Error {
	return &Error{Code: CodeRateLimited, Message: msg}
}

// StateConflict creates an error for an operation that is invalid in the entity's current state.
func StateConflict(msg string) *Error {
	return &Error{Code: CodeStateConflict, Message: msg}
}

// StateConflictf creates a state conflict error with formatted message.
func StateConflictf(format string, args ...any) *Error {
	return &Error{Code: CodeStateConflict, Message: fmt.Sprintf(format, args...)}
}

// InvalidStatef creates an error for an admin decision on a request that is
// no longer pending.
func InvalidStatef(format string, args ...any) *Error {
	return &Error{Code: CodeInvalidState, Message: fmt.Sprintf(format, args...)}
}

// InvalidTransition creates an error for a skipped or backwards handover step.
func InvalidTransition(msg string) *Error {
	return &Error{Code: CodeInvalidTransition, Message: msg}
}

// ThreadClosed creates an error for actions against a completed or cancelled thread.
func ThreadClosed(msg string) *Error {
	return &Error{Code: CodeThreadClosed, Message: msg}
}

// DuplicatePending creates an error for a second pending request on the same book.
func DuplicatePending(msg string) *Error {
	return &Error{Code: CodeDuplicatePending, Message: msg}
}

// NotAvailable creates an error for requests against a book that cannot be requested.
func NotAvailable(msg string) *Error {
	return &Error{Code: CodeNotAvailable, Message: msg}
}

// NotHolder creates an error for custody actions by someone other than the holder.
func NotHolder(msg string) *Error {
	return &Error{Code: CodeNotHolder, Message: msg}
}

// InsufficientReputation creates an error for the success score gate.
func InsufficientReputation(msg string) *Error {
	return &Error{Code: CodeInsufficientReputation, Message: msg}
}

// Wrap wraps an error with a code and message.
func Wrap(err error, code Code, msg string) *Error {
	return &Error{Code: code, Message: msg, cause: err}
}

// Wrapf wraps an error with a code and formatted message.
func Wrapf(err error, code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), cause: err}
}
