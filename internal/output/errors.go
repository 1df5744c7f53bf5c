package output

import (
	"errors"
	"fmt"
)

// Error is a structured error with code, message, and optional hint.
type Error struct {
	Code       string
	Message    string
	Hint       string
	HTTPStatus int
	Detail     string // Raw response body when the server error wasn't JSON
	Retryable  bool
	Cause      error
}

func (e *Error) Error() string {
	if e.Hint != "" {
		return fmt.Sprintf("%s: %s", e.Message, e.Hint)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// ExitCode returns the appropriate exit code for this error.
func (e *Error) ExitCode() int {
	return ExitCodeFor(e.Code)
}

// Error constructors for common cases.

func ErrUsage(msg string) *Error {
	return &Error{Code: CodeUsage, Message: msg}
}

func ErrUsageHint(msg, hint string) *Error {
	return &Error{Code: CodeUsage, Message: msg, Hint: hint}
}

func ErrNotFound(resource, identifier string) *Error {
	return &Error{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found: %s", resource, identifier),
		HTTPStatus: 404,
	}
}

func ErrAuth(msg string) *Error {
	return &Error{
		Code:    CodeAuth,
		Message: msg,
		Hint:    "Run: wai auth login",
	}
}

// ErrSessionExpired is returned when the refresh flow cannot produce a
// usable access token. Callers must treat it as a forced logout.
func ErrSessionExpired() *Error {
	return &Error{
		Code:       CodeAuth,
		Message:    "Session expired, please log in again",
		Hint:       "Run: wai auth login",
		HTTPStatus: 401,
	}
}

// ErrValidation reports a business-rule rejection carried in a 2xx body,
// e.g. login with verified:false. It is an inline-form error, never a
// session-level error.
func ErrValidation(msg string) *Error {
	return &Error{Code: CodeValidation, Message: msg}
}

func ErrValidationHint(msg, hint string) *Error {
	return &Error{Code: CodeValidation, Message: msg, Hint: hint}
}

func ErrNetwork(cause error) *Error {
	return &Error{
		Code:      CodeNetwork,
		Message:   "Network error",
		Hint:      cause.Error(),
		Retryable: true,
		Cause:     cause,
	}
}

func ErrAPI(status int, msg string) *Error {
	return &Error{
		Code:       CodeAPI,
		Message:    msg,
		HTTPStatus: status,
	}
}

// ErrAPIDetail carries the raw body of a non-JSON error response.
func ErrAPIDetail(status int, msg, detail string) *Error {
	return &Error{
		Code:       CodeAPI,
		Message:    msg,
		HTTPStatus: status,
		Detail:     detail,
	}
}

// AsError attempts to convert an error to an *Error.
func AsError(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return &Error{
		Code:    CodeAPI,
		Message: err.Error(),
		Cause:   err,
	}
}

// IsAuth reports whether err is a session/auth failure that must force a
// logged-out state.
func IsAuth(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == CodeAuth
}

// IsValidation reports whether err is a business-rule rejection.
func IsValidation(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == CodeValidation
}

// IsNetwork reports whether err is a transport-level failure.
func IsNetwork(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == CodeNetwork
}
