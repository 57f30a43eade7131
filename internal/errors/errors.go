package errors

import (
	"fmt"
)

// APIError is an error that knows how it should be rendered over HTTP
type APIError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"error"`
	Field   string    `json:"field,omitempty"`
	Details string    `json:"details,omitempty"`
	Status  int       `json:"-"`
}

func (e *APIError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s (field: %s)", e.Code, e.Message, e.Field)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func newError(code ErrorCode, message string) *APIError {
	return &APIError{Code: code, Message: message, Status: code.StatusCode()}
}

// NotFound builds "<resource> not found"
func NotFound(resource string) *APIError {
	return newError(ErrNotFound, fmt.Sprintf("%s not found", resource))
}

func Unauthorized(message string) *APIError {
	return newError(ErrUnauthorized, message)
}

func Forbidden(message string) *APIError {
	return newError(ErrForbidden, message)
}

// Conflict reports a resource that already exists or is in the wrong state
func Conflict(message string) *APIError {
	return newError(ErrConflict, message)
}

// ValidationError reports an invalid request field
func ValidationError(field, message string) *APIError {
	e := newError(ErrValidation, message)
	e.Field = field
	return e
}

func BadRequest(message string) *APIError {
	return newError(ErrBadRequest, message)
}

func InternalError(message string) *APIError {
	return newError(ErrInternalError, message)
}

func AlreadyExists(resource string) *APIError {
	return newError(ErrAlreadyExists, fmt.Sprintf("%s already exists", resource))
}

// Gone reports a resource that existed but has expired
func Gone(message string) *APIError {
	return newError(ErrGone, message)
}

func RateLimited(message string) *APIError {
	if message == "" {
		message = "rate limit exceeded"
	}
	return newError(ErrRateLimited, message)
}

func ServiceUnavailable(service string) *APIError {
	return newError(ErrServiceUnavail, fmt.Sprintf("%s is temporarily unavailable", service))
}

func Timeout(operation string) *APIError {
	return newError(ErrTimeout, fmt.Sprintf("%s timed out", operation))
}

// WithDetails attaches free-form details and returns the same error
func (e *APIError) WithDetails(details string) *APIError {
	e.Details = details
	return e
}
