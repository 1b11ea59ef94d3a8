package core

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind classifies an ApiError by the stage that produced it.
type ErrorKind int

const (
	KindInvalidSelector ErrorKind = iota // selector string could not be parsed
	KindElementNotFound                  // a chain link matched nothing
	KindStaleElement                     // native handle invalidated since acquisition
	KindPlatform                         // backend unavailable or rejected the call
	KindTimeout                          // expectation never satisfied within budget
	KindBadRequest                       // malformed request body or parameters
)

// String returns the string representation of ErrorKind
func (k ErrorKind) String() string {
	switch k {
	case KindInvalidSelector:
		return "invalid_selector"
	case KindElementNotFound:
		return "element_not_found"
	case KindStaleElement:
		return "stale_element"
	case KindPlatform:
		return "platform"
	case KindTimeout:
		return "timeout"
	case KindBadRequest:
		return "bad_request"
	default:
		return "unknown"
	}
}

// ApiError is a structured error attributable to exactly one failing stage
// (parse, resolve, dispatch, or timeout). Every internal failure is returned
// as a fully-populated ApiError to the immediate caller; no stage swallows
// an error.
type ApiError struct {
	Kind          ErrorKind
	Code          string                 // Machine-readable code: element_not_found, timeout, etc.
	StatusCode    int                    // Wire status mapped from the kind
	Message       string                 // Human-readable message
	SelectorIndex *int                   // Failing chain link, when resolution failed
	Details       map[string]interface{} // Additional context
	Cause         error                  // Underlying error
}

// Error implements the error interface
func (e *ApiError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying error for errors.Is/As support
func (e *ApiError) Unwrap() error {
	return e.Cause
}

// Is matches ApiErrors by code, so errors.Is(err, ErrTimeout) works on
// derived copies produced by WithCause and friends.
func (e *ApiError) Is(target error) bool {
	api, ok := target.(*ApiError)
	if !ok {
		return false
	}
	return e.Code == api.Code
}

// WithCause returns a copy of the error with the given cause
func (e *ApiError) WithCause(cause error) *ApiError {
	c := *e
	c.Cause = cause
	return &c
}

// WithMessage returns a copy of the error with a custom message
func (e *ApiError) WithMessage(format string, v ...interface{}) *ApiError {
	c := *e
	c.Message = fmt.Sprintf(format, v...)
	return &c
}

// WithSelectorIndex returns a copy of the error carrying the failing chain
// link index.
func (e *ApiError) WithSelectorIndex(i int) *ApiError {
	c := *e
	c.SelectorIndex = &i
	return &c
}

// WithDetails returns a copy of the error with additional details
func (e *ApiError) WithDetails(details map[string]interface{}) *ApiError {
	merged := make(map[string]interface{})
	for k, v := range e.Details {
		merged[k] = v
	}
	for k, v := range details {
		merged[k] = v
	}
	c := *e
	c.Details = merged
	return &c
}

// Predefined errors. Callers branch on Code/Kind, never on message text.
var (
	ErrInvalidSelector = &ApiError{
		Kind:       KindInvalidSelector,
		Code:       "invalid_selector",
		StatusCode: http.StatusBadRequest,
		Message:    "invalid selector",
	}
	ErrElementNotFound = &ApiError{
		Kind:       KindElementNotFound,
		Code:       "element_not_found",
		StatusCode: http.StatusNotFound,
		Message:    "element not found",
	}
	ErrStaleElement = &ApiError{
		Kind:       KindStaleElement,
		Code:       "stale_element",
		StatusCode: http.StatusInternalServerError,
		Message:    "element handle is stale, re-resolve before retrying",
	}
	ErrPlatform = &ApiError{
		Kind:       KindPlatform,
		Code:       "platform_error",
		StatusCode: http.StatusInternalServerError,
		Message:    "accessibility backend rejected the call",
	}
	ErrBackendUnreachable = &ApiError{
		Kind:       KindPlatform,
		Code:       "backend_unreachable",
		StatusCode: http.StatusBadGateway,
		Message:    "could not reach accessibility backend",
	}
	ErrTimeout = &ApiError{
		Kind:       KindTimeout,
		Code:       "timeout",
		StatusCode: http.StatusRequestTimeout,
		Message:    "expectation timed out",
	}
	ErrBadRequest = &ApiError{
		Kind:       KindBadRequest,
		Code:       "bad_request",
		StatusCode: http.StatusBadRequest,
		Message:    "malformed request",
	}
)

// AsApiError extracts an *ApiError from err, wrapping unclassified errors as
// a platform error so the boundary always has a status to report.
func AsApiError(err error) *ApiError {
	var api *ApiError
	if errors.As(err, &api) {
		return api
	}
	return ErrPlatform.WithCause(err).WithMessage("%v", err)
}
