package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// Category represents the type of error.
type Category string

const (
	CategoryConfig  Category = "config"
	CategoryRoute   Category = "route"
	CategoryStorage Category = "storage"
	CategoryPrint   Category = "print"
	CategoryVNC     Category = "vnc"
	CategoryProxy   Category = "proxy"
	CategoryBuild   Category = "build"
	CategoryCLI     Category = "cli"
)

// CodedError is a structured error with a registered code, a hint and an
// optional wrapped cause.
type CodedError struct {
	// Code is a unique error identifier (e.g., "E301").
	Code string

	// Category is the error type (storage, proxy, etc.).
	Category Category

	// Message is a short description of the error.
	Message string

	// Detail is a longer explanation of the error.
	Detail string

	// Suggestion is a hint on how to fix the error.
	Suggestion string

	// HTTPStatus is the status code reported to API clients.
	// Zero means 500.
	HTTPStatus int

	// Wrapped is the underlying error, if any.
	Wrapped error
}

// Error implements the error interface.
func (e *CodedError) Error() string {
	msg := e.Message
	if e.Code != "" {
		msg = fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	if e.Wrapped != nil {
		msg += ": " + e.Wrapped.Error()
	}
	return msg
}

// Unwrap returns the wrapped error for errors.Is/As support.
func (e *CodedError) Unwrap() error {
	return e.Wrapped
}

// Status returns the HTTP status for the error.
func (e *CodedError) Status() int {
	if e.HTTPStatus == 0 {
		return http.StatusInternalServerError
	}
	return e.HTTPStatus
}

// WithSuggestion adds a fix suggestion to the error.
func (e *CodedError) WithSuggestion(s string) *CodedError {
	e.Suggestion = s
	return e
}

// WithDetail adds a detailed explanation to the error.
func (e *CodedError) WithDetail(d string) *CodedError {
	e.Detail = d
	return e
}

// Wrap wraps another error.
func (e *CodedError) Wrap(err error) *CodedError {
	e.Wrapped = err
	return e
}

// New creates a CodedError from a registered error code.
func New(code string) *CodedError {
	template, ok := registry[code]
	if !ok {
		return &CodedError{
			Code:    code,
			Message: "Unknown error",
		}
	}
	return &CodedError{
		Code:       code,
		Category:   template.Category,
		Message:    template.Message,
		Detail:     template.Detail,
		HTTPStatus: template.Status,
	}
}

// Newf creates a new CodedError with a formatted message (no code).
func Newf(category Category, format string, args ...any) *CodedError {
	return &CodedError{
		Category: category,
		Message:  fmt.Sprintf(format, args...),
	}
}

// FromError wraps a standard error in a CodedError.
// If err already contains a CodedError it is returned as-is.
func FromError(err error, code string) *CodedError {
	if err == nil {
		return nil
	}
	var ce *CodedError
	if stderrors.As(err, &ce) {
		return ce
	}
	return New(code).Wrap(err)
}

// Is reports whether err carries the given code.
func Is(err error, code string) bool {
	var ce *CodedError
	if !stderrors.As(err, &ce) {
		return false
	}
	return ce.Code == code
}
