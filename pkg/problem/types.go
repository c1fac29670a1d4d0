// Package problem normalizes heterogeneous remote failures into two displayable
// shapes: an ErrorDescription or a list of per-field ValidationErrors.
package problem

import (
	"fmt"
	"net/http"
	"strings"
)

// DefaultError is returned whenever a failure cannot be interpreted.
var DefaultError = ErrorDescription{
	Title:       "Error",
	Description: "Ocurrió un error inesperado",
}

// Failure is the union returned by write operations: either an ErrorDescription
// or ValidationErrors. The interface is sealed to those two types.
type Failure interface {
	error
	isFailure()
}

// ErrorDescription is a user-displayable error.
type ErrorDescription struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// NewErrorDescription builds an ErrorDescription.
func NewErrorDescription(title, description string) ErrorDescription {
	return ErrorDescription{Title: title, Description: description}
}

// Error implements the error interface.
func (e ErrorDescription) Error() string {
	if e.Title == "" {
		return e.Description
	}
	return e.Title + ": " + e.Description
}

func (ErrorDescription) isFailure() {}

// ValidationError lists the messages for one invalid field. Field may use
// bracket-array notation such as items[0].productId.
type ValidationError struct {
	Field    string   `json:"field"`
	Messages []string `json:"messages"`
}

// ValidationErrors is the per-field failure variant.
type ValidationErrors []ValidationError

// Error implements the error interface.
func (v ValidationErrors) Error() string {
	parts := make([]string, 0, len(v))
	for _, fe := range v {
		parts = append(parts, fmt.Sprintf("%s: %s", fe.Field, strings.Join(fe.Messages, ", ")))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (ValidationErrors) isFailure() {}

// Fields returns the field names in order.
func (v ValidationErrors) Fields() []string {
	out := make([]string, 0, len(v))
	for _, fe := range v {
		out = append(out, fe.Field)
	}
	return out
}

// AsDescription reports whether f is the description variant.
func AsDescription(f Failure) (ErrorDescription, bool) {
	switch v := f.(type) {
	case ErrorDescription:
		return v, true
	case *ErrorDescription:
		if v != nil {
			return *v, true
		}
	}
	return ErrorDescription{}, false
}

// AsValidation reports whether f is the validation variant.
func AsValidation(f Failure) (ValidationErrors, bool) {
	v, ok := f.(ValidationErrors)
	return v, ok
}

// ProblemDetails is an RFC 7807 body, optionally extended with field errors.
type ProblemDetails struct {
	Type     string           `json:"type"`
	Title    string           `json:"title"`
	Status   int              `json:"status"`
	Detail   string           `json:"detail"`
	Instance string           `json:"instance"`
	Errors   ValidationErrors `json:"errors,omitempty"`
}

// Description maps title and detail onto an ErrorDescription.
func (p ProblemDetails) Description() ErrorDescription {
	return ErrorDescription{Title: p.Title, Description: p.Detail}
}

// HTTPError is produced by the transport for a response outside the 2xx range.
type HTTPError struct {
	Method     string
	URL        string
	StatusCode int
	Body       []byte
}

// Error implements the error interface.
func (e *HTTPError) Error() string {
	return fmt.Sprintf("%s %s: status %d %s", e.Method, e.URL, e.StatusCode, http.StatusText(e.StatusCode))
}

// TransportError wraps a failure where no response was received.
type TransportError struct {
	Method string
	URL    string
	Err    error
}

// Error implements the error interface.
func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Method, e.URL, e.Err)
}

// Unwrap exposes the cause for errors.Is / errors.As.
func (e *TransportError) Unwrap() error {
	return e.Err
}
