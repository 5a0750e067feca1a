// Package apierror defines the error taxonomy of the portal API and renders
// every error as the {success:false, message, error} envelope.
package apierror

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Sentinels returned by storage backends. Services wrap them into *Error
// with a client-facing message.
var (
	ErrNotFound         = errors.New("not found")
	ErrConflict         = errors.New("conflict")
	ErrInvalidReference = errors.New("referenced row does not exist")
)

// Kind classifies an Error and fixes its HTTP status.
type Kind int

const (
	KindServer Kind = iota
	KindValidation
	KindAuth
	KindNotFound
	KindConflict
	KindUpstream
	KindTimeout
)

func (k Kind) Status() int {
	switch k {
	case KindValidation:
		return http.StatusBadRequest
	case KindAuth:
		return http.StatusUnauthorized
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindUpstream:
		return http.StatusBadGateway
	case KindTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// FieldError names one offending input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (f FieldError) String() string {
	return fmt.Sprintf("%s: %s", f.Field, f.Message)
}

// Error is the typed error handlers return; the HTTP error handler turns it
// into the failure envelope.
type Error struct {
	Kind    Kind
	Message string
	Fields  []FieldError
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Status returns the HTTP status for the error.
func (e *Error) Status() int { return e.Kind.Status() }

// Detail is the text placed in the envelope's "error" field.
func (e *Error) Detail() string {
	switch {
	case len(e.Fields) > 0:
		parts := make([]string, len(e.Fields))
		for i, f := range e.Fields {
			parts[i] = f.String()
		}
		return strings.Join(parts, "; ")
	case e.Err != nil:
		return e.Err.Error()
	default:
		return e.Message
	}
}

// Validation builds a 400 error listing the offending fields.
func Validation(message string, fields ...FieldError) *Error {
	return &Error{Kind: KindValidation, Message: message, Fields: fields}
}

// UnknownUser is the 400 returned when a new row names a user that does
// not exist.
func UnknownUser(message string) *Error {
	return Validation(message, FieldError{Field: "userId", Message: "does not reference an existing user"})
}

// Auth builds a 401 error. The message never says which credential failed.
func Auth(message string) *Error {
	return &Error{Kind: KindAuth, Message: message}
}

// NotFound builds a 404 error.
func NotFound(message string) *Error {
	return &Error{Kind: KindNotFound, Message: message}
}

// Conflict builds a 409 error for unique constraint violations.
func Conflict(message string, err error) *Error {
	return &Error{Kind: KindConflict, Message: message, Err: err}
}

// Upstream builds a 502 error for failed calls to external services.
func Upstream(message string, err error) *Error {
	return &Error{Kind: KindUpstream, Message: message, Err: err}
}

// Server builds a 500 error; the raw cause is surfaced to the client.
func Server(err error) *Error {
	return &Error{Kind: KindServer, Message: "Server error", Err: err}
}

// From classifies an arbitrary error. Storage sentinels map to their kinds
// and everything else becomes a server error.
func From(err error) *Error {
	var apiErr *Error
	switch {
	case err == nil:
		return nil
	case errors.As(err, &apiErr):
		return apiErr
	case errors.Is(err, ErrNotFound):
		return &Error{Kind: KindNotFound, Message: "Not found", Err: err}
	case errors.Is(err, ErrConflict):
		return Conflict("Already exists", err)
	case errors.Is(err, ErrInvalidReference):
		return &Error{Kind: KindValidation, Message: "Invalid reference", Err: err}
	default:
		return Server(err)
	}
}
