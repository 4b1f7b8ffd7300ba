// Package apperror defines the error taxonomy shared by services,
// repositories and the HTTP layer, plus its mapping to HTTP status codes.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Type classifies an application error.
type Type int

const (
	// Unknown is for unclassified errors; clients see a generic message.
	Unknown Type = iota
	// Validation represents missing, malformed or out-of-range input.
	Validation
	// Conflict represents a duplicate value on a unique field.
	Conflict
	// Auth represents bad credentials or an invalid/expired token.
	Auth
	// Authorization represents an authenticated caller who is not the owner.
	Authorization
	// NotFound represents an unknown or badly formatted resource id.
	NotFound
	// Upload represents an image store transport or remote failure.
	Upload
	// Internal represents a server-side failure safe to classify.
	Internal
)

// Error is the application error type. Message is safe to show to clients;
// Err optionally wraps the underlying cause for server-side logs.
type Error struct {
	Type    Type
	Message string
	Err     error
}

// Error returns the string representation, satisfying the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error for errors.Is/errors.As chains.
func (e *Error) Unwrap() error {
	return e.Err
}

// StatusCode maps the error type to an HTTP status. Conflicts map to 400
// with a field-specific message rather than 409.
func (e *Error) StatusCode() int {
	switch e.Type {
	case Validation, Conflict:
		return http.StatusBadRequest
	case Auth:
		return http.StatusUnauthorized
	case Authorization:
		return http.StatusForbidden
	case NotFound:
		return http.StatusNotFound
	case Upload, Internal:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// New creates an Error of an arbitrary type.
func New(t Type, message string, err error) *Error {
	return &Error{Type: t, Message: message, Err: err}
}

// NewValidation creates a validation error.
func NewValidation(message string) *Error {
	return &Error{Type: Validation, Message: message}
}

// NewConflict creates a duplicate-unique-field error.
func NewConflict(message string) *Error {
	return &Error{Type: Conflict, Message: message}
}

// NewAuth creates an authentication error.
func NewAuth(message string) *Error {
	return &Error{Type: Auth, Message: message}
}

// NewAuthorization creates an ownership error.
func NewAuthorization(message string) *Error {
	return &Error{Type: Authorization, Message: message}
}

// NewNotFound creates a missing-resource error.
func NewNotFound(message string) *Error {
	return &Error{Type: NotFound, Message: message}
}

// NewUpload creates an image store failure error.
func NewUpload(message string, err error) *Error {
	return &Error{Type: Upload, Message: message, Err: err}
}

// NewInternal creates a classified server-side error.
func NewInternal(message string, err error) *Error {
	return &Error{Type: Internal, Message: message, Err: err}
}

// As extracts an *Error from err's chain.
func As(err error) (*Error, bool) {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}
