// Package common defines shared constants, sentinel errors and small helpers
// used by every layer of condoauth. Callers should match errors with errors.Is.
package common

import (
	"errors"
	"net/http"
)

var (
	// Repository-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrorAlreadyExists = errors.New("already exists")

	// Service-level error kinds. Every error returned by the auth service
	// unwraps to exactly one of these.
	ErrValidation   = errors.New("validation error")
	ErrConflict     = errors.New("conflict")
	ErrUnauthorized = errors.New("unauthorized")
	ErrNotFound     = errors.New("resource not found")
	ErrBadRequest   = errors.New("bad request")
	ErrInternal     = errors.New("internal error")

	// Crypto errors.
	ErrDecryptionFailed = errors.New("decryption failed")
	ErrKeyUnavailable   = errors.New("encryption key unavailable")

	// Token errors (invalid, expired or malformed token).
	ErrInvalidToken = errors.New("invalid token")
)

// Error carries a kind (one of the sentinels above) and a human-readable
// message that is safe to show to the client.
type Error struct {
	Kind    error
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return e.Kind.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Kind }

// NewError builds an Error of the given kind.
func NewError(kind error, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

func Validation(msg string) error   { return NewError(ErrValidation, msg) }
func Conflict(msg string) error     { return NewError(ErrConflict, msg) }
func Unauthorized(msg string) error { return NewError(ErrUnauthorized, msg) }
func NotFound(msg string) error     { return NewError(ErrNotFound, msg) }
func BadRequest(msg string) error   { return NewError(ErrBadRequest, msg) }

// HTTPStatus maps an error kind to the status code the HTTP layer should use.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrValidation), errors.Is(err, ErrBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, ErrUnauthorized), errors.Is(err, ErrInvalidToken):
		return http.StatusUnauthorized
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
