// Package apperror defines the domain error taxonomy. Services return these
// errors; the HTTP layer maps them to status codes with errors.Is/errors.As.
package apperror

import (
	"errors"
	"fmt"
)

// Sentinel errors. Each AppError wraps exactly one of these so callers can
// classify failures without string matching.
var (
	ErrNotFound     = errors.New("not found")
	ErrValidation   = errors.New("validation failed")
	ErrEncoding     = errors.New("encoding failed")
	ErrEmptyContent = errors.New("empty content")
	ErrSecretPolicy = errors.New("secret policy violation")
	ErrForbidden    = errors.New("forbidden")
	ErrConflict     = errors.New("conflict")
	ErrUnavailable  = errors.New("store unavailable")
)

// AppError carries a classification sentinel, a human-readable message, and
// optionally the field or file the message refers to.
type AppError struct {
	Err     error  // classification sentinel
	Message string // human-readable description
	Field   string // offending field or file, when determinable
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NotFound reports that a resource does not exist. The message deliberately
// omits whether the resource ever existed, is expired, or is private.
func NotFound(resource string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found", resource),
	}
}

// ValidationFailed reports a bad shape or size on the named field.
func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

// EncodingFailed reports content that cannot survive the storage round trip,
// naming the offending field or file so the caller can point the user at it.
func EncodingFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrEncoding,
		Message: message,
		Field:   field,
	}
}

// EmptyContent reports a create request whose files are all empty after
// sanitization.
func EmptyContent() *AppError {
	return &AppError{
		Err:     ErrEmptyContent,
		Message: "all files are empty after sanitization",
		Field:   "files",
	}
}

// SecretPolicy reports an access secret outside the allowed length range.
func SecretPolicy(message string) *AppError {
	return &AppError{
		Err:     ErrSecretPolicy,
		Message: message,
		Field:   "secret",
	}
}

// Forbidden reports that the caller lacks permission for the operation.
func Forbidden(message string) *AppError {
	return &AppError{
		Err:     ErrForbidden,
		Message: message,
	}
}

// Conflict reports a uniqueness violation on the named resource.
func Conflict(resource, message string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: message,
		Field:   resource,
	}
}

// Unavailable wraps a transient backend failure. This is the only category
// callers may retry automatically. The cause stays in the chain for logs; the
// message never exposes it.
func Unavailable(err error) *AppError {
	return &AppError{
		Err:     fmt.Errorf("%w: %w", ErrUnavailable, err),
		Message: "storage backend unavailable",
	}
}
