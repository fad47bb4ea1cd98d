package domain

import "github.com/pkg/errors"

// Sentinel errors for the storage and intake layers (ErrIdempotencyReuse
// is declared but not returned by either). The HTTP transport maps these
// to status codes with errors.Is / errors.As; of them, only an
// ErrValidation that is not a *ValidationError has its text written into
// the response body.
var (
	ErrNotFound         = errors.New("domain: not found")
	ErrConflict         = errors.New("domain: conflict")
	ErrValidation       = errors.New("domain: validation failed")
	ErrIdempotencyReuse = errors.New("domain: idempotency key already in use")
)

// ValidationError carries the offending field alongside ErrValidation so
// the HTTP layer can render a field-level 400 body.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

func NewValidationError(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}
