package errs

import (
	"errors"
	"fmt"
)

// Sentinel kinds. Callers match with errors.Is against these, never against
// message text.
var (
	ErrNotFound      = errors.New("not found")
	ErrConflict      = errors.New("conflict")
	ErrInvalidInput  = errors.New("invalid input")
	ErrInvalidState  = errors.New("invalid state")
	ErrUnprocessable = errors.New("unprocessable")
)

// DomainError is a business-rule violation detected by the core. It wraps one
// of the sentinel kinds so transport code can map it to a status code.
type DomainError struct {
	Kind    error
	Message string
}

func (e *DomainError) Error() string {
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Kind
}

// NewNotFoundError reports a missing (or soft-deleted) entity.
func NewNotFoundError(entity, id string) *DomainError {
	return &DomainError{
		Kind:    ErrNotFound,
		Message: fmt.Sprintf("%s %s not found", entity, id),
	}
}

// NewConflictError reports a uniqueness or exclusivity violation.
func NewConflictError(message string) *DomainError {
	return &DomainError{Kind: ErrConflict, Message: message}
}

// NewInvalidInputError reports a cross-field rule violation (date ordering,
// window length, reserved codes) that survived structural validation upstream.
func NewInvalidInputError(message string) *DomainError {
	return &DomainError{Kind: ErrInvalidInput, Message: message}
}

// NewInvalidStateError reports an entity that exists but cannot be used
// (expired or exhausted coupon).
func NewInvalidStateError(message string) *DomainError {
	return &DomainError{Kind: ErrInvalidState, Message: message}
}

// NewUnprocessableError reports a computed result that breaks a business
// floor (post-discount price below the minimum).
func NewUnprocessableError(message string) *DomainError {
	return &DomainError{Kind: ErrUnprocessable, Message: message}
}
