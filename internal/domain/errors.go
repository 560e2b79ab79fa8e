// Package domain holds the error taxonomy shared by the course packages.
package domain

import (
	"errors"
	"fmt"
)

// LessonCount number of lessons in the course
const LessonCount = 7

var (
	// ErrNotEligible certificate requested before the completion criteria are met
	ErrNotEligible = errors.New("all lessons and a passing test are required for a certificate")
	// ErrRenderFailure the document renderer failed or timed out
	ErrRenderFailure = errors.New("certificate document could not be rendered")
	// ErrPersistenceUnavailable the backing store failed outside a unique-key conflict
	ErrPersistenceUnavailable = errors.New("persistence unavailable")
	// ErrCertificateNotFound the account has no certificate yet
	ErrCertificateNotFound = errors.New("certificate not found")
)

// ValidationError input out of range, never retried
type ValidationError struct {
	Field  string
	Reason string
}

// NewValidationError .
func NewValidationError(field, format string, args ...interface{}) *ValidationError {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// IsValidation reports whether err is a ValidationError
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// Retryable reports whether the caller may safely retry the operation that returned err
func Retryable(err error) bool {
	return errors.Is(err, ErrRenderFailure) || errors.Is(err, ErrPersistenceUnavailable)
}
