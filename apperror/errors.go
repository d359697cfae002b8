package apperror

import "errors"

type Error string

func (e Error) Error() string { return string(e) }

const (
	ErrValidation        = Error("invalid input")
	ErrPollNotFound      = Error("poll not found")
	ErrPollDeleted       = Error("poll was deleted by its creator")
	ErrConflict          = Error("write conflict")
	ErrConflictExhausted = Error("write conflict retries exhausted")
	ErrForbidden         = Error("not allowed")
	ErrUnauthenticated   = Error("identity required")
)

// ValidationError describes why a poll definition or vote was rejected.
// It matches ErrValidation under errors.Is.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "invalid input: " + e.Reason
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// Invalid builds a ValidationError.
func Invalid(reason string) error {
	return &ValidationError{Reason: reason}
}

// IsRetryable reports whether the caller may safely retry the operation later.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConflictExhausted)
}
