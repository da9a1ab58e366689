package services

import "errors"

// Domain error taxonomy. Handlers map these to HTTP statuses with errors.Is,
// so lower layers can wrap them with context freely.
var (
	// ErrValidation marks missing or malformed submission fields; the
	// request is rejected before any record is created.
	ErrValidation = errors.New("validation error")

	// ErrNotFound marks an operation referencing an unknown login id
	ErrNotFound = errors.New("login request not found")

	// ErrInvalidTransition marks a command that is not legal from the
	// current status, including any command against a terminal status.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrUnauthorized marks an admin-only operation without a valid admin key
	ErrUnauthorized = errors.New("unauthorized")
)

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	return errors.Is(err, ErrValidation)
}

// IsNotFoundError checks if an error is a not-found error
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsInvalidTransitionError checks if an error is an invalid-transition error
func IsInvalidTransitionError(err error) bool {
	return errors.Is(err, ErrInvalidTransition)
}

// IsUnauthorizedError checks if an error is an authorization error
func IsUnauthorizedError(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}
