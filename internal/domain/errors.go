package domain

import "errors"

var (
	// ErrValidation is wrapped by every constructor and setter that rejects input.
	ErrValidation = errors.New("validation failed")
	ErrInvalidID  = errors.New("invalid ID")

	// ErrInvalidTransition means the target status is not reachable from
	// the current one.
	ErrInvalidTransition = errors.New("invalid status transition")

	ErrUnauthorized = errors.New("unauthorized operation")
)
