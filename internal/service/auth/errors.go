package auth

import "errors"

// Token validation failures. The middleware maps all of them to 401.
var (
	ErrMissingToken     = errors.New("authentication token is missing")
	ErrInvalidToken     = errors.New("invalid authentication token")
	ErrExpiredToken     = errors.New("authentication token has expired")
	ErrTokenNotYetValid = errors.New("authentication token not yet valid")

	// ErrMissingSubject is a well-signed token whose sub is not a user UUID.
	ErrMissingSubject = errors.New("authentication token has no valid subject")
)
