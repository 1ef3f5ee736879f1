// Package service provides the application-level generation lifecycle API
// and canvas persistence used by the HTTP handlers and the orchestrator.
package service

import (
	"errors"
	"fmt"

	"github.com/phrazzld/carousel-api/internal/domain"
	"github.com/phrazzld/carousel-api/internal/store"
)

// Common service errors - sentinel errors used across service implementations.
// These errors represent common conditions that callers may want to check for with errors.Is().
//
// Error handling principles:
// 1. Service methods return sentinel errors for expected error conditions
// 2. Unexpected errors are wrapped in service-specific error types
// 3. Callers use errors.Is/errors.As to check for specific error conditions
// 4. The API layer maps service errors to appropriate HTTP status codes
var (
	// ErrNotOwned indicates a resource is owned by a different user than the one making the request.
	// It wraps domain.ErrUnauthorized.
	// API layer should map this to HTTP 403 Forbidden.
	ErrNotOwned = fmt.Errorf("%w: resource is owned by another user", domain.ErrUnauthorized)

	// ErrGenerationNotFound indicates that the generation does not exist.
	// API layer should map this to HTTP 404 Not Found.
	ErrGenerationNotFound = errors.New("generation not found")
)

// GenerationServiceError wraps errors from the generation service with context.
type GenerationServiceError struct {
	// Operation is the operation that failed (e.g., "create_generation", "update_generation_status")
	Operation string
	// Message is a human-readable description of the error
	Message string
	// Err is the underlying error that caused the failure
	Err error
}

// Error implements the error interface for GenerationServiceError.
func (e *GenerationServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("generation service %s failed: %s: %v", e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("generation service %s failed: %s", e.Operation, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *GenerationServiceError) Unwrap() error {
	return e.Err
}

// NewGenerationServiceError creates a new GenerationServiceError.
// It returns known sentinel errors directly without wrapping.
func NewGenerationServiceError(operation, message string, err error) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, ErrGenerationNotFound), errors.Is(err, store.ErrGenerationNotFound):
		return ErrGenerationNotFound
	case errors.Is(err, ErrNotOwned):
		return ErrNotOwned
	}

	return &GenerationServiceError{
		Operation: operation,
		Message:   message,
		Err:       err,
	}
}
