package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/phrazzld/carousel-api/internal/api/shared"
	"github.com/phrazzld/carousel-api/internal/domain"
	"github.com/phrazzld/carousel-api/internal/export"
	"github.com/phrazzld/carousel-api/internal/generation"
	"github.com/phrazzld/carousel-api/internal/service"
	"github.com/phrazzld/carousel-api/internal/service/auth"
	"github.com/phrazzld/carousel-api/internal/store"
)

// MapErrorToStatusCode maps internal errors to appropriate HTTP status codes
// based on the error type. This prevents leaking internal error types or
// messages to clients.
func MapErrorToStatusCode(err error) int {
	var validationErrs validator.ValidationErrors

	switch {
	// Authentication errors
	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrExpiredToken),
		errors.Is(err, auth.ErrTokenNotYetValid),
		errors.Is(err, auth.ErrMissingToken),
		errors.Is(err, auth.ErrMissingSubject):
		return http.StatusUnauthorized

	// Authorization errors
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusForbidden

	// Not found errors
	case errors.Is(err, store.ErrNotFound),
		errors.Is(err, service.ErrGenerationNotFound),
		errors.Is(err, export.ErrExportNotFound):
		return http.StatusNotFound

	// Conflict errors
	case errors.Is(err, domain.ErrInvalidTransition),
		errors.Is(err, store.ErrDuplicate):
		return http.StatusConflict

	// Unprocessable: the request is well formed but there is nothing to act on
	case errors.Is(err, export.ErrNoCanvases):
		return http.StatusUnprocessableEntity

	// Bad request errors
	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrInvalidID),
		errors.Is(err, export.ErrInvalidRequest),
		errors.Is(err, store.ErrInvalidEntity),
		errors.As(err, &validationErrs):
		return http.StatusBadRequest
	}

	// Provider failures surfaced synchronously
	var providerErr *generation.ProviderError
	if errors.As(err, &providerErr) {
		switch providerErr.Kind {
		case generation.KindTimeout:
			return http.StatusGatewayTimeout
		case generation.KindRateLimited:
			return http.StatusServiceUnavailable
		default:
			return http.StatusBadGateway
		}
	}

	return http.StatusInternalServerError
}

// GetSafeErrorMessage returns a sanitized, user-friendly error message
// based on the error type. This prevents leaking sensitive internal details.
func GetSafeErrorMessage(err error) string {
	if err == nil {
		return "An unexpected error occurred"
	}

	var validationErrs validator.ValidationErrors

	switch {
	// Authentication errors
	case errors.Is(err, auth.ErrExpiredToken):
		return "Token expired"

	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrTokenNotYetValid),
		errors.Is(err, auth.ErrMissingToken),
		errors.Is(err, auth.ErrMissingSubject):
		return "Invalid token"

	// Authorization errors
	case errors.Is(err, service.ErrNotOwned):
		return "You do not own this generation"

	case errors.Is(err, export.ErrNotOwned):
		return "You do not own this export"

	case errors.Is(err, domain.ErrUnauthorized):
		return "Operation not permitted"

	// Not found errors
	case errors.Is(err, store.ErrGenerationNotFound),
		errors.Is(err, service.ErrGenerationNotFound):
		return "Generation not found"

	case errors.Is(err, export.ErrExportNotFound):
		return "Export not found"

	case errors.Is(err, store.ErrNotFound):
		return "Resource not found"

	// Conflict errors
	case errors.Is(err, domain.ErrInvalidTransition):
		return "Status transition not allowed"

	case errors.Is(err, export.ErrNoCanvases):
		return "Project has no canvases to export"

	// Bad request errors
	case errors.As(err, &validationErrs):
		return SanitizeValidationError(err)

	case errors.Is(err, domain.ErrInvalidID):
		return "Invalid ID"

	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, export.ErrInvalidRequest):
		return validationMessage(err)

	case errors.Is(err, store.ErrInvalidEntity):
		return "Invalid entity data"
	}

	var providerErr *generation.ProviderError
	if errors.As(err, &providerErr) {
		switch providerErr.Kind {
		case generation.KindTimeout:
			return "Provider timed out"
		case generation.KindRateLimited:
			return "Provider is rate limiting requests, try again later"
		case generation.KindContentPolicy:
			return "Request was rejected by the provider's content policy"
		default:
			return "Provider request failed"
		}
	}

	return "An unexpected error occurred"
}

// validationMessage exposes a domain validation error's text with the
// generic sentinel prefix removed. Domain messages never carry stored data.
func validationMessage(err error) string {
	msg := err.Error()
	for _, prefix := range []string{
		domain.ErrValidation.Error() + ": ",
		export.ErrInvalidRequest.Error() + ": ",
	} {
		if i := strings.LastIndex(msg, prefix); i >= 0 {
			msg = msg[i+len(prefix):]
		}
	}
	if strings.Contains(msg, "Field validation") {
		return SanitizeValidationError(errors.New(msg))
	}
	if msg == "" {
		return "Validation error"
	}
	return "Validation error: " + msg
}

// SanitizeValidationError removes sensitive details from validation errors
// and returns a user-friendly message.
func SanitizeValidationError(err error) string {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) && len(validationErrs) > 0 {
		fe := validationErrs[0]
		return fmt.Sprintf("Invalid %s: %s", fe.Field(), getValidationTagMessage(fe.Tag()))
	}

	errMsg := err.Error()

	// Example format: "Key: 'CreateGenerationRequest.Prompt' Error:Field validation for 'Prompt' failed on the 'required' tag"
	if strings.Contains(errMsg, "Field validation") {
		parts := strings.Split(errMsg, "Error:")
		if len(parts) >= 2 {
			fieldParts := strings.Split(parts[1], "'")
			if len(fieldParts) >= 3 {
				field := fieldParts[1]
				var tag string
				if len(fieldParts) >= 5 {
					tag = fieldParts[3]
				}

				if tag != "" {
					return fmt.Sprintf("Invalid %s: %s", field, getValidationTagMessage(tag))
				}
				return fmt.Sprintf("Invalid %s", field)
			}
		}
	}

	return "Validation error"
}

// getValidationTagMessage maps validation tags to user-friendly error messages
func getValidationTagMessage(tag string) string {
	switch tag {
	case "required":
		return "required field"
	case "min", "gte":
		return "too small"
	case "max", "lte":
		return "too large"
	case "oneof":
		return "invalid value"
	case "uuid":
		return "invalid UUID"
	default:
		return "validation failed"
	}
}

// HandleAPIError writes the status and safe message for err and logs the
// redacted error. A non-empty fallback replaces the generic 500 message.
func HandleAPIError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	status := MapErrorToStatusCode(err)
	message := GetSafeErrorMessage(err)
	if status == http.StatusInternalServerError && fallback != "" {
		message = fallback
	}
	shared.RespondWithErrorAndLog(w, r, status, message, err)
}
