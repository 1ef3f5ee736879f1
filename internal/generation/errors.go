package generation

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
)

// Common errors returned by the generation package
var (
	// ErrInvalidResponse is returned when a provider response cannot be parsed
	ErrInvalidResponse = errors.New("invalid response from provider")

	// ErrInvalidConfig is returned when a provider configuration is invalid
	ErrInvalidConfig = errors.New("invalid provider configuration")

	// ErrUnknownProvider is returned when a requested provider is not registered
	ErrUnknownProvider = errors.New("unknown provider")
)

// ErrorKind classifies a provider failure.
type ErrorKind string

// Provider error kinds
const (
	KindTimeout       ErrorKind = "timeout"
	KindRateLimited   ErrorKind = "rate_limited"
	KindContentPolicy ErrorKind = "content_policy"
	KindConfiguration ErrorKind = "configuration"
	KindUnknown       ErrorKind = "unknown"
)

// ProviderError is returned by provider adapters for any failed call.
type ProviderError struct {
	Provider string
	Kind     ErrorKind
	Err      error
}

// Error implements the error interface.
func (e *ProviderError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s provider: %s", e.Provider, e.Kind)
	}
	return fmt.Sprintf("%s provider: %s: %v", e.Provider, e.Kind, e.Err)
}

// Unwrap returns the underlying error.
func (e *ProviderError) Unwrap() error {
	return e.Err
}

// Retryable reports whether the same call may succeed if repeated later.
func (e *ProviderError) Retryable() bool {
	return e.Kind == KindTimeout || e.Kind == KindRateLimited
}

// NewProviderError creates a ProviderError.
func NewProviderError(provider string, kind ErrorKind, err error) *ProviderError {
	return &ProviderError{Provider: provider, Kind: kind, Err: err}
}

// KindOf returns the kind of the first ProviderError in err's chain, or
// KindUnknown.
func KindOf(err error) ErrorKind {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return KindUnknown
}

// IsRetryable reports whether err wraps a retryable ProviderError.
func IsRetryable(err error) bool {
	var pe *ProviderError
	return errors.As(err, &pe) && pe.Retryable()
}

var contentPolicyMarkers = []string{
	"content_policy",
	"content policy",
	"safety",
	"moderation",
	"nsfw",
	"inappropriate",
}

// ClassifyHTTPStatus maps an HTTP status and response body from a provider
// to an error kind.
func ClassifyHTTPStatus(status int, body string) ErrorKind {
	switch status {
	case http.StatusRequestTimeout, http.StatusGatewayTimeout:
		return KindTimeout
	case http.StatusTooManyRequests, http.StatusServiceUnavailable:
		return KindRateLimited
	case http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound:
		return KindConfiguration
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		if MentionsContentPolicy(body) {
			return KindContentPolicy
		}
		return KindUnknown
	default:
		return KindUnknown
	}
}

// MentionsContentPolicy reports whether a provider message refers to a
// content policy or safety rejection.
func MentionsContentPolicy(msg string) bool {
	lower := strings.ToLower(msg)
	for _, m := range contentPolicyMarkers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}

// TransportError converts a failed HTTP round trip into a ProviderError.
// A deadline that is not the caller's own is reported as a timeout; when the
// caller's context is done its error is returned unchanged.
func TransportError(ctx context.Context, provider string, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return NewProviderError(provider, KindTimeout, err)
	}
	return NewProviderError(provider, KindUnknown, err)
}

// StatusError converts a non-2xx provider response into a ProviderError.
func StatusError(provider string, status int, body []byte) error {
	msg := strings.TrimSpace(string(body))
	if len(msg) > 512 {
		msg = msg[:512]
	}
	return NewProviderError(provider, ClassifyHTTPStatus(status, msg),
		fmt.Errorf("status %d: %s", status, msg))
}
