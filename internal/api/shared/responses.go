package shared

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/phrazzld/carousel-api/internal/platform/logger"
	"github.com/phrazzld/carousel-api/internal/redact"
)

// ErrorResponse is the body of every non-2xx API response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    int    `json:"-"`
	TraceID string `json:"trace_id,omitempty"`
}

type ResponseOption func(*responseConfig)

type responseConfig struct {
	warnOnClientError bool
}

// WithElevatedLogLevel logs a 4xx at WARN rather than DEBUG.
func WithElevatedLogLevel() ResponseOption {
	return func(c *responseConfig) { c.warnOnClientError = true }
}

func requestLogger(r *http.Request) *slog.Logger {
	return logger.FromContextOrDefault(r.Context(), slog.Default())
}

func RespondWithJSON(w http.ResponseWriter, r *http.Request, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		requestLogger(r).Error("failed to encode JSON response", "status_code", status, "error", err)
	}
}

// RespondWithError writes message as-is. Use RespondWithErrorAndLog when
// there is an underlying error to record.
func RespondWithError(w http.ResponseWriter, r *http.Request, status int, message string) {
	traceID := GetTraceID(r.Context())
	requestLogger(r).Debug("error response",
		"method", r.Method,
		"path", r.URL.Path,
		"status_code", status,
		"trace_id", traceID)
	RespondWithJSON(w, r, status, ErrorResponse{Error: message, Code: status, TraceID: traceID})
}

// RespondWithErrorAndLog sends userMessage to the client and logs err in
// redacted form. 5xx logs at ERROR, 429 at WARN, anything else at DEBUG.
func RespondWithErrorAndLog(
	w http.ResponseWriter,
	r *http.Request,
	status int,
	userMessage string,
	err error,
	opts ...ResponseOption,
) {
	var cfg responseConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	traceID := GetTraceID(r.Context())
	attrs := []slog.Attr{
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.Int("status_code", status),
		slog.String("trace_id", traceID),
		slog.String("user_message", userMessage),
	}
	if err != nil {
		attrs = append(attrs,
			slog.String("error", redact.Error(err)),
			slog.String("error_type", fmt.Sprintf("%T", err)))
	}

	requestLogger(r).LogAttrs(r.Context(), errorLogLevel(status, cfg), "API error response", attrs...)
	RespondWithJSON(w, r, status, ErrorResponse{Error: userMessage, Code: status, TraceID: traceID})
}

func errorLogLevel(status int, cfg responseConfig) slog.Level {
	switch {
	case status >= http.StatusInternalServerError:
		return slog.LevelError
	case status == http.StatusTooManyRequests,
		cfg.warnOnClientError && status >= http.StatusBadRequest:
		return slog.LevelWarn
	default:
		return slog.LevelDebug
	}
}
