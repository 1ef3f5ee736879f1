package shared

import (
	"context"
	"encoding/hex"

	"github.com/google/uuid"
	"github.com/phrazzld/carousel-api/internal/platform/logger"
)

type ContextKey string

// UserIDContextKey holds the uuid.UUID set by the auth middleware.
const UserIDContextKey ContextKey = "userID"

// SetTraceID attaches a fresh trace ID where the logger package reads it,
// so service logs and error bodies share one trace_id.
func SetTraceID(ctx context.Context) context.Context {
	return logger.WithTraceID(ctx, newTraceID())
}

func GetTraceID(ctx context.Context) string {
	return logger.TraceID(ctx)
}

func WithUserID(ctx context.Context, userID uuid.UUID) context.Context {
	return context.WithValue(ctx, UserIDContextKey, userID)
}

// UserID reports false for a missing or nil user.
func UserID(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(UserIDContextKey).(uuid.UUID)
	return id, ok && id != uuid.Nil
}

// newTraceID is a random UUID rendered as 32 hex characters.
func newTraceID() string {
	id := uuid.New()
	return hex.EncodeToString(id[:])
}
