package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/phrazzld/carousel-api/internal/domain"
)

// CanvasStore defines the interface for canvas and media item persistence.
type CanvasStore interface {
	// CreateMultiple saves canvases. It should run within a transaction
	// together with CreateMediaItems so a carousel is persisted atomically.
	CreateMultiple(ctx context.Context, canvases []*domain.Canvas) error

	// CreateMediaItems saves media items attached to existing canvases.
	CreateMediaItems(ctx context.Context, items []*domain.MediaItem) error

	// DeleteByGeneration removes the canvases produced by a generation,
	// together with their media items, and reports how many were removed.
	DeleteByGeneration(ctx context.Context, generationID uuid.UUID) (int64, error)

	// ListByProject returns a user's canvases of a project ordered by position.
	// Returns an empty slice when the project has no canvases.
	ListByProject(ctx context.Context, userID, projectID uuid.UUID) ([]*domain.Canvas, error)

	// WithTx returns a new CanvasStore instance that uses the provided transaction.
	WithTx(tx *sql.Tx) CanvasStore
}
