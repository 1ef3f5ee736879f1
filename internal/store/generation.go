package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/phrazzld/carousel-api/internal/domain"
)

// List pagination bounds
const (
	DefaultListLimit = 20
	MaxListLimit     = 100
)

// GenerationFilter selects the generations returned by List. UserID is
// required; nil pointers leave a dimension unfiltered.
type GenerationFilter struct {
	UserID    uuid.UUID
	ProjectID *uuid.UUID
	Status    *domain.GenerationStatus
	Limit     int
	Offset    int
}

// Normalize clamps pagination to the supported bounds.
func (f GenerationFilter) Normalize() GenerationFilter {
	if f.Limit <= 0 {
		f.Limit = DefaultListLimit
	}
	if f.Limit > MaxListLimit {
		f.Limit = MaxListLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return f
}

// GenerationStore defines the interface for generation record persistence.
type GenerationStore interface {
	// Create saves a new generation. Returns validation errors from the
	// domain Generation if data is invalid.
	Create(ctx context.Context, g *domain.Generation) error

	// GetByID retrieves a generation by its unique ID.
	// Returns ErrGenerationNotFound if the generation does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Generation, error)

	// GetByIDForUpdate retrieves a generation and locks its row until the
	// surrounding transaction ends. It must be called on a store returned by
	// WithTx so concurrent status updates for one id are serialized.
	GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*domain.Generation, error)

	// Update saves every mutable field of an existing generation.
	// Returns ErrGenerationNotFound if the generation does not exist.
	Update(ctx context.Context, g *domain.Generation) error

	// List returns the generations matching filter, newest first.
	List(ctx context.Context, filter GenerationFilter) ([]*domain.Generation, error)

	// Delete removes a generation. Returns ErrGenerationNotFound if the
	// generation does not exist.
	Delete(ctx context.Context, id uuid.UUID) error

	// WithTx returns a new GenerationStore instance that uses the provided transaction.
	WithTx(tx *sql.Tx) GenerationStore
}
