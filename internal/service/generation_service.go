package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/phrazzld/carousel-api/internal/domain"
	"github.com/phrazzld/carousel-api/internal/events"
	"github.com/phrazzld/carousel-api/internal/redact"
	"github.com/phrazzld/carousel-api/internal/store"
)

// CreateGenerationInput holds the fields of a new generation request.
type CreateGenerationInput struct {
	Type      domain.GenerationType
	Prompt    string
	Options   domain.GenerationOptions
	ProjectID *uuid.UUID
	CanvasID  *uuid.UUID
}

// GenerationService manages the lifecycle of generation records. Every
// operation addressing a single record checks that userID owns it.
type GenerationService interface {
	// CreateGeneration stores a pending generation and requests its processing.
	CreateGeneration(ctx context.Context, userID uuid.UUID, in CreateGenerationInput) (*domain.Generation, error)

	// GetGeneration retrieves a generation owned by userID.
	GetGeneration(ctx context.Context, userID, id uuid.UUID) (*domain.Generation, error)

	// ListGenerations returns the generations matching filter, newest first.
	ListGenerations(ctx context.Context, filter store.GenerationFilter) ([]*domain.Generation, error)

	// UpdateGenerationStatus applies patch through the status state machine
	// and returns the updated record.
	UpdateGenerationStatus(
		ctx context.Context,
		userID, id uuid.UUID,
		patch domain.StatusPatch,
	) (*domain.Generation, error)

	// DeleteGeneration removes a generation owned by userID.
	DeleteGeneration(ctx context.Context, userID, id uuid.UUID) error
}

// generationServiceImpl implements the GenerationService interface
type generationServiceImpl struct {
	generationStore store.GenerationStore
	db              *sql.DB
	eventEmitter    events.EventEmitter
	validate        *validator.Validate
	logger          *slog.Logger
	now             func() time.Time
}

var _ GenerationService = (*generationServiceImpl)(nil)

// NewGenerationService creates a new GenerationService.
// It returns an error if any of the required dependencies are nil.
func NewGenerationService(
	generationStore store.GenerationStore,
	db *sql.DB,
	eventEmitter events.EventEmitter,
	logger *slog.Logger,
) (GenerationService, error) {
	if generationStore == nil {
		return nil, &GenerationServiceError{Operation: "create_service", Message: "generationStore cannot be nil"}
	}
	if db == nil {
		return nil, &GenerationServiceError{Operation: "create_service", Message: "db cannot be nil"}
	}
	if eventEmitter == nil {
		return nil, &GenerationServiceError{Operation: "create_service", Message: "eventEmitter cannot be nil"}
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &generationServiceImpl{
		generationStore: generationStore,
		db:              db,
		eventEmitter:    eventEmitter,
		validate:        validator.New(),
		logger:          logger.With("component", "generation_service"),
		now:             time.Now,
	}, nil
}

// CreateGeneration creates a pending generation and emits the event that
// schedules its processing. Carousels without a project get a new one so
// their canvases can be grouped.
func (s *generationServiceImpl) CreateGeneration(
	ctx context.Context,
	userID uuid.UUID,
	in CreateGenerationInput,
) (*domain.Generation, error) {
	if err := s.validate.Struct(in.Options); err != nil {
		return nil, fmt.Errorf("%w: invalid options: %v", domain.ErrValidation, err)
	}

	gen, err := domain.NewGeneration(userID, in.Type, in.Prompt, in.Options)
	if err != nil {
		s.logger.Debug("rejected generation request", "error", err, "user_id", userID)
		if !errors.Is(err, domain.ErrValidation) {
			err = fmt.Errorf("%w: %w", domain.ErrValidation, err)
		}
		return nil, err
	}
	gen.ProjectID = in.ProjectID
	gen.CanvasID = in.CanvasID
	if gen.Type == domain.GenerationTypeCarousel && gen.ProjectID == nil {
		project := uuid.New()
		gen.ProjectID = &project
	}

	err = store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		if err := s.generationStore.WithTx(tx).Create(ctx, gen); err != nil {
			s.logger.Error("failed to create generation in transaction",
				"error", err,
				"user_id", userID,
				"generation_id", gen.ID)
			return NewGenerationServiceError("create_generation", "failed to save generation to database", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("generation created with pending status",
		"generation_id", gen.ID,
		"user_id", userID,
		"generation_type", gen.Type)

	event, err := events.NewGenerationRequestedEvent(gen.ID, userID)
	if err == nil {
		err = s.eventEmitter.EmitEvent(ctx, event)
	}
	if err != nil {
		s.logger.Error("failed to request generation processing",
			"error", err,
			"generation_id", gen.ID,
			"user_id", userID)
		s.markUnscheduled(ctx, gen, err)
		return nil, NewGenerationServiceError("create_generation", "failed to schedule generation", err)
	}

	return gen, nil
}

// markUnscheduled fails a generation whose processing could not be
// requested, so it does not stay pending forever.
func (s *generationServiceImpl) markUnscheduled(ctx context.Context, gen *domain.Generation, cause error) {
	data, _ := json.Marshal(map[string]string{
		"error": "failed to schedule generation: " + redact.Error(cause),
		"kind":  "scheduling",
	})
	if _, err := s.UpdateGenerationStatus(ctx, gen.UserID, gen.ID, domain.StatusPatch{
		Status:     domain.GenerationStatusFailed,
		ResultData: data,
	}); err != nil {
		s.logger.Error("failed to mark unscheduled generation failed",
			"error", err,
			"generation_id", gen.ID)
	}
}

// GetGeneration retrieves a generation owned by userID
func (s *generationServiceImpl) GetGeneration(ctx context.Context, userID, id uuid.UUID) (*domain.Generation, error) {
	gen, err := s.generationStore.GetByID(ctx, id)
	if err != nil {
		if !errors.Is(err, store.ErrGenerationNotFound) {
			s.logger.Error("failed to retrieve generation",
				"error", err,
				"generation_id", id)
		}
		return nil, NewGenerationServiceError("get_generation", "failed to retrieve generation", err)
	}

	if !gen.IsOwnedBy(userID) {
		s.logger.Warn("generation accessed by non-owner",
			"generation_id", id,
			"user_id", userID)
		return nil, ErrNotOwned
	}

	return gen, nil
}

// ListGenerations returns the caller's generations matching filter
func (s *generationServiceImpl) ListGenerations(
	ctx context.Context,
	filter store.GenerationFilter,
) ([]*domain.Generation, error) {
	if filter.UserID == uuid.Nil {
		return nil, fmt.Errorf("%w: user ID is required", domain.ErrValidation)
	}
	if filter.Status != nil && !filter.Status.IsValid() {
		return nil, fmt.Errorf("%w: %w %q", domain.ErrValidation, domain.ErrInvalidGenerationState, *filter.Status)
	}

	gens, err := s.generationStore.List(ctx, filter.Normalize())
	if err != nil {
		s.logger.Error("failed to list generations",
			"error", err,
			"user_id", filter.UserID)
		return nil, NewGenerationServiceError("list_generations", "failed to list generations", err)
	}
	return gens, nil
}

// UpdateGenerationStatus applies patch under a row lock so concurrent
// updates of one generation are serialized.
func (s *generationServiceImpl) UpdateGenerationStatus(
	ctx context.Context,
	userID, id uuid.UUID,
	patch domain.StatusPatch,
) (*domain.Generation, error) {
	var updated *domain.Generation

	err := store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		txStore := s.generationStore.WithTx(tx)

		gen, err := txStore.GetByIDForUpdate(ctx, id)
		if err != nil {
			return NewGenerationServiceError("update_generation_status", "failed to retrieve generation", err)
		}
		if !gen.IsOwnedBy(userID) {
			s.logger.Warn("status update by non-owner",
				"generation_id", id,
				"user_id", userID)
			return ErrNotOwned
		}

		previous := gen.Status
		if err := gen.ApplyPatch(patch, s.now()); err != nil {
			s.logger.Debug("rejected status patch",
				"error", err,
				"generation_id", id,
				"current_status", previous,
				"target_status", patch.Status)
			return NewGenerationServiceError(
				"update_generation_status",
				fmt.Sprintf("cannot apply %s patch", patch.Status),
				err,
			)
		}

		if err := txStore.Update(ctx, gen); err != nil {
			s.logger.Error("failed to save generation status",
				"error", err,
				"generation_id", id,
				"status", gen.Status)
			return NewGenerationServiceError(
				"update_generation_status",
				fmt.Sprintf("failed to save generation with status %s", gen.Status),
				err,
			)
		}

		if previous != gen.Status {
			s.logger.Info("generation status updated",
				"generation_id", id,
				"from", previous,
				"to", gen.Status,
				"progress", gen.Progress)
		}
		updated = gen
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// DeleteGeneration removes a generation owned by userID
func (s *generationServiceImpl) DeleteGeneration(ctx context.Context, userID, id uuid.UUID) error {
	return store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		txStore := s.generationStore.WithTx(tx)

		gen, err := txStore.GetByIDForUpdate(ctx, id)
		if err != nil {
			return NewGenerationServiceError("delete_generation", "failed to retrieve generation", err)
		}
		if !gen.IsOwnedBy(userID) {
			return ErrNotOwned
		}

		if err := txStore.Delete(ctx, id); err != nil {
			s.logger.Error("failed to delete generation",
				"error", err,
				"generation_id", id)
			return NewGenerationServiceError("delete_generation", "failed to delete generation", err)
		}

		s.logger.Info("generation deleted",
			"generation_id", id,
			"user_id", userID)
		return nil
	})
}
