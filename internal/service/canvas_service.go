package service

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/phrazzld/carousel-api/internal/domain"
	"github.com/phrazzld/carousel-api/internal/store"
)

// CanvasService persists generated canvases and lists a project's slides.
type CanvasService interface {
	// ReplaceGenerationCanvases stores canvases together with their media
	// items in a single transaction, first removing any canvases an earlier
	// run of the same generation left behind.
	ReplaceGenerationCanvases(
		ctx context.Context,
		generationID uuid.UUID,
		canvases []*domain.Canvas,
		media []*domain.MediaItem,
	) error

	// AttachMedia stores media items for existing canvases.
	AttachMedia(ctx context.Context, items []*domain.MediaItem) error

	// ListProjectCanvases returns a user's canvases of a project in slide order.
	ListProjectCanvases(ctx context.Context, userID, projectID uuid.UUID) ([]*domain.Canvas, error)
}

type canvasServiceImpl struct {
	canvasStore store.CanvasStore
	db          *sql.DB
	logger      *slog.Logger
}

var _ CanvasService = (*canvasServiceImpl)(nil)

// NewCanvasService creates a new CanvasService.
func NewCanvasService(canvasStore store.CanvasStore, db *sql.DB, logger *slog.Logger) (CanvasService, error) {
	if canvasStore == nil {
		return nil, fmt.Errorf("canvasStore cannot be nil")
	}
	if db == nil {
		return nil, fmt.Errorf("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &canvasServiceImpl{
		canvasStore: canvasStore,
		db:          db,
		logger:      logger.With("component", "canvas_service"),
	}, nil
}

func (s *canvasServiceImpl) ReplaceGenerationCanvases(
	ctx context.Context,
	generationID uuid.UUID,
	canvases []*domain.Canvas,
	media []*domain.MediaItem,
) error {
	if len(canvases) == 0 {
		return nil
	}

	err := store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		txStore := s.canvasStore.WithTx(tx)
		if _, err := txStore.DeleteByGeneration(ctx, generationID); err != nil {
			return fmt.Errorf("failed to clear previous canvases: %w", err)
		}
		if err := txStore.CreateMultiple(ctx, canvases); err != nil {
			return fmt.Errorf("failed to create canvases: %w", err)
		}
		if len(media) > 0 {
			if err := txStore.CreateMediaItems(ctx, media); err != nil {
				return fmt.Errorf("failed to create media items: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		s.logger.Error("failed to persist canvases",
			"error", err,
			"canvas_count", len(canvases),
			"generation_id", generationID,
			"project_id", canvases[0].ProjectID)
		return err
	}

	s.logger.Info("canvases persisted",
		"canvas_count", len(canvases),
		"media_count", len(media),
		"generation_id", generationID,
		"project_id", canvases[0].ProjectID)
	return nil
}

func (s *canvasServiceImpl) AttachMedia(ctx context.Context, items []*domain.MediaItem) error {
	if len(items) == 0 {
		return nil
	}
	if err := s.canvasStore.CreateMediaItems(ctx, items); err != nil {
		s.logger.Error("failed to attach media", "error", err, "media_count", len(items))
		return fmt.Errorf("failed to attach media: %w", err)
	}
	return nil
}

func (s *canvasServiceImpl) ListProjectCanvases(
	ctx context.Context,
	userID, projectID uuid.UUID,
) ([]*domain.Canvas, error) {
	canvases, err := s.canvasStore.ListByProject(ctx, userID, projectID)
	if err != nil {
		s.logger.Error("failed to list canvases",
			"error", err,
			"project_id", projectID)
		return nil, fmt.Errorf("failed to list canvases: %w", err)
	}
	return canvases, nil
}
