package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"

	"github.com/google/uuid"
	"github.com/phrazzld/carousel-api/internal/domain"
	"github.com/phrazzld/carousel-api/internal/platform/logger"
	"github.com/phrazzld/carousel-api/internal/store"
)

// PostgresCanvasStore implements the store.CanvasStore interface
// using a PostgreSQL database as the storage backend.
type PostgresCanvasStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresCanvasStore creates a new PostgreSQL implementation of the CanvasStore interface.
// If logger is nil, a default logger will be used.
func NewPostgresCanvasStore(db store.DBTX, logger *slog.Logger) *PostgresCanvasStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresCanvasStore{
		db:     db,
		logger: logger.With(slog.String("component", "canvas_store")),
	}
}

// Ensure PostgresCanvasStore implements store.CanvasStore interface
var _ store.CanvasStore = (*PostgresCanvasStore)(nil)

// CreateMultiple implements store.CanvasStore.CreateMultiple
// Every canvas is validated before the first insert is issued.
func (s *PostgresCanvasStore) CreateMultiple(ctx context.Context, canvases []*domain.Canvas) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if len(canvases) == 0 {
		return nil
	}

	for _, c := range canvases {
		if err := c.Validate(); err != nil {
			log.Warn("canvas validation failed during create",
				slog.String("error", err.Error()),
				slog.String("canvas_id", c.ID.String()))
			return err
		}
	}

	query := `
		INSERT INTO canvases (
			id, user_id, project_id, generation_id, position, title, subtitle, content, cta,
			background_url, layout, platform, width, height, aspect_ratio, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
	`
	for _, c := range canvases {
		_, err := s.db.ExecContext(ctx, query,
			c.ID,
			c.UserID,
			c.ProjectID,
			nullUUID(c.GenerationID),
			c.Position,
			c.Title,
			c.Subtitle,
			c.Content,
			c.CTA,
			c.BackgroundURL,
			nullJSON(c.Layout),
			string(c.Format.Platform),
			c.Format.Width,
			c.Format.Height,
			c.Format.AspectRatio,
			c.CreatedAt,
			c.UpdatedAt,
		)
		if err != nil {
			log.Error("failed to create canvas",
				slog.String("error", err.Error()),
				slog.String("canvas_id", c.ID.String()),
				slog.String("project_id", c.ProjectID.String()))
			return MapError(err)
		}
	}

	log.Info("canvases created",
		slog.Int("count", len(canvases)),
		slog.String("project_id", canvases[0].ProjectID.String()))
	return nil
}

// CreateMediaItems implements store.CanvasStore.CreateMediaItems
func (s *PostgresCanvasStore) CreateMediaItems(ctx context.Context, items []*domain.MediaItem) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		INSERT INTO media_items (id, user_id, canvas_id, kind, url, prompt, provider, cost, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	for _, m := range items {
		_, err := s.db.ExecContext(ctx, query,
			m.ID,
			m.UserID,
			m.CanvasID,
			string(m.Kind),
			m.URL,
			m.Prompt,
			m.Provider,
			m.Cost,
			m.CreatedAt,
		)
		if err != nil {
			log.Error("failed to create media item",
				slog.String("error", err.Error()),
				slog.String("media_item_id", m.ID.String()),
				slog.String("canvas_id", m.CanvasID.String()))
			return MapError(err)
		}
	}

	log.Debug("media items created", slog.Int("count", len(items)))
	return nil
}

// DeleteByGeneration implements store.CanvasStore.DeleteByGeneration.
// Media items go with their canvas through ON DELETE CASCADE.
func (s *PostgresCanvasStore) DeleteByGeneration(ctx context.Context, generationID uuid.UUID) (int64, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	result, err := s.db.ExecContext(ctx, `DELETE FROM canvases WHERE generation_id = $1`, generationID)
	if err != nil {
		log.Error("failed to delete generation canvases",
			slog.String("error", err.Error()),
			slog.String("generation_id", generationID.String()))
		return 0, MapError(err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, MapError(err)
	}
	if n > 0 {
		log.Info("removed canvases from an earlier run",
			slog.Int64("count", n),
			slog.String("generation_id", generationID.String()))
	}
	return n, nil
}

// ListByProject implements store.CanvasStore.ListByProject
func (s *PostgresCanvasStore) ListByProject(
	ctx context.Context,
	userID, projectID uuid.UUID,
) ([]*domain.Canvas, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT id, user_id, project_id, generation_id, position, title, subtitle, content, cta,
			background_url, layout, platform, width, height, aspect_ratio, created_at, updated_at
		FROM canvases
		WHERE user_id = $1 AND project_id = $2
		ORDER BY position ASC, created_at ASC
	`
	rows, err := s.db.QueryContext(ctx, query, userID, projectID)
	if err != nil {
		log.Error("failed to list canvases",
			slog.String("error", err.Error()),
			slog.String("project_id", projectID.String()))
		return nil, MapError(err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			log.Warn("failed to close rows", slog.String("error", closeErr.Error()))
		}
	}()

	canvases := []*domain.Canvas{}
	for rows.Next() {
		var (
			c            domain.Canvas
			generationID uuid.NullUUID
			layout       []byte
			platform     string
		)
		if err := rows.Scan(
			&c.ID,
			&c.UserID,
			&c.ProjectID,
			&generationID,
			&c.Position,
			&c.Title,
			&c.Subtitle,
			&c.Content,
			&c.CTA,
			&c.BackgroundURL,
			&layout,
			&platform,
			&c.Format.Width,
			&c.Format.Height,
			&c.Format.AspectRatio,
			&c.CreatedAt,
			&c.UpdatedAt,
		); err != nil {
			log.Error("failed to scan canvas row", slog.String("error", err.Error()))
			return nil, MapError(err)
		}
		if generationID.Valid {
			id := generationID.UUID
			c.GenerationID = &id
		}
		if len(layout) > 0 {
			c.Layout = json.RawMessage(layout)
		}
		c.Format.Platform = domain.Platform(platform)
		canvases = append(canvases, &c)
	}
	if err := rows.Err(); err != nil {
		log.Error("error iterating canvas rows", slog.String("error", err.Error()))
		return nil, MapError(err)
	}

	return canvases, nil
}

// WithTx implements store.CanvasStore.WithTx
func (s *PostgresCanvasStore) WithTx(tx *sql.Tx) store.CanvasStore {
	return &PostgresCanvasStore{
		db:     tx,
		logger: s.logger,
	}
}
