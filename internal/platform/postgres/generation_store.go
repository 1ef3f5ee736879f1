package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/carousel-api/internal/domain"
	"github.com/phrazzld/carousel-api/internal/platform/logger"
	"github.com/phrazzld/carousel-api/internal/store"
)

const generationColumns = `id, user_id, project_id, canvas_id, type, status, prompt, options,
	progress, current_step, estimated_time_remaining, result_data, cost,
	start_time, completed_time, created_at, updated_at`

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// PostgresGenerationStore implements the store.GenerationStore interface
// using a PostgreSQL database as the storage backend.
type PostgresGenerationStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresGenerationStore creates a new PostgreSQL implementation of the GenerationStore interface.
// If logger is nil, a default logger will be used.
func NewPostgresGenerationStore(db store.DBTX, logger *slog.Logger) *PostgresGenerationStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresGenerationStore{
		db:     db,
		logger: logger.With(slog.String("component", "generation_store")),
	}
}

// Ensure PostgresGenerationStore implements store.GenerationStore interface
var _ store.GenerationStore = (*PostgresGenerationStore)(nil)

// Create implements store.GenerationStore.Create
func (s *PostgresGenerationStore) Create(ctx context.Context, g *domain.Generation) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := g.Validate(); err != nil {
		log.Warn("generation validation failed during create",
			slog.String("error", err.Error()),
			slog.String("generation_id", g.ID.String()))
		return err
	}

	options, err := json.Marshal(g.Options)
	if err != nil {
		return fmt.Errorf("%w: failed to encode options: %v", store.ErrInvalidEntity, err)
	}

	query := `
		INSERT INTO generations (` + generationColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
	`
	_, err = s.db.ExecContext(ctx, query,
		g.ID,
		g.UserID,
		nullUUID(g.ProjectID),
		nullUUID(g.CanvasID),
		string(g.Type),
		string(g.Status),
		g.Prompt,
		string(options),
		g.Progress,
		string(g.CurrentStep),
		nullInt(g.EstimatedTimeRemaining),
		nullJSON(g.ResultData),
		g.Cost,
		nullTime(g.StartTime),
		nullTime(g.CompletedTime),
		g.CreatedAt,
		g.UpdatedAt,
	)
	if err != nil {
		log.Error("failed to create generation",
			slog.String("error", err.Error()),
			slog.String("generation_id", g.ID.String()),
			slog.String("user_id", g.UserID.String()))
		return MapError(err)
	}

	log.Info("generation created",
		slog.String("generation_id", g.ID.String()),
		slog.String("user_id", g.UserID.String()),
		slog.String("type", string(g.Type)))
	return nil
}

// GetByID implements store.GenerationStore.GetByID
func (s *PostgresGenerationStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Generation, error) {
	return s.get(ctx, id, false)
}

// GetByIDForUpdate implements store.GenerationStore.GetByIDForUpdate
func (s *PostgresGenerationStore) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*domain.Generation, error) {
	return s.get(ctx, id, true)
}

func (s *PostgresGenerationStore) get(ctx context.Context, id uuid.UUID, lock bool) (*domain.Generation, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `SELECT ` + generationColumns + ` FROM generations WHERE id = $1`
	if lock {
		query += ` FOR UPDATE`
	}

	g, err := scanGeneration(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("generation not found", slog.String("generation_id", id.String()))
			return nil, store.ErrGenerationNotFound
		}
		log.Error("failed to get generation by ID",
			slog.String("error", err.Error()),
			slog.String("generation_id", id.String()))
		return nil, MapError(err)
	}

	return g, nil
}

// Update implements store.GenerationStore.Update
func (s *PostgresGenerationStore) Update(ctx context.Context, g *domain.Generation) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := g.Validate(); err != nil {
		log.Warn("generation validation failed during update",
			slog.String("error", err.Error()),
			slog.String("generation_id", g.ID.String()))
		return err
	}

	query := `
		UPDATE generations
		SET project_id = $1, status = $2, progress = $3, current_step = $4,
			estimated_time_remaining = $5, result_data = $6, cost = $7,
			start_time = $8, completed_time = $9, updated_at = $10
		WHERE id = $11
	`
	result, err := s.db.ExecContext(ctx, query,
		nullUUID(g.ProjectID),
		string(g.Status),
		g.Progress,
		string(g.CurrentStep),
		nullInt(g.EstimatedTimeRemaining),
		nullJSON(g.ResultData),
		g.Cost,
		nullTime(g.StartTime),
		nullTime(g.CompletedTime),
		g.UpdatedAt,
		g.ID,
	)
	if err != nil {
		log.Error("failed to update generation",
			slog.String("error", err.Error()),
			slog.String("generation_id", g.ID.String()))
		return MapError(err)
	}

	if err := CheckRowsAffected(result, store.ErrGenerationNotFound); err != nil {
		return err
	}

	log.Debug("generation updated",
		slog.String("generation_id", g.ID.String()),
		slog.String("status", string(g.Status)),
		slog.Int("progress", g.Progress),
		slog.String("step", string(g.CurrentStep)))
	return nil
}

// List implements store.GenerationStore.List
func (s *PostgresGenerationStore) List(
	ctx context.Context,
	filter store.GenerationFilter,
) ([]*domain.Generation, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)
	filter = filter.Normalize()

	conditions := []string{"user_id = $1"}
	args := []any{filter.UserID}
	if filter.ProjectID != nil {
		args = append(args, *filter.ProjectID)
		conditions = append(conditions, fmt.Sprintf("project_id = $%d", len(args)))
	}
	if filter.Status != nil {
		args = append(args, string(*filter.Status))
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}
	args = append(args, filter.Limit, filter.Offset)

	query := fmt.Sprintf(
		`SELECT %s FROM generations WHERE %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		generationColumns,
		strings.Join(conditions, " AND "),
		len(args)-1,
		len(args),
	)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to list generations",
			slog.String("error", err.Error()),
			slog.String("user_id", filter.UserID.String()))
		return nil, MapError(err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			log.Warn("failed to close rows", slog.String("error", closeErr.Error()))
		}
	}()

	generations := make([]*domain.Generation, 0, filter.Limit)
	for rows.Next() {
		g, err := scanGeneration(rows)
		if err != nil {
			log.Error("failed to scan generation row", slog.String("error", err.Error()))
			return nil, MapError(err)
		}
		generations = append(generations, g)
	}
	if err := rows.Err(); err != nil {
		log.Error("error iterating generation rows", slog.String("error", err.Error()))
		return nil, MapError(err)
	}

	return generations, nil
}

// Delete implements store.GenerationStore.Delete
func (s *PostgresGenerationStore) Delete(ctx context.Context, id uuid.UUID) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	result, err := s.db.ExecContext(ctx, `DELETE FROM generations WHERE id = $1`, id)
	if err != nil {
		log.Error("failed to delete generation",
			slog.String("error", err.Error()),
			slog.String("generation_id", id.String()))
		return MapError(err)
	}

	if err := CheckRowsAffected(result, store.ErrGenerationNotFound); err != nil {
		return err
	}

	log.Info("generation deleted", slog.String("generation_id", id.String()))
	return nil
}

// WithTx implements store.GenerationStore.WithTx
func (s *PostgresGenerationStore) WithTx(tx *sql.Tx) store.GenerationStore {
	return &PostgresGenerationStore{
		db:     tx,
		logger: s.logger,
	}
}

func scanGeneration(row rowScanner) (*domain.Generation, error) {
	var (
		g             domain.Generation
		projectID     uuid.NullUUID
		canvasID      uuid.NullUUID
		genType       string
		status        string
		options       []byte
		step          string
		eta           sql.NullInt64
		resultData    []byte
		startTime     sql.NullTime
		completedTime sql.NullTime
	)

	err := row.Scan(
		&g.ID,
		&g.UserID,
		&projectID,
		&canvasID,
		&genType,
		&status,
		&g.Prompt,
		&options,
		&g.Progress,
		&step,
		&eta,
		&resultData,
		&g.Cost,
		&startTime,
		&completedTime,
		&g.CreatedAt,
		&g.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(options) > 0 {
		if err := json.Unmarshal(options, &g.Options); err != nil {
			return nil, fmt.Errorf("%w: corrupt options for generation %s: %v", store.ErrPersistence, g.ID, err)
		}
	}
	if projectID.Valid {
		id := projectID.UUID
		g.ProjectID = &id
	}
	if canvasID.Valid {
		id := canvasID.UUID
		g.CanvasID = &id
	}
	if eta.Valid {
		v := int(eta.Int64)
		g.EstimatedTimeRemaining = &v
	}
	if len(resultData) > 0 {
		g.ResultData = json.RawMessage(resultData)
	}
	if startTime.Valid {
		t := startTime.Time.UTC()
		g.StartTime = &t
	}
	if completedTime.Valid {
		t := completedTime.Time.UTC()
		g.CompletedTime = &t
	}
	g.Type = domain.GenerationType(genType)
	g.Status = domain.GenerationStatus(status)
	g.CurrentStep = domain.GenerationStep(step)

	return &g, nil
}

func nullUUID(id *uuid.UUID) uuid.NullUUID {
	if id == nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: *id, Valid: true}
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

func nullJSON(raw json.RawMessage) sql.NullString {
	if len(raw) == 0 {
		return sql.NullString{}
	}
	return sql.NullString{String: string(raw), Valid: true}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
