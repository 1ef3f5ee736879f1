package postgres

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/phrazzld/carousel-api/internal/domain"
	"github.com/phrazzld/carousel-api/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var generationColumnNames = []string{
	"id", "user_id", "project_id", "canvas_id", "type", "status", "prompt", "options",
	"progress", "current_step", "estimated_time_remaining", "result_data", "cost",
	"start_time", "completed_time", "created_at", "updated_at",
}

func newGenerationStoreMock(t *testing.T) (*PostgresGenerationStore, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewPostgresGenerationStore(db, nil), mock, db
}

func newTestGeneration(t *testing.T) *domain.Generation {
	t.Helper()
	g, err := domain.NewGeneration(uuid.New(), domain.GenerationTypeCarousel, "Ten tips for better sleep",
		domain.GenerationOptions{SlideCount: 5})
	require.NoError(t, err)
	return g
}

func TestPostgresGenerationStore_Create(t *testing.T) {
	t.Parallel()

	t.Run("inserts the record", func(t *testing.T) {
		s, mock, _ := newGenerationStoreMock(t)
		g := newTestGeneration(t)

		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO generations")).
			WithArgs(g.ID, g.UserID, sqlmock.AnyArg(), sqlmock.AnyArg(), "carousel", "pending",
				g.Prompt, sqlmock.AnyArg(), 0, "", nil, nil, 0.0, nil, nil,
				sqlmock.AnyArg(), sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, s.Create(context.Background(), g))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rejects invalid generation without touching the database", func(t *testing.T) {
		s, mock, _ := newGenerationStoreMock(t)
		g := newTestGeneration(t)
		g.Prompt = ""

		err := s.Create(context.Background(), g)
		assert.ErrorIs(t, err, domain.ErrGenerationPromptEmpty)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("maps driver failures to persistence errors", func(t *testing.T) {
		s, mock, _ := newGenerationStoreMock(t)
		g := newTestGeneration(t)

		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO generations")).
			WillReturnError(errors.New("connection reset by peer"))

		err := s.Create(context.Background(), g)
		assert.ErrorIs(t, err, store.ErrPersistence)
	})
}

func TestPostgresGenerationStore_GetByID(t *testing.T) {
	t.Parallel()

	t.Run("scans every column", func(t *testing.T) {
		s, mock, _ := newGenerationStoreMock(t)
		id := uuid.New()
		userID := uuid.New()
		projectID := uuid.New()
		started := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
		created := started.Add(-time.Minute)

		rows := sqlmock.NewRows(generationColumnNames).AddRow(
			id.String(), userID.String(), projectID.String(), nil, "carousel", "generating",
			"Five productivity hacks", []byte(`{"slideCount":5,"platform":"linkedin"}`),
			45, "images", int64(120), []byte(`{"slides":[]}`), 0.04,
			started, nil, created, started,
		)
		mock.ExpectQuery(regexp.QuoteMeta("FROM generations WHERE id = $1")).
			WithArgs(id).
			WillReturnRows(rows)

		g, err := s.GetByID(context.Background(), id)
		require.NoError(t, err)

		assert.Equal(t, id, g.ID)
		assert.Equal(t, userID, g.UserID)
		require.NotNil(t, g.ProjectID)
		assert.Equal(t, projectID, *g.ProjectID)
		assert.Nil(t, g.CanvasID)
		assert.Equal(t, domain.GenerationStatusGenerating, g.Status)
		assert.Equal(t, domain.GenerationStepImages, g.CurrentStep)
		assert.Equal(t, 45, g.Progress)
		require.NotNil(t, g.EstimatedTimeRemaining)
		assert.Equal(t, 120, *g.EstimatedTimeRemaining)
		assert.JSONEq(t, `{"slides":[]}`, string(g.ResultData))
		assert.Equal(t, 5, g.Options.SlideCount)
		assert.Equal(t, domain.PlatformLinkedIn, g.Options.Platform)
		require.NotNil(t, g.StartTime)
		assert.True(t, started.Equal(*g.StartTime))
		assert.Nil(t, g.CompletedTime)
	})

	t.Run("not found", func(t *testing.T) {
		s, mock, _ := newGenerationStoreMock(t)
		id := uuid.New()

		mock.ExpectQuery(regexp.QuoteMeta("FROM generations WHERE id = $1")).
			WithArgs(id).
			WillReturnRows(sqlmock.NewRows(generationColumnNames))

		_, err := s.GetByID(context.Background(), id)
		assert.ErrorIs(t, err, store.ErrGenerationNotFound)
		assert.True(t, store.IsNotFoundError(err))
	})

	t.Run("for update locks the row", func(t *testing.T) {
		s, mock, _ := newGenerationStoreMock(t)
		id := uuid.New()

		mock.ExpectQuery(regexp.QuoteMeta("WHERE id = $1 FOR UPDATE")).
			WithArgs(id).
			WillReturnRows(sqlmock.NewRows(generationColumnNames))

		_, err := s.GetByIDForUpdate(context.Background(), id)
		assert.ErrorIs(t, err, store.ErrGenerationNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPostgresGenerationStore_Update(t *testing.T) {
	t.Parallel()

	t.Run("writes mutable fields", func(t *testing.T) {
		s, mock, _ := newGenerationStoreMock(t)
		g := newTestGeneration(t)
		step := domain.GenerationStepText
		progress := 5
		require.NoError(t, g.ApplyPatch(domain.StatusPatch{
			Status:      domain.GenerationStatusGenerating,
			Progress:    &progress,
			CurrentStep: &step,
		}, time.Now()))

		mock.ExpectExec(regexp.QuoteMeta("UPDATE generations")).
			WithArgs(sqlmock.AnyArg(), "generating", 5, "text", nil, nil, 0.0,
				sqlmock.AnyArg(), nil, sqlmock.AnyArg(), g.ID).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, s.Update(context.Background(), g))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing row", func(t *testing.T) {
		s, mock, _ := newGenerationStoreMock(t)
		g := newTestGeneration(t)

		mock.ExpectExec(regexp.QuoteMeta("UPDATE generations")).
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := s.Update(context.Background(), g)
		assert.ErrorIs(t, err, store.ErrGenerationNotFound)
	})
}

func TestPostgresGenerationStore_List(t *testing.T) {
	t.Parallel()

	t.Run("applies filters and pagination", func(t *testing.T) {
		s, mock, _ := newGenerationStoreMock(t)
		userID := uuid.New()
		projectID := uuid.New()
		status := domain.GenerationStatusCompleted
		now := time.Now().UTC()

		rows := sqlmock.NewRows(generationColumnNames).
			AddRow(uuid.New().String(), userID.String(), projectID.String(), nil, "carousel", "completed",
				"first", []byte(`{}`), 100, "complete", int64(0), nil, 0.1, now, now, now, now).
			AddRow(uuid.New().String(), userID.String(), projectID.String(), nil, "text", "completed",
				"second", []byte(`{}`), 100, "complete", int64(0), nil, 0.0, now, now, now, now)

		mock.ExpectQuery(regexp.QuoteMeta(
			"WHERE user_id = $1 AND project_id = $2 AND status = $3 ORDER BY created_at DESC LIMIT $4 OFFSET $5",
		)).
			WithArgs(userID, projectID, "completed", store.MaxListLimit, 10).
			WillReturnRows(rows)

		got, err := s.List(context.Background(), store.GenerationFilter{
			UserID:    userID,
			ProjectID: &projectID,
			Status:    &status,
			Limit:     500,
			Offset:    10,
		})
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "first", got[0].Prompt)
		assert.Equal(t, domain.GenerationTypeText, got[1].Type)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("defaults and empty result", func(t *testing.T) {
		s, mock, _ := newGenerationStoreMock(t)
		userID := uuid.New()

		mock.ExpectQuery(regexp.QuoteMeta("WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3")).
			WithArgs(userID, store.DefaultListLimit, 0).
			WillReturnRows(sqlmock.NewRows(generationColumnNames))

		got, err := s.List(context.Background(), store.GenerationFilter{UserID: userID})
		require.NoError(t, err)
		assert.Empty(t, got)
		assert.NotNil(t, got)
	})
}

func TestPostgresGenerationStore_Delete(t *testing.T) {
	t.Parallel()

	s, mock, _ := newGenerationStoreMock(t)
	id := uuid.New()

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM generations WHERE id = $1")).
		WithArgs(id).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM generations WHERE id = $1")).
		WithArgs(id).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, s.Delete(context.Background(), id))
	assert.ErrorIs(t, s.Delete(context.Background(), id), store.ErrGenerationNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresGenerationStore_WithTx(t *testing.T) {
	t.Parallel()

	s, mock, db := newGenerationStoreMock(t)
	g := newTestGeneration(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO generations")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := store.RunInTransaction(context.Background(), db, func(ctx context.Context, tx *sql.Tx) error {
		return s.WithTx(tx).Create(ctx, g)
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScanGeneration_CorruptOptions(t *testing.T) {
	t.Parallel()

	s, mock, _ := newGenerationStoreMock(t)
	id := uuid.New()
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta("FROM generations")).
		WillReturnRows(sqlmock.NewRows(generationColumnNames).AddRow(
			id.String(), uuid.New().String(), nil, nil, "text", "pending", "p",
			[]byte(`{not json`), 0, "", nil, nil, 0.0, nil, nil, now, now))

	_, err := s.GetByID(context.Background(), id)
	assert.ErrorIs(t, err, store.ErrPersistence)
}
