package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/phrazzld/carousel-api/internal/domain"
	"github.com/phrazzld/carousel-api/internal/events"
	"github.com/phrazzld/carousel-api/internal/store"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockGenerationStore mocks store.GenerationStore. WithTx returns the same
// mock so expectations hold inside transactions.
type MockGenerationStore struct {
	mock.Mock
}

func (m *MockGenerationStore) Create(ctx context.Context, g *domain.Generation) error {
	args := m.Called(ctx, g)
	return args.Error(0)
}

func (m *MockGenerationStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Generation, error) {
	args := m.Called(ctx, id)
	gen, _ := args.Get(0).(*domain.Generation)
	return gen, args.Error(1)
}

func (m *MockGenerationStore) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*domain.Generation, error) {
	args := m.Called(ctx, id)
	gen, _ := args.Get(0).(*domain.Generation)
	return gen, args.Error(1)
}

func (m *MockGenerationStore) Update(ctx context.Context, g *domain.Generation) error {
	args := m.Called(ctx, g)
	return args.Error(0)
}

func (m *MockGenerationStore) List(
	ctx context.Context,
	filter store.GenerationFilter,
) ([]*domain.Generation, error) {
	args := m.Called(ctx, filter)
	gens, _ := args.Get(0).([]*domain.Generation)
	return gens, args.Error(1)
}

func (m *MockGenerationStore) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockGenerationStore) WithTx(_ *sql.Tx) store.GenerationStore {
	return m
}

// MockCanvasStore mocks store.CanvasStore
type MockCanvasStore struct {
	mock.Mock
}

func (m *MockCanvasStore) CreateMultiple(ctx context.Context, canvases []*domain.Canvas) error {
	args := m.Called(ctx, canvases)
	return args.Error(0)
}

func (m *MockCanvasStore) CreateMediaItems(ctx context.Context, items []*domain.MediaItem) error {
	args := m.Called(ctx, items)
	return args.Error(0)
}

func (m *MockCanvasStore) DeleteByGeneration(ctx context.Context, generationID uuid.UUID) (int64, error) {
	args := m.Called(ctx, generationID)
	n, _ := args.Get(0).(int64)
	return n, args.Error(1)
}

func (m *MockCanvasStore) ListByProject(
	ctx context.Context,
	userID, projectID uuid.UUID,
) ([]*domain.Canvas, error) {
	args := m.Called(ctx, userID, projectID)
	canvases, _ := args.Get(0).([]*domain.Canvas)
	return canvases, args.Error(1)
}

func (m *MockCanvasStore) WithTx(_ *sql.Tx) store.CanvasStore {
	return m
}

// MockEventEmitter mocks events.EventEmitter
type MockEventEmitter struct {
	mock.Mock
}

func (m *MockEventEmitter) EmitEvent(ctx context.Context, event *events.TaskRequestEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

// newMockDB returns a sqlmock-backed *sql.DB whose expectations are
// verified when the test ends.
func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, mock.ExpectationsWereMet())
		_ = db.Close()
	})
	return db, mock
}
