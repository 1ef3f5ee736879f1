package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/phrazzld/carousel-api/internal/domain"
	"github.com/phrazzld/carousel-api/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newCanvasFixture(t *testing.T, n int) ([]*domain.Canvas, []*domain.MediaItem) {
	t.Helper()
	userID, projectID := uuid.New(), uuid.New()
	format := domain.PlatformInstagram.Format()

	var (
		canvases []*domain.Canvas
		media    []*domain.MediaItem
	)
	for i := 0; i < n; i++ {
		c, err := domain.NewCanvas(userID, projectID, i, format)
		require.NoError(t, err)
		item, err := domain.NewMediaItem(c, domain.MediaKindBackground, "https://img.example.com/bg.png", "bg", "runware", 0.01)
		require.NoError(t, err)
		canvases = append(canvases, c)
		media = append(media, item)
	}
	return canvases, media
}

func TestCanvasService_ReplaceGenerationCanvases(t *testing.T) {
	generationID := uuid.New()

	t.Run("clears earlier run then inserts in one transaction", func(t *testing.T) {
		db, sqlMock := newMockDB(t)
		canvasStore := &MockCanvasStore{}
		svc, err := NewCanvasService(canvasStore, db, nil)
		require.NoError(t, err)

		canvases, media := newCanvasFixture(t, 3)
		expectCommit(sqlMock)
		deleted := canvasStore.On("DeleteByGeneration", mock.Anything, generationID).Return(int64(3), nil)
		canvasStore.On("CreateMultiple", mock.Anything, canvases).Return(nil).NotBefore(deleted)
		canvasStore.On("CreateMediaItems", mock.Anything, media).Return(nil)

		require.NoError(t, svc.ReplaceGenerationCanvases(context.Background(), generationID, canvases, media))
		canvasStore.AssertExpectations(t)
	})

	t.Run("delete failure rolls back before inserting", func(t *testing.T) {
		db, sqlMock := newMockDB(t)
		canvasStore := &MockCanvasStore{}
		svc, err := NewCanvasService(canvasStore, db, nil)
		require.NoError(t, err)

		canvases, media := newCanvasFixture(t, 2)
		expectRollback(sqlMock)
		canvasStore.On("DeleteByGeneration", mock.Anything, generationID).Return(int64(0), store.ErrPersistence)

		err = svc.ReplaceGenerationCanvases(context.Background(), generationID, canvases, media)
		assert.ErrorIs(t, err, store.ErrPersistence)
		canvasStore.AssertNotCalled(t, "CreateMultiple", mock.Anything, mock.Anything)
	})

	t.Run("media failure rolls back", func(t *testing.T) {
		db, sqlMock := newMockDB(t)
		canvasStore := &MockCanvasStore{}
		svc, err := NewCanvasService(canvasStore, db, nil)
		require.NoError(t, err)

		canvases, media := newCanvasFixture(t, 2)
		expectRollback(sqlMock)
		canvasStore.On("DeleteByGeneration", mock.Anything, generationID).Return(int64(0), nil)
		canvasStore.On("CreateMultiple", mock.Anything, canvases).Return(nil)
		canvasStore.On("CreateMediaItems", mock.Anything, media).Return(store.ErrInvalidEntity)

		err = svc.ReplaceGenerationCanvases(context.Background(), generationID, canvases, media)
		assert.ErrorIs(t, err, store.ErrInvalidEntity)
	})

	t.Run("nothing to create", func(t *testing.T) {
		db, _ := newMockDB(t)
		canvasStore := &MockCanvasStore{}
		svc, err := NewCanvasService(canvasStore, db, nil)
		require.NoError(t, err)

		assert.NoError(t, svc.ReplaceGenerationCanvases(context.Background(), generationID, nil, nil))
		canvasStore.AssertNotCalled(t, "DeleteByGeneration", mock.Anything, mock.Anything)
	})
}

func TestCanvasService_AttachMediaAndList(t *testing.T) {
	db, _ := newMockDB(t)
	canvasStore := &MockCanvasStore{}
	svc, err := NewCanvasService(canvasStore, db, nil)
	require.NoError(t, err)

	canvases, media := newCanvasFixture(t, 2)
	canvasStore.On("CreateMediaItems", mock.Anything, media[:1]).Return(nil)
	canvasStore.On("ListByProject", mock.Anything, canvases[0].UserID, canvases[0].ProjectID).Return(canvases, nil)

	require.NoError(t, svc.AttachMedia(context.Background(), media[:1]))

	got, err := svc.ListProjectCanvases(context.Background(), canvases[0].UserID, canvases[0].ProjectID)
	require.NoError(t, err)
	assert.Equal(t, canvases, got)
	canvasStore.AssertExpectations(t)
}
