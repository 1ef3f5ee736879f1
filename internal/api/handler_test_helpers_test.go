package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/phrazzld/carousel-api/internal/api/shared"
	"github.com/phrazzld/carousel-api/internal/domain"
	"github.com/phrazzld/carousel-api/internal/export"
	"github.com/phrazzld/carousel-api/internal/service"
	"github.com/phrazzld/carousel-api/internal/store"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockGenerationService mocks service.GenerationService
type MockGenerationService struct {
	mock.Mock
}

var _ service.GenerationService = (*MockGenerationService)(nil)

func (m *MockGenerationService) CreateGeneration(
	ctx context.Context,
	userID uuid.UUID,
	in service.CreateGenerationInput,
) (*domain.Generation, error) {
	args := m.Called(ctx, userID, in)
	gen, _ := args.Get(0).(*domain.Generation)
	return gen, args.Error(1)
}

func (m *MockGenerationService) GetGeneration(ctx context.Context, userID, id uuid.UUID) (*domain.Generation, error) {
	args := m.Called(ctx, userID, id)
	gen, _ := args.Get(0).(*domain.Generation)
	return gen, args.Error(1)
}

func (m *MockGenerationService) ListGenerations(
	ctx context.Context,
	filter store.GenerationFilter,
) ([]*domain.Generation, error) {
	args := m.Called(ctx, filter)
	gens, _ := args.Get(0).([]*domain.Generation)
	return gens, args.Error(1)
}

func (m *MockGenerationService) UpdateGenerationStatus(
	ctx context.Context,
	userID, id uuid.UUID,
	patch domain.StatusPatch,
) (*domain.Generation, error) {
	args := m.Called(ctx, userID, id, patch)
	gen, _ := args.Get(0).(*domain.Generation)
	return gen, args.Error(1)
}

func (m *MockGenerationService) DeleteGeneration(ctx context.Context, userID, id uuid.UUID) error {
	args := m.Called(ctx, userID, id)
	return args.Error(0)
}

// MockExportStarter mocks ExportStarter
type MockExportStarter struct {
	mock.Mock
}

func (m *MockExportStarter) Start(
	ctx context.Context,
	userID, projectID uuid.UUID,
	req export.Request,
) (*export.Snapshot, error) {
	args := m.Called(ctx, userID, projectID, req)
	snap, _ := args.Get(0).(*export.Snapshot)
	return snap, args.Error(1)
}

func (m *MockExportStarter) Get(ctx context.Context, userID, id uuid.UUID) (*export.Snapshot, error) {
	args := m.Called(ctx, userID, id)
	snap, _ := args.Get(0).(*export.Snapshot)
	return snap, args.Error(1)
}

// newTestRouter mounts the handlers the way the server does, with the
// user ID injected in place of the auth middleware. A nil userID leaves
// the request unauthenticated.
func newTestRouter(userID uuid.UUID, gens *GenerationHandler, exports *ExportHandler) http.Handler {
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if userID != uuid.Nil {
				req = req.WithContext(shared.WithUserID(req.Context(), userID))
			}
			next.ServeHTTP(w, req)
		})
	})
	if gens != nil {
		r.Post("/api/generations", gens.CreateGeneration)
		r.Get("/api/generations", gens.ListGenerations)
		r.Get("/api/generations/{id}", gens.GetGeneration)
		r.Patch("/api/generations/{id}", gens.UpdateGeneration)
		r.Delete("/api/generations/{id}", gens.DeleteGeneration)
	}
	if exports != nil {
		r.Post("/api/projects/{id}/exports", exports.CreateExport)
		r.Get("/api/exports/{id}", exports.GetExport)
	}
	r.Post("/api/prompts/preview", PreviewPrompt)
	return r
}

func doJSON(t *testing.T, h http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if raw, ok := body.(string); ok {
			buf.WriteString(raw)
		} else {
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body shared.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body.Error
}
