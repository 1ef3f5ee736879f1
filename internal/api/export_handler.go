package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/phrazzld/carousel-api/internal/api/shared"
	"github.com/phrazzld/carousel-api/internal/export"
	"github.com/phrazzld/carousel-api/internal/platform/logger"
)

// ExportStarter starts exports and reports their progress.
type ExportStarter interface {
	Start(ctx context.Context, userID, projectID uuid.UUID, req export.Request) (*export.Snapshot, error)
	Get(ctx context.Context, userID, id uuid.UUID) (*export.Snapshot, error)
}

// ExportHandler handles export requests for a project's canvases.
type ExportHandler struct {
	exports ExportStarter
	logger  *slog.Logger
}

// NewExportHandler creates a new ExportHandler
func NewExportHandler(exports ExportStarter, logger *slog.Logger) *ExportHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ExportHandler{
		exports: exports,
		logger:  logger.With(slog.String("component", "export_handler")),
	}
}

// CreateExport handles POST /api/projects/{id}/exports. The export runs in
// the background; the pending snapshot is returned with 202 Accepted and a
// Location header to poll.
func (h *ExportHandler) CreateExport(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	userID, projectID, ok := handleUserIDAndPathUUID(w, r, "id", log)
	if !ok {
		return
	}

	var req CreateExportRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	snap, err := h.exports.Start(r.Context(), userID, projectID, req.toExportRequest())
	if err != nil {
		HandleAPIError(w, r, err, "Failed to start export")
		return
	}

	w.Header().Set("Location", "/api/exports/"+snap.ID.String())
	shared.RespondWithJSON(w, r, http.StatusAccepted, snap)
}

// GetExport handles GET /api/exports/{id}
func (h *ExportHandler) GetExport(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	userID, id, ok := handleUserIDAndPathUUID(w, r, "id", log)
	if !ok {
		return
	}

	snap, err := h.exports.Get(r.Context(), userID, id)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to get export")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, snap)
}
