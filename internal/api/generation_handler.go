package api

import (
	"log/slog"
	"net/http"

	"github.com/phrazzld/carousel-api/internal/api/shared"
	"github.com/phrazzld/carousel-api/internal/domain"
	"github.com/phrazzld/carousel-api/internal/platform/logger"
	"github.com/phrazzld/carousel-api/internal/service"
	"github.com/phrazzld/carousel-api/internal/store"
)

// GenerationHandler handles generation-related HTTP requests
type GenerationHandler struct {
	generationService service.GenerationService
	logger            *slog.Logger
}

// NewGenerationHandler creates a new GenerationHandler
func NewGenerationHandler(generationService service.GenerationService, logger *slog.Logger) *GenerationHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &GenerationHandler{
		generationService: generationService,
		logger:            logger.With(slog.String("component", "generation_handler")),
	}
}

// CreateGeneration handles POST /api/generations. Processing happens
// asynchronously, so the pending record is returned with 202 Accepted.
func (h *GenerationHandler) CreateGeneration(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	userID, ok := handleUserID(w, r, log)
	if !ok {
		return
	}

	var req CreateGenerationRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	gen, err := h.generationService.CreateGeneration(r.Context(), userID, service.CreateGenerationInput{
		Type:      domain.GenerationType(req.Type),
		Prompt:    req.Prompt,
		Options:   req.Options,
		ProjectID: req.ProjectID,
		CanvasID:  req.CanvasID,
	})
	if err != nil {
		HandleAPIError(w, r, err, "Failed to create generation")
		return
	}

	log.Debug("generation accepted",
		slog.String("generation_id", gen.ID.String()),
		slog.String("generation_type", string(gen.Type)))
	shared.RespondWithJSON(w, r, http.StatusAccepted, generationToResponse(gen))
}

// ListGenerations handles GET /api/generations. Supported query
// parameters are projectId, status, limit and offset.
func (h *GenerationHandler) ListGenerations(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	userID, ok := handleUserID(w, r, log)
	if !ok {
		return
	}

	filter := store.GenerationFilter{UserID: userID}

	projectID, err := getQueryUUID(r, "projectId")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	filter.ProjectID = projectID

	if raw := r.URL.Query().Get("status"); raw != "" {
		status := domain.GenerationStatus(raw)
		filter.Status = &status
	}
	if filter.Limit, err = getQueryInt(r, "limit"); err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	if filter.Offset, err = getQueryInt(r, "offset"); err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	gens, err := h.generationService.ListGenerations(r.Context(), filter)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to list generations")
		return
	}

	filter = filter.Normalize()
	resp := ListGenerationsResponse{
		Generations: make([]GenerationResponse, 0, len(gens)),
		Limit:       filter.Limit,
		Offset:      filter.Offset,
	}
	for _, gen := range gens {
		resp.Generations = append(resp.Generations, generationToResponse(gen))
	}
	shared.RespondWithJSON(w, r, http.StatusOK, resp)
}

// GetGeneration handles GET /api/generations/{id}
func (h *GenerationHandler) GetGeneration(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	userID, id, ok := handleUserIDAndPathUUID(w, r, "id", log)
	if !ok {
		return
	}

	gen, err := h.generationService.GetGeneration(r.Context(), userID, id)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to get generation")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, generationToResponse(gen))
}

// UpdateGeneration handles PATCH /api/generations/{id}. The patch goes
// through the status state machine; illegal transitions get 409 Conflict.
func (h *GenerationHandler) UpdateGeneration(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	userID, id, ok := handleUserIDAndPathUUID(w, r, "id", log)
	if !ok {
		return
	}

	var req UpdateGenerationRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	gen, err := h.generationService.UpdateGenerationStatus(r.Context(), userID, id, req.toPatch())
	if err != nil {
		HandleAPIError(w, r, err, "Failed to update generation")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, generationToResponse(gen))
}

// DeleteGeneration handles DELETE /api/generations/{id}
func (h *GenerationHandler) DeleteGeneration(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	userID, id, ok := handleUserIDAndPathUUID(w, r, "id", log)
	if !ok {
		return
	}

	if err := h.generationService.DeleteGeneration(r.Context(), userID, id); err != nil {
		HandleAPIError(w, r, err, "Failed to delete generation")
		return
	}

	log.Debug("generation deleted", slog.String("generation_id", id.String()))
	w.WriteHeader(http.StatusNoContent)
}
