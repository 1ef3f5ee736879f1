package api

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/carousel-api/internal/domain"
	"github.com/phrazzld/carousel-api/internal/export"
)

// CreateGenerationRequest defines the payload for POST /api/generations.
type CreateGenerationRequest struct {
	Type      string                   `json:"type"      validate:"required,oneof=carousel background text"`
	Prompt    string                   `json:"prompt"    validate:"required,max=65000"`
	Options   domain.GenerationOptions `json:"options"`
	ProjectID *uuid.UUID               `json:"projectId"`
	CanvasID  *uuid.UUID               `json:"canvasId"`
}

// UpdateGenerationRequest defines the payload for PATCH /api/generations/{id}.
// Status is required; every other field is optional.
type UpdateGenerationRequest struct {
	Status                 string          `json:"status"                 validate:"required,oneof=pending generating completed failed"`
	Progress               *int            `json:"progress"               validate:"omitempty,gte=0,lte=100"`
	CurrentStep            *string         `json:"currentStep"            validate:"omitempty,oneof=text images canvases complete"`
	EstimatedTimeRemaining *int            `json:"estimatedTimeRemaining" validate:"omitempty,gte=0"`
	ResultData             json.RawMessage `json:"resultData"`
	Cost                   *float64        `json:"cost"                   validate:"omitempty,gte=0"`
}

// toPatch converts the request into a domain status patch.
func (r UpdateGenerationRequest) toPatch() domain.StatusPatch {
	patch := domain.StatusPatch{
		Status:                 domain.GenerationStatus(r.Status),
		Progress:               r.Progress,
		EstimatedTimeRemaining: r.EstimatedTimeRemaining,
		ResultData:             r.ResultData,
		Cost:                   r.Cost,
	}
	if r.CurrentStep != nil {
		step := domain.GenerationStep(*r.CurrentStep)
		patch.CurrentStep = &step
	}
	return patch
}

// GenerationResponse is the API representation of a generation record.
type GenerationResponse struct {
	ID                     uuid.UUID                `json:"id"`
	UserID                 uuid.UUID                `json:"userId"`
	ProjectID              *uuid.UUID               `json:"projectId,omitempty"`
	CanvasID               *uuid.UUID               `json:"canvasId,omitempty"`
	Type                   string                   `json:"type"`
	Status                 string                   `json:"status"`
	Prompt                 string                   `json:"prompt"`
	Options                domain.GenerationOptions `json:"options"`
	Progress               int                      `json:"progress"`
	CurrentStep            string                   `json:"currentStep,omitempty"`
	EstimatedTimeRemaining *int                     `json:"estimatedTimeRemaining,omitempty"`
	ResultData             json.RawMessage          `json:"resultData,omitempty"`
	Cost                   float64                  `json:"cost"`
	StartTime              *time.Time               `json:"startTime,omitempty"`
	CompletedTime          *time.Time               `json:"completedTime,omitempty"`
	CreatedAt              time.Time                `json:"createdAt"`
	UpdatedAt              time.Time                `json:"updatedAt"`
}

// ListGenerationsResponse wraps a page of generations.
type ListGenerationsResponse struct {
	Generations []GenerationResponse `json:"generations"`
	Limit       int                  `json:"limit"`
	Offset      int                  `json:"offset"`
}

func generationToResponse(g *domain.Generation) GenerationResponse {
	return GenerationResponse{
		ID:                     g.ID,
		UserID:                 g.UserID,
		ProjectID:              g.ProjectID,
		CanvasID:               g.CanvasID,
		Type:                   string(g.Type),
		Status:                 string(g.Status),
		Prompt:                 g.Prompt,
		Options:                g.Options,
		Progress:               g.Progress,
		CurrentStep:            string(g.CurrentStep),
		EstimatedTimeRemaining: g.EstimatedTimeRemaining,
		ResultData:             g.ResultData,
		Cost:                   g.Cost,
		StartTime:              g.StartTime,
		CompletedTime:          g.CompletedTime,
		CreatedAt:              g.CreatedAt,
		UpdatedAt:              g.UpdatedAt,
	}
}

// CreateExportRequest defines the payload for POST /api/projects/{id}/exports.
// SlideHoldMS is the time each slide is shown in a sequence.
type CreateExportRequest struct {
	Type         string `json:"type"         validate:"required,oneof=individual sequence grid"`
	Format       string `json:"format"       validate:"omitempty,oneof=png jpeg gif"`
	Quality      string `json:"quality"      validate:"omitempty,oneof=low medium high"`
	Transition   string `json:"transition"   validate:"omitempty,oneof=none fade slide"`
	TransitionMS int    `json:"transitionMs" validate:"gte=0,lte=5000"`
	IncludeAudio bool   `json:"includeAudio"`
	FPS          int    `json:"fps"          validate:"gte=0,lte=60"`
	SlideHoldMS  int    `json:"slideHoldMs"  validate:"gte=0,lte=30000"`
}

func (r CreateExportRequest) toExportRequest() export.Request {
	return export.Request{
		Type:    export.Type(r.Type),
		Format:  export.Format(r.Format),
		Quality: export.Quality(r.Quality),
		Transition: export.Transition{
			Type:     export.TransitionType(r.Transition),
			Duration: time.Duration(r.TransitionMS) * time.Millisecond,
		},
		IncludeAudio: r.IncludeAudio,
		FPS:          r.FPS,
		SlideHold:    time.Duration(r.SlideHoldMS) * time.Millisecond,
	}
}

// PromptPreviewRequest defines the payload for POST /api/prompts/preview.
type PromptPreviewRequest struct {
	Topic   string                   `json:"topic"   validate:"required,max=65000"`
	Options domain.GenerationOptions `json:"options"`
}

// PromptPreviewResponse shows how a topic would be prompted without
// calling a provider.
type PromptPreviewResponse struct {
	ContentType  string              `json:"contentType"`
	TemplateName string              `json:"templateName"`
	Structure    []string            `json:"structure"`
	Prompt       string              `json:"prompt"`
	CTAs         []string            `json:"ctas"`
	Format       domain.CanvasFormat `json:"format"`
}
