package domain

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Canvas-specific validation errors
var (
	ErrCanvasIDEmpty        = errors.New("canvas ID cannot be empty")
	ErrCanvasUserIDEmpty    = errors.New("canvas user ID cannot be empty")
	ErrCanvasProjectIDEmpty = errors.New("canvas project ID cannot be empty")
	ErrCanvasPositionNeg    = errors.New("canvas position cannot be negative")
	ErrMediaItemURLEmpty    = errors.New("media item URL cannot be empty")
)

// MediaKind classifies a media item attached to a canvas.
type MediaKind string

// Media kinds
const (
	MediaKindBackground MediaKind = "background"
	MediaKindImage      MediaKind = "image"
)

// Canvas is one slide of a carousel project.
type Canvas struct {
	ID            uuid.UUID       `json:"id"`
	UserID        uuid.UUID       `json:"user_id"`
	ProjectID     uuid.UUID       `json:"project_id"`
	GenerationID  *uuid.UUID      `json:"generation_id,omitempty"`
	Position      int             `json:"position"`
	Title         string          `json:"title"`
	Subtitle      string          `json:"subtitle,omitempty"`
	Content       string          `json:"content"`
	CTA           string          `json:"cta,omitempty"`
	BackgroundURL string          `json:"background_url,omitempty"`
	Layout        json.RawMessage `json:"layout,omitempty"`
	Format        CanvasFormat    `json:"format"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// MediaItem is a generated or uploaded asset placed on a canvas.
type MediaItem struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	CanvasID  uuid.UUID `json:"canvas_id"`
	Kind      MediaKind `json:"kind"`
	URL       string    `json:"url"`
	Prompt    string    `json:"prompt,omitempty"`
	Provider  string    `json:"provider,omitempty"`
	Cost      float64   `json:"cost"`
	CreatedAt time.Time `json:"created_at"`
}

// NewCanvas creates a canvas at the given zero-based position.
func NewCanvas(userID, projectID uuid.UUID, position int, format CanvasFormat) (*Canvas, error) {
	now := time.Now().UTC()
	c := &Canvas{
		ID:        uuid.New(),
		UserID:    userID,
		ProjectID: projectID,
		Position:  position,
		Format:    format,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate checks if the Canvas has valid data.
func (c *Canvas) Validate() error {
	if c.ID == uuid.Nil {
		return ErrCanvasIDEmpty
	}
	if c.UserID == uuid.Nil {
		return ErrCanvasUserIDEmpty
	}
	if c.ProjectID == uuid.Nil {
		return ErrCanvasProjectIDEmpty
	}
	if c.Position < 0 {
		return ErrCanvasPositionNeg
	}
	return nil
}

// NewMediaItem creates a media item attached to canvas.
func NewMediaItem(canvas *Canvas, kind MediaKind, url, prompt, provider string, cost float64) (*MediaItem, error) {
	if url == "" {
		return nil, ErrMediaItemURLEmpty
	}
	if cost < 0 {
		return nil, ErrNegativeCost
	}
	return &MediaItem{
		ID:        uuid.New(),
		UserID:    canvas.UserID,
		CanvasID:  canvas.ID,
		Kind:      kind,
		URL:       url,
		Prompt:    prompt,
		Provider:  provider,
		Cost:      cost,
		CreatedAt: time.Now().UTC(),
	}, nil
}
