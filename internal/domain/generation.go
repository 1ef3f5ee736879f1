package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// GenerationType identifies what a generation request produces.
type GenerationType string

// Supported generation types
const (
	GenerationTypeCarousel   GenerationType = "carousel"
	GenerationTypeBackground GenerationType = "background"
	GenerationTypeText       GenerationType = "text"
)

// GenerationStatus represents the processing state of a generation request.
type GenerationStatus string

// Possible generation status values
const (
	GenerationStatusPending    GenerationStatus = "pending"
	GenerationStatusGenerating GenerationStatus = "generating"
	GenerationStatusCompleted  GenerationStatus = "completed"
	GenerationStatusFailed     GenerationStatus = "failed"
)

// GenerationStep is the sub-phase marker while a generation is generating.
type GenerationStep string

// Generation steps in execution order
const (
	GenerationStepText     GenerationStep = "text"
	GenerationStepImages   GenerationStep = "images"
	GenerationStepCanvases GenerationStep = "canvases"
	GenerationStepComplete GenerationStep = "complete"
)

// allowedTransitions lists every legal status change. Terminal states may
// only be re-applied to themselves, which keeps repeated terminal updates
// idempotent.
var allowedTransitions = map[GenerationStatus][]GenerationStatus{
	GenerationStatusPending:    {GenerationStatusPending, GenerationStatusGenerating, GenerationStatusFailed},
	GenerationStatusGenerating: {GenerationStatusGenerating, GenerationStatusCompleted, GenerationStatusFailed},
	GenerationStatusCompleted:  {GenerationStatusCompleted},
	GenerationStatusFailed:     {GenerationStatusFailed},
}

var stepRank = map[GenerationStep]int{
	"":                     0,
	GenerationStepText:     1,
	GenerationStepImages:   2,
	GenerationStepCanvases: 3,
	GenerationStepComplete: 4,
}

// Generation validation errors
var (
	ErrGenerationIDEmpty      = errors.New("generation ID cannot be empty")
	ErrGenerationUserIDEmpty  = errors.New("generation user ID cannot be empty")
	ErrGenerationPromptEmpty  = errors.New("generation prompt cannot be empty")
	ErrInvalidGenerationType  = errors.New("invalid generation type")
	ErrInvalidGenerationState = errors.New("invalid generation status")
	ErrInvalidGenerationStep  = errors.New("invalid generation step")
	ErrMissingStatus          = fmt.Errorf("%w: status is required", ErrValidation)
	ErrNegativeCost           = fmt.Errorf("%w: cost cannot be negative", ErrValidation)
	ErrPromptTooLong          = fmt.Errorf("%w: prompt exceeds platform limit", ErrValidation)
)

// Generation is one asynchronous AI content-production request tracked as
// a stateful record. Status only moves forward through the transition
// table; StartTime and CompletedTime are written at most once.
type Generation struct {
	ID                     uuid.UUID         `json:"id"`
	UserID                 uuid.UUID         `json:"user_id"`
	ProjectID              *uuid.UUID        `json:"project_id,omitempty"`
	CanvasID               *uuid.UUID        `json:"canvas_id,omitempty"`
	Type                   GenerationType    `json:"type"`
	Status                 GenerationStatus  `json:"status"`
	Prompt                 string            `json:"prompt"`
	Options                GenerationOptions `json:"options"`
	Progress               int               `json:"progress"`
	CurrentStep            GenerationStep    `json:"current_step,omitempty"`
	EstimatedTimeRemaining *int              `json:"estimated_time_remaining,omitempty"`
	ResultData             json.RawMessage   `json:"result_data,omitempty"`
	Cost                   float64           `json:"cost"`
	StartTime              *time.Time        `json:"start_time,omitempty"`
	CompletedTime          *time.Time        `json:"completed_time,omitempty"`
	CreatedAt              time.Time         `json:"created_at"`
	UpdatedAt              time.Time         `json:"updated_at"`
}

// StatusPatch is a partial update applied to a generation record. Status
// is mandatory; every other field is optional.
type StatusPatch struct {
	Status                 GenerationStatus
	Progress               *int
	CurrentStep            *GenerationStep
	EstimatedTimeRemaining *int
	ResultData             json.RawMessage
	Cost                   *float64
}

// NewGeneration creates a pending generation owned by userID. Options are
// completed with defaults before validation.
func NewGeneration(
	userID uuid.UUID,
	genType GenerationType,
	prompt string,
	options GenerationOptions,
) (*Generation, error) {
	now := time.Now().UTC()
	g := &Generation{
		ID:        uuid.New(),
		UserID:    userID,
		Type:      genType,
		Status:    GenerationStatusPending,
		Prompt:    strings.TrimSpace(prompt),
		Options:   options.WithDefaults(),
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := g.Validate(); err != nil {
		return nil, err
	}

	return g, nil
}

// Validate checks if the Generation has valid data.
func (g *Generation) Validate() error {
	if g.ID == uuid.Nil {
		return ErrGenerationIDEmpty
	}
	if g.UserID == uuid.Nil {
		return ErrGenerationUserIDEmpty
	}
	if g.Prompt == "" {
		return ErrGenerationPromptEmpty
	}
	if !g.Type.IsValid() {
		return ErrInvalidGenerationType
	}
	if !g.Status.IsValid() {
		return ErrInvalidGenerationState
	}
	if _, ok := stepRank[g.CurrentStep]; !ok {
		return ErrInvalidGenerationStep
	}
	if g.Cost < 0 {
		return ErrNegativeCost
	}
	if limit := g.Options.Platform.CaptionLimit(); limit > 0 && utf8.RuneCountInString(g.Prompt) > limit {
		return fmt.Errorf("%w (%s allows %d characters)", ErrPromptTooLong, g.Options.Platform, limit)
	}
	return nil
}

// IsValid reports whether t is a known generation type.
func (t GenerationType) IsValid() bool {
	switch t {
	case GenerationTypeCarousel, GenerationTypeBackground, GenerationTypeText:
		return true
	default:
		return false
	}
}

// IsValid reports whether s is a known status.
func (s GenerationStatus) IsValid() bool {
	_, ok := allowedTransitions[s]
	return ok
}

// IsTerminal reports whether s is completed or failed.
func (s GenerationStatus) IsTerminal() bool {
	return s == GenerationStatusCompleted || s == GenerationStatusFailed
}

// IsValid reports whether s is a known, non-empty step.
func (s GenerationStep) IsValid() bool {
	rank, ok := stepRank[s]
	return ok && rank > 0
}

// CanTransition reports whether the table allows moving from one status to another.
func CanTransition(from, to GenerationStatus) bool {
	for _, allowed := range allowedTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// ApplyPatch applies a status update at the given instant. It rejects
// transitions missing from the table and keeps the record's invariants:
// timestamps are first-write-wins, progress, step and cost never move
// backwards, and completion forces progress to 100.
func (g *Generation) ApplyPatch(p StatusPatch, now time.Time) error {
	if p.Status == "" {
		return ErrMissingStatus
	}
	if !p.Status.IsValid() {
		return fmt.Errorf("%w: %w %q", ErrValidation, ErrInvalidGenerationState, p.Status)
	}
	if p.CurrentStep != nil && !p.CurrentStep.IsValid() {
		return fmt.Errorf("%w: %w %q", ErrValidation, ErrInvalidGenerationStep, *p.CurrentStep)
	}
	if p.Cost != nil && *p.Cost < 0 {
		return ErrNegativeCost
	}
	if p.ResultData != nil && !json.Valid(p.ResultData) {
		return fmt.Errorf("%w: result data must be valid JSON", ErrValidation)
	}
	if !CanTransition(g.Status, p.Status) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, g.Status, p.Status)
	}

	step := g.CurrentStep
	if p.CurrentStep != nil && stepRank[*p.CurrentStep] > stepRank[step] {
		step = *p.CurrentStep
	}

	// Carousels only complete once the canvases phase has been reached.
	if p.Status == GenerationStatusCompleted && g.Status != GenerationStatusCompleted &&
		g.Type == GenerationTypeCarousel && stepRank[step] < stepRank[GenerationStepCanvases] {
		return fmt.Errorf("%w: carousel cannot complete before the canvases step (at %q)",
			ErrInvalidTransition, step)
	}

	now = now.UTC()
	if p.Status == GenerationStatusGenerating && g.StartTime == nil {
		started := now
		g.StartTime = &started
	}
	if p.Status.IsTerminal() && g.CompletedTime == nil {
		completed := now
		g.CompletedTime = &completed
	}

	if p.Progress != nil {
		progress := clampProgress(*p.Progress)
		if progress > g.Progress {
			g.Progress = progress
		}
	}
	if p.Cost != nil && *p.Cost > g.Cost {
		g.Cost = *p.Cost
	}
	if p.EstimatedTimeRemaining != nil {
		eta := *p.EstimatedTimeRemaining
		if eta < 0 {
			eta = 0
		}
		g.EstimatedTimeRemaining = &eta
	}
	if p.ResultData != nil {
		g.ResultData = p.ResultData
	}

	g.CurrentStep = step
	g.Status = p.Status
	if g.Status == GenerationStatusCompleted {
		g.Progress = 100
		g.CurrentStep = GenerationStepComplete
		zero := 0
		g.EstimatedTimeRemaining = &zero
	}
	g.UpdatedAt = now

	return nil
}

// IsOwnedBy reports whether userID owns the generation.
func (g *Generation) IsOwnedBy(userID uuid.UUID) bool {
	return g.UserID == userID
}

func clampProgress(p int) int {
	switch {
	case p < 0:
		return 0
	case p > 100:
		return 100
	default:
		return p
	}
}
