package task

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/phrazzld/carousel-api/internal/domain"
	"github.com/phrazzld/carousel-api/internal/generation"
	"github.com/phrazzld/carousel-api/internal/prompt"
	"github.com/phrazzld/carousel-api/internal/store"
)

// SlideResult is one slide of a completed carousel as stored in resultData.
type SlideResult struct {
	SlideNumber       int                 `json:"slideNumber"`
	CanvasID          uuid.UUID           `json:"canvasId"`
	Title             string              `json:"title"`
	Subtitle          string              `json:"subtitle,omitempty"`
	Content           string              `json:"content"`
	CTA               string              `json:"cta,omitempty"`
	BackgroundPrompt  string              `json:"backgroundPrompt"`
	ImageURL          string              `json:"imageUrl"`
	DesignNotes       string              `json:"designNotes,omitempty"`
	EngagementTactics []string            `json:"engagementTactics,omitempty"`
	Layout            prompt.SlideLayout  `json:"layout"`
	Image             generation.Metadata `json:"imageMetadata"`
}

// SlideError records a slide whose image could not be generated.
type SlideError struct {
	SlideNumber int    `json:"slideNumber"`
	Kind        string `json:"kind"`
	Error       string `json:"error"`
}

// CarouselMetadata summarizes a carousel generation.
type CarouselMetadata struct {
	Theme              string              `json:"theme,omitempty"`
	Flow               string              `json:"flow,omitempty"`
	HashtagSuggestions []string            `json:"hashtagSuggestions,omitempty"`
	ContentType        prompt.ContentType  `json:"contentType"`
	Template           string              `json:"template"`
	CTAs               []string            `json:"recommendedCtas"`
	Platform           domain.Platform     `json:"platform"`
	Text               generation.Metadata `json:"textMetadata"`
	SlidesRequested    int                 `json:"slidesRequested"`
	SlidesSucceeded    int                 `json:"slidesSucceeded"`
	TotalCost          float64             `json:"totalCost"`
}

// CarouselResult is the resultData of a completed carousel generation.
// Slides holds the successful slides only; failed slides appear in Errors.
type CarouselResult struct {
	ProjectID uuid.UUID        `json:"projectId"`
	Slides    []SlideResult    `json:"slides"`
	Errors    []SlideError     `json:"errors"`
	Metadata  CarouselMetadata `json:"metadata"`
}

// ImageOutput is the resultData of a completed background generation.
type ImageOutput struct {
	ImageURL string              `json:"imageUrl"`
	Prompt   string              `json:"prompt"`
	CanvasID *uuid.UUID          `json:"canvasId,omitempty"`
	Width    int                 `json:"width"`
	Height   int                 `json:"height"`
	Metadata generation.Metadata `json:"metadata"`
}

// TextOutput is the resultData of a completed text generation.
type TextOutput struct {
	Content     string              `json:"content"`
	ContentType prompt.ContentType  `json:"contentType"`
	Metadata    generation.Metadata `json:"metadata"`
}

// FailureResult is the resultData of a failed generation.
type FailureResult struct {
	Error  string                `json:"error"`
	Kind   string                `json:"kind"`
	Step   domain.GenerationStep `json:"step,omitempty"`
	Errors []SlideError          `json:"errors,omitempty"`
}

// Failure kinds outside the provider taxonomy
const (
	failureValidation      = "validation"
	failurePersistence     = "persistence"
	failureInvalidResponse = "invalid_response"
)

// allSlidesFailedError is returned when the images phase produced nothing.
type allSlidesFailedError struct {
	errors []SlideError
}

func (e *allSlidesFailedError) Error() string {
	return fmt.Sprintf("all %d slide images failed", len(e.errors))
}

// failureKind classifies err for the failure record.
func failureKind(err error) string {
	var pe *generation.ProviderError
	switch {
	case errors.As(err, &pe):
		return string(pe.Kind)
	case errors.Is(err, generation.ErrUnknownProvider), errors.Is(err, generation.ErrInvalidConfig):
		return string(generation.KindConfiguration)
	case errors.Is(err, domain.ErrValidation):
		return failureValidation
	case errors.Is(err, store.ErrPersistence), errors.Is(err, store.ErrInvalidEntity):
		return failurePersistence
	case errors.Is(err, prompt.ErrMalformedCarousel), errors.Is(err, generation.ErrInvalidResponse):
		return failureInvalidResponse
	default:
		var all *allSlidesFailedError
		if errors.As(err, &all) && len(all.errors) > 0 {
			return all.errors[0].Kind
		}
		return string(generation.KindUnknown)
	}
}
