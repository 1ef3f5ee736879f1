package generation

import (
	"context"
	"time"
)

// Provider is implemented by every AI provider adapter.
type Provider interface {
	// Name returns the identifier used to select the provider in configuration.
	Name() string
}

// TextGenerator generates text content from a prompt.
type TextGenerator interface {
	Provider
	GenerateText(ctx context.Context, req TextRequest) (*TextResult, error)
}

// ImageGenerator generates a single image from a prompt.
type ImageGenerator interface {
	Provider
	GenerateImage(ctx context.Context, req ImageRequest) (*ImageResult, error)
}

// TextRequest is a provider-neutral text generation call.
type TextRequest struct {
	Prompt          string
	Model           string
	Platform        string
	ContentType     string
	Tone            string
	Length          string
	IncludeHashtags bool
	IncludeEmojis   bool
	// JSON asks the provider to constrain its output to a JSON object.
	JSON bool
}

// ImageRequest is a provider-neutral image generation call.
type ImageRequest struct {
	Prompt string
	Model  string
	Width  int
	Height int
	Style  string
	// Seed makes generation reproducible when the provider supports it.
	// Zero lets the provider choose.
	Seed int64
}

// Metadata describes the cost and timing of one provider call.
type Metadata struct {
	Provider       string        `json:"provider"`
	Model          string        `json:"model"`
	Cost           float64       `json:"cost"`
	GenerationTime time.Duration `json:"generationTime"`
	TokensUsed     int           `json:"tokensUsed,omitempty"`
}

// TextResult is the output of a successful text generation.
type TextResult struct {
	Content  string
	Metadata Metadata
}

// ImageResult is the output of a successful image generation.
type ImageResult struct {
	URL      string
	Metadata Metadata
}
