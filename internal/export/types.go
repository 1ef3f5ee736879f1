package export

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

var (
	// ErrInvalidRequest is returned for export requests that cannot be served.
	ErrInvalidRequest = errors.New("invalid export request")

	// ErrNoCanvases is returned when the project has nothing to export.
	ErrNoCanvases = errors.New("project has no canvases to export")

	// ErrExportNotFound is returned when no snapshot exists for an export id.
	ErrExportNotFound = errors.New("export not found")
)

// Type selects how canvases are combined.
type Type string

// Export types
const (
	TypeIndividual Type = "individual"
	TypeSequence   Type = "sequence"
	TypeGrid       Type = "grid"
)

// Format is the encoding of output files.
type Format string

// Output formats
const (
	FormatPNG  Format = "png"
	FormatJPEG Format = "jpeg"
	FormatGIF  Format = "gif"
)

// ContentType returns the MIME type of the format.
func (f Format) ContentType() string {
	switch f {
	case FormatJPEG:
		return "image/jpeg"
	case FormatGIF:
		return "image/gif"
	default:
		return "image/png"
	}
}

// Extension returns the file extension of the format without a dot.
func (f Format) Extension() string {
	if f == FormatJPEG {
		return "jpg"
	}
	return string(f)
}

// Quality trades output size for fidelity.
type Quality string

// Quality tiers
const (
	QualityLow    Quality = "low"
	QualityMedium Quality = "medium"
	QualityHigh   Quality = "high"
)

// Scale returns the factor applied to canvas dimensions.
func (q Quality) Scale() float64 {
	switch q {
	case QualityLow:
		return 0.5
	case QualityMedium:
		return 0.75
	default:
		return 1
	}
}

// JPEGQuality returns the encoder quality for JPEG outputs.
func (q Quality) JPEGQuality() int {
	switch q {
	case QualityLow:
		return 60
	case QualityMedium:
		return 80
	default:
		return 92
	}
}

// TransitionType is the effect between frames of a sequence export.
type TransitionType string

// Transition types
const (
	TransitionNone  TransitionType = "none"
	TransitionFade  TransitionType = "fade"
	TransitionSlide TransitionType = "slide"
)

// Transition configures the effect between slides of a sequence.
type Transition struct {
	Type     TransitionType `json:"type"     validate:"omitempty,oneof=none fade slide"`
	Duration time.Duration  `json:"duration" validate:"gte=0,lte=5000000000"`
}

// Request describes one export.
type Request struct {
	Type         Type          `json:"type"         validate:"required,oneof=individual sequence grid"`
	Format       Format        `json:"format"       validate:"omitempty,oneof=png jpeg gif"`
	Quality      Quality       `json:"quality"      validate:"omitempty,oneof=low medium high"`
	Transition   Transition    `json:"transition"`
	IncludeAudio bool          `json:"includeAudio"`
	FPS          int           `json:"fps"          validate:"gte=0,lte=60"`
	SlideHold    time.Duration `json:"slideHold"    validate:"gte=0,lte=30000000000"`
}

// Defaults
const (
	DefaultFPS       = 10
	DefaultSlideHold = 2 * time.Second
)

var validate = validator.New()

// WithDefaults fills unset fields. Sequences default to GIF, everything
// else to PNG.
func (r Request) WithDefaults() Request {
	if r.Format == "" {
		if r.Type == TypeSequence {
			r.Format = FormatGIF
		} else {
			r.Format = FormatPNG
		}
	}
	if r.Quality == "" {
		r.Quality = QualityHigh
	}
	if r.Transition.Type == "" {
		r.Transition.Type = TransitionNone
	}
	if r.FPS == 0 {
		r.FPS = DefaultFPS
	}
	if r.SlideHold == 0 {
		r.SlideHold = DefaultSlideHold
	}
	return r
}

// Validate checks field values and combinations the pipeline cannot encode.
func (r Request) Validate() error {
	if err := validate.Struct(r); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	if r.Type == TypeSequence && r.Format != FormatGIF {
		return fmt.Errorf("%w: sequence exports are encoded as gif, got %q", ErrInvalidRequest, r.Format)
	}
	if r.Type != TypeSequence && r.Format == FormatGIF {
		return fmt.Errorf("%w: gif output is only available for sequence exports", ErrInvalidRequest)
	}
	return nil
}

// Output references one uploaded file.
type Output struct {
	Key         string    `json:"key"`
	URL         string    `json:"url"`
	ContentType string    `json:"contentType"`
	Size        int       `json:"size"`
	Width       int       `json:"width"`
	Height      int       `json:"height"`
	SlideNumber int       `json:"slideNumber,omitempty"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

// Metadata describes an export result as a whole.
type Metadata struct {
	Type          Type      `json:"type"`
	Format        Format    `json:"format"`
	Quality       Quality   `json:"quality"`
	SlideCount    int       `json:"slideCount"`
	Grid          *GridSize `json:"grid,omitempty"`
	AudioIncluded bool      `json:"audioIncluded"`
	ExpiresAt     time.Time `json:"expiresAt"`
}

// Result is what a finished export produced.
type Result struct {
	ID       uuid.UUID `json:"id"`
	Outputs  []Output  `json:"outputs"`
	Metadata Metadata  `json:"metadata"`
}

// Phase is a stage of the export pipeline.
type Phase string

// Pipeline phases
const (
	PhasePreparing  Phase = "preparing"
	PhaseRendering  Phase = "rendering"
	PhaseCombining  Phase = "combining"
	PhaseFinalizing Phase = "finalizing"
	PhaseComplete   Phase = "complete"
)

// Progress is one progress event of a running export.
type Progress struct {
	Phase   Phase  `json:"phase"`
	Percent int    `json:"percent"`
	Message string `json:"message,omitempty"`
}
