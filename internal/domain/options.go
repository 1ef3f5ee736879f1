package domain

// BackgroundStrategy controls how slide backgrounds relate to each other.
type BackgroundStrategy string

// Background strategies
const (
	// BackgroundUnique prompts each slide's background independently.
	BackgroundUnique BackgroundStrategy = "unique"
	// BackgroundThematic keeps every slide on one cohesive visual theme.
	BackgroundThematic BackgroundStrategy = "thematic"
)

// Platform is the social network a generation targets.
type Platform string

// Supported platforms
const (
	PlatformInstagram Platform = "instagram"
	PlatformLinkedIn  Platform = "linkedin"
	PlatformTikTok    Platform = "tiktok"
	PlatformFacebook  Platform = "facebook"
	PlatformTwitter   Platform = "twitter"
)

// CanvasFormat describes the dimensions of a slide for a platform.
type CanvasFormat struct {
	Platform    Platform `json:"platform"`
	Width       int      `json:"width"`
	Height      int      `json:"height"`
	AspectRatio string   `json:"aspect_ratio"`
}

var platformFormats = map[Platform]CanvasFormat{
	PlatformInstagram: {Platform: PlatformInstagram, Width: 1080, Height: 1350, AspectRatio: "4:5"},
	PlatformLinkedIn:  {Platform: PlatformLinkedIn, Width: 1080, Height: 1080, AspectRatio: "1:1"},
	PlatformTikTok:    {Platform: PlatformTikTok, Width: 1080, Height: 1920, AspectRatio: "9:16"},
	PlatformFacebook:  {Platform: PlatformFacebook, Width: 1080, Height: 1080, AspectRatio: "1:1"},
	PlatformTwitter:   {Platform: PlatformTwitter, Width: 1200, Height: 675, AspectRatio: "16:9"},
}

var captionLimits = map[Platform]int{
	PlatformInstagram: 2200,
	PlatformLinkedIn:  3000,
	PlatformTikTok:    2200,
	PlatformFacebook:  63206,
	PlatformTwitter:   280,
}

// Format returns the canvas format for the platform, falling back to
// Instagram's portrait format for unknown platforms.
func (p Platform) Format() CanvasFormat {
	if f, ok := platformFormats[p]; ok {
		return f
	}
	return platformFormats[PlatformInstagram]
}

// CaptionLimit returns the maximum caption length in characters, or 0 when
// the platform is unknown.
func (p Platform) CaptionLimit() int {
	return captionLimits[p]
}

// Defaults applied by GenerationOptions.WithDefaults.
const (
	DefaultSlideCount     = 5
	DefaultTone           = "professional"
	DefaultTargetAudience = "general audience"
	DefaultStyle          = "modern minimalist"
	DefaultLength         = "medium"
	MaxSlideCount         = 20
)

// GenerationOptions are the free-form parameters of a generation request.
// Provider and model names override the configured defaults.
type GenerationOptions struct {
	SlideCount         int                `json:"slideCount,omitempty"         validate:"omitempty,min=1,max=20"`
	BackgroundStrategy BackgroundStrategy `json:"backgroundStrategy,omitempty" validate:"omitempty,oneof=unique thematic"`
	Tone               string             `json:"tone,omitempty"               validate:"omitempty,max=50"`
	TargetAudience     string             `json:"targetAudience,omitempty"     validate:"omitempty,max=200"`
	Style              string             `json:"style,omitempty"              validate:"omitempty,max=200"`
	ContentType        string             `json:"contentType,omitempty"        validate:"omitempty,oneof=educational promotional inspirational storytelling tips"`
	Platform           Platform           `json:"platform,omitempty"           validate:"omitempty,oneof=instagram linkedin tiktok facebook twitter"`
	Length             string             `json:"length,omitempty"             validate:"omitempty,oneof=short medium long"`
	IncludeHashtags    bool               `json:"includeHashtags,omitempty"`
	IncludeEmojis      bool               `json:"includeEmojis,omitempty"`
	TextProvider       string             `json:"textProvider,omitempty"       validate:"omitempty,max=50"`
	TextModel          string             `json:"textModel,omitempty"          validate:"omitempty,max=100"`
	ImageProvider      string             `json:"imageProvider,omitempty"      validate:"omitempty,max=50"`
	ImageModel         string             `json:"imageModel,omitempty"         validate:"omitempty,max=100"`
	Seed               int64              `json:"seed,omitempty"               validate:"omitempty,min=0"`
}

// WithDefaults returns a copy of o with unset fields filled in.
func (o GenerationOptions) WithDefaults() GenerationOptions {
	if o.SlideCount == 0 {
		o.SlideCount = DefaultSlideCount
	}
	if o.BackgroundStrategy == "" {
		o.BackgroundStrategy = BackgroundThematic
	}
	if o.Tone == "" {
		o.Tone = DefaultTone
	}
	if o.TargetAudience == "" {
		o.TargetAudience = DefaultTargetAudience
	}
	if o.Style == "" {
		o.Style = DefaultStyle
	}
	if o.Platform == "" {
		o.Platform = PlatformInstagram
	}
	if o.Length == "" {
		o.Length = DefaultLength
	}
	return o
}
