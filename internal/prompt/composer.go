package prompt

import (
	"bytes"
	"embed"
	"fmt"
	"strings"
	"text/template"

	"github.com/phrazzld/carousel-api/internal/domain"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var carouselTemplate = template.Must(
	template.New("carousel.tmpl").
		Funcs(template.FuncMap{
			"inc":  func(i int) int { return i + 1 },
			"last": func(i, n int) bool { return i == n-1 },
		}).
		ParseFS(templateFS, "templates/carousel.tmpl"),
)

// Request holds the inputs of a carousel prompt. Zero values are replaced
// with the generation option defaults.
type Request struct {
	Topic              string
	SlideCount         int
	BackgroundStrategy string
	Tone               string
	TargetAudience     string
	Style              string
	ContentType        ContentType
	Platform           string
	CaptionLimit       int
	IncludeHashtags    bool
	IncludeEmojis      bool
}

type promptData struct {
	Request
	Template      CarouselTemplate
	ToneGuideline string
	SlideNumbers  []int
}

// Compose builds the structured text-generation prompt for a carousel. An
// empty ContentType is classified from the topic.
func Compose(req Request) string {
	req = req.withDefaults()

	numbers := make([]int, req.SlideCount)
	for i := range numbers {
		numbers[i] = i + 1
	}

	data := promptData{
		Request:       req,
		Template:      TemplateFor(req.ContentType),
		ToneGuideline: ToneGuideline(req.Tone),
		SlideNumbers:  numbers,
	}

	var buf bytes.Buffer
	if err := carouselTemplate.Execute(&buf, data); err != nil {
		// Only reachable through a broken embedded template.
		panic(fmt.Sprintf("prompt: executing carousel template: %v", err))
	}
	return buf.String()
}

func (r Request) withDefaults() Request {
	r.Topic = strings.TrimSpace(r.Topic)
	if r.SlideCount < 1 {
		r.SlideCount = domain.DefaultSlideCount
	}
	if r.BackgroundStrategy != string(domain.BackgroundUnique) {
		r.BackgroundStrategy = string(domain.BackgroundThematic)
	}
	if r.Tone == "" {
		r.Tone = domain.DefaultTone
	}
	if r.TargetAudience == "" {
		r.TargetAudience = domain.DefaultTargetAudience
	}
	if r.Style == "" {
		r.Style = domain.DefaultStyle
	}
	if !r.ContentType.IsValid() {
		r.ContentType = Classify(r.Topic)
	}
	return r
}

// RequestFromOptions builds a prompt request for topic from stored
// generation options.
func RequestFromOptions(topic string, opts domain.GenerationOptions) Request {
	opts = opts.WithDefaults()
	return Request{
		Topic:              topic,
		SlideCount:         opts.SlideCount,
		BackgroundStrategy: string(opts.BackgroundStrategy),
		Tone:               opts.Tone,
		TargetAudience:     opts.TargetAudience,
		Style:              opts.Style,
		ContentType:        ParseContentType(opts.ContentType, topic),
		Platform:           string(opts.Platform),
		CaptionLimit:       opts.Platform.CaptionLimit(),
		IncludeHashtags:    opts.IncludeHashtags,
		IncludeEmojis:      opts.IncludeEmojis,
	}
}
