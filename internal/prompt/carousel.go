package prompt

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/phrazzld/carousel-api/internal/domain"
)

// ErrMalformedCarousel is returned when provider output does not match the
// requested JSON shape.
var ErrMalformedCarousel = errors.New("malformed carousel response")

// Slide is one generated slide as requested by the carousel prompt.
type Slide struct {
	SlideNumber       int      `json:"slideNumber"`
	Title             string   `json:"title"`
	Subtitle          string   `json:"subtitle,omitempty"`
	Content           string   `json:"content"`
	CTA               string   `json:"cta,omitempty"`
	BackgroundPrompt  string   `json:"backgroundPrompt"`
	DesignNotes       string   `json:"designNotes,omitempty"`
	EngagementTactics []string `json:"engagementTactics,omitempty"`
}

// CarouselMetadata is the carousel-level part of a generated response.
type CarouselMetadata struct {
	Theme              string   `json:"theme,omitempty"`
	Flow               string   `json:"flow,omitempty"`
	HashtagSuggestions []string `json:"hashtagSuggestions,omitempty"`
}

// Carousel is the parsed text-generation result.
type Carousel struct {
	Slides   []Slide          `json:"slides"`
	Metadata CarouselMetadata `json:"metadata"`
}

// ParseCarousel decodes provider output into a Carousel. Markdown code
// fences around the JSON are tolerated. Slide numbers are normalized to
// their position.
func ParseCarousel(text string) (*Carousel, error) {
	text = stripCodeFence(text)

	var c Carousel
	if err := json.Unmarshal([]byte(text), &c); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedCarousel, err)
	}
	if len(c.Slides) == 0 {
		return nil, fmt.Errorf("%w: no slides", ErrMalformedCarousel)
	}
	for i := range c.Slides {
		s := &c.Slides[i]
		if strings.TrimSpace(s.Title) == "" && strings.TrimSpace(s.Content) == "" {
			return nil, fmt.Errorf("%w: slide %d has neither title nor content", ErrMalformedCarousel, i+1)
		}
		s.SlideNumber = i + 1
	}
	return &c, nil
}

// Validate checks every slide's text against a platform caption limit. A
// limit of zero disables the check.
func (c *Carousel) Validate(captionLimit int) error {
	if captionLimit <= 0 {
		return nil
	}
	for _, s := range c.Slides {
		n := utf8.RuneCountInString(s.Title) + utf8.RuneCountInString(s.Subtitle) + utf8.RuneCountInString(s.Content)
		if n > captionLimit {
			return fmt.Errorf("%w: slide %d has %d characters, limit is %d",
				domain.ErrValidation, s.SlideNumber, n, captionLimit)
		}
	}
	return nil
}

func stripCodeFence(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```")
	if nl := strings.IndexByte(text, '\n'); nl >= 0 {
		text = text[nl+1:]
	}
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	return strings.TrimSpace(text)
}
