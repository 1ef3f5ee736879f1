package prompt

import "fmt"

const qualityTags = "high quality, detailed, professional composition, social media ready"

// ComposeConsistencyPrompts finalizes per-slide background prompts. Every
// prompt receives the base style and quality tags; the thematic strategy
// also appends a clause tying the slide to its position in a cohesive
// series. The input slice is not modified.
func ComposeConsistencyPrompts(slidePrompts []string, strategy, baseStyle string) []string {
	out := make([]string, len(slidePrompts))
	n := len(slidePrompts)
	for i, p := range slidePrompts {
		s := p
		if baseStyle != "" {
			s += ", " + baseStyle
		}
		s += ", " + qualityTags
		if strategy != "unique" {
			s += fmt.Sprintf(", slide %d of %d in a cohesive series, consistent color palette, lighting and visual style across all slides", i+1, n)
		}
		out[i] = s
	}
	return out
}
