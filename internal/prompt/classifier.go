package prompt

import "strings"

// ContentType is the narrative template a topic is classified into.
type ContentType string

// Supported content types
const (
	ContentTypeEducational   ContentType = "educational"
	ContentTypeTips          ContentType = "tips"
	ContentTypePromotional   ContentType = "promotional"
	ContentTypeInspirational ContentType = "inspirational"
	ContentTypeStorytelling  ContentType = "storytelling"
)

type keywordSet struct {
	contentType ContentType
	keywords    []string
}

// classificationOrder is evaluated top to bottom and the first match wins.
// Several sets can match the same prompt, so the order is part of the
// classifier's contract.
var classificationOrder = []keywordSet{
	{ContentTypeEducational, []string{
		"learn", "how to", "guide", "explain", "understand", "what is", "tutorial", "lesson",
	}},
	{ContentTypeTips, []string{
		"tips", "tricks", "hacks", "ways to", "secrets", "mistakes",
	}},
	{ContentTypePromotional, []string{
		"launch", "sale", "discount", "product", "offer", "buy", "new feature", "announce",
	}},
	{ContentTypeInspirational, []string{
		"inspire", "motivat", "success", "dream", "mindset", "believe", "quote",
	}},
	{ContentTypeStorytelling, []string{
		"story", "journey", "experience", "how i",
	}},
}

// Classify returns the content type of a free-text prompt. Matching is a
// case-insensitive substring search; prompts with no match are educational.
func Classify(text string) ContentType {
	lower := strings.ToLower(text)
	for _, set := range classificationOrder {
		for _, kw := range set.keywords {
			if strings.Contains(lower, kw) {
				return set.contentType
			}
		}
	}
	return ContentTypeEducational
}

// ParseContentType resolves an explicit content type, falling back to
// classifying text when s is empty or unknown.
func ParseContentType(s, text string) ContentType {
	ct := ContentType(strings.ToLower(strings.TrimSpace(s)))
	if ct.IsValid() {
		return ct
	}
	return Classify(text)
}

// IsValid reports whether ct is one of the supported content types.
func (ct ContentType) IsValid() bool {
	_, ok := templates[ct]
	return ok
}
