package prompt

// CarouselTemplate is the narrative structure used for one content type.
// Templates are reference data shared by every request and must not be
// modified.
type CarouselTemplate struct {
	Name            string
	Structure       []string
	Tone            string
	ContentPatterns []string
}

var templates = map[ContentType]CarouselTemplate{
	ContentTypeEducational: {
		Name: "Educational Deep Dive",
		Structure: []string{
			"Hook: pose a question or surprising fact about the topic",
			"Context: explain why the topic matters",
			"Core concepts: break the idea into digestible points",
			"Example: show the concept applied in practice",
			"Summary: recap the key takeaways",
			"Call to action: invite the reader to save or share",
		},
		Tone: "clear, authoritative and approachable",
		ContentPatterns: []string{
			"numbered key points",
			"simple definitions before details",
			"one idea per slide",
			"concrete examples",
		},
	},
	ContentTypeTips: {
		Name: "Quick Tips & Hacks",
		Structure: []string{
			"Hook: promise a specific, practical benefit",
			"Tip slides: one actionable tip per slide",
			"Bonus tip: an unexpected extra",
			"Recap: list every tip in one line each",
			"Call to action: ask which tip the reader will try first",
		},
		Tone: "energetic, practical and friendly",
		ContentPatterns: []string{
			"numbered tips",
			"imperative verbs",
			"before and after contrast",
			"short punchy sentences",
		},
	},
	ContentTypePromotional: {
		Name: "Product Showcase",
		Structure: []string{
			"Hook: name the problem the audience feels",
			"Introduce: present the product as the answer",
			"Features: highlight the most valuable features",
			"Proof: social proof or results",
			"Offer: state the offer and any urgency",
			"Call to action: tell the reader exactly what to do next",
		},
		Tone: "confident, benefit-driven and persuasive",
		ContentPatterns: []string{
			"problem then solution",
			"benefits over features",
			"social proof",
			"clear urgency",
		},
	},
	ContentTypeInspirational: {
		Name: "Motivational Journey",
		Structure: []string{
			"Hook: a bold or emotional opening statement",
			"Struggle: acknowledge the challenge",
			"Shift: the mindset change that makes a difference",
			"Encouragement: affirming, forward-looking messages",
			"Call to action: invite the reader to commit or share",
		},
		Tone: "uplifting, warm and sincere",
		ContentPatterns: []string{
			"powerful quotes",
			"second-person address",
			"emotional contrast",
			"affirmations",
		},
	},
	ContentTypeStorytelling: {
		Name: "Story Arc",
		Structure: []string{
			"Hook: drop the reader into the moment",
			"Setup: introduce the situation and stakes",
			"Conflict: the obstacle or turning point",
			"Resolution: how it played out",
			"Lesson: what the reader can take away",
			"Call to action: ask the reader to share their own story",
		},
		Tone: "personal, vivid and conversational",
		ContentPatterns: []string{
			"first-person narrative",
			"sensory detail",
			"cliffhanger transitions between slides",
			"a clear takeaway",
		},
	},
}

// TemplateFor returns the template of ct, or the educational template when
// ct is unknown.
func TemplateFor(ct ContentType) CarouselTemplate {
	if tpl, ok := templates[ct]; ok {
		return tpl
	}
	return templates[ContentTypeEducational]
}

// toneGuidelines describes how each requested tone should read.
var toneGuidelines = map[string]string{
	"professional":  "Use precise language, avoid slang and keep a credible, expert voice.",
	"casual":        "Write like a friend talking, use contractions and relaxed phrasing.",
	"humorous":      "Use light wit and playful wording without undermining the message.",
	"inspirational": "Use emotive, uplifting language and speak directly to the reader.",
	"educational":   "Explain step by step, define terms and favour clarity over flair.",
	"friendly":      "Be warm and welcoming, address the reader directly.",
	"authoritative": "Be direct and confident, back statements with specifics.",
}

// ToneGuideline returns the writing guideline for tone. Unknown tones get a
// generic instruction naming the tone.
func ToneGuideline(tone string) string {
	if g, ok := toneGuidelines[tone]; ok {
		return g
	}
	return "Keep a consistent " + tone + " voice across every slide."
}
