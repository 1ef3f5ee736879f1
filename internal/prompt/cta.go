package prompt

var callsToAction = map[ContentType][]string{
	ContentTypeEducational: {
		"Save this for later",
		"Share with someone who needs to learn this",
		"Follow for more insights",
		"Comment your biggest takeaway",
	},
	ContentTypeTips: {
		"Try these tips today",
		"Save for quick reference",
		"Tag a friend who needs this",
		"Which tip will you try first?",
	},
	ContentTypePromotional: {
		"Shop now - link in bio",
		"Get yours today",
		"Limited time offer",
		"DM us to learn more",
	},
	ContentTypeInspirational: {
		"Double tap if this resonates",
		"Share to inspire someone",
		"Save this as your daily reminder",
		"Tag someone who needs to hear this",
	},
	ContentTypeStorytelling: {
		"Share your story in the comments",
		"Follow for part two",
		"Save this story",
		"Tag someone who can relate",
	},
}

// RecommendCTAs returns the calls to action suggested for ct, in order of
// preference. Unknown content types get the educational set. The returned
// slice is a copy and may be modified by the caller.
func RecommendCTAs(ct ContentType) []string {
	ctas, ok := callsToAction[ct]
	if !ok {
		ctas = callsToAction[ContentTypeEducational]
	}
	out := make([]string, len(ctas))
	copy(out, ctas)
	return out
}
