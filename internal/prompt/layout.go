package prompt

import (
	"strings"
	"unicode/utf8"
)

// LayoutType is the overall arrangement of a slide.
type LayoutType string

// Layout types
const (
	LayoutBoldStatement LayoutType = "bold-statement"
	LayoutTextFocused   LayoutType = "text-focused"
	LayoutSplitScreen   LayoutType = "split-screen"
)

// SlideLayout is the design suggestion derived for one slide.
type SlideLayout struct {
	Layout          LayoutType `json:"layout"`
	TextPlacement   string     `json:"textPlacement"`
	FontSize        string     `json:"fontSize"`
	ColorScheme     string     `json:"colorScheme"`
	VisualHierarchy []string   `json:"visualHierarchy"`
}

const (
	longContentRunes  = 120
	shortContentRunes = 60
)

// DeriveLayout suggests a layout for the slide at zero-based index out of
// total. The first and last slides get fixed treatments; other slides are
// laid out by content length.
func DeriveLayout(content string, index, total int) SlideLayout {
	var l SlideLayout
	length := utf8.RuneCountInString(content)
	isLast := total > 0 && index == total-1

	switch {
	case index == 0:
		l = SlideLayout{Layout: LayoutBoldStatement, TextPlacement: "center", FontSize: "large", ColorScheme: "high-contrast"}
	case isLast:
		l = SlideLayout{Layout: LayoutTextFocused, TextPlacement: "center", FontSize: "medium", ColorScheme: "vibrant"}
	case length > longContentRunes:
		l = SlideLayout{Layout: LayoutTextFocused, TextPlacement: "top", FontSize: "small", ColorScheme: "subtle"}
	case length < shortContentRunes:
		l = SlideLayout{Layout: LayoutBoldStatement, TextPlacement: "center", FontSize: "large", ColorScheme: "high-contrast"}
	default:
		l = SlideLayout{Layout: LayoutSplitScreen, TextPlacement: "left", FontSize: "medium", ColorScheme: "monochrome"}
	}

	l.VisualHierarchy = visualHierarchy(content, isLast)
	return l
}

func visualHierarchy(content string, isLast bool) []string {
	var h []string
	if strings.IndexFunc(content, isEmoji) >= 0 {
		h = append(h, "emoji/icon accent")
	}
	if hasListMarkers(content) {
		h = append(h, "list items")
	}
	if strings.ContainsAny(content, "?!") {
		h = append(h, "emphasized question or exclamation")
	}
	h = append(h, "main text content")
	if isLast {
		h = append(h, "call-to-action")
	}
	return h
}

// isEmoji matches the pictographic blocks only; Latin-1 symbols such as
// © ® ° are ordinary text.
func isEmoji(r rune) bool {
	switch {
	case r >= 0x1F000 && r <= 0x1FAFF: // pictographs, emoticons, flags
		return true
	case r >= 0x2600 && r <= 0x27BF: // miscellaneous symbols, dingbats
		return true
	case r >= 0x2B00 && r <= 0x2BFF: // arrows and stars such as ⭐
		return true
	case r >= 0x231A && r <= 0x23FF: // ⌚ ⏰ and similar
		return true
	}
	return false
}

func hasListMarkers(content string) bool {
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "- ") || strings.HasPrefix(line, "* ") || strings.HasPrefix(line, "• ") {
			return true
		}
		if i := strings.IndexAny(line, ".)"); i > 0 && i <= 3 && isDigits(line[:i]) {
			return true
		}
	}
	return false
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}
