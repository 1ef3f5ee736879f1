package prompt

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDeriveLayout_Position(t *testing.T) {
	t.Parallel()

	long := strings.Repeat("word ", 40)

	first := DeriveLayout(long, 0, 5)
	assert.Equal(t, LayoutBoldStatement, first.Layout)
	assert.Equal(t, "center", first.TextPlacement)
	assert.Equal(t, "large", first.FontSize)
	assert.Equal(t, "high-contrast", first.ColorScheme)

	last := DeriveLayout("short", 4, 5)
	assert.Equal(t, LayoutTextFocused, last.Layout)
	assert.Equal(t, "center", last.TextPlacement)
	assert.Equal(t, "medium", last.FontSize)
	assert.Equal(t, "vibrant", last.ColorScheme)
	assert.Equal(t, []string{"main text content", "call-to-action"}, last.VisualHierarchy)
}

func TestDeriveLayout_ContentLength(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		content     string
		layout      LayoutType
		placement   string
		fontSize    string
		colorScheme string
	}{
		{"long", strings.Repeat("a", 121), LayoutTextFocused, "top", "small", "subtle"},
		{"short", strings.Repeat("a", 59), LayoutBoldStatement, "center", "large", "high-contrast"},
		{"medium lower bound", strings.Repeat("a", 60), LayoutSplitScreen, "left", "medium", "monochrome"},
		{"medium upper bound", strings.Repeat("a", 120), LayoutSplitScreen, "left", "medium", "monochrome"},
		{"multibyte counts runes", strings.Repeat("é", 100), LayoutSplitScreen, "left", "medium", "monochrome"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := DeriveLayout(tt.content, 2, 5)
			assert.Equal(t, tt.layout, l.Layout)
			assert.Equal(t, tt.placement, l.TextPlacement)
			assert.Equal(t, tt.fontSize, l.FontSize)
			assert.Equal(t, tt.colorScheme, l.ColorScheme)
		})
	}
}

func TestDeriveLayout_VisualHierarchy(t *testing.T) {
	t.Parallel()

	l := DeriveLayout("🔥 Ready?\n- wake early\n- hydrate", 1, 5)
	assert.Equal(t, []string{
		"emoji/icon accent",
		"list items",
		"emphasized question or exclamation",
		"main text content",
	}, l.VisualHierarchy)

	numbered := DeriveLayout("1. stretch\n2. journal", 1, 5)
	assert.Equal(t, []string{"list items", "main text content"}, numbered.VisualHierarchy)

	plain := DeriveLayout("plain sentence", 1, 5)
	assert.Equal(t, []string{"main text content"}, plain.VisualHierarchy)

	for _, text := range []string{"© 2024 Acme", "Registered® brand", "Bake at 180°C", "Costs £5 × 2"} {
		l := DeriveLayout(text, 1, 5)
		assert.Equal(t, []string{"main text content"}, l.VisualHierarchy, text)
	}
	for _, text := range []string{"Rise early ☀", "Top pick ⭐", "Ship it 🚀"} {
		l := DeriveLayout(text, 1, 5)
		assert.Contains(t, l.VisualHierarchy, "emoji/icon accent", text)
	}

	single := DeriveLayout("Only slide!", 0, 1)
	assert.Equal(t, LayoutBoldStatement, single.Layout)
	assert.Equal(t, []string{"emphasized question or exclamation", "main text content", "call-to-action"},
		single.VisualHierarchy)
}
