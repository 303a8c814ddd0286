package template

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRenderNoPlaceholders(t *testing.T) {
	ctx := Context{Title: "A", Text: "B"}

	assert.Equal(t, "plain string", Render("plain string", ctx))
	assert.Equal(t, "", Render("", ctx))
}

func TestRenderTitleAndText(t *testing.T) {
	got := Render("$title-$text", Context{Title: "A", Text: "B"})
	assert.Equal(t, "A-B", got)
}

func TestRenderAllPlaceholders(t *testing.T) {
	ctx := Context{
		Title:      "Alice",
		Text:       "hello",
		AppPackage: "com.chat.app",
		AppName:    "Chat",
		TimeMillis: 1700000000000,
	}

	got := Render("$app_name ($app_package) $title: $text @ $time", ctx)
	assert.Equal(t, "Chat (com.chat.app) Alice: hello @ 1700000000000", got)
}

func TestRenderUnknownTokenVerbatim(t *testing.T) {
	got := Render("$foo $title", Context{Title: "A"})
	assert.Equal(t, "$foo A", got)
}

func TestRenderNotRecursive(t *testing.T) {
	// A substituted value containing a placeholder token is not re-expanded.
	got := Render("$title", Context{Title: "$text", Text: "hello"})
	assert.Equal(t, "$text", got)
}

func TestRenderRepeatedPlaceholders(t *testing.T) {
	got := Render("$text $text", Context{Text: "x"})
	assert.Equal(t, "x x", got)
}

func TestRenderURLEncodesValues(t *testing.T) {
	ctx := Context{Title: "a b", Text: "x&y=z"}

	got := RenderURL("https://h.example/$title/$text", ctx)
	assert.Equal(t, "https://h.example/a+b/x%26y%3Dz", got)
}

func TestRenderURLOnlyTitleAndText(t *testing.T) {
	// URL templates support $title and $text only; other tokens stay verbatim.
	ctx := Context{Title: "A", Text: "B", AppPackage: "pkg", TimeMillis: 5}

	got := RenderURL("https://h.example/$text?p=$app_package&t=$time", ctx)
	assert.Equal(t, "https://h.example/B?p=$app_package&t=$time", got)
}
