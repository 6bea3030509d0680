package ui

import (
	"github.com/charmbracelet/glamour"
)

// RenderMarkdown renders markdown (long-form help text, migration summaries)
// for terminal display, falling back to the raw source when glamour can't
// build a renderer (e.g. no TTY, unsupported terminal).
func RenderMarkdown(source string) string {
	width := GetWidth()
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return source
	}
	out, err := r.Render(source)
	if err != nil {
		return source
	}
	return out
}
