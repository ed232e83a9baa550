package main

import (
	"strings"

	"github.com/charmbracelet/glamour"
)

// renderMarkdown converts markdown to styled terminal output. Falls back to
// the raw input if glamour is unavailable or rendering fails.
func renderMarkdown(md string) string {
	if strings.TrimSpace(md) == "" {
		return md
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return md
	}
	out, err := r.Render(md)
	if err != nil {
		return md
	}
	return out
}
