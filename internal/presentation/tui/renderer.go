package tui

import (
	"github.com/charmbracelet/glamour"
)

// Renderer turns markdown into terminal output.
type Renderer func(string) (string, error)

// NewRenderer renders markdown with glamour, detecting a light or dark background.
func NewRenderer() Renderer {
	r, err := glamour.NewTermRenderer(glamour.WithAutoStyle())
	if err != nil {
		return Plain
	}
	return r.Render
}

// Plain returns markdown unchanged, for pipes and non-TTY output.
func Plain(markdown string) (string, error) {
	return markdown, nil
}
