// Package style wraps lipgloss into small string renderers for CLI output.
package style

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/glasspane/glasspane/color"
)

func New() lipgloss.Style {
	return lipgloss.NewStyle()
}

// Fg renders s with foreground c.
func Fg(c lipgloss.Color) func(string) string {
	return func(s string) string { return New().Foreground(c).Render(s) }
}

var (
	Faint  = func(s string) string { return New().Faint(true).Render(s) }
	Bold   = func(s string) string { return New().Bold(true).Render(s) }
	Italic = func(s string) string { return New().Italic(true).Render(s) }
)

// Badge renders a padded, colored label such as a readiness tag in plugin listings.
func Badge(fg, bg lipgloss.Color) func(string) string {
	return func(s string) string { return New().Foreground(fg).Background(bg).Padding(0, 1).Render(s) }
}

// Ready and NotReady are the readiness badges.
var (
	Ready    = Badge(color.Black, color.Green)
	NotReady = Badge(color.White, color.Red)
)
