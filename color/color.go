// Package color names the ANSI colors used by CLI output.
package color

import "github.com/charmbracelet/lipgloss"

func New(value string) lipgloss.Color {
	return lipgloss.Color(value)
}

var (
	Black  = New("0")
	Red    = New("1")
	Green  = New("2")
	Yellow = New("3")
	Blue   = New("4")
	Purple = New("5")
	White  = New("7")
)

var (
	HiPurple = New("13")
	HiCyan   = New("14")
)
