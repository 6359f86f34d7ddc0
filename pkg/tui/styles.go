// Package tui implements the live terminal view for suite runs: a Bubble
// Tea model showing per-scenario progress and a styled end-of-run summary.
package tui

import "github.com/charmbracelet/lipgloss"

// Scenario status glyphs — convey meaning without relying on color alone.
const (
	GlyphPending = "○"
	GlyphRunning = "◉"
	GlyphPassed  = "✓"
	GlyphFailed  = "✗"
	GlyphError   = "!"
	GlyphBlocked = "⊘"
)

// Palette adapts to terminal capabilities via lipgloss.
var (
	colorGreen  = lipgloss.Color("42")
	colorRed    = lipgloss.Color("196")
	colorYellow = lipgloss.Color("214")
	colorCyan   = lipgloss.Color("51")
	colorDim    = lipgloss.Color("240")
)

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorCyan).
			Padding(0, 1)

	passStyle = lipgloss.NewStyle().Foreground(colorGreen)
	failStyle = lipgloss.NewStyle().Foreground(colorRed)
	warnStyle = lipgloss.NewStyle().Foreground(colorYellow)
	dimStyle  = lipgloss.NewStyle().Foreground(colorDim)

	summaryBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorDim).
			Padding(0, 2)
)
