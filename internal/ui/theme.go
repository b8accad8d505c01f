package ui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/bamsammich/hardlink-dedup/internal/config"
)

// Catppuccin Mocha palette, mutable so config can override.
var (
	ColorPrefix   = lipgloss.Color("#5a6278")
	ColorLinked   = lipgloss.Color("#a6e3a1")
	ColorExcluded = lipgloss.Color("#5a6278")
	ColorWarning  = lipgloss.Color("#f9e2af")
	ColorSummary  = lipgloss.Color("#cdd6f4")
)

// Pre-built styles, rebuilt by rebuildStyles() after color changes.
var (
	stylePrefix   lipgloss.Style
	styleLinked   lipgloss.Style
	styleExcluded lipgloss.Style
	styleWarning  lipgloss.Style
	styleSummary  lipgloss.Style
)

func init() {
	rebuildStyles()
}

func rebuildStyles() {
	stylePrefix = lipgloss.NewStyle().Foreground(ColorPrefix)
	styleLinked = lipgloss.NewStyle().Foreground(ColorLinked)
	styleExcluded = lipgloss.NewStyle().Foreground(ColorExcluded)
	styleWarning = lipgloss.NewStyle().Foreground(ColorWarning)
	styleSummary = lipgloss.NewStyle().Bold(true).Foreground(ColorSummary)
}

// ApplyTheme overrides colors from a config ThemeConfig and rebuilds all styles.
func ApplyTheme(tc config.ThemeConfig) {
	if tc.Prefix != nil {
		ColorPrefix = lipgloss.Color(*tc.Prefix)
	}
	if tc.Linked != nil {
		ColorLinked = lipgloss.Color(*tc.Linked)
	}
	if tc.Excluded != nil {
		ColorExcluded = lipgloss.Color(*tc.Excluded)
	}
	if tc.Warning != nil {
		ColorWarning = lipgloss.Color(*tc.Warning)
	}
	if tc.Summary != nil {
		ColorSummary = lipgloss.Color(*tc.Summary)
	}
	rebuildStyles()
}

// painter applies a style only when output is a terminal.
type painter bool

func (p painter) paint(s lipgloss.Style, text string) string {
	if !p {
		return text
	}
	return s.Render(text)
}
