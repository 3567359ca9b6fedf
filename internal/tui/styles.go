package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/eddielimmm/my-agile-plus/internal/store"
)

// Palette. Each color has a light and a dark terminal variant.
var (
	colorPrimary   = lipgloss.AdaptiveColor{Light: "#3B5BDB", Dark: "#748FFC"}
	colorSecondary = lipgloss.AdaptiveColor{Light: "#0B7285", Dark: "#3BC9DB"}
	colorAccent    = lipgloss.AdaptiveColor{Light: "#C2255C", Dark: "#F06595"}
	colorMuted     = lipgloss.AdaptiveColor{Light: "#868E96", Dark: "#6C757D"}
	colorSuccess   = lipgloss.AdaptiveColor{Light: "#2B8A3E", Dark: "#51CF66"}
	colorWarning   = lipgloss.AdaptiveColor{Light: "#E67700", Dark: "#FCC419"}
	colorError     = lipgloss.AdaptiveColor{Light: "#C92A2A", Dark: "#FF6B6B"}
	colorFg        = lipgloss.AdaptiveColor{Light: "#212529", Dark: "#E9ECEF"}
	colorSubtle    = lipgloss.AdaptiveColor{Light: "#CED4DA", Dark: "#495057"}
	colorHighlight = lipgloss.AdaptiveColor{Light: "#5F3DC4", Dark: "#B197FC"}
)

func fg(c lipgloss.TerminalColor) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(c)
}

func panel(border lipgloss.TerminalColor) lipgloss.Style {
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(border).
		Padding(0, 1)
}

var (
	activeTabStyle = fg(colorPrimary).
			Bold(true).
			Underline(true).
			Padding(0, 1)
	inactiveTabStyle = fg(colorMuted).Padding(0, 1)

	panelStyle       = panel(colorSubtle)
	activePanelStyle = panel(colorSuccess)

	timerStyle        = fg(colorMuted).Bold(true)
	timerRunningStyle = fg(colorSuccess).Bold(true)

	titleStyle     = fg(colorPrimary).Bold(true)
	accentStyle    = fg(colorAccent)
	successStyle   = fg(colorSuccess)
	warningStyle   = fg(colorWarning)
	errorStyle     = fg(colorError).Bold(true)
	mutedStyle     = fg(colorMuted)
	highlightStyle = fg(colorHighlight)

	headerStyle = lipgloss.NewStyle().
			Padding(0, 1).
			Border(lipgloss.NormalBorder(), false, false, true, false).
			BorderForeground(colorSubtle)
	footerStyle = fg(colorMuted).Padding(0, 1)

	selectedItemStyle = fg(colorPrimary).Bold(true)
	normalItemStyle   = fg(colorFg)
	doneItemStyle     = fg(colorMuted).Strikethrough(true)

	// daily hours in the reports chart
	barStyle = fg(colorSecondary)
)

// priorityStyle colors the priority marker of a task row.
func priorityStyle(p store.Priority) lipgloss.Style {
	switch p {
	case store.PriorityHigh:
		return errorStyle
	case store.PriorityMedium:
		return warningStyle
	case store.PriorityLow:
		return highlightStyle
	}
	return mutedStyle
}
