// Package watch implements the live queue view TUI served off the
// daemon's SSE and snapshot endpoints.
package watch

import "github.com/charmbracelet/lipgloss"

// Theme centralizes all styling for the watch TUI.
type Theme struct {
	// Command status colors
	StatusIdle       lipgloss.Style
	StatusProcessing lipgloss.Style
	StatusCompleted  lipgloss.Style
	StatusCanceled   lipgloss.Style

	// UI elements
	Border    lipgloss.Style
	Title     lipgloss.Style
	Header    lipgloss.Style
	Dim       lipgloss.Style
	Highlight lipgloss.Style

	// Indicators
	TickerActive   lipgloss.Style
	TickerInactive lipgloss.Style
}

func NewDefaultTheme() Theme {
	purple := lipgloss.Color("#874BFD")

	return Theme{
		StatusIdle:       lipgloss.NewStyle().Foreground(lipgloss.Color("#888888")),
		StatusProcessing: lipgloss.NewStyle().Foreground(lipgloss.Color("#FFFF00")),
		StatusCompleted:  lipgloss.NewStyle().Foreground(lipgloss.Color("#00FF00")),
		StatusCanceled:   lipgloss.NewStyle().Foreground(lipgloss.Color("#FF0000")),

		Border: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(purple),
		Title: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Padding(0, 1),
		Header: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#61AFEF")),
		Dim:       lipgloss.NewStyle().Foreground(lipgloss.Color("#888888")),
		Highlight: lipgloss.NewStyle().Foreground(lipgloss.Color("#E5C07B")),

		TickerActive:   lipgloss.NewStyle().Foreground(lipgloss.Color("#00FF00")),
		TickerInactive: lipgloss.NewStyle().Foreground(lipgloss.Color("#444444")),
	}
}

// StatusStyle picks the style for a command status string.
func (t Theme) StatusStyle(status string) lipgloss.Style {
	switch status {
	case "processing":
		return t.StatusProcessing
	case "completed":
		return t.StatusCompleted
	case "canceled":
		return t.StatusCanceled
	default:
		return t.StatusIdle
	}
}
