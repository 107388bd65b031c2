package watch

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"

	"github.com/mattjoyce/overviewd/internal/dispatch"
	"github.com/mattjoyce/overviewd/internal/events"
)

// renderHeader draws the daemon status line.
func renderHeader(health healthMsg, connected bool, spinner Spinner, theme Theme, width int) string {
	conn := theme.StatusCanceled.Render("● disconnected")
	if connected {
		conn = theme.StatusCompleted.Render("● connected")
	}

	toggle := theme.Dim.Render("toggle idle")
	if health.ToggleInFlight {
		toggle = theme.StatusProcessing.Render("toggle in flight")
	}

	uptime := time.Duration(health.UptimeSeconds) * time.Second
	line := fmt.Sprintf(" %s  depth %d  %s  up %s  %s",
		conn,
		health.QueueDepth,
		toggle,
		uptime,
		spinner.Render(theme),
	)

	return theme.Border.Width(width - 6).Render(
		theme.Title.Render("overviewd") + line,
	)
}

// renderQueue draws the queue snapshot table.
func renderQueue(queue table.Model, snap dispatch.Snapshot, theme Theme, width int) string {
	title := theme.Header.Render(fmt.Sprintf(" Queue (%d/%d)", snap.Depth, snap.Bound))
	focus := theme.Dim.Render(fmt.Sprintf(" focus %d", snap.FocusIndex))

	body := queue.View()
	if snap.Depth == 0 {
		body = theme.Dim.Render(" (empty)")
	}

	return theme.Border.Width(width - 6).Render(
		lipgloss.JoinVertical(lipgloss.Left, title+focus, body),
	)
}

// renderEventStream draws the recent lifecycle events, newest first.
func renderEventStream(log []events.Event, theme Theme, width int) string {
	title := theme.Header.Render(" Events")

	max := 10
	if len(log) < max {
		max = len(log)
	}

	lines := make([]string, 0, max+1)
	lines = append(lines, title)
	for _, ev := range log[:max] {
		ts := ev.At.Format("15:04:05")
		line := fmt.Sprintf(" %s  %s  %s",
			theme.Dim.Render(ts),
			styleEventType(ev.Type, theme),
			theme.Dim.Render(truncate(string(ev.Data), width-40)),
		)
		lines = append(lines, line)
	}
	if max == 0 {
		lines = append(lines, theme.Dim.Render(" (no events yet)"))
	}

	return theme.Border.Width(width - 6).Render(
		lipgloss.JoinVertical(lipgloss.Left, lines...),
	)
}

func styleEventType(eventType string, theme Theme) string {
	switch {
	case strings.HasSuffix(eventType, ".completed"):
		return theme.StatusCompleted.Render(eventType)
	case strings.HasSuffix(eventType, ".canceled"), strings.HasSuffix(eventType, ".dropped"):
		return theme.StatusCanceled.Render(eventType)
	case strings.HasSuffix(eventType, ".processing"):
		return theme.StatusProcessing.Render(eventType)
	default:
		return theme.Highlight.Render(eventType)
	}
}

func truncate(s string, n int) string {
	if n <= 3 {
		return ""
	}
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
