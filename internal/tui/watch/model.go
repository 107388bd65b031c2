package watch

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/mattjoyce/overviewd/internal/dispatch"
	"github.com/mattjoyce/overviewd/internal/events"
)

// Model is the main BubbleTea model for the watch TUI.
type Model struct {
	apiURL string
	apiKey string

	width  int
	height int

	// State
	health   healthMsg
	snap     dispatch.Snapshot
	eventLog []events.Event

	connected bool
	lastError string

	// Live indicator
	spinner Spinner

	// UI
	theme Theme
	queue table.Model

	// Communication
	hubEvents chan events.Event
}

// New creates a new watch TUI model.
func New(apiURL, apiKey string) *Model {
	columns := []table.Column{
		{Title: "ID", Width: 10},
		{Title: "TYPE", Width: 16},
		{Title: "STATUS", Width: 12},
		{Title: "AGE", Width: 10},
	}
	queue := table.New(
		table.WithColumns(columns),
		table.WithHeight(5),
	)

	return &Model{
		apiURL:    apiURL,
		apiKey:    apiKey,
		eventLog:  make([]events.Event, 0),
		hubEvents: make(chan events.Event, 100),
		spinner:   NewSpinner(),
		theme:     NewDefaultTheme(),
		queue:     queue,
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(
		subscribeToEvents(m.apiURL, m.apiKey, m.hubEvents),
		receiveNextEvent(m.hubEvents),
		func() tea.Msg { return fetchHealth(m.apiURL, m.apiKey) },
		func() tea.Msg { return fetchQueue(m.apiURL, m.apiKey) },
		tea.Tick(time.Second, func(t time.Time) tea.Msg { return tickMsg(t) }),
		tea.EnterAltScreen,
	)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "up", "k", "down", "j":
			var cmd tea.Cmd
			m.queue, cmd = m.queue.Update(msg)
			return m, cmd
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tickMsg:
		m.spinner.Decay()
		return m, tea.Tick(time.Second, func(t time.Time) tea.Msg { return tickMsg(t) })

	case eventMsg:
		e := events.Event(msg)

		// Newest first, bounded log.
		m.eventLog = append([]events.Event{e}, m.eventLog...)
		if len(m.eventLog) > 50 {
			m.eventLog = m.eventLog[:50]
		}

		m.spinner.OnEvent()
		m.connected = true
		m.lastError = ""

		// Queue composition changed; refresh the snapshot.
		return m, tea.Batch(
			receiveNextEvent(m.hubEvents),
			func() tea.Msg { return fetchQueue(m.apiURL, m.apiKey) },
		)

	case healthMsg:
		m.health = msg
		m.connected = true
		m.lastError = ""

		return m, tea.Tick(5*time.Second, func(t time.Time) tea.Msg {
			return fetchHealth(m.apiURL, m.apiKey)
		})

	case queueMsg:
		m.snap = dispatch.Snapshot(msg)
		m.queue.SetRows(queueRows(m.snap))
		return m, nil

	case sseDisconnectedMsg:
		m.connected = false
		m.lastError = "SSE disconnected, reconnecting..."
		return m, tea.Tick(3*time.Second, func(t time.Time) tea.Msg {
			return reconnectMsg{}
		})

	case reconnectMsg:
		return m, subscribeToEvents(m.apiURL, m.apiKey, m.hubEvents)

	case errMsg:
		m.lastError = msg.Error()
		return m, tea.Tick(5*time.Second, func(t time.Time) tea.Msg {
			return fetchHealth(m.apiURL, m.apiKey)
		})
	}

	return m, nil
}

func (m Model) View() string {
	if m.width == 0 {
		return "Initializing overview watch..."
	}

	header := renderHeader(m.health, m.connected, m.spinner, m.theme, m.width)
	queue := renderQueue(m.queue, m.snap, m.theme, m.width)
	eventStream := renderEventStream(m.eventLog, m.theme, m.width)

	var errBar string
	if m.lastError != "" {
		errBar = m.theme.StatusCanceled.Render(fmt.Sprintf(" ⚠ %s", m.lastError))
	}

	help := lipgloss.NewStyle().
		Foreground(lipgloss.Color("241")).
		Render(" [q] Quit • [↑/↓] Navigate Queue")

	parts := []string{header, queue, eventStream}
	if errBar != "" {
		parts = append(parts, errBar)
	}
	parts = append(parts, help)

	return lipgloss.NewStyle().Margin(1, 2).Render(
		lipgloss.JoinVertical(lipgloss.Left, parts...),
	)
}

func queueRows(snap dispatch.Snapshot) []table.Row {
	rows := make([]table.Row, 0, len(snap.Entries))
	for _, e := range snap.Entries {
		id := e.ID
		if len(id) > 8 {
			id = id[:8]
		}
		rows = append(rows, table.Row{
			id,
			string(e.Type),
			string(e.Status),
			fmt.Sprintf("%dms", e.AgeMS),
		})
	}
	return rows
}
