package statusui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type keyMap struct {
	Quit key.Binding
}

var keys = keyMap{
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c", "esc"),
		key.WithHelp("q", "quit"),
	),
}

var (
	primaryColor = lipgloss.Color("#7C3AED")
	successColor = lipgloss.Color("#10B981")
	warningColor = lipgloss.Color("#F59E0B")
	errorColor   = lipgloss.Color("#EF4444")
	mutedColor   = lipgloss.Color("#6B7280")

	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(primaryColor).MarginBottom(1)
	labelStyle = lipgloss.NewStyle().Foreground(mutedColor).Width(22)
	valueStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFFFFF"))
	helpStyle  = lipgloss.NewStyle().Foreground(mutedColor).MarginTop(1)
)

// SnapshotFunc gathers a fresh Snapshot on demand.
type SnapshotFunc func() Snapshot

type tickMsg time.Time

type model struct {
	snapshot SnapshotFunc
	current  Snapshot
	quitting bool
}

// NewModel returns a bubbletea model that polls snapshot once a
// second.
func NewModel(snapshot SnapshotFunc) tea.Model {
	return model{snapshot: snapshot, current: snapshot()}
}

func (m model) Init() tea.Cmd {
	return tick()
}

func tick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if key.Matches(msg, keys.Quit) {
			m.quitting = true
			return m, tea.Quit
		}
	case tickMsg:
		m.current = m.snapshot()
		return m, tick()
	}
	return m, nil
}

func (m model) View() string {
	if m.quitting {
		return ""
	}

	row := func(label, value string) string {
		return labelStyle.Render(label) + valueStyle.Render(value) + "\n"
	}

	boolStyle := successColor
	if !m.current.OptedIn {
		boolStyle = errorColor
	}

	backoffStyle := successColor
	if m.current.PublisherBackoffRatio > 1 {
		backoffStyle = warningColor
	}

	var b string
	b += titleStyle.Render("beacon status") + "\n"
	b += labelStyle.Render("opted in") + lipgloss.NewStyle().Foreground(boolStyle).Render(fmt.Sprintf("%v", m.current.OptedIn)) + "\n"
	b += row("active spool file", m.current.ActiveSpoolFile)
	b += row("active record count", fmt.Sprintf("%d", m.current.ActiveRecordCount))
	b += row("completed files", fmt.Sprintf("%d", m.current.CompletedFileCount))
	b += labelStyle.Render("publisher backoff") + lipgloss.NewStyle().Foreground(backoffStyle).Render(fmt.Sprintf("%.1fx", m.current.PublisherBackoffRatio)) + "\n"
	b += row("bytes sent (last)", fmt.Sprintf("%d", m.current.BytesSentLastUpload))
	b += row("failed connections", fmt.Sprintf("%d", m.current.FailedConnections))
	b += row("failed server replies", fmt.Sprintf("%d", m.current.FailedServerReplies))
	b += helpStyle.Render(fmt.Sprintf("press %s to quit", keys.Quit.Help().Key))
	return b
}

// Run starts the interactive watch view, blocking until the user
// quits.
func Run(snapshot SnapshotFunc) error {
	_, err := tea.NewProgram(NewModel(snapshot)).Run()
	return err
}
