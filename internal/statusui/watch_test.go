package statusui

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

func TestNewModel_CapturesInitialSnapshot(t *testing.T) {
	calls := 0
	snap := func() Snapshot {
		calls++
		return Snapshot{OptedIn: true, ActiveRecordCount: calls}
	}

	m := NewModel(snap).(model)
	if m.current.ActiveRecordCount != 1 {
		t.Errorf("expected NewModel to call snapshot once up front, got ActiveRecordCount=%d", m.current.ActiveRecordCount)
	}
}

func TestModel_QuitKeysStopTheProgram(t *testing.T) {
	keys := []tea.KeyMsg{
		{Type: tea.KeyRunes, Runes: []rune("q")},
		{Type: tea.KeyCtrlC},
		{Type: tea.KeyEsc},
	}
	for _, key := range keys {
		m := model{snapshot: func() Snapshot { return Snapshot{} }}
		updated, cmd := m.Update(key)
		if !updated.(model).quitting {
			t.Errorf("key %q: expected quitting to be set", key.String())
		}
		if cmd == nil {
			t.Errorf("key %q: expected a tea.Cmd to be returned", key.String())
		}
	}
}

func TestModel_TickRefreshesSnapshotAndReschedules(t *testing.T) {
	calls := 0
	m := model{snapshot: func() Snapshot {
		calls++
		return Snapshot{ActiveRecordCount: calls}
	}}

	updated, cmd := m.Update(tickMsg(time.Now()))
	um := updated.(model)
	if um.current.ActiveRecordCount != 1 {
		t.Errorf("expected tick to refresh the snapshot, got %d", um.current.ActiveRecordCount)
	}
	if cmd == nil {
		t.Errorf("expected tick to reschedule another tick command")
	}
}

func TestModel_ViewRendersKeyFields(t *testing.T) {
	m := model{current: Snapshot{OptedIn: true, ActiveSpoolFile: "x.trk", PublisherBackoffRatio: 1}}
	view := m.View()
	if !strings.Contains(view, "beacon status") {
		t.Errorf("expected a title in the rendered view")
	}
	if !strings.Contains(view, "x.trk") {
		t.Errorf("expected the active spool file name in the rendered view")
	}
}

func TestModel_ViewIsEmptyWhenQuitting(t *testing.T) {
	m := model{quitting: true}
	if m.View() != "" {
		t.Errorf("expected an empty view once quitting")
	}
}
