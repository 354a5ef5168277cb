package tui

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/vovakirdan/clash/internal/storage"
)

func TestHistoryModel(t *testing.T) {
	store, err := storage.Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer store.Close()

	if _, err := store.SaveSession(storage.SessionRecord{Player: "alice", Outcome: "won", RTTMean: 40 * time.Millisecond}); err != nil {
		t.Fatalf("SaveSession: %v", err)
	}
	if _, err := store.SaveMatch(storage.MatchRecord{MatchID: "ABCD2345", Players: 3, Winner: "alice", EndReason: "completed"}); err != nil {
		t.Fatalf("SaveMatch: %v", err)
	}

	m := NewHistoryModel(store, "alice", 100, 24)
	view := m.View()
	if !strings.Contains(view, "SESSIONS") || !strings.Contains(view, "won") {
		t.Errorf("sessions view:\n%s", view)
	}
	if !strings.Contains(view, "1 sessions, 1 won") {
		t.Errorf("player stats missing:\n%s", view)
	}

	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyTab})
	m = next.(HistoryModel)
	view = m.View()
	if !strings.Contains(view, "MATCHES") || !strings.Contains(view, "ABCD2345") {
		t.Errorf("matches view:\n%s", view)
	}

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	if cmd == nil {
		t.Error("q did not quit")
	}
}

func TestHistoryModelEmpty(t *testing.T) {
	m := NewHistoryModel(nil, "", 80, 24)
	if !strings.Contains(m.View(), "No sessions recorded yet") {
		t.Errorf("empty view:\n%s", m.View())
	}
}
