package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/vovakirdan/clash/internal/storage"
)

const maxHistory = 100

type historyTab int

const (
	tabSessions historyTab = iota
	tabMatches
)

func (t historyTab) String() string {
	if t == tabMatches {
		return "Matches"
	}
	return "Sessions"
}

// HistoryKeyMap defines the key bindings for the history screen.
type HistoryKeyMap struct {
	Up   key.Binding
	Down key.Binding
	Tab  key.Binding
	Quit key.Binding
}

// ShortHelp returns key bindings for the short help view.
func (k HistoryKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Tab, k.Quit}
}

// FullHelp returns key bindings for the full help view.
func (k HistoryKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.Up, k.Down}, {k.Tab, k.Quit}}
}

// DefaultHistoryKeyMap returns default key bindings.
func DefaultHistoryKeyMap() HistoryKeyMap {
	return HistoryKeyMap{
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("up/k", "scroll up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("down/j", "scroll down"),
		),
		Tab: key.NewBinding(
			key.WithKeys("tab", "shift+tab", "left", "right"),
			key.WithHelp("tab", "sessions/matches"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "esc", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

// HistoryModel lists recorded client sessions and server matches.
type HistoryModel struct {
	store  *storage.Store
	player string // Stats shown in the title when set

	tab      historyTab
	sessions []storage.SessionRecord
	matches  []storage.MatchRecord
	stats    *storage.PlayerStats
	loadErr  error

	table    table.Model
	help     help.Model
	keys     HistoryKeyMap
	width    int
	height   int
	quitting bool
}

// NewHistoryModel creates a history model and loads its data.
func NewHistoryModel(store *storage.Store, player string, width, height int) HistoryModel {
	h := help.New()
	h.Width = width

	m := HistoryModel{
		store:  store,
		player: player,
		help:   h,
		keys:   DefaultHistoryKeyMap(),
		width:  width,
		height: height,
	}
	m.load()
	m.table = m.createTable()
	m.updateTableRows()
	return m
}

func (m *HistoryModel) load() {
	if m.store == nil {
		return
	}
	var err error
	if m.sessions, err = m.store.RecentSessions(maxHistory); err != nil {
		m.loadErr = err
		return
	}
	if m.matches, err = m.store.RecentMatches(maxHistory); err != nil {
		m.loadErr = err
		return
	}
	if m.player != "" {
		m.stats, m.loadErr = m.store.GetPlayerStats(m.player)
	}
}

func (m *HistoryModel) columns() []table.Column {
	if m.tab == tabMatches {
		return []table.Column{
			{Title: "Match", Width: 10},
			{Title: "Players", Width: 8},
			{Title: "Winner", Width: 14},
			{Title: "End", Width: 10},
			{Title: "Length", Width: 8},
			{Title: "Date", Width: 14},
		}
	}
	return []table.Column{
		{Title: "Player", Width: 14},
		{Title: "Outcome", Width: 9},
		{Title: "Error", Width: 18},
		{Title: "RTT", Width: 8},
		{Title: "Discarded", Width: 10},
		{Title: "Date", Width: 14},
	}
}

func (m *HistoryModel) createTable() table.Model {
	t := table.New(
		table.WithColumns(m.columns()),
		table.WithFocused(true),
		table.WithHeight(max(3, m.height-8)), // Leave room for header, help, and margins
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		BorderBottom(true).
		Bold(true)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("229")).
		Background(lipgloss.Color("57")).
		Bold(false)
	t.SetStyles(s)
	return t
}

func (m *HistoryModel) updateTableRows() {
	var rows []table.Row
	if m.tab == tabMatches {
		for _, r := range m.matches {
			winner := r.Winner
			if winner == "" {
				winner = "-"
			}
			rows = append(rows, table.Row{
				r.MatchID,
				fmt.Sprintf("%d", r.Players),
				winner,
				r.EndReason,
				fmt.Sprintf("%ds", r.Duration),
				r.CreatedAt.Format("Jan 02 15:04"),
			})
		}
	} else {
		for _, r := range m.sessions {
			errKind := r.ErrorKind
			if errKind == "" {
				errKind = "-"
			}
			rows = append(rows, table.Row{
				r.Player,
				r.Outcome,
				errKind,
				fmt.Sprintf("%dms", r.RTTMean.Milliseconds()),
				fmt.Sprintf("%d", r.Discarded),
				r.CreatedAt.Format("Jan 02 15:04"),
			})
		}
	}
	m.table.SetRows(rows)
	m.table.GotoTop()
}

// Init initializes the history model.
func (m HistoryModel) Init() tea.Cmd {
	return nil
}

// Update handles messages for the history screen.
func (m HistoryModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			m.quitting = true
			return m, tea.Quit

		case key.Matches(msg, m.keys.Tab):
			m.tab = 1 - m.tab
			// Column count differs per tab; rows must be cleared first.
			m.table.SetRows(nil)
			m.table.SetColumns(m.columns())
			m.updateTableRows()
			return m, nil
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.table = m.createTable()
		m.updateTableRows()
		m.help.Width = msg.Width
		return m, nil
	}

	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

// View renders the history screen.
func (m HistoryModel) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder

	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("229"))
	b.WriteString(titleStyle.Render(centerText("HISTORY - "+strings.ToUpper(m.tab.String()), m.width)))
	b.WriteString("\n")
	if m.stats != nil && m.stats.Sessions > 0 {
		line := fmt.Sprintf("%s: %d sessions, %d won, %d failed, avg rtt %dms",
			m.stats.Player, m.stats.Sessions, m.stats.Wins, m.stats.Failures, m.stats.AvgRTT.Milliseconds())
		b.WriteString(centerText(line, m.width))
	}
	b.WriteString("\n\n")

	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Padding(0, 1)
	b.WriteString(boxStyle.Render(m.tableContent()))

	b.WriteString("\n")
	helpStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("241"))
	b.WriteString(helpStyle.Render(m.help.View(m.keys)))

	return b.String()
}

func (m HistoryModel) tableContent() string {
	emptyStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("241")).
		Italic(true).
		Padding(2, 4)

	switch {
	case m.loadErr != nil:
		return emptyStyle.Render("Could not load history:\n" + m.loadErr.Error())
	case m.tab == tabSessions && len(m.sessions) == 0:
		return emptyStyle.Render("No sessions recorded yet.\nPlay a round with 'clash play'.")
	case m.tab == tabMatches && len(m.matches) == 0:
		return emptyStyle.Render("No matches recorded yet.\nHost one with 'clash serve'.")
	}
	return m.table.View()
}

// centerText pads text so it is centered in width columns.
func centerText(text string, width int) string {
	if len(text) >= width {
		return text
	}
	padding := (width - len(text)) / 2
	return strings.Repeat(" ", padding) + text
}

// RunHistory runs the history screen.
func RunHistory(store *storage.Store, player string, width, height int) error {
	p := tea.NewProgram(NewHistoryModel(store, player, width, height), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
