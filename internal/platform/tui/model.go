package tui

import (
	"errors"
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"

	"github.com/vovakirdan/clash/internal/core"
	"github.com/vovakirdan/clash/internal/input"
	"github.com/vovakirdan/clash/internal/session"
	"github.com/vovakirdan/clash/internal/storage"
)

// Options configures a game model.
type Options struct {
	Net     session.Network
	Session session.Config
	Sensor  input.Config
	Store   *storage.Store // Optional, can be nil

	TickInterval time.Duration
	Width        int
	Height       int
	Logger       *log.Logger
}

type popupKind uint8

const (
	popupNone popupKind = iota
	popupStart
	popupError
	popupResult
)

var (
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("208")).Bold(true)
	helpStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

// Model is the Bubble Tea model for one client connection. It runs one
// session per round and starts a new one when the player asks for a rematch.
type Model struct {
	opts   Options
	logger *log.Logger

	sess   *session.Session
	sensor *input.Sensor

	screen *core.Screen
	keys   KeyMap
	help   help.Model

	popup    popupKind
	summary  session.Summary
	saved    bool
	quitting bool
}

// NewModel creates a game model and starts its first session.
func NewModel(opts Options) (Model, error) {
	if opts.Net == nil {
		return Model{}, errors.New("tui: no network")
	}
	if opts.TickInterval <= 0 {
		opts.TickInterval = time.Second / 30
	}
	if opts.Width <= 0 || opts.Height <= 0 {
		def := core.DefaultConfig()
		opts.Width, opts.Height = def.ScreenW, def.ScreenH
	}
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard)
	}

	m := Model{
		opts:   opts,
		logger: opts.Logger,
		screen: core.NewScreen(opts.Width, max(0, opts.Height-statusLines)),
		keys:   DefaultKeyMap(),
		help:   help.New(),
	}
	m.help.Width = opts.Width
	if err := m.newSession(); err != nil {
		return Model{}, err
	}
	return m, nil
}

func (m *Model) newSession() error {
	sensor := input.NewSensor(m.opts.Sensor)
	sess, err := session.New(m.opts.Session, sensor, m.opts.Net)
	if err != nil {
		return fmt.Errorf("tui: %w", err)
	}
	m.sensor = sensor
	m.sess = sess
	m.popup = popupNone
	m.saved = false
	return nil
}

// Init starts the tick loop.
func (m Model) Init() tea.Cmd {
	return tickCmd(m.opts.TickInterval)
}

// Update handles messages and updates the model state.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.opts.Width, m.opts.Height = msg.Width, msg.Height
		m.screen.Resize(msg.Width, max(0, msg.Height-statusLines))
		m.help.Width = msg.Width
		return m, nil

	case TickMsg:
		return m.handleTick()
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	action := m.keys.Action(msg)
	switch action {
	case core.ActionQuit:
		m.finish()
		return m, tea.Quit

	case core.ActionUp, core.ActionDown, core.ActionLeft, core.ActionRight:
		m.sensor.Feed(action.Tilt())

	case core.ActionConfirm:
		switch m.popup {
		case popupError:
			m.sess.Dismiss()
			m.handleUI()
		case popupResult:
			m.sess.Close()
			if err := m.newSession(); err != nil {
				m.logger.Error("starting next round", "error", err)
				m.quitting = true
			}
		}

	case core.ActionBack:
		m.sess.Abort()
		m.handleUI()
	}

	if m.quitting {
		return m, tea.Quit
	}
	return m, nil
}

func (m Model) handleTick() (tea.Model, tea.Cmd) {
	if m.quitting {
		return m, nil
	}
	// The finished session must not consume the next round's updates.
	if m.popup != popupResult {
		m.sess.Step(m.opts.TickInterval)
		m.handleUI()
	}
	if m.quitting {
		return m, tea.Quit
	}
	return m, tickCmd(m.opts.TickInterval)
}

// handleUI reacts to the session's pending UI notification.
func (m *Model) handleUI() {
	switch m.sess.UIChange() {
	case session.PopupShow:
		if m.sess.LastError() != nil {
			m.popup = popupError
		} else {
			m.popup = popupStart
		}
	case session.PopupHide:
		if m.popup == popupStart {
			m.popup = popupNone
		}
	case session.GameRoundEnd:
		m.popup = popupResult
		m.save()
	case session.GameAbort:
		m.save()
		m.sess.Close()
		m.quitting = true
	}
}

// finish aborts the running session and records it.
func (m *Model) finish() {
	m.sess.Abort()
	m.save()
	if err := m.sess.Close(); err != nil {
		m.logger.Warn("closing session", "error", err)
	}
	m.quitting = true
}

// save records the session outcome once.
func (m *Model) save() {
	if m.saved {
		return
	}
	m.saved = true
	m.summary = m.sess.Summary()
	m.logger.Info("session finished",
		"player", m.summary.Player,
		"outcome", m.summary.Outcome,
		"ticks", m.summary.Ticks,
		"rtt_mean", m.summary.RTT.Mean,
	)
	if m.opts.Store == nil {
		return
	}
	if _, err := m.opts.Store.SaveSession(storage.SessionRecordFrom(m.summary)); err != nil {
		m.logger.Warn("saving session", "error", err)
	}
}

// Summary returns the outcome of the last finished session.
func (m Model) Summary() session.Summary {
	return m.summary
}

// View renders the arena, any popup and the status line.
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	m.screen.Clear()
	own, _ := m.sess.Own()
	drawArena(m.screen, m.sess.World(), own)

	switch m.popup {
	case popupStart:
		drawPopup(m.screen, "Get ready", m.startLines(), core.ColorCyan)
	case popupError:
		if sig := m.sess.LastError(); sig != nil {
			lines := append(strings.Split(sig.Message(), "\n"), "", "[enter] OK")
			drawPopup(m.screen, sig.Title(), lines, core.ColorRed)
		}
	case popupResult:
		lines := []string{outcomeText(m.summary.Outcome), "", "[enter] again  [q] quit"}
		drawPopup(m.screen, "Round over", lines, core.ColorYellow)
	}

	var b strings.Builder
	b.WriteString(RenderScreen(m.screen))
	b.WriteString("\n")
	b.WriteString(m.statusLine())
	b.WriteString("\n")
	b.WriteString(helpStyle.Render(m.help.View(m.keys)))
	return b.String()
}

func (m Model) startLines() []string {
	lines := []string{fmt.Sprintf("%d players", len(m.sess.World().Players()))}
	if cal := m.sess.Timing().Calibration; cal > 0 {
		secs := int(math.Ceil((cal + time.Second).Seconds()))
		lines = append(lines, fmt.Sprintf("Starting in %ds", secs))
	} else {
		lines = append(lines, "Hold still...")
	}
	return lines
}

func (m Model) statusLine() string {
	name, _ := m.opts.Net.OwnIdentity()
	status := fmt.Sprintf("%s  rtt %dms  %d players", name, m.sess.RTT().Milliseconds(), len(m.sess.World().Alive()))
	if m.sess.LastError() != nil {
		return statusStyle.Render(status) + "  " + warnStyle.Render(m.sess.Health().String())
	}
	return statusStyle.Render(status)
}

func outcomeText(o session.Outcome) string {
	switch o {
	case session.OutcomeWon:
		return "You won!"
	case session.OutcomeLost:
		return "You were knocked out."
	case session.OutcomeDraw:
		return "Nobody survived."
	case session.OutcomeFailed:
		return "Connection lost."
	default:
		return "Round abandoned."
	}
}

// Run starts the Bubble Tea program and returns the last session summary.
func Run(opts Options) (session.Summary, error) {
	model, err := NewModel(opts)
	if err != nil {
		return session.Summary{}, err
	}

	p := tea.NewProgram(model, tea.WithAltScreen())
	final, err := p.Run()
	if m, ok := final.(Model); ok {
		m.sess.Close()
		return m.summary, err
	}
	model.sess.Close()
	return session.Summary{}, err
}
