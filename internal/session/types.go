// Package session is the composition root of a client game session. It owns
// the simulation, the event pool and queue, the RTT estimator and the health
// monitor, and advances them once per tick from a single goroutine.
package session

import (
	"time"

	"github.com/vovakirdan/clash/internal/core"
	"github.com/vovakirdan/clash/internal/event"
	"github.com/vovakirdan/clash/internal/health"
	"github.com/vovakirdan/clash/internal/netcode"
)

// InputSource is the local input producer. Sample must not block; Start and
// Stop manage the underlying sampling resource.
type InputSource interface {
	Sample() core.Vector
	Calibrate()
	StopCalibrate()
	Start() error
	Stop() error
}

// Network is the client side of the transport. Every method must return
// without blocking.
type Network interface {
	netcode.Network

	// LastError returns the most recent transport failure, or nil.
	LastError() *health.Signal
	// OwnIdentity returns the unique name the server knows us by.
	OwnIdentity() (string, bool)
	ConnectedPeers() []event.PeerInfo
}

// UIChange is a single-slot notification for the surrounding UI layer.
type UIChange uint8

const (
	NoChange     UIChange = iota
	PopupShow             // Show the start popup or the error popup
	PopupHide             // Live play started
	GameRoundEnd          // The server ended the round
	GameAbort             // The session was aborted
)

// String returns a human-readable name for the change.
func (c UIChange) String() string {
	switch c {
	case NoChange:
		return "no_change"
	case PopupShow:
		return "popup_show"
	case PopupHide:
		return "popup_hide"
	case GameRoundEnd:
		return "game_round_end"
	case GameAbort:
		return "game_abort"
	default:
		return "unknown"
	}
}

// Timing tracks the pre-game countdown and whether live play is on.
type Timing struct {
	// Calibration is the time left before the input source is calibrated.
	Calibration time.Duration
	Started     bool
	Running     bool
}

// Outcome is how a session ended, from the local player's point of view.
type Outcome uint8

const (
	OutcomePending Outcome = iota
	OutcomeWon
	OutcomeLost
	OutcomeDraw
	OutcomeAborted
	OutcomeFailed
)

// String returns the name stored in session history.
func (o Outcome) String() string {
	switch o {
	case OutcomePending:
		return "pending"
	case OutcomeWon:
		return "won"
	case OutcomeLost:
		return "lost"
	case OutcomeDraw:
		return "draw"
	case OutcomeAborted:
		return "aborted"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Summary describes a session for history and status display.
type Summary struct {
	Player    string
	Outcome   Outcome
	Error     *health.Signal
	Ticks     int
	RTT       netcode.Stats
	Discarded int // predicted events thrown away by reconciliation
}
