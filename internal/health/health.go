// Package health classifies connection failures and tracks the session-level
// state machine that decides when a session is aborted.
//
//	Running --failure--> Degraded --dismiss/abort--> Aborted
//	Running --abort----------------------------------> Aborted
//
// Aborted is terminal. There is no automatic retry: recovery is left to the
// surrounding application.
package health

// State is the session health state.
type State int

const (
	StateRunning  State = iota // Normal operation
	StateDegraded              // Error surfaced, game loop frozen until acknowledged
	StateAborted               // Terminal; session torn down
)

// String returns a human-readable name for the state.
func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateDegraded:
		return "degraded"
	case StateAborted:
		return "aborted"
	default:
		return "unknown"
	}
}

// Monitor tracks the health state. It is owned by the tick goroutine.
type Monitor struct {
	state State
	last  *Signal
}

// NewMonitor creates a monitor in the Running state.
func NewMonitor() *Monitor {
	return &Monitor{state: StateRunning}
}

// State returns the current state.
func (m *Monitor) State() State {
	return m.state
}

// Running reports whether the session is in the Running state.
func (m *Monitor) Running() bool {
	return m.state == StateRunning
}

// LastError returns the signal that moved the monitor to Degraded, if any.
func (m *Monitor) LastError() *Signal {
	return m.last
}

// Report records a failure. Only the first failure while Running causes a
// transition; later reports are ignored so an error is surfaced once.
// It returns true when the state changed.
func (m *Monitor) Report(sig *Signal) bool {
	if sig == nil || m.state != StateRunning {
		return false
	}
	m.state = StateDegraded
	m.last = sig
	return true
}

// Dismiss acknowledges a surfaced error. Degraded moves to Aborted.
func (m *Monitor) Dismiss() bool {
	if m.state != StateDegraded {
		return false
	}
	m.state = StateAborted
	return true
}

// Abort handles a user-initiated abort from Running or Degraded.
func (m *Monitor) Abort() bool {
	if m.state == StateAborted {
		return false
	}
	m.state = StateAborted
	return true
}
