package session

import (
	"errors"
	"testing"
	"time"

	"github.com/vovakirdan/clash/internal/core"
	"github.com/vovakirdan/clash/internal/event"
	"github.com/vovakirdan/clash/internal/health"
)

type fakeInput struct {
	v          core.Vector
	started    int
	stopped    int
	calibrated int
	stopCalib  int
	startErr   error
}

func (f *fakeInput) Sample() core.Vector { return f.v }
func (f *fakeInput) Calibrate()          { f.calibrated++ }
func (f *fakeInput) StopCalibrate()      { f.stopCalib++ }
func (f *fakeInput) Start() error        { f.started++; return f.startErr }
func (f *fakeInput) Stop() error         { f.stopped++; return nil }

type fakeNet struct {
	inbox   []event.Event
	pending []event.Event
	sent    []core.Vector
	err     *health.Signal
	name    string
	peers   []event.PeerInfo
}

func (f *fakeNet) deliver(evs ...event.Event) { f.inbox = append(f.inbox, evs...) }

func (f *fakeNet) SendInput(v core.Vector) { f.sent = append(f.sent, v) }

func (f *fakeNet) PollReceive() {
	f.pending = append(f.pending, f.inbox...)
	f.inbox = nil
}

func (f *fakeNet) HasPendingEvents() bool { return len(f.pending) > 0 }

func (f *fakeNet) NextEvent(pool *event.Pool) (event.Handle, bool) {
	if len(f.pending) == 0 {
		return event.Handle{}, false
	}
	e := f.pending[0]
	f.pending = f.pending[1:]
	return pool.Acquire(e), true
}

func (f *fakeNet) LastError() *health.Signal { return f.err }

func (f *fakeNet) OwnIdentity() (string, bool) { return f.name, f.name != "" }

func (f *fakeNet) ConnectedPeers() []event.PeerInfo { return f.peers }

func gameInfo() event.Event {
	return event.Event{
		Kind:  event.KindGameInfo,
		Arena: core.Vec(40, 20),
		Players: []event.PlayerInfo{
			{ID: 1, UniqueName: "alice", Pos: core.Vec(10, 10)},
			{ID: 2, UniqueName: "bob", Pos: core.Vec(30, 10)},
		},
	}
}

func newTestSession(t *testing.T) (*Session, *fakeInput, *fakeNet) {
	t.Helper()
	in := &fakeInput{}
	net := &fakeNet{
		name:  "alice",
		peers: []event.PeerInfo{{UniqueName: "alice"}, {UniqueName: "bob"}},
	}
	cfg := DefaultConfig()
	cfg.ReceiveTimeout = 4 * time.Second
	s, err := New(cfg, in, net)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return s, in, net
}

// startedSession returns a session that has applied GameInfo and GameStart.
func startedSession(t *testing.T) (*Session, *fakeInput, *fakeNet) {
	t.Helper()
	s, in, net := newTestSession(t)
	net.deliver(gameInfo(), event.Event{Kind: event.KindGameStart})
	s.Step(100 * time.Millisecond)
	if !s.Timing().Running {
		t.Fatal("session should be running after GameStart")
	}
	s.UIChange()
	return s, in, net
}

func TestNewStartsInput(t *testing.T) {
	_, in, _ := newTestSession(t)
	if in.started != 1 {
		t.Errorf("input started %d times, expected 1", in.started)
	}
}

func TestNewInputStartFailure(t *testing.T) {
	boom := errors.New("no sensor")
	_, err := New(DefaultConfig(), &fakeInput{startErr: boom}, &fakeNet{})
	if !errors.Is(err, boom) {
		t.Errorf("New() error = %v, expected wrapping %v", err, boom)
	}
}

func TestPreGameFlow(t *testing.T) {
	s, in, net := newTestSession(t)

	net.deliver(gameInfo())
	s.Step(100 * time.Millisecond)

	own, ok := s.Own()
	if !ok || own != 1 {
		t.Fatalf("Own() = %d, %v; expected 1, true", own, ok)
	}
	if id, ok := s.PeerID("bob"); !ok || id != 2 {
		t.Errorf("PeerID(bob) = %d, %v", id, ok)
	}
	if s.World().Len() != 2 {
		t.Errorf("world has %d objects, expected 2", s.World().Len())
	}
	if got := s.UIChange(); got != PopupShow {
		t.Errorf("UIChange() = %v, expected PopupShow", got)
	}
	if want := 2 * time.Second; s.Timing().Calibration != want {
		t.Errorf("Calibration = %v, expected %v", s.Timing().Calibration, want)
	}

	// Countdown: 2s at 100ms per tick calibrates on the 20th tick.
	for i := 1; i <= 20; i++ {
		s.Step(100 * time.Millisecond)
		if i < 20 && in.calibrated != 0 {
			t.Fatalf("calibrated early on tick %d", i)
		}
	}
	if in.calibrated != 1 {
		t.Errorf("calibrated %d times, expected 1", in.calibrated)
	}
	if len(net.sent) != 0 {
		t.Error("no input may be sent before the game starts")
	}
}

func TestMissingOwnPlayer(t *testing.T) {
	s, _, net := newTestSession(t)
	net.name = "carol"
	net.deliver(gameInfo())
	s.Step(100 * time.Millisecond)

	if _, ok := s.Own(); ok {
		t.Error("own player should not be found")
	}
	if s.Health() != health.StateRunning {
		t.Error("a missing own player is logged, not a health failure")
	}
}

func TestGameStart(t *testing.T) {
	s, in, net := newTestSession(t)
	net.deliver(gameInfo())
	s.Step(100 * time.Millisecond)
	s.UIChange()

	net.deliver(event.Event{Kind: event.KindGameStart})
	s.Step(100 * time.Millisecond)

	tm := s.Timing()
	if !tm.Started || !tm.Running {
		t.Errorf("Timing = %+v, expected started and running", tm)
	}
	if in.stopCalib != 1 {
		t.Errorf("StopCalibrate called %d times", in.stopCalib)
	}
	if got := s.UIChange(); got != PopupHide {
		t.Errorf("UIChange() = %v, expected PopupHide", got)
	}

	in.v = core.Vec(0.5, 0)
	s.Step(100 * time.Millisecond)
	if len(net.sent) != 1 || net.sent[0] != core.Vec(0.5, 0) {
		t.Errorf("first running tick should send input, sent = %v", net.sent)
	}
}

func TestReceiveTimeoutScenario(t *testing.T) {
	s, _, _ := startedSession(t)
	dt := 100 * time.Millisecond

	transitions := 0
	degradedAt := 0
	prev := s.Health()
	for tick := 1; tick <= 41; tick++ {
		s.Step(dt)
		if cur := s.Health(); cur != prev {
			transitions++
			degradedAt = tick
			prev = cur
		}
		if tick == 40 {
			if got := s.UIChange(); got != PopupShow {
				t.Errorf("tick 40: UIChange() = %v, expected PopupShow", got)
			}
		}
	}

	if transitions != 1 || degradedAt != 40 {
		t.Fatalf("transitions = %d at tick %d, expected exactly 1 at tick 40", transitions, degradedAt)
	}
	if s.Health() != health.StateDegraded {
		t.Errorf("Health() = %v, expected degraded", s.Health())
	}
	if !errors.Is(s.LastError(), health.ErrReceiveTimeout) {
		t.Errorf("LastError() = %v, expected receive timeout", s.LastError())
	}
	if got := s.UIChange(); got != NoChange {
		t.Errorf("tick 41 produced a second UI change %v", got)
	}
}

func TestNetworkErrorFreezesUntilDismiss(t *testing.T) {
	s, in, net := startedSession(t)
	net.err = health.NewSignal(health.TransportException, errors.New("reset by peer"))

	s.Step(50 * time.Millisecond)
	if s.Health() != health.StateDegraded {
		t.Fatalf("Health() = %v, expected degraded", s.Health())
	}
	if got := s.UIChange(); got != PopupShow {
		t.Errorf("UIChange() = %v, expected PopupShow", got)
	}

	own, _ := s.World().Object(1)
	before := own.Pos
	sent := len(net.sent)
	for i := 0; i < 10; i++ {
		s.Step(50 * time.Millisecond)
	}
	if own.Pos != before || len(net.sent) != sent {
		t.Error("simulation must stay frozen while degraded")
	}
	if got := s.UIChange(); got != NoChange {
		t.Errorf("repeated error surfaced again: %v", got)
	}

	s.Dismiss()
	if s.Health() != health.StateAborted {
		t.Errorf("Health() = %v, expected aborted after dismiss", s.Health())
	}
	if got := s.UIChange(); got != GameAbort {
		t.Errorf("UIChange() = %v, expected GameAbort", got)
	}
	if in.stopped != 1 {
		t.Errorf("input stopped %d times, expected 1", in.stopped)
	}
	if s.Summary().Outcome != OutcomeFailed {
		t.Errorf("Outcome = %v, expected failed", s.Summary().Outcome)
	}
}

func TestNetworkErrorBeforeGameStart(t *testing.T) {
	s, in, net := newTestSession(t)
	net.deliver(gameInfo())
	s.Step(100 * time.Millisecond)
	if got := s.UIChange(); got != PopupShow {
		t.Fatalf("UIChange() after GameInfo = %v, expected PopupShow", got)
	}

	net.err = health.NewSignal(health.TransportException, errors.New("server said bye"))
	s.Step(100 * time.Millisecond)
	if s.Health() != health.StateDegraded {
		t.Fatalf("Health() = %v, expected degraded", s.Health())
	}
	if s.LastError() == nil || s.LastError().Kind != health.TransportException {
		t.Errorf("LastError() = %v, expected a transport exception", s.LastError())
	}
	if got := s.UIChange(); got != PopupShow {
		t.Errorf("UIChange() = %v, expected PopupShow", got)
	}

	s.Dismiss()
	if s.Health() != health.StateAborted {
		t.Errorf("Health() = %v, expected aborted", s.Health())
	}
	if in.stopped != 1 {
		t.Errorf("input stopped %d times, expected 1", in.stopped)
	}
}

func TestAbortReleasesInput(t *testing.T) {
	s, in, net := startedSession(t)

	s.Abort()
	if s.Health() != health.StateAborted {
		t.Fatalf("Health() = %v, expected aborted", s.Health())
	}
	if in.stopped != 1 {
		t.Errorf("input stopped %d times, expected 1", in.stopped)
	}

	sent := len(net.sent)
	net.deliver(event.Event{Kind: event.KindMove, Object: 1, Pos: core.Vec(1, 1)})
	s.Step(100 * time.Millisecond)
	if len(net.sent) != sent || len(net.inbox) != 1 {
		t.Error("Step after abort must do nothing")
	}
	own, _ := s.World().Object(1)
	if own.Pos == core.Vec(1, 1) {
		t.Error("aborted session applied an inbound event")
	}

	s.Abort()
	if err := s.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if in.stopped != 1 {
		t.Errorf("input stopped %d times after Close, expected 1", in.stopped)
	}
	if s.Summary().Outcome != OutcomeAborted {
		t.Errorf("Outcome = %v, expected aborted", s.Summary().Outcome)
	}
}

func TestCloseIdempotent(t *testing.T) {
	s, in, _ := newTestSession(t)
	for i := 0; i < 3; i++ {
		if err := s.Close(); err != nil {
			t.Fatalf("Close() error = %v", err)
		}
	}
	if in.stopped != 1 {
		t.Errorf("input stopped %d times, expected 1", in.stopped)
	}
}

func TestUIChangeTakeOnce(t *testing.T) {
	s, _, net := newTestSession(t)
	net.deliver(gameInfo())
	s.Step(100 * time.Millisecond)

	if got := s.UIChange(); got != PopupShow {
		t.Fatalf("first read = %v, expected PopupShow", got)
	}
	if got := s.UIChange(); got != NoChange {
		t.Errorf("second read = %v, expected NoChange", got)
	}
}

func TestGameEnd(t *testing.T) {
	tests := []struct {
		name   string
		winner event.ObjectID
		want   Outcome
	}{
		{"own player wins", 1, OutcomeWon},
		{"peer wins", 2, OutcomeLost},
		{"nobody left", 0, OutcomeDraw},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _, net := startedSession(t)
			net.deliver(event.Event{Kind: event.KindGameEnd, Object: tt.winner})
			s.Step(100 * time.Millisecond)

			if got := s.UIChange(); got != GameRoundEnd {
				t.Errorf("UIChange() = %v, expected GameRoundEnd", got)
			}
			if s.Timing().Running {
				t.Error("round should no longer be running")
			}
			if got := s.Summary().Outcome; got != tt.want {
				t.Errorf("Outcome = %v, expected %v", got, tt.want)
			}
		})
	}
}

func TestNoTimeoutAfterGameEnd(t *testing.T) {
	s, _, net := startedSession(t)
	net.deliver(event.Event{Kind: event.KindGameEnd, Object: 1})
	s.Step(100 * time.Millisecond)

	for i := 0; i < 100; i++ {
		s.Step(100 * time.Millisecond)
	}
	if s.Health() != health.StateRunning {
		t.Errorf("Health() = %v; no receive timeout once the round is over", s.Health())
	}
}

func TestDeactivate(t *testing.T) {
	s, _, _ := startedSession(t)
	s.Deactivate()
	if s.Timing().Running {
		t.Error("Deactivate should end the round")
	}
	if got := s.UIChange(); got != NoChange {
		t.Errorf("UIChange() = %v, expected NoChange", got)
	}
}

func TestReconcileCountsDiscardedPrediction(t *testing.T) {
	s, _, net := startedSession(t)
	a, _ := s.World().Object(1)
	b, _ := s.World().Object(2)
	a.Pos, a.Vel = core.Vec(20, 10), core.Vec(2, 0)
	b.Pos, b.Vel = core.Vec(20.9, 10), core.Vec(-2, 0)

	s.Step(10 * time.Millisecond) // predicted impact queued
	net.deliver(event.Event{Kind: event.KindMove, Object: 1, Pos: core.Vec(5, 5)})
	s.Step(10 * time.Millisecond)

	if s.Summary().Discarded == 0 {
		t.Error("reconciliation should discard the queued prediction")
	}
	if a.Pos.X >= 20 {
		t.Errorf("authoritative move not applied, Pos = %v", a.Pos)
	}
}
