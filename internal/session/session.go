package session

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/vovakirdan/clash/internal/event"
	"github.com/vovakirdan/clash/internal/health"
	"github.com/vovakirdan/clash/internal/netcode"
	"github.com/vovakirdan/clash/internal/sim"
)

// Session is one client game session. All methods except Close must be
// called from the goroutine that drives Step.
type Session struct {
	cfg    Config
	logger *log.Logger

	input InputSource
	net   Network

	pool   *event.Pool
	queue  *event.Queue
	world  *sim.State
	rtt    *netcode.RTTEstimator
	recon  *netcode.Reconciler
	pred   *netcode.Predictor
	health *health.Monitor

	timing Timing
	ui     UIChange

	peers     map[string]event.ObjectID
	ownName   string
	winner    event.ObjectID
	hasWinner bool
	outcome   Outcome

	ticks     int
	discarded int

	stopOnce sync.Once
	stopErr  error
}

// New creates a session and starts the input source.
func New(cfg Config, input InputSource, net Network) (*Session, error) {
	if cfg.Logger == nil {
		cfg.Logger = log.New(io.Discard)
	}
	if cfg.PoolSize <= 0 {
		cfg.PoolSize = DefaultConfig().PoolSize
	}

	s := &Session{
		cfg:    cfg,
		logger: cfg.Logger,
		input:  input,
		net:    net,
		pool:   event.NewPool(cfg.PoolSize),
		queue:  event.NewQueue(cfg.PoolSize),
		rtt:    &netcode.RTTEstimator{},
		health: health.NewMonitor(),
		peers:  make(map[string]event.ObjectID),
	}
	s.world = sim.NewState(cfg.Physics, netcode.NewQueueSink(s.pool, s.queue))
	s.recon = netcode.NewReconciler(s.world, s.pool, s.queue, s.rtt, net, cfg.ClientPrediction, cfg.Logger)
	s.pred = netcode.NewPredictor(netcode.PredictorConfig{
		World:            s.world,
		Pool:             s.pool,
		Queue:            s.queue,
		RTT:              s.rtt,
		Input:            input,
		Net:              net,
		Reconciler:       s.recon,
		ClientPrediction: cfg.ClientPrediction,
		Logger:           cfg.Logger,
	})

	if err := input.Start(); err != nil {
		return nil, fmt.Errorf("session: start input: %w", err)
	}
	return s, nil
}

// Step advances the session by one tick. It is a no-op once the session is
// aborted and freezes while an error is waiting to be dismissed.
func (s *Session) Step(dt time.Duration) {
	if !s.health.Running() {
		return
	}
	s.ticks++

	if s.timing.Calibration > 0 {
		s.timing.Calibration -= dt
		if s.timing.Calibration <= 0 {
			s.input.Calibrate()
			s.logger.Debug("calibrating input")
		}
	}

	if !s.timing.Running {
		if s.report(s.net.LastError()) {
			return
		}
		s.ApplyInboundOnly()
		return
	}

	if s.report(s.net.LastError()) {
		return
	}

	res := s.pred.Tick(dt)
	if res.Reconciled != nil {
		s.discarded += res.Reconciled.Discarded
		for _, id := range res.Reconciled.Removed {
			s.logger.Debug("object removed", "id", id)
		}
		s.handleEffects(res.Reconciled.Effects)
	}

	if s.timing.Running {
		s.report(health.Timeout(s.rtt.Elapsed(), s.cfg.ReceiveTimeout))
	}
}

// ApplyInboundOnly applies pending inbound events without prediction. Step
// uses it before the game has started.
func (s *Session) ApplyInboundOnly() {
	s.net.PollReceive()
	s.handleEffects(s.recon.ApplyInbound())
}

// UIChange returns the pending UI notification and clears it.
func (s *Session) UIChange() UIChange {
	c := s.ui
	s.ui = NoChange
	return c
}

// Abort ends the session at the user's request and releases the input
// source. Later Steps do nothing.
func (s *Session) Abort() {
	if !s.health.Abort() {
		return
	}
	s.abort()
}

// Dismiss acknowledges a surfaced error, which aborts the session.
func (s *Session) Dismiss() {
	if !s.health.Dismiss() {
		return
	}
	s.abort()
}

func (s *Session) abort() {
	s.timing.Running = false
	s.ui = GameAbort
	if s.outcome == OutcomePending {
		if s.health.LastError() != nil {
			s.outcome = OutcomeFailed
		} else {
			s.outcome = OutcomeAborted
		}
	}
	s.logger.Info("session aborted", "outcome", s.outcome)
	if err := s.stopInput(); err != nil {
		s.logger.Warn("stopping input", "error", err)
	}
}

// Deactivate ends the round without notifying the UI.
func (s *Session) Deactivate() {
	s.endGame()
	s.ui = NoChange
}

// Close stops the input source. It is safe to call more than once and from
// any goroutine.
func (s *Session) Close() error {
	return s.stopInput()
}

func (s *Session) stopInput() error {
	s.stopOnce.Do(func() {
		s.stopErr = s.input.Stop()
	})
	return s.stopErr
}

// report surfaces sig once through the health monitor and the UI.
func (s *Session) report(sig *health.Signal) bool {
	if !s.health.Report(sig) {
		return false
	}
	s.logger.Warn("network failure", "kind", sig.Kind, "error", sig)
	s.ui = PopupShow
	return true
}

func (s *Session) handleEffects(effects []netcode.AppliedEffect) {
	for _, e := range effects {
		switch e.Effect {
		case sim.EffectPlayersInit:
			s.initPlayers()
		case sim.EffectGameStart:
			s.startGame()
		case sim.EffectGameEnd:
			s.winner, s.hasWinner = e.Object, e.Object != 0
			s.endGame()
			s.ui = GameRoundEnd
		}
	}
}

func (s *Session) initPlayers() {
	players := s.world.Players()

	for _, peer := range s.net.ConnectedPeers() {
		for _, p := range players {
			if p.UniqueName == peer.UniqueName {
				s.peers[peer.UniqueName] = p.ID
			}
		}
	}

	if name, ok := s.net.OwnIdentity(); ok {
		s.ownName = name
		for _, p := range players {
			if p.UniqueName == name {
				s.pred.SetOwn(p.ID)
				s.logger.Debug("own player", "id", p.ID, "x", p.Pos.X, "y", p.Pos.Y)
			}
		}
	}
	if _, ok := s.pred.Own(); !ok {
		s.logger.Error("own player missing from player list", "name", s.ownName, "players", len(players))
	}

	s.timing.Calibration = s.cfg.WaitToStart - time.Second

	if s.health.LastError() == nil {
		s.ui = PopupShow
	}
}

func (s *Session) startGame() {
	s.timing.Started = true
	s.timing.Running = true
	s.pred.Start()
	s.input.StopCalibrate()
	s.ui = PopupHide
	s.logger.Info("game started", "players", len(s.world.Players()))
}

func (s *Session) endGame() {
	s.timing.Running = false
	if s.outcome != OutcomePending || !s.timing.Started {
		return
	}
	s.outcome = s.resolveOutcome()
	s.logger.Info("game ended", "outcome", s.outcome)
}

func (s *Session) resolveOutcome() Outcome {
	if !s.hasWinner {
		return OutcomeDraw
	}
	if own, ok := s.pred.Own(); ok && own == s.winner {
		return OutcomeWon
	}
	return OutcomeLost
}

// World returns the simulation for rendering.
func (s *Session) World() *sim.State {
	return s.world
}

// Own returns the local player's object ID.
func (s *Session) Own() (event.ObjectID, bool) {
	return s.pred.Own()
}

// PeerID returns the object bound to a connected peer.
func (s *Session) PeerID(name string) (event.ObjectID, bool) {
	id, ok := s.peers[name]
	return id, ok
}

// Health returns the connection health state.
func (s *Session) Health() health.State {
	return s.health.State()
}

// LastError returns the surfaced error, if any.
func (s *Session) LastError() *health.Signal {
	return s.health.LastError()
}

// Timing returns the countdown and running flags.
func (s *Session) Timing() Timing {
	return s.timing
}

// RTT returns the last round-trip sample.
func (s *Session) RTT() time.Duration {
	return s.rtt.RTT()
}

// Summary returns the session outcome and statistics.
func (s *Session) Summary() Summary {
	return Summary{
		Player:    s.ownName,
		Outcome:   s.outcome,
		Error:     s.health.LastError(),
		Ticks:     s.ticks,
		RTT:       s.rtt.Stats(),
		Discarded: s.discarded,
	}
}
