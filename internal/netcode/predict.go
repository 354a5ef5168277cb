package netcode

import (
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/vovakirdan/clash/internal/core"
	"github.com/vovakirdan/clash/internal/event"
	"github.com/vovakirdan/clash/internal/sim"
)

// Network is what the predictor needs from the network layer.
type Network interface {
	Sender
	Inbound
}

// PredictorConfig wires a Predictor.
type PredictorConfig struct {
	World            *sim.State
	Pool             *event.Pool
	Queue            *event.Queue
	RTT              *RTTEstimator
	Input            Sampler
	Net              Network
	Reconciler       *Reconciler
	ClientPrediction bool
	Logger           *log.Logger
}

// TickResult reports what happened during one predicted tick.
type TickResult struct {
	Sent           bool
	Reconciled     *Result
	PredictedApply int  // predicted events from the previous tick applied
	InputApplied   bool // held input applied to the own player this tick
}

// Predictor drives the simulation forward every tick and decides when the
// sampled input reaches the own player.
type Predictor struct {
	cfg PredictorConfig

	own    event.ObjectID
	hasOwn bool

	// sendNext is set by a tick that processed an authoritative update; the
	// following tick sends its sample.
	sendNext bool
	sample   core.Vector
	lastSent core.Vector
	held     bool
}

// NewPredictor creates a predictor.
func NewPredictor(cfg PredictorConfig) *Predictor {
	if cfg.Logger == nil {
		cfg.Logger = log.New(io.Discard)
	}
	return &Predictor{cfg: cfg}
}

// SetOwn sets the object driven by local input.
func (p *Predictor) SetOwn(id event.ObjectID) {
	p.own = id
	p.hasOwn = true
}

// Own returns the own object ID.
func (p *Predictor) Own() (event.ObjectID, bool) {
	return p.own, p.hasOwn
}

// Start prepares for live play: the first tick sends input and the receive
// timer restarts.
func (p *Predictor) Start() {
	p.sendNext = true
	p.cfg.RTT.Reset()
}

// LastSent returns the last input vector sent to the server.
func (p *Predictor) LastSent() core.Vector {
	return p.lastSent
}

// Tick runs one predicted step:
// sample/send, reconcile if needed, predicted step, half-RTT input, timer.
func (p *Predictor) Tick(dt time.Duration) TickResult {
	var res TickResult
	c := p.cfg

	p.sample = c.Input.Sample()
	if p.sendNext {
		c.Net.SendInput(p.sample)
		p.lastSent = p.sample
		p.held = true
		res.Sent = true
	}

	c.Net.PollReceive()
	p.sendNext = c.Net.HasPendingEvents()
	if p.sendNext {
		r := c.Reconciler.Reconcile()
		res.Reconciled = &r
	}

	c.World.SetGenerate(true)
	res.PredictedApply = p.applyPredicted()
	c.World.StepVisual(dt)
	if c.ClientPrediction {
		c.World.Step(dt)
	}

	// The server applies our input about RTT/2 after we sent it; applying
	// it locally at the same offset keeps prediction close to what will be
	// confirmed.
	if p.held && p.hasOwn && c.RTT.HalfCrossed(dt) {
		if err := c.World.SetInput(p.own, p.lastSent); err != nil {
			c.Logger.Debug("own player gone, input dropped", "error", err)
		}
		p.held = false
		res.InputApplied = true
	}

	c.RTT.Advance(dt)
	return res
}

// applyPredicted applies events the previous predicted step generated.
// Only reversible kinds are applied: removals and lifecycle events wait for
// the server.
func (p *Predictor) applyPredicted() int {
	c := p.cfg
	n := 0
	for {
		h, ok := c.Queue.Poll()
		if !ok {
			break
		}
		if ev, err := c.Pool.Get(h); err == nil && predictable(ev.Kind) {
			if _, err := c.World.Apply(ev); err == nil {
				n++
			}
		}
		if err := c.Pool.Recycle(h); err != nil {
			c.Logger.Error("predicted event recycled twice", "error", err)
		}
	}
	return n
}

func predictable(k event.Kind) bool {
	return k == event.KindImpact || k == event.KindMove
}
