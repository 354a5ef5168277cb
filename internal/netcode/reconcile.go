package netcode

import (
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/vovakirdan/clash/internal/event"
	"github.com/vovakirdan/clash/internal/sim"
)

// AppliedEffect is a session-level effect produced by an inbound event.
type AppliedEffect struct {
	Effect sim.Effect
	Object event.ObjectID // winner for GameEnd
}

// Result describes one reconciliation.
type Result struct {
	Discarded int            // predicted events thrown away
	Applied   int            // authoritative events applied
	RTT       time.Duration  // sample taken at this receipt
	Effects   []AppliedEffect
	Removed   []event.ObjectID
}

// Reconciler replaces local prediction with the authoritative update.
// The server always wins: predicted events are dropped, never merged.
type Reconciler struct {
	world            *sim.State
	pool             *event.Pool
	queue            *event.Queue
	rtt              *RTTEstimator
	net              Inbound
	clientPrediction bool
	logger           *log.Logger
}

// NewReconciler wires a reconciler. logger may be nil.
func NewReconciler(world *sim.State, pool *event.Pool, queue *event.Queue, rtt *RTTEstimator, net Inbound, clientPrediction bool, logger *log.Logger) *Reconciler {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Reconciler{
		world:            world,
		pool:             pool,
		queue:            queue,
		rtt:              rtt,
		net:              net,
		clientPrediction: clientPrediction,
		logger:           logger,
	}
}

// Reconcile runs once per tick in which inbound events are pending.
func (r *Reconciler) Reconcile() Result {
	var res Result

	discarded, err := r.queue.Drain(r.pool)
	if err != nil {
		r.logger.Error("predicted queue held stale events", "error", err)
	}
	res.Discarded = discarded

	res.RTT = r.rtt.Receive()

	r.world.SetGenerate(false)

	// The snapshot is already RTT old when it arrives. Without local
	// prediction nothing else moves the world, so catch up here.
	if !r.clientPrediction {
		r.world.Step(res.RTT)
	}

	res.Applied, res.Effects = r.applyInbound()
	res.Removed = r.world.RemoveDead()

	r.world.SetGenerate(true)

	r.logger.Debug("reconciled",
		"rtt", res.RTT,
		"discarded", res.Discarded,
		"applied", res.Applied,
		"removed", len(res.Removed),
	)
	return res
}

// ApplyInbound applies every pending inbound event without touching
// prediction state. Used before the game has started.
func (r *Reconciler) ApplyInbound() []AppliedEffect {
	_, effects := r.applyInbound()
	return effects
}

func (r *Reconciler) applyInbound() (int, []AppliedEffect) {
	var effects []AppliedEffect
	n := 0
	for {
		h, ok := r.net.NextEvent(r.pool)
		if !ok {
			break
		}
		ev, err := r.pool.Get(h)
		if err != nil {
			r.logger.Error("inbound event handle invalid", "error", err)
			continue
		}
		eff, err := r.world.Apply(ev)
		if err != nil {
			r.logger.Warn("skipping authoritative event", "kind", ev.Kind, "object", ev.Object, "error", err)
		}
		if eff != sim.EffectNone {
			effects = append(effects, AppliedEffect{Effect: eff, Object: ev.Object})
		}
		if err := r.pool.Recycle(h); err != nil {
			r.logger.Error("inbound event recycled twice", "error", err)
		}
		n++
	}
	return n, effects
}
