package netcode

import (
	"github.com/vovakirdan/clash/internal/core"
	"github.com/vovakirdan/clash/internal/event"
	"github.com/vovakirdan/clash/internal/sim"
)

// fakeNet is an in-memory network: deliver() makes a batch pending on the
// next PollReceive.
type fakeNet struct {
	inbox   [][]event.Event
	pending []event.Event
	sent    []core.Vector
}

func (f *fakeNet) deliver(evs ...event.Event) {
	f.inbox = append(f.inbox, evs)
}

func (f *fakeNet) SendInput(v core.Vector) { f.sent = append(f.sent, v) }

func (f *fakeNet) PollReceive() {
	for _, b := range f.inbox {
		f.pending = append(f.pending, b...)
	}
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

type fakeInput struct {
	v core.Vector
}

func (f *fakeInput) Sample() core.Vector { return f.v }

type rig struct {
	world *sim.State
	pool  *event.Pool
	queue *event.Queue
	rtt   *RTTEstimator
	net   *fakeNet
	input *fakeInput
	recon *Reconciler
	pred  *Predictor
}

func newRig(clientPrediction bool) *rig {
	r := &rig{
		pool:  event.NewPool(8),
		queue: event.NewQueue(8),
		rtt:   &RTTEstimator{},
		net:   &fakeNet{},
		input: &fakeInput{},
	}
	r.world = sim.NewState(sim.DefaultPhysics(), NewQueueSink(r.pool, r.queue))
	r.world.SetArena(core.Vec(40, 40))
	_ = r.world.Spawn(sim.Object{ID: 1, Type: event.ObjectPlayer, Pos: core.Vec(10, 10)})
	_ = r.world.Spawn(sim.Object{ID: 2, Type: event.ObjectPlayer, Pos: core.Vec(30, 30)})
	r.recon = NewReconciler(r.world, r.pool, r.queue, r.rtt, r.net, clientPrediction, nil)
	r.pred = NewPredictor(PredictorConfig{
		World:            r.world,
		Pool:             r.pool,
		Queue:            r.queue,
		RTT:              r.rtt,
		Input:            r.input,
		Net:              r.net,
		Reconciler:       r.recon,
		ClientPrediction: clientPrediction,
	})
	r.pred.SetOwn(1)
	return r
}
