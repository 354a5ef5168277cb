package network

import (
	"math"
	"math/rand/v2"

	"github.com/vovakirdan/clash/internal/core"
	"github.com/vovakirdan/clash/internal/sim"
)

// bot is a computer-controlled player. It re-decides every few ticks and
// holds its tilt in between, like a human sending sampled input.
type bot struct {
	rng   *rand.Rand
	wait  int
	input core.Vector
}

func newBot(seed uint64) *bot {
	return &bot{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// decide returns the tilt for this tick. Bots retreat from the edge first,
// then chase the nearest opponent.
func (b *bot) decide(self *sim.Object, world *sim.State, aggression float64, reaction int) core.Vector {
	if b.wait > 0 {
		b.wait--
		return b.input
	}
	b.wait = reaction - 1

	arena := world.Arena()
	margin := math.Min(arena.X, arena.Y) * 0.15
	if self.Pos.X < margin || self.Pos.Y < margin ||
		self.Pos.X > arena.X-margin || self.Pos.Y > arena.Y-margin {
		b.input = arena.Scale(0.5).Sub(self.Pos).Normalized()
		return b.input
	}

	var target *sim.Object
	best := math.Inf(1)
	for _, o := range world.Objects() {
		if o.ID == self.ID || o.Dead || o.Type != self.Type {
			continue
		}
		if d := o.Pos.Sub(self.Pos).Len(); d < best {
			best, target = d, o
		}
	}

	jitter := core.Vec(b.rng.Float64()-0.5, b.rng.Float64()-0.5).Scale(0.3)
	if target == nil {
		b.input = jitter
		return b.input
	}
	dir := target.Pos.Sub(self.Pos).Normalized().Add(jitter).Normalized()
	b.input = dir.Scale(aggression)
	return b.input
}
