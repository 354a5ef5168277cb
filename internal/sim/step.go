package sim

import (
	"math"
	"time"

	"github.com/vovakirdan/clash/internal/event"
)

// Step advances every live object by dt. The same function drives local
// prediction, replay after an authoritative update and the server, so it
// must stay deterministic: objects are visited in ascending ID order and no
// randomness or wall-clock time is involved.
//
// Step does not kill or bounce objects itself. It emits Remove events for
// balls that left the arena and Impact events for colliding balls while
// generation is enabled; those take effect only when applied.
func (s *State) Step(dt time.Duration) {
	if dt <= 0 {
		return
	}
	secs := dt.Seconds()
	p := s.physics
	damping := 1 / (1 + p.Friction*secs)

	for _, id := range s.order {
		o := s.objects[id]
		if o.Dead || o.Type != event.ObjectPlayer {
			continue
		}
		o.Vel = o.Vel.Add(o.Input.Scale(p.Accel * secs))
		o.Vel = o.Vel.Scale(damping)
		if p.MaxSpeed > 0 {
			o.Vel = o.Vel.ClampLen(p.MaxSpeed)
		}
		o.Pos = o.Pos.Add(o.Vel.Scale(secs))
	}

	s.detectFalls()
	s.detectImpacts()
}

func (s *State) detectFalls() {
	if s.arena.IsZero() {
		return
	}
	for _, id := range s.order {
		o := s.objects[id]
		if o.Dead || o.Type != event.ObjectPlayer {
			continue
		}
		if o.Pos.X < 0 || o.Pos.Y < 0 || o.Pos.X > s.arena.X || o.Pos.Y > s.arena.Y {
			s.emit(event.Event{Kind: event.KindRemove, Object: o.ID, Pos: o.Pos})
		}
	}
}

func (s *State) detectImpacts() {
	for i, a := range s.order {
		oa := s.objects[a]
		if oa.Dead {
			continue
		}
		for _, b := range s.order[i+1:] {
			ob := s.objects[b]
			if ob.Dead {
				continue
			}
			delta := ob.Pos.Sub(oa.Pos)
			if delta.Len() > oa.Radius+ob.Radius {
				continue
			}
			n := delta.Normalized()
			approach := oa.Vel.Sub(ob.Vel).Dot(n)
			if approach <= 0 {
				continue
			}
			impulse := approach * (1 + s.physics.Elasticity) / 2
			s.emit(event.Event{Kind: event.KindImpact, Object: a, Other: b, Value: impulse})
		}
	}
}

// StepVisual advances client-only animation state. It never affects the
// synchronized simulation.
func (s *State) StepVisual(dt time.Duration) {
	secs := dt.Seconds()
	for _, id := range s.order {
		o := s.objects[id]
		o.Anim = math.Mod(o.Anim+secs, 1)
	}
}
