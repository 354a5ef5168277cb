package sim

import (
	"fmt"

	"github.com/vovakirdan/clash/internal/event"
)

// Effect reports a session-level consequence of applying an event.
type Effect uint8

const (
	EffectNone        Effect = iota
	EffectPlayersInit        // GameInfo applied; player list is available
	EffectGameStart          // Live play begins
	EffectGameEnd            // Round is over
)

// String returns a human-readable name for the effect.
func (e Effect) String() string {
	switch e {
	case EffectNone:
		return "none"
	case EffectPlayersInit:
		return "players_init"
	case EffectGameStart:
		return "game_start"
	case EffectGameEnd:
		return "game_end"
	default:
		return "unknown"
	}
}

// Apply mutates the simulation according to e. Dispatch is a switch over the
// closed set of kinds; a new kind must be handled here.
func (s *State) Apply(e *event.Event) (Effect, error) {
	switch e.Kind {
	case event.KindSpawn:
		return EffectNone, s.Spawn(Object{
			ID:     e.Object,
			Type:   e.Type,
			Pos:    e.Pos,
			Vel:    e.Vel,
			Radius: e.Value,
		})

	case event.KindMove:
		o, ok := s.objects[e.Object]
		if !ok {
			return EffectNone, fmt.Errorf("%w: move %d", ErrUnknownObject, e.Object)
		}
		o.Pos = e.Pos
		o.Vel = e.Vel
		return EffectNone, nil

	case event.KindImpact:
		a, okA := s.objects[e.Object]
		b, okB := s.objects[e.Other]
		if !okA || !okB {
			return EffectNone, fmt.Errorf("%w: impact %d/%d", ErrUnknownObject, e.Object, e.Other)
		}
		n := b.Pos.Sub(a.Pos).Normalized()
		a.Vel = a.Vel.Sub(n.Scale(e.Value))
		b.Vel = b.Vel.Add(n.Scale(e.Value))
		return EffectNone, nil

	case event.KindRemove:
		o, ok := s.objects[e.Object]
		if !ok {
			return EffectNone, fmt.Errorf("%w: remove %d", ErrUnknownObject, e.Object)
		}
		o.Dead = true
		return EffectNone, nil

	case event.KindGameInfo:
		s.arena = e.Arena
		s.players = append(s.players[:0], e.Players...)
		for _, p := range e.Players {
			if _, exists := s.objects[p.ID]; exists {
				continue
			}
			if err := s.Spawn(Object{
				ID:    p.ID,
				Type:  event.ObjectPlayer,
				Name:  p.UniqueName,
				Color: p.Color,
				Pos:   p.Pos,
			}); err != nil {
				return EffectPlayersInit, err
			}
		}
		return EffectPlayersInit, nil

	case event.KindGameStart:
		return EffectGameStart, nil

	case event.KindGameEnd:
		return EffectGameEnd, nil

	default:
		return EffectNone, fmt.Errorf("sim: unhandled event kind %s", e.Kind)
	}
}
