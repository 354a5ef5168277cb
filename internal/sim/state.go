package sim

import (
	"errors"
	"fmt"
	"math"
	"slices"

	"github.com/vovakirdan/clash/internal/core"
	"github.com/vovakirdan/clash/internal/event"
)

var (
	// ErrDuplicateObject is returned when spawning an ID that already exists.
	ErrDuplicateObject = errors.New("sim: duplicate object")
	// ErrRemovedObject is returned when spawning an ID that was removed earlier.
	ErrRemovedObject = errors.New("sim: object was removed")
	// ErrUnknownObject is returned when an event targets a missing object.
	ErrUnknownObject = errors.New("sim: unknown object")
	// ErrInvalidInput is returned for input vectors with NaN or infinite components.
	ErrInvalidInput = errors.New("sim: invalid input")
)

// Sink receives events generated by the integrator.
type Sink interface {
	Emit(e event.Event)
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(e event.Event)

// Emit calls f(e).
func (f SinkFunc) Emit(e event.Event) { f(e) }

// State maps object IDs to object state. It is owned by a single goroutine.
type State struct {
	physics Physics
	objects map[ObjectID]*Object
	order   []ObjectID // ascending, for deterministic iteration
	removed map[ObjectID]struct{}
	arena   core.Vector
	players []event.PlayerInfo

	generate bool
	sink     Sink
}

// NewState creates an empty simulation. Generated events go to sink, which
// may be nil to discard them.
func NewState(physics Physics, sink Sink) *State {
	return &State{
		physics:  physics,
		objects:  make(map[ObjectID]*Object),
		removed:  make(map[ObjectID]struct{}),
		generate: true,
		sink:     sink,
	}
}

// Physics returns the integrator constants.
func (s *State) Physics() Physics {
	return s.physics
}

// SetGenerate enables or disables event generation by the integrator.
func (s *State) SetGenerate(on bool) {
	s.generate = on
}

// Generating reports whether the integrator currently emits events.
func (s *State) Generating() bool {
	return s.generate
}

// SetArena sets the arena size. The arena spans [0, W] x [0, H].
func (s *State) SetArena(size core.Vector) {
	s.arena = size
}

// Arena returns the arena size.
func (s *State) Arena() core.Vector {
	return s.arena
}

// Players returns the player list from the last GameInfo.
func (s *State) Players() []event.PlayerInfo {
	return s.players
}

// Spawn adds obj. IDs are never reused: spawning an existing or removed ID fails.
func (s *State) Spawn(obj Object) error {
	if _, ok := s.objects[obj.ID]; ok {
		return fmt.Errorf("%w: %d", ErrDuplicateObject, obj.ID)
	}
	if _, ok := s.removed[obj.ID]; ok {
		return fmt.Errorf("%w: %d", ErrRemovedObject, obj.ID)
	}
	if obj.Radius == 0 {
		obj.Radius = s.physics.BallRadius
	}
	o := obj
	s.objects[o.ID] = &o
	idx, _ := slices.BinarySearch(s.order, o.ID)
	s.order = slices.Insert(s.order, idx, o.ID)
	return nil
}

// Object returns the object with the given ID.
func (s *State) Object(id ObjectID) (*Object, bool) {
	o, ok := s.objects[id]
	return o, ok
}

// Objects returns all objects in ascending ID order.
func (s *State) Objects() []*Object {
	out := make([]*Object, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.objects[id])
	}
	return out
}

// Len returns the number of live and dead-but-not-removed objects.
func (s *State) Len() int {
	return len(s.objects)
}

// WasRemoved reports whether id has been removed this session.
func (s *State) WasRemoved(id ObjectID) bool {
	_, ok := s.removed[id]
	return ok
}

// SetInput sets the acceleration direction of an object.
func (s *State) SetInput(id ObjectID, v core.Vector) error {
	o, ok := s.objects[id]
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownObject, id)
	}
	if !finite(v.X) || !finite(v.Y) {
		return fmt.Errorf("%w: %v", ErrInvalidInput, v)
	}
	o.Input = v.ClampLen(1)
	return nil
}

// RemoveDead deletes every object marked dead and returns their IDs in
// ascending order. Removal is irreversible.
func (s *State) RemoveDead() []ObjectID {
	var gone []ObjectID
	kept := s.order[:0]
	for _, id := range s.order {
		if s.objects[id].Dead {
			gone = append(gone, id)
			delete(s.objects, id)
			s.removed[id] = struct{}{}
			continue
		}
		kept = append(kept, id)
	}
	s.order = kept
	return gone
}

// Alive returns the IDs of player objects that are not dead.
func (s *State) Alive() []ObjectID {
	var out []ObjectID
	for _, id := range s.order {
		o := s.objects[id]
		if o.Type == event.ObjectPlayer && !o.Dead {
			out = append(out, id)
		}
	}
	return out
}

func (s *State) emit(e event.Event) {
	if s.generate && s.sink != nil {
		s.sink.Emit(e)
	}
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
