package sim

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/vovakirdan/clash/internal/core"
	"github.com/vovakirdan/clash/internal/event"
)

type collector struct {
	events []event.Event
}

func (c *collector) Emit(e event.Event) { c.events = append(c.events, e) }

func TestSpawnRejectsDuplicatesAndRemovedIDs(t *testing.T) {
	s := NewState(DefaultPhysics(), nil)

	if err := s.Spawn(Object{ID: 1}); err != nil {
		t.Fatalf("Spawn() failed: %v", err)
	}
	if err := s.Spawn(Object{ID: 1}); !errors.Is(err, ErrDuplicateObject) {
		t.Errorf("duplicate Spawn() = %v, expected ErrDuplicateObject", err)
	}

	o, _ := s.Object(1)
	o.Dead = true
	gone := s.RemoveDead()
	if len(gone) != 1 || gone[0] != 1 {
		t.Fatalf("RemoveDead() = %v, expected [1]", gone)
	}
	if !s.WasRemoved(1) {
		t.Error("WasRemoved(1) = false")
	}
	if err := s.Spawn(Object{ID: 1}); !errors.Is(err, ErrRemovedObject) {
		t.Errorf("Spawn() of removed id = %v, expected ErrRemovedObject", err)
	}
}

func TestObjectsOrdered(t *testing.T) {
	s := NewState(DefaultPhysics(), nil)
	for _, id := range []ObjectID{5, 2, 9, 1} {
		_ = s.Spawn(Object{ID: id})
	}
	objs := s.Objects()
	want := []ObjectID{1, 2, 5, 9}
	for i, o := range objs {
		if o.ID != want[i] {
			t.Fatalf("Objects()[%d] = %d, expected %d", i, o.ID, want[i])
		}
	}
}

func TestStepDeterministic(t *testing.T) {
	build := func() *State {
		s := NewState(DefaultPhysics(), nil)
		s.SetArena(core.Vec(20, 20))
		_ = s.Spawn(Object{ID: 1, Pos: core.Vec(5, 5)})
		_ = s.Spawn(Object{ID: 2, Pos: core.Vec(15, 15), Vel: core.Vec(-1, 0)})
		_ = s.SetInput(1, core.Vec(1, 0.5))
		return s
	}
	a, b := build(), build()

	for i := 0; i < 120; i++ {
		a.Step(16 * time.Millisecond)
	}
	for i := 0; i < 120; i++ {
		b.Step(16 * time.Millisecond)
	}

	for _, id := range []ObjectID{1, 2} {
		oa, _ := a.Object(id)
		ob, _ := b.Object(id)
		if oa.Pos != ob.Pos || oa.Vel != ob.Vel {
			t.Errorf("object %d diverged: %+v vs %+v", id, oa, ob)
		}
	}
}

func TestStepMovesWithInput(t *testing.T) {
	s := NewState(DefaultPhysics(), nil)
	_ = s.Spawn(Object{ID: 1, Pos: core.Vec(5, 5)})
	_ = s.SetInput(1, core.Vec(1, 0))

	s.Step(100 * time.Millisecond)

	o, _ := s.Object(1)
	if o.Pos.X <= 5 || o.Vel.X <= 0 {
		t.Errorf("object should accelerate right, got pos=%v vel=%v", o.Pos, o.Vel)
	}
	if o.Pos.Y != 5 {
		t.Errorf("object should not move vertically, got %v", o.Pos.Y)
	}
}

func TestSetInputRejectsNonFinite(t *testing.T) {
	c := &collector{}
	s := NewState(DefaultPhysics(), c)
	s.SetArena(core.Vec(40, 20))
	_ = s.Spawn(Object{ID: 1, Pos: core.Vec(5, 10)})
	_ = s.Spawn(Object{ID: 2, Pos: core.Vec(35, 10)})
	_ = s.SetInput(1, core.Vec(1, 0))

	for _, v := range []core.Vector{
		core.Vec(math.NaN(), 0),
		core.Vec(0, math.Inf(1)),
		core.Vec(math.Inf(-1), math.NaN()),
	} {
		if err := s.SetInput(1, v); !errors.Is(err, ErrInvalidInput) {
			t.Errorf("SetInput(%v) = %v, expected ErrInvalidInput", v, err)
		}
	}

	o, _ := s.Object(1)
	if o.Input != core.Vec(1, 0) {
		t.Errorf("rejected input replaced the previous one: %v", o.Input)
	}
	for i := 0; i < 3; i++ {
		s.Step(100 * time.Millisecond)
	}
	for _, id := range []ObjectID{1, 2} {
		o, _ := s.Object(id)
		if math.IsNaN(o.Pos.X) || math.IsNaN(o.Pos.Y) || math.IsNaN(o.Vel.X) || math.IsNaN(o.Vel.Y) {
			t.Errorf("object %d went non-finite: pos=%v vel=%v", id, o.Pos, o.Vel)
		}
	}
}

func TestStepEmitsRemoveWhenOutsideArena(t *testing.T) {
	c := &collector{}
	s := NewState(DefaultPhysics(), c)
	s.SetArena(core.Vec(10, 10))
	_ = s.Spawn(Object{ID: 3, Pos: core.Vec(9.99, 5), Vel: core.Vec(5, 0)})

	s.Step(100 * time.Millisecond)

	if len(c.events) != 1 || c.events[0].Kind != event.KindRemove || c.events[0].Object != 3 {
		t.Fatalf("expected one remove event for object 3, got %+v", c.events)
	}
	o, _ := s.Object(3)
	if o.Dead {
		t.Error("Step must not kill objects directly")
	}
}

func TestStepEmitsImpactForApproachingBalls(t *testing.T) {
	c := &collector{}
	s := NewState(DefaultPhysics(), c)
	_ = s.Spawn(Object{ID: 1, Pos: core.Vec(5, 5), Vel: core.Vec(2, 0)})
	_ = s.Spawn(Object{ID: 2, Pos: core.Vec(5.8, 5), Vel: core.Vec(-2, 0)})

	s.Step(10 * time.Millisecond)

	if len(c.events) != 1 {
		t.Fatalf("expected one impact, got %+v", c.events)
	}
	e := c.events[0]
	if e.Kind != event.KindImpact || e.Object != 1 || e.Other != 2 || e.Value <= 0 {
		t.Errorf("unexpected impact event %+v", e)
	}
}

func TestStepGenerationDisabled(t *testing.T) {
	c := &collector{}
	s := NewState(DefaultPhysics(), c)
	s.SetArena(core.Vec(10, 10))
	_ = s.Spawn(Object{ID: 1, Pos: core.Vec(11, 5)})
	s.SetGenerate(false)

	s.Step(10 * time.Millisecond)

	if len(c.events) != 0 {
		t.Errorf("no events expected while generation is disabled, got %d", len(c.events))
	}
}
