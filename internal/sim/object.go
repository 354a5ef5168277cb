// Package sim holds the arena simulation: the object map, the deterministic
// integrator shared by prediction, replay and the authoritative server, and
// the per-kind application of events.
package sim

import (
	"github.com/vovakirdan/clash/internal/core"
	"github.com/vovakirdan/clash/internal/event"
)

// ObjectID is an alias to event.ObjectID for convenience.
type ObjectID = event.ObjectID

// Object is the state of one simulated body.
type Object struct {
	ID     ObjectID
	Type   event.ObjectType
	Name   string
	Color  int
	Pos    core.Vector
	Vel    core.Vector
	Radius float64

	// Input is the acceleration direction currently applied by the owner.
	Input core.Vector

	// Dead objects are removed by RemoveDead; the flag never clears.
	Dead bool

	// Anim is a visual phase in seconds, advanced by StepVisual only.
	Anim float64
}

// Physics holds the integrator constants. Client and server must use the
// same values or predicted and authoritative trajectories diverge.
type Physics struct {
	Accel      float64 // Acceleration per unit of input, units/s²
	Friction   float64 // Linear damping coefficient, 1/s
	MaxSpeed   float64 // Speed cap, units/s
	BallRadius float64 // Radius of player balls
	Elasticity float64 // Restitution used for impact impulses, 0..1
}

// DefaultPhysics returns the physics used when no configuration is given.
func DefaultPhysics() Physics {
	return Physics{
		Accel:      12,
		Friction:   0.8,
		MaxSpeed:   10,
		BallRadius: 0.5,
		Elasticity: 0.9,
	}
}
