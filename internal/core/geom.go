// Package core provides fundamental types and utilities shared by the
// simulation, the synchronization core and the terminal frontend.
// It has no external dependencies so that game logic stays pure and testable.
package core

import "math"

// Vector is a 2D vector used for positions, velocities and sensor samples.
type Vector struct {
	X float64 `msgpack:"x"`
	Y float64 `msgpack:"y"`
}

// Vec creates a new vector.
func Vec(x, y float64) Vector {
	return Vector{X: x, Y: y}
}

// Add returns v + o.
func (v Vector) Add(o Vector) Vector {
	return Vector{X: v.X + o.X, Y: v.Y + o.Y}
}

// Sub returns v - o.
func (v Vector) Sub(o Vector) Vector {
	return Vector{X: v.X - o.X, Y: v.Y - o.Y}
}

// Scale returns v multiplied by s.
func (v Vector) Scale(s float64) Vector {
	return Vector{X: v.X * s, Y: v.Y * s}
}

// Dot returns the dot product of v and o.
func (v Vector) Dot(o Vector) float64 {
	return v.X*o.X + v.Y*o.Y
}

// Len returns the euclidean length of v.
func (v Vector) Len() float64 {
	return math.Hypot(v.X, v.Y)
}

// Normalized returns v scaled to unit length, or the zero vector.
func (v Vector) Normalized() Vector {
	l := v.Len()
	if l == 0 {
		return Vector{}
	}
	return v.Scale(1 / l)
}

// ClampLen limits the length of v to max.
func (v Vector) ClampLen(max float64) Vector {
	l := v.Len()
	if l <= max || l == 0 {
		return v
	}
	return v.Scale(max / l)
}

// IsZero reports whether both components are zero.
func (v Vector) IsZero() bool {
	return v.X == 0 && v.Y == 0
}

// Clamp restricts a value to be within [min, max].
func Clamp(val, min, max int) int {
	if val < min {
		return min
	}
	if val > max {
		return max
	}
	return val
}

// ClampF restricts a float64 value to be within [min, max].
func ClampF(val, min, max float64) float64 {
	if val < min {
		return min
	}
	if val > max {
		return max
	}
	return val
}
