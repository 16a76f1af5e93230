package sim

import (
	"math"
)

// Bounce reports which reflections were applied during a step
type Bounce struct {
	// Vertical is set when the object hit the top or bottom edge (angle negated)
	Vertical bool
	// Horizontal is set when the object hit the left or right edge (angle mirrored around π/2)
	Horizontal bool
}

// KinematicState is the state of a single moving disc inside a bounded area
type KinematicState struct {
	X      int
	Y      int
	Angle  float64
	Speed  float64
	Radius int
	Width  int
	Height int
}

// Step advances position by one tick and applies the reflection policy.
// Both reflections may happen in the same tick. After reflection the position
// is clamped, so radius <= X <= Width-radius and radius <= Y <= Height-radius hold.
func (state *KinematicState) Step() Bounce {
	state.X += int(math.Round(state.Speed * math.Cos(state.Angle)))
	state.Y += int(math.Round(state.Speed * math.Sin(state.Angle)))

	bounce := Bounce{}
	if state.Y >= state.Height-state.Radius || state.Y <= state.Radius {
		state.Angle = -state.Angle
		bounce.Vertical = true
	}
	if state.X >= state.Width-state.Radius || state.X <= state.Radius {
		state.Angle = math.Pi - state.Angle
		bounce.Horizontal = true
	}

	state.X = clampInt(state.X, state.Radius, state.Width-state.Radius)
	state.Y = clampInt(state.Y, state.Radius, state.Height-state.Radius)
	return bounce
}

// InBounds checks the kinematic invariant
func (state *KinematicState) InBounds() bool {
	return state.X >= state.Radius && state.X <= state.Width-state.Radius &&
		state.Y >= state.Radius && state.Y <= state.Height-state.Radius
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
