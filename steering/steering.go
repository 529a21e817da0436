// Package steering provides the pure force primitives used by the flocking
// system. Every function is deterministic and allocation-free, and returns the
// zero vector rather than NaN for empty or degenerate input.
package steering

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// decelGain maps Decelerate(1) to ~1 (1/ln 2).
const decelGain = 1.442

// Decelerate is the arrival easing curve min(1, 1.442*ln(cbrt(x)+1)).
// x is the squared distance to the destination divided by the squared
// deceleration radius. Non-positive x yields 0.
func Decelerate(x float64) float64 {
	if x <= 0 || math.IsNaN(x) {
		return 0
	}
	v := decelGain * math.Log(math.Cbrt(x)+1)
	if v > 1 {
		return 1
	}
	return v
}

// HoverParams configures HoverCorrection.
type HoverParams struct {
	MaxFloat  float64 // samples above this mean the unit is airborne
	Stiffness float64
	Damping   float64
	Lift      float64 // constant upward force cancelling gravity (mass * g)
}

// HoverCorrection returns the upward force holding a unit at targetAltitude.
// sample is the downward distance to the ground. When the sample exceeds
// MaxFloat the unit is airborne: grounded is false and the force is zero.
func HoverCorrection(sample, targetAltitude, verticalVelocity float64, p HoverParams) (force r3.Vec, grounded bool) {
	if sample > p.MaxFloat {
		return r3.Vec{}, false
	}
	f := p.Lift + p.Stiffness*(targetAltitude-sample) - p.Damping*verticalVelocity
	if f < 0 {
		// Hover only pushes up; gravity handles the rest
		f = 0
	}
	return r3.Vec{Y: f}, true
}

// SeekParams configures GoalSeek.
type SeekParams struct {
	MaxSpeed    float64
	MaxForce    float64
	DecelRadius float64
}

// GoalSeek returns the horizontal steering force that moves a unit toward
// destination, slowing with Decelerate inside DecelRadius.
func GoalSeek(position, destination, velocity r3.Vec, p SeekParams) r3.Vec {
	to := Horizontal(r3.Sub(destination, position))
	distSq := r3.Norm2(to)
	if distSq == 0 || p.DecelRadius <= 0 {
		return Clamp(r3.Scale(-1, Horizontal(velocity)), p.MaxForce)
	}

	speed := p.MaxSpeed * Decelerate(distSq/(p.DecelRadius*p.DecelRadius))
	desired := r3.Scale(speed/math.Sqrt(distSq), to)
	return Clamp(r3.Sub(desired, Horizontal(velocity)), p.MaxForce)
}

// Converge returns the vector from self toward the centroid of neighbors
// lying within outerRadius but outside minRadius. Neighbors inside minRadius
// are left to Diverge.
func Converge(self r3.Vec, neighbors []r3.Vec, outerRadius, minRadius float64) r3.Vec {
	outerSq := outerRadius * outerRadius
	minSq := minRadius * minRadius

	var sum r3.Vec
	n := 0
	for _, p := range neighbors {
		d := r3.Norm2(r3.Sub(p, self))
		if d <= minSq || d > outerSq {
			continue
		}
		sum = r3.Add(sum, p)
		n++
	}
	if n == 0 {
		return r3.Vec{}
	}
	centroid := r3.Scale(1/float64(n), sum)
	return r3.Sub(centroid, self)
}

// Diverge returns a vector pointing away from the centroid of neighbors
// within minRadius. Its magnitude grows as the centroid gets closer, reaching
// minRadius at contact. A centroid coincident with self yields zero.
func Diverge(self r3.Vec, neighbors []r3.Vec, minRadius float64) r3.Vec {
	minSq := minRadius * minRadius

	var sum r3.Vec
	n := 0
	for _, p := range neighbors {
		if r3.Norm2(r3.Sub(p, self)) > minSq {
			continue
		}
		sum = r3.Add(sum, p)
		n++
	}
	if n == 0 {
		return r3.Vec{}
	}
	away := r3.Sub(self, r3.Scale(1/float64(n), sum))
	dist := r3.Norm(away)
	if dist == 0 {
		return r3.Vec{}
	}
	strength := minRadius - dist
	if strength <= 0 {
		return r3.Vec{}
	}
	return r3.Scale(strength/dist, away)
}

// Align returns the average neighbor velocity minus the unit's own velocity.
func Align(selfVelocity r3.Vec, neighborVelocities []r3.Vec) r3.Vec {
	if len(neighborVelocities) == 0 {
		return r3.Vec{}
	}
	var sum r3.Vec
	for _, v := range neighborVelocities {
		sum = r3.Add(sum, v)
	}
	avg := r3.Scale(1/float64(len(neighborVelocities)), sum)
	return r3.Sub(avg, selfVelocity)
}

// Clamp limits the magnitude of v to max. Non-finite input yields zero.
func Clamp(v r3.Vec, max float64) r3.Vec {
	if !finite(v) || max <= 0 {
		return r3.Vec{}
	}
	n2 := r3.Norm2(v)
	if n2 <= max*max {
		return v
	}
	return r3.Scale(max/math.Sqrt(n2), v)
}

// Term is a force paired with its own cap.
type Term struct {
	Force r3.Vec
	Max   float64
}

// Combine clamps each term to its own cap and sums them. The sum is not
// clamped again.
func Combine(terms ...Term) r3.Vec {
	var sum r3.Vec
	for _, t := range terms {
		sum = r3.Add(sum, Clamp(t.Force, t.Max))
	}
	return sum
}

// Horizontal projects v onto the XZ plane.
func Horizontal(v r3.Vec) r3.Vec {
	return r3.Vec{X: v.X, Z: v.Z}
}

func finite(v r3.Vec) bool {
	return !math.IsNaN(v.X) && !math.IsNaN(v.Y) && !math.IsNaN(v.Z) &&
		!math.IsInf(v.X, 0) && !math.IsInf(v.Y, 0) && !math.IsInf(v.Z, 0)
}
