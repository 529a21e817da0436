package steering

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"
)

const eps = 1e-9

func near(a, b r3.Vec) bool {
	return r3.Norm(r3.Sub(a, b)) < 1e-6
}

func isNaN(v r3.Vec) bool {
	return math.IsNaN(v.X) || math.IsNaN(v.Y) || math.IsNaN(v.Z)
}

func TestDecelerateBounds(t *testing.T) {
	if got := Decelerate(0); got != 0 {
		t.Errorf("Decelerate(0) = %v, want 0", got)
	}
	if got := Decelerate(-3); got != 0 {
		t.Errorf("Decelerate(-3) = %v, want 0", got)
	}
	if got := Decelerate(math.NaN()); got != 0 {
		t.Errorf("Decelerate(NaN) = %v, want 0", got)
	}

	prev := 0.0
	for i := 1; i <= 10000; i++ {
		x := float64(i) * 0.001
		got := Decelerate(x)
		if got < 0 || got > 1 {
			t.Fatalf("Decelerate(%v) = %v, out of [0,1]", x, got)
		}
		if got < prev {
			t.Fatalf("Decelerate not monotonic at %v: %v < %v", x, got, prev)
		}
		prev = got
	}

	if got := Decelerate(1); math.Abs(got-1) > 0.001 {
		t.Errorf("Decelerate(1) = %v, want ~1", got)
	}
	if got := Decelerate(1e6); got != 1 {
		t.Errorf("Decelerate(1e6) = %v, want 1", got)
	}
}

func TestHoverCorrection(t *testing.T) {
	p := HoverParams{MaxFloat: 4, Stiffness: 40, Damping: 8, Lift: 9.81}

	tests := []struct {
		name         string
		sample, velY float64
		wantY        float64
		wantGrounded bool
	}{
		{"at target", 2, 0, 9.81, true},
		{"below target", 1, 0, 9.81 + 40, true},
		{"above target", 3, 0, 0, true},
		{"rising fast", 2, 10, 0, true},
		{"falling", 2, -1, 9.81 + 8, true},
		{"at max float", 4, 0, 0, true},
		{"airborne", 4.01, 0, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, grounded := HoverCorrection(tt.sample, 2, tt.velY, p)
			if grounded != tt.wantGrounded {
				t.Errorf("grounded = %v, want %v", grounded, tt.wantGrounded)
			}
			if f.X != 0 || f.Z != 0 {
				t.Errorf("hover force has horizontal component: %v", f)
			}
			if math.Abs(f.Y-tt.wantY) > eps {
				t.Errorf("force.Y = %v, want %v", f.Y, tt.wantY)
			}
		})
	}
}

func TestGoalSeek(t *testing.T) {
	p := SeekParams{MaxSpeed: 8, MaxForce: 100, DecelRadius: 8}

	far := GoalSeek(r3.Vec{}, r3.Vec{X: 100}, r3.Vec{}, p)
	if !near(far, r3.Vec{X: 8}) {
		t.Errorf("far seek = %v, want (8,0,0)", far)
	}

	// Vertical offset is ignored
	high := GoalSeek(r3.Vec{Y: 5}, r3.Vec{X: 100, Y: -20}, r3.Vec{}, p)
	if !near(high, r3.Vec{X: 8}) {
		t.Errorf("seek with altitude difference = %v, want (8,0,0)", high)
	}

	arrived := GoalSeek(r3.Vec{X: 3, Z: 4}, r3.Vec{X: 3, Z: 4}, r3.Vec{X: 2, Y: 1}, p)
	if !near(arrived, r3.Vec{X: -2}) {
		t.Errorf("seek at destination = %v, want braking (-2,0,0)", arrived)
	}

	slow := GoalSeek(r3.Vec{}, r3.Vec{X: 1}, r3.Vec{}, p)
	if slow.X <= 0 || slow.X >= 8 {
		t.Errorf("close seek = %v, want slowed positive X", slow)
	}

	capped := GoalSeek(r3.Vec{}, r3.Vec{X: 100}, r3.Vec{X: -50}, SeekParams{MaxSpeed: 8, MaxForce: 5, DecelRadius: 8})
	if math.Abs(r3.Norm(capped)-5) > eps {
		t.Errorf("capped seek magnitude = %v, want 5", r3.Norm(capped))
	}
}

func TestConverge(t *testing.T) {
	self := r3.Vec{}

	tests := []struct {
		name      string
		neighbors []r3.Vec
		want      r3.Vec
	}{
		{"none", nil, r3.Vec{}},
		{"single in band", []r3.Vec{{X: 5}}, r3.Vec{X: 5}},
		{"symmetric pair cancels", []r3.Vec{{X: 5}, {X: -5}}, r3.Vec{}},
		{"too close ignored", []r3.Vec{{X: 1}}, r3.Vec{}},
		{"too far ignored", []r3.Vec{{X: 10}}, r3.Vec{}},
		{"mixed", []r3.Vec{{X: 4}, {Z: 4}, {X: 20}}, r3.Vec{X: 2, Z: 2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Converge(self, tt.neighbors, 8, 2.5)
			if isNaN(got) || !near(got, tt.want) {
				t.Errorf("Converge = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDiverge(t *testing.T) {
	self := r3.Vec{}

	tests := []struct {
		name      string
		neighbors []r3.Vec
		want      r3.Vec
	}{
		{"none", nil, r3.Vec{}},
		{"single close", []r3.Vec{{X: 1}}, r3.Vec{X: -1.5}},
		{"symmetric pair cancels", []r3.Vec{{X: 1}, {X: -1}}, r3.Vec{}},
		{"coincident", []r3.Vec{{}}, r3.Vec{}},
		{"outside radius", []r3.Vec{{X: 3}}, r3.Vec{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Diverge(self, tt.neighbors, 2.5)
			if isNaN(got) || !near(got, tt.want) {
				t.Errorf("Diverge = %v, want %v", got, tt.want)
			}
		})
	}
}

// Two units placed opposite each other around a third push it equally.
func TestFlockingSymmetry(t *testing.T) {
	center := r3.Vec{X: 50, Z: 50}
	left := r3.Vec{X: 48, Z: 50}
	right := r3.Vec{X: 52, Z: 50}

	div := Diverge(center, []r3.Vec{left, right}, 2.5)
	conv := Converge(center, []r3.Vec{left, right}, 8, 1)
	if !near(r3.Add(div, conv), r3.Vec{}) {
		t.Errorf("net force on center = %v, want 0", r3.Add(div, conv))
	}

	// The outer units are pushed apart in opposite directions
	dl := Diverge(left, []r3.Vec{center}, 2.5)
	dr := Diverge(right, []r3.Vec{center}, 2.5)
	if dl.X >= 0 || dr.X <= 0 {
		t.Errorf("outer units not pushed apart: left %v right %v", dl, dr)
	}
	if !near(r3.Add(dl, dr), r3.Vec{}) {
		t.Errorf("outer forces not symmetric: %v + %v", dl, dr)
	}
}

func TestAlign(t *testing.T) {
	if got := Align(r3.Vec{X: 1}, nil); got != (r3.Vec{}) {
		t.Errorf("Align with no neighbors = %v, want 0", got)
	}
	got := Align(r3.Vec{X: 1}, []r3.Vec{{X: 3}, {Z: 2}})
	if !near(got, r3.Vec{X: 0.5, Z: 1}) {
		t.Errorf("Align = %v, want (0.5,0,1)", got)
	}
}

func TestClamp(t *testing.T) {
	if got := Clamp(r3.Vec{X: 3, Z: 4}, 10); got != (r3.Vec{X: 3, Z: 4}) {
		t.Errorf("Clamp under cap changed vector: %v", got)
	}
	if got := Clamp(r3.Vec{X: 30, Z: 40}, 5); !near(got, r3.Vec{X: 3, Z: 4}) {
		t.Errorf("Clamp = %v, want (3,0,4)", got)
	}
	if got := Clamp(r3.Vec{X: math.NaN()}, 5); got != (r3.Vec{}) {
		t.Errorf("Clamp(NaN) = %v, want 0", got)
	}
	if got := Clamp(r3.Vec{X: math.Inf(1)}, 5); got != (r3.Vec{}) {
		t.Errorf("Clamp(Inf) = %v, want 0", got)
	}
}

func TestCombineClampsIndependently(t *testing.T) {
	got := Combine(
		Term{Force: r3.Vec{X: 10}, Max: 4},
		Term{Force: r3.Vec{Z: 10}, Max: 3},
	)
	if !near(got, r3.Vec{X: 4, Z: 3}) {
		t.Errorf("Combine = %v, want (4,0,3)", got)
	}
	// The sum exceeds both caps and is left alone
	if n := r3.Norm(got); math.Abs(n-5) > eps {
		t.Errorf("|Combine| = %v, want 5", n)
	}
}
