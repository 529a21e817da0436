package steering

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"
	"pgregory.net/rapid"
)

func vecGen(lo, hi float64) *rapid.Generator[r3.Vec] {
	return rapid.Custom(func(t *rapid.T) r3.Vec {
		return r3.Vec{
			X: rapid.Float64Range(lo, hi).Draw(t, "x"),
			Y: rapid.Float64Range(lo, hi).Draw(t, "y"),
			Z: rapid.Float64Range(lo, hi).Draw(t, "z"),
		}
	})
}

func TestDecelerateProperties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		a := rapid.Float64Range(0, 1e6).Draw(t, "a")
		b := rapid.Float64Range(0, 1e6).Draw(t, "b")
		if a > b {
			a, b = b, a
		}
		da, db := Decelerate(a), Decelerate(b)
		if da < 0 || db > 1 {
			t.Fatalf("out of [0,1]: Decelerate(%v)=%v Decelerate(%v)=%v", a, da, b, db)
		}
		if da > db {
			t.Fatalf("not monotonic: Decelerate(%v)=%v > Decelerate(%v)=%v", a, da, b, db)
		}
	})
}

func TestClampProperties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		v := vecGen(-1e4, 1e4).Draw(t, "v")
		limit := rapid.Float64Range(0.01, 1e3).Draw(t, "max")

		got := Clamp(v, limit)
		if r3.Norm(got) > limit*(1+1e-9) {
			t.Fatalf("|Clamp(%v, %v)| = %v", v, limit, r3.Norm(got))
		}
		// Direction is kept.
		if r3.Norm(v) > 1e-9 && r3.Dot(got, v) < 0 {
			t.Fatalf("Clamp flipped direction: %v -> %v", v, got)
		}
	})
}

func TestDivergeSymmetryProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		a := vecGen(-50, 50).Draw(t, "a")
		b := vecGen(-50, 50).Draw(t, "b")
		radius := rapid.Float64Range(0.5, 20).Draw(t, "radius")

		fa := Diverge(a, []r3.Vec{b}, radius)
		fb := Diverge(b, []r3.Vec{a}, radius)
		sum := r3.Add(fa, fb)
		if math.Abs(sum.X) > 1e-6 || math.Abs(sum.Y) > 1e-6 || math.Abs(sum.Z) > 1e-6 {
			t.Fatalf("pairwise diverge not opposite: %v + %v", fa, fb)
		}
	})
}
