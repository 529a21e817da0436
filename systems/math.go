package systems

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// clampFloat clamps a value between min and max.
func clampFloat(v, minVal, maxVal float64) float64 {
	if v < minVal {
		return minVal
	}
	if v > maxVal {
		return maxVal
	}
	return v
}

func clampInt(v, minVal, maxVal int) int {
	if v < minVal {
		return minVal
	}
	if v > maxVal {
		return maxVal
	}
	return v
}

// horizontalSpeed returns the XZ magnitude of a velocity.
func horizontalSpeed(v r3.Vec) float64 {
	return math.Hypot(v.X, v.Z)
}
