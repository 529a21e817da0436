package components

import (
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/smashbloc/config"
)

// Body holds physical properties consumed by the integrator.
type Body struct {
	Mass     float64
	MaxSpeed float64
	Force    r3.Vec // accumulated this tick, cleared by the integrator
	Grounded bool
}

// BodyFromArchetype returns a body for the given unit kind.
func BodyFromArchetype(u *config.UnitConfig) Body {
	return Body{
		Mass:     u.Mass,
		MaxSpeed: u.MaxSpeed,
	}
}
