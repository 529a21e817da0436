package main

import (
	"github.com/pthm-cable/smashbloc/config"
)

// ParamSpec defines a single tunable parameter.
type ParamSpec struct {
	Name string  // Config path
	Min  float64 // Lower bound
	Max  float64 // Upper bound
	get  func(*config.Config) float64
	set  func(*config.Config, float64)
}

// ParamVector holds the set of all tunable parameters.
type ParamVector struct {
	Specs []ParamSpec
}

// NewParamVector creates the steering and flocking parameter set.
func NewParamVector() *ParamVector {
	return &ParamVector{
		Specs: []ParamSpec{
			{Name: "steering.max_force", Min: 4, Max: 60,
				get: func(c *config.Config) float64 { return c.Steering.MaxForce },
				set: func(c *config.Config, v float64) { c.Steering.MaxForce = v }},
			{Name: "steering.decel_radius", Min: 1, Max: 30,
				get: func(c *config.Config) float64 { return c.Steering.DecelRadius },
				set: func(c *config.Config, v float64) { c.Steering.DecelRadius = v }},
			{Name: "flocking.outer_radius", Min: 3, Max: 24,
				get: func(c *config.Config) float64 { return c.Flocking.OuterRadius },
				set: func(c *config.Config, v float64) { c.Flocking.OuterRadius = v }},
			{Name: "flocking.min_radius", Min: 0.5, Max: 6,
				get: func(c *config.Config) float64 { return c.Flocking.MinRadius },
				set: func(c *config.Config, v float64) { c.Flocking.MinRadius = v }},
			{Name: "flocking.converge_max", Min: 0, Max: 20,
				get: func(c *config.Config) float64 { return c.Flocking.ConvergeMax },
				set: func(c *config.Config, v float64) { c.Flocking.ConvergeMax = v }},
			{Name: "flocking.diverge_max", Min: 0, Max: 40,
				get: func(c *config.Config) float64 { return c.Flocking.DivergeMax },
				set: func(c *config.Config, v float64) { c.Flocking.DivergeMax = v }},
			{Name: "flocking.align_max", Min: 0, Max: 20,
				get: func(c *config.Config) float64 { return c.Flocking.AlignMax },
				set: func(c *config.Config, v float64) { c.Flocking.AlignMax = v }},
		},
	}
}

// Dim returns the number of parameters.
func (pv *ParamVector) Dim() int {
	return len(pv.Specs)
}

// Normalize converts raw parameter values to [0,1] range.
func (pv *ParamVector) Normalize(raw []float64) []float64 {
	normalized := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		normalized[i] = (raw[i] - spec.Min) / (spec.Max - spec.Min)
	}
	return normalized
}

// Denormalize converts [0,1] values back to raw values, clamped to bounds.
func (pv *ParamVector) Denormalize(normalized []float64) []float64 {
	raw := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		raw[i] = min(max(spec.Min+normalized[i]*(spec.Max-spec.Min), spec.Min), spec.Max)
	}
	return raw
}

// ApplyToConfig writes values into cfg in Specs order. The min radius is
// kept inside the outer radius.
func (pv *ParamVector) ApplyToConfig(cfg *config.Config, values []float64) {
	for i, spec := range pv.Specs {
		spec.set(cfg, values[i])
	}
	if cfg.Flocking.MinRadius >= cfg.Flocking.OuterRadius {
		cfg.Flocking.MinRadius = cfg.Flocking.OuterRadius / 2
	}
}

// ExtractFromConfig reads current parameter values from cfg.
func (pv *ParamVector) ExtractFromConfig(cfg *config.Config) []float64 {
	v := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		v[i] = min(max(spec.get(cfg), spec.Min), spec.Max)
	}
	return v
}
