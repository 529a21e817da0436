package main

import (
	"math"
	"testing"

	"github.com/pthm-cable/smashbloc/config"
)

func TestNormalizeRoundTrip(t *testing.T) {
	pv := NewParamVector()
	cfg := config.MustDefaults()

	raw := pv.ExtractFromConfig(cfg)
	back := pv.Denormalize(pv.Normalize(raw))
	for i, spec := range pv.Specs {
		if math.Abs(back[i]-raw[i]) > 1e-9 {
			t.Errorf("%s: got %v, want %v", spec.Name, back[i], raw[i])
		}
	}
}

func TestDenormalizeClamps(t *testing.T) {
	pv := NewParamVector()
	x := make([]float64, pv.Dim())
	for i := range x {
		x[i] = 2
	}
	for i, v := range pv.Denormalize(x) {
		if v != pv.Specs[i].Max {
			t.Errorf("%s = %v, want max %v", pv.Specs[i].Name, v, pv.Specs[i].Max)
		}
	}
}

func TestApplyKeepsMinRadiusInside(t *testing.T) {
	pv := NewParamVector()
	cfg := config.MustDefaults()
	values := pv.ExtractFromConfig(cfg)
	values[2] = 4 // outer radius
	values[3] = 6 // min radius

	pv.ApplyToConfig(cfg, values)
	if cfg.Flocking.MinRadius >= cfg.Flocking.OuterRadius {
		t.Errorf("min radius %v not inside outer %v", cfg.Flocking.MinRadius, cfg.Flocking.OuterRadius)
	}
	if err := cfg.Finalize(); err != nil {
		t.Errorf("applied config invalid: %v", err)
	}
}
