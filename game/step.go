package game

import (
	"time"

	"github.com/pthm-cable/smashbloc/telemetry"
)

// Step advances the physics by one fixed tick: rebuild the spatial grid,
// accumulate steering forces, integrate. Step must not be called
// concurrently with itself.
func (s *Simulation) Step() {
	start := time.Now()

	// Gold lives behind the players' locks, which rank above mu.
	var teams []telemetry.TeamSample
	flush := s.collector.ShouldFlush(s.Tick() + 1)
	if flush {
		teams = s.teamSamples()
	}

	s.mu.Lock()
	s.perf.StartTick()

	s.perf.StartPhase(telemetry.PhaseSpatialGrid)
	s.grid.Clear()
	query := s.gridFilter.Query()
	for query.Next() {
		pos, _ := query.Get()
		s.grid.Insert(query.Entity(), pos.Vec)
	}

	s.perf.StartPhase(telemetry.PhaseFlocking)
	s.flocking.Update()

	s.perf.StartPhase(telemetry.PhasePhysics)
	s.physics.Update(s.cfg.Physics.DT)

	s.tick++
	s.simTime += s.cfg.Physics.DT

	if flush {
		s.perf.StartPhase(telemetry.PhaseTelemetry)
		s.flushTelemetryLocked(teams)
	}
	s.perf.EndTick()
	s.mu.Unlock()

	s.metrics.Step(s.ctx, time.Since(start))
	if s.stepClock != nil {
		s.stepClock.Advance(s.cfg.Derived.StepDuration)
	}
}

// StepN runs n physics ticks.
func (s *Simulation) StepN(n int) {
	for range n {
		s.Step()
	}
}
