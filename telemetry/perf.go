package telemetry

import (
	"log/slog"
	"time"

	"gonum.org/v1/gonum/floats"
)

// Phase is one timed section of a physics step.
type Phase uint8

// Step phases in execution order.
const (
	PhaseSpatialGrid Phase = iota
	PhaseFlocking
	PhasePhysics
	PhaseTelemetry
	numPhases
)

var phaseNames = [numPhases]string{"spatial_grid", "flocking", "physics", "telemetry"}

func (p Phase) String() string {
	if p < numPhases {
		return phaseNames[p]
	}
	return "unknown"
}

// stepTiming is the measured split of one step.
type stepTiming struct {
	total  time.Duration
	phases [numPhases]time.Duration
}

// PerfCollector keeps step timings for the last window steps. It is owned
// by the stepping goroutine and is not safe for concurrent use.
type PerfCollector struct {
	now     func() time.Time
	ring    []stepTiming
	next    int
	filled  int
	current stepTiming

	stepStart  time.Time
	phaseStart time.Time
	phase      Phase
	inPhase    bool
}

// NewPerfCollector creates a collector timing steps with the wall clock.
func NewPerfCollector(window int) *PerfCollector {
	return newPerfCollector(window, time.Now)
}

func newPerfCollector(window int, now func() time.Time) *PerfCollector {
	if window < 1 {
		window = 50
	}
	return &PerfCollector{now: now, ring: make([]stepTiming, window)}
}

// StartTick begins timing a step.
func (p *PerfCollector) StartTick() {
	p.stepStart = p.now()
	p.current = stepTiming{}
	p.inPhase = false
}

// StartPhase closes the running phase and starts timing ph.
func (p *PerfCollector) StartPhase(ph Phase) {
	t := p.now()
	p.closePhase(t)
	p.phase, p.phaseStart, p.inPhase = ph, t, true
}

func (p *PerfCollector) closePhase(t time.Time) {
	if p.inPhase && p.phase < numPhases {
		p.current.phases[p.phase] += t.Sub(p.phaseStart)
	}
	p.inPhase = false
}

// EndTick closes the step, stores it in the window and returns its duration.
func (p *PerfCollector) EndTick() time.Duration {
	t := p.now()
	p.closePhase(t)
	p.current.total = t.Sub(p.stepStart)

	p.ring[p.next] = p.current
	p.next = (p.next + 1) % len(p.ring)
	p.filled = min(p.filled+1, len(p.ring))
	return p.current.total
}

// PerfStats summarizes the step timings in the window.
type PerfStats struct {
	AvgTickDuration time.Duration
	MinTickDuration time.Duration
	MaxTickDuration time.Duration
	TicksPerSecond  float64

	// Mean time and share of the mean step spent in each phase
	PhaseAvg map[Phase]time.Duration
	PhasePct map[Phase]float64
}

// Stats aggregates the current window.
func (p *PerfCollector) Stats() PerfStats {
	out := PerfStats{
		PhaseAvg: make(map[Phase]time.Duration, numPhases),
		PhasePct: make(map[Phase]float64, numPhases),
	}
	if p.filled == 0 {
		return out
	}

	totals := make([]float64, p.filled)
	var perPhase [numPhases]float64
	for i, st := range p.ring[:p.filled] {
		totals[i] = float64(st.total)
		for ph, d := range st.phases {
			perPhase[ph] += float64(d)
		}
	}

	n := float64(p.filled)
	mean := floats.Sum(totals) / n
	out.AvgTickDuration = time.Duration(mean)
	out.MinTickDuration = time.Duration(floats.Min(totals))
	out.MaxTickDuration = time.Duration(floats.Max(totals))
	if mean > 0 {
		out.TicksPerSecond = float64(time.Second) / mean
	}
	for ph := range numPhases {
		if perPhase[ph] == 0 {
			continue
		}
		avg := perPhase[ph] / n
		out.PhaseAvg[ph] = time.Duration(avg)
		if mean > 0 {
			out.PhasePct[ph] = avg / mean * 100
		}
	}
	return out
}

// LogStats logs the window summary.
func (s PerfStats) LogStats(logger *slog.Logger) {
	attrs := []any{
		"avg_tick_us", s.AvgTickDuration.Microseconds(),
		"min_tick_us", s.MinTickDuration.Microseconds(),
		"max_tick_us", s.MaxTickDuration.Microseconds(),
		"ticks_per_sec", int(s.TicksPerSecond),
	}
	for ph := range numPhases {
		if pct := s.PhasePct[ph]; pct > 0.1 {
			attrs = append(attrs, ph.String()+"_pct", float64(int(pct*10))/10)
		}
	}
	logger.Info("perf", attrs...)
}

// PerfStatsCSV is one perf.csv row.
type PerfStatsCSV struct {
	WindowEnd      int32   `csv:"window_end"`
	AvgTickUS      int64   `csv:"avg_tick_us"`
	MinTickUS      int64   `csv:"min_tick_us"`
	MaxTickUS      int64   `csv:"max_tick_us"`
	TicksPerSec    float64 `csv:"ticks_per_sec"`
	SpatialGridPct float64 `csv:"spatial_grid_pct"`
	FlockingPct    float64 `csv:"flocking_pct"`
	PhysicsPct     float64 `csv:"physics_pct"`
	TelemetryPct   float64 `csv:"telemetry_pct"`
}

// ToCSV flattens the stats for the window ending at windowEnd.
func (s PerfStats) ToCSV(windowEnd int32) PerfStatsCSV {
	return PerfStatsCSV{
		WindowEnd:      windowEnd,
		AvgTickUS:      s.AvgTickDuration.Microseconds(),
		MinTickUS:      s.MinTickDuration.Microseconds(),
		MaxTickUS:      s.MaxTickDuration.Microseconds(),
		TicksPerSec:    s.TicksPerSecond,
		SpatialGridPct: s.PhasePct[PhaseSpatialGrid],
		FlockingPct:    s.PhasePct[PhaseFlocking],
		PhysicsPct:     s.PhasePct[PhasePhysics],
		TelemetryPct:   s.PhasePct[PhaseTelemetry],
	}
}
