package telemetry

import (
	"cmp"
	"slices"
	"sync"
)

// TeamSample is the state of one team at a window boundary.
type TeamSample struct {
	Name   string
	Units  int
	Gold   int
	Cities int
}

// UnitSample is the state of one active unit at a window boundary.
type UnitSample struct {
	Speed  float64
	Health float64 // fraction of max health
}

// Collector accumulates events within time windows and produces WindowStats.
// Record is safe to call from decision goroutines; Flush is called from the
// physics tick.
type Collector struct {
	windowDurationTicks int32
	dt                  float64

	mu              sync.Mutex
	windowStartTick int32
	totals          [numEventTypes]int
	perTeam         map[string]*[numEventTypes]int
}

// NewCollector creates a new stats collector.
// windowTicks is the number of physics ticks per window, dt the seconds per tick.
func NewCollector(windowTicks int, dt float64) *Collector {
	if windowTicks < 1 {
		windowTicks = 1
	}
	return &Collector{
		windowDurationTicks: int32(windowTicks),
		dt:                  dt,
		perTeam:             make(map[string]*[numEventTypes]int),
	}
}

// Record counts an event in the current window.
func (c *Collector) Record(ev Event) {
	if ev.Type >= numEventTypes {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.totals[ev.Type]++
	counts, ok := c.perTeam[ev.Team]
	if !ok {
		counts = new([numEventTypes]int)
		c.perTeam[ev.Team] = counts
	}
	counts[ev.Type]++
}

// ShouldFlush returns true if enough ticks have passed to flush the window.
func (c *Collector) ShouldFlush(currentTick int32) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return currentTick-c.windowStartTick >= c.windowDurationTicks
}

// Flush produces the window's aggregate and per-team stats and resets the
// counters for the next window. Team rows are ordered by name.
func (c *Collector) Flush(currentTick int32, teams []TeamSample, units []UnitSample) (WindowStats, []TeamStats) {
	c.mu.Lock()
	defer c.mu.Unlock()

	speeds := make([]float64, len(units))
	health := make([]float64, len(units))
	for i, u := range units {
		speeds[i] = u.Speed
		health[i] = u.Health
	}
	speedMean, speedStd, speedP90 := ComputeDistribution(speeds)
	healthMean, _, _ := ComputeDistribution(health)

	var hitRate float64
	if shots := c.totals[EventShot]; shots > 0 {
		hitRate = float64(c.totals[EventHit]) / float64(shots)
	}

	stats := WindowStats{
		WindowStartTick: c.windowStartTick,
		WindowEndTick:   currentTick,
		SimTimeSec:      float64(currentTick) * c.dt,

		Teams: len(teams),
		Units: len(units),

		Decisions:      c.totals[EventDecision],
		DecisionErrors: c.totals[EventDecisionError],
		Commands:       c.totals[EventCommand],
		Spawns:         c.totals[EventSpawn],
		Deaths:         c.totals[EventDeath],
		Shots:          c.totals[EventShot],
		Hits:           c.totals[EventHit],
		Kills:          c.totals[EventKill],
		HitRate:        hitRate,

		SpeedMean:  speedMean,
		SpeedStd:   speedStd,
		SpeedP90:   speedP90,
		HealthMean: healthMean,
	}

	rows := make([]TeamStats, 0, len(teams))
	for _, t := range teams {
		row := TeamStats{
			WindowEndTick: currentTick,
			Team:          t.Name,
			Units:         t.Units,
			Gold:          t.Gold,
			Cities:        t.Cities,
		}
		if counts, ok := c.perTeam[t.Name]; ok {
			row.Spawns = counts[EventSpawn]
			row.Deaths = counts[EventDeath]
			row.Kills = counts[EventKill]
			row.Commands = counts[EventCommand]
		}
		rows = append(rows, row)
	}
	slices.SortFunc(rows, func(a, b TeamStats) int { return cmp.Compare(a.Team, b.Team) })

	c.windowStartTick = currentTick
	c.totals = [numEventTypes]int{}
	clear(c.perTeam)

	return stats, rows
}

// WindowDurationTicks returns the number of ticks per window.
func (c *Collector) WindowDurationTicks() int32 {
	return c.windowDurationTicks
}
