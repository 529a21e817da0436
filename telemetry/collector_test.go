package telemetry

import (
	"math"
	"sync"
	"testing"
)

func TestCollectorFlush(t *testing.T) {
	c := NewCollector(100, 0.02)

	c.Record(NewUnitEvent(EventShot, 10, "red", 1))
	c.Record(NewUnitEvent(EventShot, 11, "red", 1))
	c.Record(NewUnitEvent(EventHit, 11, "red", 1))
	c.Record(NewUnitEvent(EventDeath, 11, "blue", 4))
	c.Record(NewUnitEvent(EventKill, 11, "red", 1))
	c.Record(NewTeamEvent(EventSpawn, 12, "blue"))

	if c.ShouldFlush(50) {
		t.Fatal("window should not flush before 100 ticks")
	}
	if !c.ShouldFlush(100) {
		t.Fatal("window should flush at 100 ticks")
	}

	teams := []TeamSample{
		{Name: "red", Units: 3, Gold: 40, Cities: 1},
		{Name: "blue", Units: 2, Gold: 10, Cities: 1},
	}
	units := []UnitSample{{Speed: 1, Health: 1}, {Speed: 3, Health: 0.5}}
	stats, rows := c.Flush(100, teams, units)

	if stats.Shots != 2 || stats.Hits != 1 || stats.Deaths != 1 || stats.Spawns != 1 {
		t.Errorf("unexpected counts: %+v", stats)
	}
	if stats.HitRate != 0.5 {
		t.Errorf("HitRate = %v, want 0.5", stats.HitRate)
	}
	if stats.SpeedMean != 2 || stats.HealthMean != 0.75 {
		t.Errorf("SpeedMean = %v, HealthMean = %v", stats.SpeedMean, stats.HealthMean)
	}
	if math.Abs(stats.SimTimeSec-2) > 1e-9 {
		t.Errorf("SimTimeSec = %v, want 2", stats.SimTimeSec)
	}

	if len(rows) != 2 || rows[0].Team != "blue" || rows[1].Team != "red" {
		t.Fatalf("team rows not sorted by name: %+v", rows)
	}
	if rows[0].Deaths != 1 || rows[0].Spawns != 1 {
		t.Errorf("blue row = %+v", rows[0])
	}
	if rows[1].Kills != 1 || rows[1].Gold != 40 {
		t.Errorf("red row = %+v", rows[1])
	}

	next, _ := c.Flush(200, nil, nil)
	if next.Shots != 0 || next.WindowStartTick != 100 {
		t.Errorf("counters not reset: %+v", next)
	}
}

func TestCollectorConcurrentRecord(t *testing.T) {
	c := NewCollector(10, 0.02)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				c.Record(NewUnitEvent(EventDecision, 0, "red", j))
			}
		}()
	}
	wg.Wait()

	stats, _ := c.Flush(10, nil, nil)
	if stats.Decisions != 800 {
		t.Errorf("Decisions = %d, want 800", stats.Decisions)
	}
}

func TestEventTypeString(t *testing.T) {
	if EventKill.String() != "kill" {
		t.Errorf("EventKill.String() = %q", EventKill.String())
	}
	if EventType(200).String() != "unknown" {
		t.Error("out of range event type should be unknown")
	}
}
