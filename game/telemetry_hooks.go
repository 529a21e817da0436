package game

import (
	"cmp"
	"slices"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/smashbloc/telemetry"
)

// teamSamples reads every team's treasury and holdings. It must be called
// without mu held.
func (s *Simulation) teamSamples() []telemetry.TeamSample {
	samples := make([]telemetry.TeamSample, 0, len(s.players))
	for _, p := range s.players {
		t := p.Team()
		samples = append(samples, telemetry.TeamSample{
			Name:   t.Name,
			Units:  t.ArmySize(),
			Gold:   p.Gold(),
			Cities: len(t.Cities()),
		})
	}
	return samples
}

// flushTelemetryLocked closes the stats window and handles bookmarks. The
// caller must hold mu.
func (s *Simulation) flushTelemetryLocked(teams []telemetry.TeamSample) {
	var units []telemetry.UnitSample
	query := s.sampleFilter.Query()
	for query.Next() {
		vel, combat, _, _ := query.Get()
		units = append(units, telemetry.UnitSample{
			Speed:  r3.Norm(vel.Vec),
			Health: combat.HealthFraction(),
		})
	}

	stats, rows := s.collector.Flush(s.tick, teams, units)
	perfStats := s.perf.Stats()

	if s.opts.LogStats {
		stats.LogStats(s.logger)
		perfStats.LogStats(s.logger)
	}
	if err := s.output.WriteTelemetry(stats, rows); err != nil {
		s.logger.Error("failed to write telemetry", "error", err)
	}
	if err := s.output.WritePerf(perfStats, stats.WindowEndTick); err != nil {
		s.logger.Error("failed to write perf", "error", err)
	}

	for _, bm := range s.bookmarks.Check(stats, rows) {
		if s.opts.LogStats {
			bm.LogBookmark(s.logger)
		}
		if err := s.output.WriteBookmark(bm); err != nil {
			s.logger.Error("failed to write bookmark", "error", err)
		}
		if s.opts.SnapshotDir != "" {
			s.saveSnapshotLocked(teams, &bm)
		}
	}
}

func (s *Simulation) saveSnapshotLocked(teams []telemetry.TeamSample, bm *telemetry.Bookmark) {
	snap := s.snapshotLocked(teams, bm)
	path, err := telemetry.SaveSnapshot(snap, s.opts.SnapshotDir)
	if err != nil {
		s.logger.Error("failed to save snapshot", "error", err)
		return
	}
	s.logger.Info("snapshot saved", "path", path, "tick", snap.Tick)
}

// CaptureSnapshot returns the current battle state, tagged with bm when
// non-nil.
func (s *Simulation) CaptureSnapshot(bm *telemetry.Bookmark) *telemetry.Snapshot {
	teams := s.teamSamples()
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked(teams, bm)
}

func (s *Simulation) snapshotLocked(teams []telemetry.TeamSample, bm *telemetry.Bookmark) *telemetry.Snapshot {
	snap := &telemetry.Snapshot{
		Version:    telemetry.SnapshotVersion,
		Seed:       s.opts.Seed,
		WorldWidth: s.cfg.World.Width,
		WorldDepth: s.cfg.World.Depth,
		Tick:       s.tick,
		Bookmark:   bm,
	}

	for i, t := range s.teams {
		ts := telemetry.TeamState{ID: t.ID().String(), Name: t.Name}
		if i < len(teams) {
			ts.Gold = teams[i].Gold
			ts.Units = teams[i].Units
		}
		for _, c := range t.Cities() {
			ts.Cities = append(ts.Cities, c.Name)
		}
		snap.Teams = append(snap.Teams, ts)
	}

	for e, b := range s.brains {
		pos := s.posMap.Get(e)
		vel := s.velMap.Get(e)
		steer := s.steerMap.Get(e)
		us := telemetry.UnitState{
			Slot:   b.id,
			Kind:   b.arch.Name,
			Team:   b.team.Name,
			X:      pos.X,
			Y:      pos.Y,
			Z:      pos.Z,
			VX:     vel.X,
			VY:     vel.Y,
			VZ:     vel.Z,
			Health: s.combatMap.Get(e).Health,
		}
		if rec := s.lifetime.Get(b.id); rec != nil {
			service := *rec
			us.Service = &service
		}
		if steer.HasDestination {
			us.Destination = &[3]float64{steer.Destination.X, steer.Destination.Y, steer.Destination.Z}
		}
		snap.Units = append(snap.Units, us)
	}
	slices.SortFunc(snap.Units, func(a, b telemetry.UnitState) int { return cmp.Compare(a.Slot, b.Slot) })
	return snap
}
