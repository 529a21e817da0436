package telemetry

// ServiceRecord tracks one unit's statistics from spawn to death.
type ServiceRecord struct {
	Kind            string  `json:"kind"`
	Team            string  `json:"team"`
	SpawnTick       int32   `json:"spawn_tick"`
	SurvivalTimeSec float64 `json:"survival_time_sec"`

	Decisions   int     `json:"decisions"`
	Shots       int     `json:"shots"`
	Hits        int     `json:"hits"`
	Kills       int     `json:"kills"`
	DamageDealt float64 `json:"damage_dealt"`
	DamageTaken float64 `json:"damage_taken"`
}

// LifetimeTracker keeps a service record per active unit, keyed by pool
// slot. It is not safe for concurrent use; the simulation only touches it
// under its world write lock.
type LifetimeTracker struct {
	records map[int]*ServiceRecord
}

// NewLifetimeTracker creates a new lifetime tracker.
func NewLifetimeTracker() *LifetimeTracker {
	return &LifetimeTracker{records: make(map[int]*ServiceRecord)}
}

// Register starts a fresh record for a unit, replacing any stale one left
// in the same slot.
func (lt *LifetimeTracker) Register(slot int, kind, team string, spawnTick int32) {
	lt.records[slot] = &ServiceRecord{Kind: kind, Team: team, SpawnTick: spawnTick}
}

// Get returns the record for a slot, or nil.
func (lt *LifetimeTracker) Get(slot int) *ServiceRecord {
	return lt.records[slot]
}

// Remove drops a slot's record, stamping its survival time, and returns it.
func (lt *LifetimeTracker) Remove(slot int, currentTick int32, dt float64) *ServiceRecord {
	r := lt.records[slot]
	if r == nil {
		return nil
	}
	delete(lt.records, slot)
	r.SurvivalTimeSec = float64(currentTick-r.SpawnTick) * dt
	return r
}

// RecordDecision counts a completed decision tick.
func (lt *LifetimeTracker) RecordDecision(slot int) {
	if r := lt.records[slot]; r != nil {
		r.Decisions++
	}
}

// RecordShot counts a shot and, when it landed, the damage it did.
func (lt *LifetimeTracker) RecordShot(shooter, target int, hit bool, damage float64, killed bool) {
	if r := lt.records[shooter]; r != nil {
		r.Shots++
		if hit {
			r.Hits++
			r.DamageDealt += damage
		}
		if killed {
			r.Kills++
		}
	}
	if !hit {
		return
	}
	if r := lt.records[target]; r != nil {
		r.DamageTaken += damage
	}
}

// All returns every live record. The map is owned by the tracker.
func (lt *LifetimeTracker) All() map[int]*ServiceRecord {
	return lt.records
}

// Count returns the number of tracked units.
func (lt *LifetimeTracker) Count() int {
	return len(lt.records)
}
