// Package telemetry provides battle stats windows, bookmarks, snapshots and metrics.
package telemetry

// EventType identifies telemetry events.
type EventType uint8

const (
	EventDecision EventType = iota
	EventDecisionError
	EventCommand
	EventSpawn
	EventDeath
	EventShot
	EventHit
	EventKill

	numEventTypes
)

var eventNames = [numEventTypes]string{
	EventDecision:      "decision",
	EventDecisionError: "decision_error",
	EventCommand:       "command",
	EventSpawn:         "spawn",
	EventDeath:         "death",
	EventShot:          "shot",
	EventHit:           "hit",
	EventKill:          "kill",
}

func (t EventType) String() string {
	if t < numEventTypes {
		return eventNames[t]
	}
	return "unknown"
}

// Event represents a single telemetry event attributed to a team.
type Event struct {
	Type EventType
	Tick int32
	Team string
	Unit int // pool slot of the acting unit, -1 for player-level events
}

// NewUnitEvent creates an event raised by a unit.
func NewUnitEvent(t EventType, tick int32, team string, slot int) Event {
	return Event{Type: t, Tick: tick, Team: team, Unit: slot}
}

// NewTeamEvent creates an event raised by a player rather than a unit.
func NewTeamEvent(t EventType, tick int32, team string) Event {
	return Event{Type: t, Tick: tick, Team: team, Unit: -1}
}
