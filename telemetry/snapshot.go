package telemetry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// SnapshotVersion is incremented when the format changes.
const SnapshotVersion = 1

// Snapshot holds the battle state at one tick.
type Snapshot struct {
	Version int    `json:"version"`
	Seed    uint64 `json:"seed"`

	WorldWidth float64 `json:"world_width"`
	WorldDepth float64 `json:"world_depth"`

	Tick int32 `json:"tick"`

	Teams []TeamState `json:"teams"`
	Units []UnitState `json:"units"`

	Bookmark *Bookmark `json:"bookmark,omitempty"`
}

// TeamState holds one team's economy and holdings.
type TeamState struct {
	ID     string   `json:"id"`
	Name   string   `json:"name"`
	Gold   int      `json:"gold"`
	Cities []string `json:"cities"`
	Units  int      `json:"units"`
}

// UnitState holds one active unit's state.
type UnitState struct {
	Slot int    `json:"slot"`
	Kind string `json:"kind"`
	Team string `json:"team"`

	X  float64 `json:"x"`
	Y  float64 `json:"y"`
	Z  float64 `json:"z"`
	VX float64 `json:"vx"`
	VY float64 `json:"vy"`
	VZ float64 `json:"vz"`

	Health      float64     `json:"health"`
	Destination *[3]float64 `json:"destination,omitempty"`

	Service *ServiceRecord `json:"service,omitempty"`
}

// SaveSnapshot writes a snapshot to dir and returns its path.
func SaveSnapshot(snapshot *Snapshot, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create snapshot dir: %w", err)
	}

	name := fmt.Sprintf("snapshot_%d", snapshot.Tick)
	if snapshot.Bookmark != nil {
		sanitized := strings.ReplaceAll(string(snapshot.Bookmark.Type), " ", "_")
		name = fmt.Sprintf("snapshot_%d_%s", snapshot.Tick, sanitized)
	}
	path := filepath.Join(dir, name+".json")

	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal snapshot: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("write snapshot: %w", err)
	}
	return path, nil
}

// LoadSnapshot reads a snapshot from disk.
func LoadSnapshot(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}

	var snapshot Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	if snapshot.Version != SnapshotVersion {
		return nil, fmt.Errorf("snapshot version %d, want %d", snapshot.Version, SnapshotVersion)
	}
	return &snapshot, nil
}
