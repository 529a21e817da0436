// Package systems provides ECS systems for the simulation.
package systems

import (
	"github.com/mlange-42/ark/ecs"
	"gonum.org/v1/gonum/spatial/r3"
)

// Neighbor holds a nearby entity with precomputed spatial data.
type Neighbor struct {
	E      ecs.Entity
	Pos    r3.Vec
	Delta  r3.Vec  // Neighbor position minus query origin
	DistSq float64 // Squared distance (avoid sqrt in hot path)
}

type gridEntry struct {
	e   ecs.Entity
	pos r3.Vec
}

// SpatialGrid buckets entities by their XZ position for radius queries.
// Positions are captured at insert time; the grid is rebuilt every physics tick.
type SpatialGrid struct {
	cellSize float64
	cols     int
	rows     int
	cells    [][]gridEntry
}

// NewSpatialGrid creates a spatial grid covering width (X) by depth (Z).
func NewSpatialGrid(width, depth, cellSize float64) *SpatialGrid {
	cols := int(width/cellSize) + 1
	rows := int(depth/cellSize) + 1

	cells := make([][]gridEntry, cols*rows)
	for i := range cells {
		cells[i] = make([]gridEntry, 0, 8) // pre-allocate small capacity
	}

	return &SpatialGrid{
		cellSize: cellSize,
		cols:     cols,
		rows:     rows,
		cells:    cells,
	}
}

// Clear removes all entities from the grid.
func (g *SpatialGrid) Clear() {
	for i := range g.cells {
		g.cells[i] = g.cells[i][:0]
	}
}

// Insert adds an entity to the grid at the given position.
func (g *SpatialGrid) Insert(e ecs.Entity, pos r3.Vec) {
	idx := g.cellIndex(pos.X, pos.Z)
	g.cells[idx] = append(g.cells[idx], gridEntry{e: e, pos: pos})
}

// QueryRadiusInto finds entities within radius of center and appends them to
// dst, stopping once dst holds limit entries. exclude is skipped.
// Reuse dst across calls to avoid allocations.
func (g *SpatialGrid) QueryRadiusInto(dst []Neighbor, center r3.Vec, radius float64, exclude ecs.Entity, limit int) []Neighbor {
	if limit <= 0 || len(dst) >= limit {
		return dst
	}

	cellRadius := int(radius/g.cellSize) + 1
	centerCol, centerRow := g.cellCoords(center.X, center.Z)
	radiusSq := radius * radius

	for dr := -cellRadius; dr <= cellRadius; dr++ {
		row := centerRow + dr
		if row < 0 || row >= g.rows {
			continue
		}
		for dc := -cellRadius; dc <= cellRadius; dc++ {
			col := centerCol + dc
			if col < 0 || col >= g.cols {
				continue
			}

			for _, entry := range g.cells[row*g.cols+col] {
				if entry.e == exclude {
					continue
				}
				delta := r3.Sub(entry.pos, center)
				distSq := r3.Norm2(delta)
				if distSq > radiusSq {
					continue
				}
				dst = append(dst, Neighbor{E: entry.e, Pos: entry.pos, Delta: delta, DistSq: distSq})
				if len(dst) >= limit {
					return dst
				}
			}
		}
	}

	return dst
}

// cellCoords returns the clamped column and row for a world position.
func (g *SpatialGrid) cellCoords(x, z float64) (col, row int) {
	col = clampInt(int(x/g.cellSize), 0, g.cols-1)
	row = clampInt(int(z/g.cellSize), 0, g.rows-1)
	return col, row
}

// cellIndex returns the flat index for a world position.
func (g *SpatialGrid) cellIndex(x, z float64) int {
	col, row := g.cellCoords(x, z)
	return row*g.cols + col
}
