package systems

import (
	"math"

	"github.com/ojrac/opensimplex-go"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/smashbloc/config"
)

// terrainCellSize is the spacing of precomputed height samples in world units.
const terrainCellSize = 4.0

// noiseOctaves layered into the height field.
const noiseOctaves = 3

// Ground answers downward distance queries against the terrain.
type Ground interface {
	Height(x, z float64) float64
}

// TerrainSystem holds a precomputed height field over the world.
type TerrainSystem struct {
	heights    []float64
	gridWidth  int
	gridDepth  int
	cellSize   float64
	baseHeight float64
}

// NewFlatTerrain returns terrain with a constant ground height.
func NewFlatTerrain(height float64) *TerrainSystem {
	return &TerrainSystem{baseHeight: height, cellSize: terrainCellSize}
}

// NewTerrainSystem builds the terrain described by cfg over a width x depth world.
func NewTerrainSystem(cfg config.TerrainConfig, width, depth float64) *TerrainSystem {
	if cfg.Kind != "noise" || cfg.Amplitude == 0 {
		return NewFlatTerrain(cfg.BaseHeight)
	}

	gridWidth := int(width/terrainCellSize) + 2
	gridDepth := int(depth/terrainCellSize) + 2
	t := &TerrainSystem{
		heights:    make([]float64, gridWidth*gridDepth),
		gridWidth:  gridWidth,
		gridDepth:  gridDepth,
		cellSize:   terrainCellSize,
		baseHeight: cfg.BaseHeight,
	}
	t.generate(opensimplex.NewNormalized(cfg.Seed), cfg.Amplitude, cfg.Scale)
	return t
}

// generate fills the height grid with fractal simplex noise in [0, amplitude].
func (t *TerrainSystem) generate(noise opensimplex.Noise, amplitude, scale float64) {
	for gz := 0; gz < t.gridDepth; gz++ {
		for gx := 0; gx < t.gridWidth; gx++ {
			x := float64(gx) * t.cellSize * scale
			z := float64(gz) * t.cellSize * scale

			var sum, norm float64
			freq, amp := 1.0, 1.0
			for range noiseOctaves {
				sum += amp * noise.Eval2(x*freq, z*freq)
				norm += amp
				freq *= 2
				amp *= 0.5
			}
			t.heights[gz*t.gridWidth+gx] = t.baseHeight + amplitude*sum/norm
		}
	}
}

// Height returns the ground height at (x, z), bilinearly interpolated.
// Positions outside the world clamp to the nearest edge.
func (t *TerrainSystem) Height(x, z float64) float64 {
	if len(t.heights) == 0 {
		return t.baseHeight
	}

	fx := clampFloat(x/t.cellSize, 0, float64(t.gridWidth-1))
	fz := clampFloat(z/t.cellSize, 0, float64(t.gridDepth-1))
	x0 := int(math.Floor(fx))
	z0 := int(math.Floor(fz))
	x1 := min(x0+1, t.gridWidth-1)
	z1 := min(z0+1, t.gridDepth-1)
	tx := fx - float64(x0)
	tz := fz - float64(z0)

	h00 := t.heights[z0*t.gridWidth+x0]
	h10 := t.heights[z0*t.gridWidth+x1]
	h01 := t.heights[z1*t.gridWidth+x0]
	h11 := t.heights[z1*t.gridWidth+x1]

	top := h00 + (h10-h00)*tx
	bottom := h01 + (h11-h01)*tx
	return top + (bottom-top)*tz
}

// DistanceBelow casts straight down from pos and returns the distance to the ground.
func DistanceBelow(g Ground, pos r3.Vec) float64 {
	return pos.Y - g.Height(pos.X, pos.Z)
}
