package simplify

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// weldCellKey identifies one cubical cell of a weldGrid.
type weldCellKey struct {
	X, Y, Z int
}

// weldGrid is a uniform spatial hash over cubical cells sized to the weld
// tolerance, used by the mesh normalizer's optional near-coincident
// vertex pass. Adapted from the broad-phase collision grid: cell hashing
// is unchanged, but Insert/nearest answer "is there already a canonical
// vertex within epsilon" instead of "which bodies might overlap".
type weldGrid struct {
	cellSize float64
	cells    map[weldCellKey][]uint32
}

func newWeldGrid(cellSize float64) *weldGrid {
	return &weldGrid{
		cellSize: cellSize,
		cells:    make(map[weldCellKey][]uint32),
	}
}

func (g *weldGrid) worldToCell(p mgl64.Vec3) weldCellKey {
	return weldCellKey{
		X: int(math.Floor(p.X() / g.cellSize)),
		Y: int(math.Floor(p.Y() / g.cellSize)),
		Z: int(math.Floor(p.Z() / g.cellSize)),
	}
}

// insert registers vertex index idx, already established as a canonical
// representative, at position p.
func (g *weldGrid) insert(idx uint32, p mgl64.Vec3) {
	key := g.worldToCell(p)
	g.cells[key] = append(g.cells[key], idx)
}

// nearest looks for a previously inserted canonical vertex within
// epsilon of p, scanning the 27 cells centered on p's own cell (any
// vertex within epsilon of p must lie in one of them, since epsilon
// equals the cell size).
func (g *weldGrid) nearest(positions []mgl64.Vec3, p mgl64.Vec3, epsilon float64) (uint32, bool) {
	epsSq := epsilon * epsilon
	center := g.worldToCell(p)

	for dx := -1; dx <= 1; dx++ {
		for dy := -1; dy <= 1; dy++ {
			for dz := -1; dz <= 1; dz++ {
				key := weldCellKey{center.X + dx, center.Y + dy, center.Z + dz}
				for _, idx := range g.cells[key] {
					if positions[idx].Sub(p).LenSqr() <= epsSq {
						return idx, true
					}
				}
			}
		}
	}
	return 0, false
}
