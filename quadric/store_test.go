package quadric

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/quadmesh/simplify/halfedge"
)

func buildGridMesh(t *testing.T) (*halfedge.Connectivity, []mgl64.Vec3, []mgl64.Vec3) {
	t.Helper()
	var indices []uint32
	idx := func(x, y int) uint32 { return uint32(y*3 + x) }
	for y := 0; y < 2; y++ {
		for x := 0; x < 2; x++ {
			a, b, c, d := idx(x, y), idx(x+1, y), idx(x+1, y+1), idx(x, y+1)
			indices = append(indices, a, b, c)
			indices = append(indices, a, c, d)
		}
	}
	conn, _, err := halfedge.Build(indices, 9)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	positions := make([]mgl64.Vec3, 9)
	for y := 0; y < 3; y++ {
		for x := 0; x < 3; x++ {
			positions[idx(x, y)] = mgl64.Vec3{float64(x), float64(y), 0}
		}
	}

	faceCount := len(indices) / 3
	normals := make([]mgl64.Vec3, faceCount)
	for i := range normals {
		normals[i] = mgl64.Vec3{0, 0, 1}
	}
	return conn, positions, normals
}

func TestBuildCoplanarInteriorVertexHasZeroErrorOnItsPlane(t *testing.T) {
	conn, positions, normals := buildGridMesh(t)
	store := Build(conn, positions, normals, 0)

	center := store.Get(4) // the middle vertex of the 3x3 grid
	for _, p := range positions {
		if v := center.Eval(p); v > 1e-9 {
			t.Errorf("interior vertex quadric should be zero on its own plane, got Eval=%v", v)
		}
	}
}

func TestBuildBoundaryPenaltyPullsErrorOffPlane(t *testing.T) {
	conn, positions, normals := buildGridMesh(t)
	withoutPenalty := Build(conn, positions, normals, 0)
	withPenalty := Build(conn, positions, normals, 100)

	// Corner vertex 0 sits on the boundary; moving it off the boundary
	// line (but still on the z=0 plane) should cost nothing without a
	// penalty, but something with one.
	offBoundary := mgl64.Vec3{0.5, 0.5, 0} // interior point, away from corner's boundary edges

	e0 := withoutPenalty.Get(0).Eval(offBoundary)
	e1 := withPenalty.Get(0).Eval(offBoundary)

	if e1 < e0 {
		t.Errorf("boundary penalty decreased error: without=%v with=%v", e0, e1)
	}
	if math.Abs(e1-e0) < 1e-9 {
		t.Errorf("boundary penalty had no effect: without=%v with=%v", e0, e1)
	}
}
