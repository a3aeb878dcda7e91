package halfedge

import "testing"

func assertInvariants(t *testing.T, c *Connectivity) {
	t.Helper()
	for i, he := range c.HalfEdges {
		e := uint32(i)
		if c.HalfEdges[he.Twin].Twin != e {
			t.Errorf("half-edge %d: twin.twin = %d, want %d", e, c.HalfEdges[he.Twin].Twin, e)
		}
		if c.HalfEdges[he.Next].Prev != e {
			t.Errorf("half-edge %d: next.prev = %d, want %d", e, c.HalfEdges[he.Next].Prev, e)
		}
		if c.HalfEdges[he.Prev].Next != e {
			t.Errorf("half-edge %d: prev.next = %d, want %d", e, c.HalfEdges[he.Prev].Next, e)
		}
		if he.Face != NoFace {
			a, b, cc := he.Origin, c.HalfEdges[he.Next].Origin, c.HalfEdges[he.Prev].Origin
			if a == b || b == cc || a == cc {
				t.Errorf("face %d: degenerate vertex set (%d,%d,%d)", he.Face, a, b, cc)
			}
		}
	}
}

func TestBuildTetrahedron(t *testing.T) {
	indices := []uint32{
		0, 1, 2,
		0, 3, 1,
		0, 2, 3,
		1, 3, 2,
	}
	c, stats, err := Build(indices, 4)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	assertInvariants(t, c)

	if stats.BoundaryLoopCount != 0 {
		t.Errorf("closed tetrahedron should have 0 boundary loops, got %d", stats.BoundaryLoopCount)
	}
	if stats.BoundaryEdgeCount != 0 {
		t.Errorf("closed tetrahedron should have 0 boundary edges, got %d", stats.BoundaryEdgeCount)
	}
	if stats.FaceCount != 4 {
		t.Errorf("FaceCount = %d, want 4", stats.FaceCount)
	}
}

func TestBuildUnitSquare(t *testing.T) {
	// Two triangles sharing the diagonal 0-2; whole thing is one
	// boundary loop of length 4.
	indices := []uint32{
		0, 1, 2,
		0, 2, 3,
	}
	c, stats, err := Build(indices, 4)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	assertInvariants(t, c)

	if stats.BoundaryLoopCount != 1 {
		t.Errorf("square should have exactly 1 boundary loop, got %d", stats.BoundaryLoopCount)
	}
	if stats.BoundaryEdgeCount != 4 {
		t.Errorf("square should have 4 boundary edges, got %d", stats.BoundaryEdgeCount)
	}
}

func TestBuildSubdividedPlane(t *testing.T) {
	// 3x3 grid of vertices, 8 triangles, one boundary loop around the
	// 3x3 perimeter (8 boundary edges).
	var indices []uint32
	idx := func(x, y int) uint32 { return uint32(y*3 + x) }
	for y := 0; y < 2; y++ {
		for x := 0; x < 2; x++ {
			a, b, c, d := idx(x, y), idx(x+1, y), idx(x+1, y+1), idx(x, y+1)
			indices = append(indices, a, b, c)
			indices = append(indices, a, c, d)
		}
	}
	c, stats, err := Build(indices, 9)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	assertInvariants(t, c)

	if stats.BoundaryLoopCount != 1 {
		t.Errorf("3x3 grid should have exactly 1 boundary loop, got %d", stats.BoundaryLoopCount)
	}
	if stats.BoundaryEdgeCount != 8 {
		t.Errorf("3x3 grid perimeter should have 8 boundary edges, got %d", stats.BoundaryEdgeCount)
	}
}

func TestBuildTwoDisjointTetrahedra(t *testing.T) {
	indices := []uint32{
		0, 1, 2, 0, 3, 1, 0, 2, 3, 1, 3, 2,
		4, 5, 6, 4, 7, 5, 4, 6, 7, 5, 7, 6,
	}
	c, stats, err := Build(indices, 8)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	assertInvariants(t, c)
	if stats.BoundaryLoopCount != 0 {
		t.Errorf("two closed tetrahedra should have 0 boundary loops, got %d", stats.BoundaryLoopCount)
	}
}

func TestBuildNonManifoldEdge(t *testing.T) {
	// Three triangles sharing the same edge (0,1) — fan of 3 around one edge.
	indices := []uint32{
		0, 1, 2,
		1, 0, 3,
		0, 1, 4,
	}
	_, _, err := Build(indices, 5)
	if err == nil {
		t.Fatal("expected NonManifoldEdgeError, got nil")
	}
	var nme *NonManifoldEdgeError
	if _, ok := err.(*NonManifoldEdgeError); !ok {
		t.Fatalf("expected *NonManifoldEdgeError, got %T (%v)", err, err)
	}
	_ = nme
}

func TestDegreeAndForEachOutgoing(t *testing.T) {
	indices := []uint32{
		0, 1, 2,
		0, 3, 1,
		0, 2, 3,
		1, 3, 2,
	}
	c, _, err := Build(indices, 4)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	for v := uint32(0); v < 4; v++ {
		if d := c.Degree(v); d != 3 {
			t.Errorf("vertex %d: degree = %d, want 3 (tetrahedron)", v, d)
		}
	}

	var seen int
	c.ForEachOutgoing(0, func(he uint32) bool {
		seen++
		if c.HalfEdges[he].Origin != 0 {
			t.Errorf("half-edge %d does not originate at vertex 0", he)
		}
		return true
	})
	if seen != 3 {
		t.Errorf("ForEachOutgoing visited %d edges, want 3", seen)
	}
}

func TestDegreeAndForEachOutgoingBoundaryVertex(t *testing.T) {
	// Unit square, same as TestBuildUnitSquare: vertex 0 sits on the
	// boundary, incident to two real half-edges and one synthetic one.
	indices := []uint32{
		0, 1, 2,
		0, 2, 3,
	}
	c, _, err := Build(indices, 4)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	assertInvariants(t, c)

	want := make(map[uint32]bool)
	for i, he := range c.HalfEdges {
		if he.Origin == 0 {
			want[uint32(i)] = true
		}
	}
	if len(want) != 3 {
		t.Fatalf("expected exactly 3 half-edges to originate at vertex 0, found %d", len(want))
	}

	if d := c.Degree(0); d != len(want) {
		t.Errorf("Degree(0) = %d, want %d", d, len(want))
	}

	got := make(map[uint32]bool)
	c.ForEachOutgoing(0, func(he uint32) bool {
		if !want[he] {
			t.Errorf("ForEachOutgoing visited half-edge %d, which does not originate at vertex 0", he)
		}
		got[he] = true
		return true
	})
	if len(got) != len(want) {
		t.Errorf("ForEachOutgoing visited %d half-edges, want %d", len(got), len(want))
	}
}
