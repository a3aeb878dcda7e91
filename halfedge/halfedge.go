// Package halfedge builds and maintains half-edge connectivity for an
// indexed triangle mesh.
//
// A half-edge is a directed edge carrying a reference to its twin (the
// oppositely directed half-edge sharing the same undirected edge), its
// next and previous half-edges around a face, and the face it bounds.
// Boundary edges get a synthetic, face-less twin so every half-edge has
// one — this lets the rest of the engine treat interior and boundary
// edges uniformly except where the face is actually read.
package halfedge

import "fmt"

// NoFace marks a half-edge with no adjoining face: the synthetic
// boundary twins introduced to close holes in the mesh.
const NoFace int32 = -1

// noEdge is the sentinel stored in VertexEdge for a vertex with no
// incident half-edge (should not occur for any vertex referenced by a
// triangle, but guards degenerate callers).
const noEdge = ^uint32(0)

// HalfEdge is a directed edge. Twin, Next and Prev are indices into the
// owning Connectivity's HalfEdges slice. Face is NoFace for synthetic
// boundary half-edges.
type HalfEdge struct {
	Origin uint32
	Twin   uint32
	Next   uint32
	Prev   uint32
	Face   int32
}

// Connectivity is the half-edge graph for one mesh. Every real triangle
// contributes exactly three half-edges (indices 0..3*TriangleCount-1,
// grouped by face); synthetic boundary half-edges are appended after
// them.
type Connectivity struct {
	HalfEdges []HalfEdge

	// VertexEdge maps a vertex index to one half-edge index that
	// originates there (arbitrary but stable; used to walk the vertex's
	// incident edges by repeated Twin+Next rotation).
	VertexEdge []uint32

	realHalfEdgeCount int
}

// Stats summarizes a built Connectivity, primarily for diagnostics and
// the manifold-closure end-to-end test (boundary loop count must be
// zero for a closed mesh).
type Stats struct {
	VertexCount       uint32
	FaceCount         uint32
	BoundaryEdgeCount uint32
	BoundaryLoopCount uint32
}

// NonManifoldEdgeError reports an undirected edge claimed by more than
// two oriented half-edges (i.e. more than two triangles sharing that
// edge) — a fatal, non-recoverable build-time condition.
type NonManifoldEdgeError struct {
	A, B uint32 // the undirected edge's endpoints
	Uses int    // number of half-edges that claimed it
}

func (e *NonManifoldEdgeError) Error() string {
	return fmt.Sprintf("halfedge: edge (%d,%d) used by %d half-edges, mesh is non-manifold", e.A, e.B, e.Uses)
}

type edgeKey struct{ lo, hi uint32 }

func makeEdgeKey(a, b uint32) edgeKey {
	if a < b {
		return edgeKey{a, b}
	}
	return edgeKey{b, a}
}

type claim struct {
	first uint32
	count int
}

// Build constructs half-edge connectivity for a triangle soup given as
// flattened vertex indices (three per triangle, CCW as seen from
// outside). vertexCount is the number of live vertices the indices may
// reference.
//
// Build fails with *NonManifoldEdgeError if any undirected edge is
// claimed by more than two half-edges.
func Build(indices []uint32, vertexCount uint32) (*Connectivity, Stats, error) {
	triangleCount := len(indices) / 3

	c := &Connectivity{
		HalfEdges:         make([]HalfEdge, 3*triangleCount, 3*triangleCount+triangleCount),
		VertexEdge:        make([]uint32, vertexCount),
		realHalfEdgeCount: 3 * triangleCount,
	}
	for i := range c.VertexEdge {
		c.VertexEdge[i] = noEdge
	}

	claims := make(map[edgeKey]*claim, 3*triangleCount)

	for f := 0; f < triangleCount; f++ {
		base := uint32(3 * f)
		verts := [3]uint32{indices[3*f], indices[3*f+1], indices[3*f+2]}

		for k := 0; k < 3; k++ {
			he := base + uint32(k)
			c.HalfEdges[he] = HalfEdge{
				Origin: verts[k],
				Next:   base + uint32((k+1)%3),
				Prev:   base + uint32((k+2)%3),
				Face:   int32(f),
			}
			c.VertexEdge[verts[k]] = he
		}

		for k := 0; k < 3; k++ {
			u, v := verts[k], verts[(k+1)%3]
			he := base + uint32(k)
			key := makeEdgeKey(u, v)
			cl, ok := claims[key]
			if !ok {
				claims[key] = &claim{first: he, count: 1}
				continue
			}
			cl.count++
			if cl.count == 2 {
				c.HalfEdges[cl.first].Twin = he
				c.HalfEdges[he].Twin = cl.first
			}
			if cl.count > 2 {
				return nil, Stats{}, &NonManifoldEdgeError{A: key.lo, B: key.hi, Uses: cl.count}
			}
		}
	}

	boundaryCount, loopCount := c.closeBoundary(claims)

	stats := Stats{
		VertexCount:       vertexCount,
		FaceCount:         uint32(triangleCount),
		BoundaryEdgeCount: boundaryCount,
		BoundaryLoopCount: loopCount,
	}
	return c, stats, nil
}

// closeBoundary appends one synthetic, face-less half-edge per
// still-twinless real half-edge, then stitches the synthetic twins into
// closed cycles so every real half-edge ends up with a twin and every
// hole becomes a closed loop of synthetic half-edges.
func (c *Connectivity) closeBoundary(claims map[edgeKey]*claim) (boundaryCount, loopCount uint32) {
	var twinless []uint32
	twinlessSet := make(map[uint32]bool)
	for _, cl := range claims {
		if cl.count == 1 {
			twinless = append(twinless, cl.first)
			twinlessSet[cl.first] = true
		}
	}
	if len(twinless) == 0 {
		return 0, 0
	}

	// Determine, for each twinless real half-edge R (u->v), the next
	// twinless half-edge found by rotating around v: walk the star of
	// faces at v (Next then Twin) until landing on another half-edge
	// that starts at v and has no real twin. This must run before any
	// synthetic twins are assigned, since it relies on Twin being unset
	// (zero value is harmless here — unset fields belong only to
	// twinless half-edges, which this loop never dereferences through
	// Twin).
	nextTwinless := make(map[uint32]uint32, len(twinless))
	for _, r := range twinless {
		cur := r
		for {
			s := c.HalfEdges[cur].Next
			if twinlessSet[s] {
				nextTwinless[r] = s
				break
			}
			cur = c.HalfEdges[s].Twin
		}
	}

	syntheticOf := make(map[uint32]uint32, len(twinless))
	base := uint32(len(c.HalfEdges))
	c.HalfEdges = append(c.HalfEdges, make([]HalfEdge, len(twinless))...)

	for i, he := range twinless {
		synth := base + uint32(i)
		dest := c.HalfEdges[c.HalfEdges[he].Next].Origin
		c.HalfEdges[synth] = HalfEdge{
			Origin: dest,
			Twin:   he,
			Face:   NoFace,
		}
		c.HalfEdges[he].Twin = synth
		syntheticOf[he] = synth
	}

	for _, r := range twinless {
		synth := syntheticOf[r]
		nextSynth := syntheticOf[nextTwinless[r]]
		// Next(X) must originate where X ends, for Twin+Next vertex
		// rotation to stay on one vertex. nextSynth's twin is
		// nextTwinless[r], which originates at the same vertex r ends at
		// — the vertex synth itself originates at — so it is nextSynth's
		// Next that must point to synth, not synth's Next to nextSynth.
		c.HalfEdges[nextSynth].Next = synth
		c.HalfEdges[synth].Prev = nextSynth
	}

	loopCount = c.countBoundaryLoops(syntheticOf)
	return uint32(len(twinless)), loopCount
}

// countBoundaryLoops walks the synthetic half-edges via Next pointers
// and counts the number of disjoint cycles.
func (c *Connectivity) countBoundaryLoops(syntheticOf map[uint32]uint32) uint32 {
	seen := make(map[uint32]bool, len(syntheticOf))
	var loops uint32
	for _, synth := range syntheticOf {
		if seen[synth] {
			continue
		}
		loops++
		cur := synth
		for !seen[cur] {
			seen[cur] = true
			cur = c.HalfEdges[cur].Next
		}
	}
	return loops
}

// IsBoundary reports whether half-edge he is a synthetic, face-less
// half-edge.
func (c *Connectivity) IsBoundary(he uint32) bool {
	return c.HalfEdges[he].Face == NoFace
}

// Degree returns the number of half-edges originating at vertex v, by
// rotating around it via twin+next.
func (c *Connectivity) Degree(v uint32) int {
	start := c.VertexEdge[v]
	if start == noEdge {
		return 0
	}
	count := 0
	cur := start
	for {
		count++
		cur = c.HalfEdges[c.HalfEdges[cur].Twin].Next
		if cur == start {
			break
		}
	}
	return count
}

// ForEachOutgoing calls fn once for every half-edge originating at v, in
// rotational order. fn returning false stops the iteration early.
func (c *Connectivity) ForEachOutgoing(v uint32, fn func(he uint32) bool) {
	start := c.VertexEdge[v]
	if start == noEdge {
		return
	}
	cur := start
	for {
		if !fn(cur) {
			return
		}
		next := c.HalfEdges[c.HalfEdges[cur].Twin].Next
		if next == start {
			return
		}
		cur = next
	}
}

// RealHalfEdgeCount returns the number of real (face-carrying)
// half-edges, i.e. 3*triangleCount as of the last Build.
func (c *Connectivity) RealHalfEdgeCount() int {
	return c.realHalfEdgeCount
}
