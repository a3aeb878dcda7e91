package simplify

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/go-gl/mathgl/mgl64"

	"github.com/quadmesh/simplify/collapse"
	"github.com/quadmesh/simplify/halfedge"
	"github.com/quadmesh/simplify/order"
	"github.com/quadmesh/simplify/quadric"
)

// failureKind enumerates the four locally-caught, recoverable collapse
// rejections (spec 4.F/7). The zero value means success.
type failureKind int

const (
	failureNone failureKind = iota
	failureTooManyNeighbours
	failureNotEnoughNeighbours
	failureSingularFace
	failureFaceFlip
	failureDetachedVertex
)

// coincideEpsilonSq bounds the singular-face check: newPos is rejected
// as coincident with an opposite vertex when the squared distance
// between them falls below this.
const coincideEpsilonSq = 1e-18

// state holds every array the core owns exclusively while one Simplify
// call is in flight (spec 3, "Ownership").
type state struct {
	positions   []mgl64.Vec3
	faceNormals []mgl64.Vec3
	vertAlive   []bool
	faceAlive   []bool

	conn  *halfedge.Connectivity
	store *quadric.Store
	queue *order.Queue

	stats Stats
}

// Simplify is the core's single entry point (spec 6): it repeatedly
// collapses the globally cheapest valid edge of mesh until no edge can
// be collapsed below errorBudget, then writes the simplified mesh back
// into mesh in place.
func Simplify(mesh MeshHandle, errorBudget float32, boundaryPenalty float32, cancel *CancelToken, opts ...Option) (SimplifyResult, error) {
	cfg := options{}
	for _, opt := range opts {
		opt(&cfg)
	}

	norm, err := normalize(mesh, cfg.weldEpsilon)
	if err != nil {
		return SimplifyResult{}, err
	}

	conn, _, err := halfedge.Build(norm.indices, uint32(len(norm.positions)))
	if err != nil {
		return SimplifyResult{}, fmt.Errorf("%w: %v", ErrNonManifoldEdge, err)
	}

	store := quadric.Build(conn, norm.positions, norm.faceNormals, float64(boundaryPenalty))

	st := &state{
		positions:   norm.positions,
		faceNormals: norm.faceNormals,
		vertAlive:   allTrue(len(norm.positions)),
		faceAlive:   allTrue(len(norm.indices) / 3),
		conn:        conn,
		store:       store,
		queue:       order.New(len(conn.HalfEdges)),
	}
	st.seedQueue()

	if err := st.run(errorBudget, cancel, cfg.stepBudget); err != nil {
		st.export(mesh)
		return SimplifyResult{}, err
	}

	st.export(mesh)

	return SimplifyResult{
		CollapsedCount: st.stats.CollapsesSucceeded,
		Stats:          st.stats,
	}, nil
}

func allTrue(n int) []bool {
	s := make([]bool, n)
	for i := range s {
		s[i] = true
	}
	return s
}

// isCanonical reports whether he is the single representative half-edge
// chosen for its undirected edge: the real (face-carrying) side, and
// for interior edges (both sides real) the lower-indexed of the pair.
// Exactly one half-edge per undirected edge is canonical, which is what
// seedQueue inserts and the driver operates on.
func isCanonical(c *halfedge.Connectivity, he uint32) bool {
	if c.HalfEdges[he].Face == halfedge.NoFace {
		return false
	}
	twin := c.HalfEdges[he].Twin
	if c.HalfEdges[twin].Face == halfedge.NoFace {
		return true
	}
	return he < twin
}

func canonicalOf(c *halfedge.Connectivity, he uint32) uint32 {
	if isCanonical(c, he) {
		return he
	}
	return c.HalfEdges[he].Twin
}

func (st *state) seedQueue() {
	for he := 0; he < len(st.conn.HalfEdges); he++ {
		e := uint32(he)
		if !isCanonical(st.conn, e) {
			continue
		}
		st.queue.Insert(e, st.evaluateEdge(e))
	}
}

func (st *state) evaluateEdge(canon uint32) float32 {
	u := st.conn.HalfEdges[canon].Origin
	v := st.conn.HalfEdges[st.conn.HalfEdges[canon].Twin].Origin
	res := collapse.Evaluate(st.store.Get(u), st.store.Get(v), st.positions[u], st.positions[v])
	return res.Err
}

// run is the collapse driver's main loop (spec 4.F). cursor walks the
// OrderedErrors list in ascending order; a successful collapse restarts
// the walk at the new global minimum (rekeying may have introduced a
// cheaper edge), a failed one advances the cursor without touching the
// queue. Reaching the tail without any success closes out a pass; two
// consecutive passes with no successful collapse terminate the loop, as
// do an empty queue, a cancellation, or the cursor's error exceeding
// budget (every later node in ascending order is at least as expensive,
// so nothing further can possibly succeed under budget either).
func (st *state) run(budget float32, cancel *CancelToken, stepBudget int) error {
	cursor, ok := st.queue.Head()
	consecutiveEmptyPasses := 0
	progressedThisPass := false
	steps := 0

	for ok {
		if cancel.isCancelled() {
			return ErrCancelled
		}
		if stepBudget > 0 && steps >= stepBudget {
			return nil
		}
		if st.queue.Err(cursor) > budget {
			return nil
		}

		steps++
		st.stats.CollapsesAttempted++
		outcome := st.collapseEdge(cursor)

		if outcome == failureNone {
			st.stats.CollapsesSucceeded++
			progressedThisPass = true
			cursor, ok = st.queue.Head()
			continue
		}
		st.recordFailure(outcome)

		next, hasNext := st.queue.After(cursor)
		if hasNext {
			cursor = next
			continue
		}

		if progressedThisPass {
			consecutiveEmptyPasses = 0
		} else {
			consecutiveEmptyPasses++
			if consecutiveEmptyPasses >= 2 {
				return nil
			}
		}
		progressedThisPass = false
		cursor, ok = st.queue.Head()
	}
	return nil
}

func (st *state) recordFailure(kind failureKind) {
	switch kind {
	case failureTooManyNeighbours, failureNotEnoughNeighbours:
		st.stats.FailuresTooManyNeighbours++
	case failureSingularFace:
		st.stats.FailuresSingularFace++
	case failureFaceFlip:
		st.stats.FailuresFaceFlip++
	case failureDetachedVertex:
		st.stats.FailuresDetachedVertex++
	}
}

// collapseEdge is collapseEdge(e) from spec 4.F: four ordered validity
// checks, any of which may reject without having mutated anything, then
// a single atomic commit. Checks are structured as pure reads over the
// current connectivity/positions/quadrics so a rejection trivially
// leaves every shared structure untouched (spec 7) — there is nothing to
// restore because nothing was written.
func (st *state) collapseEdge(he uint32) failureKind {
	c := st.conn
	a := c.HalfEdges[he].Origin
	heT := c.HalfEdges[he].Twin
	b := c.HalfEdges[heT].Origin

	faceA := c.HalfEdges[he].Face
	faceBPresent := !c.IsBoundary(heT)
	faceB := int32(halfedge.NoFace)
	if faceBPresent {
		faceB = c.HalfEdges[heT].Face
	}

	// 1. Common-neighbour check.
	wantCommon := 1
	if faceBPresent {
		wantCommon = 2
	}
	if got := countCommonNeighbours(c, a, b); got != wantCommon {
		if got < wantCommon {
			return failureNotEnoughNeighbours
		}
		return failureTooManyNeighbours
	}

	heQR := c.HalfEdges[he].Next
	hePR := c.HalfEdges[he].Prev
	oppA := c.HalfEdges[hePR].Origin

	var heTNext, heTPrev, oppB uint32
	if faceBPresent {
		heTNext = c.HalfEdges[heT].Next
		heTPrev = c.HalfEdges[heT].Prev
		oppB = c.HalfEdges[heTPrev].Origin

		// Completes the common-neighbour check: if oppA and oppB also close
		// a face with a and another with b (an isolated tetrahedron), the
		// collapse would fold those two faces onto each other.
		fa1 := c.HalfEdges[c.HalfEdges[hePR].Twin].Face
		fa2 := c.HalfEdges[c.HalfEdges[heTNext].Twin].Face
		fb1 := c.HalfEdges[c.HalfEdges[heQR].Twin].Face
		fb2 := c.HalfEdges[c.HalfEdges[heTPrev].Twin].Face
		if fa1 != halfedge.NoFace && fa1 == fa2 && fb1 != halfedge.NoFace && fb1 == fb2 {
			return failureTooManyNeighbours
		}
	}

	result := collapse.Evaluate(st.store.Get(a), st.store.Get(b), st.positions[a], st.positions[b])
	newPos := mgl64.Vec3{float64(result.NewPos[0]), float64(result.NewPos[1]), float64(result.NewPos[2])}

	// 2. Singular-face check.
	if coincide(newPos, st.positions[oppA]) {
		return failureSingularFace
	}
	if faceBPresent && coincide(newPos, st.positions[oppB]) {
		return failureSingularFace
	}

	survivor, removed := a, b
	if b < a {
		survivor, removed = b, a
	}

	// 3. Face-flip check: every face still incident to the vertex being
	// removed, other than the (up to 2) collapsing faces, relabelled and
	// recomputed against its previous normal.
	flipOK := true
	c.ForEachOutgoing(removed, func(oe uint32) bool {
		f := c.HalfEdges[oe].Face
		if f == halfedge.NoFace || f == faceA || f == faceB {
			return true
		}
		v1 := c.HalfEdges[c.HalfEdges[oe].Next].Origin
		v2 := c.HalfEdges[c.HalfEdges[c.HalfEdges[oe].Next].Next].Origin
		newNormal := triangleNormal(newPos, st.positions[v1], st.positions[v2])
		if newNormal.Dot(st.faceNormals[f]) < 0 {
			flipOK = false
			return false
		}
		return true
	})
	if !flipOK {
		return failureFaceFlip
	}

	// 4. Detached-vertex check.
	if faceIsDetached(c, heQR, hePR) {
		return failureDetachedVertex
	}
	if faceBPresent && faceIsDetached(c, heTNext, heTPrev) {
		return failureDetachedVertex
	}

	st.commitCollapse(he, heT, heQR, hePR, heTNext, heTPrev, faceA, faceB, faceBPresent, survivor, removed, oppA, oppB, newPos)
	return failureNone
}

// commitCollapse performs the transactional step described in spec 4.F:
// relabel origins, stitch around the (up to 2) removed faces, merge
// quadrics, reposition the survivor, and rekey every edge now incident
// to it.
func (st *state) commitCollapse(he, heT, heQR, hePR, heTNext, heTPrev uint32, faceA, faceB int32, faceBPresent bool, survivor, removed, oppA, oppB uint32, newPos mgl64.Vec3) {
	c := st.conn
	mergedQuad := st.store.Get(c.HalfEdges[he].Origin).Add(st.store.Get(c.HalfEdges[heT].Origin))

	// Drop every queue entry keyed by an edge that is about to die or be
	// merged into another, before any Face/Twin mutation — stitching
	// below can change which side of the surviving edges is canonical,
	// so the old key must be evicted explicitly rather than assumed to
	// be the one the rekey pass below will touch.
	st.dropQueueEntry(c, he)
	st.dropQueueEntry(c, heQR)
	st.dropQueueEntry(c, hePR)
	if faceBPresent {
		st.dropQueueEntry(c, heTNext)
		st.dropQueueEntry(c, heTPrev)
	}

	c.ForEachOutgoing(removed, func(oe uint32) bool {
		c.HalfEdges[oe].Origin = survivor
		return true
	})

	tQR := c.HalfEdges[heQR].Twin
	tPR := c.HalfEdges[hePR].Twin
	c.HalfEdges[tQR].Twin = tPR
	c.HalfEdges[tPR].Twin = tQR

	if faceBPresent {
		tPS := c.HalfEdges[heTNext].Twin
		tSQ := c.HalfEdges[heTPrev].Twin
		c.HalfEdges[tPS].Twin = tSQ
		c.HalfEdges[tSQ].Twin = tPS
		c.VertexEdge[oppB] = tPS
	} else {
		bPrev := c.HalfEdges[heT].Prev
		bNext := c.HalfEdges[heT].Next
		c.HalfEdges[bPrev].Next = bNext
		c.HalfEdges[bNext].Prev = bPrev
	}

	st.faceAlive[faceA] = false
	if faceBPresent {
		st.faceAlive[faceB] = false
	}

	st.positions[survivor] = newPos
	st.vertAlive[removed] = false
	st.store.Set(survivor, mergedQuad)

	c.VertexEdge[survivor] = tPR
	c.VertexEdge[oppA] = tQR

	c.ForEachOutgoing(survivor, func(oe uint32) bool {
		canon := canonicalOf(c, oe)
		err := st.evaluateEdge(canon)
		if st.queue.Contains(canon) {
			st.queue.Rekey(canon, err)
		} else {
			st.queue.Insert(canon, err)
		}
		return true
	})
}

func (st *state) dropQueueEntry(c *halfedge.Connectivity, he uint32) {
	canon := canonicalOf(c, he)
	if st.queue.Contains(canon) {
		st.queue.Remove(canon)
	}
}

func coincide(a, b mgl64.Vec3) bool {
	return a.Sub(b).LenSqr() < coincideEpsilonSq
}

func triangleNormal(a, b, c mgl64.Vec3) mgl64.Vec3 {
	return b.Sub(a).Cross(c.Sub(a))
}

func neighboursOf(c *halfedge.Connectivity, v uint32) map[uint32]bool {
	result := make(map[uint32]bool)
	c.ForEachOutgoing(v, func(he uint32) bool {
		result[c.HalfEdges[c.HalfEdges[he].Twin].Origin] = true
		return true
	})
	return result
}

func countCommonNeighbours(c *halfedge.Connectivity, a, b uint32) int {
	an := neighboursOf(c, a)
	bn := neighboursOf(c, b)
	delete(an, b)
	delete(bn, a)
	count := 0
	for v := range an {
		if bn[v] {
			count++
		}
	}
	return count
}

// faceIsDetached reports whether both of a removed face's non-collapsing
// edges are bounded, on their other side, by a face-less half-edge —
// meaning that face was the apex vertex's only incident face and it is
// about to be left with none (spec 4.F step 4).
func faceIsDetached(c *halfedge.Connectivity, e1, e2 uint32) bool {
	t1 := c.HalfEdges[e1].Twin
	t2 := c.HalfEdges[e2].Twin
	return c.HalfEdges[t1].Face == halfedge.NoFace && c.HalfEdges[t2].Face == halfedge.NoFace
}

// export compacts the surviving vertices and faces back into mesh's
// buffers, resizing it to the final counts.
func (st *state) export(mesh MeshHandle) {
	newIndex := make([]uint32, len(st.positions))
	var livePositions []mgl32.Vec3
	for v, alive := range st.vertAlive {
		if !alive {
			continue
		}
		newIndex[v] = uint32(len(livePositions))
		p := st.positions[v]
		livePositions = append(livePositions, mgl32.Vec3{float32(p.X()), float32(p.Y()), float32(p.Z())})
	}

	var liveIndices []uint32
	for f, alive := range st.faceAlive {
		if !alive {
			continue
		}
		base := uint32(3 * f)
		v0 := c0(st.conn, base)
		v1 := c0(st.conn, base+1)
		v2 := c0(st.conn, base+2)
		liveIndices = append(liveIndices, newIndex[v0], newIndex[v1], newIndex[v2])
	}

	vertexCount := uint32(len(livePositions))
	triangleCount := uint32(len(liveIndices) / 3)
	mesh.Resize(vertexCount, triangleCount)

	positions := mesh.Positions()
	for i, p := range livePositions {
		positions[3*i], positions[3*i+1], positions[3*i+2] = p.X(), p.Y(), p.Z()
	}
	copy(mesh.Indices(), liveIndices)
}

func c0(c *halfedge.Connectivity, he uint32) uint32 {
	return c.HalfEdges[he].Origin
}
