package quadric

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/quadmesh/simplify/halfedge"
)

// Store holds one quadric per live vertex, exclusively owned by the
// simplification core.
type Store struct {
	quadrics []Quadric
}

// NewStore allocates a Store with one zero quadric per vertex.
func NewStore(vertexCount uint32) *Store {
	return &Store{quadrics: make([]Quadric, vertexCount)}
}

// Get returns the current quadric for vertex v.
func (s *Store) Get(v uint32) Quadric { return s.quadrics[v] }

// Set overwrites the quadric for vertex v — used when merging quadrics
// additively into a surviving vertex on collapse.
func (s *Store) Set(v uint32, q Quadric) { s.quadrics[v] = q }

// Add folds o into vertex v's quadric in place.
func (s *Store) Add(v uint32, o Quadric) { s.quadrics[v] = s.quadrics[v].Add(o) }

// Build computes the initial per-vertex quadrics for a built mesh: each
// face contributes the outer-product quadric of its plane to its three
// vertices, and (if boundaryPenalty != 0) each boundary edge contributes
// a scaled "virtual constraint plane" quadric to its two endpoints.
//
// faceNormals must have one unit normal per face (indexed by
// halfedge.HalfEdge.Face).
func Build(conn *halfedge.Connectivity, positions []mgl64.Vec3, faceNormals []mgl64.Vec3, boundaryPenalty float64) *Store {
	store := NewStore(uint32(len(positions)))

	// Accumulate per-face quadrics into their three vertices, visiting
	// each real half-edge once (three per face, all sharing the same
	// face quadric).
	computed := make([]bool, len(faceNormals))
	faceQ := make([]Quadric, len(faceNormals))
	for he := 0; he < conn.RealHalfEdgeCount(); he++ {
		h := conn.HalfEdges[he]
		f := h.Face
		if f == halfedge.NoFace {
			continue
		}
		if !computed[f] {
			p := positions[h.Origin]
			d := PlaneOffset(faceNormals[f], p)
			faceQ[f] = FromPlane(faceNormals[f], d)
			computed[f] = true
		}
		store.Add(h.Origin, faceQ[f])
	}

	if boundaryPenalty != 0 {
		addBoundaryPenalty(store, conn, positions, faceNormals, boundaryPenalty)
	}

	return store
}

// addBoundaryPenalty adds, for each boundary edge, a penalty quadric
// built from the "virtual constraint plane" whose normal is
// faceNormal × edgeDirection, scaled by penalty and added to both
// endpoints of the edge. This discourages collapses that move a
// boundary vertex off the boundary.
func addBoundaryPenalty(store *Store, conn *halfedge.Connectivity, positions []mgl64.Vec3, faceNormals []mgl64.Vec3, penalty float64) {
	for he := 0; he < conn.RealHalfEdgeCount(); he++ {
		h := conn.HalfEdges[he]
		if h.Face == halfedge.NoFace {
			continue
		}
		twin := conn.HalfEdges[h.Twin]
		if twin.Face != halfedge.NoFace {
			continue // interior edge, not a boundary
		}

		p := positions[h.Origin]
		q := positions[conn.HalfEdges[h.Next].Origin]
		edgeDir := q.Sub(p)
		if edgeDir.Len() < 1e-12 {
			continue
		}
		edgeDir = edgeDir.Normalize()

		planeNormal := faceNormals[h.Face].Cross(edgeDir)
		if planeNormal.Len() < 1e-12 {
			continue
		}
		planeNormal = planeNormal.Normalize()

		d := PlaneOffset(planeNormal, p)
		penaltyQ := FromPlane(planeNormal, d).Scale(penalty)

		store.Add(h.Origin, penaltyQ)
		store.Add(conn.HalfEdges[h.Next].Origin, penaltyQ)
	}
}
