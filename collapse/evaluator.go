// Package collapse computes, for a candidate edge collapse, the optimal
// merged-vertex position and its scalar quadric error.
package collapse

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/quadmesh/simplify/quadric"
)

// errorClampThreshold: evaluated errors with absolute value below this
// are clamped to exactly zero, per spec 4.D — near-flat regions produce
// round-off noise around zero that should read as "free" collapses.
const errorClampThreshold = 5e-6

// EdgeError is the per-half-edge cached result of evaluating a
// candidate collapse: the error a collapse of this edge would cost, and
// the position the surviving vertex would take on.
type EdgeError struct {
	Err    float32
	NewPos [3]float32
}

// Evaluate computes the optimal merged position and quadric error for
// collapsing the edge between endpoints with quadrics qp, qq and
// positions p, q.
//
// The merged quadric Q = qp+qq is augmented (Q̃: last row replaced by
// (0,0,0,1), last column left as Q's original fourth column) and solved
// for v minimizing vᵗQv subject to the homogeneous constraint w=1, via a
// pivoted LU decomposition in double precision (spec 4.D).
//
// If the augmented system is singular, Evaluate falls back to the edge
// midpoint; if the midpoint's error is itself worse than evaluating at
// either original endpoint, it falls back further to whichever endpoint
// is cheaper (a supplement carried from the original C++ solver's
// secondary fallback, spec_full 4.D).
func Evaluate(qp, qq quadric.Quadric, p, q mgl64.Vec3) EdgeError {
	merged := qp.Add(qq)
	rows := merged.Rows()

	a := [4][4]float64{
		rows[0],
		rows[1],
		rows[2],
		{0, 0, 0, 1},
	}
	b := [4]float64{0, 0, 0, 1}

	if sol, ok := solve4x4(a, b); ok {
		pos := mgl64.Vec3{sol[0], sol[1], sol[2]}
		err := clamp(merged.Eval(pos))
		return toEdgeError(pos, err)
	}

	mid := p.Add(q).Mul(0.5)
	midErr := merged.Eval(mid)

	errP := merged.Eval(p)
	errQ := merged.Eval(q)
	best := mid
	bestErr := midErr
	if errP < bestErr {
		best, bestErr = p, errP
	}
	if errQ < bestErr {
		best, bestErr = q, errQ
	}

	return toEdgeError(best, clamp(bestErr))
}

func clamp(err float64) float64 {
	if err < 0 || math.Abs(err) < errorClampThreshold {
		return 0
	}
	return err
}

func toEdgeError(pos mgl64.Vec3, err float64) EdgeError {
	return EdgeError{
		Err:    float32(err),
		NewPos: [3]float32{float32(pos.X()), float32(pos.Y()), float32(pos.Z())},
	}
}
