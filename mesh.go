// Package simplify implements progressive mesh simplification over an
// indexed triangle mesh via Garland–Heckbert quadric error metrics: a
// half-edge connectivity builder, per-vertex quadric bookkeeping, an
// optimal-position collapse evaluator, and a cheapest-first collapse
// driver that repeatedly folds the globally cheapest valid edge until no
// collapse remains under the caller's error budget.
package simplify

import (
	"errors"
	"sync/atomic"
)

// MeshHandle is the caller-owned mesh buffer. Simplify mutates Positions
// and Indices in place and calls Resize once simplification settles on a
// final vertex/triangle count.
type MeshHandle interface {
	VertexCount() uint32
	TriangleCount() uint32
	Positions() []float32 // len == 3*VertexCount(), mutated in place
	Indices() []uint32    // len == 3*TriangleCount(), mutated in place
	Resize(vertexCount, triangleCount uint32)
}

// Stats summarizes one Simplify run, carried in SimplifyResult instead of
// logged from inside the core (the core performs no I/O).
type Stats struct {
	CollapsesAttempted uint32
	CollapsesSucceeded uint32

	FailuresTooManyNeighbours uint32
	FailuresSingularFace      uint32
	FailuresFaceFlip          uint32
	FailuresDetachedVertex    uint32
}

// SimplifyResult is the outcome of a successful Simplify call.
type SimplifyResult struct {
	CollapsedCount uint32
	Stats          Stats
}

// Sentinel errors for the two fatal, build-time conditions and for
// cooperative cancellation. Callers match with errors.Is.
var (
	ErrNonManifoldEdge = errors.New("simplify: mesh is non-manifold")
	ErrDegenerateFace  = errors.New("simplify: degenerate face (zero-area triangle)")
	ErrCancelled       = errors.New("simplify: cancelled")
)

// CancelToken is a cooperative cancellation flag checked by the driver
// between collapse steps. The zero value is a token that is never
// cancelled until Cancel is called.
type CancelToken struct {
	cancelled atomic.Bool
}

// Cancel requests that an in-flight Simplify call stop at the next
// opportunity, returning whatever simplification level was reached.
func (c *CancelToken) Cancel() {
	if c != nil {
		c.cancelled.Store(true)
	}
}

func (c *CancelToken) isCancelled() bool {
	return c != nil && c.cancelled.Load()
}

// Option configures a Simplify call beyond its required parameters.
type Option func(*options)

type options struct {
	weldEpsilon float32
	stepBudget  int // 0 means unlimited
}

// WithWeldEpsilon merges vertices within the given Euclidean distance
// before the mandatory exact-match deduplication pass (spec_full 4.A).
// Zero (the default) disables the pass.
func WithWeldEpsilon(eps float32) Option {
	return func(o *options) { o.weldEpsilon = eps }
}

// WithStepBudget caps the number of collapse attempts per Simplify call,
// letting a caller time-slice simplification of a very large mesh across
// several calls. Zero (the default) means unlimited.
func WithStepBudget(steps int) Option {
	return func(o *options) { o.stepBudget = steps }
}
