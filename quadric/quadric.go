// Package quadric maintains per-vertex Garland–Heckbert quadric error
// matrices for a half-edge mesh, including boundary-edge penalty planes.
package quadric

import "github.com/go-gl/mathgl/mgl64"

// Quadric is a symmetric 4x4 matrix stored as its 10 independent
// entries, representing the sum of squared distances from a homogeneous
// point to a set of planes. It is always positive semidefinite.
//
// Layout mirrors the upper triangle, row-major:
//
//	[ a b c d ]
//	[ b e f g ]
//	[ c f h i ]
//	[ d g i j ]
type Quadric struct {
	a, b, c, d float64
	e, f, g    float64
	h, i       float64
	j          float64
}

// FromPlane builds the quadric for a single plane with unit normal
// (nx,ny,nz) and offset d, i.e. the outer product of (nx,ny,nz,d) with
// itself.
func FromPlane(normal mgl64.Vec3, d float64) Quadric {
	nx, ny, nz := normal.X(), normal.Y(), normal.Z()
	return Quadric{
		a: nx * nx, b: nx * ny, c: nx * nz, d: nx * d,
		e: ny * ny, f: ny * nz, g: ny * d,
		h: nz * nz, i: nz * d,
		j: d * d,
	}
}

// PlaneOffset computes d = -(normal . point), the plane-equation offset
// used with FromPlane per spec's prescribed sign convention.
func PlaneOffset(normal, point mgl64.Vec3) float64 {
	return -normal.Dot(point)
}

// Scale multiplies every entry of q by s — used to apply the boundary
// penalty weight to a virtual-constraint-plane quadric.
func (q Quadric) Scale(s float64) Quadric {
	return Quadric{
		a: q.a * s, b: q.b * s, c: q.c * s, d: q.d * s,
		e: q.e * s, f: q.f * s, g: q.g * s,
		h: q.h * s, i: q.i * s,
		j: q.j * s,
	}
}

// Add returns the elementwise sum of two quadrics — merging a vertex's
// quadric additively is the entire update rule on collapse.
func (q Quadric) Add(o Quadric) Quadric {
	return Quadric{
		a: q.a + o.a, b: q.b + o.b, c: q.c + o.c, d: q.d + o.d,
		e: q.e + o.e, f: q.f + o.f, g: q.g + o.g,
		h: q.h + o.h, i: q.i + o.i,
		j: q.j + o.j,
	}
}

// Rows expands the quadric into the full symmetric 4x4 matrix as four
// rows, for consumption by the collapse package's linear solver.
func (q Quadric) Rows() [4][4]float64 {
	return [4][4]float64{
		{q.a, q.b, q.c, q.d},
		{q.b, q.e, q.f, q.g},
		{q.c, q.f, q.h, q.i},
		{q.d, q.g, q.i, q.j},
	}
}

// Eval returns vᵗ·Q·v for homogeneous point v=(x,y,z,1), the quadric
// error at a spatial point.
func (q Quadric) Eval(p mgl64.Vec3) float64 {
	x, y, z := p.X(), p.Y(), p.Z()
	// vᵗQv expanded using the symmetric upper triangle.
	return x*x*q.a + 2*x*y*q.b + 2*x*z*q.c + 2*x*q.d +
		y*y*q.e + 2*y*z*q.f + 2*y*q.g +
		z*z*q.h + 2*z*q.i +
		q.j
}

// Zero is the additive identity quadric (all entries zero).
var Zero Quadric
