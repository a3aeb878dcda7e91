package quadric

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

func TestFromPlaneEvalIsSquaredDistance(t *testing.T) {
	// Plane z=0, normal (0,0,1), d=0. Error at point (x,y,z) should be z^2.
	n := mgl64.Vec3{0, 0, 1}
	q := FromPlane(n, PlaneOffset(n, mgl64.Vec3{0, 0, 0}))

	for _, z := range []float64{0, 1, -2, 5} {
		got := q.Eval(mgl64.Vec3{3, -4, z})
		want := z * z
		if math.Abs(got-want) > 1e-9 {
			t.Errorf("Eval at z=%v: got %v, want %v", z, got, want)
		}
	}
}

func TestAddIsCommutativeAndAssociative(t *testing.T) {
	q1 := FromPlane(mgl64.Vec3{1, 0, 0}, -1)
	q2 := FromPlane(mgl64.Vec3{0, 1, 0}, -2)
	q3 := FromPlane(mgl64.Vec3{0, 0, 1}, -3)

	sumA := q1.Add(q2).Add(q3)
	sumB := q3.Add(q1).Add(q2)

	p := mgl64.Vec3{1, 2, 3}
	if math.Abs(sumA.Eval(p)-sumB.Eval(p)) > 1e-9 {
		t.Errorf("sum order changed eval result: %v vs %v", sumA.Eval(p), sumB.Eval(p))
	}
}

func TestEvalIsPositiveSemidefinite(t *testing.T) {
	planes := []struct {
		n mgl64.Vec3
		p mgl64.Vec3
	}{
		{mgl64.Vec3{1, 0, 0}, mgl64.Vec3{1, 0, 0}},
		{mgl64.Vec3{0, 1, 0}, mgl64.Vec3{0, 2, 0}},
		{mgl64.Vec3{0, 0, 1}, mgl64.Vec3{0, 0, -1}},
		{mgl64.Vec3{0.577, 0.577, 0.577}, mgl64.Vec3{1, 1, 1}},
	}

	var q Quadric
	for _, pl := range planes {
		n := pl.n.Normalize()
		q = q.Add(FromPlane(n, PlaneOffset(n, pl.p)))
	}

	// Sample many points; error must never go negative (up to round-off).
	for x := -3.0; x <= 3.0; x += 0.5 {
		for y := -3.0; y <= 3.0; y += 0.5 {
			for z := -3.0; z <= 3.0; z += 0.5 {
				if v := q.Eval(mgl64.Vec3{x, y, z}); v < -1e-9 {
					t.Fatalf("negative quadric error %v at (%v,%v,%v)", v, x, y, z)
				}
			}
		}
	}
}

func TestScaleAndZero(t *testing.T) {
	q := FromPlane(mgl64.Vec3{0, 1, 0}, -5)
	scaled := q.Scale(2)
	p := mgl64.Vec3{1, 1, 1}
	if math.Abs(scaled.Eval(p)-2*q.Eval(p)) > 1e-9 {
		t.Errorf("Scale(2) did not double Eval: %v vs %v", scaled.Eval(p), 2*q.Eval(p))
	}

	if Zero.Eval(p) != 0 {
		t.Errorf("Zero.Eval() = %v, want 0", Zero.Eval(p))
	}
}
