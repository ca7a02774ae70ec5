package common

import (
	"math"
	"testing"
)

func testFrustum(t *testing.T) Frustum {
	t.Helper()
	var view, proj, viewProj [16]float32
	LookAt(view[:], 0, 0, 0, 0, 0, 1, 0, 1, 0)
	Perspective(proj[:], math.Pi/2, 1, 0.1, 100)
	Mul4(viewProj[:], proj[:], view[:])
	return ExtractFrustumFromMatrix(viewProj[:])
}

func TestFrustumContainsSphere(t *testing.T) {
	f := testFrustum(t)

	cases := []struct {
		name   string
		center [3]float32
		radius float32
		want   bool
	}{
		{"on axis", [3]float32{0, 0, 5}, 0.5, true},
		{"behind camera", [3]float32{0, 0, -5}, 0.5, false},
		{"beyond far", [3]float32{0, 0, 200}, 0.5, false},
		{"outside left, fov 90", [3]float32{8, 0, 5}, 0.5, false},
		{"straddles edge", [3]float32{5.2, 0, 5}, 1.0, true},
		{"straddles near", [3]float32{0, 0, 0.05}, 0.5, true},
	}
	for _, c := range cases {
		if got := f.ContainsSphere(c.center, c.radius); got != c.want {
			t.Errorf("%s: ContainsSphere(%v, %g) = %v, want %v", c.name, c.center, c.radius, got, c.want)
		}
	}
}

func TestFrustumPlanesAreNormalized(t *testing.T) {
	f := testFrustum(t)
	for i, p := range f.Planes {
		l := math.Sqrt(float64(p.Normal[0]*p.Normal[0] + p.Normal[1]*p.Normal[1] + p.Normal[2]*p.Normal[2]))
		if math.Abs(l-1) > 1e-5 {
			t.Errorf("plane %d normal length = %g", i, l)
		}
	}
}
