package common

import (
	"math"
	"testing"
)

func TestInvert4RoundTrip(t *testing.T) {
	var m, inv, id [16]float32
	BuildModelMatrix(m[:], 1, 2, 3, 0.4, 0.5, 0.6, 2, 1, 0.5)

	if !Invert4(inv[:], m[:]) {
		t.Fatal("model matrix reported singular")
	}
	Mul4(id[:], m[:], inv[:])

	for i := range 16 {
		want := float32(0)
		if i%5 == 0 {
			want = 1
		}
		if math.Abs(float64(id[i]-want)) > 1e-5 {
			t.Fatalf("m * m^-1 [%d] = %g, want %g", i, id[i], want)
		}
	}
}

func TestInvert4Singular(t *testing.T) {
	var zero, out [16]float32
	if Invert4(out[:], zero[:]) {
		t.Fatal("zero matrix inverted")
	}
}

func TestPerspectiveDepthRange(t *testing.T) {
	// WebGPU clip space: z in [0, 1], near maps to 0, far maps to 1.
	var p [16]float32
	Perspective(p[:], math.Pi/2, 1, 0.1, 100)

	project := func(z float32) float32 {
		// View space looks down -z; clip.z = p[10]*z + p[14], clip.w = -z.
		return (p[10]*z + p[14]) / -z
	}
	if d := project(-0.1); math.Abs(float64(d)) > 1e-5 {
		t.Fatalf("near plane depth = %g, want 0", d)
	}
	if d := project(-100); math.Abs(float64(d-1)) > 1e-4 {
		t.Fatalf("far plane depth = %g, want 1", d)
	}
}

func TestDepthKeyOrdering(t *testing.T) {
	depths := []float32{0.1, 0.1000001, 0.5, 1, 2.5, 99.9, 1e6}
	for i := 1; i < len(depths); i++ {
		if DepthToSortableKey(depths[i-1]) >= DepthToSortableKey(depths[i]) {
			t.Fatalf("key(%g) >= key(%g)", depths[i-1], depths[i])
		}
	}
}

func TestQuatToMat3Identity(t *testing.T) {
	// Un-normalised quaternions are normalised at read time, so a scaled identity
	// quaternion still yields the identity rotation.
	m := QuatToMat3([4]float32{0, 0, 0, 2})
	want := [9]float32{1, 0, 0, 0, 1, 0, 0, 0, 1}
	for i := range m {
		if math.Abs(float64(m[i]-want[i])) > 1e-6 {
			t.Fatalf("m[%d] = %g, want %g", i, m[i], want[i])
		}
	}
}

func TestCovariance3DIsotropic(t *testing.T) {
	// An isotropic splat's covariance is rotation-invariant: sigma^2 * I for any q.
	q := [4]float32{0.3, -0.2, 0.5, 0.8}
	sigma := Covariance3D(q, [3]float32{2, 2, 2})
	for col := 0; col < 3; col++ {
		for row := 0; row < 3; row++ {
			want := float32(0)
			if row == col {
				want = 4
			}
			if math.Abs(float64(sigma[col*3+row]-want)) > 1e-5 {
				t.Fatalf("sigma[%d][%d] = %g, want %g", row, col, sigma[col*3+row], want)
			}
		}
	}
}

func TestProjectCovariance2DOnAxis(t *testing.T) {
	// An isotropic splat centered on the view axis projects to (focal * s / z)^2 * I.
	var view [16]float32
	LookAt(view[:], 0, 0, 0, 0, 0, -1, 0, 1, 0)

	const s, z, focal = 0.5, 10.0, 400.0
	sigma := Covariance3D([4]float32{0, 0, 0, 1}, [3]float32{s, s, s})
	a, b, c := ProjectCovariance2D(sigma, view[:], [3]float32{0, 0, z}, [2]float32{focal, focal})

	want := float64(focal * s / z * focal * s / z)
	if math.Abs(float64(a)-want) > want*1e-4 || math.Abs(float64(c)-want) > want*1e-4 {
		t.Fatalf("diagonal = %g, %g, want %g", a, c, want)
	}
	if math.Abs(float64(b)) > want*1e-4 {
		t.Fatalf("off-diagonal = %g, want 0", b)
	}
}

func TestLookAtMapsEyeToOrigin(t *testing.T) {
	var v [16]float32
	LookAt(v[:], 3, 4, 5, 0, 0, 0, 0, 1, 0)

	// The eye position must land on the view-space origin.
	x := v[0]*3 + v[4]*4 + v[8]*5 + v[12]
	y := v[1]*3 + v[5]*4 + v[9]*5 + v[13]
	z := v[2]*3 + v[6]*4 + v[10]*5 + v[14]
	if math.Abs(float64(x)) > 1e-5 || math.Abs(float64(y)) > 1e-5 || math.Abs(float64(z)) > 1e-5 {
		t.Fatalf("eye maps to (%g, %g, %g), want origin", x, y, z)
	}
}
