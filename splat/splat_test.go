package splat

import (
	"errors"
	"math"
	"testing"
)

func makeStore(t *testing.T, n int) *Store {
	t.Helper()
	means := make([][3]float32, n)
	rotations := make([][4]float32, n)
	logScales := make([][3]float32, n)
	sh := make([][]float32, n)
	opacities := make([]float32, n)
	for i := range n {
		means[i] = [3]float32{float32(i), 0, 0}
		rotations[i] = [4]float32{0, 0, 0, 1}
		sh[i] = []float32{0.5, 0.25, 0.125}
	}
	s, err := New(means, rotations, logScales, sh, opacities)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s
}

func TestNewRejectsMismatchedLengths(t *testing.T) {
	means := [][3]float32{{0, 0, 0}, {1, 0, 0}}
	rotations := [][4]float32{{0, 0, 0, 1}}
	logScales := [][3]float32{{0, 0, 0}, {0, 0, 0}}
	sh := [][]float32{{0, 0, 0}, {0, 0, 0}}
	opacities := []float32{0, 0}

	_, err := New(means, rotations, logScales, sh, opacities)
	if !errors.Is(err, ErrConfiguration) {
		t.Fatalf("want ErrConfiguration, got %v", err)
	}
}

func TestDegreeFromCoeffCount(t *testing.T) {
	cases := []struct {
		floats int
		degree int
		ok     bool
	}{
		{3, 0, true},
		{12, 1, true},
		{27, 2, true},
		{48, 3, true},
		{6, 0, false},  // K=2 is not a perfect square count
		{4, 0, false},  // not a multiple of 3
		{30, 0, false}, // K=10
	}
	for _, c := range cases {
		d, err := DegreeFromCoeffCount(c.floats)
		if c.ok && (err != nil || d != c.degree) {
			t.Errorf("DegreeFromCoeffCount(%d) = %d, %v; want %d", c.floats, d, err, c.degree)
		}
		if !c.ok && err == nil {
			t.Errorf("DegreeFromCoeffCount(%d) succeeded, want error", c.floats)
		}
	}
}

func TestSigmoidRoundTrip(t *testing.T) {
	for x := float32(-15); x <= 15; x += 0.5 {
		got := InverseSigmoid(Sigmoid(x))
		if diff := math.Abs(float64(got - x)); diff > 1e-3*math.Max(1, math.Abs(float64(x))) {
			t.Fatalf("inverse_sigmoid(sigmoid(%g)) = %g", x, got)
		}
	}
}

func TestClampedScale(t *testing.T) {
	got := ClampedScale([3]float32{0, 10, -2})
	if got[0] != 1 {
		t.Errorf("exp(0) = %g, want 1", got[0])
	}
	if got[1] != MaxScale {
		t.Errorf("exp(10) clamps to %g, want %g", got[1], float32(MaxScale))
	}
	want := float32(math.Exp(-2))
	if math.Abs(float64(got[2]-want)) > 1e-6 {
		t.Errorf("exp(-2) = %g, want %g", got[2], want)
	}
}

func TestBoundingBoxAndCameraDistance(t *testing.T) {
	s := makeStore(t, 5) // means x = 0..4
	min, max := s.BoundingBox()
	if min != [3]float32{0, 0, 0} || max != [3]float32{4, 0, 0} {
		t.Fatalf("bounding box = %v..%v", min, max)
	}
	if c := s.Center(); c != [3]float32{2, 0, 0} {
		t.Fatalf("center = %v", c)
	}
	if d := s.SuggestedCameraDistance(); d != 10 {
		t.Fatalf("suggested distance = %g, want 10 (= 2.5 * 4)", d)
	}
}

func TestEmptyStore(t *testing.T) {
	s := makeStore(t, 0)
	if s.Len() != 0 || s.Degree() != 0 {
		t.Fatalf("empty store: len=%d degree=%d", s.Len(), s.Degree())
	}
	min, max := s.BoundingBox()
	if min != max {
		t.Fatalf("empty bounding box = %v..%v", min, max)
	}
}
