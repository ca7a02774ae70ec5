package pick

import (
	"math"
	"testing"

	"github.com/wjymzh/3dgs-webgpu/common"
	"github.com/wjymzh/3dgs-webgpu/splat"
)

func identity() [16]float32 {
	var m [16]float32
	m[0], m[5], m[10], m[15] = 1, 1, 1, 1
	return m
}

func newPair(t *testing.T) *splat.Store {
	t.Helper()
	means := [][3]float32{{-1, 0, -5}, {1, 0, -5}}
	rotations := [][4]float32{{0, 0, 0, 1}, {0, 0, 0, 1}}
	logScales := [][3]float32{{0, 0, 0}, {0, 0, 0}}
	sh := [][]float32{{0, 0, 0}, {0, 0, 0}}
	opacities := []float32{0, 0}
	s, err := splat.New(means, rotations, logScales, sh, opacities)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s
}

// rectHits runs the host mirror of the pick shader's rect mode over a store.
func rectHits(s *splat.Store, rect [4]float32, viewProj, model [16]float32) []int {
	var hits []int
	for i, p := range s.Means() {
		st := s.State()[i]
		if st&(splat.StateLocked|splat.StateDeleted) != 0 {
			continue
		}
		if ndc, ok := ProjectNDC(viewProj, model, p); ok && RectContains(rect, ndc) {
			hits = append(hits, i)
		}
	}
	return hits
}

func TestRectPickSelectsRightSplat(t *testing.T) {
	s := newPair(t)

	var proj [16]float32
	common.Perspective(proj[:], math.Pi/3, 1, 0.1, 100)

	rect := [4]float32{0.0, -1.0, 1.0, 1.0}
	hits := rectHits(s, rect, proj, identity())
	if len(hits) != 1 || hits[0] != 1 {
		t.Fatalf("hits = %v, want [1]", hits)
	}

	s.SetSelection(hits, splat.SelectionOpSet)
	if s.NumSelected() != 1 {
		t.Fatalf("num_selected = %d, want 1", s.NumSelected())
	}
	if s.State()[0] != 0 {
		t.Fatalf("splat 0 state = %d, want 0", s.State()[0])
	}
	if s.State()[1]&splat.StateSelected == 0 {
		t.Fatal("splat 1 not selected")
	}
}

func TestRectPickOps(t *testing.T) {
	s := newPair(t)

	var proj [16]float32
	common.Perspective(proj[:], math.Pi/3, 1, 0.1, 100)

	right := rectHits(s, [4]float32{0, -1, 1, 1}, proj, identity())
	left := rectHits(s, [4]float32{-1, -1, 0, 1}, proj, identity())

	s.SetSelection(right, splat.SelectionOpSet)
	s.SetSelection(left, splat.SelectionOpAdd)
	if s.NumSelected() != 2 {
		t.Fatalf("after add: num_selected = %d, want 2", s.NumSelected())
	}

	s.SetSelection(right, splat.SelectionOpRemove)
	if s.NumSelected() != 1 || s.State()[1]&splat.StateSelected != 0 {
		t.Fatalf("after remove: num_selected = %d, state = %v", s.NumSelected(), s.State())
	}
}

func TestRectPickSkipsLocked(t *testing.T) {
	s := newPair(t)
	s.Select(1)
	s.LockSelected()

	var proj [16]float32
	common.Perspective(proj[:], math.Pi/3, 1, 0.1, 100)

	hits := rectHits(s, [4]float32{0, -1, 1, 1}, proj, identity())
	if len(hits) != 0 {
		t.Fatalf("locked splat reported hits: %v", hits)
	}
}

func TestProjectNDCBehindCamera(t *testing.T) {
	var proj [16]float32
	common.Perspective(proj[:], math.Pi/3, 1, 0.1, 100)

	if _, ok := ProjectNDC(proj, identity(), [3]float32{0, 0, 5}); ok {
		t.Fatal("point behind the camera projected successfully")
	}
}

func TestSphereContains(t *testing.T) {
	if !SphereContains([3]float32{0, 0, 0}, 1, [3]float32{0.5, 0.5, 0.5}) {
		t.Fatal("point inside the sphere reported outside")
	}
	if SphereContains([3]float32{0, 0, 0}, 1, [3]float32{1, 1, 1}) {
		t.Fatal("point outside the sphere reported inside")
	}
}

func TestBoxContains(t *testing.T) {
	center := [3]float32{1, 0, 0}
	half := [3]float32{0.5, 1, 2}
	if !BoxContains(center, half, [3]float32{1.4, -0.9, 1.9}) {
		t.Fatal("point inside the box reported outside")
	}
	if BoxContains(center, half, [3]float32{1.6, 0, 0}) {
		t.Fatal("point outside the box reported inside")
	}
}

func TestRequestConstructors(t *testing.T) {
	vp, m := identity(), identity()

	r := RectRequest("e", splat.SelectionOpSet, [4]float32{0, -1, 1, 1}, true, vp, m, 10)
	if r.Mode != common.PickModeRect || !r.UseRings || r.NumSplats != 10 {
		t.Fatalf("rect request = %+v", r)
	}

	sp := SphereRequest("e", splat.SelectionOpAdd, [3]float32{1, 2, 3}, 4, false, vp, m, 5)
	if sp.Mode != common.PickModeSphere || sp.SphereRadius != 4 {
		t.Fatalf("sphere request = %+v", sp)
	}

	b := BoxRequest("e", splat.SelectionOpRemove, [3]float32{0, 0, 0}, [3]float32{1, 1, 1}, false, vp, m, 5)
	if b.Mode != common.PickModeBox {
		t.Fatalf("box request = %+v", b)
	}

	mk := MaskRequest("e", splat.SelectionOpSet, &common.TextureStagingData{Width: 1, Height: 1, Pixels: []byte{255, 255, 255, 255}}, vp, m, 5)
	if mk.Mode != common.PickModeMask || mk.Mask == nil {
		t.Fatalf("mask request = %+v", mk)
	}
}

func TestPickerStateMachine(t *testing.T) {
	p := NewPicker()
	if p.State() != StateIdle {
		t.Fatalf("initial state = %d", p.State())
	}

	p.Submit(RectRequest("e", splat.SelectionOpSet, [4]float32{0, 0, 1, 1}, false, identity(), identity(), 1))
	if p.State() != StateRequested {
		t.Fatalf("state after submit = %d", p.State())
	}
	if _, ok := p.Pending(); !ok {
		t.Fatal("pending request missing after submit")
	}

	p.Clear()
	if p.State() != StateIdle {
		t.Fatalf("state after clear = %d", p.State())
	}
	if _, ok := p.Pending(); ok {
		t.Fatal("request survived clear")
	}
}
