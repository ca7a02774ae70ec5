package splat

import (
	"encoding/binary"
	"math"
	"testing"
)

func TestAtDecodesUploadRepresentation(t *testing.T) {
	s := makeStore(t, 2)
	s.LogScales()[1] = [3]float32{0, 1, 10}
	s.Opacities()[1] = -3

	g := s.At(1)
	if g.Position != [3]float32{1, 0, 0} {
		t.Errorf("position = %v", g.Position)
	}
	if g.Scale[0] != 1 || g.Scale[2] != MaxScale {
		t.Errorf("scale = %v, want exp+clamp applied", g.Scale)
	}
	if want := Sigmoid(-3); g.Opacity != want {
		t.Errorf("opacity = %g, want %g", g.Opacity, want)
	}
	if g.DCColor != [3]float32{0.5, 0.25, 0.125} {
		t.Errorf("dc color = %v", g.DCColor)
	}
}

func TestGPUSplatMarshal(t *testing.T) {
	g := GPUSplat{
		Position: [3]float32{1, 2, 3},
		Opacity:  0.5,
		Rotation: [4]float32{0, 0, 0, 1},
	}
	buf := g.Marshal()
	if len(buf) != g.Size() {
		t.Fatalf("marshal length = %d, size = %d", len(buf), g.Size())
	}
	if got := math.Float32frombits(binary.LittleEndian.Uint32(buf[44:])); got != 0.5 {
		t.Errorf("opacity at offset 44 = %g", got)
	}
	if got := math.Float32frombits(binary.LittleEndian.Uint32(buf[60:])); got != 1 {
		t.Errorf("rotation.w at offset 60 = %g", got)
	}
}
