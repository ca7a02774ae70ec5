package splat

import (
	"encoding/binary"
	"math"
	"testing"
)

func TestWriteStandardChunk(t *testing.T) {
	s := makeStore(t, 2)
	s.LogScales()[1] = [3]float32{0, 0, 10} // exp(10) clamps to MaxScale
	s.Opacities()[1] = 2

	n := s.Len()
	positions := make([]byte, n*12)
	dcColor := make([]byte, n*12)
	scale := make([]byte, n*12)
	opacity := make([]byte, n*4)
	rotation := make([]byte, n*16)
	shHigher := make([]byte, n*180)

	s.WriteStandardChunk(0, n, positions, dcColor, scale, opacity, rotation, shHigher)

	if got := math.Float32frombits(binary.LittleEndian.Uint32(positions[12:])); got != 1 {
		t.Errorf("splat 1 position.x = %g, want 1", got)
	}
	if got := math.Float32frombits(binary.LittleEndian.Uint32(scale[12+8:])); got != MaxScale {
		t.Errorf("splat 1 scale.z = %g, want clamp at %g", got, float32(MaxScale))
	}
	want := Sigmoid(2)
	if got := math.Float32frombits(binary.LittleEndian.Uint32(opacity[4:])); got != want {
		t.Errorf("splat 1 opacity = %g, want sigmoid = %g", got, want)
	}
	if got := math.Float32frombits(binary.LittleEndian.Uint32(dcColor[0:])); got != 0.5 {
		t.Errorf("splat 0 dc.r = %g, want 0.5", got)
	}
	// Degree-0 store: the whole higher-order span stays zero.
	for i, b := range shHigher {
		if b != 0 {
			t.Fatalf("sh_higher[%d] = %d, want 0 for a degree-0 store", i, b)
		}
	}
}

func TestWritePackedChunkWords(t *testing.T) {
	s := makeStore(t, 1)
	s.Rotations()[0] = [4]float32{0.5, -0.5, 0.25, 1}
	s.Opacities()[0] = 0

	positions := make([]byte, PackedPositionStride)
	words := make([]byte, PackedWordsStride)
	dcColor := make([]byte, PackedColorStride)
	shPacked := make([]byte, PackedSHStride)

	s.WritePackedChunk(0, 1, positions, words, dcColor, shPacked)

	rx, ry := unpackHalf2(binary.LittleEndian.Uint32(words[0:]))
	if rx != 0.5 || ry != -0.5 {
		t.Errorf("rotation.xy = %g, %g", rx, ry)
	}
	_, op := unpackHalf2(binary.LittleEndian.Uint32(words[12:]))
	if op != 0.5 { // sigmoid(0) is exactly representable
		t.Errorf("opacity = %g, want 0.5", op)
	}

	// Degree-0 store: shared SH scale is zero and every direction word encodes the origin.
	if got := math.Float32frombits(binary.LittleEndian.Uint32(shPacked[0:])); got != 0 {
		t.Errorf("sh scale = %g, want 0", got)
	}
}

func TestWritePackedSHSharedScale(t *testing.T) {
	means := [][3]float32{{0, 0, 0}}
	rotations := [][4]float32{{0, 0, 0, 1}}
	logScales := [][3]float32{{0, 0, 0}}
	sh := [][]float32{make([]float32, 12)} // degree 1: DC + 3 bands
	sh[0][3] = 2                           // band 0 = (2, 0, 0)
	sh[0][7] = -1                          // band 1 = (0, -1, 0)
	opacities := []float32{0}

	s, err := New(means, rotations, logScales, sh, opacities)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	shPacked := make([]byte, PackedSHStride)
	s.WritePackedChunk(0, 1, make([]byte, PackedPositionStride), make([]byte, PackedWordsStride), make([]byte, PackedColorStride), shPacked)

	scale := math.Float32frombits(binary.LittleEndian.Uint32(shPacked[0:]))
	if scale != 2 {
		t.Fatalf("shared scale = %g, want 2 (largest band norm)", scale)
	}

	band0 := UnpackNormal11_10_11(binary.LittleEndian.Uint32(shPacked[4:]))
	if math.Abs(float64(band0[0]-1)) > 1e-3 || math.Abs(float64(band0[1])) > 2e-3 {
		t.Fatalf("band 0 direction = %v, want ~(1, 0, 0)", band0)
	}

	band1 := UnpackNormal11_10_11(binary.LittleEndian.Uint32(shPacked[8:]))
	if math.Abs(float64(band1[1]+0.5)) > 2e-3 {
		t.Fatalf("band 1 direction = %v, want y ~= -0.5 (normalized by shared scale)", band1)
	}
}
