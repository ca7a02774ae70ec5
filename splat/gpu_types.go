package splat

import (
	_ "embed"
	"encoding/binary"
	"math"
	"unsafe"
)

//go:embed assets/splat.wgsl
var GPUSplatSource string

// GPUSplat is the per-splat record matching the Splat struct in assets/splat.wgsl. The cull
// and rasterizer shaders do not include that struct; they read the per-field buffers written
// by WriteStandardChunk/WritePackedChunk. The higher-order SH coefficients are never part of
// this fixed struct.
type GPUSplat struct {
	Position [3]float32 // offset  0
	_pad0    float32    // offset 12
	DCColor  [3]float32 // offset 16
	_pad1    float32    // offset 28
	Scale    [3]float32 // offset 32
	Opacity  float32    // offset 44
	Rotation [4]float32 // offset 48
}

func (g *GPUSplat) Size() int { return int(unsafe.Sizeof(*g)) }

func (g *GPUSplat) Marshal() []byte {
	buf := make([]byte, g.Size())
	putVec3(buf, 0, g.Position)
	putVec3(buf, 16, g.DCColor)
	putVec3(buf, 32, g.Scale)
	binary.LittleEndian.PutUint32(buf[44:], math.Float32bits(g.Opacity))
	for c := 0; c < 4; c++ {
		binary.LittleEndian.PutUint32(buf[48+c*4:], math.Float32bits(g.Rotation[c]))
	}
	return buf
}

// At returns the standard-mode GPUSplat record for splat i, decoded from the store's raw
// CPU-side fields (scale exponentiated and clamped, opacity passed through sigmoid).
func (s *Store) At(i int) GPUSplat {
	dc := [3]float32{0, 0, 0}
	if s.k > 0 {
		dc = [3]float32{s.sh[i][0], s.sh[i][1], s.sh[i][2]}
	}
	return GPUSplat{
		Position: s.means[i],
		DCColor:  dc,
		Scale:    ClampedScale(s.logScales[i]),
		Opacity:  Sigmoid(s.opacities[i]),
		Rotation: s.rotations[i],
	}
}
