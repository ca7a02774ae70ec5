package common

import (
	_ "embed"
	"encoding/binary"
	"math"
)

// Pick mode constants, matching the PickMode discriminant written into PickUniforms.Mode.
const (
	PickModeMask uint32 = iota
	PickModeRect
	PickModeSphere
	PickModeBox
)

// GPUPickUniformsSource is the canonical WGSL definition of the PickUniforms struct, read by
// the GPU picker's compute shader.
//
//go:embed assets/pick_uniforms.wgsl
var GPUPickUniformsSource string

// GPUPickUniforms is the GPU-aligned representation of the PickUniforms uniform buffer.
// Size: 208 bytes.
type GPUPickUniforms struct {
	Mode           uint32      // offset   0
	UseRings       uint32      // offset   4: bool as u32
	NumSplats      uint32      // offset   8
	_pad0          uint32      // offset  12
	ViewProjection [16]float32 // offset  16
	Model          [16]float32 // offset  80
	RectNDC        [4]float32  // offset 144: min.xy, max.xy in NDC space
	SphereCenter   [3]float32  // offset 160: local-space sphere center
	SphereRadius   float32     // offset 172
	BoxCenter      [3]float32  // offset 176: local-space box center
	_pad1          float32     // offset 188
	BoxHalfExtents [3]float32  // offset 192: local-space box half-extents
	_pad2          float32     // offset 204
}

func (g *GPUPickUniforms) Size() int { return 208 }

func (g *GPUPickUniforms) Marshal() []byte {
	buf := make([]byte, g.Size())
	le := binary.LittleEndian
	le.PutUint32(buf[0:], g.Mode)
	le.PutUint32(buf[4:], g.UseRings)
	le.PutUint32(buf[8:], g.NumSplats)
	for i := range 16 {
		le.PutUint32(buf[16+i*4:], math.Float32bits(g.ViewProjection[i]))
	}
	for i := range 16 {
		le.PutUint32(buf[80+i*4:], math.Float32bits(g.Model[i]))
	}
	putVec4(buf, 144, g.RectNDC)
	putVec3(buf, 160, g.SphereCenter)
	le.PutUint32(buf[172:], math.Float32bits(g.SphereRadius))
	putVec3(buf, 176, g.BoxCenter)
	putVec3(buf, 192, g.BoxHalfExtents)
	return buf
}
