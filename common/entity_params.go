package common

import (
	_ "embed"
	"encoding/binary"
	"math"
	"unsafe"
)

// GPUEntityParamsSource is the canonical WGSL definition of the EntityParams struct.
// One EntityParams uniform exists per render entity, written by the GPU resource manager
// whenever the entity's rendering configuration, transform, viewport, or SH degree changes
// (spec §4.2 responsibility 3: "synchronise derived uniforms"). Read by both the cull
// compute shader (frustum_dilation, alpha_cull_threshold, point_count) and the rasterizer's
// vertex/fragment shaders (splat_scale, sh_degree, vis_mode, edit colors, tint) — the same
// annotation key resolves to this struct under both the cull_uniforms and raster_uniforms
// @oxy:include arguments, since the two passes need overlapping subsets of one record.
//
//go:embed assets/entity_params.wgsl
var GPUEntityParamsSource string

// GPUEntityParams is the GPU-aligned representation of the EntityParams uniform buffer.
// Size: 144 bytes.
type GPUEntityParams struct {
	PointCount          uint32     // offset   0
	SurfaceWidth        uint32     // offset   4
	SurfaceHeight       uint32     // offset   8
	SHDegree            uint32     // offset  12
	FrustumDilation     float32    // offset  16
	AlphaCullThreshold  float32    // offset  20
	SplatScale          float32    // offset  24
	PointSize           float32    // offset  28
	Antialias           uint32     // offset  32: bool as u32
	VisMode             uint32     // offset  36
	PackMode            uint32     // offset  40: bool as u32
	UseTonemapping      uint32     // offset  44: bool as u32
	Transparency        float32    // offset  48
	Brightness          float32    // offset  52
	WhitePoint          float32    // offset  56
	BlackPoint          float32    // offset  60
	AlbedoColor         [3]float32 // offset  64
	_pad0               float32    // offset  76
	SelectColor         [4]float32 // offset  80
	UnselectColor       [4]float32 // offset  96
	LockedColor         [4]float32 // offset 112
	Tint                [4]float32 // offset 128
}

func (g *GPUEntityParams) Size() int { return int(unsafe.Sizeof(*g)) }

func (g *GPUEntityParams) Marshal() []byte {
	buf := make([]byte, g.Size())
	le := binary.LittleEndian
	le.PutUint32(buf[0:], g.PointCount)
	le.PutUint32(buf[4:], g.SurfaceWidth)
	le.PutUint32(buf[8:], g.SurfaceHeight)
	le.PutUint32(buf[12:], g.SHDegree)
	le.PutUint32(buf[16:], math.Float32bits(g.FrustumDilation))
	le.PutUint32(buf[20:], math.Float32bits(g.AlphaCullThreshold))
	le.PutUint32(buf[24:], math.Float32bits(g.SplatScale))
	le.PutUint32(buf[28:], math.Float32bits(g.PointSize))
	le.PutUint32(buf[32:], g.Antialias)
	le.PutUint32(buf[36:], g.VisMode)
	le.PutUint32(buf[40:], g.PackMode)
	le.PutUint32(buf[44:], g.UseTonemapping)
	le.PutUint32(buf[48:], math.Float32bits(g.Transparency))
	le.PutUint32(buf[52:], math.Float32bits(g.Brightness))
	le.PutUint32(buf[56:], math.Float32bits(g.WhitePoint))
	le.PutUint32(buf[60:], math.Float32bits(g.BlackPoint))
	putVec3(buf, 64, g.AlbedoColor)
	putVec4(buf, 80, g.SelectColor)
	putVec4(buf, 96, g.UnselectColor)
	putVec4(buf, 112, g.LockedColor)
	putVec4(buf, 128, g.Tint)
	return buf
}

func putVec3(buf []byte, offset int, v [3]float32) {
	for i := 0; i < 3; i++ {
		binary.LittleEndian.PutUint32(buf[offset+i*4:], math.Float32bits(v[i]))
	}
}

func putVec4(buf []byte, offset int, v [4]float32) {
	for i := 0; i < 4; i++ {
		binary.LittleEndian.PutUint32(buf[offset+i*4:], math.Float32bits(v[i]))
	}
}
