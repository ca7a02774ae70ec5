package common

import (
	_ "embed"
	"encoding/binary"
	"math"
	"unsafe"
)

// GPUCameraUniformSource is the canonical WGSL definition of the CameraUniform struct.
// Matches GPUCameraUniform layout exactly (160 bytes, std430 aligned). Shared by the cull,
// rasterizer, and picker shaders. The rasterizer's EWA projection needs the bare view
// matrix and per-axis focal lengths alongside the combined view-projection, so both are
// carried here rather than re-derived per shader.
//
//go:embed assets/camera_uniform.wgsl
var GPUCameraUniformSource string

// GPUCameraUniform is the GPU-aligned representation of the camera uniform buffer.
// Matches the WGSL CameraUniform struct layout exactly (see GPUCameraUniformSource).
// Size: 160 bytes (std430 / WGSL aligned).
type GPUCameraUniform struct {
	ViewProj       [16]float32 // offset   0: combined view-projection matrix (mat4x4<f32>)
	View           [16]float32 // offset  64: world-to-camera view matrix (mat4x4<f32>)
	CameraPosition [3]float32  // offset 128: world-space camera position (vec3<f32>)
	_pad0          float32     // offset 140
	Focal          [2]float32  // offset 144: per-axis focal length in pixels
	Viewport       [2]float32  // offset 152: viewport size in pixels
}

// Size returns the size of the GPUCameraUniform struct in bytes.
func (g *GPUCameraUniform) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the GPUCameraUniform struct into a byte buffer suitable for GPU upload.
func (g *GPUCameraUniform) Marshal() []byte {
	buf := make([]byte, g.Size())
	le := binary.LittleEndian
	for i := range 16 {
		le.PutUint32(buf[i*4:], math.Float32bits(g.ViewProj[i]))
	}
	for i := range 16 {
		le.PutUint32(buf[64+i*4:], math.Float32bits(g.View[i]))
	}
	putVec3(buf, 128, g.CameraPosition)
	le.PutUint32(buf[144:], math.Float32bits(g.Focal[0]))
	le.PutUint32(buf[148:], math.Float32bits(g.Focal[1]))
	le.PutUint32(buf[152:], math.Float32bits(g.Viewport[0]))
	le.PutUint32(buf[156:], math.Float32bits(g.Viewport[1]))
	return buf
}

// GPUIndirectArgsSource is the canonical WGSL definition of the IndirectArgs struct.
// Matches GPUIndirectArgs layout exactly (16 bytes). The cull compute shader atomically
// increments instance_count for every splat that survives culling; vertex_count,
// first_vertex, and first_instance are written once by the host and never touched by a shader.
//
//go:embed assets/indirect_args.wgsl
var GPUIndirectArgsSource string

// GPUIndirectArgs mirrors WebGPU's DrawIndirect argument layout:
// {vertex_count, instance_count, first_vertex, first_instance}.
// Size: 16 bytes.
type GPUIndirectArgs struct {
	VertexCount   uint32 // offset  0: fixed at 4 — one procedural quad per surviving splat
	InstanceCount uint32 // offset  4: atomic counter incremented by the cull pass
	FirstVertex   uint32 // offset  8: always 0
	FirstInstance uint32 // offset 12: always 0
}

// Size returns the size of the GPUIndirectArgs struct in bytes.
func (g *GPUIndirectArgs) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the GPUIndirectArgs struct into a byte buffer suitable for GPU upload.
func (g *GPUIndirectArgs) Marshal() []byte {
	buf := make([]byte, g.Size())
	binary.LittleEndian.PutUint32(buf[0:], g.VertexCount)
	binary.LittleEndian.PutUint32(buf[4:], g.InstanceCount)
	binary.LittleEndian.PutUint32(buf[8:], g.FirstVertex)
	binary.LittleEndian.PutUint32(buf[12:], g.FirstInstance)
	return buf
}
