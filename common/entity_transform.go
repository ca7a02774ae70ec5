package common

import (
	_ "embed"
	"encoding/binary"
	"math"
	"unsafe"
)

// GPUEntityTransformSource is the canonical WGSL definition of the Transform struct: the
// entity's 4x4 model matrix, rewritten by the GPU resource manager whenever the producer's
// transform changes (spec §4.2 responsibility 3). Read by the cull pass (world-to-camera
// projection) and the rasterizer's vertex shader.
//
//go:embed assets/entity_transform.wgsl
var GPUEntityTransformSource string

// GPUEntityTransform is the GPU-aligned representation of the Transform uniform buffer.
// Size: 64 bytes.
type GPUEntityTransform struct {
	Model [16]float32 // offset 0: column-major 4x4 model matrix
}

func (g *GPUEntityTransform) Size() int { return int(unsafe.Sizeof(*g)) }

func (g *GPUEntityTransform) Marshal() []byte {
	buf := make([]byte, g.Size())
	for i := range 16 {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(g.Model[i]))
	}
	return buf
}
