package common

import (
	_ "embed"
	"encoding/binary"
	"unsafe"
)

// GPUSortUniformsSource is the canonical WGSL definition of the SortUniforms struct, read by
// the radix sorter's upsweep, spine, and downsweep compute shaders. NumKeys is re-read from
// the cull pass's IndirectArgs.instance_count every frame rather than host capacity, so a
// sort dispatch never touches more keys than the cull pass actually produced.
//
//go:embed assets/sort_uniforms.wgsl
var GPUSortUniformsSource string

// GPUSortUniforms is the GPU-aligned representation of the SortUniforms uniform buffer,
// rewritten once per radix-sort pass (4 times per frame). Size: 16 bytes.
type GPUSortUniforms struct {
	NumKeys       uint32 // offset  0: instance_count from the cull pass, not configured capacity
	PassShift     uint32 // offset  4: 0, 8, 16, or 24 — bit offset of this pass's 8-bit digit
	NumPartitions uint32 // offset  8: ceil(NumKeys / BlockSize)
	BlockSize     uint32 // offset 12: fixed at 1024
}

func (g *GPUSortUniforms) Size() int { return int(unsafe.Sizeof(*g)) }

func (g *GPUSortUniforms) Marshal() []byte {
	buf := make([]byte, g.Size())
	le := binary.LittleEndian
	le.PutUint32(buf[0:], g.NumKeys)
	le.PutUint32(buf[4:], g.PassShift)
	le.PutUint32(buf[8:], g.NumPartitions)
	le.PutUint32(buf[12:], g.BlockSize)
	return buf
}
