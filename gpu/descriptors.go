package gpu

import "github.com/cogentcore/webgpu/wgpu"

// Descriptors bundles the bind-group layout descriptors the manager needs to allocate one
// entity's full GPU footprint. Every descriptor is reflected off the shader that declares
// the matching @oxy:provider group (shader.Shader.BindGroupLayoutDescriptor), so the WGSL
// declaration for a group lives next to the pass that reads it rather than being duplicated
// here. SortKeys, SortHistogram, and PickResults may be left zero-valued for entities that
// never sort or never get picked against; AllocateEntity only allocates the groups whose
// descriptor has at least one bind-group-layout entry.
type Descriptors struct {
	// SplatStore is the splat_store group: per-splat field buffers and selection state, as
	// declared by the compute passes (cull, pick).
	SplatStore wgpu.BindGroupLayoutDescriptor

	// Scratch is the visible_indices group: cull output, indirect-draw struct, and the
	// entity's derived EntityParams/Transform uniforms, as declared by the compute passes.
	Scratch wgpu.BindGroupLayoutDescriptor

	// SplatStoreRender and ScratchRender are the render-stage declarations of the same two
	// groups (vertex/fragment visibility). Bind groups are not shareable across stages with
	// differing visibility, so the manager creates a second bind group per group over the
	// same buffers. Zero-valued for entities that are never drawn.
	SplatStoreRender wgpu.BindGroupLayoutDescriptor
	ScratchRender    wgpu.BindGroupLayoutDescriptor

	// SortKeys is the radix sorter's ping-pong scratch and per-pass uniform.
	SortKeys wgpu.BindGroupLayoutDescriptor

	// SortHistogram is the radix sorter's global and per-partition histograms.
	SortHistogram wgpu.BindGroupLayoutDescriptor

	// PickResults is the GPU picker's per-splat result buffer and per-request uniform.
	PickResults wgpu.BindGroupLayoutDescriptor
}

func hasEntries(d wgpu.BindGroupLayoutDescriptor) bool {
	return len(d.Entries) > 0
}
