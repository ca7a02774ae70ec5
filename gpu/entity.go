package gpu

import (
	"github.com/wjymzh/3dgs-webgpu/common"
	"github.com/wjymzh/3dgs-webgpu/engine/renderer/bind_group_provider"
)

// entityResources is the GPU-resident state the manager keeps for one splat entity: the
// splat_store buffer provider, the per-frame scratch providers spec §4.2 requires (cull
// output, radix-sort ping-pong temps and histograms, pick results), the layout it was
// allocated under, and the capacity/count used to size buffers and bound chunked uploads.
type entityResources struct {
	provider          bind_group_provider.BindGroupProvider // splat_store (compute visibility)
	scratchProvider   bind_group_provider.BindGroupProvider // visible_indices (compute visibility)
	sortKeysProvider  bind_group_provider.BindGroupProvider // sort_keys
	histogramProvider bind_group_provider.BindGroupProvider // sort_histogram
	pickProvider      bind_group_provider.BindGroupProvider // pick_results

	// renderProvider/renderScratchProvider wrap the same underlying buffers as provider/
	// scratchProvider in bind groups with render-stage visibility, since a bind group is
	// only compatible with pipeline layouts of identical visibility.
	renderProvider        bind_group_provider.BindGroupProvider
	renderScratchProvider bind_group_provider.BindGroupProvider

	layout   LayoutMode
	capacity int
	count    int

	// lastParams and lastTransform cache the most recently synchronised uniform contents so
	// SyncParams/SyncTransform can skip a write when nothing actually changed.
	lastParams    *common.GPUEntityParams
	lastTransform *common.GPUEntityTransform
}

// fieldSizes returns the byte size of each splat_store storage buffer, keyed by binding
// index, for the given splat count at the given layout mode. Used both to size buffers on
// first allocation (via InitBindGroup's bufferSizeOverrides) and to bound WriteBuffers calls.
func fieldSizes(layout LayoutMode, count int) map[int]uint64 {
	n := uint64(count)
	switch layout {
	case LayoutPacked:
		return map[int]uint64{
			BindingPackedPositions: n * 12,
			BindingPackedWords:     n * 16,
			BindingPackedDCColor:   n * 8,
			BindingPackedSH:        n * 64,
			BindingPackedState:     n * 4,
		}
	default:
		return map[int]uint64{
			BindingPositions: n * 12,
			BindingDCColor:   n * 12,
			BindingScale:     n * 12,
			BindingOpacity:   n * 4,
			BindingRotation:  n * 16,
			BindingSHHigher:  n * 180,
			BindingState:     n * 4,
		}
	}
}

// scratchFieldSizes sizes the visible_indices group: the cull pass's compacted output
// (depth_keys, visible_indices), the indirect-draw struct, and the entity's derived-uniform
// records (spec §4.2-1, §4.2-3).
func scratchFieldSizes(capacity int) map[int]uint64 {
	n := uint64(capacity)
	var args common.GPUIndirectArgs
	var params common.GPUEntityParams
	var transform common.GPUEntityTransform
	return map[int]uint64{
		BindingDepthKeys:      n * 4,
		BindingVisibleIndices: n * 4,
		BindingIndirectArgs:   uint64(args.Size()),
		BindingEntityParams:   uint64(params.Size()),
		BindingTransform:      uint64(transform.Size()),
	}
}

// sortKeysFieldSizes sizes the radix sorter's ping-pong scratch buffers plus its per-pass
// uniform (spec §4.4).
func sortKeysFieldSizes(capacity int) map[int]uint64 {
	n := uint64(capacity)
	var su common.GPUSortUniforms
	return map[int]uint64{
		BindingKeysTemp:     n * 4,
		BindingValuesTemp:   n * 4,
		BindingSortUniforms: uint64(su.Size()),
	}
}

// sortHistogramFieldSizes sizes the radix sorter's global and per-partition histograms.
// The global histogram holds one 256-bin section per pass; the partition histogram is
// reused across all four passes, sized to the worst-case partition count for capacity.
func sortHistogramFieldSizes(capacity int) map[int]uint64 {
	partitions := uint64(NumPartitions(capacity))
	return map[int]uint64{
		BindingGlobalHistogram:    uint64(NumRadixPasses * NumRadixBuckets * 4),
		BindingPartitionHistogram: partitions * NumRadixBuckets * 4,
	}
}

// pickFieldSizes sizes the picker's per-splat result buffer and its per-request uniform.
func pickFieldSizes(capacity int) map[int]uint64 {
	n := uint64(capacity)
	var pu common.GPUPickUniforms
	return map[int]uint64{
		BindingPickResults:  n * 4,
		BindingPickUniforms: uint64(pu.Size()),
	}
}
