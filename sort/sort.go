// Package sort implements the GPU radix sorter (spec component C4): four 8-bit digit
// passes over the cull pass's compacted depth_keys/visible_indices, each made of an
// upsweep (histogram), spine (prefix sum), and downsweep (scatter) compute dispatch.
package sort

import (
	"fmt"

	"github.com/wjymzh/3dgs-webgpu/common"
	"github.com/wjymzh/3dgs-webgpu/engine/renderer"
	"github.com/wjymzh/3dgs-webgpu/engine/renderer/bind_group_provider"
	"github.com/wjymzh/3dgs-webgpu/engine/renderer/pipeline"
	"github.com/wjymzh/3dgs-webgpu/engine/renderer/shader"
	"github.com/wjymzh/3dgs-webgpu/gpu"
	"github.com/cogentcore/webgpu/wgpu"
)

const (
	keyUpsweep   = "sort_upsweep"
	keySpine     = "sort_spine"
	keyDownsweep = "sort_downsweep"
)

const (
	pathUpsweep   = "sort/assets/radix_upsweep.wgsl"
	pathSpine     = "sort/assets/radix_spine.wgsl"
	pathDownsweep = "sort/assets/radix_downsweep.wgsl"
)

// Pass owns the three radix-sort compute pipelines and runs all four digit passes for one
// entity per call.
type Pass interface {
	// Register compiles and registers the upsweep, spine, and downsweep pipelines.
	Register(r renderer.Renderer) error

	// SortKeysLayout returns the sort_keys group's reflected bind-group layout, for
	// gpu.Descriptors.SortKeys.
	SortKeysLayout() wgpu.BindGroupLayoutDescriptor

	// SortHistogramLayout returns the sort_histogram group's reflected bind-group layout,
	// for gpu.Descriptors.SortHistogram.
	SortHistogramLayout() wgpu.BindGroupLayoutDescriptor

	// Run executes all NumRadixPasses digit passes for entityKey, sorting its compacted
	// visible_indices by the depth_keys the cull pass wrote. capacity bounds the dispatch
	// (the worst case every splat survived culling); each kernel reads the true visible
	// count dynamically from the indirect-draw struct at runtime.
	Run(r renderer.Renderer, mgr gpu.Manager, entityKey string, capacity int) error
}

type pass struct {
	upsweep, spine, downsweep shader.Shader
}

var _ Pass = &pass{}

// NewPass constructs an unregistered radix-sort Pass. Call Register before Run.
func NewPass() Pass {
	return &pass{}
}

func (p *pass) Register(r renderer.Renderer) error {
	p.upsweep = shader.NewShader(keyUpsweep, shader.ShaderTypeCompute, pathUpsweep)
	p.spine = shader.NewShader(keySpine, shader.ShaderTypeCompute, pathSpine)
	p.downsweep = shader.NewShader(keyDownsweep, shader.ShaderTypeCompute, pathDownsweep)

	return r.RegisterPipelines(
		pipeline.NewPipeline(keyUpsweep, pipeline.PipelineTypeCompute, pipeline.WithComputeShader(p.upsweep)),
		pipeline.NewPipeline(keySpine, pipeline.PipelineTypeCompute, pipeline.WithComputeShader(p.spine)),
		pipeline.NewPipeline(keyDownsweep, pipeline.PipelineTypeCompute, pipeline.WithComputeShader(p.downsweep)),
	)
}

const (
	groupScratch   = 0
	groupSortKeys  = 1
	groupHistogram = 2
)

func (p *pass) SortKeysLayout() wgpu.BindGroupLayoutDescriptor {
	return p.upsweep.BindGroupLayoutDescriptor(groupSortKeys)
}

func (p *pass) SortHistogramLayout() wgpu.BindGroupLayoutDescriptor {
	return p.upsweep.BindGroupLayoutDescriptor(groupHistogram)
}

func (p *pass) Run(r renderer.Renderer, mgr gpu.Manager, entityKey string, capacity int) error {
	scratch := mgr.ScratchProvider(entityKey)
	sortKeys := mgr.SortKeysProvider(entityKey)
	histogram := mgr.SortHistogramProvider(entityKey)
	if scratch == nil || sortKeys == nil || histogram == nil {
		return fmt.Errorf("sort: entity %q missing a required scratch/sort_keys/sort_histogram provider", entityKey)
	}

	numPartitions := gpu.NumPartitions(capacity)
	if numPartitions == 0 {
		return nil
	}

	groups := []bind_group_provider.BindGroupProvider{scratch, sortKeys, histogram}

	// Each digit pass gets its own compute frame (its own command buffer submission): the
	// sort_uniforms write that rewrites pass_shift is a queue write, which executes in queue
	// order relative to command buffer submissions, not relative to the dispatches already
	// encoded into the *next* frame's buffer. Submitting one pass at a time guarantees the
	// GPU sees the matching pass_shift before it runs that pass's three kernels.
	for i := 0; i < gpu.NumRadixPasses; i++ {
		su := common.GPUSortUniforms{
			NumKeys:       uint32(capacity),
			PassShift:     uint32(i * 8),
			NumPartitions: uint32(numPartitions),
			BlockSize:     uint32(gpu.BlockSize),
		}
		r.WriteBuffers([]bind_group_provider.BufferWrite{{
			Provider: sortKeys, Binding: gpu.BindingSortUniforms, Offset: 0, Data: su.Marshal(),
		}})

		if err := r.BeginComputeFrame(); err != nil {
			return fmt.Errorf("sort: begin compute frame for pass %d: %w", i, err)
		}
		r.DispatchCompute(keyUpsweep, groups, [3]uint32{uint32(numPartitions), 1, 1})
		r.DispatchCompute(keySpine, groups, [3]uint32{1, 1, 1})
		r.DispatchCompute(keyDownsweep, groups, [3]uint32{uint32(numPartitions), 1, 1})
		r.EndComputeFrame()
	}
	return nil
}
