// Package cull implements the frustum-cull-and-project compute pass (spec component C3):
// for one entity it projects every splat, discards hidden/off-screen/too-small/too-transparent
// ones, and atomically compacts the survivors into the visible_indices scratch buffer with a
// depth key ready for the radix sorter.
package cull

import (
	"fmt"

	"github.com/wjymzh/3dgs-webgpu/engine/renderer"
	"github.com/wjymzh/3dgs-webgpu/engine/renderer/bind_group_provider"
	"github.com/wjymzh/3dgs-webgpu/engine/renderer/pipeline"
	"github.com/wjymzh/3dgs-webgpu/engine/renderer/shader"
	"github.com/wjymzh/3dgs-webgpu/gpu"
	"github.com/cogentcore/webgpu/wgpu"
)

// Bind group indices the cull shaders declare, in source order: camera, splat_store,
// visible_indices (the scratch group carrying depth_keys/visible_indices/indirect_args/
// EntityParams/Transform).
const (
	groupCamera         = 0
	groupSplatStore     = 1
	groupVisibleIndices = 2
)

const (
	keyStandard = "cull_standard"
	keyPacked   = "cull_packed"
)

const (
	pathStandard = "cull/assets/cull.wgsl"
	pathPacked   = "cull/assets/cull_packed.wgsl"
)

const workgroupSize = 256

// Pass owns the compiled cull compute pipelines (one per splat buffer layout) and
// dispatches the matching one once per entity per frame.
type Pass interface {
	// Register compiles the cull shaders and registers their pipelines with r. Must be
	// called once before any Dispatch call.
	Register(r renderer.Renderer) error

	// CameraLayout returns the reflected camera bind-group layout (compute visibility).
	// Register must have been called first.
	CameraLayout() wgpu.BindGroupLayoutDescriptor

	// SplatStoreLayout returns the reflected splat_store bind-group layout for the given
	// buffer layout mode, for gpu.Descriptors.SplatStore.
	SplatStoreLayout(layout gpu.LayoutMode) wgpu.BindGroupLayoutDescriptor

	// ScratchLayout returns the reflected visible_indices bind-group layout, for
	// gpu.Descriptors.Scratch.
	ScratchLayout() wgpu.BindGroupLayoutDescriptor

	// Dispatch culls splatCount splats belonging to entityKey: zeroes the entity's scratch
	// buffers via mgr.ZeroScratch, then runs one thread per splat, rounded up to workgroupSize.
	Dispatch(r renderer.Renderer, mgr gpu.Manager, entityKey string, cameraProvider bind_group_provider.BindGroupProvider, splatCount int) error
}

type pass struct {
	standard shader.Shader
	packed   shader.Shader
}

var _ Pass = &pass{}

// NewPass constructs an unregistered cull Pass. Call Register before Dispatch.
func NewPass() Pass {
	return &pass{}
}

func (p *pass) Register(r renderer.Renderer) error {
	p.standard = shader.NewShader(keyStandard, shader.ShaderTypeCompute, pathStandard)
	p.packed = shader.NewShader(keyPacked, shader.ShaderTypeCompute, pathPacked)

	return r.RegisterPipelines(
		pipeline.NewPipeline(keyStandard, pipeline.PipelineTypeCompute, pipeline.WithComputeShader(p.standard)),
		pipeline.NewPipeline(keyPacked, pipeline.PipelineTypeCompute, pipeline.WithComputeShader(p.packed)),
	)
}

func (p *pass) CameraLayout() wgpu.BindGroupLayoutDescriptor {
	return p.standard.BindGroupLayoutDescriptor(groupCamera)
}

func (p *pass) SplatStoreLayout(layout gpu.LayoutMode) wgpu.BindGroupLayoutDescriptor {
	if layout == gpu.LayoutPacked {
		return p.packed.BindGroupLayoutDescriptor(groupSplatStore)
	}
	return p.standard.BindGroupLayoutDescriptor(groupSplatStore)
}

func (p *pass) ScratchLayout() wgpu.BindGroupLayoutDescriptor {
	return p.standard.BindGroupLayoutDescriptor(groupVisibleIndices)
}

func (p *pass) Dispatch(r renderer.Renderer, mgr gpu.Manager, entityKey string, cameraProvider bind_group_provider.BindGroupProvider, splatCount int) error {
	if err := mgr.ZeroScratch(entityKey); err != nil {
		return fmt.Errorf("cull: zero scratch for %q: %w", entityKey, err)
	}

	splatStore := mgr.Provider(entityKey)
	scratch := mgr.ScratchProvider(entityKey)
	if splatStore == nil || scratch == nil {
		return fmt.Errorf("cull: entity %q missing splat_store or visible_indices provider", entityKey)
	}

	pipelineKey := keyStandard
	if layout, ok := mgr.Layout(entityKey); ok && layout == gpu.LayoutPacked {
		pipelineKey = keyPacked
	}

	groups := uint32((splatCount + workgroupSize - 1) / workgroupSize)
	if groups == 0 {
		return nil
	}

	if err := r.BeginComputeFrame(); err != nil {
		return fmt.Errorf("cull: begin compute frame: %w", err)
	}
	r.DispatchCompute(pipelineKey, []bind_group_provider.BindGroupProvider{cameraProvider, splatStore, scratch}, [3]uint32{groups, 1, 1})
	r.EndComputeFrame()
	return nil
}
