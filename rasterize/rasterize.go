// Package rasterize implements the splat rasterization pass (spec component C5): one
// indirect instanced draw per entity expands each visible splat into a screen-space quad
// sized by the EWA projection of its covariance, evaluates spherical harmonics, and blends
// with premultiplied alpha into the temporal-coherence cache. It also owns the overlay and
// pick pipeline variants and the fullscreen blit that composites the cache to the screen.
package rasterize

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

// VisMode selects one of the six fragment behaviors of the splat shader. The value is
// written into the EntityParams uniform, so switching modes never rebuilds a pipeline.
type VisMode uint32

const (
	// VisModeSplat is the normal Gaussian footprint with SH color and premultiplied blend.
	VisModeSplat VisMode = iota
	// VisModePoint replaces the footprint with a fixed-size point in the edit palette.
	VisModePoint
	// VisModeRings draws concentric rings sized like Point, for hover/selection feedback.
	VisModeRings
	// VisModeCenters draws a solid disk per splat, colored by its selection state.
	VisModeCenters
	// VisModePick encodes the 1-based splat index into RGBA8 (little-endian, 0 = background).
	VisModePick
	// VisModeOutline draws only selected splats, as a mask for a later edge-detection pass.
	VisModeOutline
)

func (m VisMode) String() string {
	switch m {
	case VisModePoint:
		return "point"
	case VisModeRings:
		return "rings"
	case VisModeCenters:
		return "centers"
	case VisModePick:
		return "pick"
	case VisModeOutline:
		return "outline"
	default:
		return "splat"
	}
}

// Surface distinguishes the three pipeline-level variants of the splat draw. Everything
// else that spec §4.5 lists as a variant key (antialias, sh_degree, vis_mode,
// use_tonemapping) is uniform-driven; hdr/msaa are renderer-wide configuration.
type Surface int

const (
	// SurfaceCache renders into the Rgba8Unorm cache texture: premultiplied blend, no depth
	// attachment, single-sampled.
	SurfaceCache Surface = iota
	// SurfaceOverlay renders over the composite in the main swapchain pass: premultiplied
	// blend, depth test disabled, renderer MSAA.
	SurfaceOverlay
	// SurfacePick renders index-encoded colors with blending disabled.
	SurfacePick
)

func (s Surface) String() string {
	switch s {
	case SurfaceOverlay:
		return "overlay"
	case SurfacePick:
		return "pick"
	default:
		return "cache"
	}
}

const (
	pathVertexStandard = "rasterize/assets/splat_vertex.wgsl"
	pathVertexPacked   = "rasterize/assets/splat_vertex_packed.wgsl"
	pathFragment       = "rasterize/assets/splat_fragment.wgsl"
	pathBlitVertex     = "rasterize/assets/blit_vertex.wgsl"
	pathBlitFragment   = "rasterize/assets/blit_fragment.wgsl"
)

const blitPipelineKey = "blit"

// Bind group indices shared with the cull pass: camera, splat_store, visible_indices.
const (
	groupCamera         = 0
	groupSplatStore     = 1
	groupVisibleIndices = 2
)

const blitGroupCache = 0

// premultipliedBlend is the (1, 1-srcA) blend spec §4.5 mandates for every splat and
// overlay pass: sources already carry color pre-multiplied by alpha.
var premultipliedBlend = &wgpu.BlendState{
	Color: wgpu.BlendComponent{
		SrcFactor: wgpu.BlendFactorOne,
		DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
		Operation: wgpu.BlendOperationAdd,
	},
	Alpha: wgpu.BlendComponent{
		SrcFactor: wgpu.BlendFactorOne,
		DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
		Operation: wgpu.BlendOperationAdd,
	},
}

// PipelineKey returns the cache key for one splat pipeline variant.
func PipelineKey(surface Surface, layout gpu.LayoutMode) string {
	return fmt.Sprintf("splat_%s_%s", surface, layout)
}

// Pass owns every splat render pipeline variant plus the blit pipeline, and records the
// per-entity indirect draws.
type Pass interface {
	// Register compiles the vertex/fragment shaders and registers all pipeline variants.
	// Must be called once before any Draw/Blit call.
	Register(r renderer.Renderer) error

	// CameraLayout returns the reflected camera bind-group layout (vertex visibility), for
	// the render-stage camera bind group that shares the compute-stage camera buffer.
	CameraLayout() wgpu.BindGroupLayoutDescriptor

	// SplatStoreLayout returns the splat_store bind-group layout reflected off the vertex
	// shader for the given buffer layout mode, for gpu.Descriptors.SplatStoreRender.
	SplatStoreLayout(layout gpu.LayoutMode) wgpu.BindGroupLayoutDescriptor

	// ScratchLayout returns the visible_indices group as the render pipelines see it:
	// vertex-reflected, with fragment visibility ORed into the EntityParams binding the
	// fragment shader also reads. For gpu.Descriptors.ScratchRender.
	ScratchLayout() wgpu.BindGroupLayoutDescriptor

	// Draw records one indirect instanced draw for entityKey with the pipeline variant for
	// surface and the entity's layout mode. instance_count comes from the cull-written
	// indirect-draw struct on the GPU, never from the host.
	Draw(r renderer.Renderer, mgr gpu.Manager, entityKey string, surface Surface, cameraProvider bind_group_provider.BindGroupProvider) error

	// DrawWithScratch is Draw with the entity's visible_indices bind group replaced by
	// scratch — used by overlay/outline passes, which share the sorted indices but need
	// their own EntityParams uniform (a different vis mode within one submission).
	DrawWithScratch(r renderer.Renderer, mgr gpu.Manager, entityKey string, surface Surface, cameraProvider, scratch bind_group_provider.BindGroupProvider) error

	// RefreshBlitBindGroup rebinds the blit pass to the renderer's current cache texture
	// view. Must be called after EnsureRenderCache reports the texture was recreated.
	RefreshBlitBindGroup(r renderer.Renderer) error

	// Blit draws the cache texture over the current swapchain pass with one fullscreen
	// triangle, converting sRGB to linear in the shader.
	Blit(r renderer.Renderer) error
}

type pass struct {
	vertexStandard shader.Shader
	vertexPacked   shader.Shader
	fragment       shader.Shader

	blitVertex   shader.Shader
	blitFragment shader.Shader
	blitProvider bind_group_provider.BindGroupProvider
}

var _ Pass = &pass{}

// NewPass constructs an unregistered rasterize Pass. Call Register before drawing.
func NewPass() Pass {
	return &pass{}
}

func (p *pass) Register(r renderer.Renderer) error {
	p.vertexStandard = shader.NewShader("splat_vertex", shader.ShaderTypeVertex, pathVertexStandard)
	p.vertexPacked = shader.NewShader("splat_vertex_packed", shader.ShaderTypeVertex, pathVertexPacked)
	p.fragment = shader.NewShader("splat_fragment", shader.ShaderTypeFragment, pathFragment)
	p.blitVertex = shader.NewShader("blit_vertex", shader.ShaderTypeVertex, pathBlitVertex)
	p.blitFragment = shader.NewShader("blit_fragment", shader.ShaderTypeFragment, pathBlitFragment)

	pipelines := make([]pipeline.Pipeline, 0, 7)
	for _, layout := range []gpu.LayoutMode{gpu.LayoutStandard, gpu.LayoutPacked} {
		vs := p.vertexStandard
		if layout == gpu.LayoutPacked {
			vs = p.vertexPacked
		}

		pipelines = append(pipelines,
			pipeline.NewPipeline(PipelineKey(SurfaceCache, layout), pipeline.PipelineTypeRender,
				pipeline.WithVertexShader(vs),
				pipeline.WithFragmentShader(p.fragment),
				pipeline.WithTopology(wgpu.PrimitiveTopologyTriangleStrip),
				pipeline.WithBlendEnabled(true),
				pipeline.WithBlendState(premultipliedBlend),
				pipeline.WithColorTargetFormat(wgpu.TextureFormatRGBA8Unorm),
				pipeline.WithDepthStencilDisabled(),
				pipeline.WithSampleCount(1),
			),
			pipeline.NewPipeline(PipelineKey(SurfaceOverlay, layout), pipeline.PipelineTypeRender,
				pipeline.WithVertexShader(vs),
				pipeline.WithFragmentShader(p.fragment),
				pipeline.WithTopology(wgpu.PrimitiveTopologyTriangleStrip),
				pipeline.WithBlendEnabled(true),
				pipeline.WithBlendState(premultipliedBlend),
				pipeline.WithDepthTestEnabled(false),
				pipeline.WithDepthWriteEnabled(false),
			),
			// Pick encodes indices into color, so blending stays off.
			pipeline.NewPipeline(PipelineKey(SurfacePick, layout), pipeline.PipelineTypeRender,
				pipeline.WithVertexShader(vs),
				pipeline.WithFragmentShader(p.fragment),
				pipeline.WithTopology(wgpu.PrimitiveTopologyTriangleStrip),
				pipeline.WithColorTargetFormat(wgpu.TextureFormatRGBA8Unorm),
				pipeline.WithDepthStencilDisabled(),
				pipeline.WithSampleCount(1),
			),
		)
	}

	pipelines = append(pipelines,
		pipeline.NewPipeline(blitPipelineKey, pipeline.PipelineTypeRender,
			pipeline.WithVertexShader(p.blitVertex),
			pipeline.WithFragmentShader(p.blitFragment),
			pipeline.WithBlendEnabled(true),
			pipeline.WithBlendState(premultipliedBlend),
			pipeline.WithDepthTestEnabled(false),
			pipeline.WithDepthWriteEnabled(false),
		),
	)

	return r.RegisterPipelines(pipelines...)
}

func (p *pass) CameraLayout() wgpu.BindGroupLayoutDescriptor {
	return p.vertexStandard.BindGroupLayoutDescriptor(groupCamera)
}

func (p *pass) SplatStoreLayout(layout gpu.LayoutMode) wgpu.BindGroupLayoutDescriptor {
	if layout == gpu.LayoutPacked {
		return p.vertexPacked.BindGroupLayoutDescriptor(groupSplatStore)
	}
	return p.vertexStandard.BindGroupLayoutDescriptor(groupSplatStore)
}

func (p *pass) ScratchLayout() wgpu.BindGroupLayoutDescriptor {
	desc := p.vertexStandard.BindGroupLayoutDescriptor(groupVisibleIndices)
	entries := append([]wgpu.BindGroupLayoutEntry(nil), desc.Entries...)
	fragDesc := p.fragment.BindGroupLayoutDescriptor(groupVisibleIndices)
	for i := range entries {
		for _, fe := range fragDesc.Entries {
			if entries[i].Binding == fe.Binding {
				entries[i].Visibility |= fe.Visibility
			}
		}
	}
	desc.Entries = entries
	return desc
}

func (p *pass) Draw(r renderer.Renderer, mgr gpu.Manager, entityKey string, surface Surface, cameraProvider bind_group_provider.BindGroupProvider) error {
	return p.DrawWithScratch(r, mgr, entityKey, surface, cameraProvider, nil)
}

func (p *pass) DrawWithScratch(r renderer.Renderer, mgr gpu.Manager, entityKey string, surface Surface, cameraProvider, scratch bind_group_provider.BindGroupProvider) error {
	layout, ok := mgr.Layout(entityKey)
	if !ok {
		return fmt.Errorf("rasterize: unknown entity %q", entityKey)
	}
	splatStore := mgr.RenderProvider(entityKey)
	if scratch == nil {
		scratch = mgr.RenderScratchProvider(entityKey)
	}
	if splatStore == nil || scratch == nil {
		return fmt.Errorf("rasterize: entity %q missing render-stage splat_store or visible_indices provider", entityKey)
	}

	// The render-stage scratch group omits the indirect-args binding (its atomic counter
	// cannot be declared in a read-only vertex-stage buffer), so the DrawIndirect argument
	// buffer comes from the compute-stage provider that owns it.
	computeScratch := mgr.ScratchProvider(entityKey)
	if computeScratch == nil {
		return fmt.Errorf("rasterize: entity %q missing visible_indices provider", entityKey)
	}
	indirect := computeScratch.Buffer(gpu.BindingIndirectArgs)
	if indirect == nil {
		return fmt.Errorf("rasterize: entity %q has no indirect-draw buffer", entityKey)
	}

	key := PipelineKey(surface, layout)
	groups := []bind_group_provider.BindGroupProvider{cameraProvider, splatStore, scratch}
	return r.DrawCallIndirect(key, indirect, groups)
}

func (p *pass) RefreshBlitBindGroup(r renderer.Renderer) error {
	view := r.CacheView()
	if view == nil {
		return fmt.Errorf("rasterize: no cache texture view — call EnsureRenderCache first")
	}

	if p.blitProvider == nil {
		p.blitProvider = bind_group_provider.NewBindGroupProvider("blit cache")
		if err := r.InitSampler(p.blitProvider, 1, common.SamplerStagingData{
			AddressModeU: wgpu.AddressModeClampToEdge,
			AddressModeV: wgpu.AddressModeClampToEdge,
			AddressModeW: wgpu.AddressModeClampToEdge,
			MagFilter:    wgpu.FilterModeLinear,
			MinFilter:    wgpu.FilterModeLinear,
		}); err != nil {
			return err
		}
	}

	p.blitProvider.SetTextureView(0, view)
	return r.InitBindGroup(p.blitProvider, p.blitFragment.BindGroupLayoutDescriptor(blitGroupCache), nil, nil)
}

func (p *pass) Blit(r renderer.Renderer) error {
	if p.blitProvider == nil || p.blitProvider.BindGroup() == nil {
		return fmt.Errorf("rasterize: blit bind group not ready — call RefreshBlitBindGroup first")
	}
	return r.DrawCall(blitPipelineKey, 3, 1, []bind_group_provider.BindGroupProvider{p.blitProvider})
}
