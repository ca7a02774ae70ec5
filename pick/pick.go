// Package pick implements the GPU picker (spec component C7): a compute pass that tests
// every splat of one entity against a screen rect, world sphere, world box, or bitmap mask,
// a blocking readback of the per-splat hit words, and the application of the result to the
// splat store's selection with Set/Add/Remove semantics.
package pick

import (
	"errors"
	"fmt"

	"github.com/wjymzh/3dgs-webgpu/common"
	"github.com/wjymzh/3dgs-webgpu/engine/renderer"
	"github.com/wjymzh/3dgs-webgpu/engine/renderer/bind_group_provider"
	"github.com/wjymzh/3dgs-webgpu/engine/renderer/pipeline"
	"github.com/wjymzh/3dgs-webgpu/engine/renderer/shader"
	"github.com/wjymzh/3dgs-webgpu/gpu"
	"github.com/wjymzh/3dgs-webgpu/splat"
	"github.com/cogentcore/webgpu/wgpu"
)

const (
	keyStandard = "pick_standard"
	keyPacked   = "pick_packed"
)

const (
	pathStandard = "pick/assets/pick.wgsl"
	pathPacked   = "pick/assets/pick_packed.wgsl"
)

const (
	groupSplatStore = 0
	groupResults    = 1
	groupMask       = 2
)

const workgroupSize = 256

// RequestState tracks a pick request through its lifecycle. Failures at any stage return
// the picker to StateIdle with the store untouched.
type RequestState int

const (
	// StateIdle means no request is pending.
	StateIdle RequestState = iota
	// StateRequested means a request was submitted and awaits the next Execute.
	StateRequested
	// StateDispatched means the compute pass has been submitted to the queue.
	StateDispatched
	// StateMapped means the result buffer has been read back to the host.
	StateMapped
	// StateApplied means the selection change has been applied to the splat store.
	StateApplied
)

// Request describes one pick operation against one entity. Use the constructors below
// rather than filling the struct directly.
type Request struct {
	TargetEntity string
	Op           splat.SelectionOp
	Mode         uint32 // one of common.PickMode*
	UseRings     bool

	RectNDC        [4]float32 // min.x, min.y, max.x, max.y
	SphereCenter   [3]float32
	SphereRadius   float32
	BoxCenter      [3]float32
	BoxHalfExtents [3]float32

	// Mask is the bitmap for PickModeMask selections (e.g. a rasterized lasso); any texel
	// with red > 0.5 selects splats projecting onto it.
	Mask *common.TextureStagingData

	ViewProjection [16]float32
	Model          [16]float32
	NumSplats      int
}

// RectRequest builds a screen-rectangle pick against one entity.
func RectRequest(entity string, op splat.SelectionOp, rectNDC [4]float32, useRings bool, viewProj, model [16]float32, numSplats int) Request {
	return Request{
		TargetEntity: entity, Op: op, Mode: common.PickModeRect, UseRings: useRings,
		RectNDC: rectNDC, ViewProjection: viewProj, Model: model, NumSplats: numSplats,
	}
}

// SphereRequest builds a local-space sphere pick against one entity.
func SphereRequest(entity string, op splat.SelectionOp, center [3]float32, radius float32, useRings bool, viewProj, model [16]float32, numSplats int) Request {
	return Request{
		TargetEntity: entity, Op: op, Mode: common.PickModeSphere, UseRings: useRings,
		SphereCenter: center, SphereRadius: radius,
		ViewProjection: viewProj, Model: model, NumSplats: numSplats,
	}
}

// BoxRequest builds a local-space axis-aligned box pick against one entity.
func BoxRequest(entity string, op splat.SelectionOp, center, halfExtents [3]float32, useRings bool, viewProj, model [16]float32, numSplats int) Request {
	return Request{
		TargetEntity: entity, Op: op, Mode: common.PickModeBox, UseRings: useRings,
		BoxCenter: center, BoxHalfExtents: halfExtents,
		ViewProjection: viewProj, Model: model, NumSplats: numSplats,
	}
}

// MaskRequest builds a bitmap-mask pick (lasso-style) against one entity.
func MaskRequest(entity string, op splat.SelectionOp, mask *common.TextureStagingData, viewProj, model [16]float32, numSplats int) Request {
	return Request{
		TargetEntity: entity, Op: op, Mode: common.PickModeMask, Mask: mask,
		ViewProjection: viewProj, Model: model, NumSplats: numSplats,
	}
}

// Picker owns the pick compute pipelines and drives one request at a time through the
// dispatch / readback / apply lifecycle.
type Picker interface {
	// Register compiles and registers the standard- and packed-layout pick pipelines.
	Register(r renderer.Renderer) error

	// ResultsLayout returns the pick_results group's reflected bind-group layout, for
	// gpu.Descriptors.PickResults.
	ResultsLayout() wgpu.BindGroupLayoutDescriptor

	// Submit stores a request for the next Execute, replacing any pending one.
	Submit(req Request)

	// Clear cancels any pending request. An already-dispatched compute pass still executes,
	// but its result is discarded.
	Clear()

	// State returns the current request lifecycle state.
	State() RequestState

	// Pending returns the pending request, if any.
	Pending() (Request, bool)

	// Execute runs the pending request to completion: uniform upload, compute dispatch,
	// result readback, and selection application against store. Returns the deduplicated
	// picked indices. The request is cleared afterwards whether or not an error occurred;
	// on error the store is untouched.
	Execute(r renderer.Renderer, mgr gpu.Manager, store *splat.Store) ([]int, error)
}

type picker struct {
	standard shader.Shader
	packed   shader.Shader

	state   RequestState
	pending *Request

	defaultMask bind_group_provider.BindGroupProvider
	customMask  bind_group_provider.BindGroupProvider
}

var _ Picker = &picker{}

// NewPicker constructs an unregistered Picker. Call Register before Execute.
func NewPicker() Picker {
	return &picker{}
}

func (p *picker) Register(r renderer.Renderer) error {
	p.standard = shader.NewShader(keyStandard, shader.ShaderTypeCompute, pathStandard)
	p.packed = shader.NewShader(keyPacked, shader.ShaderTypeCompute, pathPacked)

	return r.RegisterPipelines(
		pipeline.NewPipeline(keyStandard, pipeline.PipelineTypeCompute, pipeline.WithComputeShader(p.standard)),
		pipeline.NewPipeline(keyPacked, pipeline.PipelineTypeCompute, pipeline.WithComputeShader(p.packed)),
	)
}

func (p *picker) ResultsLayout() wgpu.BindGroupLayoutDescriptor {
	return p.standard.BindGroupLayoutDescriptor(groupResults)
}

func (p *picker) Submit(req Request) {
	saved := req
	p.pending = &saved
	p.state = StateRequested
}

func (p *picker) Clear() {
	p.pending = nil
	p.state = StateIdle
}

func (p *picker) State() RequestState { return p.state }

func (p *picker) Pending() (Request, bool) {
	if p.pending == nil {
		return Request{}, false
	}
	return *p.pending, true
}

func (p *picker) Execute(r renderer.Renderer, mgr gpu.Manager, store *splat.Store) ([]int, error) {
	req, ok := p.Pending()
	if !ok {
		return nil, ErrNoRequest
	}
	defer p.Clear()

	key := req.TargetEntity
	splatStore := mgr.Provider(key)
	results := mgr.PickProvider(key)
	if splatStore == nil || results == nil {
		return nil, fmt.Errorf("pick: entity %q missing splat_store or pick_results provider", key)
	}
	layout, _ := mgr.Layout(key)

	mask, err := p.maskProvider(r, req.Mask)
	if err != nil {
		return nil, err
	}

	uniforms := common.GPUPickUniforms{
		Mode:           req.Mode,
		NumSplats:      uint32(req.NumSplats),
		ViewProjection: req.ViewProjection,
		Model:          req.Model,
		RectNDC:        req.RectNDC,
		SphereCenter:   req.SphereCenter,
		SphereRadius:   req.SphereRadius,
		BoxCenter:      req.BoxCenter,
		BoxHalfExtents: req.BoxHalfExtents,
	}
	if req.UseRings {
		uniforms.UseRings = 1
	}
	r.WriteBuffers([]bind_group_provider.BufferWrite{{
		Provider: results, Binding: gpu.BindingPickUniforms, Offset: 0, Data: uniforms.Marshal(),
	}})

	pipelineKey := keyStandard
	if layout == gpu.LayoutPacked {
		pipelineKey = keyPacked
	}
	groups := uint32((req.NumSplats + workgroupSize - 1) / workgroupSize)
	if groups > 0 {
		if err := r.BeginComputeFrame(); err != nil {
			return nil, fmt.Errorf("pick: begin compute frame: %w", err)
		}
		r.DispatchCompute(pipelineKey, []bind_group_provider.BindGroupProvider{splatStore, results, mask}, [3]uint32{groups, 1, 1})
		r.EndComputeFrame()
	}
	p.state = StateDispatched

	buf := results.Buffer(gpu.BindingPickResults)
	if buf == nil {
		return nil, fmt.Errorf("pick: entity %q has no pick_results buffer", key)
	}
	data, err := r.ReadBuffer(buf, uint64(req.NumSplats)*4)
	if err != nil {
		switch {
		case errors.Is(err, renderer.ErrBufferMapTimeout):
			return nil, fmt.Errorf("%w: entity %q", ErrPickTimeout, key)
		case errors.Is(err, renderer.ErrBufferMapFailed):
			return nil, fmt.Errorf("%w: entity %q", ErrPickMapFailure, key)
		default:
			return nil, err
		}
	}
	p.state = StateMapped

	indices := make([]int, 0, 64)
	for i := 0; i < req.NumSplats && i*4+3 < len(data); i++ {
		if data[i*4] != 0 || data[i*4+1] != 0 || data[i*4+2] != 0 || data[i*4+3] != 0 {
			indices = append(indices, i)
		}
	}

	store.SetSelection(indices, req.Op)
	p.state = StateApplied
	return indices, nil
}

// maskProvider returns the bind group for the pick_mask group: a caller-supplied bitmap for
// mask mode, or a lazily-created 1x1 white fallback for the geometric modes (the shader
// never samples it there, but the bind group must exist).
func (p *picker) maskProvider(r renderer.Renderer, staging *common.TextureStagingData) (bind_group_provider.BindGroupProvider, error) {
	desc := p.standard.BindGroupLayoutDescriptor(groupMask)

	if staging != nil {
		if p.customMask != nil {
			p.customMask.Release()
		}
		provider := bind_group_provider.NewBindGroupProvider("pick mask")
		if err := p.initMask(r, provider, desc, *staging); err != nil {
			return nil, err
		}
		p.customMask = provider
		return provider, nil
	}

	if p.defaultMask == nil {
		provider := bind_group_provider.NewBindGroupProvider("pick mask fallback")
		white := common.TextureStagingData{Pixels: []byte{255, 255, 255, 255}, Width: 1, Height: 1}
		if err := p.initMask(r, provider, desc, white); err != nil {
			return nil, err
		}
		p.defaultMask = provider
	}
	return p.defaultMask, nil
}

func (p *picker) initMask(r renderer.Renderer, provider bind_group_provider.BindGroupProvider, desc wgpu.BindGroupLayoutDescriptor, staging common.TextureStagingData) error {
	if err := r.InitTextureView(provider, 0, staging); err != nil {
		return err
	}
	if err := r.InitSampler(provider, 1, common.SamplerStagingData{
		AddressModeU: wgpu.AddressModeClampToEdge,
		AddressModeV: wgpu.AddressModeClampToEdge,
		AddressModeW: wgpu.AddressModeClampToEdge,
		MagFilter:    wgpu.FilterModeNearest,
		MinFilter:    wgpu.FilterModeNearest,
	}); err != nil {
		return err
	}
	return r.InitBindGroup(provider, desc, nil, nil)
}
