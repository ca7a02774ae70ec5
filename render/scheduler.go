// Package render is the top-level per-frame scheduler: it drives the Extract, Prepare,
// PrepareBindGroups, Render, and Cleanup stages across every splat entity, wiring the
// splat store (C1), GPU resource manager (C2), cull pass (C3), radix sorter (C4),
// rasterizer (C5), temporal-coherence controller (C6), and GPU picker (C7) into one frame.
package render

import (
	"fmt"
	"log"
	"math"
	"sort"

	"github.com/wjymzh/3dgs-webgpu/coherence"
	"github.com/wjymzh/3dgs-webgpu/common"
	cullpass "github.com/wjymzh/3dgs-webgpu/cull"
	"github.com/wjymzh/3dgs-webgpu/engine/renderer"
	"github.com/wjymzh/3dgs-webgpu/engine/renderer/bind_group_provider"
	"github.com/wjymzh/3dgs-webgpu/gpu"
	"github.com/wjymzh/3dgs-webgpu/pick"
	"github.com/wjymzh/3dgs-webgpu/rasterize"
	sortpass "github.com/wjymzh/3dgs-webgpu/sort"
	"github.com/wjymzh/3dgs-webgpu/splat"
	"github.com/cogentcore/webgpu/wgpu"
)

// Scheduler owns one renderer's worth of splat entities and renders them once per Frame
// call. All methods must be called from the render thread; producers hand stores over and
// signal updates via the store's NeedsUpload tag.
type Scheduler struct {
	r      renderer.Renderer
	mgr    gpu.Manager
	cull   cullpass.Pass
	sorter sortpass.Pass
	raster rasterize.Pass
	picker pick.Picker

	ctrl  *coherence.Controller
	cache *coherence.Cache

	cameraCompute bind_group_provider.BindGroupProvider
	cameraRender  bind_group_provider.BindGroupProvider

	entities map[string]*entityRecord
	order    []string

	width  int
	height int

	warned map[string]bool
}

// SchedulerOption configures a Scheduler during construction.
type SchedulerOption func(*schedulerConfig)

type schedulerConfig struct {
	coherence coherence.Config
	manager   []gpu.ManagerOption
}

// WithCoherence selects the temporal-coherence configuration (see the presets in the
// coherence package). Defaults to coherence.DefaultConfig.
func WithCoherence(cfg coherence.Config) SchedulerOption {
	return func(c *schedulerConfig) {
		c.coherence = cfg
	}
}

// WithManagerOptions forwards options to the GPU resource manager.
func WithManagerOptions(options ...gpu.ManagerOption) SchedulerOption {
	return func(c *schedulerConfig) {
		c.manager = append(c.manager, options...)
	}
}

// NewScheduler registers every pipeline (cull, sort, rasterize variants, blit, pick) with
// r and builds the shared camera bind groups. Shader compilation failures are fatal here
// and only here; once a pipeline has compiled it is considered stable for the process
// lifetime.
func NewScheduler(r renderer.Renderer, width, height int, options ...SchedulerOption) (*Scheduler, error) {
	cfg := schedulerConfig{coherence: coherence.DefaultConfig()}
	for _, opt := range options {
		opt(&cfg)
	}

	s := &Scheduler{
		r:        r,
		cull:     cullpass.NewPass(),
		sorter:   sortpass.NewPass(),
		raster:   rasterize.NewPass(),
		picker:   pick.NewPicker(),
		ctrl:     coherence.NewController(cfg.coherence),
		cache:    &coherence.Cache{},
		entities: make(map[string]*entityRecord),
		width:    width,
		height:   height,
		warned:   make(map[string]bool),
	}
	s.mgr = gpu.NewManager(r, cfg.manager...)

	if err := s.cull.Register(r); err != nil {
		return nil, fmt.Errorf("render: register cull pipelines: %w", err)
	}
	if err := s.sorter.Register(r); err != nil {
		return nil, fmt.Errorf("render: register sort pipelines: %w", err)
	}
	if err := s.raster.Register(r); err != nil {
		return nil, fmt.Errorf("render: register rasterize pipelines: %w", err)
	}
	if err := s.picker.Register(r); err != nil {
		return nil, fmt.Errorf("render: register pick pipelines: %w", err)
	}

	// One camera uniform buffer, two bind groups: the compute passes and the render
	// pipelines disagree on stage visibility, and a bind group is only compatible with
	// pipeline layouts of identical visibility.
	s.cameraCompute = bind_group_provider.NewBindGroupProvider("camera compute")
	if err := r.InitBindGroup(s.cameraCompute, s.cull.CameraLayout(), nil, nil); err != nil {
		return nil, fmt.Errorf("render: init camera bind group: %w", err)
	}
	s.cameraRender = bind_group_provider.NewBindGroupProvider("camera render")
	s.cameraRender.SetBuffer(0, s.cameraCompute.Buffer(0))
	if err := r.InitBindGroup(s.cameraRender, s.raster.CameraLayout(), nil, nil); err != nil {
		return nil, fmt.Errorf("render: init render camera bind group: %w", err)
	}

	return s, nil
}

// Coherence returns the temporal-coherence controller, for callers adjusting thresholds
// or reading stats.
func (s *Scheduler) Coherence() *coherence.Controller { return s.ctrl }

// Resize records a new viewport size. The renderer surface must be resized by the caller;
// the cache texture follows on the next Frame.
func (s *Scheduler) Resize(width, height int) {
	s.width = width
	s.height = height
}

// AddEntity hands a splat store over to the renderer under a unique key. The PackMode
// field of options fixes the GPU buffer layout for the entity's lifetime.
func (s *Scheduler) AddEntity(key string, store *splat.Store, options Options) error {
	if _, exists := s.entities[key]; exists {
		return fmt.Errorf("%w: entity %q already exists", splat.ErrConfiguration, key)
	}
	e := &entityRecord{key: key, store: store, options: options, transformDirty: true}
	identity(&e.model)
	s.entities[key] = e
	s.order = append(s.order, key)
	sort.Strings(s.order)
	store.SetNeedsUpload(true)
	return nil
}

// RemoveEntity despawns an entity and frees its GPU resources.
func (s *Scheduler) RemoveEntity(key string) {
	e, ok := s.entities[key]
	if !ok {
		return
	}
	s.releaseAux(e)
	s.mgr.Release(key)
	delete(s.entities, key)
	for i, k := range s.order {
		if k == key {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

// Store returns the splat store registered under key, or nil.
func (s *Scheduler) Store(key string) *splat.Store {
	if e, ok := s.entities[key]; ok {
		return e.store
	}
	return nil
}

// SetOptions replaces an entity's rendering configuration. PackMode changes are ignored.
func (s *Scheduler) SetOptions(key string, options Options) {
	if e, ok := s.entities[key]; ok {
		options.PackMode = e.options.PackMode
		e.options = options
	}
}

// Options returns an entity's current configuration.
func (s *Scheduler) Options(key string) (Options, bool) {
	if e, ok := s.entities[key]; ok {
		return e.options, true
	}
	return Options{}, false
}

// SetTransform replaces an entity's model matrix (column-major).
func (s *Scheduler) SetTransform(key string, model [16]float32) {
	if e, ok := s.entities[key]; ok && e.model != model {
		e.model = model
		e.transformDirty = true
	}
}

// SubmitPick queues a pick request; it executes during the next Frame's cleanup stage.
func (s *Scheduler) SubmitPick(req pick.Request) {
	s.picker.Submit(req)
}

// CancelPick clears any pending pick request.
func (s *Scheduler) CancelPick() {
	s.picker.Clear()
}

// Frame renders one frame with the given camera: decide skip level, upload pending data,
// cull+sort each entity, render into the cache, composite to the screen, then run pending
// readbacks.
func (s *Scheduler) Frame(cam Camera) error {
	if s.width == 0 || s.height == 0 {
		return nil
	}

	// Extract: gather the update signals the coherence decision needs.
	dataUpdated := false
	allTraining := len(s.entities) > 0
	for _, key := range s.order {
		e := s.entities[key]
		if e.store.NeedsUpload() || e.store.Dirty() || e.transformDirty {
			dataUpdated = true
		}
		if !e.store.TrainingMode() {
			allTraining = false
		}
	}

	if s.cache.Ensure(s.r, s.width, s.height) {
		if err := s.raster.RefreshBlitBindGroup(s.r); err != nil {
			return fmt.Errorf("render: refresh blit bind group: %w", err)
		}
	}
	if dataUpdated {
		s.cache.Invalidate()
	}

	decision := s.ctrl.Decide(cam.Pose(), dataUpdated, allTraining, s.cache.Valid())

	if decision.SkipRender {
		if err := s.composite(); err != nil {
			return err
		}
		s.cleanup()
		return nil
	}

	// Prepare: camera uniform, then per-entity buffers/uniforms.
	camU := cam.uniform(s.width, s.height)
	s.r.WriteBuffers([]bind_group_provider.BufferWrite{{
		Provider: s.cameraCompute, Binding: 0, Offset: 0, Data: camU.Marshal(),
	}})
	for _, key := range s.order {
		s.prepareEntity(s.entities[key])
	}

	// Compute: cull then sort, per entity, unless the camera is static. A whole-entity
	// bounding-sphere test against the frustum elides the per-splat dispatches for
	// entities that are entirely off screen.
	frustum := common.ExtractFrustumFromMatrix(cam.ViewProj[:])
	if !decision.SkipSort {
		for _, key := range s.order {
			e := s.entities[key]
			if e.state != EntityDrawable || !entityInFrustum(e, &frustum) {
				continue
			}
			if err := s.cull.Dispatch(s.r, s.mgr, key, s.cameraCompute, e.store.Len()); err != nil {
				s.warnOnce(key, "cull", err)
				continue
			}
			capacity, _ := s.mgr.Capacity(key)
			if err := s.sorter.Run(s.r, s.mgr, key, capacity); err != nil {
				s.warnOnce(key, "sort", err)
			}
		}
	}

	// Render: every drawable entity into the cache, then composite.
	if err := s.r.BeginCacheFrame(); err != nil {
		return fmt.Errorf("render: begin cache frame: %w", err)
	}
	rendered := false
	for _, key := range s.order {
		e := s.entities[key]
		if e.state != EntityDrawable {
			continue
		}
		if err := s.raster.Draw(s.r, s.mgr, key, rasterize.SurfaceCache, s.cameraRender); err != nil {
			s.warnOnce(key, "draw", err)
			continue
		}
		rendered = true
	}
	s.r.EndCacheFrame()
	if rendered || len(s.entities) == 0 {
		s.cache.MarkValid()
	}

	if err := s.composite(); err != nil {
		return err
	}

	s.cleanup()
	return nil
}

// composite blits the cache to the swapchain and draws overlay/outline passes on top.
func (s *Scheduler) composite() error {
	if err := s.r.BeginFrame(); err != nil {
		return fmt.Errorf("render: begin frame: %w", err)
	}
	if err := s.raster.Blit(s.r); err != nil {
		log.Printf("render: blit: %v", err)
	}

	for _, key := range s.order {
		e := s.entities[key]
		if e.state != EntityDrawable {
			continue
		}
		if e.options.ShowSelectionOverlay && e.overlayScratch != nil {
			if err := s.raster.DrawWithScratch(s.r, s.mgr, key, rasterize.SurfaceOverlay, s.cameraRender, e.overlayScratch); err != nil {
				s.warnOnce(key, "overlay", err)
			}
		}
		if e.options.ShowOutline && e.outlineScratch != nil {
			if err := s.raster.DrawWithScratch(s.r, s.mgr, key, rasterize.SurfaceOverlay, s.cameraRender, e.outlineScratch); err != nil {
				s.warnOnce(key, "outline", err)
			}
		}
	}

	s.r.EndFrame()
	s.r.Present()
	return nil
}

// cleanup runs the readback stage: a pending pick executes against its target entity's
// store. Pick failures abort the request and leave the selection untouched.
func (s *Scheduler) cleanup() {
	req, ok := s.picker.Pending()
	if !ok {
		return
	}
	e, ok := s.entities[req.TargetEntity]
	if !ok {
		s.picker.Clear()
		return
	}
	if _, err := s.picker.Execute(s.r, s.mgr, e.store); err != nil {
		log.Printf("render: pick against %q: %v", req.TargetEntity, err)
	}
}

// prepareEntity walks one entity through its lifecycle for this frame: allocate on first
// sight, drop-and-skip on capacity overflow, upload pending data, synchronise uniforms.
func (s *Scheduler) prepareEntity(e *entityRecord) {
	layout := gpu.LayoutStandard
	if e.options.PackMode {
		layout = gpu.LayoutPacked
	}
	desc := s.descriptors(layout)

	if e.state == EntityUninitialised {
		if err := s.mgr.AllocateEntity(e.key, e.store, layout, desc); err != nil {
			s.warnOnce(e.key, "allocate", err)
			return
		}
		e.state = EntityBindGroupsReady
		delete(s.warned, e.key+"/allocate")
	}

	if capacity, ok := s.mgr.Capacity(e.key); ok && e.store.Len() > capacity {
		// Capacity exceeded: drop the GPU buffers, reallocate next frame, skip this one.
		s.releaseAux(e)
		s.mgr.Release(e.key)
		e.state = EntityUninitialised
		e.store.SetNeedsUpload(true)
		return
	}

	if err := s.mgr.Update(e.key, e.store, desc); err != nil {
		s.warnOnce(e.key, "update", err)
		return
	}

	degree := e.store.Degree()
	params := e.options.params(e.store.Len(), s.width, s.height, degree, e.options.VisMode)
	if err := s.mgr.SyncParams(e.key, params); err != nil {
		s.warnOnce(e.key, "params", err)
		return
	}
	if err := s.mgr.SyncTransform(e.key, e.model); err != nil {
		s.warnOnce(e.key, "transform", err)
		return
	}
	e.transformDirty = false

	if e.options.ShowSelectionOverlay {
		overlay := e.options.params(e.store.Len(), s.width, s.height, degree, e.options.OverlayVisMode)
		s.syncAuxParams(e, &e.overlayScratch, &e.lastOverlayParams, overlay, "overlay")
	}
	if e.options.ShowOutline {
		outline := e.options.params(e.store.Len(), s.width, s.height, degree, rasterize.VisModeOutline)
		s.syncAuxParams(e, &e.outlineScratch, &e.lastOutlineParams, outline, "outline")
	}

	e.state = EntityDrawable
}

// syncAuxParams lazily creates an overlay/outline scratch bind group (shared buffers, own
// EntityParams uniform) and rewrites its params when they changed.
func (s *Scheduler) syncAuxParams(e *entityRecord, provider *bind_group_provider.BindGroupProvider, last **common.GPUEntityParams, params common.GPUEntityParams, label string) {
	if *provider == nil {
		base := s.mgr.ScratchProvider(e.key)
		if base == nil {
			return
		}
		desc := s.raster.ScratchLayout()
		p := bind_group_provider.NewBindGroupProvider(e.key + " " + label + " scratch")
		for _, entry := range desc.Entries {
			binding := int(entry.Binding)
			if binding == gpu.BindingEntityParams {
				continue
			}
			if buf := base.Buffer(binding); buf != nil {
				p.SetBuffer(binding, buf)
			}
		}
		sizes := map[int]uint64{gpu.BindingEntityParams: uint64(params.Size())}
		if err := s.r.InitBindGroup(p, desc, nil, sizes); err != nil {
			s.warnOnce(e.key, label, err)
			return
		}
		*provider = p
	}
	if *last == nil || **last != params {
		s.r.WriteBuffers([]bind_group_provider.BufferWrite{{
			Provider: *provider, Binding: gpu.BindingEntityParams, Offset: 0, Data: params.Marshal(),
		}})
		saved := params
		*last = &saved
	}
}

// releaseAux frees an entity's overlay/outline bind groups, detaching the buffers shared
// with the scratch provider so they are released exactly once.
func (s *Scheduler) releaseAux(e *entityRecord) {
	for _, p := range []*bind_group_provider.BindGroupProvider{&e.overlayScratch, &e.outlineScratch} {
		if *p == nil {
			continue
		}
		own := (*p).Buffer(gpu.BindingEntityParams)
		(*p).SetBuffers(map[int]*wgpu.Buffer{gpu.BindingEntityParams: own})
		(*p).Release()
		*p = nil
	}
	e.lastOverlayParams = nil
	e.lastOutlineParams = nil
}

func (s *Scheduler) descriptors(layout gpu.LayoutMode) gpu.Descriptors {
	return gpu.Descriptors{
		SplatStore:       s.cull.SplatStoreLayout(layout),
		Scratch:          s.cull.ScratchLayout(),
		SplatStoreRender: s.raster.SplatStoreLayout(layout),
		ScratchRender:    s.raster.ScratchLayout(),
		SortKeys:         s.sorter.SortKeysLayout(),
		SortHistogram:    s.sorter.SortHistogramLayout(),
		PickResults:      s.picker.ResultsLayout(),
	}
}

// warnOnce logs a per-entity, per-stage failure only the first time it occurs, matching the
// "log once per entity and continue" failure policy. Only the allocate stage's warning is
// re-armed, after a successful allocation.
func (s *Scheduler) warnOnce(key, stage string, err error) {
	k := key + "/" + stage
	if s.warned[k] {
		return
	}
	s.warned[k] = true
	log.Printf("render: %s %q: %v", stage, key, err)
}

// entityInFrustum tests an entity's model-transformed bounding sphere against the view
// frustum. Conservative: the sphere radius is scaled by the largest model column norm.
func entityInFrustum(e *entityRecord, f *common.Frustum) bool {
	if e.store.Len() == 0 {
		return false
	}
	c := e.store.Center()
	size := e.store.Size()
	radius := float32(math.Sqrt(float64(size[0]*size[0]+size[1]*size[1]+size[2]*size[2]))) / 2

	m := e.model
	var world [3]float32
	for r := 0; r < 3; r++ {
		world[r] = m[0*4+r]*c[0] + m[1*4+r]*c[1] + m[2*4+r]*c[2] + m[3*4+r]
	}
	maxScale := float32(0)
	for col := 0; col < 3; col++ {
		l := float32(math.Sqrt(float64(m[col*4]*m[col*4] + m[col*4+1]*m[col*4+1] + m[col*4+2]*m[col*4+2])))
		if l > maxScale {
			maxScale = l
		}
	}

	return f.ContainsSphere(world, radius*maxScale)
}

func identity(m *[16]float32) {
	for i := range m {
		m[i] = 0
	}
	m[0], m[5], m[10], m[15] = 1, 1, 1, 1
}
