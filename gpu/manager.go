package gpu

import (
	"fmt"
	"log"
	"sync"

	"github.com/wjymzh/3dgs-webgpu/common"
	"github.com/wjymzh/3dgs-webgpu/engine/renderer"
	"github.com/wjymzh/3dgs-webgpu/engine/renderer/bind_group_provider"
	"github.com/wjymzh/3dgs-webgpu/splat"
	"github.com/cogentcore/webgpu/wgpu"
)

const defaultChunkSize = 4096

// manager is the implementation of the Manager interface.
type manager struct {
	mu sync.Mutex

	r           renderer.Renderer
	chunkSize   int
	maxCapacity int
	entities    map[string]*entityResources
	warnedSize  map[string]bool
}

// Manager owns every GPU-resident buffer a splat entity needs across one frame: the
// splat_store buffers (C1's per-splat data), the cull pass's scratch output, the radix
// sorter's ping-pong temps and histograms, the picker's result buffer, and the derived
// EntityParams/Transform uniforms cull and rasterize both read (spec §4.2). It does not own
// any pipeline — cull, sort, rasterize, and pick each reflect their own bind-group layout
// descriptors off their compiled shaders and pass them to AllocateEntity/Resize.
type Manager interface {
	// AllocateEntity creates every storage/uniform buffer key needs, sized to store.Capacity(),
	// using the group layouts described by descriptors, then performs the first upload.
	// Returns ErrResourceExhausted if the manager has a configured MaxCapacity and
	// store.Capacity() would exceed it.
	AllocateEntity(key string, store *splat.Store, layout LayoutMode, descriptors Descriptors) error

	// Update re-encodes and re-uploads key's splat_store buffers from store if store.Dirty()
	// or store.NeedsUpload() is set, then clears both flags. A no-op otherwise. If store has
	// grown past key's current capacity, the entity is transparently reallocated first.
	Update(key string, store *splat.Store, descriptors Descriptors) error

	// SyncParams rewrites key's EntityParams uniform if params differs from the last value
	// synchronised, and rewrites the indirect-draw header's vertex_count/first_vertex/
	// first_instance fields whenever point_count changes (spec §4.2 responsibility 3).
	// A no-op if nothing changed.
	SyncParams(key string, params common.GPUEntityParams) error

	// SyncTransform rewrites key's Transform uniform if model differs from the last value
	// synchronised. A no-op if nothing changed.
	SyncTransform(key string, model [16]float32) error

	// ZeroScratch clears key's per-frame cull/sort scratch (depth_keys, visible_indices, the
	// indirect-draw instance_count) ahead of a cull dispatch, per spec §4.3's pre-dispatch
	// zeroing requirement.
	ZeroScratch(key string) error

	// Resize grows key's buffers to newCapacity, preserving layout, then re-uploads from
	// store. A no-op if newCapacity <= the entity's current capacity.
	Resize(key string, store *splat.Store, newCapacity int, descriptors Descriptors) error

	// Provider returns the splat_store BindGroupProvider for key (compute visibility), or
	// nil if key is unknown.
	Provider(key string) bind_group_provider.BindGroupProvider

	// ScratchProvider returns the visible_indices BindGroupProvider for key (compute
	// visibility), or nil.
	ScratchProvider(key string) bind_group_provider.BindGroupProvider

	// RenderProvider returns the render-stage splat_store BindGroupProvider for key, or nil.
	// It shares buffers with Provider but carries vertex/fragment visibility.
	RenderProvider(key string) bind_group_provider.BindGroupProvider

	// RenderScratchProvider returns the render-stage visible_indices BindGroupProvider for
	// key, or nil.
	RenderScratchProvider(key string) bind_group_provider.BindGroupProvider

	// SortKeysProvider returns the sort_keys BindGroupProvider for key, or nil.
	SortKeysProvider(key string) bind_group_provider.BindGroupProvider

	// SortHistogramProvider returns the sort_histogram BindGroupProvider for key, or nil.
	SortHistogramProvider(key string) bind_group_provider.BindGroupProvider

	// PickProvider returns the pick_results BindGroupProvider for key, or nil.
	PickProvider(key string) bind_group_provider.BindGroupProvider

	// Layout returns the layout mode key was allocated under, and whether key is known.
	Layout(key string) (LayoutMode, bool)

	// Capacity returns key's current GPU-allocated capacity, and whether key is known.
	Capacity(key string) (int, bool)

	// Release frees key's GPU resources and forgets it.
	Release(key string)

	// ReleaseAll releases every entity's GPU resources.
	ReleaseAll()
}

var _ Manager = &manager{}

// NewManager creates a Manager backed by r. See WithChunkSize and WithMaxCapacity for the
// available construction options.
func NewManager(r renderer.Renderer, options ...ManagerOption) Manager {
	m := &manager{
		r:          r,
		chunkSize:  defaultChunkSize,
		entities:   make(map[string]*entityResources),
		warnedSize: make(map[string]bool),
	}
	for _, opt := range options {
		opt(m)
	}
	return m
}

func (m *manager) AllocateEntity(key string, store *splat.Store, layout LayoutMode, descriptors Descriptors) error {
	m.mu.Lock()
	if m.maxCapacity > 0 && store.Capacity() > m.maxCapacity {
		m.mu.Unlock()
		return fmt.Errorf("%w: entity %q requests capacity %d, max is %d", ErrResourceExhausted, key, store.Capacity(), m.maxCapacity)
	}

	entity := &entityResources{layout: layout, capacity: store.Capacity()}
	entity.provider = bind_group_provider.NewBindGroupProvider(key + " splat store")
	if hasEntries(descriptors.Scratch) {
		entity.scratchProvider = bind_group_provider.NewBindGroupProvider(key + " scratch")
	}
	if hasEntries(descriptors.SplatStoreRender) {
		entity.renderProvider = bind_group_provider.NewBindGroupProvider(key + " splat store render")
	}
	if hasEntries(descriptors.ScratchRender) && hasEntries(descriptors.Scratch) {
		entity.renderScratchProvider = bind_group_provider.NewBindGroupProvider(key + " scratch render")
	}
	if hasEntries(descriptors.SortKeys) {
		entity.sortKeysProvider = bind_group_provider.NewBindGroupProvider(key + " sort keys")
	}
	if hasEntries(descriptors.SortHistogram) {
		entity.histogramProvider = bind_group_provider.NewBindGroupProvider(key + " sort histogram")
	}
	if hasEntries(descriptors.PickResults) {
		entity.pickProvider = bind_group_provider.NewBindGroupProvider(key + " pick results")
	}
	m.entities[key] = entity
	m.mu.Unlock()

	if err := m.r.InitBindGroup(entity.provider, descriptors.SplatStore, nil, fieldSizes(layout, entity.capacity)); err != nil {
		m.forget(key)
		return err
	}
	if entity.scratchProvider != nil {
		// The indirect-args buffer is both a storage binding (the cull pass's atomic counter)
		// and the DrawIndirect argument source, so it needs the Indirect usage bit on top of
		// what InitBindGroup derives from the layout.
		usage := map[int]wgpu.BufferUsage{BindingIndirectArgs: wgpu.BufferUsageIndirect}
		if err := m.r.InitBindGroup(entity.scratchProvider, descriptors.Scratch, usage, scratchFieldSizes(entity.capacity)); err != nil {
			m.forget(key)
			return err
		}
	}
	if entity.sortKeysProvider != nil {
		if err := m.r.InitBindGroup(entity.sortKeysProvider, descriptors.SortKeys, nil, sortKeysFieldSizes(entity.capacity)); err != nil {
			m.forget(key)
			return err
		}
	}
	if entity.histogramProvider != nil {
		if err := m.r.InitBindGroup(entity.histogramProvider, descriptors.SortHistogram, nil, sortHistogramFieldSizes(entity.capacity)); err != nil {
			m.forget(key)
			return err
		}
	}
	if entity.pickProvider != nil {
		// Pick results are copied to a staging buffer for host readback, so the result
		// buffer needs CopySrc.
		usage := map[int]wgpu.BufferUsage{BindingPickResults: wgpu.BufferUsageCopySrc}
		if err := m.r.InitBindGroup(entity.pickProvider, descriptors.PickResults, usage, pickFieldSizes(entity.capacity)); err != nil {
			m.forget(key)
			return err
		}
	}

	// Render-stage twins: same buffers, vertex/fragment-visibility bind groups. Pre-seeding
	// every buffer before InitBindGroup makes it reuse them instead of allocating.
	if entity.renderProvider != nil {
		shareBuffers(entity.provider, entity.renderProvider, descriptors.SplatStoreRender)
		if err := m.r.InitBindGroup(entity.renderProvider, descriptors.SplatStoreRender, nil, fieldSizes(layout, entity.capacity)); err != nil {
			m.forget(key)
			return err
		}
	}
	if entity.renderScratchProvider != nil {
		shareBuffers(entity.scratchProvider, entity.renderScratchProvider, descriptors.ScratchRender)
		if err := m.r.InitBindGroup(entity.renderScratchProvider, descriptors.ScratchRender, nil, scratchFieldSizes(entity.capacity)); err != nil {
			m.forget(key)
			return err
		}
	}

	if entity.scratchProvider != nil {
		args := common.GPUIndirectArgs{VertexCount: 4, InstanceCount: 0, FirstVertex: 0, FirstInstance: 0}
		m.r.WriteBuffers([]bind_group_provider.BufferWrite{{
			Provider: entity.scratchProvider, Binding: BindingIndirectArgs, Offset: 0, Data: args.Marshal(),
		}})
	}

	return m.Update(key, store, descriptors)
}

func (m *manager) forget(key string) {
	m.mu.Lock()
	delete(m.entities, key)
	m.mu.Unlock()
}

func (m *manager) Update(key string, store *splat.Store, descriptors Descriptors) error {
	m.mu.Lock()
	entity, ok := m.entities[key]
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownEntity, key)
	}

	if store.Len() > entity.capacity {
		if err := m.Resize(key, store, store.Capacity(), descriptors); err != nil {
			return err
		}
		return nil
	}

	if !store.Dirty() && !store.NeedsUpload() {
		return nil
	}

	if len(store.State()) != store.Len() {
		if !m.warnedSize[key] {
			log.Printf("gpu: entity %q state length %d does not match splat count %d, skipping state upload", key, len(store.State()), store.Len())
			m.warnedSize[key] = true
		}
	} else {
		delete(m.warnedSize, key)
	}

	writes := m.encode(entity, store)
	m.r.WriteBuffers(writes)

	entity.count = store.Len()
	store.ClearDirty()
	store.SetNeedsUpload(false)
	return nil
}

func (m *manager) SyncParams(key string, params common.GPUEntityParams) error {
	m.mu.Lock()
	entity, ok := m.entities[key]
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownEntity, key)
	}
	if entity.scratchProvider == nil {
		return nil
	}
	if entity.lastParams != nil && *entity.lastParams == params {
		return nil
	}

	writes := []bind_group_provider.BufferWrite{{
		Provider: entity.scratchProvider, Binding: BindingEntityParams, Offset: 0, Data: params.Marshal(),
	}}
	if entity.lastParams == nil || entity.lastParams.PointCount != params.PointCount {
		args := common.GPUIndirectArgs{VertexCount: 4, InstanceCount: 0, FirstVertex: 0, FirstInstance: 0}
		writes = append(writes, bind_group_provider.BufferWrite{
			Provider: entity.scratchProvider, Binding: BindingIndirectArgs, Offset: 0, Data: args.Marshal(),
		})
	}
	m.r.WriteBuffers(writes)

	saved := params
	entity.lastParams = &saved
	return nil
}

func (m *manager) SyncTransform(key string, model [16]float32) error {
	m.mu.Lock()
	entity, ok := m.entities[key]
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownEntity, key)
	}
	if entity.scratchProvider == nil {
		return nil
	}
	if entity.lastTransform != nil && entity.lastTransform.Model == model {
		return nil
	}

	transform := common.GPUEntityTransform{Model: model}
	m.r.WriteBuffers([]bind_group_provider.BufferWrite{{
		Provider: entity.scratchProvider, Binding: BindingTransform, Offset: 0, Data: transform.Marshal(),
	}})
	entity.lastTransform = &transform
	return nil
}

func (m *manager) ZeroScratch(key string) error {
	m.mu.Lock()
	entity, ok := m.entities[key]
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownEntity, key)
	}
	if entity.scratchProvider == nil {
		return nil
	}

	n := entity.capacity
	zeroKeys := make([]byte, n*4)
	zeroIndices := make([]byte, n*4)
	args := common.GPUIndirectArgs{VertexCount: 4, InstanceCount: 0, FirstVertex: 0, FirstInstance: 0}

	writes := []bind_group_provider.BufferWrite{
		{Provider: entity.scratchProvider, Binding: BindingDepthKeys, Offset: 0, Data: zeroKeys},
		{Provider: entity.scratchProvider, Binding: BindingVisibleIndices, Offset: 0, Data: zeroIndices},
		{Provider: entity.scratchProvider, Binding: BindingIndirectArgs, Offset: 0, Data: args.Marshal()},
	}
	if entity.histogramProvider != nil {
		sizes := sortHistogramFieldSizes(n)
		writes = append(writes,
			bind_group_provider.BufferWrite{Provider: entity.histogramProvider, Binding: BindingGlobalHistogram, Offset: 0, Data: make([]byte, sizes[BindingGlobalHistogram])},
			bind_group_provider.BufferWrite{Provider: entity.histogramProvider, Binding: BindingPartitionHistogram, Offset: 0, Data: make([]byte, sizes[BindingPartitionHistogram])},
		)
	}
	m.r.WriteBuffers(writes)
	return nil
}

func (m *manager) Resize(key string, store *splat.Store, newCapacity int, descriptors Descriptors) error {
	m.mu.Lock()
	entity, ok := m.entities[key]
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownEntity, key)
	}
	if newCapacity <= entity.capacity {
		return nil
	}
	if m.maxCapacity > 0 && newCapacity > m.maxCapacity {
		return fmt.Errorf("%w: entity %q requests capacity %d, max is %d", ErrResourceExhausted, key, newCapacity, m.maxCapacity)
	}

	layout := entity.layout
	m.Release(key)
	store.SetNeedsUpload(true)
	return m.AllocateEntity(key, store, layout, descriptors)
}

// shareBuffers seeds dst with src's buffers for every binding dst's descriptor declares,
// so InitBindGroup wraps the existing allocations in a second bind group instead of
// creating new ones.
func shareBuffers(src, dst bind_group_provider.BindGroupProvider, desc wgpu.BindGroupLayoutDescriptor) {
	for _, entry := range desc.Entries {
		binding := int(entry.Binding)
		if buf := src.Buffer(binding); buf != nil {
			dst.SetBuffer(binding, buf)
		}
	}
}

// releaseTwin detaches a render twin's shared buffers before releasing it, so the buffers
// are only released once, by the owning compute-side provider.
func releaseTwin(p bind_group_provider.BindGroupProvider) {
	if p == nil {
		return
	}
	p.SetBuffers(map[int]*wgpu.Buffer{})
	p.Release()
}

func (m *manager) Provider(key string) bind_group_provider.BindGroupProvider {
	return m.lookup(key, func(e *entityResources) bind_group_provider.BindGroupProvider { return e.provider })
}

func (m *manager) RenderProvider(key string) bind_group_provider.BindGroupProvider {
	return m.lookup(key, func(e *entityResources) bind_group_provider.BindGroupProvider { return e.renderProvider })
}

func (m *manager) RenderScratchProvider(key string) bind_group_provider.BindGroupProvider {
	return m.lookup(key, func(e *entityResources) bind_group_provider.BindGroupProvider { return e.renderScratchProvider })
}

func (m *manager) ScratchProvider(key string) bind_group_provider.BindGroupProvider {
	return m.lookup(key, func(e *entityResources) bind_group_provider.BindGroupProvider { return e.scratchProvider })
}

func (m *manager) SortKeysProvider(key string) bind_group_provider.BindGroupProvider {
	return m.lookup(key, func(e *entityResources) bind_group_provider.BindGroupProvider { return e.sortKeysProvider })
}

func (m *manager) SortHistogramProvider(key string) bind_group_provider.BindGroupProvider {
	return m.lookup(key, func(e *entityResources) bind_group_provider.BindGroupProvider { return e.histogramProvider })
}

func (m *manager) PickProvider(key string) bind_group_provider.BindGroupProvider {
	return m.lookup(key, func(e *entityResources) bind_group_provider.BindGroupProvider { return e.pickProvider })
}

func (m *manager) lookup(key string, f func(*entityResources) bind_group_provider.BindGroupProvider) bind_group_provider.BindGroupProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	entity, ok := m.entities[key]
	if !ok {
		return nil
	}
	return f(entity)
}

func (m *manager) Layout(key string) (LayoutMode, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entity, ok := m.entities[key]
	if !ok {
		return 0, false
	}
	return entity.layout, true
}

func (m *manager) Capacity(key string) (int, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entity, ok := m.entities[key]
	if !ok {
		return 0, false
	}
	return entity.capacity, true
}

func (m *manager) Release(key string) {
	m.mu.Lock()
	entity, ok := m.entities[key]
	delete(m.entities, key)
	delete(m.warnedSize, key)
	m.mu.Unlock()
	if !ok {
		return
	}
	releaseTwin(entity.renderProvider)
	releaseTwin(entity.renderScratchProvider)
	entity.provider.Release()
	for _, p := range []bind_group_provider.BindGroupProvider{entity.scratchProvider, entity.sortKeysProvider, entity.histogramProvider, entity.pickProvider} {
		if p != nil {
			p.Release()
		}
	}
}

func (m *manager) ReleaseAll() {
	m.mu.Lock()
	keys := make([]string, 0, len(m.entities))
	for k := range m.entities {
		keys = append(keys, k)
	}
	m.mu.Unlock()
	for _, k := range keys {
		m.Release(k)
	}
}

// encode chunks store's splats into ~chunkSize-sized ranges, writes each chunk's GPU-layout
// bytes on its own goroutine (chunks touch disjoint byte ranges of each destination buffer,
// so no synchronization is needed beyond the final WaitGroup join), and returns one
// BufferWrite per destination buffer.
func (m *manager) encode(entity *entityResources, store *splat.Store) []bind_group_provider.BufferWrite {
	n := store.Len()
	sizes := fieldSizes(entity.layout, n)
	buffers := make(map[int][]byte, len(sizes))
	for binding, size := range sizes {
		buffers[binding] = make([]byte, size)
	}

	stateBinding := BindingState
	if entity.layout == LayoutPacked {
		stateBinding = BindingPackedState
	}
	if len(store.State()) == n {
		state := make([]byte, n*4)
		for i := 0; i < n; i++ {
			state[i*4] = store.State()[i]
		}
		buffers[stateBinding] = state
	} else {
		// State length disagrees with the splat count (Update logs it): the GPU state
		// buffer is left as it is for this upload.
		delete(buffers, stateBinding)
	}

	var wg sync.WaitGroup
	chunkSize := m.chunkSize
	if chunkSize <= 0 {
		chunkSize = defaultChunkSize
	}
	for lo := 0; lo < n; lo += chunkSize {
		hi := min(lo+chunkSize, n)
		wg.Add(1)
		go func(lo, hi int) {
			defer wg.Done()
			if entity.layout == LayoutPacked {
				store.WritePackedChunk(lo, hi,
					buffers[BindingPackedPositions],
					buffers[BindingPackedWords],
					buffers[BindingPackedDCColor],
					buffers[BindingPackedSH],
				)
			} else {
				store.WriteStandardChunk(lo, hi,
					buffers[BindingPositions],
					buffers[BindingDCColor],
					buffers[BindingScale],
					buffers[BindingOpacity],
					buffers[BindingRotation],
					buffers[BindingSHHigher],
				)
			}
		}(lo, hi)
	}
	wg.Wait()

	writes := make([]bind_group_provider.BufferWrite, 0, len(buffers))
	for binding, data := range buffers {
		writes = append(writes, bind_group_provider.BufferWrite{
			Provider: entity.provider,
			Binding:  binding,
			Offset:   0,
			Data:     data,
		})
	}
	return writes
}
