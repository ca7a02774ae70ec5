package render

import (
	"github.com/wjymzh/3dgs-webgpu/common"
	"github.com/wjymzh/3dgs-webgpu/engine/renderer/bind_group_provider"
	"github.com/wjymzh/3dgs-webgpu/splat"
)

// EntityState is the render-side lifecycle of one splat entity. A capacity-exceeded or
// resize event demotes the entity back to EntityUninitialised; the next frame re-allocates.
type EntityState int

const (
	// EntityUninitialised means no GPU resources exist yet.
	EntityUninitialised EntityState = iota
	// EntityBuffersReady means buffers are allocated but bind groups are not.
	EntityBuffersReady
	// EntityBindGroupsReady means all bind groups exist; uniforms may still be stale.
	EntityBindGroupsReady
	// EntityDrawable means uniforms are synchronised and the entity can be drawn.
	EntityDrawable
)

// entityRecord is the scheduler's per-entity bookkeeping: the CPU store, configuration,
// transform, lifecycle state, and the lazily-created overlay/outline bind groups that
// carry their own EntityParams buffer (a second uniform is needed because the cache draw
// and an overlay draw run in the same submission with different vis modes).
type entityRecord struct {
	key     string
	store   *splat.Store
	options Options

	model          [16]float32
	transformDirty bool

	state EntityState

	overlayScratch    bind_group_provider.BindGroupProvider
	outlineScratch    bind_group_provider.BindGroupProvider
	lastOverlayParams *common.GPUEntityParams
	lastOutlineParams *common.GPUEntityParams
}
