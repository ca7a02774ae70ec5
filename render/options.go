package render

import (
	"github.com/wjymzh/3dgs-webgpu/common"
	"github.com/wjymzh/3dgs-webgpu/rasterize"
)

// Options is the per-entity rendering configuration. Zero values are not meaningful;
// start from DefaultOptions and adjust.
type Options struct {
	// PointSize is the pixel size for the Point/Rings/Centers footprints.
	PointSize float32

	// FrustumDilation is the extra NDC margin the cull pass keeps around the frustum, so
	// splats whose footprint straddles the edge are not popped.
	FrustumDilation float32

	// AlphaCullThreshold discards projected splats whose peak alpha falls below it.
	AlphaCullThreshold float32

	// SplatScale is a global multiplier on the projected footprint.
	SplatScale float32

	// Antialias enables Mip-Splatting style covariance dilation with opacity compensation.
	Antialias bool

	// SHBand caps the SH degree used at runtime. Clamped silently to the stored degree.
	SHBand int

	// VisMode selects the fragment behavior of the main splat draw.
	VisMode rasterize.VisMode

	// ShowSelectionOverlay draws a second pass in OverlayVisMode over the composite.
	ShowSelectionOverlay bool

	// OverlayVisMode is the footprint used by the selection overlay.
	OverlayVisMode rasterize.VisMode

	// ShowOutline renders selected splats into the outline mask after the composite.
	ShowOutline bool

	// PackMode selects the half-float/11-10-11 GPU buffer layout. Fixed at AddEntity time;
	// changing it later has no effect.
	PackMode bool

	// Display transfer.
	Transparency float32
	Brightness   float32
	WhitePoint   float32
	BlackPoint   float32
	AlbedoColor  [3]float32

	// Edit palette. SelectColor's alpha channel carries the edit-point size for selected
	// splats; the other alpha channels are accepted but unused.
	SelectColor   [4]float32
	UnselectColor [4]float32
	LockedColor   [4]float32

	// Tint is mixed over the final color by its alpha.
	Tint [4]float32

	// UseTonemapping applies a Reinhard curve before the sRGB encode.
	UseTonemapping bool
}

// DefaultOptions returns the documented defaults for every option.
func DefaultOptions() Options {
	return Options{
		PointSize:          1.0,
		FrustumDilation:    0.2,
		AlphaCullThreshold: 0.005,
		SplatScale:         1.0,
		SHBand:             3,
		VisMode:            rasterize.VisModeSplat,
		OverlayVisMode:     rasterize.VisModeCenters,
		PackMode:           true,
		Transparency:       1.0,
		Brightness:         0.0,
		WhitePoint:         1.0,
		BlackPoint:         0.0,
		AlbedoColor:        [3]float32{1, 1, 1},
		SelectColor:        [4]float32{1, 1, 0, 4},
		UnselectColor:      [4]float32{0, 0, 1, 1},
		LockedColor:        [4]float32{0.5, 0.5, 0.5, 1},
	}
}

// params assembles the GPU uniform record for one entity at the given splat count,
// viewport, stored SH degree, and vis mode override.
func (o Options) params(pointCount, width, height, storedDegree int, visMode rasterize.VisMode) common.GPUEntityParams {
	degree := o.SHBand
	if degree > storedDegree {
		degree = storedDegree
	}
	if degree < 0 {
		degree = 0
	}

	p := common.GPUEntityParams{
		PointCount:         uint32(pointCount),
		SurfaceWidth:       uint32(width),
		SurfaceHeight:      uint32(height),
		SHDegree:           uint32(degree),
		FrustumDilation:    o.FrustumDilation,
		AlphaCullThreshold: o.AlphaCullThreshold,
		SplatScale:         o.SplatScale,
		PointSize:          o.PointSize,
		VisMode:            uint32(visMode),
		Transparency:       o.Transparency,
		Brightness:         o.Brightness,
		WhitePoint:         o.WhitePoint,
		BlackPoint:         o.BlackPoint,
		AlbedoColor:        o.AlbedoColor,
		SelectColor:        o.SelectColor,
		UnselectColor:      o.UnselectColor,
		LockedColor:        o.LockedColor,
		Tint:               o.Tint,
	}
	if o.Antialias {
		p.Antialias = 1
	}
	if o.PackMode {
		p.PackMode = 1
	}
	if o.UseTonemapping {
		p.UseTonemapping = 1
	}
	return p
}
