package rasterize

import (
	"testing"

	"github.com/wjymzh/3dgs-webgpu/gpu"
	"github.com/cogentcore/webgpu/wgpu"
)

func TestPipelineKeys(t *testing.T) {
	cases := []struct {
		surface Surface
		layout  gpu.LayoutMode
		want    string
	}{
		{SurfaceCache, gpu.LayoutStandard, "splat_cache_standard"},
		{SurfaceCache, gpu.LayoutPacked, "splat_cache_packed"},
		{SurfaceOverlay, gpu.LayoutStandard, "splat_overlay_standard"},
		{SurfacePick, gpu.LayoutPacked, "splat_pick_packed"},
	}
	for _, c := range cases {
		if got := PipelineKey(c.surface, c.layout); got != c.want {
			t.Errorf("PipelineKey(%v, %v) = %q, want %q", c.surface, c.layout, got, c.want)
		}
	}
}

func TestVisModeValues(t *testing.T) {
	// The numeric values are baked into the WGSL constants; they must not drift.
	if VisModeSplat != 0 || VisModePoint != 1 || VisModeRings != 2 ||
		VisModeCenters != 3 || VisModePick != 4 || VisModeOutline != 5 {
		t.Fatalf("vis mode values drifted: %d %d %d %d %d %d",
			VisModeSplat, VisModePoint, VisModeRings, VisModeCenters, VisModePick, VisModeOutline)
	}
}

func TestPremultipliedBlend(t *testing.T) {
	// src + dst*(1-srcA), identical for color and alpha.
	b := premultipliedBlend
	if b.Color.SrcFactor != wgpu.BlendFactorOne || b.Color.DstFactor != wgpu.BlendFactorOneMinusSrcAlpha {
		t.Fatalf("color blend = %+v", b.Color)
	}
	if b.Alpha.SrcFactor != wgpu.BlendFactorOne || b.Alpha.DstFactor != wgpu.BlendFactorOneMinusSrcAlpha {
		t.Fatalf("alpha blend = %+v", b.Alpha)
	}
}
