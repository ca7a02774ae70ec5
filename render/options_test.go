package render

import (
	"testing"

	"github.com/wjymzh/3dgs-webgpu/rasterize"
)

func TestDefaultOptions(t *testing.T) {
	o := DefaultOptions()

	if o.PointSize != 1.0 {
		t.Errorf("point_size = %g, want 1.0", o.PointSize)
	}
	if o.FrustumDilation != 0.2 {
		t.Errorf("frustum_dilation = %g, want 0.2", o.FrustumDilation)
	}
	if o.AlphaCullThreshold != 0.005 {
		t.Errorf("alpha_cull_threshold = %g, want 0.005", o.AlphaCullThreshold)
	}
	if o.SplatScale != 1.0 {
		t.Errorf("splat_scale = %g, want 1.0", o.SplatScale)
	}
	if o.Antialias {
		t.Error("antialias defaults on, want off")
	}
	if o.SHBand != 3 {
		t.Errorf("sh_band = %d, want 3", o.SHBand)
	}
	if o.VisMode != rasterize.VisModeSplat {
		t.Errorf("vis_mode = %v, want Splat", o.VisMode)
	}
	if o.ShowSelectionOverlay || o.ShowOutline {
		t.Error("overlay/outline default on, want off")
	}
	if o.OverlayVisMode != rasterize.VisModeCenters {
		t.Errorf("overlay_vis_mode = %v, want Centers", o.OverlayVisMode)
	}
	if !o.PackMode {
		t.Error("pack_mode defaults off, want on")
	}
	if o.Transparency != 1 || o.Brightness != 0 || o.WhitePoint != 1 || o.BlackPoint != 0 {
		t.Errorf("display transfer defaults = %g/%g/%g/%g", o.Transparency, o.Brightness, o.WhitePoint, o.BlackPoint)
	}
	if o.AlbedoColor != [3]float32{1, 1, 1} {
		t.Errorf("albedo_color = %v", o.AlbedoColor)
	}
}

func TestParamsClampsSHBand(t *testing.T) {
	o := DefaultOptions() // sh_band 3

	p := o.params(100, 800, 600, 1, o.VisMode)
	if p.SHDegree != 1 {
		t.Fatalf("sh_degree = %d, want clamp to stored degree 1", p.SHDegree)
	}

	o.SHBand = 0
	p = o.params(100, 800, 600, 3, o.VisMode)
	if p.SHDegree != 0 {
		t.Fatalf("sh_degree = %d, want configured band 0", p.SHDegree)
	}
}

func TestParamsCarriesViewportAndCount(t *testing.T) {
	o := DefaultOptions()
	p := o.params(4096, 800, 600, 3, rasterize.VisModeCenters)

	if p.PointCount != 4096 || p.SurfaceWidth != 800 || p.SurfaceHeight != 600 {
		t.Fatalf("params = %+v", p)
	}
	if p.VisMode != uint32(rasterize.VisModeCenters) {
		t.Fatalf("vis_mode = %d", p.VisMode)
	}
	if p.PackMode != 1 {
		t.Fatal("pack_mode flag not set")
	}
}
