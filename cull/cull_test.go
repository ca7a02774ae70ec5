package cull

import (
	"math"
	"testing"

	"github.com/wjymzh/3dgs-webgpu/common"
)

// cullParams mirrors the EntityParams fields the cull kernel reads.
type cullParams struct {
	frustumDilation    float32
	alphaCullThreshold float32
	splatScale         float32
}

// cullSplat mirrors the cull kernel for one splat: same projection, frustum test with
// dilation, and conservative peak-alpha estimate. Returns the depth key and whether the
// splat survives.
func cullSplat(viewProj [16]float32, focal float32, pos, scale [3]float32, opacity float32, p cullParams) (uint32, bool) {
	var clip [4]float32
	for r := 0; r < 4; r++ {
		clip[r] = viewProj[0*4+r]*pos[0] + viewProj[1*4+r]*pos[1] + viewProj[2*4+r]*pos[2] + viewProj[3*4+r]
	}
	if clip[3] <= 0 {
		return 0, false
	}
	ndc := [3]float32{clip[0] / clip[3], clip[1] / clip[3], clip[2] / clip[3]}
	d := p.frustumDilation
	if ndc[0] < -1-d || ndc[0] > 1+d || ndc[1] < -1-d || ndc[1] > 1+d || ndc[2] < 0 || ndc[2] > 1 {
		return 0, false
	}

	radius := max(scale[0], max(scale[1], scale[2])) * p.splatScale
	screenRadius := radius * focal / clip[3]
	peak := opacity * min(1, screenRadius*screenRadius)
	if peak < p.alphaCullThreshold {
		return 0, false
	}
	return common.DepthToSortableKey(clip[3]), true
}

func TestCullLineOfSplatsAgainstNearPlane(t *testing.T) {
	// 1000 splats along the view axis, z = -4.85 + 0.1*i, camera at the origin facing +z
	// with near = 0.1. Every splat at or behind the near plane is culled; the 950 in front
	// survive. The far plane sits beyond the last splat so only the near side cuts.
	const n = 1000

	var view, proj, viewProj [16]float32
	common.LookAt(view[:], 0, 0, 0, 0, 0, 1, 0, 1, 0)
	common.Perspective(proj[:], math.Pi/3, 16.0/9.0, 0.1, 1000)
	common.Mul4(viewProj[:], proj[:], view[:])

	const focal = 500.0
	params := cullParams{frustumDilation: 0, alphaCullThreshold: 0.005, splatScale: 1}
	scale := [3]float32{0.1, 0.1, 0.1}
	const opacity = 0.9

	var keys []uint32
	for i := 0; i < n; i++ {
		z := float32(-4.85) + 0.1*float32(i)
		key, visible := cullSplat(viewProj, focal, [3]float32{0, 0, z}, scale, opacity, params)
		if visible {
			keys = append(keys, key)
		}
	}

	if len(keys) != 950 {
		t.Fatalf("instance_count = %d, want 950", len(keys))
	}

	// Depth keys are the bit patterns of clip.w, which for this camera is world z: they
	// must be monotonically increasing along the line and lie in the expected range.
	lo := common.DepthToSortableKey(0.149)
	hi := common.DepthToSortableKey(95.2)
	for i, k := range keys {
		if k < lo || k > hi {
			t.Fatalf("key[%d] = %#x outside [%#x, %#x]", i, k, lo, hi)
		}
		if i > 0 && keys[i-1] >= k {
			t.Fatalf("keys not strictly increasing at %d", i)
		}
	}
}

func TestCullRespectsDilation(t *testing.T) {
	var view, proj, viewProj [16]float32
	common.LookAt(view[:], 0, 0, 0, 0, 0, 1, 0, 1, 0)
	common.Perspective(proj[:], math.Pi/2, 1, 0.1, 100)
	common.Mul4(viewProj[:], proj[:], view[:])

	// A splat just outside the frustum on world +x: at z = 5 with fov 90 the frustum edge is at
	// x = 5; this view mirrors world x, so the splat lands at ndc x ~= -1.1.
	pos := [3]float32{5.5, 0, 5}
	scale := [3]float32{0.5, 0.5, 0.5}

	_, visible := cullSplat(viewProj, 500, pos, scale, 0.9, cullParams{alphaCullThreshold: 0.005, splatScale: 1})
	if visible {
		t.Fatal("splat outside the undilated frustum was kept")
	}

	_, visible = cullSplat(viewProj, 500, pos, scale, 0.9, cullParams{frustumDilation: 0.2, alphaCullThreshold: 0.005, splatScale: 1})
	if !visible {
		t.Fatal("splat inside the dilated frustum was culled")
	}
}

func TestCullRejectsTransparent(t *testing.T) {
	var view, proj, viewProj [16]float32
	common.LookAt(view[:], 0, 0, 0, 0, 0, 1, 0, 1, 0)
	common.Perspective(proj[:], math.Pi/3, 1, 0.1, 100)
	common.Mul4(viewProj[:], proj[:], view[:])

	_, visible := cullSplat(viewProj, 500, [3]float32{0, 0, 5}, [3]float32{0.1, 0.1, 0.1}, 0.001,
		cullParams{alphaCullThreshold: 0.005, splatScale: 1})
	if visible {
		t.Fatal("near-transparent splat survived the alpha cull")
	}
}
