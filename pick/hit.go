package pick

import "math"

// Host-side mirrors of the compute shader's hit tests. They exist for the same reason
// common/frustum.go exists next to the cull pass: request construction, debugging, and
// tests need the same geometry without a device round-trip.

// ProjectNDC projects a local-space point through model then viewProj (both column-major)
// and returns its NDC x/y. ok is false when the point is at or behind the camera plane.
func ProjectNDC(viewProj, model [16]float32, p [3]float32) (ndc [2]float32, ok bool) {
	var world [4]float32
	for r := 0; r < 4; r++ {
		world[r] = model[0*4+r]*p[0] + model[1*4+r]*p[1] + model[2*4+r]*p[2] + model[3*4+r]
	}
	var clip [4]float32
	for r := 0; r < 4; r++ {
		clip[r] = viewProj[0*4+r]*world[0] + viewProj[1*4+r]*world[1] + viewProj[2*4+r]*world[2] + viewProj[3*4+r]*world[3]
	}
	if clip[3] <= 0 {
		return [2]float32{}, false
	}
	return [2]float32{clip[0] / clip[3], clip[1] / clip[3]}, true
}

// RectContains reports whether an NDC point lies inside rect (min.x, min.y, max.x, max.y).
func RectContains(rect [4]float32, ndc [2]float32) bool {
	return ndc[0] >= rect[0] && ndc[0] <= rect[2] && ndc[1] >= rect[1] && ndc[1] <= rect[3]
}

// SphereContains reports whether a local-space point lies inside the sphere.
func SphereContains(center [3]float32, radius float32, p [3]float32) bool {
	dx := float64(p[0] - center[0])
	dy := float64(p[1] - center[1])
	dz := float64(p[2] - center[2])
	return math.Sqrt(dx*dx+dy*dy+dz*dz) <= float64(radius)
}

// BoxContains reports whether a local-space point lies inside the axis-aligned box.
func BoxContains(center, halfExtents [3]float32, p [3]float32) bool {
	for i := range 3 {
		d := p[i] - center[i]
		if d < 0 {
			d = -d
		}
		if d > halfExtents[i] {
			return false
		}
	}
	return true
}
