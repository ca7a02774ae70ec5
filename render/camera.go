package render

import (
	"math"

	"github.com/wjymzh/3dgs-webgpu/coherence"
	"github.com/wjymzh/3dgs-webgpu/common"
)

// Camera is the per-frame view snapshot the scheduler consumes: matrices for the GPU,
// pose vectors for the temporal-coherence comparison.
type Camera struct {
	Position [3]float32
	Forward  [3]float32
	Up       [3]float32

	View     [16]float32
	Proj     [16]float32
	ViewProj [16]float32

	FovY float32
}

// LookAtCamera builds a Camera from an eye position, target point, up vector, and a
// vertical field of view with the given near/far planes and viewport aspect.
func LookAtCamera(eye, target, up [3]float32, fovY, aspect, near, far float32) Camera {
	c := Camera{Position: eye, Up: up, FovY: fovY}

	f := [3]float32{target[0] - eye[0], target[1] - eye[1], target[2] - eye[2]}
	l := float32(math.Sqrt(float64(f[0]*f[0] + f[1]*f[1] + f[2]*f[2])))
	if l > 0 {
		c.Forward = [3]float32{f[0] / l, f[1] / l, f[2] / l}
	}

	common.LookAt(c.View[:], eye[0], eye[1], eye[2], target[0], target[1], target[2], up[0], up[1], up[2])
	common.Perspective(c.Proj[:], fovY, aspect, near, far)
	common.Mul4(c.ViewProj[:], c.Proj[:], c.View[:])
	return c
}

// Pose returns the coherence snapshot for this camera.
func (c Camera) Pose() coherence.CameraPose {
	return coherence.CameraPose{Position: c.Position, Forward: c.Forward, Up: c.Up}
}

// uniform assembles the GPU camera record for the given viewport, deriving per-axis focal
// lengths from the vertical field of view.
func (c Camera) uniform(width, height int) common.GPUCameraUniform {
	focalY := float32(height) / (2 * float32(math.Tan(float64(c.FovY)/2)))
	return common.GPUCameraUniform{
		ViewProj:       c.ViewProj,
		View:           c.View,
		CameraPosition: c.Position,
		Focal:          [2]float32{focalY, focalY},
		Viewport:       [2]float32{float32(width), float32(height)},
	}
}
