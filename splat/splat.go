// Package splat implements the CPU-side splat store: the ordered collection of Gaussian
// splat records an entity owns, their selection/lock/delete state, and the pure-Go editing
// operations a producer or picker performs on them before the next upload to the GPU.
package splat

import (
	"fmt"
	"math"
)

// State bits, packed one per splat into a single byte (stored as one u32 per splat on the
// GPU for alignment; the GPU resource manager widens each byte on upload).
const (
	StateSelected uint8 = 1 << 0
	StateLocked   uint8 = 1 << 1
	StateDeleted  uint8 = 1 << 2
)

// MaxScale is the upper clamp applied to exp(log_scale) on GPU upload.
const MaxScale = 100.0

// Store is the CPU-side record for one entity's Gaussian splats: a sequence of N splats
// sharing one SH degree, plus per-splat editing state. All per-splat slices always have
// identical length (N) and identical capacity.
type Store struct {
	means     [][3]float32
	rotations [][4]float32 // unnormalised quaternion (x, y, z, w)
	logScales [][3]float32
	opacities []float32 // raw, pre-sigmoid
	sh        [][]float32 // length K*3 per splat, row-major (coef, channel)

	state       []uint8
	numSelected int
	numLocked   int
	numDeleted  int

	k int // SH coefficient count per splat: K = (d+1)^2

	antialiased bool
	capacity    int
	dirty       bool

	needsUpload  bool
	trainingMode bool
}

// New constructs a Store from parallel per-splat arrays. K is inferred from the width of
// sh and validated against the (d+1)^2 relation for some integer degree d in [0,3].
//
// Returns a ConfigurationError if the input lengths disagree or K does not correspond to a
// valid SH degree.
func New(means [][3]float32, rotations [][4]float32, logScales [][3]float32, sh [][]float32, rawOpacities []float32) (*Store, error) {
	n := len(means)
	if len(rotations) != n || len(logScales) != n || len(sh) != n || len(rawOpacities) != n {
		return nil, fmt.Errorf("%w: means has %d entries but rotations=%d log_scales=%d sh=%d opacities=%d",
			ErrConfiguration, n, len(rotations), len(logScales), len(sh), len(rawOpacities))
	}

	k := 0
	if n > 0 {
		k = len(sh[0])
		for i, row := range sh {
			if len(row) != k {
				return nil, fmt.Errorf("%w: splat %d has %d SH floats, want %d", ErrConfiguration, i, len(row), k)
			}
		}
		d, err := DegreeFromCoeffCount(k)
		if err != nil {
			return nil, err
		}
		if d > 3 {
			return nil, fmt.Errorf("%w: SH degree %d is above the maximum of 3", ErrConfiguration, d)
		}
	}

	s := &Store{
		means:     append([][3]float32(nil), means...),
		rotations: append([][4]float32(nil), rotations...),
		logScales: append([][3]float32(nil), logScales...),
		opacities: append([]float32(nil), rawOpacities...),
		sh:        append([][]float32(nil), sh...),
		state:     make([]uint8, n),
		k:         k / 3,
		capacity:  n,
		dirty:     true,
	}
	return s, nil
}

// DegreeFromCoeffCount infers the SH degree d from the total coefficient float count
// (K*3), verifying (d+1)^2 == K.
func DegreeFromCoeffCount(floatCount int) (int, error) {
	if floatCount%3 != 0 {
		return 0, fmt.Errorf("%w: SH float count %d is not a multiple of 3", ErrConfiguration, floatCount)
	}
	k := floatCount / 3
	d := int(math.Floor(math.Sqrt(float64(k)))) - 1
	if d < 0 {
		d = 0
	}
	if (d+1)*(d+1) != k {
		return 0, fmt.Errorf("%w: SH coefficient count %d is not a perfect (d+1)^2", ErrConfiguration, k)
	}
	return d, nil
}

// Len returns the number of splats currently in the store.
func (s *Store) Len() int { return len(s.means) }

// Capacity returns the number of pre-reserved slots.
func (s *Store) Capacity() int { return s.capacity }

// Degree returns the SH degree d such that K = (d+1)^2.
func (s *Store) Degree() int {
	d, _ := DegreeFromCoeffCount(s.k * 3)
	return d
}

// K returns the number of SH coefficients (including DC) per splat.
func (s *Store) K() int { return s.k }

// Antialiased reports whether the producer trained with Mip-Splatting style dilation.
func (s *Store) Antialiased() bool { return s.antialiased }

// SetAntialiased sets the antialiased flag directly (used by a producer on first handoff).
func (s *Store) SetAntialiased(v bool) { s.antialiased = v }

// Dirty reports whether the CPU-side state changed since the last upload.
func (s *Store) Dirty() bool { return s.dirty }

// ClearDirty is called by the GPU resource manager after a successful upload.
func (s *Store) ClearDirty() { s.dirty = false }

// NeedsUpload reports the producer-set tag requesting a full buffer re-upload.
func (s *Store) NeedsUpload() bool { return s.needsUpload }

// SetNeedsUpload sets or clears the NeedsUpload tag.
func (s *Store) SetNeedsUpload(v bool) { s.needsUpload = v }

// TrainingMode reports whether this entity's render may be cached per §4.6.
func (s *Store) TrainingMode() bool { return s.trainingMode }

// SetTrainingMode sets the TrainingMode tag.
func (s *Store) SetTrainingMode(v bool) { s.trainingMode = v }

// Means returns the raw mean (position) slice. Callers must not retain it across a
// mutating call.
func (s *Store) Means() [][3]float32 { return s.means }

// Rotations returns the raw unnormalised-quaternion slice.
func (s *Store) Rotations() [][4]float32 { return s.rotations }

// LogScales returns the raw log-scale slice.
func (s *Store) LogScales() [][3]float32 { return s.logScales }

// Opacities returns the raw (pre-sigmoid) opacity slice.
func (s *Store) Opacities() []float32 { return s.opacities }

// SH returns the raw SH coefficient slice, one row of K*3 floats per splat.
func (s *Store) SH() [][]float32 { return s.sh }

// State returns the per-splat state-bits slice.
func (s *Store) State() []uint8 { return s.state }

// Sigmoid maps raw opacity to visible opacity: σ(x) = 1 / (1 + e^-x).
func Sigmoid(x float32) float32 {
	return float32(1 / (1 + math.Exp(-float64(x))))
}

// InverseSigmoid is σ's inverse: ln(p / (1-p)). Used to convert a user-supplied visible
// opacity back into the raw representation the store keeps internally.
func InverseSigmoid(p float32) float32 {
	return float32(math.Log(float64(p) / float64(1-p)))
}

// ClampedScale returns exp(log_scale) clamped componentwise to [0, MaxScale], matching the
// GPU upload clamp in §3's invariants.
func ClampedScale(logScale [3]float32) [3]float32 {
	var out [3]float32
	for i, v := range logScale {
		e := float32(math.Exp(float64(v)))
		if e > MaxScale {
			e = MaxScale
		}
		out[i] = e
	}
	return out
}

// BoundingBox returns the min/max corners over all splat means. For an empty store both
// corners are the zero vector.
func (s *Store) BoundingBox() (min, max [3]float32) {
	if len(s.means) == 0 {
		return
	}
	min, max = s.means[0], s.means[0]
	for _, p := range s.means[1:] {
		for i := range 3 {
			if p[i] < min[i] {
				min[i] = p[i]
			}
			if p[i] > max[i] {
				max[i] = p[i]
			}
		}
	}
	return
}

// Center returns the midpoint of the bounding box.
func (s *Store) Center() [3]float32 {
	min, max := s.BoundingBox()
	return [3]float32{(min[0] + max[0]) / 2, (min[1] + max[1]) / 2, (min[2] + max[2]) / 2}
}

// Size returns the bounding box extent (max - min) along each axis.
func (s *Store) Size() [3]float32 {
	min, max := s.BoundingBox()
	return [3]float32{max[0] - min[0], max[1] - min[1], max[2] - min[2]}
}

// SuggestedCameraDistance returns 2.5 times the largest bounding-box extent, a reasonable
// starting distance for a caller framing a newly-loaded scene.
func (s *Store) SuggestedCameraDistance() float32 {
	size := s.Size()
	maxExtent := size[0]
	if size[1] > maxExtent {
		maxExtent = size[1]
	}
	if size[2] > maxExtent {
		maxExtent = size[2]
	}
	return 2.5 * maxExtent
}

// NumSelected returns the cached count of splats with the SELECTED bit set.
func (s *Store) NumSelected() int { return s.numSelected }

// NumLocked returns the cached count of splats with the LOCKED bit set.
func (s *Store) NumLocked() int { return s.numLocked }

// NumDeleted returns the cached count of splats with the DELETED bit set.
func (s *Store) NumDeleted() int { return s.numDeleted }
