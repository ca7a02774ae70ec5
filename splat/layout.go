package splat

import (
	"encoding/binary"
	"math"
)

// The standard*Stride constants are the per-splat byte sizes of standard mode's buffers (see
// WriteStandardChunk): 3 position, 3 DC color, 3 scale, 1 opacity and 4 rotation f32s. The
// higher-order SH buffer holds 45 f32s per splat (see writeHigherOrderSH).
const (
	standardPositionStride = 3 * 4
	standardDCColorStride  = 3 * 4
	standardScaleStride    = 3 * 4
	standardOpacityStride  = 1 * 4
	standardRotationStride = 4 * 4
)

// PackedPositionStride, PackedWordsStride, PackedColorStride, PackedSHStride are the
// per-splat byte sizes of packed mode's four buffers: positions stay f32, the rotation/
// scale/opacity quad packs to 4 u32, DC color packs to 2 u32, and the higher-order SH
// coefficients pack to 16 u32 (64 bytes) per the §6 Packed SH record.
const (
	PackedPositionStride = 3 * 4
	PackedWordsStride    = 4 * 4
	PackedColorStride    = 2 * 4
	PackedSHStride       = 16 * 4
)

// WriteStandardChunk writes the standard-mode GPU representation for splats [lo, hi) into
// the provided destination slices. Each destination must be sized for the full splat range
// being written (this call only touches the [lo,hi) byte window); callers chunk ranges of
// about 4096 splats for cache locality and may run chunks on separate goroutines since they
// touch disjoint byte ranges.
func (s *Store) WriteStandardChunk(lo, hi int, positions, dcColor, scale, opacity, rotation, shHigher []byte) {
	for i := lo; i < hi; i++ {
		p := s.means[i]
		putVec3(positions, i*standardPositionStride, p)

		dc := [3]float32{0, 0, 0}
		if s.k > 0 {
			dc = [3]float32{s.sh[i][0], s.sh[i][1], s.sh[i][2]}
		}
		putVec3(dcColor, i*standardDCColorStride, dc)

		putVec3(scale, i*standardScaleStride, ClampedScale(s.logScales[i]))

		binary.LittleEndian.PutUint32(opacity[i*standardOpacityStride:], math.Float32bits(Sigmoid(s.opacities[i])))

		r := s.rotations[i]
		off := i * standardRotationStride
		for c := 0; c < 4; c++ {
			binary.LittleEndian.PutUint32(rotation[off+c*4:], math.Float32bits(r[c]))
		}

		writeHigherOrderSH(shHigher, i, s.sh[i], s.k)
	}
}

// WritePackedChunk writes the packed-mode GPU representation for splats [lo, hi) into the
// provided destination slices, following the same chunking contract as WriteStandardChunk.
func (s *Store) WritePackedChunk(lo, hi int, positions, words, dcColor, shPacked []byte) {
	for i := lo; i < hi; i++ {
		putVec3(positions, i*PackedPositionStride, s.means[i])

		r := s.rotations[i]
		sc := ClampedScale(s.logScales[i])
		op := Sigmoid(s.opacities[i])

		off := i * PackedWordsStride
		binary.LittleEndian.PutUint32(words[off:], PackHalf2(r[0], r[1]))
		binary.LittleEndian.PutUint32(words[off+4:], PackHalf2(r[2], r[3]))
		binary.LittleEndian.PutUint32(words[off+8:], PackHalf2(sc[0], sc[1]))
		binary.LittleEndian.PutUint32(words[off+12:], PackHalf2(sc[2], op))

		dc := [3]float32{0, 0, 0}
		if s.k > 0 {
			dc = [3]float32{s.sh[i][0], s.sh[i][1], s.sh[i][2]}
		}
		coff := i * PackedColorStride
		binary.LittleEndian.PutUint32(dcColor[coff:], PackHalf2(dc[0], dc[1]))
		binary.LittleEndian.PutUint32(dcColor[coff+4:], PackHalf2(dc[2], 0))

		writePackedSH(shPacked, i, s.sh[i], s.k)
	}
}

func putVec3(dst []byte, offset int, v [3]float32) {
	for c := 0; c < 3; c++ {
		binary.LittleEndian.PutUint32(dst[offset+c*4:], math.Float32bits(v[c]))
	}
}

// writeHigherOrderSH writes the K-1 higher-order coefficient triples (45 floats max, for
// K=16) as plain f32, padding any unused bands with zero so every entity's buffer has a
// fixed 45-float stride regardless of its runtime SH degree.
func writeHigherOrderSH(dst []byte, splatIdx int, sh []float32, k int) {
	const maxHigherOrder = 15
	off := splatIdx * maxHigherOrder * 3 * 4
	for band := 0; band < maxHigherOrder; band++ {
		var triple [3]float32
		if band+1 < k {
			triple = [3]float32{sh[(band+1)*3], sh[(band+1)*3+1], sh[(band+1)*3+2]}
		}
		putVec3(dst, off+band*12, triple)
	}
}

// writePackedSH packs the higher-order SH coefficients per the §6 Packed SH record: a
// shared per-splat scale factor (the largest coefficient-triple L2 norm) followed by 15
// unit-direction-packed triples, each normalized by that scale.
func writePackedSH(dst []byte, splatIdx int, sh []float32, k int) {
	const maxHigherOrder = 15
	off := splatIdx * PackedSHStride

	var triples [maxHigherOrder][3]float32
	var scale float32
	for band := 0; band < maxHigherOrder; band++ {
		if band+1 < k {
			triples[band] = [3]float32{sh[(band+1)*3], sh[(band+1)*3+1], sh[(band+1)*3+2]}
			n := vecNorm(triples[band])
			if n > scale {
				scale = n
			}
		}
	}

	binary.LittleEndian.PutUint32(dst[off:], math.Float32bits(scale))
	for band := 0; band < maxHigherOrder; band++ {
		dir := [3]float32{0, 0, 0}
		if scale > 0 {
			dir = [3]float32{triples[band][0] / scale, triples[band][1] / scale, triples[band][2] / scale}
		}
		binary.LittleEndian.PutUint32(dst[off+4+band*4:], PackNormal11_10_11(dir))
	}
}

func vecNorm(v [3]float32) float32 {
	return float32(math.Sqrt(float64(v[0]*v[0] + v[1]*v[1] + v[2]*v[2])))
}
