package splat

import "math"

// float32ToHalfBits converts a float32 to IEEE 754 binary16 bits, round-to-nearest-even,
// matching the GPU's f16 decode used by the packed-mode shaders.
func float32ToHalfBits(f float32) uint16 {
	bits := math.Float32bits(f)
	sign := uint16((bits >> 16) & 0x8000)
	exp := int32((bits>>23)&0xff) - 127 + 15
	mant := bits & 0x7fffff

	switch {
	case exp <= 0:
		// Subnormal or zero result; flush to signed zero (splat scale/opacity/rotation
		// values never require subnormal f16 precision).
		return sign
	case exp >= 0x1f:
		// Overflow to infinity, preserving sign.
		return sign | 0x7c00
	default:
		// Round the 13 dropped mantissa bits to nearest, ties to even. A carry out of the
		// mantissa bumps the exponent, up to infinity at the top of the range.
		h := uint32(exp)<<10 | mant>>13
		rem := mant & 0x1fff
		if rem > 0x1000 || (rem == 0x1000 && h&1 == 1) {
			h++
		}
		return sign | uint16(h)
	}
}

// PackHalf2 packs two float32 values into one u32 as two adjacent f16 lanes (x in the low
// 16 bits, y in the high 16 bits), the layout of the WGSL `pack2x16float` builtin; the
// packed-mode shaders decode it with `unpack2x16float`.
func PackHalf2(x, y float32) uint32 {
	return uint32(float32ToHalfBits(x)) | uint32(float32ToHalfBits(y))<<16
}

// PackNormal11_10_11 packs a unit direction vector into 11-10-11 normalized bits:
// bits[0..10] = x, bits[11..20] = y, bits[21..31] = z. Each channel maps [-1,1] to
// [0,max_int] via round((c+1)/2 * max_int); x/z use 11 bits (max 2047), y uses 10 bits
// (max 1023).
func PackNormal11_10_11(dir [3]float32) uint32 {
	const maxX, maxY, maxZ = 2047.0, 1023.0, 2047.0
	px := uint32(math.Round(float64((dir[0]+1)/2) * maxX))
	py := uint32(math.Round(float64((dir[1]+1)/2) * maxY))
	pz := uint32(math.Round(float64((dir[2]+1)/2) * maxZ))
	return (px & 0x7ff) | (py&0x3ff)<<11 | (pz&0x7ff)<<21
}

// UnpackNormal11_10_11 is PackNormal11_10_11's inverse, used only by tests verifying the
// round-trip error bound from §8.
func UnpackNormal11_10_11(packed uint32) [3]float32 {
	const maxX, maxY, maxZ = 2047.0, 1023.0, 2047.0
	x := float32(packed&0x7ff)/maxX*2 - 1
	y := float32((packed>>11)&0x3ff)/maxY*2 - 1
	z := float32((packed>>21)&0x7ff)/maxZ*2 - 1
	return [3]float32{x, y, z}
}
