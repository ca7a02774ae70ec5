package splat

import (
	"math"
	"math/rand"
	"testing"
)

// halfBitsToFloat32 decodes an IEEE 754 binary16 value, for round-trip checks against
// float32ToHalfBits. Subnormals decode to zero, matching the encoder's flush.
func halfBitsToFloat32(h uint16) float32 {
	sign := uint32(h>>15) << 31
	exp := int32((h >> 10) & 0x1f)
	mant := uint32(h & 0x3ff)

	switch {
	case exp == 0:
		return math.Float32frombits(sign)
	case exp == 0x1f:
		return math.Float32frombits(sign | 0x7f800000)
	default:
		return math.Float32frombits(sign | uint32(exp-15+127)<<23 | mant<<13)
	}
}

func unpackHalf2(packed uint32) (float32, float32) {
	return halfBitsToFloat32(uint16(packed)), halfBitsToFloat32(uint16(packed >> 16))
}

func TestPackNormalRoundTripDotProduct(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	const bound = 1.0 - 1.0/1024 // 1 - 2^-10

	for range 1000 {
		v := [3]float32{float32(rng.NormFloat64()), float32(rng.NormFloat64()), float32(rng.NormFloat64())}
		n := float32(math.Sqrt(float64(v[0]*v[0] + v[1]*v[1] + v[2]*v[2])))
		if n == 0 {
			continue
		}
		for i := range 3 {
			v[i] /= n
		}

		got := UnpackNormal11_10_11(PackNormal11_10_11(v))
		gn := float32(math.Sqrt(float64(got[0]*got[0] + got[1]*got[1] + got[2]*got[2])))
		dot := (v[0]*got[0] + v[1]*got[1] + v[2]*got[2]) / gn
		if dot < bound {
			t.Fatalf("decode(encode(%v)) = %v, dot = %g < %g", v, got, dot, bound)
		}
	}
}

func TestPackHalf2RoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(7))

	for range 1000 {
		q := [4]float32{
			float32(rng.Float64()*2 - 1),
			float32(rng.Float64()*2 - 1),
			float32(rng.Float64()*2 - 1),
			float32(rng.Float64()*2 - 1),
		}

		x0, y0 := unpackHalf2(PackHalf2(q[0], q[1]))
		x1, y1 := unpackHalf2(PackHalf2(q[2], q[3]))
		got := [4]float32{x0, y0, x1, y1}

		var maxIn, maxErr float64
		for i := range 4 {
			if a := math.Abs(float64(q[i])); a > maxIn {
				maxIn = a
			}
			if e := math.Abs(float64(q[i] - got[i])); e > maxErr {
				maxErr = e
			}
		}
		if maxErr > maxIn/1024 {
			t.Fatalf("|q - unpack(pack(q))| = %g > %g for %v", maxErr, maxIn/1024, q)
		}
	}
}

func TestPackNormalBitLayout(t *testing.T) {
	// +x axis: x channel saturates, y and z sit at their midpoint codes.
	p := PackNormal11_10_11([3]float32{1, 0, 0})
	if p&0x7ff != 2047 {
		t.Errorf("x bits = %d, want 2047", p&0x7ff)
	}
	if (p>>11)&0x3ff != 512 {
		t.Errorf("y bits = %d, want 512", (p>>11)&0x3ff)
	}
	if (p>>21)&0x7ff != 1024 {
		t.Errorf("z bits = %d, want 1024", (p>>21)&0x7ff)
	}
}
