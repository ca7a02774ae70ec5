package sort

import (
	"math/rand"
	stdsort "sort"
	"testing"

	"github.com/wjymzh/3dgs-webgpu/gpu"
)

// radixSortModel is a host-side mirror of the three GPU kernels: per-partition upsweep
// histograms, the spine's two exclusive prefix sums, and the downsweep scatter, four 8-bit
// passes with the same ping-pong rule. It exists to validate the algorithm the WGSL
// implements, element order and offsets included, without a device. The downsweep walk in
// ascending index order is exactly the kernel's rank: the shader processes each partition
// round-major (one key per thread, ascending thread index = ascending key index) and ranks
// a key as earlier-equal-digits-this-round plus digits consumed by earlier rounds, which
// sums to the same earlier-equal-digits-in-partition count this loop computes.
func radixSortModel(keys, values []uint32, numKeys int) {
	capacity := len(keys)
	numPartitions := gpu.NumPartitions(capacity)
	keysTemp := make([]uint32, capacity)
	valuesTemp := make([]uint32, capacity)

	for pass := 0; pass < gpu.NumRadixPasses; pass++ {
		shift := uint(pass * 8)

		srcKeys, srcValues := keys, values
		dstKeys, dstValues := keysTemp, valuesTemp
		if pass%2 == 1 {
			srcKeys, srcValues = keysTemp, valuesTemp
			dstKeys, dstValues = keys, values
		}

		// Upsweep: one histogram per partition plus the pass-wide totals.
		partitionHist := make([][gpu.NumRadixBuckets]uint32, numPartitions)
		var globalHist [gpu.NumRadixBuckets]uint32
		for p := 0; p < numPartitions; p++ {
			lo := p * gpu.BlockSize
			hi := min(lo+gpu.BlockSize, numKeys)
			for i := lo; i < hi; i++ {
				d := (srcKeys[i] >> shift) & 0xFF
				partitionHist[p][d]++
				globalHist[d]++
			}
		}

		// Spine: exclusive scan across digits, then across partitions per digit, leaving
		// partitionHist[p][d] = global start offset for digit d's elements in partition p.
		var digitBase [gpu.NumRadixBuckets]uint32
		var running uint32
		for d := 0; d < gpu.NumRadixBuckets; d++ {
			digitBase[d] = running
			running += globalHist[d]
		}
		for d := 0; d < gpu.NumRadixBuckets; d++ {
			offset := digitBase[d]
			for p := 0; p < numPartitions; p++ {
				count := partitionHist[p][d]
				partitionHist[p][d] = offset
				offset += count
			}
		}

		// Downsweep: stable rank within (partition, digit), scatter to the spine offset.
		for p := 0; p < numPartitions; p++ {
			var localRank [gpu.NumRadixBuckets]uint32
			lo := p * gpu.BlockSize
			hi := min(lo+gpu.BlockSize, numKeys)
			for i := lo; i < hi; i++ {
				d := (srcKeys[i] >> shift) & 0xFF
				pos := partitionHist[p][d] + localRank[d]
				localRank[d]++
				dstKeys[pos] = srcKeys[i]
				dstValues[pos] = srcValues[i]
			}
		}
	}
	// Four passes: the final sorted data lives back in the original buffers.
}

func TestRadixSortModelMatchesReference(t *testing.T) {
	n := 10_000_000
	if testing.Short() {
		n = 100_000
	}
	rng := rand.New(rand.NewSource(1))

	keys := make([]uint32, n)
	values := make([]uint32, n)
	original := make([]uint32, n)
	for i := range keys {
		keys[i] = rng.Uint32()
		values[i] = uint32(i)
		original[i] = keys[i]
	}

	radixSortModel(keys, values, n)

	reference := append([]uint32(nil), original...)
	stdsort.Slice(reference, func(i, j int) bool { return reference[i] < reference[j] })

	for i := range keys {
		if keys[i] != reference[i] {
			t.Fatalf("keys[%d] = %d, want %d", i, keys[i], reference[i])
		}
		if original[values[i]] != keys[i] {
			t.Fatalf("values[%d] = %d does not map back to key %d", i, values[i], keys[i])
		}
	}
}

func TestRadixSortModelStability(t *testing.T) {
	// Equal keys keep input order, so sorting an already-sorted input is the identity on
	// values.
	n := 4 * gpu.BlockSize
	keys := make([]uint32, n)
	values := make([]uint32, n)
	for i := range keys {
		keys[i] = uint32(i / 16) // runs of 16 equal keys
		values[i] = uint32(i)
	}

	radixSortModel(keys, values, n)

	for i := range values {
		if values[i] != uint32(i) {
			t.Fatalf("values[%d] = %d, sort of sorted input must be the identity", i, values[i])
		}
	}
}

func TestRadixSortModelSortsOnlyVisiblePrefix(t *testing.T) {
	// The kernels read the element count from the cull-written indirect args, not the
	// configured capacity; elements past numKeys must not leak into the sorted prefix.
	capacity := 2 * gpu.BlockSize
	numKeys := gpu.BlockSize + 37

	rng := rand.New(rand.NewSource(2))
	keys := make([]uint32, capacity)
	values := make([]uint32, capacity)
	for i := range keys {
		keys[i] = rng.Uint32()
		values[i] = uint32(i)
	}
	reference := append([]uint32(nil), keys[:numKeys]...)
	stdsort.Slice(reference, func(i, j int) bool { return reference[i] < reference[j] })

	radixSortModel(keys, values, numKeys)

	for i := 0; i < numKeys; i++ {
		if keys[i] != reference[i] {
			t.Fatalf("prefix keys[%d] = %d, want %d", i, keys[i], reference[i])
		}
	}
}
