package gpu

import "testing"

func TestNumPartitions(t *testing.T) {
	cases := []struct {
		count int
		want  int
	}{
		{0, 0},
		{-5, 0},
		{1, 1},
		{BlockSize, 1},
		{BlockSize + 1, 2},
		{10_000_000, 9766},
	}
	for _, c := range cases {
		if got := NumPartitions(c.count); got != c.want {
			t.Errorf("NumPartitions(%d) = %d, want %d", c.count, got, c.want)
		}
	}
}

func TestFieldSizes(t *testing.T) {
	standard := fieldSizes(LayoutStandard, 10)
	if standard[BindingPositions] != 120 {
		t.Errorf("positions = %d bytes, want 120", standard[BindingPositions])
	}
	if standard[BindingSHHigher] != 1800 {
		t.Errorf("sh_higher = %d bytes, want 1800 (45 floats per splat)", standard[BindingSHHigher])
	}
	if standard[BindingState] != 40 {
		t.Errorf("state = %d bytes, want 40 (u32 per splat)", standard[BindingState])
	}

	packed := fieldSizes(LayoutPacked, 10)
	if packed[BindingPackedWords] != 160 {
		t.Errorf("packed words = %d bytes, want 160", packed[BindingPackedWords])
	}
	if packed[BindingPackedSH] != 640 {
		t.Errorf("packed SH = %d bytes, want 640 (64 B per splat)", packed[BindingPackedSH])
	}
}

func TestSortHistogramSizes(t *testing.T) {
	sizes := sortHistogramFieldSizes(BlockSize*3 + 1)
	if sizes[BindingGlobalHistogram] != NumRadixPasses*NumRadixBuckets*4 {
		t.Errorf("global histogram = %d bytes", sizes[BindingGlobalHistogram])
	}
	if sizes[BindingPartitionHistogram] != 4*NumRadixBuckets*4 {
		t.Errorf("partition histogram = %d bytes, want 4 partitions x 256 bins", sizes[BindingPartitionHistogram])
	}
}
