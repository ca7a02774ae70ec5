package coherence

import "testing"

var staticPose = CameraPose{Position: [3]float32{0, 0, 0}, Forward: [3]float32{0, 0, 1}, Up: [3]float32{0, 1, 0}}

func poseAt(y float32) CameraPose {
	p := staticPose
	p.Position[1] = y
	return p
}

func TestSkipSortPositionThreshold(t *testing.T) {
	c := NewController(DefaultConfig()) // position_threshold 0.01

	// Frame 0: first frame never skips.
	d := c.Decide(poseAt(0), false, false, false)
	if d.SkipSort {
		t.Fatal("frame 0 skipped sort with no previous pose")
	}

	// Frame 1: moved 0.005 — below threshold.
	d = c.Decide(poseAt(0.005), false, false, false)
	if !d.SkipSort {
		t.Fatal("frame 1: 0.005 movement should skip sort")
	}
	if c.SkipCount() != 1 {
		t.Fatalf("skip_count = %d, want 1", c.SkipCount())
	}

	// Frame 2: moved to 0.02 — 0.015 from the previous frame, above threshold.
	d = c.Decide(poseAt(0.02), false, false, false)
	if d.SkipSort {
		t.Fatal("frame 2: 0.015 movement should not skip sort")
	}
	if c.SkipCount() != 0 {
		t.Fatalf("skip_count = %d, want 0 after a re-sort", c.SkipCount())
	}
}

func TestDataUpdateForcesFullFrame(t *testing.T) {
	c := NewController(DefaultConfig())
	c.Decide(staticPose, false, true, true)

	d := c.Decide(staticPose, true, true, true)
	if d.SkipSort || d.SkipRender {
		t.Fatalf("data update must force skip_sort and skip_render false, got %+v", d)
	}
}

func TestDisabledNeverSkips(t *testing.T) {
	c := NewController(DisabledConfig())
	for i := 0; i < 10; i++ {
		if d := c.Decide(staticPose, false, true, true); d.SkipSort || d.SkipRender {
			t.Fatalf("frame %d skipped with coherence disabled: %+v", i, d)
		}
	}
}

func TestSkipCountCapResets(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxSkipFrames = 3
	c := NewController(cfg)

	c.Decide(staticPose, false, false, false) // prime
	for i := 0; i < 3; i++ {
		if d := c.Decide(staticPose, false, false, false); !d.SkipSort {
			t.Fatalf("frame %d should skip", i)
		}
		if c.SkipCount() > cfg.MaxSkipFrames {
			t.Fatalf("skip_count %d exceeded cap %d", c.SkipCount(), cfg.MaxSkipFrames)
		}
	}

	// Streak at the cap: the next frame re-sorts and resets.
	if d := c.Decide(staticPose, false, false, false); d.SkipSort {
		t.Fatal("frame at cap should re-sort")
	}
	if c.SkipCount() != 0 {
		t.Fatalf("skip_count = %d after cap, want 0", c.SkipCount())
	}

	// And the streak starts over.
	if d := c.Decide(staticPose, false, false, false); !d.SkipSort {
		t.Fatal("streak should restart after the cap reset")
	}
}

func TestSkipRenderRequiresTrainingAndValidCache(t *testing.T) {
	c := NewController(DefaultConfig())
	c.Decide(staticPose, false, true, true)

	if d := c.Decide(staticPose, false, false, true); d.SkipRender {
		t.Fatal("skip_render granted without all entities in training mode")
	}
	if d := c.Decide(staticPose, false, true, false); d.SkipRender {
		t.Fatal("skip_render granted without a valid cache")
	}
	d := c.Decide(staticPose, false, true, true)
	if !d.SkipRender || !d.SkipSort {
		t.Fatalf("static training frame with valid cache should skip both, got %+v", d)
	}
}

func TestRotationBreaksSkip(t *testing.T) {
	c := NewController(DefaultConfig())
	c.Decide(staticPose, false, false, false)

	rotated := staticPose
	rotated.Forward = [3]float32{0.1, 0, 0.99}
	if d := c.Decide(rotated, false, false, false); d.SkipSort {
		t.Fatal("a rotated camera must re-sort")
	}
}

func TestForceResortInterval(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ForceResortInterval = 4
	c := NewController(cfg)

	c.Decide(staticPose, false, false, false) // frame 1
	forced := 0
	for i := 0; i < 8; i++ {
		if d := c.Decide(staticPose, false, false, false); !d.SkipSort {
			forced++
		}
	}
	if forced != 2 {
		t.Fatalf("forced re-sorts = %d over 8 static frames with interval 4, want 2", forced)
	}
}

func TestCacheResizeInvalidates(t *testing.T) {
	var cache Cache

	if !cache.Resize(800, 600) {
		t.Fatal("first resize must report a change")
	}
	cache.MarkValid()
	if !cache.Valid() {
		t.Fatal("cache should be valid after a render")
	}

	if !cache.Resize(801, 600) {
		t.Fatal("changed viewport must report a change")
	}
	if cache.Valid() {
		t.Fatal("resize must invalidate the cache")
	}

	if cache.Resize(801, 600) {
		t.Fatal("same-size resize must be a no-op")
	}
	cache.MarkValid()
	if !cache.Valid() {
		t.Fatal("cache should revalidate after the next render")
	}
}

func TestStatsSkipRatio(t *testing.T) {
	cfg := TrainingModeConfig()
	c := NewController(cfg)

	c.Decide(staticPose, false, true, true)
	for i := 0; i < 9; i++ {
		c.Decide(staticPose, false, true, true)
	}
	s := c.Stats()
	if s.FramesRendered != 1 || s.FramesSkipped != 9 {
		t.Fatalf("stats = %+v", s)
	}
	if r := s.SkipRatio(); r != 0.9 {
		t.Fatalf("skip ratio = %g, want 0.9", r)
	}
}
