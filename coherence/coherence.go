// Package coherence implements the temporal-coherence controller (spec component C6): the
// per-frame decision of whether the radix sort, or the whole render, can be skipped because
// the camera has not meaningfully moved, plus the lifecycle of the cached image that stands
// in for a skipped render.
package coherence

import "math"

// CameraPose is the per-frame camera snapshot the controller compares across frames.
type CameraPose struct {
	Position [3]float32
	Forward  [3]float32
	Up       [3]float32
}

// Decision is the controller's per-frame output. SkipRender is strictly stronger than
// SkipSort: a frame that skips rendering necessarily also skips sorting.
type Decision struct {
	// SkipSort elides the cull and radix-sort compute dispatches; the cache pass still
	// re-renders with last frame's draw order.
	SkipSort bool

	// SkipRender elides the cache pass too and blits the cached image instead. Only valid
	// when every entity is in training mode and the cached image is intact.
	SkipRender bool
}

// Controller tracks the previous frame's pose and the current skip streaks, and produces
// one Decision per frame.
type Controller struct {
	cfg Config

	prev    *CameraPose
	frame   int
	skips   int
	renders int // consecutive render skips, capped at 2x MaxSkipFrames

	stats Stats
}

// NewController creates a Controller with the given configuration. Use the named presets
// in config.go unless a caller needs bespoke thresholds.
func NewController(cfg Config) *Controller {
	return &Controller{cfg: cfg}
}

// Config returns the controller's configuration.
func (c *Controller) Config() Config { return c.cfg }

// SetConfig replaces the configuration and resets the skip streaks.
func (c *Controller) SetConfig(cfg Config) {
	c.cfg = cfg
	c.skips = 0
	c.renders = 0
}

// SkipCount returns the current consecutive sort-skip streak.
func (c *Controller) SkipCount() int { return c.skips }

// Stats returns a copy of the accumulated frame counters.
func (c *Controller) Stats() Stats { return c.stats }

// Decide compares pose against the previous frame and returns this frame's Decision.
//
// dataUpdated must be true if any entity carries a NeedsUpload tag or a changed transform
// this frame; it forces both skips off regardless of camera state. allTraining and
// cacheValid gate SkipRender only.
func (c *Controller) Decide(pose CameraPose, dataUpdated, allTraining, cacheValid bool) Decision {
	c.frame++
	prev := c.prev
	saved := pose
	c.prev = &saved

	if !c.cfg.Enabled || dataUpdated || prev == nil {
		c.skips = 0
		c.renders = 0
		c.stats.FramesRendered++
		return Decision{}
	}

	static := poseStatic(*prev, pose, c.cfg)

	skipSort := static && c.skips < c.cfg.MaxSkipFrames
	if c.cfg.ForceResortInterval > 0 && c.frame%c.cfg.ForceResortInterval == 0 {
		skipSort = false
	}

	skipRender := skipSort && allTraining && cacheValid && c.renders < 2*c.cfg.MaxSkipFrames

	if skipSort {
		c.skips++
		c.stats.SortsSkipped++
	} else {
		c.skips = 0
	}
	if skipRender {
		c.renders++
		c.stats.FramesSkipped++
	} else {
		c.renders = 0
		c.stats.FramesRendered++
	}

	return Decision{SkipSort: skipSort, SkipRender: skipRender}
}

func poseStatic(prev, cur CameraPose, cfg Config) bool {
	d := [3]float32{
		cur.Position[0] - prev.Position[0],
		cur.Position[1] - prev.Position[1],
		cur.Position[2] - prev.Position[2],
	}
	dist := float32(math.Sqrt(float64(d[0]*d[0] + d[1]*d[1] + d[2]*d[2])))
	if dist > cfg.PositionThreshold {
		return false
	}
	if cosine(prev.Forward, cur.Forward) < cfg.DirectionThreshold {
		return false
	}
	if cosine(prev.Up, cur.Up) < cfg.DirectionThreshold {
		return false
	}
	return true
}

func cosine(a, b [3]float32) float32 {
	dot := float64(a[0]*b[0] + a[1]*b[1] + a[2]*b[2])
	la := math.Sqrt(float64(a[0]*a[0] + a[1]*a[1] + a[2]*a[2]))
	lb := math.Sqrt(float64(b[0]*b[0] + b[1]*b[1] + b[2]*b[2]))
	if la == 0 || lb == 0 {
		return 1
	}
	return float32(dot / (la * lb))
}
