package coherence

import "fmt"

// Stats accumulates per-controller frame counters, for callers that want to surface how
// much work temporal coherence is actually saving.
type Stats struct {
	// FramesRendered counts frames that executed the cache render pass.
	FramesRendered int
	// FramesSkipped counts frames that blitted the cached image instead of rendering.
	FramesSkipped int
	// SortsSkipped counts frames that elided the cull and radix-sort dispatches.
	SortsSkipped int
}

// SkipRatio returns the fraction of frames that skipped rendering entirely.
func (s Stats) SkipRatio() float64 {
	total := s.FramesRendered + s.FramesSkipped
	if total == 0 {
		return 0
	}
	return float64(s.FramesSkipped) / float64(total)
}

// Summary formats the counters for periodic logging.
func (s Stats) Summary() string {
	return fmt.Sprintf("rendered=%d skipped=%d sorts_skipped=%d skip_ratio=%.2f",
		s.FramesRendered, s.FramesSkipped, s.SortsSkipped, s.SkipRatio())
}
