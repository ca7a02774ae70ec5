package coherence

// Config holds the per-view thresholds the controller compares camera poses against.
type Config struct {
	// Enabled gates the whole mechanism; when false every frame sorts and renders.
	Enabled bool

	// PositionThreshold is the world-space camera movement below which the pose counts as
	// static.
	PositionThreshold float32

	// DirectionThreshold is the cosine lower bound for the forward and up vectors: a dot
	// product at or above it counts as unrotated.
	DirectionThreshold float32

	// MaxSkipFrames caps the consecutive sort-skip streak. Render skips are allowed twice
	// as long, since they only apply to training-mode entities.
	MaxSkipFrames int

	// ForceResortInterval forces a re-sort every N frames regardless of camera state.
	// Zero disables it.
	ForceResortInterval int
}

// DefaultConfig is the preset used when a caller does not pick one.
func DefaultConfig() Config {
	return Config{
		Enabled:            true,
		PositionThreshold:  0.01,
		DirectionThreshold: 0.9999,
		MaxSkipFrames:      300,
	}
}

// ConservativeConfig skips less aggressively: tighter thresholds, a shorter streak, and a
// periodic forced re-sort.
func ConservativeConfig() Config {
	return Config{
		Enabled:             true,
		PositionThreshold:   0.001,
		DirectionThreshold:  0.99999,
		MaxSkipFrames:       60,
		ForceResortInterval: 120,
	}
}

// AggressiveConfig tolerates more camera drift before re-sorting, for scenes where sort
// cost dominates and slight popping is acceptable.
func AggressiveConfig() Config {
	return Config{
		Enabled:            true,
		PositionThreshold:  0.05,
		DirectionThreshold: 0.999,
		MaxSkipFrames:      1000,
	}
}

// TrainingModeConfig is tuned for live-training preview, where the data updates most
// frames anyway and any static stretch should skip as much as possible.
func TrainingModeConfig() Config {
	return Config{
		Enabled:            true,
		PositionThreshold:  0.02,
		DirectionThreshold: 0.9995,
		MaxSkipFrames:      600,
	}
}

// DisabledConfig turns the mechanism off entirely.
func DisabledConfig() Config {
	return Config{}
}
