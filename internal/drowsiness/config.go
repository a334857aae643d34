// Package drowsiness derives alertness signals from face landmarks and folds them
// into a per-frame drowsiness score.
package drowsiness

import "time"

// Config holds the tunable thresholds of the signal pipeline.
type Config struct {
	// EARThreshold is the smoothed EAR below which the eyes count as closed.
	EARThreshold float64

	// LowEARThreshold is the smoothed EAR below which the score adds its EAR penalty.
	LowEARThreshold float64

	// HeadPitchThreshold is the pitch proxy above which the head counts as drooping.
	HeadPitchThreshold float64

	// PitchCalibration is the neutral nose/chin ratio for a forward-facing head.
	PitchCalibration float64

	// WindowSize is the number of EAR samples in the moving average.
	WindowSize int

	// BlinkWindow is the trailing window blinks are counted over.
	BlinkWindow time.Duration

	// LowBlinkRate is the blinks-per-minute rate below which the score adds its blink penalty.
	LowBlinkRate int
}

// Score weights.
const (
	LowEARPenalty     = 30.0
	HeadPitchPenalty  = 40.0
	ClosedPerSecond   = 20.0
	LowBlinkPenalty   = 10.0
	MaxScore          = 100.0
	DefaultWindowSize = 10
)

// DefaultConfig returns the calibrated thresholds.
func DefaultConfig() Config {
	return Config{
		EARThreshold:       0.26,
		LowEARThreshold:    0.28,
		HeadPitchThreshold: 0.2,
		PitchCalibration:   0.6,
		WindowSize:         DefaultWindowSize,
		BlinkWindow:        60 * time.Second,
		LowBlinkRate:       10,
	}
}
