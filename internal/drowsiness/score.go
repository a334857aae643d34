package drowsiness

import "time"

// ScoreInput is the set of signals the drowsiness score is built from.
type ScoreInput struct {
	SmoothedEAR     float64
	Pitch           float64
	Closed          time.Duration
	BlinksPerMinute int
}

// Score combines the signals into a 0-100 drowsiness score.
//
// Each risk indicator adds a fixed penalty independently; closure time adds a linear
// term that is only bounded by the final clamp, so a long enough closure always saturates.
func Score(in ScoreInput, cfg Config) float64 {
	score := 0.0

	if in.SmoothedEAR < cfg.LowEARThreshold {
		score += LowEARPenalty
	}
	if in.Pitch > cfg.HeadPitchThreshold {
		score += HeadPitchPenalty
	}
	score += in.Closed.Seconds() * ClosedPerSecond
	if in.BlinksPerMinute < cfg.LowBlinkRate {
		score += LowBlinkPenalty
	}

	return clamp(score, 0, MaxScore)
}

func clamp(v, lo, hi float64) float64 {
	// NaN fails both comparisons; treat it as no evidence.
	if !(v >= lo) {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
