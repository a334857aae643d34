package drowsiness

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// ErrInvalidEAR is returned when a sample cannot be a real eye aspect ratio.
var ErrInvalidEAR = errors.New("drowsiness: invalid EAR sample")

// Reading is the tracker's view of the eyes after one sample.
type Reading struct {
	SmoothedEAR     float64
	Closed          bool
	ClosedDuration  time.Duration
	BlinksPerMinute int
	Blinked         bool
}

// Tracker smooths EAR over a fixed window, times eye closures and counts blinks.
// It is owned by a single frame loop and is not safe for concurrent use.
type Tracker struct {
	threshold   float64
	windowSize  int
	blinkWindow time.Duration

	history     []float64
	closed      bool
	closedSince time.Time
	blinks      []time.Time
}

// NewTracker creates a Tracker from the given configuration.
func NewTracker(cfg Config) *Tracker {
	size := cfg.WindowSize
	if size <= 0 {
		size = DefaultWindowSize
	}
	window := cfg.BlinkWindow
	if window <= 0 {
		window = time.Minute
	}

	return &Tracker{
		threshold:   cfg.EARThreshold,
		windowSize:  size,
		blinkWindow: window,
		history:     make([]float64, 0, size),
	}
}

// Update feeds one averaged EAR sample taken at now.
// Invalid samples are rejected without touching the tracker state.
func (t *Tracker) Update(ear float64, now time.Time) (Reading, error) {
	if math.IsNaN(ear) || math.IsInf(ear, 0) || ear < 0 {
		return Reading{}, fmt.Errorf("%w: %v", ErrInvalidEAR, ear)
	}

	t.push(ear)
	smoothed := t.SmoothedEAR()

	r := Reading{SmoothedEAR: smoothed}

	if smoothed < t.threshold {
		if !t.closed {
			t.closed = true
			t.closedSince = now
		}
		r.Closed = true
		if d := now.Sub(t.closedSince); d > 0 {
			r.ClosedDuration = d
		}
	} else {
		if t.closed {
			// closed -> open edge
			t.blinks = append(t.blinks, now)
			r.Blinked = true
		}
		t.closed = false
		t.closedSince = time.Time{}
	}

	r.BlinksPerMinute = t.BlinksPerMinute(now)
	return r, nil
}

// push appends a sample, dropping the oldest once the window is full.
func (t *Tracker) push(ear float64) {
	if len(t.history) >= t.windowSize {
		copy(t.history, t.history[1:])
		t.history = t.history[:t.windowSize-1]
	}
	t.history = append(t.history, ear)
}

// SmoothedEAR returns the mean of the current window, or 0 when empty.
func (t *Tracker) SmoothedEAR() float64 {
	if len(t.history) == 0 {
		return 0
	}
	var sum float64
	for _, v := range t.history {
		sum += v
	}
	return sum / float64(len(t.history))
}

// BlinksPerMinute drops blinks older than the blink window and returns the remaining count.
// The window is one minute, so the count is already a per-minute rate.
func (t *Tracker) BlinksPerMinute(now time.Time) int {
	kept := t.blinks[:0]
	for _, ts := range t.blinks {
		if now.Sub(ts) <= t.blinkWindow {
			kept = append(kept, ts)
		}
	}
	t.blinks = kept
	return len(t.blinks)
}

// History returns a copy of the EAR window, oldest first.
func (t *Tracker) History() []float64 {
	out := make([]float64, len(t.history))
	copy(out, t.history)
	return out
}

// ClosedSince reports when the current closure started.
func (t *Tracker) ClosedSince() (time.Time, bool) {
	return t.closedSince, t.closed
}

// Reset clears all state for a new session.
func (t *Tracker) Reset() {
	t.history = t.history[:0]
	t.closed = false
	t.closedSince = time.Time{}
	t.blinks = nil
}
