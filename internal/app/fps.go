package app

import "time"

// fpsMeter counts frames over a rolling window.
type fpsMeter struct {
	window time.Duration
	stamps []time.Time
}

func newFPSMeter(window time.Duration) *fpsMeter {
	if window <= 0 {
		window = time.Second
	}
	return &fpsMeter{window: window}
}

// Tick records a frame at now and returns the current rate in frames per second.
func (m *fpsMeter) Tick(now time.Time) float64 {
	m.stamps = append(m.stamps, now)

	cutoff := now.Add(-m.window)
	drop := 0
	for drop < len(m.stamps) && !m.stamps[drop].After(cutoff) {
		drop++
	}
	if drop > 0 {
		n := copy(m.stamps, m.stamps[drop:])
		m.stamps = m.stamps[:n]
	}

	return float64(len(m.stamps)) / m.window.Seconds()
}

