// Package safety implements the hysteresis state machine that turns drowsiness metrics
// into a discrete driver safety state with post-incident probation.
package safety

import "time"

// State is the discrete driver safety state.
type State string

const (
	// Normal means the driver shows no sustained sign of drowsiness.
	Normal State = "NORMAL"
	// Warning means the eyes have stayed closed past the warning threshold.
	Warning State = "WARNING"
	// Critical means the driver is unresponsive and an incident is in progress.
	Critical State = "CRITICAL"
)

// Config holds the state machine thresholds.
type Config struct {
	TimeToWarning  time.Duration // closure that raises WARNING
	TimeToCritical time.Duration // closure that raises CRITICAL
	ProbationTime  time.Duration // heightened sensitivity after a CRITICAL recovery

	// RelapseThreshold is the closure that re-triggers CRITICAL during probation.
	RelapseThreshold time.Duration

	// RecoveryThreshold is the closure below which the eyes count as open again.
	RecoveryThreshold time.Duration

	// RecoveryScore is the drowsiness score CRITICAL must fall below to recover.
	RecoveryScore float64
}

// DefaultConfig returns the standard thresholds.
func DefaultConfig() Config {
	return Config{
		TimeToWarning:     2 * time.Second,
		TimeToCritical:    10 * time.Second,
		ProbationTime:     5 * time.Minute,
		RelapseThreshold:  3 * time.Second,
		RecoveryThreshold: 200 * time.Millisecond,
		RecoveryScore:     20,
	}
}

// Evaluate applies the transition table to one frame and returns the next state.
// The second result reports whether the probation relapse rule produced it.
//
// Rules are checked in priority order, first match wins:
//  1. closure past TimeToCritical -> CRITICAL
//  2. probation active and closure past RelapseThreshold -> CRITICAL (relapse)
//  3. closure past TimeToWarning -> WARNING, except CRITICAL holds
//  4. closure under RecoveryThreshold -> NORMAL, CRITICAL only once score < RecoveryScore
//  5. otherwise the state is unchanged
func Evaluate(prev State, probationActive bool, closed time.Duration, score float64, cfg Config) (State, bool) {
	switch {
	case closed > cfg.TimeToCritical:
		return Critical, false

	case probationActive && closed > cfg.RelapseThreshold:
		return Critical, true

	case closed > cfg.TimeToWarning:
		if prev == Critical {
			return Critical, false
		}
		return Warning, false

	case closed < cfg.RecoveryThreshold:
		if prev == Critical && !(score < cfg.RecoveryScore) {
			return Critical, false
		}
		return Normal, false
	}

	return prev, false
}
