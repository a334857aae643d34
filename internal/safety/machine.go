package safety

import (
	"fmt"
	"time"
)

// EventKind classifies a state change for logging and alerting.
type EventKind string

const (
	EventNone      EventKind = ""
	EventWarning   EventKind = "warning"
	EventCritical  EventKind = "critical"
	EventRelapse   EventKind = "relapse"
	EventRecovered EventKind = "recovered"
	EventCleared   EventKind = "cleared"
)

// Input is the per-frame data the machine consumes.
type Input struct {
	Closed time.Duration
	Score  float64
	Now    time.Time
}

// SessionState is the externally visible state of the machine.
type SessionState struct {
	State           State     `json:"state"`
	ProbationActive bool      `json:"probation_active"`
	ProbationEnd    time.Time `json:"probation_end"`
}

// Transition describes the outcome of one Step.
type Transition struct {
	From         State
	To           State
	Event        EventKind
	ReportDue    bool // first CRITICAL entry of an episode
	Episode      int  // CRITICAL episode counter, 1-based once any has occurred
	ProbationEnd time.Time
	Closed       time.Duration
	Score        float64
	At           time.Time
}

// Changed reports whether the state moved.
func (t Transition) Changed() bool {
	return t.From != t.To
}

// Message renders a one-line description for the event log.
func (t Transition) Message() string {
	closed := t.Closed.Seconds()
	switch t.Event {
	case EventWarning:
		return fmt.Sprintf("Drowsiness warning: eyes closed for %.1fs", closed)
	case EventCritical:
		return fmt.Sprintf("CRITICAL: driver unresponsive, eyes closed for %.1fs", closed)
	case EventRelapse:
		return fmt.Sprintf("CRITICAL relapse during probation: eyes closed for %.1fs", closed)
	case EventRecovered:
		return fmt.Sprintf("Driver recovered (score %.0f), probation until %s", t.Score, t.ProbationEnd.Format(time.Kitchen))
	case EventCleared:
		return "Warning cleared, eyes open"
	}
	return fmt.Sprintf("%s -> %s", t.From, t.To)
}

// Machine is the per-session safety state machine.
// It is driven by a single frame loop and is not safe for concurrent use.
type Machine struct {
	cfg              Config
	state            State
	probationEnd     time.Time
	incidentReported bool
	episode          int
}

// NewMachine creates a machine in NORMAL with probation inactive.
func NewMachine(cfg Config) *Machine {
	return &Machine{
		cfg:   cfg,
		state: Normal,
	}
}

// Step advances the machine by one frame.
func (m *Machine) Step(in Input) Transition {
	probationActive := in.Now.Before(m.probationEnd)

	prev := m.state
	next, relapse := Evaluate(prev, probationActive, in.Closed, in.Score, m.cfg)

	tr := Transition{
		From:   prev,
		To:     next,
		Closed: in.Closed,
		Score:  in.Score,
		At:     in.Now,
	}

	if next != prev {
		m.state = next

		switch {
		case prev == Critical && next == Normal:
			m.probationEnd = in.Now.Add(m.cfg.ProbationTime)
			m.incidentReported = false
			tr.Event = EventRecovered

		case next == Normal:
			tr.Event = EventCleared

		case next == Warning:
			tr.Event = EventWarning

		case next == Critical:
			m.episode++
			if relapse {
				tr.Event = EventRelapse
			} else {
				tr.Event = EventCritical
			}
			if !m.incidentReported {
				m.incidentReported = true
				tr.ReportDue = true
			}
		}
	}

	tr.Episode = m.episode
	tr.ProbationEnd = m.probationEnd
	return tr
}

// Snapshot returns the session state as of now.
func (m *Machine) Snapshot(now time.Time) SessionState {
	return SessionState{
		State:           m.state,
		ProbationActive: now.Before(m.probationEnd),
		ProbationEnd:    m.probationEnd,
	}
}

// State returns the current safety state.
func (m *Machine) State() State {
	return m.state
}

// Episode returns the number of CRITICAL episodes so far.
func (m *Machine) Episode() int {
	return m.episode
}

// Reset returns the machine to NORMAL with probation inactive.
func (m *Machine) Reset() {
	m.state = Normal
	m.probationEnd = time.Time{}
	m.incidentReported = false
	m.episode = 0
}
