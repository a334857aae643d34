package safety

import (
	"testing"
	"time"
)

var t0 = time.Date(2026, 3, 14, 22, 0, 0, 0, time.UTC)

func ms(n int) time.Duration {
	return time.Duration(n) * time.Millisecond
}

func TestEvaluate(t *testing.T) {
	cfg := DefaultConfig()

	tests := []struct {
		name      string
		prev      State
		probation bool
		closed    time.Duration
		score     float64
		want      State
		relapse   bool
	}{
		{"critical threshold from normal", Normal, false, ms(10001), 0, Critical, false},
		{"critical threshold ignores score", Normal, false, ms(10001), 100, Critical, false},
		{"exactly critical threshold is warning", Normal, false, ms(10000), 50, Warning, false},
		{"relapse during probation", Normal, true, ms(3001), 0, Critical, true},
		{"no relapse without probation", Normal, false, ms(3001), 0, Warning, false},
		{"relapse rule needs strictly more than threshold", Normal, true, ms(3000), 0, Warning, false},
		{"warning threshold", Normal, false, ms(2001), 40, Warning, false},
		{"critical never downgraded to warning", Critical, false, ms(5000), 100, Critical, false},
		{"warning clears when eyes open", Warning, false, ms(150), 90, Normal, false},
		{"critical holds with high score", Critical, false, ms(150), 25, Critical, false},
		{"critical recovers with low score", Critical, false, ms(150), 19, Normal, false},
		{"critical holds at recovery score boundary", Critical, false, ms(150), 20, Critical, false},
		{"normal stays normal", Normal, false, 0, 0, Normal, false},
		{"dead zone keeps warning", Warning, false, ms(1000), 60, Warning, false},
		{"dead zone keeps normal", Normal, false, ms(1500), 60, Normal, false},
		{"dead zone keeps critical", Critical, false, ms(200), 0, Critical, false},
		{"dead zone upper edge", Warning, false, ms(2000), 0, Warning, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, relapse := Evaluate(tt.prev, tt.probation, tt.closed, tt.score, cfg)
			if got != tt.want {
				t.Errorf("Evaluate() state = %s, want %s", got, tt.want)
			}
			if relapse != tt.relapse {
				t.Errorf("Evaluate() relapse = %v, want %v", relapse, tt.relapse)
			}
		})
	}
}

func TestMachine_InitialState(t *testing.T) {
	m := NewMachine(DefaultConfig())
	snap := m.Snapshot(t0)

	if snap.State != Normal {
		t.Errorf("expected NORMAL, got %s", snap.State)
	}
	if snap.ProbationActive {
		t.Error("probation should be inactive at session start")
	}
	if !snap.ProbationEnd.IsZero() {
		t.Errorf("probation end should be unset, got %v", snap.ProbationEnd)
	}
}

func TestMachine_CriticalEntry(t *testing.T) {
	m := NewMachine(DefaultConfig())

	tr := m.Step(Input{Closed: ms(10001), Score: 0, Now: t0})

	if tr.To != Critical {
		t.Fatalf("expected CRITICAL, got %s", tr.To)
	}
	if tr.Event != EventCritical {
		t.Errorf("expected critical event, got %q", tr.Event)
	}
	if !tr.ReportDue {
		t.Error("first CRITICAL entry should request a report")
	}
	if tr.Episode != 1 {
		t.Errorf("expected episode 1, got %d", tr.Episode)
	}

	// Staying critical does not report again.
	tr = m.Step(Input{Closed: ms(12000), Score: 100, Now: t0.Add(2 * time.Second)})
	if tr.Changed() || tr.ReportDue || tr.Event != EventNone {
		t.Errorf("unexpected transition while holding CRITICAL: %+v", tr)
	}
}

func TestMachine_WarningDeadZone(t *testing.T) {
	m := NewMachine(DefaultConfig())

	tr := m.Step(Input{Closed: ms(2500), Score: 50, Now: t0})
	if tr.To != Warning || tr.Event != EventWarning {
		t.Fatalf("expected WARNING entry, got %+v", tr)
	}

	for i, closed := range []int{200, 800, 1999, 2000} {
		tr = m.Step(Input{Closed: ms(closed), Score: 50, Now: t0.Add(time.Duration(i+1) * time.Second)})
		if tr.Changed() {
			t.Errorf("closed=%dms: dead zone changed state %s -> %s", closed, tr.From, tr.To)
		}
	}
}

func TestMachine_RecoveryRequiresLowScore(t *testing.T) {
	m := NewMachine(DefaultConfig())
	m.Step(Input{Closed: ms(10001), Now: t0})

	tr := m.Step(Input{Closed: ms(150), Score: 25, Now: t0.Add(time.Second)})
	if tr.To != Critical {
		t.Fatalf("closed=150 score=25 should stay CRITICAL, got %s", tr.To)
	}
	if m.Snapshot(t0.Add(time.Second)).ProbationActive {
		t.Error("probation must not start while still CRITICAL")
	}

	now := t0.Add(2 * time.Second)
	tr = m.Step(Input{Closed: ms(150), Score: 19, Now: now})
	if tr.To != Normal || tr.Event != EventRecovered {
		t.Fatalf("closed=150 score=19 should recover, got %+v", tr)
	}

	wantEnd := now.Add(5 * time.Minute)
	if !tr.ProbationEnd.Equal(wantEnd) {
		t.Errorf("probation end = %v, want %v", tr.ProbationEnd, wantEnd)
	}
	if !tr.ProbationEnd.After(now) {
		t.Error("probation end must be in the future when set")
	}
	if !m.Snapshot(now).ProbationActive {
		t.Error("probation should be active right after recovery")
	}
}

// recoveredMachine returns a machine that left CRITICAL at t0.
func recoveredMachine(t *testing.T) *Machine {
	t.Helper()
	m := NewMachine(DefaultConfig())
	m.Step(Input{Closed: ms(10001), Now: t0.Add(-time.Second)})
	tr := m.Step(Input{Closed: 0, Score: 0, Now: t0})
	if tr.Event != EventRecovered {
		t.Fatalf("setup: expected recovery, got %+v", tr)
	}
	return m
}

func TestMachine_ProbationRelapse(t *testing.T) {
	m := recoveredMachine(t)

	now := t0.Add(time.Minute)
	tr := m.Step(Input{Closed: ms(3001), Score: 0, Now: now})

	if tr.From != Normal || tr.To != Critical {
		t.Fatalf("expected NORMAL -> CRITICAL relapse, got %s -> %s", tr.From, tr.To)
	}
	if tr.Event != EventRelapse {
		t.Errorf("expected relapse event, got %q", tr.Event)
	}
	if !tr.ReportDue {
		t.Error("relapse starts a new episode and should report")
	}
	if tr.Episode != 2 {
		t.Errorf("expected episode 2, got %d", tr.Episode)
	}
}

func TestMachine_ProbationExpiry(t *testing.T) {
	m := recoveredMachine(t)
	end := t0.Add(300000 * time.Millisecond)

	if got := m.Snapshot(t0).ProbationEnd; !got.Equal(end) {
		t.Fatalf("probation end = %v, want %v", got, end)
	}

	after := t0.Add(300001 * time.Millisecond)
	if m.Snapshot(after).ProbationActive {
		t.Fatal("probation should have expired")
	}

	tr := m.Step(Input{Closed: ms(3001), Score: 0, Now: after})
	if tr.To != Warning {
		t.Errorf("after expiry closed=3001 should only warn, got %s", tr.To)
	}
	if tr.Event == EventRelapse {
		t.Error("relapse rule fired after probation expired")
	}
}

func TestMachine_ScenarioEyesClosedThenOpen(t *testing.T) {
	m := NewMachine(DefaultConfig())
	step := 100 * time.Millisecond

	var warnAt, critAt, normalAt time.Duration
	var critClosed time.Duration
	var probationEnd time.Time

	for elapsed := time.Duration(0); elapsed <= 12*time.Second; elapsed += step {
		in := Input{Now: t0.Add(elapsed)}
		if elapsed <= 10500*time.Millisecond {
			in.Closed = elapsed
			in.Score = 100
		} else {
			in.Closed = 0
			in.Score = 10
		}

		tr := m.Step(in)
		if !tr.Changed() {
			continue
		}
		switch tr.To {
		case Warning:
			warnAt = elapsed
		case Critical:
			critAt = elapsed
			critClosed = in.Closed
		case Normal:
			if normalAt == 0 {
				normalAt = elapsed
				probationEnd = tr.ProbationEnd
			}
		}
	}

	if warnAt != 2100*time.Millisecond {
		t.Errorf("WARNING at %v, want 2.1s", warnAt)
	}
	if critAt != 10100*time.Millisecond || critClosed <= 10*time.Second {
		t.Errorf("CRITICAL at %v (closed %v), want first frame past 10s", critAt, critClosed)
	}
	if normalAt != 10600*time.Millisecond {
		t.Errorf("NORMAL at %v, want first open frame after 10.5s", normalAt)
	}

	for _, offset := range []time.Duration{time.Second, time.Minute, 299 * time.Second} {
		if !m.Snapshot(t0.Add(normalAt + offset)).ProbationActive {
			t.Errorf("probation inactive %v after recovery", offset)
		}
	}
	if m.Snapshot(probationEnd.Add(time.Millisecond)).ProbationActive {
		t.Error("probation still active after its end")
	}
}

func TestMachine_WarningClears(t *testing.T) {
	m := NewMachine(DefaultConfig())
	m.Step(Input{Closed: ms(2500), Score: 60, Now: t0})

	tr := m.Step(Input{Closed: 0, Score: 60, Now: t0.Add(time.Second)})
	if tr.To != Normal || tr.Event != EventCleared {
		t.Errorf("expected WARNING to clear, got %+v", tr)
	}
	if m.Snapshot(t0.Add(time.Second)).ProbationActive {
		t.Error("clearing a warning must not start probation")
	}
}

func TestMachine_Reset(t *testing.T) {
	m := recoveredMachine(t)
	m.Reset()

	snap := m.Snapshot(t0)
	if snap.State != Normal || snap.ProbationActive || m.Episode() != 0 {
		t.Errorf("unexpected state after Reset: %+v episode=%d", snap, m.Episode())
	}
}

func TestTransition_Message(t *testing.T) {
	tests := []struct {
		tr   Transition
		want string
	}{
		{Transition{Event: EventWarning, Closed: 2100 * time.Millisecond}, "Drowsiness warning: eyes closed for 2.1s"},
		{Transition{Event: EventRelapse, Closed: 3200 * time.Millisecond}, "CRITICAL relapse during probation: eyes closed for 3.2s"},
		{Transition{Event: EventCleared}, "Warning cleared, eyes open"},
	}

	for _, tt := range tests {
		if got := tt.tr.Message(); got != tt.want {
			t.Errorf("Message() = %q, want %q", got, tt.want)
		}
	}
}
