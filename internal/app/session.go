package app

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ayusman/vigil/internal/drowsiness"
	"github.com/ayusman/vigil/internal/face"
	"github.com/ayusman/vigil/internal/logging"
	"github.com/ayusman/vigil/internal/safety"
)

// Update is published to every sink once per processed frame.
type Update struct {
	SessionID string             `json:"session_id"`
	Metrics   drowsiness.Metrics `json:"metrics"`
	safety.SessionState
	Episode int       `json:"episode"`
	At      time.Time `json:"at"`
}

// Session owns the temporal state of one monitoring session: the tracker,
// the safety machine and the frame clock. Two sessions never share state.
type Session struct {
	mu        sync.Mutex
	id        string
	startedAt time.Time
	analyzer  *drowsiness.Analyzer
	machine   *safety.Machine
	fps       *fpsMeter
	last      Update
	logger    *zap.Logger
}

// NewSession starts a session with a fresh ID.
func NewSession(dcfg drowsiness.Config, scfg safety.Config, logger *zap.Logger) *Session {
	s := &Session{
		id:        uuid.NewString(),
		startedAt: time.Now(),
		analyzer:  drowsiness.NewAnalyzer(dcfg),
		machine:   safety.NewMachine(scfg),
		fps:       newFPSMeter(time.Second),
	}
	s.logger = logging.OrNop(logger).Named("session").With(zap.String("session", s.id))
	s.last = Update{SessionID: s.id, SessionState: s.machine.Snapshot(s.startedAt)}
	return s
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// StartedAt returns when the session began.
func (s *Session) StartedAt() time.Time {
	return s.startedAt
}

// Process runs one frame through the engine.
//
// A nil lm means no face was found: the frame is skipped and ok is false.
// Invalid input is logged and skipped the same way.
func (s *Session) Process(lm *face.Landmarks, now time.Time) (u Update, tr safety.Transition, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	fps := s.fps.Tick(now)
	if lm == nil {
		return s.last, safety.Transition{}, false
	}

	m, err := s.analyzer.Analyze(lm, now)
	if err != nil {
		s.logger.Warn("skipping frame", zap.Error(err))
		return s.last, safety.Transition{}, false
	}
	m.FPS = fps

	tr = s.machine.Step(safety.Input{
		Closed: m.ClosedDuration(),
		Score:  m.DrowsinessScore,
		Now:    now,
	})

	u = Update{
		SessionID:    s.id,
		Metrics:      m,
		SessionState: s.machine.Snapshot(now),
		Episode:      tr.Episode,
		At:           now,
	}
	s.last = u
	return u, tr, true
}

// Snapshot returns the last update with probation recomputed for now.
func (s *Session) Snapshot(now time.Time) Update {
	s.mu.Lock()
	defer s.mu.Unlock()

	u := s.last
	u.SessionState = s.machine.Snapshot(now)
	return u
}

// State returns the current safety state.
func (s *Session) State() safety.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.machine.State()
}
