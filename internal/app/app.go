// Package app wires the camera, landmark detector and drowsiness engine into
// a monitoring session and fans its output out to sinks, the event log,
// report generation and alert plugins.
package app

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"gocv.io/x/gocv"

	"github.com/ayusman/vigil/internal/capture"
	"github.com/ayusman/vigil/internal/detector"
	"github.com/ayusman/vigil/internal/drowsiness"
	"github.com/ayusman/vigil/internal/face"
	"github.com/ayusman/vigil/internal/logging"
	"github.com/ayusman/vigil/internal/plugin"
	"github.com/ayusman/vigil/internal/report"
	"github.com/ayusman/vigil/internal/safety"
	"github.com/ayusman/vigil/internal/store"
)

// DefaultPluginTimeout bounds a single plugin run.
const DefaultPluginTimeout = 5 * time.Second

// Config holds configuration options for the application.
type Config struct {
	Store     *store.Store
	Camera    capture.Config
	Detection drowsiness.Config
	Safety    safety.Config

	// Report timing. Generator may be nil, in which case every report is the fallback text.
	Report    report.Config
	Generator report.Generator
	Location  string

	PluginDir     string
	PluginTimeout time.Duration

	Logger *zap.Logger
}

// Sink receives one Update per processed frame.
type Sink interface {
	Publish(u Update)
}

// FrameSink receives every captured frame before detection.
// The frame is only valid for the duration of the call.
type FrameSink interface {
	PublishFrame(frame *gocv.Mat)
}

// App is the main application that orchestrates monitoring.
type App struct {
	config     Config
	camera     capture.Camera
	detector   detector.Detector
	session    *Session
	sinks      []Sink
	frameSinks []FrameSink
	reports    *report.Dispatcher
	pluginMgr  *plugin.Manager
	notifier   *plugin.Notifier
	logger     *zap.Logger

	enabled bool
	mu      sync.RWMutex
	stopCh  chan struct{}
	done    chan struct{}
}

// New creates an App and opens its first session.
func New(config Config) (*App, error) {
	if config.Detection.WindowSize == 0 {
		config.Detection = drowsiness.DefaultConfig()
	}
	if config.Safety.TimeToCritical == 0 {
		config.Safety = safety.DefaultConfig()
	}
	if config.Report.GenerateTimeout == 0 {
		config.Report = report.DefaultConfig()
	}
	if config.PluginTimeout <= 0 {
		config.PluginTimeout = DefaultPluginTimeout
	}

	logger := logging.OrNop(config.Logger)

	var reportLog report.Log
	if config.Store != nil {
		reportLog = config.Store.Reports()
	}

	pluginMgr := plugin.NewManager(config.PluginDir)

	a := &App{
		config:    config,
		camera:    capture.NewCamera(config.Camera),
		reports:   report.NewDispatcher(config.Report, config.Generator, reportLog, logger),
		pluginMgr: pluginMgr,
		notifier:  plugin.NewNotifier(pluginMgr, plugin.NewExecutor(config.PluginTimeout), logger),
		logger:    logger.Named("app"),
		enabled:   true,
	}

	// Try MediaPipe first, fall back to the mock detector
	if mp, err := detector.NewMediaPipeDetector(detector.DefaultConfig()); err == nil {
		a.detector = mp
		a.logger.Info("using MediaPipe face mesh")
	} else {
		a.logger.Warn("MediaPipe not available, using mock detector", zap.Error(err))
		a.detector = detector.NewMockDetector()
	}

	sess := NewSession(config.Detection, config.Safety, logger)
	if err := a.openSession(sess); err != nil {
		return nil, err
	}
	a.session = sess

	return a, nil
}

func (a *App) openSession(sess *Session) error {
	if a.config.Store == nil {
		return nil
	}
	return a.config.Store.Sessions().Create(&store.Session{
		ID:        sess.ID(),
		StartedAt: sess.StartedAt(),
	})
}

func (a *App) closeSession(sess *Session, at time.Time) {
	if a.config.Store == nil {
		return
	}
	if err := a.config.Store.Sessions().End(sess.ID(), at); err != nil {
		a.logger.Warn("failed to end session", zap.String("session", sess.ID()), zap.Error(err))
	}
}

// SetEnabled pauses or resumes frame processing without ending the session.
func (a *App) SetEnabled(enabled bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.enabled = enabled
}

// IsEnabled returns whether monitoring is currently enabled.
func (a *App) IsEnabled() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.enabled
}

// SetDetector sets the landmark detector implementation to use.
func (a *App) SetDetector(d detector.Detector) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.detector = d
}

// SetCamera replaces the frame source. It must be called before Start.
func (a *App) SetCamera(c capture.Camera) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.camera = c
}

// AddSink registers a sink for per-frame updates.
func (a *App) AddSink(s Sink) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.sinks = append(a.sinks, s)
}

// AddFrameSink registers a sink for raw camera frames.
func (a *App) AddFrameSink(s FrameSink) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.frameSinks = append(a.frameSinks, s)
}

// DiscoverPlugins scans the plugin directory and loads available plugins.
func (a *App) DiscoverPlugins() error {
	if err := a.pluginMgr.Discover(); err != nil {
		return err
	}
	a.logger.Info("plugins loaded", zap.Int("count", len(a.pluginMgr.List())))
	return nil
}

// Start opens the camera and begins the frame loop.
func (a *App) Start() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.stopCh != nil {
		return nil
	}

	if err := a.camera.Open(); err != nil {
		return err
	}

	fps := a.config.Camera.FPS
	if fps <= 0 {
		fps = capture.DefaultFPS
	}
	a.camera.SetFPS(fps)

	a.stopCh = make(chan struct{})
	a.done = make(chan struct{})
	go a.runPipeline(fps, a.stopCh, a.done)

	a.logger.Info("monitoring started", zap.Int("fps", fps))
	return nil
}

// Stop halts the frame loop and releases the camera.
func (a *App) Stop() {
	a.mu.Lock()
	stopCh, done := a.stopCh, a.done
	a.stopCh, a.done = nil, nil
	a.mu.Unlock()

	if stopCh == nil {
		return
	}
	close(stopCh)
	<-done

	if err := a.Camera().Close(); err != nil {
		a.logger.Warn("error closing camera", zap.Error(err))
	}

	a.logger.Info("monitoring stopped")
}

// Close stops monitoring, ends the session and waits for pending reports
// and plugin runs.
func (a *App) Close() error {
	a.Stop()

	a.closeSession(a.Session(), time.Now())
	a.reports.Close()
	a.notifier.Wait()

	if d := a.Detector(); d != nil {
		return d.Close()
	}
	return nil
}

// ResetSession ends the current session and starts a new one with fresh state.
func (a *App) ResetSession() (*Session, error) {
	next := NewSession(a.config.Detection, a.config.Safety, a.config.Logger)
	if err := a.openSession(next); err != nil {
		return nil, err
	}

	a.mu.Lock()
	prev := a.session
	a.session = next
	a.mu.Unlock()

	a.closeSession(prev, time.Now())
	a.logger.Info("session reset", zap.String("previous", prev.ID()), zap.String("session", next.ID()))
	return next, nil
}

// ProcessFrame feeds one landmark frame into the current session.
// It reports false when the frame was skipped.
func (a *App) ProcessFrame(lm *face.Landmarks, now time.Time) (Update, bool) {
	sess := a.Session()

	u, tr, ok := sess.Process(lm, now)
	if !ok {
		return u, false
	}
	if tr.Changed() {
		a.handleTransition(sess.ID(), tr)
	}

	a.mu.RLock()
	sinks := a.sinks
	a.mu.RUnlock()
	for _, s := range sinks {
		s.Publish(u)
	}
	return u, true
}

func (a *App) handleTransition(sessionID string, tr safety.Transition) {
	msg := tr.Message()
	fields := []zap.Field{
		zap.String("session", sessionID),
		zap.String("from", string(tr.From)),
		zap.String("to", string(tr.To)),
		zap.Duration("closed", tr.Closed),
		zap.Float64("score", tr.Score),
	}

	switch tr.To {
	case safety.Critical:
		a.logger.Error(msg, append(fields, zap.Int("episode", tr.Episode))...)
	case safety.Warning:
		a.logger.Warn(msg, fields...)
	default:
		a.logger.Info(msg, fields...)
	}

	if a.config.Store != nil {
		err := a.config.Store.Events().Append(&store.Event{
			SessionID: sessionID,
			Kind:      string(tr.Event),
			FromState: string(tr.From),
			ToState:   string(tr.To),
			Episode:   tr.Episode,
			ClosedMs:  tr.Closed.Milliseconds(),
			Score:     tr.Score,
			Message:   msg,
			CreatedAt: tr.At,
		})
		if err != nil {
			a.logger.Error("failed to record event", zap.Error(err))
		}
	}

	a.notifier.Notify(context.Background(), plugin.Request{
		Event:     string(tr.Event),
		SessionID: sessionID,
		From:      string(tr.From),
		To:        string(tr.To),
		Episode:   tr.Episode,
		Message:   msg,
		Score:     tr.Score,
		ClosedMs:  tr.Closed.Milliseconds(),
		At:        tr.At,
	})

	if tr.ReportDue {
		err := a.reports.Dispatch(report.Request{
			SessionID:     sessionID,
			Episode:       tr.Episode,
			ClosedSeconds: tr.Closed.Seconds(),
			Location:      a.config.Location,
		})
		if err != nil {
			a.logger.Warn("report not dispatched", zap.Error(err))
		}
	}
}

// Session returns the current session.
func (a *App) Session() *Session {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.session
}

// Snapshot returns the latest update of the current session.
func (a *App) Snapshot() Update {
	return a.Session().Snapshot(time.Now())
}

// Camera returns the camera instance.
func (a *App) Camera() capture.Camera {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.camera
}

// PluginManager returns the plugin manager.
func (a *App) PluginManager() *plugin.Manager {
	return a.pluginMgr
}

// Detector returns the landmark detector.
func (a *App) Detector() detector.Detector {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.detector
}
