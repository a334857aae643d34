package report

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ayusman/vigil/internal/logging"
	"github.com/ayusman/vigil/internal/store"
)

// Log receives finished reports.
type Log interface {
	Append(r *store.Report) error
}

// Config holds dispatcher timing.
type Config struct {
	// DispatchDelay is waited before the generator is called.
	DispatchDelay time.Duration

	// GenerateTimeout bounds a single generator call.
	GenerateTimeout time.Duration
}

// DefaultConfig returns the standard dispatch timing.
func DefaultConfig() Config {
	return Config{
		DispatchDelay:   2 * time.Second,
		GenerateTimeout: 30 * time.Second,
	}
}

// Request describes one CRITICAL episode needing a report.
type Request struct {
	SessionID     string
	Episode       int
	ClosedSeconds float64
	Location      string
}

// Dispatcher generates reports off the frame loop and appends them to a Log.
type Dispatcher struct {
	cfg    Config
	gen    Generator
	log    Log
	logger *zap.Logger

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// NewDispatcher creates a dispatcher. A nil generator always produces FallbackReport.
func NewDispatcher(cfg Config, gen Generator, log Log, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		cfg:    cfg,
		gen:    gen,
		log:    log,
		logger: logging.OrNop(logger).Named("report"),
	}
}

// Dispatch schedules a report and returns immediately.
func (d *Dispatcher) Dispatch(req Request) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return ErrClosed
	}

	d.wg.Add(1)
	go d.run(req)
	return nil
}

// Close stops accepting requests and waits for in-flight reports to be logged.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()

	d.wg.Wait()
}

func (d *Dispatcher) run(req Request) {
	defer d.wg.Done()

	if d.cfg.DispatchDelay > 0 {
		time.Sleep(d.cfg.DispatchDelay)
	}

	text, fallback := d.generate(req)

	rep := &store.Report{
		SessionID:     req.SessionID,
		Episode:       req.Episode,
		ClosedSeconds: req.ClosedSeconds,
		Location:      req.Location,
		Text:          text,
		Fallback:      fallback,
	}

	if d.log == nil {
		return
	}
	if err := d.log.Append(rep); err != nil {
		d.logger.Error("failed to store report",
			zap.String("session", req.SessionID),
			zap.Int("episode", req.Episode),
			zap.Error(err))
		return
	}

	d.logger.Info("incident report logged",
		zap.String("session", req.SessionID),
		zap.Int("episode", req.Episode),
		zap.Bool("fallback", fallback))
}

func (d *Dispatcher) generate(req Request) (string, bool) {
	if d.gen == nil {
		d.logger.Warn("no report generator configured, using fallback", zap.Error(ErrNoAPIKey))
		return FallbackReport, true
	}

	ctx := context.Background()
	if d.cfg.GenerateTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.cfg.GenerateTimeout)
		defer cancel()
	}

	text, err := d.gen.Generate(ctx, req.ClosedSeconds, req.Location)
	if err != nil {
		reason := failureReason(err)
		fields := []zap.Field{
			zap.String("session", req.SessionID),
			zap.Int("episode", req.Episode),
			zap.String("reason", reason),
			zap.Error(err),
		}
		// A rejected key fails every later report too.
		if reason == "unauthorized" {
			d.logger.Error("report generator rejected the API key, using fallback", fields...)
		} else {
			d.logger.Warn("report generation failed, using fallback", fields...)
		}
		return FallbackReport, true
	}
	return text, false
}
