package app

import (
	"time"

	"go.uber.org/zap"
)

// runPipeline is the frame loop. It ticks at the camera frame rate and runs
// capture, detection and the engine on a single goroutine. A time.Ticker drops
// ticks while a frame is still being processed, so frames never queue up.
func (a *App) runPipeline(fps int, stopCh <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(time.Second / time.Duration(fps))
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			if !a.IsEnabled() {
				continue
			}
			a.captureFrame()
		}
	}
}

// captureFrame reads, detects and processes a single camera frame.
func (a *App) captureFrame() {
	a.mu.RLock()
	camera, det, frameSinks := a.camera, a.detector, a.frameSinks
	a.mu.RUnlock()

	frame, err := camera.ReadFrame()
	if err != nil {
		a.logger.Warn("error reading frame", zap.Error(err))
		return
	}
	defer frame.Close()

	for _, s := range frameSinks {
		s.PublishFrame(frame)
	}

	if det == nil {
		return
	}

	lm, err := det.Detect(frame)
	if err != nil {
		a.logger.Warn("error detecting face", zap.Error(err))
		return
	}

	a.ProcessFrame(lm, time.Now())
}
