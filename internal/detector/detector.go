// Package detector produces face landmarks from video frames.
package detector

import (
	"gocv.io/x/gocv"

	"github.com/ayusman/vigil/internal/face"
)

// Detector defines the interface for face landmark producers.
type Detector interface {
	// Detect analyzes a video frame and returns the landmarks of the first face.
	// Returns nil, nil when no face is found.
	Detect(frame *gocv.Mat) (*face.Landmarks, error)

	// Close releases any resources held by the detector.
	Close() error
}

// Config holds configuration options for face detection.
type Config struct {
	// MinConfidence is the minimum detection confidence threshold (0.0-1.0).
	MinConfidence float64

	// MinTrackingConf is the minimum tracking confidence threshold (0.0-1.0).
	MinTrackingConf float64

	// ScriptPath overrides the face mesh service lookup.
	ScriptPath string
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() Config {
	return Config{
		MinConfidence:   0.5,
		MinTrackingConf: 0.5,
	}
}
