// Package testdata provides scripted driver scenarios for end-to-end tests.
package testdata

import (
	"embed"
	"encoding/json"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/ayusman/vigil/internal/face"
)

//go:embed scenarios/*.json
var scenariosFS embed.FS

// Phase holds one pose for a stretch of time.
type Phase struct {
	// Pose names a fixture: open, closed, head_down, head_turned or none.
	// When empty, EAR, Pitch and Yaw describe a custom face.
	Pose       string  `json:"pose"`
	EAR        float64 `json:"ear"`
	Pitch      float64 `json:"pitch"`
	Yaw        float64 `json:"yaw"`
	DurationMs int     `json:"duration_ms"`
}

// Expectation is one state change the scenario must produce.
type Expectation struct {
	Event       string `json:"event"`
	To          string `json:"to"`
	AtMs        int64  `json:"at_ms"`
	ToleranceMs int64  `json:"tolerance_ms"`
	Episode     int    `json:"episode"`

	// Note explains timing that is not obvious from the phases.
	Note string `json:"note,omitempty"`
}

// Scenario is a scripted drive.
type Scenario struct {
	Name       string        `json:"name"`
	IntervalMs int           `json:"interval_ms"`
	Phases     []Phase       `json:"phases"`
	Expect     []Expectation `json:"expect"`
	Reports    int           `json:"reports"`
}

// Frame is one scripted detector result. A nil Face means no face was found.
type Frame struct {
	Face   *face.Landmarks
	Offset time.Duration
}

// LoadScenario loads a scenario by name, without the .json extension.
func LoadScenario(name string) (*Scenario, error) {
	data, err := scenariosFS.ReadFile("scenarios/" + name + ".json")
	if err != nil {
		return nil, fmt.Errorf("load scenario %s: %w", name, err)
	}

	var sc Scenario
	if err := json.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("decode scenario %s: %w", name, err)
	}
	if sc.IntervalMs <= 0 {
		return nil, fmt.Errorf("scenario %s: interval_ms must be positive", name)
	}
	return &sc, nil
}

// Scenarios lists the embedded scenario names.
func Scenarios() ([]string, error) {
	entries, err := scenariosFS.ReadDir("scenarios")
	if err != nil {
		return nil, err
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		names = append(names, strings.TrimSuffix(entry.Name(), path.Ext(entry.Name())))
	}
	return names, nil
}

// Frames expands the phases into per-frame detector results.
func (s *Scenario) Frames() ([]Frame, error) {
	interval := time.Duration(s.IntervalMs) * time.Millisecond

	var frames []Frame
	var offset time.Duration
	for i, p := range s.Phases {
		lm, err := p.landmarks()
		if err != nil {
			return nil, fmt.Errorf("phase %d: %w", i, err)
		}

		end := offset + time.Duration(p.DurationMs)*time.Millisecond
		for ; offset < end; offset += interval {
			frames = append(frames, Frame{Face: lm, Offset: offset})
		}
	}
	return frames, nil
}

func (p Phase) landmarks() (*face.Landmarks, error) {
	var lm face.Landmarks
	switch p.Pose {
	case "open":
		lm = face.OpenEyesLandmarks()
	case "closed":
		lm = face.ClosedEyesLandmarks()
	case "head_down":
		lm = face.HeadDownLandmarks()
	case "head_turned":
		lm = face.HeadTurnedLandmarks()
	case "none":
		return nil, nil
	case "":
		lm = face.Synthesize(face.Pose{EAR: p.EAR, Pitch: p.Pitch, Yaw: p.Yaw})
	default:
		return nil, fmt.Errorf("unknown pose %q", p.Pose)
	}
	return &lm, nil
}
