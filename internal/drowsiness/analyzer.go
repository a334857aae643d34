package drowsiness

import (
	"math"
	"time"

	"github.com/ayusman/vigil/internal/face"
)

// Metrics is the immutable per-frame snapshot handed to the state machine and to displays.
type Metrics struct {
	EAR                float64 `json:"ear"`
	EyesClosedDuration float64 `json:"eyes_closed_duration"` // seconds, 0 while open
	BlinksPerMinute    int     `json:"blinks_per_minute"`
	HeadPitch          float64 `json:"head_pitch"`
	HeadYaw            float64 `json:"head_yaw"`
	DrowsinessScore    float64 `json:"drowsiness_score"`
	FPS                float64 `json:"fps"`
}

// ClosedDuration returns EyesClosedDuration as a time.Duration.
func (m Metrics) ClosedDuration() time.Duration {
	return time.Duration(math.Round(m.EyesClosedDuration * float64(time.Second)))
}

// Analyzer runs extraction, tracking and scoring for one session.
type Analyzer struct {
	cfg       Config
	extractor *Extractor
	tracker   *Tracker
}

// NewAnalyzer creates an Analyzer with fresh tracker state.
func NewAnalyzer(cfg Config) *Analyzer {
	return &Analyzer{
		cfg:       cfg,
		extractor: NewExtractor(cfg),
		tracker:   NewTracker(cfg),
	}
}

// Analyze processes one landmark frame taken at now.
// FPS is left at zero; the frame loop owns the frame clock.
func (a *Analyzer) Analyze(lm *face.Landmarks, now time.Time) (Metrics, error) {
	sample := a.extractor.Extract(lm)

	reading, err := a.tracker.Update(sample.EARAvg, now)
	if err != nil {
		return Metrics{}, err
	}

	score := Score(ScoreInput{
		SmoothedEAR:     reading.SmoothedEAR,
		Pitch:           sample.Pitch,
		Closed:          reading.ClosedDuration,
		BlinksPerMinute: reading.BlinksPerMinute,
	}, a.cfg)

	return Metrics{
		EAR:                reading.SmoothedEAR,
		EyesClosedDuration: reading.ClosedDuration.Seconds(),
		BlinksPerMinute:    reading.BlinksPerMinute,
		HeadPitch:          sample.Pitch,
		HeadYaw:            sample.Yaw,
		DrowsinessScore:    score,
	}, nil
}

