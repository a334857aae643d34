package drowsiness

import (
	"math"

	"github.com/ayusman/vigil/internal/face"
)

// Sample holds the raw signals derived from one landmark frame.
type Sample struct {
	EARLeft  float64 `json:"ear_left"`
	EARRight float64 `json:"ear_right"`
	EARAvg   float64 `json:"ear_avg"`
	Pitch    float64 `json:"pitch"`
	Yaw      float64 `json:"yaw"`
}

// EyeAspectRatio computes (|p2-p6| + |p3-p5|) / (2|p1-p4|) for a six-point eye contour.
// A degenerate contour with zero width yields 0.
func EyeAspectRatio(eye [6]face.Point) float64 {
	width := face.Distance(eye[0], eye[3])
	if width == 0 {
		return 0
	}
	vertical := face.Distance(eye[1], eye[5]) + face.Distance(eye[2], eye[4])
	return vertical / (2 * width)
}

// Extractor derives a Sample from landmarks.
type Extractor struct {
	pitchCalibration float64
}

// NewExtractor creates an Extractor using the pitch calibration from cfg.
func NewExtractor(cfg Config) *Extractor {
	return &Extractor{pitchCalibration: cfg.PitchCalibration}
}

// Extract computes eye aspect ratios and the head pose proxy.
// The caller must only pass landmarks for a face that was actually found.
func (e *Extractor) Extract(lm *face.Landmarks) Sample {
	left := EyeAspectRatio(lm.Eye(face.LeftEye))
	right := EyeAspectRatio(lm.Eye(face.RightEye))

	return Sample{
		EARLeft:  left,
		EARRight: right,
		EARAvg:   (left + right) / 2,
		Pitch:    e.pitch(lm),
		Yaw:      yaw(lm),
	}
}

// pitch grows as the nose tip drops toward the chin.
func (e *Extractor) pitch(lm *face.Landmarks) float64 {
	chin := lm.At(face.Chin)
	bridgeToChin := face.Distance(lm.At(face.NoseBridge), chin)
	if bridgeToChin == 0 {
		return 0
	}
	return e.pitchCalibration - face.Distance(lm.At(face.NoseTip), chin)/bridgeToChin
}

// yaw is 0 with the nose centered between the cheeks and approaches 1 as it reaches one cheek.
func yaw(lm *face.Landmarks) float64 {
	nose := lm.At(face.NoseTip)
	left := face.Distance(lm.At(face.LeftCheek), nose)
	right := face.Distance(lm.At(face.RightCheek), nose)
	if left+right == 0 {
		return 0
	}
	return math.Abs(left/(left+right)-0.5) * 2
}
