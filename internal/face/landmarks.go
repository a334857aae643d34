// Package face provides face landmark types and geometry helpers for the alertness engine.
package face

import "math"

// Face mesh landmark indices following the MediaPipe Face Mesh convention.
// See: https://developers.google.com/mediapipe/solutions/vision/face_landmarker
const (
	NoseTip      = 1
	Chin         = 152
	NoseBridge   = 168
	LeftCheek    = 234
	RightCheek   = 454
	NumLandmarks = 468
)

// Eye contours, ordered outer-corner, upper-lid-outer, upper-lid-inner,
// inner-corner, lower-lid-inner, lower-lid-outer.
var (
	LeftEye  = [6]int{33, 160, 158, 133, 153, 144}
	RightEye = [6]int{362, 385, 387, 263, 373, 380}
)

// Point represents a landmark in image-normalized coordinates.
// X and Y are in [0,1]; Z is relative depth and is ignored by the 2D geometry.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Landmarks is the ordered point set produced for one detected face in one frame.
type Landmarks struct {
	Points [NumLandmarks]Point `json:"points"`
	Score  float64             `json:"score"`
}

// Distance returns the 2D Euclidean distance between two points.
func Distance(p1, p2 Point) float64 {
	dx := p1.X - p2.X
	dy := p1.Y - p2.Y
	return math.Sqrt(dx*dx + dy*dy)
}

// Eye returns the six contour points for the given eye index set.
func (l *Landmarks) Eye(indices [6]int) [6]Point {
	var eye [6]Point
	for i, idx := range indices {
		eye[i] = l.Points[idx]
	}
	return eye
}

// At returns the point at index i.
func (l *Landmarks) At(i int) Point {
	return l.Points[i]
}
