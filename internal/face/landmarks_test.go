package face

import (
	"math"
	"testing"
)

const epsilon = 1e-9

func TestDistance(t *testing.T) {
	tests := []struct {
		name string
		a, b Point
		want float64
	}{
		{"same point", Point{X: 0.3, Y: 0.3}, Point{X: 0.3, Y: 0.3}, 0},
		{"horizontal", Point{X: 0.1, Y: 0.5}, Point{X: 0.4, Y: 0.5}, 0.3},
		{"3-4-5 triangle", Point{X: 0, Y: 0}, Point{X: 0.3, Y: 0.4}, 0.5},
		{"ignores depth", Point{X: 0, Y: 0, Z: 5}, Point{X: 0.3, Y: 0.4, Z: -5}, 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Distance(tt.a, tt.b)
			if math.Abs(got-tt.want) > epsilon {
				t.Errorf("Distance() = %f, want %f", got, tt.want)
			}
			if rev := Distance(tt.b, tt.a); math.Abs(rev-got) > epsilon {
				t.Errorf("Distance is not symmetric: %f vs %f", got, rev)
			}
		})
	}
}

func TestLandmarks_Eye(t *testing.T) {
	lm := OpenEyesLandmarks()
	eye := lm.Eye(LeftEye)

	for i, idx := range LeftEye {
		if eye[i] != lm.Points[idx] {
			t.Errorf("eye point %d: got %+v, want %+v", i, eye[i], lm.Points[idx])
		}
	}

	// Outer and inner corners sit on the same horizontal line.
	if math.Abs(eye[0].Y-eye[3].Y) > epsilon {
		t.Errorf("eye corners not level: %f vs %f", eye[0].Y, eye[3].Y)
	}
}

func TestSynthesize_Geometry(t *testing.T) {
	t.Run("pitch ratio", func(t *testing.T) {
		lm := Synthesize(Pose{EAR: 0.3, Pitch: 0.25})
		ratio := Distance(lm.At(NoseTip), lm.At(Chin)) / Distance(lm.At(NoseBridge), lm.At(Chin))
		if got := 0.6 - ratio; math.Abs(got-0.25) > epsilon {
			t.Errorf("pitch = %f, want 0.25", got)
		}
	})

	t.Run("nose centered between cheeks when facing forward", func(t *testing.T) {
		lm := OpenEyesLandmarks()
		left := Distance(lm.At(LeftCheek), lm.At(NoseTip))
		right := Distance(lm.At(RightCheek), lm.At(NoseTip))
		if math.Abs(left-right) > epsilon {
			t.Errorf("expected symmetric cheeks, got left=%f right=%f", left, right)
		}
	})

	t.Run("eye lids touch as EAR approaches zero", func(t *testing.T) {
		lm := Synthesize(Pose{EAR: 0})
		eye := lm.Eye(RightEye)
		if d := Distance(eye[1], eye[5]); d > epsilon {
			t.Errorf("expected touching lids, got vertical distance %f", d)
		}
	})
}
