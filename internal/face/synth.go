package face

// Pose describes a synthetic face used by fixtures and simulations.
type Pose struct {
	// EAR is the eye aspect ratio both eyes are drawn with.
	EAR float64
	// Pitch is the head-pitch proxy the nose placement should produce.
	Pitch float64
	// Yaw is the head-yaw proxy in [0,1]; positive turns the nose toward the right cheek.
	Yaw float64
}

// Synthetic face geometry.
const (
	eyeWidth      = 0.06
	eyeY          = 0.42
	leftEyeX      = 0.42
	rightEyeX     = 0.58
	bridgeY       = 0.40
	chinY         = 0.75
	cheekLeftX    = 0.30
	cheekRightX   = 0.70
	pitchNeutral  = 0.6
	faceMidlineX  = 0.5
	cheekHalfSpan = (cheekRightX - cheekLeftX) / 2
)

// Synthesize builds a landmark set whose derived signals match the pose.
// Only the points the alertness engine reads are placed; all others sit at the face center.
func Synthesize(p Pose) Landmarks {
	lm := Landmarks{Score: 0.97}
	for i := range lm.Points {
		lm.Points[i] = Point{X: faceMidlineX, Y: 0.5}
	}

	placeEye(&lm, LeftEye, leftEyeX, p.EAR)
	placeEye(&lm, RightEye, rightEyeX, p.EAR)

	// Shift the midline so the nose sits between the cheeks at the requested yaw.
	midX := faceMidlineX + cheekHalfSpan*p.Yaw

	// pitch = 0.6 - d(nose,chin)/d(bridge,chin)
	noseToChin := (pitchNeutral - p.Pitch) * (chinY - bridgeY)
	noseY := chinY - noseToChin

	lm.Points[NoseBridge] = Point{X: midX, Y: bridgeY}
	lm.Points[Chin] = Point{X: midX, Y: chinY}
	lm.Points[NoseTip] = Point{X: midX, Y: noseY}
	lm.Points[LeftCheek] = Point{X: cheekLeftX, Y: noseY}
	lm.Points[RightCheek] = Point{X: cheekRightX, Y: noseY}

	return lm
}

// placeEye draws a six-point contour with EAR = 2h/w.
func placeEye(lm *Landmarks, idx [6]int, cx, ear float64) {
	h := ear * eyeWidth / 2
	w := eyeWidth
	lm.Points[idx[0]] = Point{X: cx - w/2, Y: eyeY}
	lm.Points[idx[1]] = Point{X: cx - w/6, Y: eyeY - h}
	lm.Points[idx[2]] = Point{X: cx + w/6, Y: eyeY - h}
	lm.Points[idx[3]] = Point{X: cx + w/2, Y: eyeY}
	lm.Points[idx[4]] = Point{X: cx + w/6, Y: eyeY + h}
	lm.Points[idx[5]] = Point{X: cx - w/6, Y: eyeY + h}
}

// OpenEyesLandmarks returns an alert, forward-facing driver.
func OpenEyesLandmarks() Landmarks {
	return Synthesize(Pose{EAR: 0.32})
}

// ClosedEyesLandmarks returns a forward-facing driver with the lids nearly touching.
func ClosedEyesLandmarks() Landmarks {
	return Synthesize(Pose{EAR: 0.10})
}

// HeadDownLandmarks returns a driver with open eyes and the head tipped forward.
func HeadDownLandmarks() Landmarks {
	return Synthesize(Pose{EAR: 0.30, Pitch: 0.3})
}

// HeadTurnedLandmarks returns a driver looking well off to one side.
func HeadTurnedLandmarks() Landmarks {
	return Synthesize(Pose{EAR: 0.32, Yaw: 0.6})
}
