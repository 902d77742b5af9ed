package estimate

import (
	"math"

	"github.com/examio/go-proctor"
)

const (
	// noseDrop is the vertical distance from the eye line to the nose tip
	// of a frontal face, as a proportion of the inter eye distance.  Matches
	// the canonical model geometry used by the pose estimator.
	noseDrop = 0.5
	// horizontalGain scales the horizontal nose offset into the [-1, 1]
	// gaze range
	horizontalGain = 2.0
	// verticalGain scales the vertical nose offset into the [-1, 1]
	// gaze range
	verticalGain = 2.0
)

// GazeEstimator derives a normalized gaze offset from eye and nose
// geometry.  With five point landmarks the pupil positions are not
// available, so gaze is approximated from the position of the nose tip
// relative to the eye midpoint, normalized by the inter eye distance.
type GazeEstimator struct{}

// NewGazeEstimator returns an instance of the GazeEstimator
func NewGazeEstimator() *GazeEstimator {
	return &GazeEstimator{}
}

// Gaze estimates the normalized gaze offset for a single face.  Degenerate
// geometry (coincident eye landmarks) yields a centered gaze rather than
// an error.
func (ge *GazeEstimator) Gaze(face proctor.Face) proctor.GazeDirection {

	if len(face.Landmarks) < proctor.NumLandmarks {
		return proctor.GazeDirection{}
	}

	rightEye := face.Landmarks[proctor.RightEye]
	leftEye := face.Landmarks[proctor.LeftEye]
	nose := face.Landmarks[proctor.NoseTip]

	eyeMidX := float64(rightEye.X+leftEye.X) / 2
	eyeMidY := float64(rightEye.Y+leftEye.Y) / 2

	dx := float64(leftEye.X - rightEye.X)
	dy := float64(leftEye.Y - rightEye.Y)
	interEye := dx*dx + dy*dy

	if interEye <= 0 {
		return proctor.GazeDirection{}
	}

	interEyeDist := math.Sqrt(interEye)

	gx := (float64(nose.X) - eyeMidX) / interEyeDist * horizontalGain
	gy := ((float64(nose.Y)-eyeMidY)/interEyeDist - noseDrop) * verticalGain

	return proctor.GazeDirection{
		X: clampUnit(gx),
		Y: clampUnit(gy),
	}
}

// clampUnit restricts a value to the range [-1, 1]
func clampUnit(v float64) float64 {

	if v < -1 {
		return -1
	}

	if v > 1 {
		return 1
	}

	return v
}
