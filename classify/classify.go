// Package classify maps one tick's face detection result into raw
// violation signals using configured thresholds.  Signals from this package
// are single frame indications only, the track package debounces them into
// confirmed violations.
package classify

import (
	"github.com/examio/go-proctor"
	"github.com/examio/go-proctor/estimate"
)

// Params defines the threshold configuration for classification
type Params struct {
	// PoseThresholds are the per axis degree limits for head rotation
	PoseThresholds estimate.PoseThresholds
	// GazeThreshold is the normalized gaze offset limit in (0, 1]
	GazeThreshold float64
}

// DefaultParams returns an instance of Params configured with the
// standard limits:
// - Yaw: 30°
// - Pitch: 25°
// - Roll: 20°
// - Gaze: 0.3
func DefaultParams() Params {
	return Params{
		PoseThresholds: estimate.DefaultPoseThresholds(),
		GazeThreshold:  0.3,
	}
}

// Classifier turns a tick's detection result into raw violation signals
type Classifier struct {
	// Params are the threshold configuration parameters
	Params Params
	// pose recovers head rotation from landmarks
	pose *estimate.PoseEstimator
	// gaze recovers the normalized gaze offset from landmarks
	gaze *estimate.GazeEstimator
}

// NewClassifier returns an instance of the Classifier
func NewClassifier(p Params) *Classifier {
	return &Classifier{
		Params: p,
		pose:   estimate.NewPoseEstimator(),
		gaze:   estimate.NewGazeEstimator(),
	}
}

// Classify inspects the faces detected on one tick and returns the raw
// violation signals for that tick plus the measured head pose of the
// primary face, if one was computed.
//
// Classification order is fixed: no_face and multiple_faces are exclusive
// with the single face checks by construction, and a head pose breach
// masks the gaze check since gaze estimated from an extreme pose is
// unreliable.  At most one signal is returned per tick.
func (c *Classifier) Classify(faces []proctor.Face) ([]proctor.Signal, *proctor.HeadPose) {

	switch {
	case len(faces) == 0:
		return []proctor.Signal{c.noFaceSignal()}, nil

	case len(faces) > 1:
		return []proctor.Signal{c.multipleFacesSignal(faces)}, nil
	}

	face := faces[0]

	pose, err := c.pose.HeadPose(face.Landmarks)

	if err != nil {
		// landmarks too poor to estimate, skip the single face checks
		// rather than raise a spurious violation
		return nil, nil
	}

	if sig, breached := c.headPoseSignal(pose); breached {
		return []proctor.Signal{sig}, &pose
	}

	if sig, breached := c.gazeSignal(face); breached {
		return []proctor.Signal{sig}, &pose
	}

	return nil, &pose
}

// noFaceSignal builds the signal for an empty frame.  The condition is
// binary so confidence is always 1.
func (c *Classifier) noFaceSignal() proctor.Signal {
	return proctor.Signal{
		Type:       proctor.NoFace,
		Confidence: 1.0,
		Details: proctor.ViolationDetails{
			FaceCount: 0,
		},
	}
}

// multipleFacesSignal builds the signal for more than one face in frame.
// Confidence is the mean detector score across the faces, or 1 when the
// detector supplies no scores.
func (c *Classifier) multipleFacesSignal(faces []proctor.Face) proctor.Signal {

	bounds := make([]proctor.FaceBounds, len(faces))
	sum := float64(0)
	scored := 0

	for i, face := range faces {
		bounds[i] = face.Bounds

		if face.Score > 0 {
			sum += float64(face.Score)
			scored++
		}
	}

	confidence := 1.0
	if scored == len(faces) && scored > 0 {
		confidence = sum / float64(scored)
	}

	return proctor.Signal{
		Type:       proctor.MultipleFaces,
		Confidence: confidence,
		Details: proctor.ViolationDetails{
			FaceCount:  len(faces),
			FaceBounds: bounds,
		},
	}
}

// headPoseSignal checks the measured pose against the per axis thresholds.
// Confidence is min(1, maxExcess/threshold) where maxExcess is the largest
// overshoot across the three axes relative to its own threshold.
func (c *Classifier) headPoseSignal(pose proctor.HeadPose) (proctor.Signal, bool) {

	t := c.Params.PoseThresholds

	ratio := maxExcessRatio(pose.Yaw, t.Yaw)

	if r := maxExcessRatio(pose.Pitch, t.Pitch); r > ratio {
		ratio = r
	}

	if r := maxExcessRatio(pose.Roll, t.Roll); r > ratio {
		ratio = r
	}

	if ratio <= 0 {
		return proctor.Signal{}, false
	}

	if ratio > 1 {
		ratio = 1
	}

	measured := pose

	return proctor.Signal{
		Type:       proctor.HeadPoseViolation,
		Confidence: ratio,
		Details: proctor.ViolationDetails{
			FaceCount: 1,
			HeadPose:  &measured,
		},
	}, true
}

// gazeSignal checks the estimated gaze offset against the configured
// threshold.  Confidence is the normalized overshoot
// min(1, max(|x|,|y|)/threshold - 1 + threshold) clamped into [0, 1].
func (c *Classifier) gazeSignal(face proctor.Face) (proctor.Signal, bool) {

	gaze := c.gaze.Gaze(face)

	offset := abs(gaze.X)
	if o := abs(gaze.Y); o > offset {
		offset = o
	}

	if offset <= c.Params.GazeThreshold {
		return proctor.Signal{}, false
	}

	confidence := offset/c.Params.GazeThreshold - 1 + c.Params.GazeThreshold

	if confidence > 1 {
		confidence = 1
	}

	if confidence < 0 {
		confidence = 0
	}

	measured := gaze

	return proctor.Signal{
		Type:       proctor.GazeAway,
		Confidence: confidence,
		Details: proctor.ViolationDetails{
			FaceCount:     1,
			GazeDirection: &measured,
		},
	}, true
}

// maxExcessRatio returns how far over its threshold an angle is, as a
// proportion of that threshold.  Zero or negative means within bounds.
func maxExcessRatio(angle, threshold float64) float64 {

	if threshold <= 0 {
		return 0
	}

	a := abs(angle)

	return (a - threshold) / threshold
}

// abs returns the absolute value of a float64
func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
