package proctor

// Facial landmark indices following the YuNet five point convention.  The
// left/right naming is from the subject's perspective, so RightEye is the
// eye appearing on the left side of the image.
const (
	RightEye         = 0
	LeftEye          = 1
	NoseTip          = 2
	RightMouthCorner = 3
	LeftMouthCorner  = 4
	NumLandmarks     = 5
)

// Point represents a landmark coordinate in frame pixel space
type Point struct {
	X int
	Y int
}

// FaceBounds is an axis aligned bounding box around a detected face in
// frame pixel space
type FaceBounds struct {
	X      int
	Y      int
	Width  int
	Height int
}

// Right returns the X coordinate of the right edge of the box
func (b FaceBounds) Right() int {
	return b.X + b.Width
}

// Bottom returns the Y coordinate of the bottom edge of the box
func (b FaceBounds) Bottom() int {
	return b.Y + b.Height
}

// Face represents a single detected face for one tick
type Face struct {
	// Bounds is the bounding box of the face
	Bounds FaceBounds
	// Landmarks are the five facial landmark keypoints, indexed by the
	// landmark constants above
	Landmarks []Point
	// Score is the detector's confidence for this face
	Score float32
}

// HeadPose holds the rotation of the head relative to facing the camera.
// All angles are signed degrees, zero when the subject faces the camera
// straight on.  Positive yaw is a turn toward the subject's left, positive
// pitch is upward and positive roll is a tilt toward the subject's left
// shoulder.
type HeadPose struct {
	Yaw   float64
	Pitch float64
	Roll  float64
}

// GazeDirection is the normalized offset of the estimated gaze from the
// screen centre.  Both axes lie in [-1, 1] with 0 meaning centered.
type GazeDirection struct {
	X float64
	Y float64
}
