package proctor

import (
	"time"
)

// ViolationType identifies the category of a detected integrity violation
type ViolationType string

const (
	// NoFace is raised when no face is visible in the frame
	NoFace ViolationType = "no_face"
	// MultipleFaces is raised when more than one face is visible
	MultipleFaces ViolationType = "multiple_faces"
	// HeadPoseViolation is raised when head rotation exceeds the configured
	// per axis thresholds
	HeadPoseViolation ViolationType = "head_pose"
	// GazeAway is raised when gaze is diverted from the screen
	GazeAway ViolationType = "gaze_away"
	// TabSwitch is reported by an external browser visibility collaborator
	// when the candidate leaves the exam tab or window
	TabSwitch ViolationType = "tab_switch"
)

// Severity grades how serious a confirmed violation is
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// ViolationDetails carries the per tick measurements that triggered a
// violation.  Fields not relevant to the violation type are left at their
// zero values.
type ViolationDetails struct {
	// FaceCount is the number of faces detected on the confirming tick
	FaceCount int
	// HeadPose is the measured head rotation, set for head_pose violations
	HeadPose *HeadPose
	// GazeDirection is the measured gaze offset, set for gaze_away violations
	GazeDirection *GazeDirection
	// FaceBounds are the bounding boxes of all detected faces
	FaceBounds []FaceBounds
	// Description is a human readable summary of the violation.  It is
	// informational only and never affects classification or scoring.
	Description string
}

// Signal is a raw, single tick violation indication produced by the
// classifier (or injected for tab switches) before debouncing
type Signal struct {
	// Type of the indicated violation
	Type ViolationType
	// Confidence of this tick's indication in [0, 1]
	Confidence float64
	// Details holds the measurements behind the indication
	Details ViolationDetails
}

// Violation is a confirmed, debounced violation event.  A Violation is
// immutable once emitted and is owned by whoever receives it, the engine
// retains no history beyond a running counter.
type Violation struct {
	// ID uniquely identifies the event
	ID string
	// Type of the confirmed violation
	Type ViolationType
	// Timestamp is when the violation was confirmed
	Timestamp time.Time
	// Confidence of the confirming tick, in [0, 1]
	Confidence float64
	// Severity grade, a pure function of type and confidence
	Severity Severity
	// Details holds the measurements from the confirming tick
	Details ViolationDetails
	// Snapshot is the JPEG encoded frame captured at confirmation time.
	// Nil when snapshot capture is disabled or no frame is associated with
	// the violation (tab switches).
	Snapshot []byte
}
