package monitor

import (
	"github.com/examio/go-proctor"
)

// Status is the live detection status snapshot.  It is written exclusively
// by the engine loop and delivered to consumers as a copy after every tick
// that changes it, so receivers can never alias engine state.
type Status struct {
	// ModelLoaded reports whether the detector model loaded successfully
	ModelLoaded bool
	// Detecting reports whether the tick loop is running
	Detecting bool
	// FaceCount is the number of faces seen on the last completed tick
	FaceCount int
	// HeadPose is the head rotation measured on the last completed tick,
	// nil when no single face was visible
	HeadPose *proctor.HeadPose
	// RunLengths maps each violation type to the length of its current
	// unbroken run of qualifying ticks
	RunLengths map[proctor.ViolationType]int
	// TotalViolations counts confirmed violations for the session, it is
	// monotonically non decreasing
	TotalViolations int
	// Err describes the most recent tick or load failure, empty when the
	// last tick succeeded
	Err string
}

// clone deep copies the status so consumers cannot mutate engine state
func (s Status) clone() Status {

	out := s

	if s.HeadPose != nil {
		pose := *s.HeadPose
		out.HeadPose = &pose
	}

	if s.RunLengths != nil {
		out.RunLengths = make(map[proctor.ViolationType]int, len(s.RunLengths))
		for k, v := range s.RunLengths {
			out.RunLengths[k] = v
		}
	}

	return out
}

// equal compares two snapshots field by field
func (s Status) equal(other Status) bool {

	if s.ModelLoaded != other.ModelLoaded || s.Detecting != other.Detecting ||
		s.FaceCount != other.FaceCount ||
		s.TotalViolations != other.TotalViolations || s.Err != other.Err {
		return false
	}

	if (s.HeadPose == nil) != (other.HeadPose == nil) {
		return false
	}

	if s.HeadPose != nil && *s.HeadPose != *other.HeadPose {
		return false
	}

	if len(s.RunLengths) != len(other.RunLengths) {
		return false
	}

	for k, v := range s.RunLengths {
		if ov, ok := other.RunLengths[k]; !ok || ov != v {
			return false
		}
	}

	return true
}
