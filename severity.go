package proctor

import (
	"fmt"
)

// GradeSeverity returns the severity grade for a violation of the given
// type confirmed with the given tick confidence
func GradeSeverity(vtype ViolationType, confidence float64) Severity {

	switch vtype {
	case MultipleFaces:
		if confidence > 0.9 {
			return SeverityCritical
		}
		return SeverityHigh

	case NoFace:
		return SeverityHigh

	case TabSwitch:
		return SeverityMedium

	case HeadPoseViolation, GazeAway:
		if confidence > 0.8 {
			return SeverityMedium
		}
		return SeverityLow
	}

	return SeverityLow
}

// DescribeViolation builds a human readable sentence for a violation from
// its type and measured details
func DescribeViolation(vtype ViolationType, details ViolationDetails) string {

	switch vtype {
	case NoFace:
		return "No face visible in frame"

	case MultipleFaces:
		return fmt.Sprintf("%d faces visible in frame", details.FaceCount)

	case HeadPoseViolation:
		if details.HeadPose == nil {
			return "Head turned away from screen"
		}
		return fmt.Sprintf("Head turned %s (yaw %.0f°, pitch %.0f°, roll %.0f°)",
			poseDirection(*details.HeadPose), details.HeadPose.Yaw,
			details.HeadPose.Pitch, details.HeadPose.Roll)

	case GazeAway:
		if details.GazeDirection == nil {
			return "Gaze diverted from screen"
		}
		return fmt.Sprintf("Gaze diverted %s from screen",
			gazeDirection(*details.GazeDirection))

	case TabSwitch:
		return "Candidate switched tab or window"
	}

	return string(vtype)
}

// poseDirection names the dominant direction of a head turn from the sign
// of the yaw and pitch angles
func poseDirection(pose HeadPose) string {

	absYaw := pose.Yaw
	if absYaw < 0 {
		absYaw = -absYaw
	}

	absPitch := pose.Pitch
	if absPitch < 0 {
		absPitch = -absPitch
	}

	if absYaw >= absPitch {
		if pose.Yaw >= 0 {
			return "left"
		}
		return "right"
	}

	if pose.Pitch >= 0 {
		return "up"
	}
	return "down"
}

// gazeDirection names the dominant direction of a gaze offset
func gazeDirection(gaze GazeDirection) string {

	absX := gaze.X
	if absX < 0 {
		absX = -absX
	}

	absY := gaze.Y
	if absY < 0 {
		absY = -absY
	}

	if absX >= absY {
		if gaze.X >= 0 {
			return "right"
		}
		return "left"
	}

	if gaze.Y >= 0 {
		return "down"
	}
	return "up"
}
