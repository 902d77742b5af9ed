package estimate

import (
	"math"
	"testing"

	"github.com/examio/go-proctor"
)

// projectModel rotates the canonical face model by the given Euler angles
// (degrees, applied as Rz(roll) * Ry(yaw) * Rx(pitch)), applies a weak
// perspective projection and returns pixel landmarks
func projectModel(yaw, pitch, roll, scale, offX, offY float64) []proctor.Point {

	y := yaw * math.Pi / 180
	p := pitch * math.Pi / 180
	r := roll * math.Pi / 180

	cy, sy := math.Cos(y), math.Sin(y)
	cp, sp := math.Cos(p), math.Sin(p)
	cr, sr := math.Cos(r), math.Sin(r)

	// R = Rz(roll) * Ry(yaw) * Rx(pitch)
	rot := [3][3]float64{
		{cr * cy, cr*sy*sp - sr*cp, cr*sy*cp + sr*sp},
		{sr * cy, sr*sy*sp + cr*cp, sr*sy*cp - cr*sp},
		{-sy, cy * sp, cy * cp},
	}

	points := make([]proctor.Point, proctor.NumLandmarks)

	for i, pt := range faceModel {
		u := rot[0][0]*pt[0] + rot[0][1]*pt[1] + rot[0][2]*pt[2]
		v := rot[1][0]*pt[0] + rot[1][1]*pt[1] + rot[1][2]*pt[2]

		points[i] = proctor.Point{
			X: int(math.Round(u*scale + offX)),
			Y: int(math.Round(v*scale + offY)),
		}
	}

	return points
}

// almostEqual checks if two float64 values are approximately equal
func almostEqual(a, b, tolerance float64) bool {
	return math.Abs(a-b) <= tolerance
}

// TestHeadPoseRecovery checks known synthetic rotations are recovered
// within tolerance
func TestHeadPoseRecovery(t *testing.T) {

	// pixel rounding of the projected landmarks costs a couple of degrees
	const tolerance = 3.0

	tests := []struct {
		name  string
		yaw   float64
		pitch float64
		roll  float64
	}{
		{"frontal", 0, 0, 0},
		{"yaw left", 25, 0, 0},
		{"yaw right", -35, 0, 0},
		{"pitch", 0, 20, 0},
		{"roll", 0, 0, 15},
		{"combined", 20, -15, 10},
	}

	pe := NewPoseEstimator()

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			landmarks := projectModel(tt.yaw, tt.pitch, tt.roll, 4.0, 320, 240)

			pose, err := pe.HeadPose(landmarks)

			if err != nil {
				t.Fatalf("HeadPose() error: %v", err)
			}

			if !almostEqual(pose.Yaw, tt.yaw, tolerance) {
				t.Errorf("yaw = %.2f, want %.2f", pose.Yaw, tt.yaw)
			}

			if !almostEqual(pose.Pitch, tt.pitch, tolerance) {
				t.Errorf("pitch = %.2f, want %.2f", pose.Pitch, tt.pitch)
			}

			if !almostEqual(pose.Roll, tt.roll, tolerance) {
				t.Errorf("roll = %.2f, want %.2f", pose.Roll, tt.roll)
			}
		})
	}
}

// TestHeadPoseErrors checks invalid landmark input is rejected
func TestHeadPoseErrors(t *testing.T) {

	pe := NewPoseEstimator()

	_, err := pe.HeadPose([]proctor.Point{{X: 1, Y: 1}})

	if err == nil {
		t.Error("expected error for too few landmarks")
	}

	// all landmarks coincident
	same := make([]proctor.Point, proctor.NumLandmarks)
	for i := range same {
		same[i] = proctor.Point{X: 100, Y: 100}
	}

	if _, err := pe.HeadPose(same); err == nil {
		t.Error("expected error for coincident landmarks")
	}
}
