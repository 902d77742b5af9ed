// Package estimate derives head pose and gaze direction from the five point
// facial landmarks produced by the face detector.
package estimate

import (
	"fmt"
	"math"

	"github.com/examio/go-proctor"
	"gonum.org/v1/gonum/mat"
)

// PoseThresholds defines the per axis degree limits beyond which a head
// rotation counts as turned away from the screen
type PoseThresholds struct {
	Yaw   float64
	Pitch float64
	Roll  float64
}

// DefaultPoseThresholds returns the standard per axis limits of
// yaw 30°, pitch 25° and roll 20°
func DefaultPoseThresholds() PoseThresholds {
	return PoseThresholds{
		Yaw:   30,
		Pitch: 25,
		Roll:  20,
	}
}

// faceModel is a canonical 3D five point face in millimetres, ordered by
// the landmark index constants.  X grows toward the subject's left, Y grows
// downward to match image coordinates and Z grows toward the camera, so
// the nose tip protrudes with positive Z.
var faceModel = [proctor.NumLandmarks][3]float64{
	{-30.0, -30.0, -5.0}, // right eye
	{30.0, -30.0, -5.0},  // left eye
	{0.0, 0.0, 30.0},     // nose tip
	{-25.0, 30.0, -5.0},  // right mouth corner
	{25.0, 30.0, -5.0},   // left mouth corner
}

// PoseEstimator recovers head rotation from landmark positions using a
// weak perspective fit of the canonical face model
type PoseEstimator struct {
	// model is the centered canonical face model as a 5x3 matrix
	model *mat.Dense
}

// NewPoseEstimator returns an instance of the PoseEstimator
func NewPoseEstimator() *PoseEstimator {

	// centre the canonical model so the fit needs no translation term
	var cx, cy, cz float64

	for _, pt := range faceModel {
		cx += pt[0]
		cy += pt[1]
		cz += pt[2]
	}

	cx /= proctor.NumLandmarks
	cy /= proctor.NumLandmarks
	cz /= proctor.NumLandmarks

	model := mat.NewDense(proctor.NumLandmarks, 3, nil)

	for i, pt := range faceModel {
		model.Set(i, 0, pt[0]-cx)
		model.Set(i, 1, pt[1]-cy)
		model.Set(i, 2, pt[2]-cz)
	}

	return &PoseEstimator{
		model: model,
	}
}

// HeadPose estimates the yaw, pitch and roll of the head from the five
// facial landmarks of a single face.  An error is returned when fewer than
// five landmarks are supplied or the landmark geometry is degenerate.
func (pe *PoseEstimator) HeadPose(landmarks []proctor.Point) (proctor.HeadPose, error) {

	if len(landmarks) < proctor.NumLandmarks {
		return proctor.HeadPose{}, fmt.Errorf("got %d landmarks, need %d",
			len(landmarks), proctor.NumLandmarks)
	}

	// centre the observed 2D landmarks
	var cx, cy float64

	for i := 0; i < proctor.NumLandmarks; i++ {
		cx += float64(landmarks[i].X)
		cy += float64(landmarks[i].Y)
	}

	cx /= proctor.NumLandmarks
	cy /= proctor.NumLandmarks

	obs := mat.NewDense(proctor.NumLandmarks, 2, nil)

	for i := 0; i < proctor.NumLandmarks; i++ {
		obs.Set(i, 0, float64(landmarks[i].X)-cx)
		obs.Set(i, 1, float64(landmarks[i].Y)-cy)
	}

	// solve the 3x2 weak perspective camera matrix M in model * M = obs by
	// least squares.  The columns of M are the scaled first two rows of the
	// head rotation matrix.
	var camera mat.Dense

	if err := camera.Solve(pe.model, obs); err != nil {
		return proctor.HeadPose{}, fmt.Errorf("degenerate landmark geometry: %w", err)
	}

	r1 := [3]float64{camera.At(0, 0), camera.At(1, 0), camera.At(2, 0)}
	r2 := [3]float64{camera.At(0, 1), camera.At(1, 1), camera.At(2, 1)}

	s1 := vecNorm(r1)
	s2 := vecNorm(r2)

	if s1 < 1e-9 || s2 < 1e-9 {
		return proctor.HeadPose{}, fmt.Errorf("degenerate landmark geometry: zero scale")
	}

	r1 = vecScale(r1, 1/s1)
	r2 = vecScale(r2, 1/s2)

	// Gram-Schmidt the second row against the first, then complete the
	// rotation matrix with the cross product
	dot := r1[0]*r2[0] + r1[1]*r2[1] + r1[2]*r2[2]

	r2[0] -= dot * r1[0]
	r2[1] -= dot * r1[1]
	r2[2] -= dot * r1[2]

	n2 := vecNorm(r2)
	if n2 < 1e-9 {
		return proctor.HeadPose{}, fmt.Errorf("degenerate landmark geometry: collinear axes")
	}

	r2 = vecScale(r2, 1/n2)

	r3 := [3]float64{
		r1[1]*r2[2] - r1[2]*r2[1],
		r1[2]*r2[0] - r1[0]*r2[2],
		r1[0]*r2[1] - r1[1]*r2[0],
	}

	// extract Euler angles from the rotation matrix with rows r1, r2, r3
	// using the Rz(roll) * Ry(yaw) * Rx(pitch) decomposition
	sy := math.Sqrt(r1[0]*r1[0] + r2[0]*r2[0])

	var yaw, pitch, roll float64

	if sy > 1e-6 {
		pitch = math.Atan2(r3[1], r3[2])
		yaw = math.Atan2(-r3[0], sy)
		roll = math.Atan2(r2[0], r1[0])
	} else {
		// gimbal lock, roll is indistinguishable from pitch
		pitch = math.Atan2(-r2[2], r2[1])
		yaw = math.Atan2(-r3[0], sy)
		roll = 0
	}

	return proctor.HeadPose{
		Yaw:   degrees(yaw),
		Pitch: degrees(pitch),
		Roll:  degrees(roll),
	}, nil
}

// vecNorm returns the Euclidean length of a 3 vector
func vecNorm(v [3]float64) float64 {
	return math.Sqrt(v[0]*v[0] + v[1]*v[1] + v[2]*v[2])
}

// vecScale multiplies a 3 vector by a scalar
func vecScale(v [3]float64, s float64) [3]float64 {
	return [3]float64{v[0] * s, v[1] * s, v[2] * s}
}

// degrees converts radians to degrees
func degrees(rad float64) float64 {
	return rad * 180 / math.Pi
}
