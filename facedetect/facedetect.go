// Package facedetect wraps the OpenCV YuNet face detector and exposes it
// through the model loader and detector contracts consumed by the monitor
// engine.  Each detection returns the face bounding boxes together with
// the five facial landmark keypoints used by the pose and gaze estimators.
package facedetect

import (
	"errors"
	"fmt"
	"image"
	"os"
	"sync"

	"github.com/examio/go-proctor"
	"gocv.io/x/gocv"
)

// ErrNotLoaded is returned by Detect when the model has not been loaded
var ErrNotLoaded = errors.New("facedetect: model not loaded")

// Params defines the struct containing the YuNet detector parameters
type Params struct {
	// ModelFile is the path to the YuNet ONNX model file
	ModelFile string
	// ScoreThreshold is the minimum probability score required for a face
	// to be considered for processing
	ScoreThreshold float32
	// NMSThreshold is the Non-Maximum Suppression threshold applied inside
	// the network between candidate boxes
	NMSThreshold float32
	// TopK is the maximum number of candidate boxes kept before NMS
	TopK int
	// InputWidth is the initial network input width, updated per frame
	InputWidth int
	// InputHeight is the initial network input height, updated per frame
	InputHeight int
	// OverlapThreshold is the maximum allowed intersection over union
	// between two returned faces before the lower scored one is dropped
	OverlapThreshold float32
}

// DefaultParams returns an instance of Params configured with the default
// values for the YuNet face detection model:
// - Score Threshold: 0.6
// - NMS Threshold: 0.3
// - TopK: 128
// - Input Size: 320x320
// - Overlap Threshold: 0.6
func DefaultParams(modelFile string) Params {
	return Params{
		ModelFile:        modelFile,
		ScoreThreshold:   0.6,
		NMSThreshold:     0.3,
		TopK:             128,
		InputWidth:       320,
		InputHeight:      320,
		OverlapThreshold: 0.6,
	}
}

// Detector runs YuNet face detection on frames
type Detector struct {
	// Params are the detector configuration parameters
	Params Params

	mu     sync.Mutex
	net    gocv.FaceDetectorYN
	loaded bool
}

// NewDetector returns an instance of the Detector.  The model is not
// loaded until LoadModels is called.
func NewDetector(p Params) *Detector {
	return &Detector{
		Params: p,
	}
}

// LoadModels creates the YuNet network from the configured model file.
// It must complete successfully before Detect is usable.
func (d *Detector) LoadModels() error {

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.loaded {
		return nil
	}

	if _, err := os.Stat(d.Params.ModelFile); err != nil {
		return fmt.Errorf("model file not found: %s", d.Params.ModelFile)
	}

	d.net = gocv.NewFaceDetectorYNWithParams(
		d.Params.ModelFile,
		"",
		image.Pt(d.Params.InputWidth, d.Params.InputHeight),
		d.Params.ScoreThreshold,
		d.Params.NMSThreshold,
		d.Params.TopK,
		int(gocv.NetBackendDefault),
		int(gocv.NetTargetCPU),
	)

	d.loaded = true

	return nil
}

// Detect runs face detection on a frame and returns the detected faces
// with landmarks.  An empty frame yields zero faces.
func (d *Detector) Detect(frame gocv.Mat) ([]proctor.Face, error) {

	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.loaded {
		return nil, ErrNotLoaded
	}

	if frame.Empty() {
		return nil, nil
	}

	d.net.SetInputSize(image.Pt(frame.Cols(), frame.Rows()))

	out := gocv.NewMat()
	defer out.Close()

	d.net.Detect(frame, &out)

	rows := make([][]float32, 0, out.Rows())

	for r := 0; r < out.Rows(); r++ {
		row := make([]float32, faceRowSize)

		for c := 0; c < faceRowSize && c < out.Cols(); c++ {
			row[c] = out.GetFloatAt(r, c)
		}

		rows = append(rows, row)
	}

	faces := decodeFaces(rows, d.Params.ScoreThreshold)

	return suppressOverlaps(faces, d.Params.OverlapThreshold), nil
}

// Close releases the network resources
func (d *Detector) Close() error {

	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.loaded {
		return nil
	}

	d.loaded = false

	return d.net.Close()
}
