package main

import (
	"flag"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"log"
	"os"

	"github.com/examio/go-proctor"
	"github.com/examio/go-proctor/classify"
	"github.com/examio/go-proctor/facedetect"
	"github.com/examio/go-proctor/track"
	"gocv.io/x/gocv"
	"golang.org/x/image/font"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

const (
	// TTFFontSize is the point size report text is rendered at
	TTFFontSize = 16
	// reportWidth and reportHeight are the report card dimensions
	reportWidth  = 520
	reportHeight = 360
)

func main() {
	// disable logging timestamps
	log.SetFlags(0)

	// read in cli flags
	modelFile := flag.String("m", "../data/face_detection_yunet_2023mar.onnx", "YuNet face detection ONNX model file")
	videoFile := flag.String("v", "../data/session.mp4", "Recorded session clip to analyze")
	ttfFont := flag.String("f", "../data/fzhei-b01s-regular.ttf", "TTF font file for the report card")
	outFile := flag.String("o", "report.png", "Report card image to write")
	stride := flag.Int("s", 15, "Process every Nth frame of the clip")
	threshold := flag.Int("t", 3, "Consecutive processed frames required to confirm a violation")

	flag.Parse()

	// open the recorded clip
	video, err := gocv.VideoCaptureFile(*videoFile)

	if err != nil {
		log.Fatal("Error opening video file: ", err)
	}

	defer video.Close()

	// create face detector
	det := facedetect.NewDetector(facedetect.DefaultParams(*modelFile))
	defer det.Close()

	if err := det.LoadModels(); err != nil {
		log.Fatal("Error loading face detection model: ", err)
	}

	// run the detection pipeline over the clip without the live engine,
	// sampled frames stand in for timer ticks
	classifier := classify.NewClassifier(classify.DefaultParams())
	tracker := track.NewTracker(*threshold)
	risk := proctor.NewRiskScorer()

	counts := make(map[proctor.ViolationType]int)
	frame := gocv.NewMat()
	defer frame.Close()

	processed := 0

	for i := 0; ; i++ {

		if ok := video.Read(&frame); !ok || frame.Empty() {
			break
		}

		if i%*stride != 0 {
			continue
		}

		processed++

		faces, err := det.Detect(frame)

		if err != nil {
			log.Printf("frame %d: detection failed: %v", i, err)
			continue
		}

		signals, _ := classifier.Classify(faces)

		for _, sig := range tracker.Observe(signals) {
			counts[sig.Type]++
			risk.Add(sig.Type)

			sig.Details.Description = proctor.DescribeViolation(sig.Type, sig.Details)

			log.Printf("frame %d: [%s] severity=%s confidence=%.2f %s",
				i, sig.Type, proctor.GradeSeverity(sig.Type, sig.Confidence),
				sig.Confidence, sig.Details.Description)
		}
	}

	log.Printf("processed %d frames, %d violations, risk score %d",
		processed, tracker.Total(), risk.Score())

	// render the report card
	face, err := loadFontFace(*ttfFont)

	if err != nil {
		log.Fatal("Error initializing font face: ", err)
	}

	report := renderReport(face, *videoFile, processed, counts,
		tracker.Total(), risk.Score())

	if err := writePNG(*outFile, report); err != nil {
		log.Fatal("Error writing report card: ", err)
	}

	log.Println("report card saved to", *outFile)
}

// loadFontFace loads the TTF font and sets up a new font face
func loadFontFace(fontPath string) (font.Face, error) {

	// load font data
	fontBytes, err := os.ReadFile(fontPath)

	if err != nil {
		return nil, fmt.Errorf("failed to load font: %w", err)
	}

	// parse the font
	f, err := opentype.Parse(fontBytes)

	if err != nil {
		return nil, fmt.Errorf("failed to parse font: %w", err)
	}

	// create a type face
	face, err := opentype.NewFace(f, &opentype.FaceOptions{
		Size:    TTFFontSize,
		DPI:     72,
		Hinting: font.HintingFull,
	})

	if err != nil {
		return nil, fmt.Errorf("failed to create type face: %w", err)
	}

	return face, nil
}

// renderReport draws the session summary onto a report card image
func renderReport(face font.Face, clip string, processed int,
	counts map[proctor.ViolationType]int, total, score int) *image.RGBA {

	rgba := image.NewRGBA(image.Rect(0, 0, reportWidth, reportHeight))
	draw.Draw(rgba, rgba.Bounds(),
		image.NewUniform(color.RGBA{R: 24, G: 24, B: 28, A: 255}),
		image.Point{}, draw.Src)

	lines := []string{
		"Session Integrity Report",
		"",
		fmt.Sprintf("clip: %s", clip),
		fmt.Sprintf("frames processed: %d", processed),
		fmt.Sprintf("confirmed violations: %d", total),
		fmt.Sprintf("risk score: %d", score),
		"",
	}

	for _, vtype := range []proctor.ViolationType{
		proctor.NoFace, proctor.MultipleFaces, proctor.HeadPoseViolation,
		proctor.GazeAway, proctor.TabSwitch,
	} {
		lines = append(lines, fmt.Sprintf("  %-16s %d", vtype, counts[vtype]))
	}

	for i, line := range lines {
		drawText(rgba, face, line, 24, 36+i*24)
	}

	return rgba
}

// drawText writes a line of text onto the image at the given position
func drawText(rgba *image.RGBA, face font.Face, text string, x, y int) {

	dr := &font.Drawer{
		Dst:  rgba,
		Src:  image.NewUniform(color.RGBA{R: 255, G: 255, B: 255, A: 255}),
		Face: face,
		Dot: fixed.Point26_6{
			X: fixed.Int26_6(x * 64),
			Y: fixed.Int26_6(y * 64),
		},
	}
	dr.DrawString(text)
}

// writePNG saves the report card image to disk
func writePNG(name string, img *image.RGBA) error {

	f, err := os.Create(name)

	if err != nil {
		return err
	}

	defer f.Close()

	return png.Encode(f, img)
}
