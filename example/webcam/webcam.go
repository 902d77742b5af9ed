package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/examio/go-proctor"
	"github.com/examio/go-proctor/facedetect"
	"github.com/examio/go-proctor/monitor"
	"gocv.io/x/gocv"
)

func main() {
	// disable logging timestamps
	log.SetFlags(0)

	// read in cli flags
	modelFile := flag.String("m", "../data/face_detection_yunet_2023mar.onnx", "YuNet face detection ONNX model file")
	camDevice := flag.Int("d", 0, "Webcam device ID")
	interval := flag.Duration("i", 500*time.Millisecond, "Detection interval")
	annotate := flag.Bool("a", false, "Annotate violation snapshots with the detection overlay")
	snapDir := flag.String("o", "", "Directory to save violation snapshots to, blank disables saving")

	flag.Parse()

	// open webcam
	cam, err := gocv.OpenVideoCapture(*camDevice)

	if err != nil {
		log.Fatal("Error opening webcam: ", err)
	}

	defer cam.Close()

	// create face detector
	det := facedetect.NewDetector(facedetect.DefaultParams(*modelFile))
	defer det.Close()

	cfg := monitor.DefaultConfig()
	cfg.DetectionInterval = *interval
	cfg.AnnotateSnapshots = *annotate
	cfg.CaptureSnapshots = *snapDir != ""

	cfg.OnViolation = func(v proctor.Violation) {
		log.Printf("VIOLATION [%s] severity=%s confidence=%.2f %s",
			v.Type, v.Severity, v.Confidence, v.Details.Description)

		if *snapDir != "" && v.Snapshot != nil {
			saveSnapshot(*snapDir, v)
		}
	}

	cfg.OnStatusChange = func(s monitor.Status) {
		log.Printf("status: detecting=%t faces=%d violations=%d",
			s.Detecting, s.FaceCount, s.TotalViolations)
	}

	eng, err := monitor.NewEngine(&webcamSource{cam: cam}, det, cfg)

	if err != nil {
		log.Fatal("Error creating engine: ", err)
	}

	if err := eng.LoadModels(); err != nil {
		log.Fatal("Error loading face detection model: ", err)
	}

	if err := eng.Start(); err != nil {
		log.Fatal("Error starting detection: ", err)
	}

	log.Println("monitoring, press ctrl-c to stop")

	// wait for interrupt
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	eng.Stop()

	// allow the loop to wind down before reading the final status
	time.Sleep(100 * time.Millisecond)

	status := eng.Status()

	log.Printf("session over: violations=%d risk score=%d",
		status.TotalViolations, eng.RiskScore())
}

// webcamSource adapts a gocv video capture to the engine's frame source
type webcamSource struct {
	cam *gocv.VideoCapture
}

func (s *webcamSource) Frame() (gocv.Mat, bool) {

	frame := gocv.NewMat()

	if ok := s.cam.Read(&frame); !ok || frame.Empty() {
		frame.Close()
		return gocv.Mat{}, false
	}

	return frame, true
}

// saveSnapshot writes a violation's JPEG snapshot to the output directory
func saveSnapshot(dir string, v proctor.Violation) {

	name := fmt.Sprintf("%s/%s-%s.jpg", dir,
		v.Timestamp.Format("20060102-150405"), v.Type)

	if err := os.WriteFile(name, v.Snapshot, 0644); err != nil {
		log.Printf("error saving snapshot: %v", err)
	}
}
