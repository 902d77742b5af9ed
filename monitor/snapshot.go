package monitor

import (
	"log"

	"gocv.io/x/gocv"
)

// encodeJPEG encodes a frame as JPEG and returns a copy of the bytes, or
// nil when encoding fails
func encodeJPEG(frame gocv.Mat, logger *log.Logger) []byte {

	buf, err := gocv.IMEncode(gocv.JPEGFileExt, frame)

	if err != nil {
		logger.Printf("monitor: snapshot encode failed: %v", err)
		return nil
	}

	defer buf.Close()

	// copy out of the native buffer before it is released
	data := buf.GetBytes()
	snapshot := make([]byte, len(data))
	copy(snapshot, data)

	return snapshot
}
