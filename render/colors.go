package render

import (
	"image/color"

	"github.com/examio/go-proctor"
)

var (
	// faceColors is cycled across detected faces so overlapping boxes
	// remain distinguishable when more than one face is in frame
	faceColors = []color.RGBA{
		{R: 72, G: 249, B: 10, A: 255},  // #48F90A
		{R: 255, G: 178, B: 29, A: 255}, // #FFB21D
		{R: 0, G: 194, B: 255, A: 255},  // #00C2FF
		{R: 255, G: 55, B: 199, A: 255}, // #FF37C7
		{R: 255, G: 112, B: 31, A: 255}, // #FF701F
		{R: 132, G: 56, B: 255, A: 255}, // #8438FF
	}

	// landmarkColors paints the five face landmarks in a fixed order of
	// right eye, left eye, nose tip, right mouth corner, left mouth corner
	landmarkColors = [5]color.RGBA{
		{R: 0, G: 255, B: 255, A: 255}, // #00FFFF
		{R: 255, G: 0, B: 255, A: 255}, // #FF00FF
		{R: 255, G: 255, B: 0, A: 255}, // #FFFF00
		{R: 0, G: 255, B: 0, A: 255},   // #00FF00
		{R: 0, G: 128, B: 255, A: 255}, // #0080FF
	}

	// axisColors paint the projected head pose axes in x, y, z order
	axisColors = [3]color.RGBA{
		{R: 255, G: 0, B: 0, A: 255}, // #FF0000
		{R: 0, G: 255, B: 0, A: 255}, // #00FF00
		{R: 0, G: 0, B: 255, A: 255}, // #0000FF
	}

	// severityColors fills the violation banner background
	severityColors = map[proctor.Severity]color.RGBA{
		proctor.SeverityLow:      {R: 255, G: 178, B: 29, A: 255}, // #FFB21D
		proctor.SeverityMedium:   {R: 255, G: 112, B: 31, A: 255}, // #FF701F
		proctor.SeverityHigh:     {R: 255, G: 56, B: 56, A: 255},  // #FF3838
		proctor.SeverityCritical: {R: 128, G: 0, B: 64, A: 255},   // #800040
	}

	Black = color.RGBA{R: 0, G: 0, B: 0, A: 255}
	White = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	Red   = color.RGBA{R: 255, G: 56, B: 56, A: 255}
)
