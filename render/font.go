package render

import (
	"gocv.io/x/gocv"
	"image/color"
)

type Alignment int

const (
	Left   Alignment = 1
	Center Alignment = 2
	Right  Alignment = 3
)

// Font defines the parameters for rendering text on an image using GoCV
type Font struct {
	Face      gocv.HersheyFont
	Scale     float64
	Color     color.RGBA
	Thickness int
	LineType  gocv.LineType
	// Padding to place around text
	LeftPad   int
	RightPad  int
	TopPad    int
	BottomPad int
	// Alignment of the text label to the bounding box
	Alignment Alignment
}

// DefaultFont returns default font settings for face box labels
func DefaultFont() Font {
	return Font{
		Face:      gocv.FontHersheySimplex,
		Scale:     0.5,
		Color:     White,
		Thickness: 1,
		LineType:  gocv.LineAA,
		LeftPad:   4,
		RightPad:  4,
		TopPad:    4,
		BottomPad: 6,
		Alignment: Left,
	}
}

// BannerFont returns font settings for the violation banner drawn across
// the top of snapshot frames
func BannerFont() Font {
	return Font{
		Face:      gocv.FontHersheyDuplex,
		Scale:     0.6,
		Color:     White,
		Thickness: 1,
		LineType:  gocv.LineAA,
		LeftPad:   8,
		RightPad:  8,
		TopPad:    6,
		BottomPad: 8,
		Alignment: Left,
	}
}
