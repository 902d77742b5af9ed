package render

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/examio/go-proctor"
	"gocv.io/x/gocv"
)

// FaceBoxes renders the bounding boxes around the detected faces with a
// score label above each box
func FaceBoxes(img *gocv.Mat, faces []proctor.Face, font Font,
	lineThickness int) {

	// keep a record of all box labels for later rendering
	boxLabels := make([]boxLabel, 0)

	for i, face := range faces {

		// Get the color for this face
		colorIndex := i % len(faceColors)
		useClr := faceColors[colorIndex]

		// draw rectangle around detected face
		rect := image.Rect(face.Bounds.X, face.Bounds.Y,
			face.Bounds.Right(), face.Bounds.Bottom())
		gocv.Rectangle(img, rect, useClr, lineThickness)

		// create text for label
		text := fmt.Sprintf("face %.2f", face.Score)
		textSize := gocv.GetTextSize(text, font.Face, font.Scale, font.Thickness)

		// Calculate the alignment of text label
		var centerX int

		switch font.Alignment {
		case Center:
			centerX = (face.Bounds.X + face.Bounds.Right()) / 2

		case Right:
			centerX = face.Bounds.Right() - (textSize.X / 2) - font.RightPad + (lineThickness / 2)

		case Left:
			fallthrough
		default:
			centerX = face.Bounds.X + (textSize.X / 2) + font.LeftPad - (lineThickness / 2)
		}

		// Adjust the label position so the text is centered horizontally
		labelPosition := image.Pt(centerX-textSize.X/2, face.Bounds.Y-font.BottomPad)

		// create box for placing text on
		bRect := image.Rect(centerX-textSize.X/2-font.LeftPad,
			face.Bounds.Y-textSize.Y-font.TopPad-font.BottomPad,
			centerX+textSize.X/2+font.RightPad, face.Bounds.Y)

		// record label rendering details
		nextLabel := boxLabel{
			rect:    bRect,
			clr:     useClr,
			text:    text,
			textPos: labelPosition,
		}
		boxLabels = append(boxLabels, nextLabel)
	}

	// draw all precalculated box labels so they are the top most layer on
	// the image and don't get overlapped by neighbouring face boxes
	for _, box := range boxLabels {
		// draw box text gets written on
		gocv.Rectangle(img, box.rect, box.clr, -1)

		// Draw the label over box
		gocv.PutTextWithParams(img, box.text, box.textPos,
			font.Face, font.Scale, font.Color, font.Thickness,
			font.LineType, false)
	}
}

// boxLabel holds the precalculated rendering details of a face box label
type boxLabel struct {
	rect    image.Rectangle
	clr     color.RGBA
	text    string
	textPos image.Point
}

// FaceLandmarks renders a dot at each of the five face landmarks
func FaceLandmarks(img *gocv.Mat, faces []proctor.Face) {

	for _, face := range faces {
		for j, pt := range face.Landmarks {

			if j >= len(landmarkColors) {
				break
			}

			gocv.Circle(img, image.Pt(pt.X, pt.Y), 3, landmarkColors[j], -1)
		}
	}
}

// PoseAxes projects the head rotation axes onto the image from the face's
// nose tip, x axis red, y axis green, z axis blue
func PoseAxes(img *gocv.Mat, face proctor.Face, pose proctor.HeadPose,
	length int) {

	if len(face.Landmarks) <= proctor.NoseTip {
		return
	}

	origin := face.Landmarks[proctor.NoseTip]

	yaw := radians(pose.Yaw)
	pitch := radians(pose.Pitch)
	roll := radians(pose.Roll)

	sy, cy := math.Sin(yaw), math.Cos(yaw)
	sp, cp := math.Sin(pitch), math.Cos(pitch)
	sr, cr := math.Sin(roll), math.Cos(roll)

	// head rotation applied to the unit axes, image plane projection keeps
	// the first two rows
	rot := [2][3]float64{
		{cr * cy, cr*sy*sp - sr*cp, cr*sy*cp + sr*sp},
		{sr * cy, sr*sy*sp + cr*cp, sr*sy*cp - cr*sp},
	}

	axes := [3][3]float64{
		{1, 0, 0},
		{0, 1, 0},
		{0, 0, 1},
	}

	for i, axis := range axes {
		endX := origin.X + int(float64(length)*(rot[0][0]*axis[0]+rot[0][1]*axis[1]+rot[0][2]*axis[2]))
		endY := origin.Y + int(float64(length)*(rot[1][0]*axis[0]+rot[1][1]*axis[1]+rot[1][2]*axis[2]))

		gocv.Line(img, image.Pt(origin.X, origin.Y), image.Pt(endX, endY),
			axisColors[i], 2)
	}
}

// Banner draws a violation banner across the top of the frame, filled with
// the severity color
func Banner(img *gocv.Mat, text string, severity proctor.Severity, font Font) {

	if text == "" {
		return
	}

	clr, ok := severityColors[severity]

	if !ok {
		clr = Red
	}

	textSize := gocv.GetTextSize(text, font.Face, font.Scale, font.Thickness)
	height := textSize.Y + font.TopPad + font.BottomPad

	gocv.Rectangle(img, image.Rect(0, 0, img.Cols(), height), clr, -1)

	gocv.PutTextWithParams(img, text,
		image.Pt(font.LeftPad, font.TopPad+textSize.Y),
		font.Face, font.Scale, font.Color, font.Thickness,
		font.LineType, false)
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}
