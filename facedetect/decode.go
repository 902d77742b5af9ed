package facedetect

import (
	"sort"

	clipper "github.com/ctessum/go.clipper"
	"github.com/examio/go-proctor"
)

// YuNet output row layout: box x, y, width, height then five landmark
// x/y pairs (right eye, left eye, nose tip, right mouth corner, left
// mouth corner) then the face score
const (
	faceRowSize  = 15
	landmarkBase = 4
	scoreColumn  = 14
)

// decodeFaces converts raw YuNet output rows into faces, dropping rows
// under the score threshold
func decodeFaces(rows [][]float32, scoreThreshold float32) []proctor.Face {

	faces := make([]proctor.Face, 0, len(rows))

	for _, row := range rows {

		if len(row) < faceRowSize {
			continue
		}

		score := row[scoreColumn]

		if score < scoreThreshold {
			continue
		}

		landmarks := make([]proctor.Point, proctor.NumLandmarks)

		for i := 0; i < proctor.NumLandmarks; i++ {
			landmarks[i] = proctor.Point{
				X: int(row[landmarkBase+2*i]),
				Y: int(row[landmarkBase+2*i+1]),
			}
		}

		faces = append(faces, proctor.Face{
			Bounds: proctor.FaceBounds{
				X:      int(row[0]),
				Y:      int(row[1]),
				Width:  int(row[2]),
				Height: int(row[3]),
			},
			Landmarks: landmarks,
			Score:     score,
		})
	}

	return faces
}

// suppressOverlaps drops faces whose box overlaps a higher scored face
// beyond the threshold, so one physical face cannot count twice toward
// the multiple faces check
func suppressOverlaps(faces []proctor.Face, threshold float32) []proctor.Face {

	if len(faces) < 2 {
		return faces
	}

	sorted := make([]proctor.Face, len(faces))
	copy(sorted, faces)

	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Score > sorted[j].Score
	})

	kept := make([]proctor.Face, 0, len(sorted))

	for _, face := range sorted {
		duplicate := false

		for _, keep := range kept {
			if overlapRatio(face.Bounds, keep.Bounds) > threshold {
				duplicate = true
				break
			}
		}

		if !duplicate {
			kept = append(kept, face)
		}
	}

	return kept
}

// overlapRatio computes the intersection over union of two face boxes by
// clipping their polygons against each other
func overlapRatio(a, b proctor.FaceBounds) float32 {

	c := clipper.NewClipper(clipper.IoNone)
	c.AddPath(boundsPath(a), clipper.PtSubject, true)
	c.AddPath(boundsPath(b), clipper.PtClip, true)

	solution, ok := c.Execute1(clipper.CtIntersection, clipper.PftEvenOdd,
		clipper.PftEvenOdd)

	if !ok {
		return 0
	}

	var intersection float64

	for _, path := range solution {
		intersection += polygonArea(path)
	}

	areaA := float64(a.Width) * float64(a.Height)
	areaB := float64(b.Width) * float64(b.Height)

	union := areaA + areaB - intersection

	if union <= 0 {
		return 0
	}

	return float32(intersection / union)
}

// boundsPath converts a face box into a closed clipper polygon
func boundsPath(b proctor.FaceBounds) clipper.Path {
	return clipper.Path{
		&clipper.IntPoint{X: clipper.CInt(b.X), Y: clipper.CInt(b.Y)},
		&clipper.IntPoint{X: clipper.CInt(b.Right()), Y: clipper.CInt(b.Y)},
		&clipper.IntPoint{X: clipper.CInt(b.Right()), Y: clipper.CInt(b.Bottom())},
		&clipper.IntPoint{X: clipper.CInt(b.X), Y: clipper.CInt(b.Bottom())},
	}
}

// polygonArea computes the absolute shoelace area of a polygon
func polygonArea(path clipper.Path) float64 {

	if len(path) < 3 {
		return 0
	}

	var sum float64

	for i := 0; i < len(path); i++ {
		j := (i + 1) % len(path)
		sum += float64(path[i].X)*float64(path[j].Y) -
			float64(path[j].X)*float64(path[i].Y)
	}

	if sum < 0 {
		sum = -sum
	}

	return sum / 2
}
