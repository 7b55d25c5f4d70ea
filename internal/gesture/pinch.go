package gesture

import (
	"image"
	"math"

	"github.com/pkg/errors"

	"github.com/ayusman/pinchvol/internal/detector"
)

// Pinch is the distance between two landmarks in pixels and the midpoint between them.
type Pinch struct {
	A        PixelPosition `json:"a"`
	B        PixelPosition `json:"b"`
	Distance float64       `json:"distance"`
	Midpoint image.Point   `json:"midpoint"`
}

// MeasureThumbIndex measures the pinch between the thumb tip and the index fingertip.
func MeasureThumbIndex(positions []PixelPosition) (Pinch, error) {
	return MeasurePinch(positions, detector.ThumbTip, detector.IndexTip)
}

// MeasurePinch returns the Euclidean pixel distance between landmarks a and b and their midpoint.
func MeasurePinch(positions []PixelPosition, a, b int) (Pinch, error) {
	pa, ok := findPosition(positions, a)
	if !ok {
		return Pinch{}, errors.Wrapf(ErrLandmarkNotFound, "id %d", a)
	}
	pb, ok := findPosition(positions, b)
	if !ok {
		return Pinch{}, errors.Wrapf(ErrLandmarkNotFound, "id %d", b)
	}

	return Pinch{
		A:        pa,
		B:        pb,
		Distance: math.Hypot(float64(pb.X-pa.X), float64(pb.Y-pa.Y)),
		Midpoint: image.Pt((pa.X+pb.X)/2, (pa.Y+pb.Y)/2),
	}, nil
}

// findPosition looks id up by index first, since extracted positions are ordered by id,
// and falls back to a scan.
func findPosition(positions []PixelPosition, id int) (PixelPosition, bool) {
	if id >= 0 && id < len(positions) && positions[id].ID == id {
		return positions[id], true
	}
	for _, p := range positions {
		if p.ID == id {
			return p, true
		}
	}
	return PixelPosition{}, false
}
