// Package gesture turns hand landmarks into finger states, a pinch distance and mapped
// control values. Everything here is a pure function of its arguments.
package gesture

import (
	"math"

	"github.com/pkg/errors"

	"github.com/ayusman/pinchvol/internal/detector"
)

// PixelPosition is a landmark scaled to frame pixels.
type PixelPosition struct {
	ID int `json:"id"`
	X  int `json:"x"`
	Y  int `json:"y"`
}

// ExtractPositions converts the landmarks of hand number hand in det to pixel positions for a
// width x height frame. An empty detection yields an empty result and no error.
func ExtractPositions(det detector.FrameDetection, hand, width, height int) ([]PixelPosition, error) {
	if det.Empty() {
		return nil, nil
	}
	if width <= 0 || height <= 0 {
		return nil, errors.Wrapf(ErrInvalidDimensions, "%dx%d", width, height)
	}
	if hand < 0 || hand >= len(det) {
		return nil, errors.Wrapf(ErrHandIndexOutOfRange, "hand %d of %d", hand, len(det))
	}

	points := det[hand].Points
	positions := make([]PixelPosition, len(points))
	for id, p := range points {
		positions[id] = PixelPosition{
			ID: id,
			X:  int(math.Floor(p.X * float64(width))),
			Y:  int(math.Floor(p.Y * float64(height))),
		}
	}
	return positions, nil
}
