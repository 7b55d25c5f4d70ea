package gesture

import "github.com/pkg/errors"

// Sentinel errors returned by the gesture pipeline. Use errors.Is to test for them;
// returned errors carry context about the offending hand or landmark.
var (
	// ErrHandIndexOutOfRange is returned when a hand index is not present in the detection.
	ErrHandIndexOutOfRange = errors.New("gesture: hand index out of range")

	// ErrLandmarkNotFound is returned when a requested landmark id is missing from the positions.
	ErrLandmarkNotFound = errors.New("gesture: landmark not found")

	// ErrInvalidMetric is returned when a non-finite value is passed to the range mapper.
	ErrInvalidMetric = errors.New("gesture: invalid metric")

	// ErrInvalidMapping is returned when a mapping has non-finite bounds.
	ErrInvalidMapping = errors.New("gesture: invalid mapping")

	// ErrInvalidDimensions is returned when the frame width or height is not positive.
	ErrInvalidDimensions = errors.New("gesture: invalid frame dimensions")
)
