package detector

import (
	"errors"
	"fmt"

	"gocv.io/x/gocv"
)

var (
	// ErrMalformedHand is returned when the pose model reports a hand without exactly 21 landmarks.
	ErrMalformedHand = errors.New("detector: malformed hand")

	// ErrInvalidConfig is returned by Config.Validate.
	ErrInvalidConfig = errors.New("detector: invalid config")

	// ErrServiceTimeout is returned when the landmark service does not answer a frame in time.
	// The service is killed and restarted on the next frame.
	ErrServiceTimeout = errors.New("detector: landmark service timed out")
)

// Detector defines the interface for hand detection implementations.
//
// Detect is a pure function of the frame and the detector's configuration: it returns a new
// FrameDetection on every call and keeps no record of earlier results.
type Detector interface {
	// Detect analyzes a video frame and returns the detected hands.
	// Returns an empty FrameDetection if no hands are detected.
	Detect(frame *gocv.Mat) (FrameDetection, error)

	// Close releases any resources held by the detector.
	Close() error
}

// Config holds configuration options for hand detection.
type Config struct {
	// StaticImageMode treats every frame as unrelated, disabling tracking between frames.
	StaticImageMode bool

	// MaxHands is the maximum number of hands to detect (default: 2).
	MaxHands int

	// DetectionConfidence is the minimum detection confidence threshold (0.0-1.0).
	DetectionConfidence float64

	// TrackingConfidence is the minimum tracking confidence threshold (0.0-1.0).
	TrackingConfidence float64
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() Config {
	return Config{
		StaticImageMode:     false,
		MaxHands:            2,
		DetectionConfidence: 0.7,
		TrackingConfidence:  0.5,
	}
}

// Validate checks that the thresholds are in [0,1] and MaxHands is positive.
func (c Config) Validate() error {
	if c.MaxHands <= 0 {
		return fmt.Errorf("%w: max hands must be positive, got %d", ErrInvalidConfig, c.MaxHands)
	}
	if c.DetectionConfidence < 0 || c.DetectionConfidence > 1 {
		return fmt.Errorf("%w: detection confidence must be in [0,1], got %f", ErrInvalidConfig, c.DetectionConfidence)
	}
	if c.TrackingConfidence < 0 || c.TrackingConfidence > 1 {
		return fmt.Errorf("%w: tracking confidence must be in [0,1], got %f", ErrInvalidConfig, c.TrackingConfidence)
	}
	return nil
}
