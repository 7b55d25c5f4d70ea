// Package audio is the control sink driven by the pinch gesture.
package audio

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrDeviceUnavailable is returned by Open when no output device can be controlled.
	ErrDeviceUnavailable = errors.New("audio: device unavailable")

	// ErrLevelOutOfRange is returned by SetLevel for a level outside the sink's range.
	ErrLevelOutOfRange = errors.New("audio: level out of range")
)

// Sink is an output device whose level can be set.
//
// A Sink is acquired once at startup and released with Close.
type Sink interface {
	// Range returns the inclusive level bounds accepted by SetLevel.
	Range() (min, max float64)

	// SetLevel sets the device level. level must lie in Range.
	SetLevel(ctx context.Context, level float64) error

	// Close releases the device.
	Close() error
}

// checkLevel returns ErrLevelOutOfRange unless min <= level <= max.
func checkLevel(level, min, max float64) error {
	if !(level >= min && level <= max) {
		return fmt.Errorf("%w: %v not in [%v,%v]", ErrLevelOutOfRange, level, min, max)
	}
	return nil
}
