package app

import (
	"fmt"

	"github.com/ayusman/pinchvol/internal/detector"
	"github.com/ayusman/pinchvol/internal/gesture"
)

// Default pinch domain and display ranges, in pixels.
const (
	DefaultDomainLow  = 50
	DefaultDomainHigh = 300
	DefaultBarLow     = 400
	DefaultBarHigh    = 150
)

// Mapping names used in the store and the mappings API.
const (
	MappingVolume  = "volume"
	MappingBar     = "bar"
	MappingPercent = "percent"
)

// MappingNames lists the mapping names in a fixed order.
var MappingNames = []string{MappingVolume, MappingBar, MappingPercent}

// Mappings holds the three mappings applied to the pinch distance.
type Mappings struct {
	Volume  gesture.Mapping `json:"volume"`
	Bar     gesture.Mapping `json:"bar"`
	Percent gesture.Mapping `json:"percent"`
}

// DefaultMappings maps a 50..300 pixel pinch onto [levelMin, levelMax], the bar from y=400
// (empty) to y=150 (full) and a 0..100 percentage.
func DefaultMappings(levelMin, levelMax float64) Mappings {
	domain := func(low, high float64) gesture.Mapping {
		return gesture.Mapping{DomainLow: DefaultDomainLow, DomainHigh: DefaultDomainHigh, RangeLow: low, RangeHigh: high}
	}
	return Mappings{
		Volume:  domain(levelMin, levelMax),
		Bar:     domain(DefaultBarLow, DefaultBarHigh),
		Percent: domain(0, 100),
	}
}

// Validate checks every mapping.
func (m Mappings) Validate() error {
	byName := m.ByName()
	for _, name := range MappingNames {
		if err := byName[name].Validate(); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return nil
}

// ByName returns the mappings keyed by their store names.
func (m Mappings) ByName() map[string]gesture.Mapping {
	return map[string]gesture.Mapping{
		MappingVolume:  m.Volume,
		MappingBar:     m.Bar,
		MappingPercent: m.Percent,
	}
}

// With returns a copy of m with the named mapping replaced.
func (m Mappings) With(name string, mapping gesture.Mapping) (Mappings, error) {
	switch name {
	case MappingVolume:
		m.Volume = mapping
	case MappingBar:
		m.Bar = mapping
	case MappingPercent:
		m.Percent = mapping
	default:
		return m, fmt.Errorf("%w: unknown mapping %q", gesture.ErrInvalidMapping, name)
	}
	return m, nil
}

// Reading is the gesture state computed from one frame.
type Reading struct {
	// Hand reports whether a hand was detected. All other fields are zero when it is false.
	Hand      bool                    `json:"hand"`
	Positions []gesture.PixelPosition `json:"positions,omitempty"`
	Fingers   gesture.FingerState     `json:"fingers,omitempty"`
	Pinch     *gesture.Pinch          `json:"pinch,omitempty"`
	Level     float64                 `json:"level"`
	Bar       float64                 `json:"bar"`
	Percent   float64                 `json:"percent"`
}

// Evaluate runs the gesture stages on det for a width x height frame.
// Only the first hand is used. An empty detection yields a Reading with Hand false.
func Evaluate(det detector.FrameDetection, width, height int, m Mappings) (Reading, error) {
	if det.Empty() {
		return Reading{}, nil
	}
	if !det[0].Valid() {
		return Reading{}, detector.ErrMalformedHand
	}

	positions, err := gesture.ExtractPositions(det, 0, width, height)
	if err != nil {
		return Reading{}, err
	}

	pinch, err := gesture.MeasureThumbIndex(positions)
	if err != nil {
		return Reading{}, err
	}

	r := Reading{
		Hand:      true,
		Positions: positions,
		Fingers:   gesture.ClassifyFingers(det),
		Pinch:     &pinch,
	}

	if r.Level, err = m.Volume.Apply(pinch.Distance); err != nil {
		return Reading{}, fmt.Errorf("volume: %w", err)
	}
	if r.Bar, err = m.Bar.Apply(pinch.Distance); err != nil {
		return Reading{}, fmt.Errorf("bar: %w", err)
	}
	if r.Percent, err = m.Percent.Apply(pinch.Distance); err != nil {
		return Reading{}, fmt.Errorf("percent: %w", err)
	}
	return r, nil
}
