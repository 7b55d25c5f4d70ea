package app

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/ayusman/pinchvol/internal/detector"
	"github.com/ayusman/pinchvol/internal/gesture"
)

// pinchAt returns a detection whose thumb tip sits at pixel (160,240) of a 640x480 frame and
// whose index tip is dx pixels to its right.
func pinchAt(dx int) detector.FrameDetection {
	thumb := detector.Point3D{X: 160.0 / 640, Y: 0.5}
	index := detector.Point3D{X: float64(160+dx) / 640, Y: 0.5}
	return detector.FrameDetection{detector.PinchLandmarks(thumb, index)}
}

func TestEvaluate(t *testing.T) {
	m := DefaultMappings(0, 100)

	tests := []struct {
		name        string
		dx          int
		wantLevel   float64
		wantBar     float64
		wantPercent float64
	}{
		{name: "midpoint of domain", dx: 175, wantLevel: 50, wantBar: 275, wantPercent: 50},
		{name: "below domain clamps low", dx: 30, wantLevel: 0, wantBar: 400, wantPercent: 0},
		{name: "above domain clamps high", dx: 400, wantLevel: 100, wantBar: 150, wantPercent: 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := Evaluate(pinchAt(tt.dx), 640, 480, m)
			if err != nil {
				t.Fatalf("Evaluate() error: %v", err)
			}
			if !r.Hand {
				t.Fatal("expected a hand")
			}
			if r.Pinch == nil || r.Pinch.Distance != float64(tt.dx) {
				t.Fatalf("pinch = %+v, want distance %d", r.Pinch, tt.dx)
			}
			if r.Level != tt.wantLevel || r.Bar != tt.wantBar || r.Percent != tt.wantPercent {
				t.Errorf("level/bar/percent = %v/%v/%v, want %v/%v/%v",
					r.Level, r.Bar, r.Percent, tt.wantLevel, tt.wantBar, tt.wantPercent)
			}
			if len(r.Positions) != detector.NumLandmarks {
				t.Errorf("expected %d positions, got %d", detector.NumLandmarks, len(r.Positions))
			}
			if len(r.Fingers) != gesture.NumFingers {
				t.Errorf("expected %d finger states, got %d", gesture.NumFingers, len(r.Fingers))
			}
		})
	}
}

func TestEvaluate_NoHand(t *testing.T) {
	r, err := Evaluate(nil, 640, 480, DefaultMappings(0, 100))
	if err != nil {
		t.Fatalf("Evaluate() error: %v", err)
	}
	if r.Hand || r.Pinch != nil || r.Positions != nil || r.Fingers != nil {
		t.Errorf("expected an empty reading, got %+v", r)
	}
}

func TestEvaluate_UsesFirstHandOnly(t *testing.T) {
	det := append(pinchAt(175), pinchAt(400)...)

	r, err := Evaluate(det, 640, 480, DefaultMappings(0, 100))
	if err != nil {
		t.Fatalf("Evaluate() error: %v", err)
	}
	if r.Percent != 50 {
		t.Errorf("percent = %v, want 50 from the first hand", r.Percent)
	}
}

func TestEvaluate_Errors(t *testing.T) {
	t.Run("non-finite landmark", func(t *testing.T) {
		det := pinchAt(175)
		det[0].Points[detector.IndexTip].X = math.NaN()
		if _, err := Evaluate(det, 640, 480, DefaultMappings(0, 100)); !errors.Is(err, detector.ErrMalformedHand) {
			t.Errorf("expected ErrMalformedHand, got %v", err)
		}
	})

	t.Run("invalid dimensions", func(t *testing.T) {
		if _, err := Evaluate(pinchAt(175), 0, 480, DefaultMappings(0, 100)); !errors.Is(err, gesture.ErrInvalidDimensions) {
			t.Errorf("expected ErrInvalidDimensions, got %v", err)
		}
	})

	t.Run("invalid mapping names the stage", func(t *testing.T) {
		m := DefaultMappings(0, 100)
		m.Bar.RangeHigh = math.Inf(1)

		_, err := Evaluate(pinchAt(175), 640, 480, m)
		if !errors.Is(err, gesture.ErrInvalidMapping) {
			t.Fatalf("expected ErrInvalidMapping, got %v", err)
		}
		if !strings.HasPrefix(err.Error(), "bar: ") {
			t.Errorf("error = %q, want bar prefix", err)
		}
	})
}

func TestMappings(t *testing.T) {
	m := DefaultMappings(-65.25, 0)

	if err := m.Validate(); err != nil {
		t.Fatalf("default mappings invalid: %v", err)
	}
	if m.Volume.RangeLow != -65.25 || m.Volume.RangeHigh != 0 {
		t.Errorf("volume range = [%v,%v]", m.Volume.RangeLow, m.Volume.RangeHigh)
	}
	if m.Bar.RangeLow != 400 || m.Bar.RangeHigh != 150 {
		t.Errorf("bar range = [%v,%v], want [400,150]", m.Bar.RangeLow, m.Bar.RangeHigh)
	}

	updated, err := m.With(MappingPercent, gesture.Mapping{DomainLow: 20, DomainHigh: 200, RangeHigh: 100})
	if err != nil {
		t.Fatalf("With() error: %v", err)
	}
	if updated.Percent.DomainLow != 20 || m.Percent.DomainLow != DefaultDomainLow {
		t.Error("With() should replace only the copy")
	}

	if _, err := m.With("treble", gesture.Mapping{}); !errors.Is(err, gesture.ErrInvalidMapping) {
		t.Errorf("expected ErrInvalidMapping for unknown name, got %v", err)
	}

	bad := m
	bad.Bar.RangeLow = math.NaN()
	if err := bad.Validate(); !errors.Is(err, gesture.ErrInvalidMapping) {
		t.Errorf("expected ErrInvalidMapping, got %v", err)
	}
}
