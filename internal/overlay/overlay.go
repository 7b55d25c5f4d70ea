// Package overlay draws hand tracking and volume feedback onto video frames.
package overlay

import (
	"fmt"
	"image"
	"image/color"

	"gocv.io/x/gocv"

	"github.com/ayusman/pinchvol/internal/detector"
	"github.com/ayusman/pinchvol/internal/gesture"
)

// Colors are given as RGB; gocv converts them to BGR.
var (
	PinchColor = color.RGBA{R: 255, G: 0, B: 255, A: 0}
	LevelColor = color.RGBA{R: 0, G: 0, B: 255, A: 0}
	BoneColor  = color.RGBA{R: 0, G: 255, B: 0, A: 0}
	JointColor = color.RGBA{R: 255, G: 0, B: 0, A: 0}
)

// Fixed geometry of the pinch markers and the volume bar, in pixels.
const (
	MarkerRadius  = 15
	LineThickness = 3
	JointRadius   = 5
	BoneThickness = 2

	BarLeft   = 50
	BarRight  = 85
	BarTop    = 150
	BarBottom = 400
)

// LabelOrigin is the baseline origin of the percentage text.
var LabelOrigin = image.Pt(40, 450)

// Options selects which layers are drawn.
type Options struct {
	// Skeleton draws the landmark skeleton of every detected hand.
	Skeleton bool
}

// DefaultOptions draws every layer.
func DefaultOptions() Options {
	return Options{Skeleton: true}
}

// Frame is everything drawn onto one frame.
type Frame struct {
	Detection detector.FrameDetection

	// Pinch is nil when no hand is present; the pinch and level layers are skipped.
	Pinch *gesture.Pinch

	Bar     float64
	Percent float64
}

// Draw renders f onto img in place.
func Draw(img *gocv.Mat, f Frame, opts Options) {
	if img == nil || img.Empty() {
		return
	}

	if opts.Skeleton {
		for i := range f.Detection {
			DrawSkeleton(img, &f.Detection[i])
		}
	}

	if f.Pinch != nil {
		DrawPinch(img, *f.Pinch)
		DrawLevel(img, f.Bar, f.Percent)
	}
}

// DrawSkeleton draws the bones and joints of hand, scaling normalized landmarks to img.
func DrawSkeleton(img *gocv.Mat, hand *detector.HandLandmarks) {
	if !hand.Valid() {
		return
	}
	w, h := img.Cols(), img.Rows()

	for _, c := range detector.HandConnections {
		gocv.Line(img, toPixel(hand.Points[c.From], w, h), toPixel(hand.Points[c.To], w, h), BoneColor, BoneThickness)
	}
	for _, p := range hand.Points {
		gocv.Circle(img, toPixel(p, w, h), JointRadius, JointColor, gocv.Filled)
	}
}

// DrawPinch marks both pinch landmarks and their midpoint and joins them with a line.
func DrawPinch(img *gocv.Mat, p gesture.Pinch) {
	a := image.Pt(p.A.X, p.A.Y)
	b := image.Pt(p.B.X, p.B.Y)

	gocv.Circle(img, a, MarkerRadius, PinchColor, gocv.Filled)
	gocv.Circle(img, b, MarkerRadius, PinchColor, gocv.Filled)
	gocv.Line(img, a, b, PinchColor, LineThickness)
	gocv.Circle(img, p.Midpoint, MarkerRadius, PinchColor, gocv.Filled)
}

// DrawLevel draws the bar outline, its fill up to bar and the percentage label.
func DrawLevel(img *gocv.Mat, bar, percent float64) {
	gocv.Rectangle(img, BarOutline(), LevelColor, LineThickness)
	gocv.Rectangle(img, BarFill(bar), LevelColor, gocv.Filled)
	gocv.PutText(img, Label(percent), LabelOrigin, gocv.FontHersheyComplex, 1, LevelColor, LineThickness)
}

// BarOutline is the full extent of the volume bar.
func BarOutline() image.Rectangle {
	return image.Rect(BarLeft, BarTop, BarRight, BarBottom)
}

// BarFill is the filled part of the bar, from the y coordinate bar down to the bottom.
func BarFill(bar float64) image.Rectangle {
	return image.Rect(BarLeft, int(bar), BarRight, BarBottom)
}

// Label formats a percentage as shown on the frame, truncated to an integer.
func Label(percent float64) string {
	return fmt.Sprintf("%d %%", int(percent))
}

func toPixel(p detector.Point3D, w, h int) image.Point {
	return image.Pt(int(p.X*float64(w)), int(p.Y*float64(h)))
}
