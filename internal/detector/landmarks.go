// Package detector defines the hand-landmark data contract and the pose-estimation collaborators
// that produce it.
package detector

import "math"

// Hand landmark indices following MediaPipe convention.
// See: https://developers.google.com/mediapipe/solutions/vision/hand_landmarker
const (
	Wrist        = 0
	ThumbCMC     = 1
	ThumbMCP     = 2
	ThumbIP      = 3
	ThumbTip     = 4
	IndexMCP     = 5
	IndexPIP     = 6
	IndexDIP     = 7
	IndexTip     = 8
	MiddleMCP    = 9
	MiddlePIP    = 10
	MiddleDIP    = 11
	MiddleTip    = 12
	RingMCP      = 13
	RingPIP      = 14
	RingDIP      = 15
	RingTip      = 16
	PinkyMCP     = 17
	PinkyPIP     = 18
	PinkyDIP     = 19
	PinkyTip     = 20
	NumLandmarks = 21
)

// Point3D is a normalized landmark coordinate. X and Y are in [0,1] relative to
// the image width and height; Z is relative depth and is not used for gesture control.
type Point3D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// HandLandmarks holds the 21 landmarks of one detected hand. The landmark id is the array index.
type HandLandmarks struct {
	Points     [NumLandmarks]Point3D `json:"points"`
	Handedness string                `json:"handedness"` // "Left" or "Right"
	Score      float64               `json:"score"`
}

// Valid reports whether every coordinate is finite.
func (h *HandLandmarks) Valid() bool {
	if h == nil {
		return false
	}
	for _, p := range h.Points {
		if math.IsNaN(p.X) || math.IsInf(p.X, 0) || math.IsNaN(p.Y) || math.IsInf(p.Y, 0) {
			return false
		}
	}
	return true
}

// FrameDetection is the result of running the pose model on one frame: zero or more hands,
// at most the configured maximum. An empty FrameDetection means no hand is in the frame.
//
// A FrameDetection belongs to the frame it was computed from. Pass it explicitly to every
// stage that needs it; detectors never retain it.
type FrameDetection []HandLandmarks

// Empty reports whether no hand was detected.
func (d FrameDetection) Empty() bool {
	return len(d) == 0
}

// Connection is a pair of landmark ids joined by a bone in the skeleton overlay.
type Connection struct {
	From int
	To   int
}

// HandConnections is the fixed hand skeleton topology used for overlay drawing.
var HandConnections = []Connection{
	{Wrist, ThumbCMC}, {ThumbCMC, ThumbMCP}, {ThumbMCP, ThumbIP}, {ThumbIP, ThumbTip},
	{Wrist, IndexMCP}, {IndexMCP, IndexPIP}, {IndexPIP, IndexDIP}, {IndexDIP, IndexTip},
	{IndexMCP, MiddleMCP}, {MiddleMCP, MiddlePIP}, {MiddlePIP, MiddleDIP}, {MiddleDIP, MiddleTip},
	{MiddleMCP, RingMCP}, {RingMCP, RingPIP}, {RingPIP, RingDIP}, {RingDIP, RingTip},
	{RingMCP, PinkyMCP}, {Wrist, PinkyMCP}, {PinkyMCP, PinkyPIP}, {PinkyPIP, PinkyDIP}, {PinkyDIP, PinkyTip},
}
