package gesture

import "github.com/ayusman/pinchvol/internal/detector"

// Finger indexes a FingerState.
type Finger int

const (
	Thumb Finger = iota
	Index
	Middle
	Ring
	Pinky
	NumFingers
)

var fingerNames = [NumFingers]string{"thumb", "index", "middle", "ring", "pinky"}

// String returns the lower-case finger name.
func (f Finger) String() string {
	if f < 0 || f >= NumFingers {
		return "unknown"
	}
	return fingerNames[f]
}

// fingerTips are the tip landmarks of index, middle, ring and pinky. Each is compared with
// the PIP joint two ids earlier.
var fingerTips = [...]int{detector.IndexTip, detector.MiddleTip, detector.RingTip, detector.PinkyTip}

// FingerState holds one up/down flag per finger, ordered thumb to pinky.
// A nil FingerState means no hand was detected; it is not the same as all fingers down.
type FingerState []bool

// Up reports whether the finger is extended. It is false for an empty state.
func (s FingerState) Up(f Finger) bool {
	if f < 0 || int(f) >= len(s) {
		return false
	}
	return s[f]
}

// Count returns the number of extended fingers.
func (s FingerState) Count() int {
	n := 0
	for _, up := range s {
		if up {
			n++
		}
	}
	return n
}

// ClassifyFingers classifies the first hand in det. It returns nil when det is empty.
func ClassifyFingers(det detector.FrameDetection) FingerState {
	if det.Empty() {
		return nil
	}
	return ClassifyHand(&det[0])
}

// ClassifyHand derives the finger state of a single hand.
//
// The thumb is up when its tip is left of the IP joint in image x. This assumes a right hand
// seen palm-first by an unmirrored camera; handedness and mirroring are not corrected.
// Other fingers are up when the tip is above (smaller y than) the PIP joint.
func ClassifyHand(hand *detector.HandLandmarks) FingerState {
	if hand == nil {
		return nil
	}

	p := hand.Points
	state := make(FingerState, 0, NumFingers)
	state = append(state, p[detector.ThumbTip].X < p[detector.ThumbIP].X)
	for _, tip := range fingerTips {
		state = append(state, p[tip].Y < p[tip-2].Y)
	}
	return state
}
