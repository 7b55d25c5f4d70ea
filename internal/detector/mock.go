package detector

import (
	"sync"

	"gocv.io/x/gocv"
)

// MockDetector is a test implementation of the Detector interface.
// It allows tests to control the detection results.
type MockDetector struct {
	mu        sync.Mutex
	sequence  []FrameDetection
	detection FrameDetection
	err       error
	calls     int
}

// NewMockDetector creates a new MockDetector instance.
func NewMockDetector() *MockDetector {
	return &MockDetector{}
}

// SetHands sets the hands returned by every Detect call.
func (m *MockDetector) SetHands(hands ...HandLandmarks) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.detection = FrameDetection(hands)
	m.sequence = nil
}

// SetSequence makes successive Detect calls return the given detections in order.
// Once exhausted, Detect returns an empty FrameDetection.
func (m *MockDetector) SetSequence(seq ...FrameDetection) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sequence = seq
	m.detection = nil
}

// SetError sets the error that will be returned by Detect.
func (m *MockDetector) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Calls returns how many times Detect has been called.
func (m *MockDetector) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Detect returns the pre-configured hands or error.
func (m *MockDetector) Detect(frame *gocv.Mat) (FrameDetection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++

	if m.err != nil {
		return nil, m.err
	}
	if m.sequence != nil {
		if m.calls > len(m.sequence) {
			return nil, nil
		}
		return m.sequence[m.calls-1], nil
	}
	return m.detection, nil
}

// Close is a no-op for the mock detector.
func (m *MockDetector) Close() error {
	return nil
}

// OpenPalmLandmarks returns a right hand, palm to the camera, with every finger extended.
// The thumb tip lies left of the thumb IP joint.
func OpenPalmLandmarks() HandLandmarks {
	landmarks := HandLandmarks{
		Handedness: "Right",
		Score:      0.95,
	}

	landmarks.Points[Wrist] = Point3D{X: 0.5, Y: 0.8, Z: 0.0}

	// Thumb abducted to the left
	landmarks.Points[ThumbCMC] = Point3D{X: 0.45, Y: 0.75, Z: 0.02}
	landmarks.Points[ThumbMCP] = Point3D{X: 0.40, Y: 0.70, Z: 0.03}
	landmarks.Points[ThumbIP] = Point3D{X: 0.36, Y: 0.65, Z: 0.03}
	landmarks.Points[ThumbTip] = Point3D{X: 0.32, Y: 0.60, Z: 0.03}

	landmarks.Points[IndexMCP] = Point3D{X: 0.45, Y: 0.68, Z: 0.0}
	landmarks.Points[IndexPIP] = Point3D{X: 0.44, Y: 0.55, Z: 0.0}
	landmarks.Points[IndexDIP] = Point3D{X: 0.43, Y: 0.45, Z: 0.0}
	landmarks.Points[IndexTip] = Point3D{X: 0.43, Y: 0.35, Z: 0.0}

	landmarks.Points[MiddleMCP] = Point3D{X: 0.50, Y: 0.66, Z: 0.0}
	landmarks.Points[MiddlePIP] = Point3D{X: 0.50, Y: 0.52, Z: 0.0}
	landmarks.Points[MiddleDIP] = Point3D{X: 0.50, Y: 0.40, Z: 0.0}
	landmarks.Points[MiddleTip] = Point3D{X: 0.50, Y: 0.28, Z: 0.0}

	landmarks.Points[RingMCP] = Point3D{X: 0.55, Y: 0.68, Z: 0.0}
	landmarks.Points[RingPIP] = Point3D{X: 0.56, Y: 0.55, Z: 0.0}
	landmarks.Points[RingDIP] = Point3D{X: 0.57, Y: 0.45, Z: 0.0}
	landmarks.Points[RingTip] = Point3D{X: 0.57, Y: 0.35, Z: 0.0}

	landmarks.Points[PinkyMCP] = Point3D{X: 0.60, Y: 0.70, Z: 0.0}
	landmarks.Points[PinkyPIP] = Point3D{X: 0.62, Y: 0.60, Z: 0.0}
	landmarks.Points[PinkyDIP] = Point3D{X: 0.64, Y: 0.50, Z: 0.0}
	landmarks.Points[PinkyTip] = Point3D{X: 0.65, Y: 0.42, Z: 0.0}

	return landmarks
}

// FistLandmarks returns a right hand with every finger curled and the thumb folded across the palm.
func FistLandmarks() HandLandmarks {
	landmarks := HandLandmarks{
		Handedness: "Right",
		Score:      0.93,
	}

	landmarks.Points[Wrist] = Point3D{X: 0.5, Y: 0.8, Z: 0.0}

	// Thumb folded inward: tip right of the IP joint
	landmarks.Points[ThumbCMC] = Point3D{X: 0.45, Y: 0.75, Z: 0.0}
	landmarks.Points[ThumbMCP] = Point3D{X: 0.42, Y: 0.70, Z: -0.01}
	landmarks.Points[ThumbIP] = Point3D{X: 0.44, Y: 0.66, Z: -0.02}
	landmarks.Points[ThumbTip] = Point3D{X: 0.49, Y: 0.66, Z: -0.03}

	// Curled fingers: tips below the PIP joints
	landmarks.Points[IndexMCP] = Point3D{X: 0.45, Y: 0.68, Z: -0.02}
	landmarks.Points[IndexPIP] = Point3D{X: 0.45, Y: 0.64, Z: -0.05}
	landmarks.Points[IndexDIP] = Point3D{X: 0.46, Y: 0.68, Z: -0.04}
	landmarks.Points[IndexTip] = Point3D{X: 0.46, Y: 0.71, Z: -0.02}

	landmarks.Points[MiddleMCP] = Point3D{X: 0.50, Y: 0.66, Z: -0.02}
	landmarks.Points[MiddlePIP] = Point3D{X: 0.50, Y: 0.62, Z: -0.05}
	landmarks.Points[MiddleDIP] = Point3D{X: 0.51, Y: 0.66, Z: -0.04}
	landmarks.Points[MiddleTip] = Point3D{X: 0.51, Y: 0.70, Z: -0.02}

	landmarks.Points[RingMCP] = Point3D{X: 0.55, Y: 0.68, Z: -0.02}
	landmarks.Points[RingPIP] = Point3D{X: 0.55, Y: 0.64, Z: -0.05}
	landmarks.Points[RingDIP] = Point3D{X: 0.56, Y: 0.68, Z: -0.04}
	landmarks.Points[RingTip] = Point3D{X: 0.56, Y: 0.71, Z: -0.02}

	landmarks.Points[PinkyMCP] = Point3D{X: 0.60, Y: 0.70, Z: -0.02}
	landmarks.Points[PinkyPIP] = Point3D{X: 0.60, Y: 0.67, Z: -0.05}
	landmarks.Points[PinkyDIP] = Point3D{X: 0.61, Y: 0.70, Z: -0.04}
	landmarks.Points[PinkyTip] = Point3D{X: 0.61, Y: 0.73, Z: -0.02}

	return landmarks
}

// PinchLandmarks returns an open palm with the thumb tip and index tip moved to the given
// normalized positions, for driving the pinch distance in tests.
func PinchLandmarks(thumbTip, indexTip Point3D) HandLandmarks {
	landmarks := OpenPalmLandmarks()
	landmarks.Points[ThumbTip] = thumbTip
	landmarks.Points[IndexTip] = indexTip
	return landmarks
}
