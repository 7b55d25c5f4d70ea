package capture

import (
	"sync"

	"gocv.io/x/gocv"
)

// MockCamera plays back a fixed list of frames. A nil or empty entry reads as ErrInvalidFrame.
// Frames are cloned on read, so the list can be reused.
type MockCamera struct {
	mu     sync.Mutex
	frames []*gocv.Mat
	next   int
	loop   bool
	fps    int
	open   bool
}

// NewMockCamera plays frames once, or forever when loop is set.
func NewMockCamera(frames []*gocv.Mat, loop bool) *MockCamera {
	return &MockCamera{frames: frames, loop: loop, fps: DefaultFPS}
}

// Open rewinds playback.
func (c *MockCamera) Open() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.open, c.next = true, 0
	return nil
}

func (c *MockCamera) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.open = false
	return nil
}

func (c *MockCamera) ReadFrame() (*gocv.Mat, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.open {
		return nil, ErrCameraNotOpen
	}
	if c.next == len(c.frames) {
		if !c.loop || len(c.frames) == 0 {
			return nil, ErrEndOfStream
		}
		c.next = 0
	}

	src := c.frames[c.next]
	c.next++
	if src == nil || src.Empty() {
		return nil, ErrInvalidFrame
	}
	frame := src.Clone()
	return &frame, nil
}

func (c *MockCamera) SetFPS(fps int) {
	if fps <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fps = fps
}

func (c *MockCamera) FPS() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fps
}

func (c *MockCamera) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.open
}

// SetFrames replaces the frame list and rewinds.
func (c *MockCamera) SetFrames(frames []*gocv.Mat) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frames, c.next = frames, 0
}
