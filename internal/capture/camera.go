// Package capture provides frame sources backed by GoCV (OpenCV) video capture.
package capture

import (
	"errors"
	"fmt"
	"strconv"
	"sync"

	"gocv.io/x/gocv"
)

// Capture defaults. The resolution is a request; devices may pick the nearest mode.
const (
	DefaultFPS    = 15
	DefaultWidth  = 640
	DefaultHeight = 480
)

var (
	// ErrCameraNotOpen is returned by ReadFrame before Open or after Close.
	ErrCameraNotOpen = errors.New("capture: camera is not open")

	// ErrEndOfStream is returned when the source has no more frames. The pipeline stops on it.
	ErrEndOfStream = errors.New("capture: end of stream")

	// ErrInvalidFrame is returned for a frame that cannot be processed. The pipeline skips it.
	ErrInvalidFrame = errors.New("capture: invalid frame")
)

// Camera is a source of BGR frames.
type Camera interface {
	Open() error
	Close() error
	// ReadFrame returns the next frame. The caller closes it.
	ReadFrame() (*gocv.Mat, error)
	SetFPS(fps int)
	FPS() int
	IsOpen() bool
}

// VideoCamera reads from a capture device or a video file.
type VideoCamera struct {
	source string

	mu  sync.Mutex
	vc  *gocv.VideoCapture
	fps int
}

// NewCamera returns a Camera for source. A numeric source is a device index ("0" is the
// default camera); anything else is opened as a file or stream URL.
func NewCamera(source string) Camera {
	return &VideoCamera{source: source, fps: DefaultFPS}
}

// Source returns the source string the camera was created with.
func (c *VideoCamera) Source() string {
	return c.source
}

// device is the argument passed to gocv.OpenVideoCapture.
func (c *VideoCamera) device() interface{} {
	if id, err := strconv.Atoi(c.source); err == nil {
		return id
	}
	return c.source
}

// Open starts capture at DefaultWidth x DefaultHeight. Opening an open camera is a no-op.
func (c *VideoCamera) Open() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.vc != nil {
		return nil
	}

	vc, err := gocv.OpenVideoCapture(c.device())
	if err != nil {
		return fmt.Errorf("capture: open %s: %w", c.source, err)
	}
	if !vc.IsOpened() {
		vc.Close()
		return fmt.Errorf("capture: %s could not be opened", c.source)
	}

	vc.Set(gocv.VideoCaptureFrameWidth, DefaultWidth)
	vc.Set(gocv.VideoCaptureFrameHeight, DefaultHeight)
	vc.Set(gocv.VideoCaptureFPS, float64(c.fps))
	c.vc = vc
	return nil
}

// Close releases the capture. Closing a closed camera is a no-op.
func (c *VideoCamera) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.vc == nil {
		return nil
	}
	err := c.vc.Close()
	c.vc = nil
	return err
}

// ReadFrame grabs the next frame. A failed grab means the device went away or the file
// ended and returns ErrEndOfStream; an empty frame returns ErrInvalidFrame.
func (c *VideoCamera) ReadFrame() (*gocv.Mat, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.vc == nil {
		return nil, ErrCameraNotOpen
	}

	frame := gocv.NewMat()
	if !c.vc.Read(&frame) {
		frame.Close()
		return nil, ErrEndOfStream
	}
	if frame.Empty() {
		frame.Close()
		return nil, ErrInvalidFrame
	}
	return &frame, nil
}

// SetFPS changes the target frame rate. Non-positive values are ignored.
func (c *VideoCamera) SetFPS(fps int) {
	if fps <= 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.fps = fps
	if c.vc != nil {
		c.vc.Set(gocv.VideoCaptureFPS, float64(fps))
	}
}

// FPS returns the target frame rate.
func (c *VideoCamera) FPS() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fps
}

// IsOpen reports whether Open succeeded and Close has not been called since.
func (c *VideoCamera) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.vc != nil
}
