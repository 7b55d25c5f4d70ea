package detector

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"gocv.io/x/gocv"
)

const (
	scriptName = "scripts/mediapipe_service.py"

	// idleTimeout stops the service after this long without a frame. It restarts on demand.
	idleTimeout = 30 * time.Second

	// replyTimeout bounds one frame exchange, including model load on the first frame.
	replyTimeout = 10 * time.Second
)

// MediaPipeDetector runs MediaPipe Hands in a Python child process.
// The process starts on the first Detect call.
type MediaPipeDetector struct {
	config Config
	python string
	script string
	logger zerolog.Logger

	mu        sync.Mutex
	svc       *service
	idle      *time.Timer
	idleAfter time.Duration
	lastUsed  time.Time
}

// NewMediaPipeDetector validates config and locates the service script and interpreter.
func NewMediaPipeDetector(config Config, logger zerolog.Logger) (*MediaPipeDetector, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	dirs := searchDirs()
	script := lookup(dirs, scriptName)
	if script == "" {
		return nil, fmt.Errorf("detector: %s not found", scriptName)
	}
	python := lookup(dirs, filepath.Join("venv", "bin", "python"))
	if python == "" {
		python = "python3"
	}

	return &MediaPipeDetector{
		config:    config,
		python:    python,
		script:    script,
		logger:    logger,
		idleAfter: idleTimeout,
	}, nil
}

// Detect encodes frame as JPEG, sends it to the service and parses the reply.
func (d *MediaPipeDetector) Detect(frame *gocv.Mat) (FrameDetection, error) {
	if frame == nil || frame.Empty() {
		return nil, fmt.Errorf("detector: empty frame")
	}

	buf, err := gocv.IMEncode(gocv.JPEGFileExt, *frame)
	if err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}
	defer buf.Close()

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.svc == nil {
		if d.svc, err = startService(d.python, d.serviceArgs()...); err != nil {
			return nil, err
		}
		d.logger.Info().Str("python", d.python).Int("pid", d.svc.pid()).Msg("landmark service started")
	}
	d.touch()

	line, err := d.svc.exchange(buf.GetBytes(), replyTimeout)
	if err != nil {
		// A broken pipe leaves the protocol out of step; start over on the next frame.
		d.stopLocked()
		return nil, err
	}
	return parseResponse(line, d.config.MaxHands)
}

// Close stops the service if it is running.
func (d *MediaPipeDetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.stopLocked()
}

func (d *MediaPipeDetector) serviceArgs() []string {
	c := d.config
	return []string{
		d.script,
		"--static-image-mode=" + strconv.FormatBool(c.StaticImageMode),
		"--max-hands=" + strconv.Itoa(c.MaxHands),
		"--min-detection-confidence=" + strconv.FormatFloat(c.DetectionConfidence, 'f', -1, 64),
		"--min-tracking-confidence=" + strconv.FormatFloat(c.TrackingConfidence, 'f', -1, 64),
	}
}

// touch records use and rearms the idle timer. Callers hold d.mu.
func (d *MediaPipeDetector) touch() {
	d.lastUsed = time.Now()
	if d.idle != nil {
		d.idle.Reset(d.idleAfter)
		return
	}
	d.idle = time.AfterFunc(d.idleAfter, d.onIdle)
}

// onIdle stops the service unless a frame was processed while the timer was firing,
// in which case it waits out the rest of the idle period.
func (d *MediaPipeDetector) onIdle() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.svc == nil {
		return
	}
	if rest := d.idleAfter - time.Since(d.lastUsed); rest > 0 {
		if d.idle != nil {
			d.idle.Reset(rest)
		}
		return
	}
	d.logger.Info().Dur("idle", d.idleAfter).Msg("stopping idle landmark service")
	d.stopLocked()
}

func (d *MediaPipeDetector) stopLocked() error {
	if d.idle != nil {
		d.idle.Stop()
		d.idle = nil
	}
	if d.svc == nil {
		return nil
	}
	err := d.svc.stop()
	d.svc = nil
	d.logger.Info().Msg("landmark service stopped")
	return err
}

// searchDirs lists where the script and virtualenv are looked for, in order: the working
// directory, its parent, the executable's directory and ~/.pinchvol.
func searchDirs() []string {
	dirs := []string{".", ".."}
	if exe, err := os.Executable(); err == nil {
		dirs = append(dirs, filepath.Dir(exe))
	}
	if home, err := os.UserHomeDir(); err == nil {
		dirs = append(dirs, filepath.Join(home, ".pinchvol"))
	}
	return dirs
}

// lookup returns the absolute path of the first dir/rel that exists, or "".
func lookup(dirs []string, rel string) string {
	for _, dir := range dirs {
		p := filepath.Join(dir, rel)
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if abs, err := filepath.Abs(p); err == nil {
			return abs
		}
		return p
	}
	return ""
}
