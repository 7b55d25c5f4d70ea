// Package app runs the per-frame pipeline: capture, detection, gesture evaluation,
// audio control, overlay and streaming.
package app

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/rs/zerolog"

	"github.com/ayusman/pinchvol/internal/audio"
	"github.com/ayusman/pinchvol/internal/capture"
	"github.com/ayusman/pinchvol/internal/detector"
	"github.com/ayusman/pinchvol/internal/gesture"
	"github.com/ayusman/pinchvol/internal/overlay"
	"github.com/ayusman/pinchvol/internal/store"
	"github.com/ayusman/pinchvol/internal/stream"
)

// LevelEpsilon is the smallest level change, as a fraction of the sink range, that is
// forwarded to the sink.
const LevelEpsilon = 0.005

// DefaultFlushEvery is how many frames pass between session writes.
const DefaultFlushEvery = 150

// ErrAlreadyRunning is returned by Start while the pipeline is running.
var ErrAlreadyRunning = errors.New("app: pipeline already running")

// Config holds the collaborators and settings of an App. Camera, Detector and Sink are
// required; Store is optional.
type Config struct {
	Camera   capture.Camera
	Detector detector.Detector
	Sink     audio.Sink
	Store    *store.Store

	// Source is recorded with each session.
	Source string

	// Mappings defaults to DefaultMappings over the sink range.
	Mappings *Mappings
	Overlay  overlay.Options

	// Enabled starts with gesture control on. When false, frames are still processed and
	// streamed but the sink is not driven.
	Enabled bool

	// FlushEvery defaults to DefaultFlushEvery.
	FlushEvery int

	Logger zerolog.Logger
}

// App owns the frame pipeline. It runs in exactly one goroutine; HTTP handlers read its
// output through Frames and Readings.
type App struct {
	camera   capture.Camera
	detector detector.Detector
	sink     audio.Sink
	store    *store.Store
	source   string
	logger   zerolog.Logger

	frames   *stream.Hub[[]byte]
	readings *stream.Hub[Reading]

	mu       sync.RWMutex
	mappings Mappings
	overlay  overlay.Options
	enabled  bool

	// Pipeline goroutine state
	lastLevel  float64
	session    *store.Session
	flushEvery int

	runMu  sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
	runErr error
}

// New creates an App. It fails when a required collaborator is missing or the mappings are
// invalid for the sink.
func New(cfg Config) (*App, error) {
	if cfg.Camera == nil || cfg.Detector == nil || cfg.Sink == nil {
		return nil, fmt.Errorf("app: camera, detector and sink are required")
	}

	mappings := DefaultMappings(cfg.Sink.Range())
	if cfg.Mappings != nil {
		mappings = *cfg.Mappings
	}
	if cfg.FlushEvery <= 0 {
		cfg.FlushEvery = DefaultFlushEvery
	}

	a := &App{
		camera:     cfg.Camera,
		detector:   cfg.Detector,
		sink:       cfg.Sink,
		store:      cfg.Store,
		source:     cfg.Source,
		logger:     cfg.Logger,
		frames:     stream.NewHub[[]byte](),
		readings:   stream.NewHub[Reading](),
		overlay:    cfg.Overlay,
		enabled:    cfg.Enabled,
		lastLevel:  math.NaN(),
		flushEvery: cfg.FlushEvery,
	}
	if err := a.SetMappings(mappings); err != nil {
		return nil, err
	}
	return a, nil
}

// Frames is the hub of encoded JPEG frames, overlay included.
func (a *App) Frames() *stream.Hub[[]byte] {
	return a.frames
}

// Readings is the hub of per-frame gesture readings.
func (a *App) Readings() *stream.Hub[Reading] {
	return a.readings
}

// SetEnabled turns driving the sink on or off.
func (a *App) SetEnabled(enabled bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if enabled && !a.enabled {
		// Force the next reading through to the sink.
		a.lastLevel = math.NaN()
	}
	a.enabled = enabled
	a.logger.Info().Bool("enabled", enabled).Msg("gesture control toggled")
}

// IsEnabled reports whether the sink is driven.
func (a *App) IsEnabled() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.enabled
}

// SetMappings replaces the mappings used from the next frame on. The volume mapping must
// stay inside the sink range.
func (a *App) SetMappings(m Mappings) error {
	if err := a.checkMappings(m); err != nil {
		return err
	}
	a.mu.Lock()
	a.mappings = m
	a.mu.Unlock()
	return nil
}

// UpdateMapping replaces the named mapping and returns the resulting set. Concurrent
// updates to different names are all kept.
func (a *App) UpdateMapping(name string, m gesture.Mapping) (Mappings, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	next, err := a.mappings.With(name, m)
	if err != nil {
		return a.mappings, err
	}
	if err := a.checkMappings(next); err != nil {
		return a.mappings, err
	}
	a.mappings = next
	return next, nil
}

func (a *App) checkMappings(m Mappings) error {
	if err := m.Validate(); err != nil {
		return err
	}
	min, max := a.sink.Range()
	for _, v := range []float64{m.Volume.RangeLow, m.Volume.RangeHigh} {
		if v < min || v > max {
			return fmt.Errorf("%w: volume range [%v,%v] outside sink range [%v,%v]",
				gesture.ErrInvalidMapping, m.Volume.RangeLow, m.Volume.RangeHigh, min, max)
		}
	}
	return nil
}

// Mappings returns the mappings in use.
func (a *App) Mappings() Mappings {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.mappings
}

// SetOverlay replaces the overlay options used from the next frame on.
func (a *App) SetOverlay(opts overlay.Options) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.overlay = opts
}

// Start runs the pipeline in a background goroutine until Stop is called or the source ends.
func (a *App) Start() error {
	a.runMu.Lock()
	defer a.runMu.Unlock()

	if a.done != nil {
		select {
		case <-a.done:
		default:
			return ErrAlreadyRunning
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	a.cancel, a.done, a.runErr = cancel, done, nil

	go func() {
		defer close(done)
		err := a.Run(ctx)
		a.runMu.Lock()
		a.runErr = err
		a.runMu.Unlock()
	}()
	return nil
}

// Stop halts a pipeline started with Start and waits for it to finish.
// It returns the error the pipeline ended with, if any.
func (a *App) Stop() error {
	a.runMu.Lock()
	cancel, done := a.cancel, a.done
	a.runMu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()
	<-done

	a.runMu.Lock()
	defer a.runMu.Unlock()
	a.cancel, a.done = nil, nil
	return a.runErr
}

// Done is closed when the pipeline started by Start finishes. It is nil before Start.
func (a *App) Done() <-chan struct{} {
	a.runMu.Lock()
	defer a.runMu.Unlock()
	return a.done
}

// Close closes the output hubs, ending every subscriber. Call it after Stop.
func (a *App) Close() {
	a.frames.Close()
	a.readings.Close()
}
