package app

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"gocv.io/x/gocv"

	"github.com/ayusman/pinchvol/internal/capture"
	"github.com/ayusman/pinchvol/internal/overlay"
	"github.com/ayusman/pinchvol/internal/store"
)

// Run reads frames from the camera and processes them one at a time until ctx is done or
// the source reports end of stream. Invalid frames are skipped. Per-frame errors are logged
// and counted; the next frame proceeds.
func (a *App) Run(ctx context.Context) error {
	if !a.camera.IsOpen() {
		if err := a.camera.Open(); err != nil {
			return fmt.Errorf("open camera: %w", err)
		}
	}

	a.beginSession()
	defer a.endSession()

	fps := a.camera.FPS()
	if fps <= 0 {
		fps = capture.DefaultFPS
	}
	ticker := time.NewTicker(time.Second / time.Duration(fps))
	defer ticker.Stop()

	a.logger.Info().Str("session", a.session.ID).Int("fps", fps).Msg("pipeline started")

	for {
		select {
		case <-ctx.Done():
			a.logger.Info().Str("session", a.session.ID).Msg("pipeline stopped")
			return nil
		case <-ticker.C:
		}

		frame, err := a.camera.ReadFrame()
		switch {
		case errors.Is(err, capture.ErrEndOfStream):
			a.logger.Info().Str("session", a.session.ID).Msg("end of stream")
			return nil
		case errors.Is(err, capture.ErrInvalidFrame):
			a.logger.Debug().Err(err).Msg("frame skipped")
			continue
		case err != nil:
			return fmt.Errorf("read frame: %w", err)
		}

		_, err = a.ProcessFrame(ctx, frame)
		frame.Close()
		if err != nil {
			a.session.Errors++
			a.logger.Warn().Err(err).Int("frame", a.session.Frames).Msg("frame failed")
		}

		if a.session.Frames > 0 && a.session.Frames%a.flushEvery == 0 {
			a.flushSession()
		}
	}
}

// ProcessFrame runs one frame through detection, evaluation, audio control and overlay, then
// publishes the encoded frame and the reading. The frame is drawn on in place.
//
// The undecorated frame is still published when no hand is present or evaluation fails.
func (a *App) ProcessFrame(ctx context.Context, frame *gocv.Mat) (Reading, error) {
	if frame == nil || frame.Empty() {
		return Reading{}, capture.ErrInvalidFrame
	}

	a.mu.RLock()
	mappings, opts := a.mappings, a.overlay
	a.mu.RUnlock()

	if a.session != nil {
		a.session.Frames++
	}

	det, err := a.detector.Detect(frame)
	if err != nil {
		a.publish(frame, Reading{})
		return Reading{}, fmt.Errorf("detect: %w", err)
	}

	reading, err := Evaluate(det, frame.Cols(), frame.Rows(), mappings)
	if err != nil {
		a.publish(frame, Reading{})
		return Reading{}, fmt.Errorf("evaluate: %w", err)
	}

	var sinkErr error
	if reading.Hand {
		if a.session != nil {
			a.session.HandFrames++
		}
		sinkErr = a.driveSink(ctx, reading.Level)
	}

	overlay.Draw(frame, overlay.Frame{
		Detection: det,
		Pinch:     reading.Pinch,
		Bar:       reading.Bar,
		Percent:   reading.Percent,
	}, opts)

	if err := a.publish(frame, reading); err != nil {
		return reading, err
	}
	if sinkErr != nil {
		return reading, fmt.Errorf("set level: %w", sinkErr)
	}
	return reading, nil
}

// driveSink forwards level when control is enabled and it moved by at least LevelEpsilon of
// the sink range since the last forwarded level.
func (a *App) driveSink(ctx context.Context, level float64) error {
	a.mu.Lock()
	if !a.enabled {
		a.mu.Unlock()
		return nil
	}
	min, max := a.sink.Range()
	if !math.IsNaN(a.lastLevel) && math.Abs(level-a.lastLevel) < LevelEpsilon*(max-min) {
		a.mu.Unlock()
		return nil
	}
	a.mu.Unlock()

	if err := a.sink.SetLevel(ctx, level); err != nil {
		return err
	}

	a.mu.Lock()
	a.lastLevel = level
	a.mu.Unlock()

	if a.session != nil {
		a.session.LevelUpdates++
		a.session.LastLevel = level
	}
	a.logger.Debug().Float64("level", level).Msg("level forwarded")
	return nil
}

// publish encodes frame as JPEG and hands it and r to the hubs.
func (a *App) publish(frame *gocv.Mat, r Reading) error {
	a.readings.Publish(r)

	buf, err := gocv.IMEncode(gocv.JPEGFileExt, *frame)
	if err != nil {
		return fmt.Errorf("encode frame: %w", err)
	}
	defer buf.Close()

	// The native buffer is released on Close.
	jpeg := append([]byte(nil), buf.GetBytes()...)
	a.frames.Publish(jpeg)
	return nil
}

func (a *App) beginSession() {
	a.session = &store.Session{
		ID:        uuid.NewString(),
		Source:    a.source,
		StartedAt: time.Now(),
	}
	if a.store == nil {
		return
	}
	if err := a.store.Sessions().Create(a.session); err != nil {
		a.logger.Warn().Err(err).Str("session", a.session.ID).Msg("session not recorded")
	}
}

func (a *App) endSession() {
	now := time.Now()
	a.session.EndedAt = &now
	a.flushSession()
	a.logger.Info().
		Str("session", a.session.ID).
		Int("frames", a.session.Frames).
		Int("hand_frames", a.session.HandFrames).
		Int("level_updates", a.session.LevelUpdates).
		Int("errors", a.session.Errors).
		Msg("session ended")
}

func (a *App) flushSession() {
	if a.store == nil {
		return
	}
	if err := a.store.Sessions().Update(a.session); err != nil {
		a.logger.Warn().Err(err).Str("session", a.session.ID).Msg("session update failed")
	}
}

// Session returns a copy of the running or last session's counters. Only call it from the
// pipeline goroutine or after Run returned.
func (a *App) Session() store.Session {
	if a.session == nil {
		return store.Session{}
	}
	return *a.session
}
