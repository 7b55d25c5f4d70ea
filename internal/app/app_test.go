package app

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"gocv.io/x/gocv"

	"github.com/ayusman/pinchvol/internal/audio"
	"github.com/ayusman/pinchvol/internal/capture"
	"github.com/ayusman/pinchvol/internal/detector"
	"github.com/ayusman/pinchvol/internal/gesture"
	"github.com/ayusman/pinchvol/internal/overlay"
	"github.com/ayusman/pinchvol/internal/store"
)

type fixture struct {
	app      *App
	detector *detector.MockDetector
	sink     *audio.MockSink
	camera   *capture.MockCamera
}

// newFixture builds an App over a mock camera playing n blank 640x480 frames.
func newFixture(t *testing.T, n int, loop bool, st *store.Store) *fixture {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping gocv pipeline test in short mode")
	}

	frames := make([]*gocv.Mat, n)
	for i := range frames {
		m := gocv.NewMatWithSize(480, 640, gocv.MatTypeCV8UC3)
		frames[i] = &m
	}
	t.Cleanup(func() {
		for _, m := range frames {
			m.Close()
		}
	})

	cam := capture.NewMockCamera(frames, loop)
	cam.SetFPS(1000)

	f := &fixture{
		detector: detector.NewMockDetector(),
		sink:     audio.NewMockSink(0, 100),
		camera:   cam,
	}

	a, err := New(Config{
		Camera:   cam,
		Detector: f.detector,
		Sink:     f.sink,
		Store:    st,
		Source:   "mock",
		Overlay:  overlay.DefaultOptions(),
		Enabled:  true,
	})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	f.app = a
	return f
}

func blankFrame(t *testing.T) *gocv.Mat {
	t.Helper()
	m := gocv.NewMatWithSize(480, 640, gocv.MatTypeCV8UC3)
	t.Cleanup(func() { m.Close() })
	return &m
}

func TestNew_Validation(t *testing.T) {
	sink := audio.NewMockSink(0, 100)
	cam := capture.NewMockCamera(nil, false)
	det := detector.NewMockDetector()

	if _, err := New(Config{Camera: cam, Detector: det}); err == nil {
		t.Error("expected error without a sink")
	}

	wide := DefaultMappings(0, 150)
	_, err := New(Config{Camera: cam, Detector: det, Sink: sink, Mappings: &wide})
	if !errors.Is(err, gesture.ErrInvalidMapping) {
		t.Errorf("expected ErrInvalidMapping for a volume range beyond the sink, got %v", err)
	}

	a, err := New(Config{Camera: cam, Detector: det, Sink: sink})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	if got := a.Mappings(); got != DefaultMappings(0, 100) {
		t.Errorf("Mappings() = %+v, want defaults over the sink range", got)
	}
}

func TestApp_ProcessFrame(t *testing.T) {
	f := newFixture(t, 0, false, nil)
	f.detector.SetHands(pinchAt(175)...)

	r, err := f.app.ProcessFrame(context.Background(), blankFrame(t))
	if err != nil {
		t.Fatalf("ProcessFrame() error: %v", err)
	}
	if !r.Hand || r.Level != 50 {
		t.Errorf("reading = %+v, want hand at level 50", r)
	}
	if got := f.sink.Levels(); len(got) != 1 || got[0] != 50 {
		t.Errorf("sink levels = %v, want [50]", got)
	}

	jpeg, ok := f.app.Frames().Latest()
	if !ok || len(jpeg) < 2 || jpeg[0] != 0xFF || jpeg[1] != 0xD8 {
		t.Error("expected a published JPEG frame")
	}
	if latest, ok := f.app.Readings().Latest(); !ok || latest.Percent != 50 {
		t.Errorf("published reading = %+v", latest)
	}
}

func TestApp_ProcessFrame_NoHand(t *testing.T) {
	f := newFixture(t, 0, false, nil)

	r, err := f.app.ProcessFrame(context.Background(), blankFrame(t))
	if err != nil {
		t.Fatalf("ProcessFrame() error: %v", err)
	}
	if r.Hand {
		t.Error("expected no hand")
	}
	if len(f.sink.Levels()) != 0 {
		t.Error("sink must not be called without a hand")
	}
	if _, ok := f.app.Frames().Latest(); !ok {
		t.Error("the undecorated frame should still be published")
	}
}

func TestApp_ProcessFrame_LevelEpsilon(t *testing.T) {
	f := newFixture(t, 0, false, nil)
	ctx := context.Background()

	// 175px -> 50, same again, 176px -> 50.4 (below epsilon), 180px -> 52.
	f.detector.SetSequence(pinchAt(175), pinchAt(175), pinchAt(176), pinchAt(180))
	for i := 0; i < 4; i++ {
		if _, err := f.app.ProcessFrame(ctx, blankFrame(t)); err != nil {
			t.Fatalf("frame %d: %v", i, err)
		}
	}

	got := f.sink.Levels()
	if len(got) != 2 || got[0] != 50 || got[1] != 52 {
		t.Errorf("sink levels = %v, want [50 52]", got)
	}
}

func TestApp_SetEnabled(t *testing.T) {
	f := newFixture(t, 0, false, nil)
	ctx := context.Background()
	f.detector.SetHands(pinchAt(175)...)

	f.app.SetEnabled(false)
	if f.app.IsEnabled() {
		t.Fatal("expected disabled")
	}
	if _, err := f.app.ProcessFrame(ctx, blankFrame(t)); err != nil {
		t.Fatal(err)
	}
	if len(f.sink.Levels()) != 0 {
		t.Error("disabled app must not drive the sink")
	}
	if r, _ := f.app.Readings().Latest(); !r.Hand {
		t.Error("readings are published while disabled")
	}

	f.app.SetEnabled(true)
	if _, err := f.app.ProcessFrame(ctx, blankFrame(t)); err != nil {
		t.Fatal(err)
	}
	if len(f.sink.Levels()) != 1 {
		t.Errorf("re-enabled app should forward the level, got %v", f.sink.Levels())
	}
}

func TestApp_ProcessFrame_Errors(t *testing.T) {
	t.Run("detector error", func(t *testing.T) {
		f := newFixture(t, 0, false, nil)
		f.detector.SetError(errors.New("model crashed"))

		if _, err := f.app.ProcessFrame(context.Background(), blankFrame(t)); err == nil {
			t.Fatal("expected error")
		}
		if _, ok := f.app.Frames().Latest(); !ok {
			t.Error("frame should be published even when detection fails")
		}
	})

	t.Run("sink error", func(t *testing.T) {
		f := newFixture(t, 0, false, nil)
		f.detector.SetHands(pinchAt(175)...)
		f.sink.SetError(errors.New("device gone"))

		r, err := f.app.ProcessFrame(context.Background(), blankFrame(t))
		if err == nil {
			t.Fatal("expected sink error")
		}
		if !r.Hand {
			t.Error("reading should survive a sink error")
		}
	})

	t.Run("empty frame", func(t *testing.T) {
		f := newFixture(t, 0, false, nil)
		empty := gocv.NewMat()
		defer empty.Close()

		if _, err := f.app.ProcessFrame(context.Background(), &empty); !errors.Is(err, capture.ErrInvalidFrame) {
			t.Errorf("expected ErrInvalidFrame, got %v", err)
		}
		if f.detector.Calls() != 0 {
			t.Error("detector must not see an invalid frame")
		}
	})
}

func TestApp_SetMappings(t *testing.T) {
	f := newFixture(t, 0, false, nil)
	f.detector.SetHands(pinchAt(175)...)

	m := f.app.Mappings()
	m.Percent = gesture.Mapping{DomainLow: 75, DomainHigh: 275, RangeLow: 0, RangeHigh: 10}
	if err := f.app.SetMappings(m); err != nil {
		t.Fatalf("SetMappings() error: %v", err)
	}

	r, err := f.app.ProcessFrame(context.Background(), blankFrame(t))
	if err != nil {
		t.Fatal(err)
	}
	if r.Percent != 5 {
		t.Errorf("percent = %v, want 5 with the new mapping", r.Percent)
	}
}

func TestApp_UpdateMapping(t *testing.T) {
	t.Run("concurrent updates to different names", func(t *testing.T) {
		f := newFixture(t, 0, false, nil)
		bar := gesture.Mapping{DomainLow: 60, DomainHigh: 260, RangeLow: 300, RangeHigh: 100}
		percent := gesture.Mapping{DomainLow: 75, DomainHigh: 275, RangeLow: 0, RangeHigh: 10}

		var wg sync.WaitGroup
		for i := 0; i < 50; i++ {
			wg.Add(2)
			go func() {
				defer wg.Done()
				f.app.UpdateMapping(MappingBar, bar)
			}()
			go func() {
				defer wg.Done()
				f.app.UpdateMapping(MappingPercent, percent)
			}()
		}
		wg.Wait()

		got := f.app.Mappings()
		if got.Bar != bar || got.Percent != percent {
			t.Errorf("mappings = %+v, want both updates kept", got)
		}
	})

	t.Run("volume outside sink range", func(t *testing.T) {
		f := newFixture(t, 0, false, nil)
		before := f.app.Mappings()

		_, err := f.app.UpdateMapping(MappingVolume, gesture.Mapping{DomainLow: 50, DomainHigh: 300, RangeLow: 0, RangeHigh: 150})
		if !errors.Is(err, gesture.ErrInvalidMapping) {
			t.Fatalf("expected ErrInvalidMapping, got %v", err)
		}
		if f.app.Mappings() != before {
			t.Error("rejected update must leave the mappings unchanged")
		}
	})

	t.Run("unknown name", func(t *testing.T) {
		f := newFixture(t, 0, false, nil)
		if _, err := f.app.UpdateMapping("treble", gesture.Mapping{DomainHigh: 1}); !errors.Is(err, gesture.ErrInvalidMapping) {
			t.Errorf("expected ErrInvalidMapping, got %v", err)
		}
	})
}

func TestApp_Run_EndOfStream(t *testing.T) {
	st, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("store.New() error: %v", err)
	}
	defer st.Close()

	f := newFixture(t, 3, false, st)
	f.detector.SetSequence(pinchAt(175), nil, pinchAt(400))

	if err := f.app.Run(context.Background()); err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	s := f.app.Session()
	if s.Frames != 3 || s.HandFrames != 2 || s.LevelUpdates != 2 || s.LastLevel != 100 {
		t.Errorf("session counters = %+v", s)
	}

	saved, err := st.Sessions().Get(s.ID)
	if err != nil {
		t.Fatalf("session not stored: %v", err)
	}
	if saved.EndedAt == nil || saved.Frames != 3 || saved.Source != "mock" {
		t.Errorf("stored session = %+v", saved)
	}
}

func TestApp_Run_SkipsInvalidFrames(t *testing.T) {
	f := newFixture(t, 2, false, nil)
	f.camera.SetFrames([]*gocv.Mat{nil, blankFrame(t), nil})

	if err := f.app.Run(context.Background()); err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if f.detector.Calls() != 1 {
		t.Errorf("detector calls = %d, want 1", f.detector.Calls())
	}
}

func TestApp_StartStop(t *testing.T) {
	f := newFixture(t, 2, true, nil)
	f.detector.SetHands(pinchAt(175)...)

	frames, cancel := f.app.Frames().Subscribe()
	defer cancel()

	if err := f.app.Start(); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	if err := f.app.Start(); !errors.Is(err, ErrAlreadyRunning) {
		t.Errorf("second Start() error = %v, want ErrAlreadyRunning", err)
	}

	select {
	case jpeg := <-frames:
		if len(jpeg) == 0 {
			t.Error("received empty frame")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no frame published")
	}

	if err := f.app.Stop(); err != nil {
		t.Errorf("Stop() error: %v", err)
	}
	if err := f.app.Stop(); err != nil {
		t.Errorf("second Stop() error: %v", err)
	}

	f.app.Close()
	for range frames {
	}
}
