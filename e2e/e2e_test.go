package e2e

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"gocv.io/x/gocv"

	"github.com/ayusman/pinchvol/internal/app"
	"github.com/ayusman/pinchvol/internal/audio"
	"github.com/ayusman/pinchvol/internal/capture"
	"github.com/ayusman/pinchvol/internal/detector"
	"github.com/ayusman/pinchvol/internal/overlay"
	"github.com/ayusman/pinchvol/internal/server"
	"github.com/ayusman/pinchvol/internal/store"
	"github.com/ayusman/pinchvol/internal/stream"
)

// pinchAt places the thumb tip at pixel (160,240) of a 640x480 frame and the index tip dx
// pixels to its right.
func pinchAt(dx int) detector.FrameDetection {
	thumb := detector.Point3D{X: 160.0 / 640, Y: 0.5}
	index := detector.Point3D{X: float64(160+dx) / 640, Y: 0.5}
	return detector.FrameDetection{detector.PinchLandmarks(thumb, index)}
}

func TestE2E_PinchToVolume(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e test")
	}

	st, err := store.New(filepath.Join(t.TempDir(), "data.db"))
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	defer st.Close()

	frames := make([]*gocv.Mat, 4)
	for i := range frames {
		m := gocv.NewMatWithSize(480, 640, gocv.MatTypeCV8UC3)
		frames[i] = &m
	}
	defer func() {
		for _, m := range frames {
			m.Close()
		}
	}()
	cam := capture.NewMockCamera(frames, false)
	cam.SetFPS(1000)

	det := detector.NewMockDetector()
	det.SetSequence(pinchAt(175), pinchAt(30), nil, pinchAt(400))
	sink := audio.NewMockSink(0, 100)

	application, err := app.New(app.Config{
		Camera:   cam,
		Detector: det,
		Sink:     sink,
		Store:    st,
		Source:   "e2e",
		Overlay:  overlay.DefaultOptions(),
		Enabled:  true,
	})
	if err != nil {
		t.Fatalf("app.New() error = %v", err)
	}
	defer application.Close()

	ts := httptest.NewServer(server.New(server.Config{App: application, Store: st}))
	defer ts.Close()
	client := ts.Client()

	if err := application.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	select {
	case <-application.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("pipeline did not reach the end of the stream")
	}
	if err := application.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}

	t.Run("SinkFollowsPinch", func(t *testing.T) {
		got := sink.Levels()
		want := []float64{50, 0, 100}
		if len(got) != len(want) {
			t.Fatalf("levels = %v, want %v", got, want)
		}
		for i := range want {
			if got[i] != want[i] {
				t.Errorf("levels[%d] = %v, want %v", i, got[i], want[i])
			}
		}
	})

	t.Run("VideoFeedServesLatestFrame", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		req, _ := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/video_feed", nil)
		resp, err := client.Do(req)
		if err != nil {
			t.Fatalf("GET /video_feed error = %v", err)
		}
		defer resp.Body.Close()

		if ct := resp.Header.Get("Content-Type"); ct != stream.ContentType {
			t.Errorf("Content-Type = %q, want %q", ct, stream.ContentType)
		}

		r := bufio.NewReader(resp.Body)
		for _, want := range []string{"--frame\r\n", "Content-Type: image/jpeg\r\n", "\r\n"} {
			line, err := r.ReadString('\n')
			if err != nil {
				t.Fatalf("read part header: %v", err)
			}
			if line != want {
				t.Fatalf("header line = %q, want %q", line, want)
			}
		}
		soi := make([]byte, 2)
		if _, err := io.ReadFull(r, soi); err != nil {
			t.Fatalf("read jpeg: %v", err)
		}
		if soi[0] != 0xFF || soi[1] != 0xD8 {
			t.Errorf("part does not start with a JPEG marker: %x", soi)
		}
	})

	t.Run("SessionRecorded", func(t *testing.T) {
		resp, err := client.Get(ts.URL + "/api/sessions")
		if err != nil {
			t.Fatalf("GET /api/sessions error = %v", err)
		}
		defer resp.Body.Close()

		var body struct {
			Sessions []store.Session `json:"sessions"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if len(body.Sessions) != 1 {
			t.Fatalf("expected 1 session, got %d", len(body.Sessions))
		}
		s := body.Sessions[0]
		if s.Source != "e2e" || s.Frames != 4 || s.HandFrames != 3 || s.LevelUpdates != 3 {
			t.Errorf("unexpected session: %+v", s)
		}
		if s.EndedAt == nil {
			t.Error("session should be closed")
		}
		if s.LastLevel != 100 {
			t.Errorf("LastLevel = %v, want 100", s.LastLevel)
		}
	})

	t.Run("UpdateMapping", func(t *testing.T) {
		body := `{"domain_low":50,"domain_high":300,"range_low":0,"range_high":10}`
		req, _ := http.NewRequest(http.MethodPut, ts.URL+"/api/mappings/percent", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		resp, err := client.Do(req)
		if err != nil {
			t.Fatalf("PUT error = %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d, want 200", resp.StatusCode)
		}

		if got := application.Mappings().Percent.RangeHigh; got != 10 {
			t.Errorf("live percent RangeHigh = %v, want 10", got)
		}
		stored, err := st.Mappings().Get(app.MappingPercent)
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if stored.RangeHigh != 10 {
			t.Errorf("stored percent RangeHigh = %v, want 10", stored.RangeHigh)
		}
	})

	t.Run("PauseControl", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodPut, ts.URL+"/api/control", strings.NewReader(`{"enabled":false}`))
		resp, err := client.Do(req)
		if err != nil {
			t.Fatalf("PUT /api/control error = %v", err)
		}
		resp.Body.Close()

		if application.IsEnabled() {
			t.Error("control should be paused")
		}
	})
}
