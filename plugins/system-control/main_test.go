package main

import (
	"errors"
	"strings"
	"testing"
)

type fakeMixer struct {
	level   int
	muted   bool
	failGet bool
	sets    []int
}

func (f *fakeMixer) Level() (int, error) {
	if f.failGet {
		return 0, errors.New("mixer unavailable")
	}
	return f.level, nil
}

func (f *fakeMixer) SetLevel(level int) error {
	f.level = level
	f.sets = append(f.sets, level)
	return nil
}

func (f *fakeMixer) ToggleMute() error {
	f.muted = !f.muted
	return nil
}

func TestHandle(t *testing.T) {
	tests := []struct {
		name        string
		request     string
		start       int
		wantSuccess bool
		wantLevel   int
		wantData    string
	}{
		{name: "get-range", request: `{"action":"get-range"}`, wantSuccess: true, wantData: `{"min":0,"max":100}`},
		{name: "get-volume", request: `{"action":"get-volume"}`, start: 35, wantSuccess: true, wantLevel: 35, wantData: `{"level":35}`},
		{name: "set-volume rounds", request: `{"action":"set-volume","params":{"level":62.6}}`, wantSuccess: true, wantLevel: 63},
		{name: "set-volume at max", request: `{"action":"set-volume","params":{"level":100}}`, wantSuccess: true, wantLevel: 100},
		{name: "set-volume above max", request: `{"action":"set-volume","params":{"level":101}}`, start: 20, wantLevel: 20},
		{name: "set-volume without params", request: `{"action":"set-volume"}`, start: 20, wantLevel: 20},
		{name: "volume-up clamps", request: `{"action":"volume-up"}`, start: 95, wantSuccess: true, wantLevel: 100},
		{name: "volume-down", request: `{"action":"volume-down"}`, start: 50, wantSuccess: true, wantLevel: 40},
		{name: "unknown action", request: `{"action":"brightness-up"}`},
		{name: "bad json", request: `{`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &fakeMixer{level: tt.start}

			resp := handle(strings.NewReader(tt.request), m)

			if resp.Success != tt.wantSuccess {
				t.Fatalf("Success = %v (error %q), want %v", resp.Success, resp.Error, tt.wantSuccess)
			}
			if !resp.Success && resp.Error == "" {
				t.Error("failed response should carry an error message")
			}
			if m.level != tt.wantLevel {
				t.Errorf("level = %d, want %d", m.level, tt.wantLevel)
			}
			if tt.wantData != "" && string(resp.Data) != tt.wantData {
				t.Errorf("Data = %s, want %s", resp.Data, tt.wantData)
			}
		})
	}
}

func TestHandle_VolumeMute(t *testing.T) {
	m := &fakeMixer{}
	if resp := handle(strings.NewReader(`{"action":"volume-mute"}`), m); !resp.Success {
		t.Fatalf("volume-mute failed: %s", resp.Error)
	}
	if !m.muted {
		t.Error("expected mute toggled on")
	}
}

func TestHandle_MixerError(t *testing.T) {
	for _, action := range []string{"get-range", "get-volume", "volume-up"} {
		t.Run(action, func(t *testing.T) {
			m := &fakeMixer{failGet: true}
			resp := handle(strings.NewReader(`{"action":"`+action+`"}`), m)
			if resp.Success {
				t.Fatal("expected failure when the mixer cannot be read")
			}
			if !strings.Contains(resp.Error, "mixer unavailable") {
				t.Errorf("error = %q", resp.Error)
			}
			if len(resp.Data) != 0 {
				t.Errorf("Data = %s, want none", resp.Data)
			}
			if len(m.sets) != 0 {
				t.Error("level must not be set after a read failure")
			}
		})
	}
}

// recorder captures commands instead of running them.
type recorder struct {
	calls  [][]string
	output string
}

func (r *recorder) run(name string, args ...string) (string, error) {
	r.calls = append(r.calls, append([]string{name}, args...))
	return r.output, nil
}

func TestMixers(t *testing.T) {
	t.Run("amixer set", func(t *testing.T) {
		r := &recorder{}
		if err := (amixerMixer{run: r.run}).SetLevel(42); err != nil {
			t.Fatal(err)
		}
		if got := strings.Join(r.calls[0], " "); got != "amixer -q sset Master 42%" {
			t.Errorf("command = %q", got)
		}
	})

	t.Run("amixer get parses percent", func(t *testing.T) {
		r := &recorder{output: "Simple mixer control 'Master',0\n  Mono: Playback 45 [71%] [-18.00dB] [on]\n"}
		level, err := (amixerMixer{run: r.run}).Level()
		if err != nil {
			t.Fatal(err)
		}
		if level != 71 {
			t.Errorf("level = %d, want 71", level)
		}
	})

	t.Run("amixer get without percent", func(t *testing.T) {
		r := &recorder{output: "Simple mixer control 'Master',0\n"}
		if _, err := (amixerMixer{run: r.run}).Level(); err == nil {
			t.Error("expected error")
		}
	})

	t.Run("osascript set", func(t *testing.T) {
		r := &recorder{}
		if err := (osascriptMixer{run: r.run}).SetLevel(7); err != nil {
			t.Fatal(err)
		}
		if got := r.calls[0][2]; got != "set volume output volume 7" {
			t.Errorf("script = %q", got)
		}
	})

	t.Run("osascript get", func(t *testing.T) {
		r := &recorder{output: "64\n"}
		level, err := (osascriptMixer{run: r.run}).Level()
		if err != nil || level != 64 {
			t.Errorf("Level() = %d, %v", level, err)
		}
	})
}

func TestPlatformMixer(t *testing.T) {
	for _, goos := range []string{"darwin", "linux"} {
		if _, err := platformMixer(goos); err != nil {
			t.Errorf("platformMixer(%s) error: %v", goos, err)
		}
	}
	if _, err := platformMixer("plan9"); err == nil {
		t.Error("expected unsupported platform error")
	}
}
