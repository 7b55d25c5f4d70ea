// Command system-control is the volume plugin. It reads one plugin.Request on stdin,
// drives the platform mixer and writes one plugin.Response on stdout.
//
// macOS is driven through osascript, Linux through amixer. Levels are percentages in [0,100].
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"runtime"

	"github.com/ayusman/pinchvol/internal/plugin"
)

const (
	minLevel = 0
	maxLevel = 100

	// step is the change applied by volume-up and volume-down.
	step = 10
)

// levelParams is the params payload of set-volume.
type levelParams struct {
	Level float64 `json:"level"`
}

// rangeData is the data payload of get-range.
type rangeData struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// mixer is the platform volume backend.
type mixer interface {
	Level() (int, error)
	SetLevel(level int) error
	ToggleMute() error
}

func main() {
	m, err := platformMixer(runtime.GOOS)
	if err != nil {
		writeResponse(os.Stdout, failure(err.Error()))
		return
	}
	writeResponse(os.Stdout, handle(os.Stdin, m))
}

func platformMixer(goos string) (mixer, error) {
	switch goos {
	case "darwin":
		return osascriptMixer{run: runCommand}, nil
	case "linux":
		return amixerMixer{run: runCommand}, nil
	default:
		return nil, fmt.Errorf("unsupported platform: %s", goos)
	}
}

// handle decodes one request from r and executes it against m.
func handle(r io.Reader, m mixer) plugin.Response {
	var req plugin.Request
	if err := json.NewDecoder(r).Decode(&req); err != nil {
		return failure(fmt.Sprintf("failed to decode request: %v", err))
	}

	switch req.Action {
	case "get-range":
		// Reading the level proves the mixer is reachable before the range is reported.
		if _, err := m.Level(); err != nil {
			return failure(fmt.Sprintf("action %s failed: %v", req.Action, err))
		}
		return success(rangeData{Min: minLevel, Max: maxLevel})

	case "get-volume":
		level, err := m.Level()
		if err != nil {
			return failure(fmt.Sprintf("action %s failed: %v", req.Action, err))
		}
		return success(levelParams{Level: float64(level)})

	case "set-volume":
		var p levelParams
		if len(req.Params) == 0 {
			return failure("set-volume requires params.level")
		}
		if err := json.Unmarshal(req.Params, &p); err != nil {
			return failure(fmt.Sprintf("invalid params: %v", err))
		}
		if p.Level < minLevel || p.Level > maxLevel {
			return failure(fmt.Sprintf("level %v outside [%d,%d]", p.Level, minLevel, maxLevel))
		}
		return run(req.Action, m.SetLevel(int(p.Level+0.5)))

	case "volume-up", "volume-down":
		level, err := m.Level()
		if err != nil {
			return failure(fmt.Sprintf("action %s failed: %v", req.Action, err))
		}
		if req.Action == "volume-up" {
			level += step
		} else {
			level -= step
		}
		return run(req.Action, m.SetLevel(clamp(level)))

	case "volume-mute":
		return run(req.Action, m.ToggleMute())

	default:
		return failure(fmt.Sprintf("unknown action: %s", req.Action))
	}
}

func clamp(level int) int {
	if level < minLevel {
		return minLevel
	}
	if level > maxLevel {
		return maxLevel
	}
	return level
}

func run(action string, err error) plugin.Response {
	if err != nil {
		return failure(fmt.Sprintf("action %s failed: %v", action, err))
	}
	return plugin.Response{Success: true}
}

func success(data any) plugin.Response {
	raw, err := json.Marshal(data)
	if err != nil {
		return failure(err.Error())
	}
	return plugin.Response{Success: true, Data: raw}
}

func failure(msg string) plugin.Response {
	return plugin.Response{Success: false, Error: msg}
}

func writeResponse(w io.Writer, resp plugin.Response) {
	json.NewEncoder(w).Encode(resp)
}
