// Package tray shows gesture control state in the system tray.
package tray

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/getlantern/systray"

	"github.com/ayusman/pinchvol/internal/app"
	"github.com/ayusman/pinchvol/internal/stream"
)

// Controller is the part of the pipeline the tray drives.
type Controller interface {
	IsEnabled() bool
	SetEnabled(enabled bool)
}

// Tray mirrors the pipeline's enabled flag and current level in a tray menu.
type Tray struct {
	ctrl     Controller
	readings *stream.Hub[app.Reading]

	mu     sync.RWMutex
	onOpen func()
	onQuit func()

	menuToggle *systray.MenuItem
	menuLevel  *systray.MenuItem
}

// New creates a tray for ctrl. readings may be nil, in which case no level is shown.
func New(ctrl Controller, readings *stream.Hub[app.Reading]) *Tray {
	return &Tray{ctrl: ctrl, readings: readings}
}

// OnOpen sets the callback for the "Open viewer" item.
func (t *Tray) OnOpen(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onOpen = fn
}

// OnQuit sets the callback for the "Quit" item.
func (t *Tray) OnQuit(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onQuit = fn
}

// Run blocks on the tray event loop until ctx is done or Quit is chosen.
// It must be called from the main goroutine.
func (t *Tray) Run(ctx context.Context) {
	go func() {
		<-ctx.Done()
		systray.Quit()
	}()
	systray.Run(func() { t.onReady(ctx) }, func() {})
}

func (t *Tray) onReady(ctx context.Context) {
	systray.SetTitle("pinchvol")
	systray.SetTooltip("Pinch gesture volume control")

	t.menuToggle = systray.AddMenuItem(ToggleTitle(t.ctrl.IsEnabled()), "Pause or resume volume control")
	systray.AddSeparator()

	t.menuLevel = systray.AddMenuItem(LevelTitle(app.Reading{}), "Last level sent to the audio device")
	t.menuLevel.Disable()
	systray.AddSeparator()

	menuOpen := systray.AddMenuItem("Open viewer", "Open the video viewer in a browser")
	menuQuit := systray.AddMenuItem("Quit", "Quit pinchvol")

	if t.readings != nil {
		go t.follow(ctx)
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.menuToggle.ClickedCh:
				t.toggle()
			case <-menuOpen.ClickedCh:
				t.call(func() func() { return t.onOpen })
			case <-menuQuit.ClickedCh:
				t.call(func() func() { return t.onQuit })
				systray.Quit()
				return
			}
		}
	}()
}

// follow keeps the menu in step with the pipeline, including toggles made elsewhere.
func (t *Tray) follow(ctx context.Context) {
	ch, cancel := t.readings.Subscribe()
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			return
		case r, ok := <-ch:
			if !ok {
				return
			}
			t.menuLevel.SetTitle(LevelTitle(r))
			t.menuToggle.SetTitle(ToggleTitle(t.ctrl.IsEnabled()))
		}
	}
}

func (t *Tray) toggle() {
	enabled := !t.ctrl.IsEnabled()
	t.ctrl.SetEnabled(enabled)
	t.menuToggle.SetTitle(ToggleTitle(enabled))
}

func (t *Tray) call(get func() func()) {
	t.mu.RLock()
	fn := get()
	t.mu.RUnlock()
	if fn != nil {
		fn()
	}
}

// ToggleTitle is the label of the enable item.
func ToggleTitle(enabled bool) string {
	if enabled {
		return "● Enabled"
	}
	return "○ Paused"
}

// LevelTitle is the label of the level item.
func LevelTitle(r app.Reading) string {
	if !r.Hand {
		return "Volume: no hand"
	}
	return fmt.Sprintf("Volume: %d%%", int(math.Round(r.Percent)))
}
