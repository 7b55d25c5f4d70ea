package config

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// DefaultDebounce collapses bursts of editor writes into one reload.
const DefaultDebounce = 100 * time.Millisecond

// Live holds the settings that can change while the pipeline runs.
type Live struct {
	LogLevel zerolog.Level
	Enabled  bool
	Skeleton bool
}

// Live extracts the hot-reloadable settings. The level is assumed valid after Validate.
func (c Config) Live() Live {
	level, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	return Live{LogLevel: level, Enabled: c.Enabled, Skeleton: c.Skeleton}
}

// Watcher reloads the config file when it changes and reports the live settings.
// Flags in changed keep their command-line values across reloads.
type Watcher struct {
	path     string
	base     Config
	changed  map[string]bool
	onChange func(Live)
	logger   zerolog.Logger
	delay    time.Duration

	mu       sync.Mutex
	debounce *time.Timer
}

// NewWatcher creates a watcher for path. base is the configuration resolved at startup.
func NewWatcher(path string, base Config, changed map[string]bool, onChange func(Live), logger zerolog.Logger) *Watcher {
	return &Watcher{
		path:     path,
		base:     base,
		changed:  changed,
		onChange: onChange,
		logger:   logger,
		delay:    DefaultDebounce,
	}
}

// Run watches the directory holding the config file until ctx is done.
// The directory is watched instead of the file so that atomic renames are seen.
func (w *Watcher) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(w.path)); err != nil {
		return err
	}
	name := filepath.Base(w.path)
	w.logger.Info().Str("path", w.path).Msg("watching config")

	defer w.stopDebounce()
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Base(event.Name) != name {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			w.schedule()

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn().Err(err).Msg("config watcher error")
		}
	}
}

func (w *Watcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.debounce != nil {
		w.debounce.Stop()
	}
	w.debounce = time.AfterFunc(w.delay, w.reload)
}

func (w *Watcher) stopDebounce() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.debounce != nil {
		w.debounce.Stop()
	}
}

// reload keeps the previous settings when the file is unreadable or invalid.
func (w *Watcher) reload() {
	fc, err := LoadFileConfig(w.path)
	if err != nil {
		w.logger.Warn().Err(err).Msg("config reload failed")
		return
	}

	cfg := w.base
	if err := ApplyFileConfig(&cfg, fc, w.changed); err != nil {
		w.logger.Warn().Err(err).Msg("config reload failed")
		return
	}
	if err := ApplyEnvConfig(&cfg, w.changed); err != nil {
		w.logger.Warn().Err(err).Msg("config reload failed")
		return
	}
	if err := cfg.Validate(); err != nil {
		w.logger.Warn().Err(err).Msg("reloaded config is invalid")
		return
	}

	live := cfg.Live()
	w.logger.Info().
		Str("log_level", live.LogLevel.String()).
		Bool("enabled", live.Enabled).
		Bool("skeleton", live.Skeleton).
		Msg("config reloaded")
	w.onChange(live)
}
