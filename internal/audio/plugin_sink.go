package audio

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/ayusman/pinchvol/internal/plugin"
)

// Plugin actions a volume plugin must declare.
const (
	ActionGetRange  = "get-range"
	ActionSetVolume = "set-volume"
)

// DefaultTimeout bounds a single plugin call.
const DefaultTimeout = 2 * time.Second

// Config selects the plugin that backs a PluginSink.
type Config struct {
	// PluginDir is searched for plugin manifests.
	PluginDir string

	// Plugin names the plugin to use. When empty, the first plugin declaring
	// get-range and set-volume is used.
	Plugin string

	// Timeout bounds each plugin call (default: DefaultTimeout).
	Timeout time.Duration

	Logger zerolog.Logger
}

// PluginSink is a Sink that runs a volume plugin for every level change.
type PluginSink struct {
	plugin   *plugin.Plugin
	executor *plugin.Executor
	min, max float64
	logger   zerolog.Logger
}

type rangeResponse struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

type levelRequest struct {
	Level float64 `json:"level"`
}

// Open discovers the volume plugin and queries its level range.
// Every failure is reported as ErrDeviceUnavailable.
func Open(ctx context.Context, cfg Config) (*PluginSink, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	manager := plugin.NewManager(cfg.PluginDir)
	if err := manager.Discover(); err != nil {
		return nil, fmt.Errorf("%w: discover plugins in %s: %v", ErrDeviceUnavailable, cfg.PluginDir, err)
	}

	var (
		p   *plugin.Plugin
		err error
	)
	if cfg.Plugin != "" {
		p, err = manager.Get(cfg.Plugin)
	} else {
		p, err = manager.Find(ActionGetRange, ActionSetVolume)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: no volume plugin in %s: %v", ErrDeviceUnavailable, cfg.PluginDir, err)
	}

	s := &PluginSink{
		plugin:   p,
		executor: plugin.NewExecutor(cfg.Timeout),
		logger:   cfg.Logger,
	}

	data, err := s.call(ctx, ActionGetRange, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
	}

	var r rangeResponse
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("%w: decode range: %v", ErrDeviceUnavailable, err)
	}
	if !(r.Min < r.Max) {
		return nil, fmt.Errorf("%w: empty range [%v,%v]", ErrDeviceUnavailable, r.Min, r.Max)
	}
	s.min, s.max = r.Min, r.Max

	s.logger.Info().
		Str("plugin", p.Manifest.Name).
		Float64("min", s.min).
		Float64("max", s.max).
		Msg("audio sink opened")
	return s, nil
}

// Range returns the level range reported by the plugin.
func (s *PluginSink) Range() (min, max float64) {
	return s.min, s.max
}

// SetLevel runs the plugin's set-volume action.
func (s *PluginSink) SetLevel(ctx context.Context, level float64) error {
	if err := checkLevel(level, s.min, s.max); err != nil {
		return err
	}

	params, err := json.Marshal(levelRequest{Level: level})
	if err != nil {
		return err
	}
	if _, err := s.call(ctx, ActionSetVolume, params); err != nil {
		return err
	}

	s.logger.Debug().Float64("level", level).Msg("level set")
	return nil
}

// Close is a no-op; the plugin is executed per call.
func (s *PluginSink) Close() error {
	return nil
}

// Name returns the backing plugin's name.
func (s *PluginSink) Name() string {
	return s.plugin.Manifest.Name
}

func (s *PluginSink) call(ctx context.Context, action string, params json.RawMessage) (json.RawMessage, error) {
	resp, err := s.executor.Execute(ctx, s.plugin, &plugin.Request{
		Action: action,
		Params: params,
	})
	if err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, fmt.Errorf("%s %s: %s", s.plugin.Manifest.Name, action, resp.Error)
	}
	return resp.Data, nil
}
