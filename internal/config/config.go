// Package config resolves the pinchvol runtime configuration from defaults, a TOML file,
// PINCHVOL_* environment variables and command-line flags, in increasing precedence.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/ayusman/pinchvol/internal/audio"
	"github.com/ayusman/pinchvol/internal/capture"
	"github.com/ayusman/pinchvol/internal/detector"
)

const (
	// DefaultListen is the HTTP listen address.
	DefaultListen = ":8080"

	// DefaultPlugin is the plugin that backs the audio sink.
	DefaultPlugin = "system-control"

	dataDirName = ".pinchvol"
	dbFile      = "pinchvol.db"
)

// Config holds everything cmd/pinchvol needs to assemble the pipeline.
type Config struct {
	Camera string
	FPS    int
	Listen string

	DataDir   string
	StaticDir string

	PluginDir     string
	Plugin        string
	PluginTimeout time.Duration

	MaxHands            int
	DetectionConfidence float64
	TrackingConfidence  float64
	StaticImageMode     bool

	Enabled  bool
	Skeleton bool
	Tray     bool

	LogLevel string
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	det := detector.DefaultConfig()
	return Config{
		Camera:              "0",
		FPS:                 capture.DefaultFPS,
		Listen:              DefaultListen,
		Plugin:              DefaultPlugin,
		PluginTimeout:       audio.DefaultTimeout,
		MaxHands:            det.MaxHands,
		DetectionConfidence: det.DetectionConfidence,
		TrackingConfidence:  det.TrackingConfidence,
		StaticImageMode:     det.StaticImageMode,
		Enabled:             true,
		Skeleton:            true,
		LogLevel:            zerolog.InfoLevel.String(),
	}
}

// Validate checks the configuration and fills in derived paths.
func (c *Config) Validate() error {
	if c.Camera == "" {
		return fmt.Errorf("camera is required")
	}
	if c.Listen == "" {
		return fmt.Errorf("listen address is required")
	}
	if c.FPS <= 0 {
		return fmt.Errorf("fps must be positive")
	}
	if c.PluginTimeout <= 0 {
		return fmt.Errorf("plugin timeout must be positive")
	}
	if c.Plugin == "" {
		return fmt.Errorf("plugin is required")
	}
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("log level: %w", err)
	}
	if err := c.Detector().Validate(); err != nil {
		return err
	}

	if c.DataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("data-dir is required: %w", err)
		}
		c.DataDir = filepath.Join(home, dataDirName)
	}
	if c.PluginDir == "" {
		c.PluginDir = filepath.Join(c.DataDir, "plugins")
	}
	return nil
}

// Detector returns the hand detector settings.
func (c Config) Detector() detector.Config {
	return detector.Config{
		StaticImageMode:     c.StaticImageMode,
		MaxHands:            c.MaxHands,
		DetectionConfidence: c.DetectionConfidence,
		TrackingConfidence:  c.TrackingConfidence,
	}
}

// DBPath is the SQLite database inside DataDir.
func (c Config) DBPath() string {
	return filepath.Join(c.DataDir, dbFile)
}

// setter applies a value only when the matching flag was not set on the command line.
type setter struct {
	changed map[string]bool
}

func newSetter(changed map[string]bool) *setter {
	return &setter{changed: changed}
}

func (s *setter) skip(flag string) bool {
	return s.changed[flag]
}

func (s *setter) str(flag, value string, dst *string) {
	if value == "" || s.skip(flag) {
		return
	}
	*dst = value
}

func (s *setter) positiveInt(flag string, value int, dst *int) {
	if value <= 0 || s.skip(flag) {
		return
	}
	*dst = value
}

// float takes a pointer so that an explicit zero in the file is honored.
func (s *setter) float(flag string, value *float64, dst *float64) {
	if value == nil || s.skip(flag) {
		return
	}
	*dst = *value
}

func (s *setter) boolean(flag string, value *bool, dst *bool) {
	if value == nil || s.skip(flag) {
		return
	}
	*dst = *value
}

func (s *setter) duration(flag, value string, dst *time.Duration) error {
	if value == "" || s.skip(flag) {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = d
	return nil
}

func (s *setter) intString(flag, value string, dst *int) error {
	if value == "" || s.skip(flag) {
		return nil
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	s.positiveInt(flag, i, dst)
	return nil
}

func (s *setter) floatString(flag, value string, dst *float64) error {
	if value == "" || s.skip(flag) {
		return nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = f
	return nil
}

// boolString accepts anything strconv.ParseBool does.
func (s *setter) boolString(flag, value string, dst *bool) error {
	if value == "" || s.skip(flag) {
		return nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = b
	return nil
}

// Resolve layers the file at path and the environment over cfg, then validates it.
// A missing file is only an error when the config flag was given explicitly.
func Resolve(cfg *Config, path string, changed map[string]bool) error {
	if path != "" {
		switch {
		case FileExists(path):
			fc, err := LoadFileConfig(path)
			if err != nil {
				return fmt.Errorf("load config %s: %w", path, err)
			}
			if err := ApplyFileConfig(cfg, fc, changed); err != nil {
				return err
			}
		case changed["config"]:
			return fmt.Errorf("config file %s not found", path)
		}
	}
	if err := ApplyEnvConfig(cfg, changed); err != nil {
		return err
	}
	return cfg.Validate()
}
