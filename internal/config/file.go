package config

import (
	"os"
	"path/filepath"

	toml "github.com/pelletier/go-toml/v2"
)

// FileConfig is the TOML layout of config.toml. Durations are strings and optional
// booleans and floats are pointers so that an absent key leaves the default alone.
type FileConfig struct {
	Camera    string `toml:"camera"`
	FPS       int    `toml:"fps"`
	Listen    string `toml:"listen"`
	DataDir   string `toml:"data_dir"`
	StaticDir string `toml:"static_dir"`
	LogLevel  string `toml:"log_level"`
	Enabled   *bool  `toml:"enabled"`
	Tray      *bool  `toml:"tray"`

	Plugin   PluginSection   `toml:"plugin"`
	Detector DetectorSection `toml:"detector"`
	Overlay  OverlaySection  `toml:"overlay"`
}

// PluginSection configures the audio control plugin.
type PluginSection struct {
	Dir     string `toml:"dir"`
	Name    string `toml:"name"`
	Timeout string `toml:"timeout"`
}

// DetectorSection configures the hand landmark service.
type DetectorSection struct {
	MaxHands            int      `toml:"max_hands"`
	DetectionConfidence *float64 `toml:"detection_confidence"`
	TrackingConfidence  *float64 `toml:"tracking_confidence"`
	StaticImageMode     *bool    `toml:"static_image_mode"`
}

type OverlaySection struct {
	Skeleton *bool `toml:"skeleton"`
}

// LoadFileConfig reads and parses a TOML config file.
func LoadFileConfig(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	if err := toml.Unmarshal(b, &fc); err != nil {
		return fc, err
	}
	return fc, nil
}

// DefaultConfigPath returns ~/.pinchvol/config.toml, or "" if there is no home directory.
func DefaultConfigPath() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, dataDirName, "config.toml")
	}
	return ""
}

// ApplyFileConfig copies file values into cfg, skipping keys whose flag is in changed.
func ApplyFileConfig(cfg *Config, fc FileConfig, changed map[string]bool) error {
	s := newSetter(changed)

	s.str("camera", fc.Camera, &cfg.Camera)
	s.positiveInt("fps", fc.FPS, &cfg.FPS)
	s.str("listen", fc.Listen, &cfg.Listen)
	s.str("data-dir", fc.DataDir, &cfg.DataDir)
	s.str("static-dir", fc.StaticDir, &cfg.StaticDir)
	s.str("log-level", fc.LogLevel, &cfg.LogLevel)
	s.boolean("enabled", fc.Enabled, &cfg.Enabled)
	s.boolean("tray", fc.Tray, &cfg.Tray)

	s.str("plugin-dir", fc.Plugin.Dir, &cfg.PluginDir)
	s.str("plugin", fc.Plugin.Name, &cfg.Plugin)
	if err := s.duration("plugin-timeout", fc.Plugin.Timeout, &cfg.PluginTimeout); err != nil {
		return err
	}

	s.positiveInt("max-hands", fc.Detector.MaxHands, &cfg.MaxHands)
	s.float("detection-confidence", fc.Detector.DetectionConfidence, &cfg.DetectionConfidence)
	s.float("tracking-confidence", fc.Detector.TrackingConfidence, &cfg.TrackingConfidence)
	s.boolean("static-image-mode", fc.Detector.StaticImageMode, &cfg.StaticImageMode)

	s.boolean("skeleton", fc.Overlay.Skeleton, &cfg.Skeleton)
	return nil
}

// FileExists reports whether p exists.
func FileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}
