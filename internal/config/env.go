package config

import "os"

// EnvPrefix prefixes every environment variable the binary reads.
const EnvPrefix = "PINCHVOL_"

// ApplyEnvConfig reads PINCHVOL_* variables into cfg, skipping keys whose flag is in changed.
func ApplyEnvConfig(cfg *Config, changed map[string]bool) error {
	s := newSetter(changed)
	env := func(name string) string { return os.Getenv(EnvPrefix + name) }

	s.str("camera", env("CAMERA"), &cfg.Camera)
	s.str("listen", env("LISTEN"), &cfg.Listen)
	s.str("data-dir", env("DATA_DIR"), &cfg.DataDir)
	s.str("static-dir", env("STATIC_DIR"), &cfg.StaticDir)
	s.str("log-level", env("LOG_LEVEL"), &cfg.LogLevel)
	s.str("plugin-dir", env("PLUGIN_DIR"), &cfg.PluginDir)
	s.str("plugin", env("PLUGIN"), &cfg.Plugin)

	if err := s.intString("fps", env("FPS"), &cfg.FPS); err != nil {
		return err
	}
	if err := s.intString("max-hands", env("MAX_HANDS"), &cfg.MaxHands); err != nil {
		return err
	}
	if err := s.duration("plugin-timeout", env("PLUGIN_TIMEOUT"), &cfg.PluginTimeout); err != nil {
		return err
	}
	if err := s.floatString("detection-confidence", env("DETECTION_CONFIDENCE"), &cfg.DetectionConfidence); err != nil {
		return err
	}
	if err := s.floatString("tracking-confidence", env("TRACKING_CONFIDENCE"), &cfg.TrackingConfidence); err != nil {
		return err
	}

	bools := []struct {
		flag, name string
		dst        *bool
	}{
		{"enabled", "ENABLED", &cfg.Enabled},
		{"skeleton", "SKELETON", &cfg.Skeleton},
		{"tray", "TRAY", &cfg.Tray},
		{"static-image-mode", "STATIC_IMAGE_MODE", &cfg.StaticImageMode},
	}
	for _, b := range bools {
		if err := s.boolString(b.flag, env(b.name), b.dst); err != nil {
			return err
		}
	}
	return nil
}
