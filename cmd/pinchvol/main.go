package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"runtime/debug"
	"strings"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	pflag "github.com/spf13/pflag"

	"github.com/ayusman/pinchvol/internal/app"
	"github.com/ayusman/pinchvol/internal/audio"
	"github.com/ayusman/pinchvol/internal/capture"
	"github.com/ayusman/pinchvol/internal/config"
	"github.com/ayusman/pinchvol/internal/detector"
	"github.com/ayusman/pinchvol/internal/logging"
	"github.com/ayusman/pinchvol/internal/overlay"
	"github.com/ayusman/pinchvol/internal/server"
	"github.com/ayusman/pinchvol/internal/store"
	"github.com/ayusman/pinchvol/internal/tray"
)

const longHelp = `Control the system volume by pinching your thumb and index finger in front of a camera.

The distance between the two fingertips is mapped onto the audio device's level range.
The annotated camera feed is served as an MJPEG stream, together with a small viewer page,
a websocket of per-frame readings and a JSON API for the range mappings.

Configuration is read from ~/.pinchvol/config.toml, then PINCHVOL_* environment variables,
then flags. Edits to log_level, enabled and [overlay] skeleton apply without a restart.`

var exampleUsage = strings.TrimSpace(`
  pinchvol
  pinchvol --camera 1 --listen :9090 --tray
  pinchvol --camera ./clip.mp4 --no-control --log-level debug
`)

func getVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

func main() {
	cfg := config.DefaultConfig()
	var cfgPath string
	var noControl bool

	root := &cobra.Command{
		Use:           "pinchvol",
		Short:         "Pinch gesture volume control with an MJPEG preview",
		Long:          longHelp,
		Example:       exampleUsage,
		Version:       fmt.Sprintf("%s %s/%s", getVersion(), runtime.GOOS, runtime.GOARCH),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			changed := map[string]bool{}
			cmd.Flags().Visit(func(f *pflag.Flag) { changed[f.Name] = true })

			if changed["no-control"] {
				cfg.Enabled = !noControl
				changed["enabled"] = true
			}

			if cfgPath == "" {
				cfgPath = config.DefaultConfigPath()
			}
			if err := config.Resolve(&cfg, cfgPath, changed); err != nil {
				return err
			}
			return run(cfg, cfgPath, changed)
		},
	}

	f := root.Flags()
	f.StringVar(&cfgPath, "config", "", "path to config.toml (default ~/.pinchvol/config.toml)")
	f.StringVar(&cfg.Camera, "camera", cfg.Camera, "camera index or video file")
	f.IntVar(&cfg.FPS, "fps", cfg.FPS, "frames per second to process")
	f.StringVar(&cfg.Listen, "listen", cfg.Listen, "HTTP listen address")
	f.StringVar(&cfg.DataDir, "data-dir", cfg.DataDir, "directory for the database and plugins (default ~/.pinchvol)")
	f.StringVar(&cfg.StaticDir, "static-dir", cfg.StaticDir, "serve the viewer from this directory instead of the built-in page")
	f.StringVar(&cfg.PluginDir, "plugin-dir", cfg.PluginDir, "plugin directory (default <data-dir>/plugins)")
	f.StringVar(&cfg.Plugin, "plugin", cfg.Plugin, "volume plugin name")
	f.DurationVar(&cfg.PluginTimeout, "plugin-timeout", cfg.PluginTimeout, "timeout for one plugin call")
	f.IntVar(&cfg.MaxHands, "max-hands", cfg.MaxHands, "maximum hands to detect")
	f.Float64Var(&cfg.DetectionConfidence, "detection-confidence", cfg.DetectionConfidence, "minimum hand detection confidence")
	f.Float64Var(&cfg.TrackingConfidence, "tracking-confidence", cfg.TrackingConfidence, "minimum hand tracking confidence")
	f.BoolVar(&cfg.StaticImageMode, "static-image-mode", cfg.StaticImageMode, "detect on every frame without tracking")
	f.BoolVar(&noControl, "no-control", false, "start with volume control paused")
	f.BoolVar(&cfg.Skeleton, "skeleton", cfg.Skeleton, "draw the hand skeleton")
	f.BoolVar(&cfg.Tray, "tray", cfg.Tray, "show a system tray icon")
	f.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level (trace, debug, info, warn, error)")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "pinchvol:", err)
		os.Exit(1)
	}
}

// run acquires every resource once, runs the pipeline and the HTTP server, and releases the
// resources in reverse order on the way out.
func run(cfg config.Config, cfgPath string, changed map[string]bool) error {
	log, err := logging.New(os.Stderr, cfg.LogLevel)
	if err != nil {
		return err
	}
	log.Info().Interface("config", cfg).Msg("configuration")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}
	st, err := store.New(cfg.DBPath())
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	sink, err := audio.Open(ctx, audio.Config{
		PluginDir: cfg.PluginDir,
		Plugin:    cfg.Plugin,
		Timeout:   cfg.PluginTimeout,
		Logger:    log.With().Str("component", "audio").Logger(),
	})
	if err != nil {
		return err
	}
	defer sink.Close()

	det, err := detector.NewMediaPipeDetector(cfg.Detector(), log.With().Str("component", "detector").Logger())
	if err != nil {
		return fmt.Errorf("create detector: %w", err)
	}
	defer det.Close()

	cam := capture.NewCamera(cfg.Camera)
	cam.SetFPS(cfg.FPS)
	if err := cam.Open(); err != nil {
		return fmt.Errorf("open camera %s: %w", cfg.Camera, err)
	}
	defer cam.Close()

	appLog := log.With().Str("component", "app").Logger()
	appCfg := app.Config{
		Camera:   cam,
		Detector: det,
		Sink:     sink,
		Store:    st,
		Source:   cfg.Camera,
		Overlay:  overlay.Options{Skeleton: cfg.Skeleton},
		Enabled:  cfg.Enabled,
		Logger:   appLog,
	}
	a, err := newApp(appCfg, st.Mappings(), appLog)
	if err != nil {
		return err
	}

	srv := server.New(server.Config{
		App:       a,
		Store:     st,
		StaticDir: cfg.StaticDir,
		Logger:    log.With().Str("component", "server").Logger(),
	})

	if err := a.Start(); err != nil {
		return err
	}

	serverCtx, stopServer := context.WithCancel(context.Background())
	defer stopServer()
	serveErr := make(chan error, 1)
	go func() { serveErr <- srv.Serve(serverCtx, cfg.Listen) }()

	if config.FileExists(cfgPath) {
		w := config.NewWatcher(cfgPath, cfg, changed, func(l config.Live) {
			logging.SetLevel(l.LogLevel)
			a.SetEnabled(l.Enabled)
			a.SetOverlay(overlay.Options{Skeleton: l.Skeleton})
		}, log.With().Str("component", "config").Logger())
		go func() {
			if err := w.Run(ctx); err != nil {
				log.Warn().Err(err).Msg("config watcher stopped")
			}
		}()
	}

	stopped := make(chan error, 1)
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigCh)

		var err error
		select {
		case <-sigCh:
			log.Info().Msg("received signal, stopping")
		case <-a.Done():
			log.Info().Msg("pipeline finished")
		case serr := <-serveErr:
			err = fmt.Errorf("http server: %w", serr)
			serveErr <- nil
		case <-ctx.Done():
		}
		cancel()
		stopped <- err
	}()

	if cfg.Tray {
		t := tray.New(a, a.Readings())
		t.OnOpen(func() {
			if err := openBrowser(viewerURL(cfg.Listen)); err != nil {
				log.Warn().Err(err).Msg("open viewer")
			}
		})
		t.OnQuit(cancel)
		t.Run(ctx)
	}
	exitErr := <-stopped

	return shutdown(a, stopServer, serveErr, exitErr, log)
}

// shutdown stops the pipeline before the server so that streaming handlers see their hubs
// close and return.
func shutdown(a *app.App, stopServer context.CancelFunc, serveErr chan error, exitErr error, log zerolog.Logger) error {
	runErr := a.Stop()
	a.Close()
	stopServer()

	if err := <-serveErr; err != nil && exitErr == nil {
		exitErr = fmt.Errorf("http server: %w", err)
	}
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		log.Error().Err(runErr).Msg("pipeline failed")
		if exitErr == nil {
			exitErr = runErr
		}
	}
	log.Info().Msg("stopped")
	return exitErr
}
