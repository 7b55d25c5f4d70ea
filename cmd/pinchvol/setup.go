package main

import (
	"errors"
	"fmt"
	"net"
	"os/exec"
	"runtime"

	"github.com/rs/zerolog"

	"github.com/ayusman/pinchvol/internal/app"
	"github.com/ayusman/pinchvol/internal/gesture"
	"github.com/ayusman/pinchvol/internal/store"
)

// mappingStore is the part of store.MappingRepository used at startup.
type mappingStore interface {
	Seed(name string, m gesture.Mapping) error
	Put(m *store.Mapping) error
	List() ([]*store.Mapping, error)
}

// loadMappings seeds the store with defaults and returns the stored mappings laid over them.
// Rows with unknown names are ignored.
func loadMappings(repo mappingStore, defaults app.Mappings) (app.Mappings, error) {
	for name, m := range defaults.ByName() {
		if err := repo.Seed(name, m); err != nil {
			return defaults, fmt.Errorf("seed mapping %s: %w", name, err)
		}
	}

	rows, err := repo.List()
	if err != nil {
		return defaults, fmt.Errorf("list mappings: %w", err)
	}

	out := defaults
	for _, row := range rows {
		next, err := out.With(row.Name, row.Mapping)
		if err != nil {
			continue
		}
		out = next
	}
	return out, nil
}

// resetMappings overwrites the stored mappings with m.
func resetMappings(repo mappingStore, m app.Mappings) error {
	for _, name := range app.MappingNames {
		row := &store.Mapping{Name: name, Mapping: m.ByName()[name]}
		if err := repo.Put(row); err != nil {
			return fmt.Errorf("reset mapping %s: %w", name, err)
		}
	}
	return nil
}

// newApp builds the App from the stored mappings. Stored mappings that no longer fit the
// sink, for example after switching audio plugins, are replaced by the defaults.
func newApp(cfg app.Config, repo mappingStore, log zerolog.Logger) (*app.App, error) {
	defaults := app.DefaultMappings(cfg.Sink.Range())

	mappings, err := loadMappings(repo, defaults)
	if err != nil {
		return nil, err
	}
	cfg.Mappings = &mappings

	a, err := app.New(cfg)
	if !errors.Is(err, gesture.ErrInvalidMapping) {
		return a, err
	}

	log.Warn().Err(err).Msg("stored mappings do not fit the audio device, restoring defaults")
	if err := resetMappings(repo, defaults); err != nil {
		return nil, err
	}
	cfg.Mappings = &defaults
	return app.New(cfg)
}

// viewerURL turns a listen address into a browsable URL.
func viewerURL(listen string) string {
	host, port, err := net.SplitHostPort(listen)
	if err != nil {
		return "http://" + listen + "/"
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "localhost"
	}
	return "http://" + net.JoinHostPort(host, port) + "/"
}

func openBrowser(url string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	return cmd.Start()
}
