// Package server provides the HTTP server of pinchvol: the viewer page, the MJPEG video
// feed, the state websocket and the JSON API.
package server

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"io/fs"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/ayusman/pinchvol/internal/app"
	"github.com/ayusman/pinchvol/internal/server/api"
	"github.com/ayusman/pinchvol/internal/store"
)

//go:embed web
var webFS embed.FS

// shutdownTimeout bounds graceful shutdown in Serve.
const shutdownTimeout = 5 * time.Second

// Config holds the server configuration.
type Config struct {
	// App is the running pipeline. Without it the video, state, mappings and control
	// routes are not registered.
	App *app.App

	// Store enables /api/sessions and persistence of mapping changes.
	Store *store.Store

	// StaticDir, when set, replaces the embedded viewer page.
	StaticDir string

	Logger zerolog.Logger
}

// Server represents the HTTP server.
type Server struct {
	config Config
	mux    *http.ServeMux
	start  time.Time
}

// New creates a new Server with the given configuration.
func New(config Config) *Server {
	s := &Server{
		config: config,
		mux:    http.NewServeMux(),
		start:  time.Now(),
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/api/health", s.handleHealth)

	if a := s.config.App; a != nil {
		s.mux.Handle("/video_feed", NewStreamHandler(a.Frames(), s.config.Logger))
		s.mux.Handle("/api/state", NewStateHandler(a.Readings(), a, s.config.Logger))

		mappings := api.NewMappingsHandler(a, s.config.Store, s.config.Logger)
		s.mux.Handle("/api/mappings", mappings)
		s.mux.Handle("/api/mappings/", mappings)
		s.mux.Handle("/api/control", api.NewControlHandler(a))
	}

	if s.config.Store != nil {
		sessions := api.NewSessionsHandler(s.config.Store)
		s.mux.Handle("/api/sessions", sessions)
		s.mux.Handle("/api/sessions/", sessions)
	}

	if s.config.StaticDir != "" {
		s.mux.Handle("/", http.FileServer(http.Dir(s.config.StaticDir)))
	} else {
		sub, _ := fs.Sub(webFS, "web")
		s.mux.Handle("/", http.FileServer(http.FS(sub)))
	}
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// handleHealth handles GET requests to /api/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	response := map[string]any{
		"status": "ok",
		"uptime": time.Since(s.start).String(),
	}
	if a := s.config.App; a != nil {
		response["enabled"] = a.IsEnabled()
		response["viewers"] = a.Frames().Subscribers()
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
		return
	}
}

// Serve listens on addr until ctx is done, then shuts down gracefully.
// Streaming handlers end when the App's hubs are closed.
func (s *Server) Serve(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.config.Logger.Info().Str("addr", addr).Msg("http server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
