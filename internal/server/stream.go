package server

import (
	"net/http"

	"github.com/rs/zerolog"

	"github.com/ayusman/pinchvol/internal/stream"
)

// StreamHandler serves the pipeline's JPEG frames as an MJPEG stream.
type StreamHandler struct {
	frames *stream.Hub[[]byte]
	logger zerolog.Logger
}

// NewStreamHandler creates a new StreamHandler over the given frame hub.
func NewStreamHandler(frames *stream.Hub[[]byte], logger zerolog.Logger) *StreamHandler {
	return &StreamHandler{frames: frames, logger: logger}
}

// ServeHTTP writes one part per published frame until the client goes away or the hub closes.
func (h *StreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	frames, cancel := h.frames.Subscribe()
	defer cancel()

	w.Header().Set("Content-Type", stream.ContentType)
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	flusher, _ := w.(http.Flusher)
	if flusher != nil {
		flusher.Flush()
	}

	h.logger.Debug().Str("remote", r.RemoteAddr).Msg("video client connected")
	defer h.logger.Debug().Str("remote", r.RemoteAddr).Msg("video client disconnected")

	for {
		select {
		case <-r.Context().Done():
			return
		case jpeg, ok := <-frames:
			if !ok {
				return
			}
			if err := stream.WritePart(w, jpeg); err != nil {
				return
			}
			if flusher != nil {
				flusher.Flush()
			}
		}
	}
}
