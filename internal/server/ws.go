package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/ayusman/pinchvol/internal/app"
	"github.com/ayusman/pinchvol/internal/server/api"
	"github.com/ayusman/pinchvol/internal/stream"
)

const writeWait = 2 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

// stateMessage is sent to clients once per published reading.
type stateMessage struct {
	Reading   app.Reading `json:"reading"`
	Enabled   bool        `json:"enabled"`
	Timestamp int64       `json:"timestamp"`
}

// controlMessage is accepted from clients.
type controlMessage struct {
	Enabled *bool `json:"enabled"`
}

// StateHandler streams readings to websocket clients and accepts {"enabled": bool} toggles.
type StateHandler struct {
	readings *stream.Hub[app.Reading]
	toggle   api.Toggle
	logger   zerolog.Logger
}

// NewStateHandler creates a new StateHandler.
func NewStateHandler(readings *stream.Hub[app.Reading], toggle api.Toggle, logger zerolog.Logger) *StateHandler {
	return &StateHandler{readings: readings, toggle: toggle, logger: logger}
}

// ServeHTTP handles WebSocket upgrade requests.
func (h *StateHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	readings, cancel := h.readings.Subscribe()
	defer cancel()

	// The reader ends on client close and stops the writer below.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var msg controlMessage
			if err := json.Unmarshal(data, &msg); err != nil || msg.Enabled == nil {
				continue
			}
			h.toggle.SetEnabled(*msg.Enabled)
		}
	}()

	for {
		select {
		case <-closed:
			return
		case reading, ok := <-readings:
			if !ok {
				conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"),
					time.Now().Add(writeWait))
				return
			}
			msg := stateMessage{
				Reading:   reading,
				Enabled:   h.toggle.IsEnabled(),
				Timestamp: time.Now().UnixMilli(),
			}
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(msg); err != nil {
				return
			}
		}
	}
}
