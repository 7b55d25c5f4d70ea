package api

import (
	"encoding/json"
	"net/http"
)

// ControlHandler serves /api/control: GET reports and PUT sets whether gesture control
// drives the audio sink.
type ControlHandler struct {
	toggle Toggle
}

// NewControlHandler creates a ControlHandler.
func NewControlHandler(t Toggle) *ControlHandler {
	return &ControlHandler{toggle: t}
}

type controlState struct {
	Enabled *bool `json:"enabled"`
}

func (h *ControlHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
	case http.MethodPut:
		var req controlState
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Enabled == nil {
			writeError(w, http.StatusBadRequest, "Body must be {\"enabled\": bool}")
			return
		}
		h.toggle.SetEnabled(*req.Enabled)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	enabled := h.toggle.IsEnabled()
	writeJSON(w, http.StatusOK, controlState{Enabled: &enabled})
}
