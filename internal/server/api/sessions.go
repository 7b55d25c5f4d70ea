package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/ayusman/pinchvol/internal/store"
)

// DefaultSessionLimit caps GET /api/sessions without a limit parameter.
const DefaultSessionLimit = 50

// SessionsHandler serves /api/sessions and /api/sessions/{id}.
type SessionsHandler struct {
	store *store.Store
}

// NewSessionsHandler creates a SessionsHandler.
func NewSessionsHandler(s *store.Store) *SessionsHandler {
	return &SessionsHandler{store: s}
}

type listSessionsResponse struct {
	Sessions []*store.Session `json:"sessions"`
}

func (h *SessionsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if id := itemPath(r, "/api/sessions"); id != "" {
		h.get(w, id)
		return
	}
	h.list(w, r)
}

func (h *SessionsHandler) list(w http.ResponseWriter, r *http.Request) {
	limit := DefaultSessionLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	sessions, err := h.store.Sessions().List(limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list sessions")
		return
	}
	if sessions == nil {
		sessions = []*store.Session{}
	}
	writeJSON(w, http.StatusOK, listSessionsResponse{Sessions: sessions})
}

func (h *SessionsHandler) get(w http.ResponseWriter, id string) {
	s, err := h.store.Sessions().Get(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Session not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get session")
		return
	}
	writeJSON(w, http.StatusOK, s)
}
