package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/ayusman/pinchvol/internal/app"
	"github.com/ayusman/pinchvol/internal/gesture"
	"github.com/ayusman/pinchvol/internal/store"
)

// MappingsHandler serves /api/mappings and /api/mappings/{name}.
// Changes apply to the running pipeline and, when a store is set, are persisted.
type MappingsHandler struct {
	target MappingTarget
	store  *store.Store
	logger zerolog.Logger
}

// NewMappingsHandler creates a MappingsHandler. s may be nil.
func NewMappingsHandler(target MappingTarget, s *store.Store, logger zerolog.Logger) *MappingsHandler {
	return &MappingsHandler{target: target, store: s, logger: logger}
}

type mappingResponse struct {
	Name string `json:"name"`
	gesture.Mapping
}

type listMappingsResponse struct {
	Mappings []mappingResponse `json:"mappings"`
}

func (h *MappingsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	name := itemPath(r, "/api/mappings")

	if name == "" {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.list(w)
		return
	}

	switch r.Method {
	case http.MethodGet:
		h.get(w, name)
	case http.MethodPut:
		h.update(w, r, name)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *MappingsHandler) list(w http.ResponseWriter) {
	byName := h.target.Mappings().ByName()

	response := listMappingsResponse{Mappings: make([]mappingResponse, 0, len(app.MappingNames))}
	for _, name := range app.MappingNames {
		response.Mappings = append(response.Mappings, mappingResponse{Name: name, Mapping: byName[name]})
	}
	writeJSON(w, http.StatusOK, response)
}

func (h *MappingsHandler) get(w http.ResponseWriter, name string) {
	m, ok := h.target.Mappings().ByName()[name]
	if !ok {
		writeError(w, http.StatusNotFound, "Mapping not found")
		return
	}
	writeJSON(w, http.StatusOK, mappingResponse{Name: name, Mapping: m})
}

func (h *MappingsHandler) update(w http.ResponseWriter, r *http.Request, name string) {
	if _, ok := h.target.Mappings().ByName()[name]; !ok {
		writeError(w, http.StatusNotFound, "Mapping not found")
		return
	}

	var m gesture.Mapping
	if err := json.NewDecoder(r.Body).Decode(&m); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if _, err := h.target.UpdateMapping(name, m); err != nil {
		if errors.Is(err, gesture.ErrInvalidMapping) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to apply mapping")
		return
	}

	if h.store != nil {
		if err := h.store.Mappings().Put(&store.Mapping{Name: name, Mapping: m}); err != nil {
			h.logger.Error().Err(err).Str("mapping", name).Msg("mapping applied but not saved")
			writeError(w, http.StatusInternalServerError, "Failed to save mapping")
			return
		}
	}

	h.logger.Info().Str("mapping", name).Msg("mapping updated")
	writeJSON(w, http.StatusOK, mappingResponse{Name: name, Mapping: m})
}
