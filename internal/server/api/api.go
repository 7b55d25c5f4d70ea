// Package api provides the JSON HTTP handlers of the pinchvol server.
package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/ayusman/pinchvol/internal/app"
	"github.com/ayusman/pinchvol/internal/gesture"
)

// MappingTarget is the live pipeline whose mappings the API edits.
type MappingTarget interface {
	Mappings() app.Mappings
	UpdateMapping(name string, m gesture.Mapping) (app.Mappings, error)
}

// Toggle switches gesture control on and off.
type Toggle interface {
	IsEnabled() bool
	SetEnabled(bool)
}

type errorResponse struct {
	Error string `json:"error"`
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// itemPath returns the path segment after prefix, so "/api/mappings/bar" yields "bar".
func itemPath(r *http.Request, prefix string) string {
	path := strings.TrimPrefix(r.URL.Path, prefix)
	return strings.Trim(path, "/")
}
