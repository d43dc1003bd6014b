package server

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"trackanalyzer/gateway"
)

// CreateTrackRequest is the new-track request body.
type CreateTrackRequest struct {
	Name     string `json:"name"`
	Location string `json:"location"`
}

// GetTracksHandler returns the team's tracks, newest first. Pass ?sort=name
// for alphabetical order.
func (h *APIHandler) GetTracksHandler(w http.ResponseWriter, r *http.Request) {
	ident := IdentityFromContext(r.Context())

	tracks := h.gw.ListTracks(r.Context(), ident)
	if r.URL.Query().Get("sort") == "name" {
		gateway.SortTracksByName(tracks)
	}

	writeJSON(w, http.StatusOK, tracks)
}

// CreateTrackHandler creates a track attributed to the caller.
func (h *APIHandler) CreateTrackHandler(w http.ResponseWriter, r *http.Request) {
	ident := IdentityFromContext(r.Context())

	var req CreateTrackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Name == "" {
		http.Error(w, "Track name is required", http.StatusBadRequest)
		return
	}

	track := h.gw.CreateTrack(r.Context(), ident, req.Name, req.Location)
	if track == nil {
		http.Error(w, "Failed to create track", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, track)
}

// DeleteTrackHandler deletes a track together with its readings and photos.
func (h *APIHandler) DeleteTrackHandler(w http.ResponseWriter, r *http.Request) {
	ident := IdentityFromContext(r.Context())
	trackID := mux.Vars(r)["id"]

	if !h.gw.DeleteTrack(r.Context(), ident, trackID) {
		http.Error(w, "Track not found", http.StatusNotFound)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
