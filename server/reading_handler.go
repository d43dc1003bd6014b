package server

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"trackanalyzer/logger"
	"trackanalyzer/model"
	"trackanalyzer/repository"
)

// GetReadingsHandler returns a track's readings, newest first. Supports
// ?year=2024 to filter remote-side and ?groupBy=day for per-day buckets.
func (h *APIHandler) GetReadingsHandler(w http.ResponseWriter, r *http.Request) {
	ident := IdentityFromContext(r.Context())
	trackID := mux.Vars(r)["id"]

	var year *int
	if yearStr := r.URL.Query().Get("year"); yearStr != "" {
		y, err := strconv.Atoi(yearStr)
		if err != nil {
			http.Error(w, "Invalid year", http.StatusBadRequest)
			return
		}
		year = &y
	}

	if r.URL.Query().Get("groupBy") == "day" {
		writeJSON(w, http.StatusOK, h.gw.ListReadingsByDay(r.Context(), ident, trackID, year))
		return
	}

	writeJSON(w, http.StatusOK, h.gw.ListReadings(r.Context(), ident, trackID, year))
}

// CreateReadingHandler records a new reading against a track.
func (h *APIHandler) CreateReadingHandler(w http.ResponseWriter, r *http.Request) {
	ident := IdentityFromContext(r.Context())
	trackID := mux.Vars(r)["id"]

	var reading model.Reading
	if err := json.NewDecoder(r.Body).Decode(&reading); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	reading.TrackID = trackID
	if reading.Timestamp == 0 {
		http.Error(w, "Reading timestamp is required", http.StatusBadRequest)
		return
	}

	created := h.gw.CreateReading(r.Context(), ident, reading)
	if created == nil {
		http.Error(w, "Failed to create reading", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, created)
}

// GetReadingHandler returns one reading with its photo URLs resolved.
func (h *APIHandler) GetReadingHandler(w http.ResponseWriter, r *http.Request) {
	ident := IdentityFromContext(r.Context())
	readingID := mux.Vars(r)["id"]

	reading := h.gw.GetReading(r.Context(), ident, readingID)
	if reading == nil {
		http.Error(w, "Reading not found", http.StatusNotFound)
		return
	}

	left, right := h.gw.PhotoURLs(r.Context(), reading, h.cfg.SignedURLDetailExpiry)

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"reading":       reading,
		"leftPhotoUrl":  left,
		"rightPhotoUrl": right,
	})
}

// UpdateReadingHandler applies a sparse patch to a reading. Fields omitted
// from the body are left unchanged; fields sent as null are cleared.
func (h *APIHandler) UpdateReadingHandler(w http.ResponseWriter, r *http.Request) {
	ident := IdentityFromContext(r.Context())
	readingID := mux.Vars(r)["id"]

	var patch model.ReadingPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	updated := h.gw.UpdateReading(r.Context(), ident, readingID, &patch)
	if updated == nil {
		http.Error(w, "Reading not found", http.StatusNotFound)
		return
	}

	writeJSON(w, http.StatusOK, updated)
}

// DeleteReadingHandler deletes a reading and its photo objects.
func (h *APIHandler) DeleteReadingHandler(w http.ResponseWriter, r *http.Request) {
	ident := IdentityFromContext(r.Context())
	readingID := mux.Vars(r)["id"]

	if !h.gw.DeleteReading(r.Context(), ident, readingID) {
		http.Error(w, "Reading not found", http.StatusNotFound)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// UploadPhotoHandler stores a lane photo for a reading.
// Expected multipart form field: photo.
func (h *APIHandler) UploadPhotoHandler(w http.ResponseWriter, r *http.Request) {
	ident := IdentityFromContext(r.Context())
	vars := mux.Vars(r)
	readingID := vars["id"]
	lane := vars["lane"]

	if lane != repository.LaneLeft && lane != repository.LaneRight {
		http.Error(w, "Lane must be left or right", http.StatusBadRequest)
		return
	}

	const maxPhotoSize = 10 << 20 // 10MB
	if err := r.ParseMultipartForm(maxPhotoSize); err != nil {
		http.Error(w, "Failed to parse form", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("photo")
	if err != nil {
		http.Error(w, "Missing 'photo' in form", http.StatusBadRequest)
		return
	}
	defer file.Close()

	if header.Size > maxPhotoSize {
		http.Error(w, "File too large", http.StatusBadRequest)
		return
	}

	path := h.gw.UploadPhoto(r.Context(), ident, readingID, lane, header.Filename, file, header.Size)
	if path == "" {
		http.Error(w, "Failed to store photo", http.StatusInternalServerError)
		return
	}

	logger.Info("Lane photo uploaded",
		logger.String("readingId", readingID),
		logger.String("lane", lane),
		logger.String("path", path),
	)

	writeJSON(w, http.StatusCreated, map[string]string{"path": path})
}

// SignedURLHandler issues a fresh signed URL for a stored photo path.
// Pass ?detail=true for the long-lived detail-screen expiry.
func (h *APIHandler) SignedURLHandler(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	if path == "" {
		http.Error(w, "Query parameter 'path' is required", http.StatusBadRequest)
		return
	}

	expiry := h.cfg.SignedURLDefaultExpiry
	if r.URL.Query().Get("detail") == "true" {
		expiry = h.cfg.SignedURLDetailExpiry
	}

	url := h.gw.SignedURL(r.Context(), path, expiry)
	if url == "" {
		http.Error(w, "Failed to sign URL", http.StatusNotFound)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"url": url})
}
