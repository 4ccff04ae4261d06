package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/justestif/go-tuttitracks/internal/features"
	"github.com/justestif/go-tuttitracks/internal/library"
	"github.com/justestif/go-tuttitracks/internal/playlists"
)

// errorResponse is the body of every failed API call.
type errorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Success: false, Message: message})
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, playlists.ErrNotFound),
		errors.Is(err, library.ErrTrackNotFound),
		errors.Is(err, features.ErrNoFeatures):
		return http.StatusNotFound
	case errors.Is(err, playlists.ErrInvalidIndex),
		errors.Is(err, playlists.ErrInvalidInput),
		errors.Is(err, playlists.ErrTrackMissing):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// fail logs err and writes it with the mapped status. Server-side failures
// get message instead of the raw error.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, message string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error(message, "err", err, "path", r.URL.Path)
		writeError(w, status, message)
		return
	}
	writeError(w, status, err.Error())
}

// decodeJSON reads a JSON request body into v.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: malformed JSON body: %v", playlists.ErrInvalidInput, err)
	}
	return nil
}

// playlistID parses the {playlistID} URL parameter.
func playlistID(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "playlistID")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: bad playlist id %q", playlists.ErrInvalidInput, raw)
	}
	return id, nil
}

// queryInt returns the integer query parameter name, or def if it is absent.
func queryInt(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: bad %s %q", playlists.ErrInvalidInput, name, raw)
	}
	return n, nil
}
