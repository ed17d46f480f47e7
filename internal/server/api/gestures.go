// Package api provides HTTP API handlers for the hand mirror tracker.
package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/pkg/errors"

	"github.com/ayusman/handmirror/internal/gesture"
	"github.com/ayusman/handmirror/internal/session"
	"github.com/ayusman/handmirror/internal/tracker"
)

// GestureLibrary is the part of a session the gesture endpoints need.
type GestureLibrary interface {
	Gestures() []string
	StoreGesture(name string) error
	RemoveGesture(name string) bool
	Match(side tracker.Side) gesture.Match
}

// GestureHandler handles HTTP requests for gesture resources.
type GestureHandler struct {
	library GestureLibrary
}

// NewGestureHandler creates a new GestureHandler over the given library.
func NewGestureHandler(l GestureLibrary) *GestureHandler {
	return &GestureHandler{library: l}
}

// ServeHTTP implements the http.Handler interface and routes requests to appropriate methods.
func (h *GestureHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// Expected paths: /api/gestures or /api/gestures/{name}
	path := strings.TrimPrefix(r.URL.Path, "/api/gestures")
	path = strings.TrimPrefix(path, "/")

	if path == "" {
		switch r.Method {
		case http.MethodGet:
			h.list(w, r)
		case http.MethodPost:
			h.create(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
		return
	}

	switch r.Method {
	case http.MethodDelete:
		h.delete(w, r, path)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

type createGestureRequest struct {
	Name string `json:"name"`
}

type listGesturesResponse struct {
	Gestures []string      `json:"gestures"`
	Left     gesture.Match `json:"left"`
	Right    gesture.Match `json:"right"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
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

// list handles GET /api/gestures and returns the stored names in insertion
// order along with each hand's current match.
func (h *GestureHandler) list(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, listGesturesResponse{
		Gestures: h.library.Gestures(),
		Left:     h.library.Match(tracker.Left),
		Right:    h.library.Match(tracker.Right),
	})
}

// create handles POST /api/gestures and stores the left hand's current shape.
func (h *GestureHandler) create(w http.ResponseWriter, r *http.Request) {
	var req createGestureRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	err := h.library.StoreGesture(req.Name)
	switch {
	case errors.Is(err, session.ErrEmptyName):
		writeError(w, http.StatusBadRequest, "Name is required")
		return
	case errors.Is(err, session.ErrNoHand):
		writeError(w, http.StatusConflict, "No left hand is tracked")
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, "Failed to store gesture")
		return
	}

	writeJSON(w, http.StatusCreated, listGesturesResponse{
		Gestures: h.library.Gestures(),
		Left:     h.library.Match(tracker.Left),
		Right:    h.library.Match(tracker.Right),
	})
}

// delete handles DELETE /api/gestures/{name}.
func (h *GestureHandler) delete(w http.ResponseWriter, r *http.Request, name string) {
	if !h.library.RemoveGesture(name) {
		writeError(w, http.StatusNotFound, "Gesture not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
