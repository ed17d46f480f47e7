package api

import (
	"net/http"

	"github.com/ayusman/handmirror/internal/session"
)

// Snapshotter returns the current tracking state.
type Snapshotter interface {
	Snapshot() session.Snapshot
}

// StateHandler serves GET /api/state.
type StateHandler struct {
	source Snapshotter
}

// NewStateHandler creates a StateHandler reading from source.
func NewStateHandler(source Snapshotter) *StateHandler {
	return &StateHandler{source: source}
}

func (h *StateHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, h.source.Snapshot())
}
