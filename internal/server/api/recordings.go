package api

import (
	"net/http"
	"strings"

	"github.com/pkg/errors"

	"github.com/ayusman/handmirror/internal/store"
)

// RecordingHandler handles HTTP requests for recorded frame sequences.
type RecordingHandler struct {
	store *store.Store
}

// NewRecordingHandler creates a new RecordingHandler with the given store.
func NewRecordingHandler(s *store.Store) *RecordingHandler {
	return &RecordingHandler{store: s}
}

// ServeHTTP routes /api/recordings and /api/recordings/{id}.
func (h *RecordingHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/recordings")
	path = strings.TrimPrefix(path, "/")

	if path == "" {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.list(w, r)
		return
	}

	switch r.Method {
	case http.MethodGet:
		h.get(w, r, path)
	case http.MethodDelete:
		h.delete(w, r, path)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

type listRecordingsResponse struct {
	Recordings []*store.Recording `json:"recordings"`
}

type recordingResponse struct {
	*store.Recording
	FrameData []store.Frame `json:"frame_data,omitempty"`
}

func (h *RecordingHandler) list(w http.ResponseWriter, r *http.Request) {
	recordings, err := h.store.Recordings().List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list recordings")
		return
	}
	if recordings == nil {
		recordings = []*store.Recording{}
	}
	writeJSON(w, http.StatusOK, listRecordingsResponse{Recordings: recordings})
}

// get handles GET /api/recordings/{id}. Frames are included with ?frames=true.
func (h *RecordingHandler) get(w http.ResponseWriter, r *http.Request, id string) {
	rec, err := h.store.Recordings().GetByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Recording not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get recording")
		return
	}

	response := recordingResponse{Recording: rec}
	if r.URL.Query().Get("frames") == "true" {
		frames, err := h.store.Frames().List(id)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to list frames")
			return
		}
		response.FrameData = frames
	}

	writeJSON(w, http.StatusOK, response)
}

func (h *RecordingHandler) delete(w http.ResponseWriter, r *http.Request, id string) {
	if err := h.store.Recordings().Delete(id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Recording not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to delete recording")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
