package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/linguagate/linguagate/internal/catalog"
	"github.com/linguagate/linguagate/internal/session"
)

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

// writeErr maps engine failures to HTTP statuses. Navigation clamps never
// reach here; they return the unchanged view instead.
func writeErr(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, session.ErrExamLocked):
		http.Error(w, "exam set locked: complete the previous set first", http.StatusConflict)
	case errors.Is(err, catalog.ErrExamSetNotFound):
		http.Error(w, "exam set not found", http.StatusNotFound)
	case errors.Is(err, catalog.ErrUnavailable):
		http.Error(w, "exam catalog unavailable", http.StatusServiceUnavailable)
	case errors.Is(err, session.ErrNoSession), errors.Is(err, session.ErrNotRunning):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, session.ErrResultUnavailable):
		http.Error(w, "result not available until the session completes", http.StatusConflict)
	case errors.Is(err, session.ErrUnknownQuestion):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
