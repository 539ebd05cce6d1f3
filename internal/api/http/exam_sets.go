package http

import (
	"net/http"

	authmw "github.com/linguagate/linguagate/internal/auth/middleware"
	"github.com/linguagate/linguagate/internal/catalog"
	"github.com/linguagate/linguagate/internal/progress"
)

// ListExamSetsHandler returns the catalog's exam sets with the IsActive
// flag derived for the caller from their completion history.
func ListExamSetsHandler(cache *catalog.Cache, gate *progress.Gate) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap, err := cache.Snapshot(r.Context())
		if err != nil {
			writeErr(w, err)
			return
		}
		sets, err := gate.ApplyActive(r.Context(), authmw.SubjectFromContext(r.Context()), snap.ExamSets)
		if err != nil {
			writeErr(w, err)
			return
		}
		if sets == nil {
			sets = []catalog.ExamSet{}
		}
		writeJSON(w, sets)
	}
}
