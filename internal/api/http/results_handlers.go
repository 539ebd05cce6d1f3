package http

import (
	"net/http"

	authmw "github.com/linguagate/linguagate/internal/auth/middleware"
	"github.com/linguagate/linguagate/internal/progress"
)

// ListResultsHandler returns the caller's stored results, one per completed
// exam set (overwrite-latest).
func ListResultsHandler(store progress.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, err := store.ListResults(r.Context(), authmw.SubjectFromContext(r.Context()))
		if err != nil {
			writeErr(w, err)
			return
		}
		if res == nil {
			res = []progress.StoredResult{}
		}
		writeJSON(w, res)
	}
}
