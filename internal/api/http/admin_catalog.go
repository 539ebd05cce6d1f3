package http

import (
	"encoding/json"
	"net/http"

	"github.com/linguagate/linguagate/internal/catalog"
)

// Admin endpoints for authoring content. Writes fire the store's change
// notification, so the cached catalog reloads; in-flight sessions keep the
// snapshot they started with.

func UpsertExamSetHandler(store *catalog.SQLStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var e catalog.ExamSet
		if err := json.NewDecoder(r.Body).Decode(&e); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		if e.ID <= 0 || e.Name == "" {
			http.Error(w, "id and name required", http.StatusBadRequest)
			return
		}
		if err := store.PutExamSet(r.Context(), e); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, e)
	}
}

func UpsertQuestionHandler(store *catalog.SQLStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var q catalog.Question
		if err := json.NewDecoder(r.Body).Decode(&q); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		if q.ID == "" || q.ExamSetID <= 0 {
			http.Error(w, "id and exam_set_id required", http.StatusBadRequest)
			return
		}
		if len(q.Options) < 2 {
			http.Error(w, "at least 2 options required", http.StatusBadRequest)
			return
		}
		if q.CorrectOption < 0 || q.CorrectOption >= len(q.Options) {
			http.Error(w, "correct_option out of range", http.StatusBadRequest)
			return
		}
		switch q.Section {
		case catalog.SectionListening, catalog.SectionGrammar, catalog.SectionReading:
		default:
			http.Error(w, "unknown section", http.StatusBadRequest)
			return
		}
		if err := store.PutQuestion(r.Context(), q); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, q)
	}
}
