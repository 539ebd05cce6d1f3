package http

import (
	"encoding/json"
	"net/http"

	authmw "github.com/linguagate/linguagate/internal/auth/middleware"
	"github.com/linguagate/linguagate/internal/session"
)

// Session routes act on the caller's own session; the user context comes
// from the validated JWT subject.

func StartSessionHandler(eng *session.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ExamSetID int `json:"exam_set_id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		if req.ExamSetID <= 0 {
			http.Error(w, "exam_set_id required", http.StatusBadRequest)
			return
		}
		v, err := eng.Start(r.Context(), authmw.SubjectFromContext(r.Context()), req.ExamSetID)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, v)
	}
}

func SelectAnswerHandler(eng *session.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			QuestionID  string `json:"question_id"`
			OptionIndex int    `json:"option_index"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		if req.QuestionID == "" {
			http.Error(w, "question_id required", http.StatusBadRequest)
			return
		}
		v, err := eng.SelectAnswer(r.Context(), authmw.SubjectFromContext(r.Context()), req.QuestionID, req.OptionIndex)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, v)
	}
}

func AdvanceHandler(eng *session.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v, err := eng.Advance(r.Context(), authmw.SubjectFromContext(r.Context()))
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, v)
	}
}

func RetreatHandler(eng *session.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v, err := eng.Retreat(r.Context(), authmw.SubjectFromContext(r.Context()))
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, v)
	}
}

func MarkMediaPlayedHandler(eng *session.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			QuestionID string `json:"question_id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		v, err := eng.MarkMediaPlayed(r.Context(), authmw.SubjectFromContext(r.Context()), req.QuestionID)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, v)
	}
}

// FinishSessionHandler is the emergency stop: completes immediately with
// whatever answers exist.
func FinishSessionHandler(eng *session.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v, err := eng.ForceComplete(r.Context(), authmw.SubjectFromContext(r.Context()))
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, v)
	}
}

func ResetSessionHandler(eng *session.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		eng.Reset(authmw.SubjectFromContext(r.Context()))
		writeJSON(w, session.View{Status: session.StatusIdle})
	}
}

func GetSessionHandler(eng *session.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v, err := eng.View(authmw.SubjectFromContext(r.Context()))
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, v)
	}
}

func GetSessionResultHandler(eng *session.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, err := eng.Result(authmw.SubjectFromContext(r.Context()))
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, res)
	}
}
