package scoring

import "github.com/linguagate/linguagate/internal/catalog"

// Result is the outcome of a completed session. Derived once, never mutated.
type Result struct {
	ExamSetID       int           `json:"exam_set_id"`
	Score           int           `json:"score"`
	Level           catalog.Level `json:"level"`
	CorrectCount    int           `json:"correct_count"`
	IncorrectCount  int           `json:"incorrect_count"`
	UnansweredCount int           `json:"unanswered_count"`
}

// Score grades recorded answers against the questions of one exam set.
// Pure: same answers and questions always yield the same Result. Unanswered
// questions count against the score but are never an error.
func Score(examSetID int, answers map[string]int, questions []catalog.Question) Result {
	return ScoreWith(ScaleFor(DefaultScaleKey), examSetID, answers, questions)
}

// ScoreWith grades with an explicit scale calibration.
func ScoreWith(scale ScaleMapper, examSetID int, answers map[string]int, questions []catalog.Question) Result {
	res := Result{ExamSetID: examSetID}
	for _, q := range questions {
		if q.ExamSetID != examSetID {
			continue
		}
		sel, ok := answers[q.ID]
		switch {
		case !ok:
			res.UnansweredCount++
		case sel == q.CorrectOption:
			res.CorrectCount++
		default:
			res.IncorrectCount++
		}
	}
	total := res.CorrectCount + res.IncorrectCount + res.UnansweredCount
	res.Score, res.Level = scale.Scale(res.CorrectCount, total)
	return res
}
