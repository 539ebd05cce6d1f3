package scoring_test

import (
	"fmt"
	"testing"

	"github.com/linguagate/linguagate/internal/catalog"
	"github.com/linguagate/linguagate/internal/scoring"
)

func makeQuestions(examSetID, n int) []catalog.Question {
	qs := make([]catalog.Question, 0, n)
	for i := 0; i < n; i++ {
		qs = append(qs, catalog.Question{
			ID:            fmt.Sprintf("q%d", i+1),
			ExamSetID:     examSetID,
			Section:       catalog.SectionGrammar,
			Text:          fmt.Sprintf("question %d", i+1),
			Options:       []string{"a", "b", "c", "d"},
			CorrectOption: 1,
			Level:         catalog.LevelB1,
		})
	}
	return qs
}

func TestScore_AllCorrectIsC2(t *testing.T) {
	qs := makeQuestions(1, 2)
	answers := map[string]int{"q1": 1, "q2": 1}

	res := scoring.Score(1, answers, qs)
	if res.Score != 699 {
		t.Fatalf("score = %d, want 699", res.Score)
	}
	if res.Level != catalog.LevelC2 {
		t.Fatalf("level = %s, want C2", res.Level)
	}
	if res.CorrectCount != 2 || res.IncorrectCount != 0 || res.UnansweredCount != 0 {
		t.Fatalf("counts = %d/%d/%d, want 2/0/0",
			res.CorrectCount, res.IncorrectCount, res.UnansweredCount)
	}
}

func TestScore_QuarterCorrectIsA1(t *testing.T) {
	qs := makeQuestions(1, 4)
	answers := map[string]int{"q1": 1, "q2": 0, "q3": 0, "q4": 0}

	res := scoring.Score(1, answers, qs)
	if res.Score != 175 {
		t.Fatalf("score = %d, want 175 (25%% of 699 rounded)", res.Score)
	}
	if res.Level != catalog.LevelA1 {
		t.Fatalf("level = %s, want A1", res.Level)
	}
}

func TestScore_UnansweredCountAgainstScore(t *testing.T) {
	qs := makeQuestions(1, 10)
	answers := map[string]int{"q1": 1, "q2": 1, "q3": 1}

	res := scoring.Score(1, answers, qs)
	if res.CorrectCount != 3 || res.IncorrectCount != 0 || res.UnansweredCount != 7 {
		t.Fatalf("counts = %d/%d/%d, want 3/0/7",
			res.CorrectCount, res.IncorrectCount, res.UnansweredCount)
	}
	// 3/10 of 699 rounds to 210.
	if res.Score != 210 {
		t.Fatalf("score = %d, want 210", res.Score)
	}
	if res.Level != catalog.LevelA2 {
		t.Fatalf("level = %s, want A2", res.Level)
	}
}

func TestScore_ZeroQuestions(t *testing.T) {
	res := scoring.Score(1, map[string]int{}, nil)
	if res.Score != 0 || res.Level != catalog.LevelA1 {
		t.Fatalf("got score=%d level=%s, want 0/A1", res.Score, res.Level)
	}
}

func TestScore_IgnoresOtherExamSets(t *testing.T) {
	qs := append(makeQuestions(1, 2), makeQuestions(2, 5)...)
	answers := map[string]int{"q1": 1, "q2": 1}

	res := scoring.Score(1, answers, qs)
	if total := res.CorrectCount + res.IncorrectCount + res.UnansweredCount; total != 2 {
		t.Fatalf("graded %d questions, want 2", total)
	}
}

func TestScore_Deterministic(t *testing.T) {
	qs := makeQuestions(1, 7)
	answers := map[string]int{"q1": 1, "q2": 2, "q4": 1, "q7": 1}

	first := scoring.Score(1, answers, qs)
	for i := 0; i < 10; i++ {
		if got := scoring.Score(1, answers, qs); got != first {
			t.Fatalf("run %d: result %+v differs from first %+v", i, got, first)
		}
	}
}

func TestCEFRScale_Bands(t *testing.T) {
	cases := []struct {
		correct, total int
		wantScore      int
		wantLevel      catalog.Level
	}{
		{0, 699, 0, catalog.LevelA1},
		{199, 699, 199, catalog.LevelA1},
		{200, 699, 200, catalog.LevelA2},
		{299, 699, 299, catalog.LevelA2},
		{300, 699, 300, catalog.LevelB1},
		{399, 699, 399, catalog.LevelB1},
		{400, 699, 400, catalog.LevelB2},
		{499, 699, 499, catalog.LevelB2},
		{500, 699, 500, catalog.LevelC1},
		{599, 699, 599, catalog.LevelC1},
		{600, 699, 600, catalog.LevelC2},
		{699, 699, 699, catalog.LevelC2},
	}
	scale := scoring.CEFRScale{}
	for _, c := range cases {
		score, level := scale.Scale(c.correct, c.total)
		if score != c.wantScore || level != c.wantLevel {
			t.Errorf("Scale(%d,%d) = %d/%s, want %d/%s",
				c.correct, c.total, score, level, c.wantScore, c.wantLevel)
		}
	}
}

func TestScaleFor_FallsBackToCEFR(t *testing.T) {
	m := scoring.ScaleFor("no-such-profile")
	score, level := m.Scale(1, 1)
	if score != 699 || level != catalog.LevelC2 {
		t.Fatalf("fallback mapper gave %d/%s, want 699/C2", score, level)
	}
}
