package session

import (
	"github.com/linguagate/linguagate/internal/catalog"
	"github.com/linguagate/linguagate/internal/scoring"
)

type Status string

const (
	StatusIdle      Status = "idle"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
)

// Session is the single in-flight exam attempt for one user context. It is
// mutated only through the engine's command application; the catalog
// snapshot is captured at start and never swapped mid-flight.
type Session struct {
	ID            string
	UserID        string
	ExamSetID     int
	Section       catalog.Section
	QuestionIndex int
	Answers       map[string]int  // questionID -> selected option
	AudioPlayed   map[string]bool // one-way flags
	TimeRemaining int             // seconds
	Status        Status
	Result        *scoring.Result // set on completion

	snap *catalog.Snapshot
}

func newSession(id, userID string, examSetID int, snap *catalog.Snapshot, durationSec int) *Session {
	s := &Session{
		ID:            id,
		UserID:        userID,
		ExamSetID:     examSetID,
		Section:       catalog.SectionListening,
		Answers:       map[string]int{},
		AudioPlayed:   map[string]bool{},
		TimeRemaining: durationSec,
		Status:        StatusRunning,
		snap:          snap,
	}
	// Settle the cursor on the first section that has questions; empty
	// sections contribute nothing and are skipped.
	if len(s.sectionQuestions(s.Section)) == 0 {
		if sec, ok := s.nextSectionWithQuestions(s.Section); ok {
			s.Section = sec
		}
	}
	return s
}

func (s *Session) Snapshot() *catalog.Snapshot { return s.snap }

func (s *Session) sectionQuestions(sec catalog.Section) []catalog.Question {
	return s.snap.SectionQuestions(s.ExamSetID, sec)
}

// CurrentQuestion returns the question under the cursor, if any.
func (s *Session) CurrentQuestion() (catalog.Question, bool) {
	qs := s.sectionQuestions(s.Section)
	if s.QuestionIndex < 0 || s.QuestionIndex >= len(qs) {
		return catalog.Question{}, false
	}
	return qs[s.QuestionIndex], true
}

func (s *Session) nextSectionWithQuestions(after catalog.Section) (catalog.Section, bool) {
	order := catalog.SectionOrder()
	idx := sectionIndex(after)
	for i := idx + 1; i < len(order); i++ {
		if len(s.sectionQuestions(order[i])) > 0 {
			return order[i], true
		}
	}
	return "", false
}

func (s *Session) prevSectionWithQuestions(before catalog.Section) (catalog.Section, bool) {
	order := catalog.SectionOrder()
	idx := sectionIndex(before)
	for i := idx - 1; i >= 0; i-- {
		if len(s.sectionQuestions(order[i])) > 0 {
			return order[i], true
		}
	}
	return "", false
}

func sectionIndex(sec catalog.Section) int {
	for i, v := range catalog.SectionOrder() {
		if v == sec {
			return i
		}
	}
	return 0
}

func (s *Session) selectAnswer(questionID string, optionIndex int) error {
	if s.Status != StatusRunning {
		return ErrNotRunning
	}
	q, ok := s.snap.Question(questionID)
	if !ok || q.ExamSetID != s.ExamSetID {
		return ErrUnknownQuestion
	}
	if optionIndex < 0 || optionIndex >= len(q.Options) {
		return ErrUnknownQuestion
	}
	// Overwrite is allowed; re-selecting is not an error.
	s.Answers[questionID] = optionIndex
	return nil
}

func (s *Session) markMediaPlayed(questionID string) error {
	if s.Status != StatusRunning {
		return ErrNotRunning
	}
	q, ok := s.snap.Question(questionID)
	if !ok || q.ExamSetID != s.ExamSetID {
		return ErrUnknownQuestion
	}
	// One-way: setting twice is a no-op.
	s.AudioPlayed[questionID] = true
	return nil
}

// advance moves the cursor forward. It reports true when the session has
// crossed into the completed state; scoring is the caller's next step.
func (s *Session) advance() bool {
	if s.Status != StatusRunning {
		return false
	}
	qs := s.sectionQuestions(s.Section)
	if s.QuestionIndex < len(qs)-1 {
		s.QuestionIndex++
		return false
	}
	if sec, ok := s.nextSectionWithQuestions(s.Section); ok {
		s.Section = sec
		s.QuestionIndex = 0
		return false
	}
	s.Status = StatusCompleted
	return true
}

// retreat moves the cursor back one question, crossing section boundaries to
// the previous section's last question. Re-entering a listening question
// whose audio already played is forbidden; at the very start of the exam
// retreat is a no-op.
func (s *Session) retreat() error {
	if s.Status != StatusRunning {
		return ErrNotRunning
	}
	targetSec := s.Section
	targetIdx := s.QuestionIndex - 1
	if targetIdx < 0 {
		sec, ok := s.prevSectionWithQuestions(s.Section)
		if !ok {
			return nil // already at the start of the exam
		}
		targetSec = sec
		targetIdx = len(s.sectionQuestions(sec)) - 1
	}
	target := s.sectionQuestions(targetSec)[targetIdx]
	if target.Section == catalog.SectionListening && s.AudioPlayed[target.ID] {
		return ErrInvalidNavigation
	}
	s.Section = targetSec
	s.QuestionIndex = targetIdx
	return nil
}

func (s *Session) tick() {
	if s.Status != StatusRunning {
		return
	}
	if s.TimeRemaining > 0 {
		s.TimeRemaining--
	}
}

// SectionProgress is the percentage position within the current section.
// An empty section counts as already complete.
func (s *Session) SectionProgress() float64 {
	if s.Status == StatusCompleted {
		return 100
	}
	qs := s.sectionQuestions(s.Section)
	if len(qs) == 0 {
		return 100
	}
	return float64(s.QuestionIndex+1) / float64(len(qs)) * 100
}

// OverallProgress is the percentage position across the whole exam set.
func (s *Session) OverallProgress() float64 {
	total := s.snap.TotalQuestions(s.ExamSetID)
	if total == 0 || s.Status == StatusCompleted {
		return 100
	}
	pos := 0
	for _, sec := range catalog.SectionOrder() {
		if sec == s.Section {
			pos += s.QuestionIndex + 1
			break
		}
		pos += len(s.sectionQuestions(sec))
	}
	return float64(pos) / float64(total) * 100
}
