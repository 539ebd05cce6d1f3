package session

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/linguagate/linguagate/internal/catalog"
	"github.com/linguagate/linguagate/internal/progress"
	"github.com/linguagate/linguagate/internal/scoring"
)

// EventRecorder receives completion events for the durable audit log.
type EventRecorder interface {
	Record(ctx context.Context, typ, key string, data any) error
}

// DefaultDurationSec is the exam time limit: 90 minutes.
const DefaultDurationSec = 5400

// Engine owns at most one Session per user context and applies commands to
// completion under a lock, one at a time. The timer is the only autonomous
// event source; everything else enters through a command.
type Engine struct {
	catalog *catalog.Cache
	gate    *progress.Gate
	events  EventRecorder

	durationSec  int
	tickInterval time.Duration

	mu       sync.Mutex
	sessions map[string]*Session // by user ID
	timers   map[string]*Timer
}

type Option func(*Engine)

// WithEvents wires an audit log for completed sessions.
func WithEvents(r EventRecorder) Option { return func(e *Engine) { e.events = r } }

// WithDuration overrides the exam time limit in seconds.
func WithDuration(sec int) Option { return func(e *Engine) { e.durationSec = sec } }

// WithTickInterval overrides the 1 Hz tick, for tests.
func WithTickInterval(d time.Duration) Option { return func(e *Engine) { e.tickInterval = d } }

func NewEngine(cat *catalog.Cache, gate *progress.Gate, opts ...Option) *Engine {
	e := &Engine{
		catalog:      cat,
		gate:         gate,
		durationSec:  DefaultDurationSec,
		tickInterval: time.Second,
		sessions:     map[string]*Session{},
		timers:       map[string]*Timer{},
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Start creates a fresh session for the user, replacing any in-flight one.
// The exam set must be unlocked for the user or ErrExamLocked is returned
// with no state change.
func (e *Engine) Start(ctx context.Context, userID string, examSetID int) (View, error) {
	snap, err := e.catalog.Snapshot(ctx)
	if err != nil {
		return View{}, err
	}
	if _, ok := snap.ExamSet(examSetID); !ok {
		return View{}, catalog.ErrExamSetNotFound
	}
	unlocked, err := e.gate.Unlocked(ctx, userID, examSetID)
	if err != nil {
		return View{}, err
	}
	if !unlocked {
		return View{}, ErrExamLocked
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.stopTimerLocked(userID)
	s := newSession(uuid.NewString(), userID, examSetID, snap, e.durationSec)
	e.sessions[userID] = s
	e.timers[userID] = startTimer(e.tickInterval, func() bool { return e.tick(userID) })
	return e.viewLocked(s), nil
}

// SelectAnswer records or overwrites the answer for a question of the
// current exam set.
func (e *Engine) SelectAnswer(ctx context.Context, userID, questionID string, optionIndex int) (View, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	s, err := e.runningLocked(userID)
	if err != nil {
		return View{}, err
	}
	if err := s.selectAnswer(questionID, optionIndex); err != nil {
		return View{}, err
	}
	return e.viewLocked(s), nil
}

// MarkMediaPlayed sets the one-way played flag for an audio-bearing
// question. Calling it twice is a no-op.
func (e *Engine) MarkMediaPlayed(ctx context.Context, userID, questionID string) (View, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	s, err := e.runningLocked(userID)
	if err != nil {
		return View{}, err
	}
	if err := s.markMediaPlayed(questionID); err != nil {
		return View{}, err
	}
	return e.viewLocked(s), nil
}

// Advance moves forward one question, crossing sections as needed. Reaching
// the end of the last section completes the session: scoring, progression
// update and persistence run as one step before Advance returns.
func (e *Engine) Advance(ctx context.Context, userID string) (View, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	s, err := e.runningLocked(userID)
	if err != nil {
		return View{}, err
	}
	if done := s.advance(); done {
		e.completeLocked(ctx, s)
	}
	return e.viewLocked(s), nil
}

// Retreat moves back one question. Out-of-bounds moves and moves blocked by
// the played-audio rule are clamped: the state is unchanged and no error is
// surfaced, since the rejection is a UI affordance rather than a mistake.
func (e *Engine) Retreat(ctx context.Context, userID string) (View, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	s, err := e.runningLocked(userID)
	if err != nil {
		return View{}, err
	}
	if err := s.retreat(); err != nil && err != ErrInvalidNavigation {
		return View{}, err
	}
	return e.viewLocked(s), nil
}

// ForceComplete ends a running session immediately, scoring whatever
// answers exist. Used for emergency stop and by the timer on expiry.
func (e *Engine) ForceComplete(ctx context.Context, userID string) (View, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	s, err := e.runningLocked(userID)
	if err != nil {
		return View{}, err
	}
	s.Status = StatusCompleted
	e.completeLocked(ctx, s)
	return e.viewLocked(s), nil
}

// Reset discards the in-flight session and returns the user to idle.
func (e *Engine) Reset(userID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stopTimerLocked(userID)
	delete(e.sessions, userID)
}

// View returns the current read-only state for the user.
func (e *Engine) View(userID string) (View, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	s, ok := e.sessions[userID]
	if !ok {
		return View{Status: StatusIdle}, nil
	}
	return e.viewLocked(s), nil
}

// Result is valid only once the session has completed.
func (e *Engine) Result(userID string) (scoring.Result, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	s, ok := e.sessions[userID]
	if !ok || s.Status != StatusCompleted || s.Result == nil {
		return scoring.Result{}, ErrResultUnavailable
	}
	return *s.Result, nil
}

// Close cancels all timers, e.g. on server shutdown.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	for userID := range e.timers {
		e.timers[userID].Stop()
	}
	e.timers = map[string]*Timer{}
}

// tick is the timer callback: decrement the countdown and force completion
// at zero. Returns false once the session stops running so the tick source
// shuts down and can never complete twice.
func (e *Engine) tick(userID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	s, ok := e.sessions[userID]
	if !ok || s.Status != StatusRunning {
		return false
	}
	s.tick()
	if s.TimeRemaining <= 0 {
		s.Status = StatusCompleted
		e.completeLocked(context.Background(), s)
		return false
	}
	return true
}

func (e *Engine) runningLocked(userID string) (*Session, error) {
	s, ok := e.sessions[userID]
	if !ok {
		return nil, ErrNoSession
	}
	if s.Status != StatusRunning {
		return nil, ErrNotRunning
	}
	return s, nil
}

func (e *Engine) stopTimerLocked(userID string) {
	if t, ok := e.timers[userID]; ok {
		t.Stop()
		delete(e.timers, userID)
	}
}

// completeLocked runs the terminal step atomically: stop the tick source,
// score the answers, record the completion through the gate and append the
// audit event. Persistence failures are logged; the in-memory result stays
// authoritative and the user is not blocked.
func (e *Engine) completeLocked(ctx context.Context, s *Session) {
	e.stopTimerLocked(s.UserID)
	res := scoring.Score(s.ExamSetID, s.Answers, s.Snapshot().Questions(s.ExamSetID))
	s.Result = &res
	if _, err := e.gate.RecordCompletion(ctx, s.UserID, res); err != nil {
		log.Printf("session: record completion for user %s exam set %d: %v", s.UserID, s.ExamSetID, err)
	}
	if e.events != nil {
		if err := e.events.Record(ctx, "SessionCompleted", s.ID, res); err != nil {
			log.Printf("session: event log append for %s: %v", s.ID, err)
		}
	}
}

// View is the read model handed to the presentation layer. Correct answers
// are stripped from the embedded question.
type View struct {
	SessionID       string            `json:"session_id,omitempty"`
	Status          Status            `json:"status"`
	ExamSetID       int               `json:"exam_set_id,omitempty"`
	Section         catalog.Section   `json:"section,omitempty"`
	QuestionIndex   int               `json:"question_index"`
	TimeRemaining   int               `json:"time_remaining"`
	Question        *catalog.Question `json:"question,omitempty"`
	SelectedOption  *int              `json:"selected_option,omitempty"`
	AudioPlayed     bool              `json:"audio_played,omitempty"`
	SectionProgress float64           `json:"section_progress"`
	OverallProgress float64           `json:"overall_progress"`
	Result          *scoring.Result   `json:"result,omitempty"`
}

func (e *Engine) viewLocked(s *Session) View {
	v := View{
		SessionID:       s.ID,
		Status:          s.Status,
		ExamSetID:       s.ExamSetID,
		Section:         s.Section,
		QuestionIndex:   s.QuestionIndex,
		TimeRemaining:   s.TimeRemaining,
		SectionProgress: s.SectionProgress(),
		OverallProgress: s.OverallProgress(),
		Result:          s.Result,
	}
	if q, ok := s.CurrentQuestion(); ok && s.Status == StatusRunning {
		sq := q.Sanitized()
		v.Question = &sq
		if sel, ok := s.Answers[q.ID]; ok {
			selCopy := sel
			v.SelectedOption = &selCopy
		}
		v.AudioPlayed = s.AudioPlayed[q.ID]
	}
	return v
}
