package session_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/linguagate/linguagate/internal/catalog"
	"github.com/linguagate/linguagate/internal/progress"
	"github.com/linguagate/linguagate/internal/scoring"
	"github.com/linguagate/linguagate/internal/session"
)

/* ---------------- In-memory fake satisfying progress.Store ---------------- */

type fakeProgressStore struct {
	mu          sync.Mutex
	byUser      map[string]progress.Progress
	results     map[string][]progress.StoredResult
	saveResults int
	failWrites  bool
}

func newFakeProgressStore() *fakeProgressStore {
	return &fakeProgressStore{
		byUser:  map[string]progress.Progress{},
		results: map[string][]progress.StoredResult{},
	}
}

func (s *fakeProgressStore) LoadProgress(_ context.Context, userID string) (progress.Progress, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.byUser[userID]; ok {
		return p, nil
	}
	return progress.Progress{UserID: userID}, nil
}

func (s *fakeProgressStore) SaveProgress(_ context.Context, p progress.Progress) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWrites {
		return fmt.Errorf("backend down")
	}
	s.byUser[p.UserID] = p
	return nil
}

func (s *fakeProgressStore) SaveResult(_ context.Context, userID string, res scoring.Result, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWrites {
		return fmt.Errorf("backend down")
	}
	s.saveResults++
	kept := s.results[userID][:0]
	for _, r := range s.results[userID] {
		if r.ExamSetID != res.ExamSetID {
			kept = append(kept, r)
		}
	}
	s.results[userID] = append(kept, progress.StoredResult{Result: res, CompletedAt: at})
	return nil
}

func (s *fakeProgressStore) ListResults(_ context.Context, userID string) ([]progress.StoredResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]progress.StoredResult(nil), s.results[userID]...), nil
}

func (s *fakeProgressStore) resultCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveResults
}

/* ------------------------------ Fixtures ------------------------------ */

func q(id string, set int, sec catalog.Section, correct int, media string) catalog.Question {
	return catalog.Question{
		ID:            id,
		ExamSetID:     set,
		Section:       sec,
		Text:          "prompt " + id,
		Options:       []string{"a", "b", "c", "d"},
		CorrectOption: correct,
		Level:         catalog.LevelB1,
		MediaRef:      media,
	}
}

// seedEngine builds a catalog of four exam sets. Set 1 has two questions per
// section (listening ones carry audio); sets 2-4 have one grammar question
// each.
func seedEngine(t *testing.T, opts ...session.Option) (*session.Engine, *fakeProgressStore, *progress.Gate) {
	t.Helper()
	store := catalog.NewInMemoryStore()
	store.PutExamSet(catalog.ExamSet{ID: 1, Name: "Set One"})
	store.PutExamSet(catalog.ExamSet{ID: 2, Name: "Set Two"})
	store.PutExamSet(catalog.ExamSet{ID: 3, Name: "Set Three"})
	store.PutExamSet(catalog.ExamSet{ID: 4, Name: "Set Four"})

	store.PutQuestion(q("l1", 1, catalog.SectionListening, 0, "questions/l1/clip.mp3"))
	store.PutQuestion(q("l2", 1, catalog.SectionListening, 1, "questions/l2/clip.mp3"))
	store.PutQuestion(q("g1", 1, catalog.SectionGrammar, 2, ""))
	store.PutQuestion(q("g2", 1, catalog.SectionGrammar, 3, ""))
	store.PutQuestion(q("r1", 1, catalog.SectionReading, 0, ""))
	store.PutQuestion(q("r2", 1, catalog.SectionReading, 1, ""))

	store.PutQuestion(q("s2g1", 2, catalog.SectionGrammar, 0, ""))
	store.PutQuestion(q("s3g1", 3, catalog.SectionGrammar, 0, ""))
	store.PutQuestion(q("s4g1", 4, catalog.SectionGrammar, 0, ""))

	cache := catalog.NewCache(store)
	if err := cache.Reload(context.Background()); err != nil {
		t.Fatalf("catalog reload: %v", err)
	}
	ps := newFakeProgressStore()
	gate := progress.NewGate(ps, func() time.Time { return time.Unix(1700000000, 0) })
	return session.NewEngine(cache, gate, opts...), ps, gate
}

func mustView(t *testing.T) func(session.View, error) session.View {
	t.Helper()
	return func(v session.View, err error) session.View {
		t.Helper()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		return v
	}
}

/* ------------------------------- Tests ------------------------------- */

func TestStart_LockedExamSetRejected(t *testing.T) {
	eng, _, _ := seedEngine(t)
	defer eng.Close()
	ctx := context.Background()

	if _, err := eng.Start(ctx, "u1", 2); err != session.ErrExamLocked {
		t.Fatalf("start on locked set: err = %v, want ErrExamLocked", err)
	}
	// Rejected command has no side effect.
	v := mustView(t)(eng.View("u1"))
	if v.Status != session.StatusIdle {
		t.Fatalf("status after rejected start = %s, want idle", v.Status)
	}
}

func TestStart_FreshSessionState(t *testing.T) {
	eng, _, _ := seedEngine(t)
	defer eng.Close()
	ctx := context.Background()

	v := mustView(t)(eng.Start(ctx, "u1", 1))
	if v.Status != session.StatusRunning {
		t.Fatalf("status = %s, want running", v.Status)
	}
	if v.Section != catalog.SectionListening || v.QuestionIndex != 0 {
		t.Fatalf("cursor = (%s,%d), want (listening,0)", v.Section, v.QuestionIndex)
	}
	if v.TimeRemaining != session.DefaultDurationSec {
		t.Fatalf("time remaining = %d, want %d", v.TimeRemaining, session.DefaultDurationSec)
	}
	if v.Question == nil || v.Question.ID != "l1" {
		t.Fatalf("expected first listening question, got %+v", v.Question)
	}
	if v.Question.CorrectOption != -1 {
		t.Fatalf("correct option leaked to client: %d", v.Question.CorrectOption)
	}
}

func TestSelectAnswer_OverwriteAllowed(t *testing.T) {
	eng, _, _ := seedEngine(t)
	defer eng.Close()
	ctx := context.Background()
	mustView(t)(eng.Start(ctx, "u1", 1))

	mustView(t)(eng.SelectAnswer(ctx, "u1", "l1", 0))
	v := mustView(t)(eng.SelectAnswer(ctx, "u1", "l1", 3))
	if v.SelectedOption == nil || *v.SelectedOption != 3 {
		t.Fatalf("selected option = %v, want 3", v.SelectedOption)
	}

	if _, err := eng.SelectAnswer(ctx, "u1", "s2g1", 0); err != session.ErrUnknownQuestion {
		t.Fatalf("answer to foreign exam set: err = %v, want ErrUnknownQuestion", err)
	}
	if _, err := eng.SelectAnswer(ctx, "u1", "l1", 9); err != session.ErrUnknownQuestion {
		t.Fatalf("out-of-range option: err = %v, want ErrUnknownQuestion", err)
	}
}

func TestAdvance_WalksSectionsAndCompletes(t *testing.T) {
	eng, ps, _ := seedEngine(t)
	defer eng.Close()
	ctx := context.Background()
	mustView(t)(eng.Start(ctx, "u1", 1))

	// Answer everything correctly along the way.
	answers := map[string]int{"l1": 0, "l2": 1, "g1": 2, "g2": 3, "r1": 0, "r2": 1}
	wantCursor := []struct {
		sec catalog.Section
		idx int
	}{
		{catalog.SectionListening, 0},
		{catalog.SectionListening, 1},
		{catalog.SectionGrammar, 0},
		{catalog.SectionGrammar, 1},
		{catalog.SectionReading, 0},
		{catalog.SectionReading, 1},
	}
	v := mustView(t)(eng.View("u1"))
	for i, want := range wantCursor {
		if v.Section != want.sec || v.QuestionIndex != want.idx {
			t.Fatalf("step %d: cursor = (%s,%d), want (%s,%d)", i, v.Section, v.QuestionIndex, want.sec, want.idx)
		}
		mustView(t)(eng.SelectAnswer(ctx, "u1", v.Question.ID, answers[v.Question.ID]))
		v = mustView(t)(eng.Advance(ctx, "u1"))
	}

	if v.Status != session.StatusCompleted {
		t.Fatalf("status after final advance = %s, want completed", v.Status)
	}
	res, err := eng.Result("u1")
	if err != nil {
		t.Fatalf("result: %v", err)
	}
	if res.Score != 699 || res.Level != catalog.LevelC2 {
		t.Fatalf("result = %d/%s, want 699/C2", res.Score, res.Level)
	}
	if ps.resultCount() != 1 {
		t.Fatalf("stored results = %d, want 1", ps.resultCount())
	}
}

func TestRetreat_AtExamStartIsNoOp(t *testing.T) {
	eng, _, _ := seedEngine(t)
	defer eng.Close()
	ctx := context.Background()
	before := mustView(t)(eng.Start(ctx, "u1", 1))

	after := mustView(t)(eng.Retreat(ctx, "u1"))
	if after.Section != before.Section || after.QuestionIndex != before.QuestionIndex {
		t.Fatalf("retreat at exam start changed cursor: (%s,%d) -> (%s,%d)",
			before.Section, before.QuestionIndex, after.Section, after.QuestionIndex)
	}
}

func TestRetreat_BlockedByPlayedAudio(t *testing.T) {
	eng, _, _ := seedEngine(t)
	defer eng.Close()
	ctx := context.Background()
	mustView(t)(eng.Start(ctx, "u1", 1))

	mustView(t)(eng.MarkMediaPlayed(ctx, "u1", "l1"))
	mustView(t)(eng.Advance(ctx, "u1")) // now at l2

	// l1's audio has played: retreat is clamped, cursor unchanged.
	v := mustView(t)(eng.Retreat(ctx, "u1"))
	if v.Section != catalog.SectionListening || v.QuestionIndex != 1 {
		t.Fatalf("retreat into played audio moved cursor to (%s,%d)", v.Section, v.QuestionIndex)
	}
}

func TestRetreat_AllowedWhenAudioNotPlayed(t *testing.T) {
	eng, _, _ := seedEngine(t)
	defer eng.Close()
	ctx := context.Background()
	mustView(t)(eng.Start(ctx, "u1", 1))
	mustView(t)(eng.Advance(ctx, "u1")) // l2

	v := mustView(t)(eng.Retreat(ctx, "u1"))
	if v.Section != catalog.SectionListening || v.QuestionIndex != 0 {
		t.Fatalf("cursor = (%s,%d), want (listening,0)", v.Section, v.QuestionIndex)
	}
}

func TestRetreat_AcrossSectionBoundary(t *testing.T) {
	eng, _, _ := seedEngine(t)
	defer eng.Close()
	ctx := context.Background()
	mustView(t)(eng.Start(ctx, "u1", 1))
	mustView(t)(eng.Advance(ctx, "u1"))      // l2
	v := mustView(t)(eng.Advance(ctx, "u1")) // g1
	if v.Section != catalog.SectionGrammar || v.QuestionIndex != 0 {
		t.Fatalf("cursor = (%s,%d), want (grammar,0)", v.Section, v.QuestionIndex)
	}

	// Back into listening's last question while its audio never played.
	v = mustView(t)(eng.Retreat(ctx, "u1"))
	if v.Section != catalog.SectionListening || v.QuestionIndex != 1 {
		t.Fatalf("cursor = (%s,%d), want (listening,1)", v.Section, v.QuestionIndex)
	}
}

func TestRetreat_SectionBoundaryBlockedByAudio(t *testing.T) {
	eng, _, _ := seedEngine(t)
	defer eng.Close()
	ctx := context.Background()
	mustView(t)(eng.Start(ctx, "u1", 1))
	mustView(t)(eng.Advance(ctx, "u1")) // l2
	mustView(t)(eng.MarkMediaPlayed(ctx, "u1", "l2"))
	mustView(t)(eng.Advance(ctx, "u1")) // g1

	// Once played, no sequence of retreats presents l2 again.
	v := mustView(t)(eng.Retreat(ctx, "u1"))
	if v.Section != catalog.SectionGrammar || v.QuestionIndex != 0 {
		t.Fatalf("cursor = (%s,%d), want unchanged (grammar,0)", v.Section, v.QuestionIndex)
	}
}

func TestMarkMediaPlayed_Idempotent(t *testing.T) {
	eng, _, _ := seedEngine(t)
	defer eng.Close()
	ctx := context.Background()
	mustView(t)(eng.Start(ctx, "u1", 1))

	first := mustView(t)(eng.MarkMediaPlayed(ctx, "u1", "l1"))
	second := mustView(t)(eng.MarkMediaPlayed(ctx, "u1", "l1"))
	if !first.AudioPlayed || !second.AudioPlayed {
		t.Fatalf("audio played flags = %v/%v, want true/true", first.AudioPlayed, second.AudioPlayed)
	}
}

func TestEmptySection_SkippedOnAdvance(t *testing.T) {
	eng, _, _ := seedEngine(t)
	defer eng.Close()
	ctx := context.Background()

	// Set 2 has only one grammar question: the session starts there and the
	// first advance completes the exam.
	mustCompleteSet1(t, eng)
	v := mustView(t)(eng.Start(ctx, "u1", 2))
	if v.Section != catalog.SectionGrammar || v.QuestionIndex != 0 {
		t.Fatalf("cursor = (%s,%d), want (grammar,0) with listening skipped", v.Section, v.QuestionIndex)
	}
	if v.SectionProgress != 100 {
		t.Fatalf("section progress = %v, want 100 (single question)", v.SectionProgress)
	}
	v = mustView(t)(eng.Advance(ctx, "u1"))
	if v.Status != session.StatusCompleted {
		t.Fatalf("status = %s, want completed after skipping empty reading", v.Status)
	}
}

// mustCompleteSet1 walks user u1 through exam set 1 so later sets unlock.
func mustCompleteSet1(t *testing.T, eng *session.Engine) session.View {
	t.Helper()
	ctx := context.Background()
	v := mustView(t)(eng.Start(ctx, "u1", 1))
	for v.Status == session.StatusRunning {
		v = mustView(t)(eng.Advance(ctx, "u1"))
	}
	return v
}

func TestForceComplete_ScoresPartialAnswers(t *testing.T) {
	eng, _, _ := seedEngine(t)
	defer eng.Close()
	ctx := context.Background()
	mustView(t)(eng.Start(ctx, "u1", 1))
	mustView(t)(eng.SelectAnswer(ctx, "u1", "l1", 0)) // correct
	mustView(t)(eng.SelectAnswer(ctx, "u1", "g1", 0)) // incorrect

	v := mustView(t)(eng.ForceComplete(ctx, "u1"))
	if v.Status != session.StatusCompleted {
		t.Fatalf("status = %s, want completed", v.Status)
	}
	res, err := eng.Result("u1")
	if err != nil {
		t.Fatalf("result: %v", err)
	}
	if res.CorrectCount != 1 || res.IncorrectCount != 1 || res.UnansweredCount != 4 {
		t.Fatalf("counts = %d/%d/%d, want 1/1/4", res.CorrectCount, res.IncorrectCount, res.UnansweredCount)
	}
	// Commands after completion are rejected.
	if _, err := eng.Advance(ctx, "u1"); err != session.ErrNotRunning {
		t.Fatalf("advance after completion: err = %v, want ErrNotRunning", err)
	}
}

func TestResult_UnavailableWhileRunning(t *testing.T) {
	eng, _, _ := seedEngine(t)
	defer eng.Close()
	ctx := context.Background()

	if _, err := eng.Result("u1"); err != session.ErrResultUnavailable {
		t.Fatalf("result with no session: err = %v, want ErrResultUnavailable", err)
	}
	mustView(t)(eng.Start(ctx, "u1", 1))
	if _, err := eng.Result("u1"); err != session.ErrResultUnavailable {
		t.Fatalf("result while running: err = %v, want ErrResultUnavailable", err)
	}
}

func TestStart_ReplacesInFlightSession(t *testing.T) {
	eng, _, _ := seedEngine(t)
	defer eng.Close()
	ctx := context.Background()

	first := mustView(t)(eng.Start(ctx, "u1", 1))
	mustView(t)(eng.SelectAnswer(ctx, "u1", "l1", 0))
	mustView(t)(eng.MarkMediaPlayed(ctx, "u1", "l1"))

	second := mustView(t)(eng.Start(ctx, "u1", 1))
	if second.SessionID == first.SessionID {
		t.Fatalf("restart reused session id %s", first.SessionID)
	}
	if second.SelectedOption != nil || second.AudioPlayed {
		t.Fatalf("restart kept answers/audio flags: %+v", second)
	}
}

func TestReset_ReturnsToIdle(t *testing.T) {
	eng, _, _ := seedEngine(t)
	defer eng.Close()
	ctx := context.Background()
	mustView(t)(eng.Start(ctx, "u1", 1))

	eng.Reset("u1")
	v := mustView(t)(eng.View("u1"))
	if v.Status != session.StatusIdle {
		t.Fatalf("status after reset = %s, want idle", v.Status)
	}
}

func TestTimerExpiry_ForceCompletesExactlyOnce(t *testing.T) {
	eng, ps, _ := seedEngine(t,
		session.WithDuration(3),
		session.WithTickInterval(time.Millisecond),
	)
	defer eng.Close()
	ctx := context.Background()
	mustView(t)(eng.Start(ctx, "u1", 1))
	mustView(t)(eng.SelectAnswer(ctx, "u1", "l1", 0))
	mustView(t)(eng.SelectAnswer(ctx, "u1", "l2", 1))
	mustView(t)(eng.SelectAnswer(ctx, "u1", "g1", 2))

	deadline := time.Now().Add(2 * time.Second)
	for {
		v := mustView(t)(eng.View("u1"))
		if v.Status == session.StatusCompleted {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("session did not complete on timer expiry")
		}
		time.Sleep(5 * time.Millisecond)
	}

	// Give a straggler tick every chance to double-fire, then verify the
	// completion ran exactly once.
	time.Sleep(20 * time.Millisecond)
	if got := ps.resultCount(); got != 1 {
		t.Fatalf("stored results = %d, want exactly 1", got)
	}
	res, err := eng.Result("u1")
	if err != nil {
		t.Fatalf("result: %v", err)
	}
	if res.CorrectCount != 3 || res.UnansweredCount != 3 {
		t.Fatalf("counts = %d correct/%d unanswered, want 3/3", res.CorrectCount, res.UnansweredCount)
	}
}

func TestProgression_CompletionsUnlockSequentially(t *testing.T) {
	eng, ps, gate := seedEngine(t)
	defer eng.Close()
	ctx := context.Background()

	sets := []catalog.ExamSet{{ID: 1}, {ID: 2}, {ID: 3}, {ID: 4}}
	check := func(step string, want []bool) {
		t.Helper()
		got, err := gate.ApplyActive(ctx, "u1", sets)
		if err != nil {
			t.Fatalf("%s: %v", step, err)
		}
		for i := range got {
			if got[i].IsActive != want[i] {
				t.Fatalf("%s: set %d active = %v, want %v", step, got[i].ID, got[i].IsActive, want[i])
			}
		}
	}

	check("initially", []bool{true, false, false, false})

	mustCompleteSet1(t, eng)
	check("after set 1", []bool{true, true, false, false})

	v := mustView(t)(eng.Start(ctx, "u1", 2))
	for v.Status == session.StatusRunning {
		v = mustView(t)(eng.Advance(ctx, "u1"))
	}
	check("after set 2", []bool{true, true, true, false})

	// Retake set 1: completion set unchanged, nothing relocks.
	mustCompleteSet1(t, eng)
	check("after retake", []bool{true, true, true, false})

	p, err := ps.LoadProgress(ctx, "u1")
	if err != nil {
		t.Fatalf("load progress: %v", err)
	}
	if len(p.CompletedExamSetIDs) != 2 {
		t.Fatalf("completed ids = %v, want exactly [1 2]", p.CompletedExamSetIDs)
	}
}

func TestCompletion_PersistenceFailureDoesNotBlockUser(t *testing.T) {
	eng, ps, _ := seedEngine(t)
	defer eng.Close()
	ctx := context.Background()
	mustView(t)(eng.Start(ctx, "u1", 1))
	ps.mu.Lock()
	ps.failWrites = true
	ps.mu.Unlock()

	v := mustView(t)(eng.ForceComplete(ctx, "u1"))
	if v.Status != session.StatusCompleted {
		t.Fatalf("status = %s, want completed despite write failure", v.Status)
	}
	// In-memory result stays authoritative.
	if _, err := eng.Result("u1"); err != nil {
		t.Fatalf("result after failed persist: %v", err)
	}
}
