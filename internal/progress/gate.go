package progress

import (
	"context"
	"sort"
	"time"

	"github.com/linguagate/linguagate/internal/catalog"
	"github.com/linguagate/linguagate/internal/scoring"
)

// Progress is a user's durable completion history. CompletedExamSetIDs is
// append-only; unlock flags are always derived from it, never stored.
type Progress struct {
	UserID              string    `json:"user_id"`
	CompletedExamSetIDs []int     `json:"completed_exam_set_ids"`
	LastCompletedAt     time.Time `json:"last_completed_at"`
}

func (p Progress) completedSet() map[int]bool {
	m := make(map[int]bool, len(p.CompletedExamSetIDs))
	for _, id := range p.CompletedExamSetIDs {
		m[id] = true
	}
	return m
}

// Store is the persistence port for per-user progress and results.
// Implementations own write retries; callers treat in-memory state as
// authoritative until a write succeeds.
type Store interface {
	LoadProgress(ctx context.Context, userID string) (Progress, error)
	SaveProgress(ctx context.Context, p Progress) error
	SaveResult(ctx context.Context, userID string, res scoring.Result, completedAt time.Time) error
	ListResults(ctx context.Context, userID string) ([]StoredResult, error)
}

// StoredResult is the overwrite-latest record kept per (user, exam set).
type StoredResult struct {
	scoring.Result
	CompletedAt time.Time `json:"completed_at"`
}

// Gate derives exam-set unlock state from recorded completions and records
// new completions idempotently.
type Gate struct {
	store Store
	now   func() time.Time
}

func NewGate(store Store, now func() time.Time) *Gate {
	if now == nil {
		now = time.Now
	}
	return &Gate{store: store, now: now}
}

// Unlocked reports whether a user may start the given exam set. Set 1 is
// always unlocked; set n requires completion of set n-1.
func (g *Gate) Unlocked(ctx context.Context, userID string, examSetID int) (bool, error) {
	if examSetID == 1 {
		return true, nil
	}
	p, err := g.store.LoadProgress(ctx, userID)
	if err != nil {
		return false, err
	}
	return p.completedSet()[examSetID-1], nil
}

// ApplyActive stamps the derived IsActive flag onto a listing of exam sets
// for one viewer. The input slice is not mutated.
func (g *Gate) ApplyActive(ctx context.Context, userID string, sets []catalog.ExamSet) ([]catalog.ExamSet, error) {
	p, err := g.store.LoadProgress(ctx, userID)
	if err != nil {
		return nil, err
	}
	done := p.completedSet()
	out := make([]catalog.ExamSet, len(sets))
	for i, e := range sets {
		e.IsActive = e.ID == 1 || done[e.ID-1]
		out[i] = e
	}
	return out, nil
}

// RecordCompletion appends the exam set to the user's completion history if
// absent and stores the result (overwrite-latest per exam set). Retaking a
// completed set never duplicates nor regresses unlock state.
func (g *Gate) RecordCompletion(ctx context.Context, userID string, res scoring.Result) (Progress, error) {
	p, err := g.store.LoadProgress(ctx, userID)
	if err != nil {
		return Progress{}, err
	}
	p.UserID = userID
	if !p.completedSet()[res.ExamSetID] {
		p.CompletedExamSetIDs = append(p.CompletedExamSetIDs, res.ExamSetID)
		sort.Ints(p.CompletedExamSetIDs)
	}
	now := g.now()
	p.LastCompletedAt = now
	if err := g.store.SaveProgress(ctx, p); err != nil {
		return p, err
	}
	if err := g.store.SaveResult(ctx, userID, res, now); err != nil {
		return p, err
	}
	return p, nil
}
