package catalog

import (
	"context"
	"errors"
	"log"
	"sync"
)

// ErrUnavailable means the content store is unreachable and no previously
// cached catalog exists to fall back on.
var ErrUnavailable = errors.New("catalog unavailable")

// Snapshot is an immutable view of the catalog taken at load time. Sessions
// hold the snapshot they started with; reloads produce a new snapshot and
// never mutate one already handed out.
type Snapshot struct {
	ExamSets []ExamSet

	bySet        map[int][]Question
	bySetSection map[int]map[Section][]Question
	byID         map[string]Question
}

func newSnapshot(sets []ExamSet, questions []Question) *Snapshot {
	s := &Snapshot{
		ExamSets:     sets,
		bySet:        map[int][]Question{},
		bySetSection: map[int]map[Section][]Question{},
		byID:         map[string]Question{},
	}
	for _, q := range questions {
		s.bySet[q.ExamSetID] = append(s.bySet[q.ExamSetID], q)
		m := s.bySetSection[q.ExamSetID]
		if m == nil {
			m = map[Section][]Question{}
			s.bySetSection[q.ExamSetID] = m
		}
		m[q.Section] = append(m[q.Section], q)
		s.byID[q.ID] = q
	}
	return s
}

func (s *Snapshot) ExamSet(id int) (ExamSet, bool) {
	for _, e := range s.ExamSets {
		if e.ID == id {
			return e, true
		}
	}
	return ExamSet{}, false
}

func (s *Snapshot) Questions(examSetID int) []Question {
	return s.bySet[examSetID]
}

func (s *Snapshot) SectionQuestions(examSetID int, sec Section) []Question {
	if m, ok := s.bySetSection[examSetID]; ok {
		return m[sec]
	}
	return nil
}

func (s *Snapshot) Question(id string) (Question, bool) {
	q, ok := s.byID[id]
	return q, ok
}

func (s *Snapshot) TotalQuestions(examSetID int) int {
	return len(s.bySet[examSetID])
}

// Cache keeps the last successfully loaded Snapshot and reloads wholesale
// when the content store reports a change. A failed reload keeps the cached
// snapshot authoritative.
type Cache struct {
	store ContentStore

	mu   sync.RWMutex
	snap *Snapshot
}

func NewCache(store ContentStore) *Cache {
	c := &Cache{store: store}
	store.OnChange(func() {
		if err := c.Reload(context.Background()); err != nil {
			log.Printf("catalog: reload after change failed: %v", err)
		}
	})
	return c
}

// Reload fetches the full catalog and swaps the snapshot in one step.
func (c *Cache) Reload(ctx context.Context) error {
	sets, err := c.store.ListExamSets(ctx)
	if err != nil {
		return err
	}
	questions, err := c.store.ListQuestions(ctx, 0)
	if err != nil {
		return err
	}
	snap := newSnapshot(sets, questions)
	c.mu.Lock()
	c.snap = snap
	c.mu.Unlock()
	return nil
}

// Snapshot returns the current catalog, loading it on first use. If loading
// fails and nothing is cached, ErrUnavailable is returned and exam selection
// stays disabled until a later load succeeds.
func (c *Cache) Snapshot(ctx context.Context) (*Snapshot, error) {
	c.mu.RLock()
	snap := c.snap
	c.mu.RUnlock()
	if snap != nil {
		return snap, nil
	}
	if err := c.Reload(ctx); err != nil {
		log.Printf("catalog: load failed with no cached fallback: %v", err)
		return nil, errors.Join(ErrUnavailable, err)
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snap, nil
}
