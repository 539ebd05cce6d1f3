package catalog

import (
	"context"
	"errors"
	"sort"
	"sync"
)

var ErrExamSetNotFound = errors.New("exam set not found")

// ContentStore is the read port onto authored exam content. Implementations
// may fire change notifications when content is edited externally; consumers
// are expected to reload wholesale, never patch in place.
type ContentStore interface {
	ListExamSets(ctx context.Context) ([]ExamSet, error)
	// ListQuestions returns questions for one exam set, or for all sets
	// when examSetID == 0.
	ListQuestions(ctx context.Context, examSetID int) ([]Question, error)
	// OnChange registers a callback invoked after any content mutation.
	OnChange(fn func())
}

type MemoryStore struct {
	mu        sync.RWMutex
	examSets  map[int]ExamSet
	questions map[string]Question
	watchers  []func()
}

// NewInMemoryStore returns a ContentStore backed by process memory. Used in
// tests and as a seed target for bundled content.
func NewInMemoryStore() *MemoryStore {
	return &MemoryStore{
		examSets:  map[int]ExamSet{},
		questions: map[string]Question{},
	}
}

func (m *MemoryStore) PutExamSet(e ExamSet) {
	m.mu.Lock()
	m.examSets[e.ID] = e
	m.mu.Unlock()
	m.notify()
}

func (m *MemoryStore) PutQuestion(q Question) {
	m.mu.Lock()
	m.questions[q.ID] = q
	m.mu.Unlock()
	m.notify()
}

func (m *MemoryStore) ListExamSets(ctx context.Context) ([]ExamSet, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]ExamSet, 0, len(m.examSets))
	for _, e := range m.examSets {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MemoryStore) ListQuestions(ctx context.Context, examSetID int) ([]Question, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Question, 0, len(m.questions))
	for _, q := range m.questions {
		if examSetID != 0 && q.ExamSetID != examSetID {
			continue
		}
		out = append(out, q)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MemoryStore) OnChange(fn func()) {
	m.mu.Lock()
	m.watchers = append(m.watchers, fn)
	m.mu.Unlock()
}

func (m *MemoryStore) notify() {
	m.mu.RLock()
	ws := make([]func(), len(m.watchers))
	copy(ws, m.watchers)
	m.mu.RUnlock()
	for _, fn := range ws {
		fn()
	}
}
