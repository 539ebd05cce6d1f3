package catalog_test

import (
	"context"
	"errors"
	"testing"

	"github.com/linguagate/linguagate/internal/catalog"
)

// flakyStore wraps a ContentStore and fails once armed, simulating an
// unreachable content backend.
type flakyStore struct {
	inner catalog.ContentStore
	down  bool
}

func (f *flakyStore) ListExamSets(ctx context.Context) ([]catalog.ExamSet, error) {
	if f.down {
		return nil, errors.New("content store unreachable")
	}
	return f.inner.ListExamSets(ctx)
}

func (f *flakyStore) ListQuestions(ctx context.Context, examSetID int) ([]catalog.Question, error) {
	if f.down {
		return nil, errors.New("content store unreachable")
	}
	return f.inner.ListQuestions(ctx, examSetID)
}

func (f *flakyStore) OnChange(fn func()) { f.inner.OnChange(fn) }

func seedStore() *catalog.MemoryStore {
	st := catalog.NewInMemoryStore()
	st.PutExamSet(catalog.ExamSet{ID: 1, Name: "Set One"})
	st.PutQuestion(catalog.Question{
		ID: "q1", ExamSetID: 1, Section: catalog.SectionGrammar,
		Text: "pick one", Options: []string{"a", "b"}, CorrectOption: 0,
		Level: catalog.LevelA2,
	})
	return st
}

func TestCache_LoadsOnFirstSnapshot(t *testing.T) {
	cache := catalog.NewCache(seedStore())
	snap, err := cache.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if len(snap.ExamSets) != 1 || snap.TotalQuestions(1) != 1 {
		t.Fatalf("snapshot has %d sets / %d questions, want 1/1",
			len(snap.ExamSets), snap.TotalQuestions(1))
	}
	if _, ok := snap.Question("q1"); !ok {
		t.Fatalf("question q1 missing from snapshot")
	}
}

func TestCache_ReloadsOnChangeNotification(t *testing.T) {
	st := seedStore()
	cache := catalog.NewCache(st)
	ctx := context.Background()

	before, err := cache.Snapshot(ctx)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}

	// Authoring a question fires the change notification; the cache reloads
	// wholesale.
	st.PutQuestion(catalog.Question{
		ID: "q2", ExamSetID: 1, Section: catalog.SectionReading,
		Text: "read this", Options: []string{"x", "y"}, CorrectOption: 1,
		Level: catalog.LevelB1,
	})

	after, err := cache.Snapshot(ctx)
	if err != nil {
		t.Fatalf("snapshot after change: %v", err)
	}
	if after.TotalQuestions(1) != 2 {
		t.Fatalf("reloaded snapshot has %d questions, want 2", after.TotalQuestions(1))
	}
	// The snapshot handed out before the change is immutable: an in-flight
	// session keeps the catalog it started with.
	if before.TotalQuestions(1) != 1 {
		t.Fatalf("old snapshot mutated: %d questions, want 1", before.TotalQuestions(1))
	}
}

func TestCache_FallsBackToCachedOnFailure(t *testing.T) {
	fs := &flakyStore{inner: seedStore()}
	cache := catalog.NewCache(fs)
	ctx := context.Background()

	if _, err := cache.Snapshot(ctx); err != nil {
		t.Fatalf("initial snapshot: %v", err)
	}

	fs.down = true
	if err := cache.Reload(ctx); err == nil {
		t.Fatalf("expected reload to fail while store is down")
	}
	snap, err := cache.Snapshot(ctx)
	if err != nil {
		t.Fatalf("snapshot should fall back to cache: %v", err)
	}
	if snap.TotalQuestions(1) != 1 {
		t.Fatalf("cached snapshot has %d questions, want 1", snap.TotalQuestions(1))
	}
}

func TestCache_UnavailableWithoutFallback(t *testing.T) {
	fs := &flakyStore{inner: seedStore(), down: true}
	cache := catalog.NewCache(fs)

	_, err := cache.Snapshot(context.Background())
	if !errors.Is(err, catalog.ErrUnavailable) {
		t.Fatalf("err = %v, want ErrUnavailable", err)
	}
}
