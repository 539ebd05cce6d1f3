package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"sync"
)

// SQLStore persists authored exam sets and questions. Question options are
// stored as a JSON column, matching the one-row-per-question schema in
// internal/db.
type SQLStore struct {
	db *sql.DB

	mu       sync.Mutex
	watchers []func()
}

func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db}
}

func (s *SQLStore) PutExamSet(ctx context.Context, e ExamSet) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO exam_sets (id,name,description)
		VALUES ($1,$2,$3)
		ON CONFLICT (id) DO UPDATE SET name=EXCLUDED.name, description=EXCLUDED.description`,
		e.ID, e.Name, e.Description)
	if err != nil {
		return err
	}
	s.notify()
	return nil
}

func (s *SQLStore) PutQuestion(ctx context.Context, q Question) error {
	oj, err := json.Marshal(q.Options)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO questions
		(id,exam_set_id,section,text,options_json,correct_option,level,media_ref)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		ON CONFLICT (id) DO UPDATE SET exam_set_id=EXCLUDED.exam_set_id,
			section=EXCLUDED.section, text=EXCLUDED.text,
			options_json=EXCLUDED.options_json, correct_option=EXCLUDED.correct_option,
			level=EXCLUDED.level, media_ref=EXCLUDED.media_ref`,
		q.ID, q.ExamSetID, string(q.Section), q.Text, string(oj), q.CorrectOption, string(q.Level), q.MediaRef)
	if err != nil {
		return err
	}
	s.notify()
	return nil
}

func (s *SQLStore) ListExamSets(ctx context.Context) ([]ExamSet, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT e.id, e.name, e.description,
			(SELECT COUNT(*) FROM questions q WHERE q.exam_set_id = e.id)
		FROM exam_sets e ORDER BY e.id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ExamSet
	for rows.Next() {
		var e ExamSet
		if err := rows.Scan(&e.ID, &e.Name, &e.Description, &e.TotalQuestions); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *SQLStore) ListQuestions(ctx context.Context, examSetID int) ([]Question, error) {
	const base = `SELECT id,exam_set_id,section,text,options_json,correct_option,level,media_ref
		FROM questions`
	var (
		rows *sql.Rows
		err  error
	)
	if examSetID == 0 {
		rows, err = s.db.QueryContext(ctx, base+` ORDER BY exam_set_id, section, id`)
	} else {
		rows, err = s.db.QueryContext(ctx, base+` WHERE exam_set_id=$1 ORDER BY section, id`, examSetID)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Question
	for rows.Next() {
		var q Question
		var sec, lvl, oj string
		if err := rows.Scan(&q.ID, &q.ExamSetID, &sec, &q.Text, &oj, &q.CorrectOption, &lvl, &q.MediaRef); err != nil {
			return nil, err
		}
		q.Section, q.Level = Section(sec), Level(lvl)
		if err := json.Unmarshal([]byte(oj), &q.Options); err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

func (s *SQLStore) OnChange(fn func()) {
	s.mu.Lock()
	s.watchers = append(s.watchers, fn)
	s.mu.Unlock()
}

func (s *SQLStore) notify() {
	s.mu.Lock()
	ws := make([]func(), len(s.watchers))
	copy(ws, s.watchers)
	s.mu.Unlock()
	for _, fn := range ws {
		fn()
	}
}
