package progress

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log"
	"time"

	"github.com/linguagate/linguagate/internal/catalog"
	"github.com/linguagate/linguagate/internal/scoring"
)

// SQLStore persists user progress and results. Writes are retried with
// backoff; a write that ultimately fails is logged and surfaced, but the
// caller's in-memory state stays authoritative until the next save.
type SQLStore struct {
	db          *sql.DB
	maxAttempts int
	backoff     time.Duration
	sleep       func(time.Duration)
}

func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{
		db:          db,
		maxAttempts: 3,
		backoff:     200 * time.Millisecond,
		sleep:       time.Sleep,
	}
}

func (s *SQLStore) LoadProgress(ctx context.Context, userID string) (Progress, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT completed_exam_ids_json, last_completed_at FROM user_progress WHERE user_id=$1`, userID)
	var idsJSON string
	var last int64
	if err := row.Scan(&idsJSON, &last); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Progress{UserID: userID}, nil
		}
		return Progress{}, err
	}
	p := Progress{UserID: userID, LastCompletedAt: time.Unix(last, 0).UTC()}
	if err := json.Unmarshal([]byte(idsJSON), &p.CompletedExamSetIDs); err != nil {
		return Progress{}, err
	}
	return p, nil
}

func (s *SQLStore) SaveProgress(ctx context.Context, p Progress) error {
	ids, err := json.Marshal(p.CompletedExamSetIDs)
	if err != nil {
		return err
	}
	return s.withRetry(ctx, "save progress "+p.UserID, func() error {
		_, err := s.db.ExecContext(ctx, `INSERT INTO user_progress (user_id, completed_exam_ids_json, last_completed_at)
			VALUES ($1,$2,$3)
			ON CONFLICT (user_id) DO UPDATE SET completed_exam_ids_json=EXCLUDED.completed_exam_ids_json,
				last_completed_at=EXCLUDED.last_completed_at`,
			p.UserID, string(ids), p.LastCompletedAt.Unix())
		return err
	})
}

func (s *SQLStore) SaveResult(ctx context.Context, userID string, res scoring.Result, completedAt time.Time) error {
	return s.withRetry(ctx, "save result "+userID, func() error {
		_, err := s.db.ExecContext(ctx, `INSERT INTO results
			(user_id, exam_set_id, score, level, correct_count, incorrect_count, unanswered_count, completed_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
			ON CONFLICT (user_id, exam_set_id) DO UPDATE SET score=EXCLUDED.score, level=EXCLUDED.level,
				correct_count=EXCLUDED.correct_count, incorrect_count=EXCLUDED.incorrect_count,
				unanswered_count=EXCLUDED.unanswered_count, completed_at=EXCLUDED.completed_at`,
			userID, res.ExamSetID, res.Score, string(res.Level),
			res.CorrectCount, res.IncorrectCount, res.UnansweredCount, completedAt.Unix())
		return err
	})
}

func (s *SQLStore) ListResults(ctx context.Context, userID string) ([]StoredResult, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT exam_set_id, score, level, correct_count,
			incorrect_count, unanswered_count, completed_at
		FROM results WHERE user_id=$1 ORDER BY exam_set_id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []StoredResult
	for rows.Next() {
		var r StoredResult
		var lvl string
		var at int64
		if err := rows.Scan(&r.ExamSetID, &r.Score, &lvl, &r.CorrectCount,
			&r.IncorrectCount, &r.UnansweredCount, &at); err != nil {
			return nil, err
		}
		r.Level = catalog.Level(lvl)
		r.CompletedAt = time.Unix(at, 0).UTC()
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *SQLStore) withRetry(ctx context.Context, what string, fn func() error) error {
	var err error
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		if err = fn(); err == nil {
			return nil
		}
		log.Printf("progress: %s failed (attempt %d/%d): %v", what, attempt, s.maxAttempts, err)
		if attempt < s.maxAttempts {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			s.sleep(s.backoff << (attempt - 1))
		}
	}
	return err
}
