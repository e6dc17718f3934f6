package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/teoneo-site/teoneo-courses/internal/domain"
)

// ProgressStore persists per-(user, task) progress records.
type ProgressStore struct {
	db *DB
}

// NewProgressStore creates a new ProgressStore.
func NewProgressStore(db *DB) *ProgressStore {
	return &ProgressStore{db: db}
}

// Upsert writes the progress record for (user, task), creating it if this is
// the first write. The attempts arithmetic lives in SQL so that concurrent
// writers cannot base the counter on a stale read: an EVAL checkpoint keeps
// the counter, a terminal status consumes exactly one attempt.
func (s *ProgressStore) Upsert(ctx context.Context, userID, taskID int64, status domain.ProgressStatus, submission json.RawMessage, score float64) error {
	if len(submission) == 0 {
		submission = json.RawMessage(`{}`)
	}

	_, err := s.db.pool.Exec(ctx, `
		INSERT INTO task_progress (user_id, task_id, status, submission, score, attempts, updated_at)
		VALUES ($1, $2, $3, $4, $5, CASE WHEN $3 = 'EVAL' THEN 0 ELSE 1 END, now())
		ON CONFLICT (user_id, task_id) DO UPDATE SET
			status = EXCLUDED.status,
			submission = EXCLUDED.submission,
			score = EXCLUDED.score,
			attempts = CASE WHEN EXCLUDED.status = 'EVAL'
				THEN task_progress.attempts
				ELSE task_progress.attempts + 1 END,
			updated_at = now()`,
		userID, taskID, string(status), submission, score,
	)
	if err != nil {
		return fmt.Errorf("upsert progress: %w", err)
	}
	return nil
}

// Get retrieves the progress record for (user, task). A user who never
// submitted has no row, which surfaces as domain.ErrProgressNotFound.
func (s *ProgressStore) Get(ctx context.Context, userID, taskID int64) (*domain.Progress, error) {
	row := s.db.pool.QueryRow(ctx, `
		SELECT id, user_id, task_id, status, submission, score, attempts, updated_at
		FROM task_progress
		WHERE user_id = $1 AND task_id = $2`,
		userID, taskID,
	)

	var p domain.Progress
	var status string
	if err := row.Scan(&p.ID, &p.UserID, &p.TaskID, &status, &p.Submission, &p.Score, &p.Attempts, &p.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrProgressNotFound
		}
		return nil, fmt.Errorf("get progress: %w", err)
	}

	parsed, err := domain.ParseProgressStatus(status)
	if err != nil {
		return nil, err
	}
	p.Status = parsed
	return &p, nil
}

// AttemptCounts returns the user's consumed attempts and the task's attempt
// ceiling. A user with no progress row yet has zero attempts, so the join
// starts from the prompt's answer key rather than the progress table.
func (s *ProgressStore) AttemptCounts(ctx context.Context, userID, taskID int64) (attempts, maxAttempts int, err error) {
	row := s.db.pool.QueryRow(ctx, `
		SELECT COALESCE(tp.attempts, 0), p.max_attempts
		FROM prompts p
		LEFT JOIN task_progress tp ON tp.task_id = p.task_id AND tp.user_id = $1
		WHERE p.task_id = $2`,
		userID, taskID,
	)

	if err := row.Scan(&attempts, &maxAttempts); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, 0, domain.ErrAnswerKeyNotFound
		}
		return 0, 0, fmt.Errorf("attempt counts: %w", err)
	}
	return attempts, maxAttempts, nil
}
