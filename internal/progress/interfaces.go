package progress

import (
	"context"
	"encoding/json"

	"github.com/teoneo-site/teoneo-courses/internal/domain"
)

// ProgressStore is the durable source of truth for progress records.
type ProgressStore interface {
	// Upsert writes the record for (user, task). The store owns the attempts
	// arithmetic: EVAL writes keep the counter, terminal writes add one.
	Upsert(ctx context.Context, userID, taskID int64, status domain.ProgressStatus, submission json.RawMessage, score float64) error

	// Get returns the record or domain.ErrProgressNotFound.
	Get(ctx context.Context, userID, taskID int64) (*domain.Progress, error)

	// AttemptCounts returns the user's consumed attempts and the task's
	// ceiling for attempt-limited tasks.
	AttemptCounts(ctx context.Context, userID, taskID int64) (attempts, maxAttempts int, err error)
}

// TaskStore serves the grading reference data.
type TaskStore interface {
	TaskType(ctx context.Context, taskID int64) (domain.TaskType, error)
	AnswerKey(ctx context.Context, taskType domain.TaskType, taskID int64) (*domain.AnswerKey, error)
}

// Invalidator removes the cache entries made stale by a progress write.
type Invalidator interface {
	OnProgressWrite(ctx context.Context, userID, taskID int64)
}
