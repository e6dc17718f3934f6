// Package progress owns the submission state machine: every task submission
// passes through an interim EVAL checkpoint before a grader moves it to a
// terminal SUCCESS or FAILED record. Quiz, match and lecture submissions
// complete within the request; prompt submissions cross the async grading
// boundary and complete from a worker.
package progress

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/teoneo-site/teoneo-courses/internal/cache"
	"github.com/teoneo-site/teoneo-courses/internal/domain"
	"github.com/teoneo-site/teoneo-courses/internal/grading"
	"github.com/teoneo-site/teoneo-courses/internal/queue"
)

// emptySubmission is the interim record body before a grader has run.
var emptySubmission = json.RawMessage(`{}`)

// Service drives progress records through EVAL to a terminal status.
type Service struct {
	store       ProgressStore
	tasks       TaskStore
	cache       cache.Cache
	invalidator Invalidator
	strategies  *grading.Selector
	dispatcher  queue.Dispatcher
	logger      *slog.Logger
}

// NewService creates the submission service.
func NewService(
	store ProgressStore,
	tasks TaskStore,
	c cache.Cache,
	invalidator Invalidator,
	strategies *grading.Selector,
	dispatcher queue.Dispatcher,
	logger *slog.Logger,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:       store,
		tasks:       tasks,
		cache:       c,
		invalidator: invalidator,
		strategies:  strategies,
		dispatcher:  dispatcher,
		logger:      logger,
	}
}

// Submit accepts one submission for (user, task). Quiz, match and lecture
// submissions return with a terminal record already written; prompt
// submissions return once the grading job is dispatched, leaving the record
// in EVAL until the worker completes it.
//
// Returns domain.ErrMaxAttemptsExceeded, with no write performed, when an
// attempt-limited task is already at its ceiling.
func (s *Service) Submit(ctx context.Context, userID, taskID int64, payload json.RawMessage) error {
	taskType, err := s.tasks.TaskType(ctx, taskID)
	if err != nil {
		return err
	}

	if err := validatePayload(taskType, payload); err != nil {
		return err
	}

	// The limit check runs before the EVAL write so a rejected submission
	// leaves no trace: no interim record, no invalidation, no grader call.
	if taskType.AttemptLimited() {
		attempts, maxAttempts, err := s.store.AttemptCounts(ctx, userID, taskID)
		if err != nil {
			return err
		}
		if attempts >= maxAttempts {
			return fmt.Errorf("%w: %d of %d used", domain.ErrMaxAttemptsExceeded, attempts, maxAttempts)
		}
	}

	// Interim checkpoint. Visible to concurrent readers, keeps the attempt
	// counter unchanged.
	if err := s.write(ctx, userID, taskID, domain.StatusEval, emptySubmission, 0); err != nil {
		return err
	}

	if taskType == domain.TaskPrompt {
		var sub promptSubmission
		if err := json.Unmarshal(payload, &sub); err != nil {
			return fmt.Errorf("%w: %v", domain.ErrInvalidSubmission, err)
		}
		job := &queue.GradingJob{
			UserID:     userID,
			TaskID:     taskID,
			UserPrompt: sub.UserPrompt,
		}
		if err := s.dispatcher.Dispatch(ctx, job); err != nil {
			return fmt.Errorf("dispatch grading job: %w", err)
		}
		s.logger.Info("grading job dispatched", "user_id", userID, "task_id", taskID)
		return nil
	}

	key, err := s.answerKey(ctx, taskType, taskID)
	if err != nil {
		return err
	}

	outcome, err := s.strategies.ForType(taskType).Grade(ctx, payload, key)
	if err != nil {
		return err
	}
	return s.complete(ctx, userID, taskID, outcome)
}

// GetProgress returns the current record for (user, task), reading through
// the cache. Returns domain.ErrProgressNotFound when the user never
// submitted the task.
func (s *Service) GetProgress(ctx context.Context, userID, taskID int64) (*domain.Progress, error) {
	key := cache.ProgressKey(userID, taskID)
	if raw, ok := s.cache.Get(ctx, key); ok {
		var p domain.Progress
		if err := json.Unmarshal(raw, &p); err == nil {
			return &p, nil
		}
		// Unreadable entry: drop it and fall through to the store.
		s.cache.Delete(ctx, key)
	}

	p, err := s.store.Get(ctx, userID, taskID)
	if err != nil {
		return nil, err
	}

	if raw, err := json.Marshal(p); err == nil {
		s.cache.Set(ctx, key, raw, cache.ShortTTL)
	}
	return p, nil
}

// HandleGradingJob runs the AI grading for a dispatched job and completes
// the progress record. It satisfies queue.JobHandler; a returned error means
// the record stays in EVAL and the queue layer publishes a failed event.
func (s *Service) HandleGradingJob(ctx context.Context, job *queue.GradingJob) (*queue.GradingEvent, error) {
	started := time.Now()

	key, err := s.answerKey(ctx, domain.TaskPrompt, job.TaskID)
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(promptSubmission{UserPrompt: job.UserPrompt})
	if err != nil {
		return nil, fmt.Errorf("serialize submission: %w", err)
	}

	outcome, err := s.strategies.ForType(domain.TaskPrompt).Grade(ctx, payload, key)
	if err != nil {
		return nil, err
	}

	if err := s.complete(ctx, job.UserID, job.TaskID, outcome); err != nil {
		return nil, err
	}

	s.logger.Info("grading job completed",
		"job_id", job.ID,
		"user_id", job.UserID,
		"task_id", job.TaskID,
		"status", outcome.Status,
		"score", outcome.Score,
	)

	return &queue.GradingEvent{
		JobID:       job.ID,
		UserID:      job.UserID,
		TaskID:      job.TaskID,
		Status:      "completed",
		Score:       outcome.Score,
		Duration:    time.Since(started),
		CompletedAt: time.Now().UTC(),
	}, nil
}

// complete writes the terminal outcome and invalidates the stale cache
// entries, in that order, so readers racing the invalidation rebuild from
// the already-committed row.
func (s *Service) complete(ctx context.Context, userID, taskID int64, outcome *domain.Outcome) error {
	return s.write(ctx, userID, taskID, outcome.Status, outcome.Submission, outcome.Score)
}

func (s *Service) write(ctx context.Context, userID, taskID int64, status domain.ProgressStatus, submission json.RawMessage, score float64) error {
	if err := s.store.Upsert(ctx, userID, taskID, status, submission, score); err != nil {
		return fmt.Errorf("write progress: %w", err)
	}
	s.invalidator.OnProgressWrite(ctx, userID, taskID)
	return nil
}

// answerKey fetches the grading reference data for key-driven types; the
// pass-through lecture grader needs none.
func (s *Service) answerKey(ctx context.Context, taskType domain.TaskType, taskID int64) (*domain.AnswerKey, error) {
	if taskType == domain.TaskLecture {
		return &domain.AnswerKey{TaskID: taskID, Type: taskType}, nil
	}
	key, err := s.tasks.AnswerKey(ctx, taskType, taskID)
	if err != nil {
		if errors.Is(err, domain.ErrAnswerKeyNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load answer key: %w", err)
	}
	return key, nil
}

// promptSubmission is the structured payload prompt-task clients send.
type promptSubmission struct {
	UserPrompt string `json:"user_prompt"`
}

// validatePayload rejects malformed submissions before any state changes,
// so synchronous grading cannot fail after the interim checkpoint.
func validatePayload(taskType domain.TaskType, payload json.RawMessage) error {
	switch taskType {
	case domain.TaskQuiz, domain.TaskMatch:
		var sub struct {
			Answers *[]int `json:"answers"`
		}
		if err := json.Unmarshal(payload, &sub); err != nil {
			return fmt.Errorf("%w: %v", domain.ErrInvalidSubmission, err)
		}
		if sub.Answers == nil {
			return fmt.Errorf("%w: missing answers", domain.ErrInvalidSubmission)
		}
	case domain.TaskPrompt:
		var sub promptSubmission
		if err := json.Unmarshal(payload, &sub); err != nil {
			return fmt.Errorf("%w: %v", domain.ErrInvalidSubmission, err)
		}
	case domain.TaskLecture:
		// Lectures carry no gradeable payload.
	default:
		return domain.ErrUnknownTaskType
	}
	return nil
}

var _ queue.JobHandler = (&Service{}).HandleGradingJob
