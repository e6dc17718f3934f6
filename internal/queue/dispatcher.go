package queue

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InProcess runs grading jobs on background goroutines inside the API
// binary. It backs single-binary deployments without a broker and keeps the
// same containment contract as the AMQP path: a failed job logs, emits a
// failure event through the callback, and leaves the record in EVAL.
type InProcess struct {
	handler    JobHandler
	onEvent    func(*GradingEvent)
	jobTimeout time.Duration
	wg         sync.WaitGroup
}

// NewInProcess creates an in-process dispatcher. onEvent may be nil; events
// are then only logged.
func NewInProcess(handler JobHandler, jobTimeout time.Duration, onEvent func(*GradingEvent)) *InProcess {
	if jobTimeout <= 0 {
		jobTimeout = 120 * time.Second
	}
	return &InProcess{
		handler:    handler,
		onEvent:    onEvent,
		jobTimeout: jobTimeout,
	}
}

// Dispatch runs the job on a detached goroutine. The job outlives the
// originating request, so the goroutine carries its own timeout context
// rather than the request's.
func (d *InProcess) Dispatch(ctx context.Context, job *GradingJob) error {
	if job.ID == uuid.Nil {
		job.ID = uuid.New()
	}
	if job.EnqueuedAt.IsZero() {
		job.EnqueuedAt = time.Now()
	}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		start := time.Now()

		jobCtx, cancel := context.WithTimeout(context.Background(), d.jobTimeout)
		defer cancel()

		event, err := d.handler(jobCtx, job)
		duration := time.Since(start)

		if err != nil {
			slog.Error("grading job failed",
				"job_id", job.ID,
				"user_id", job.UserID,
				"task_id", job.TaskID,
				"error", err,
				"duration", duration,
			)
			event = &GradingEvent{
				JobID:       job.ID,
				UserID:      job.UserID,
				TaskID:      job.TaskID,
				Status:      "failed",
				Error:       err.Error(),
				Duration:    duration,
				CompletedAt: time.Now(),
			}
		} else {
			event.JobID = job.ID
			event.Duration = duration
			event.CompletedAt = time.Now()
			if event.Status == "" {
				event.Status = "completed"
			}
			slog.Info("grading job completed",
				"job_id", job.ID,
				"status", event.Status,
				"duration", duration,
			)
		}

		if d.onEvent != nil {
			d.onEvent(event)
		}
	}()

	return nil
}

// Wait blocks until all dispatched jobs finished; used on shutdown and in
// tests.
func (d *InProcess) Wait() {
	d.wg.Wait()
}

// Ensure InProcess implements Dispatcher
var _ Dispatcher = (*InProcess)(nil)
