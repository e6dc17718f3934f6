package queue

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Producer publishes grading jobs and grading events
type Producer struct {
	conn *Connection
}

// NewProducer creates a new queue producer
func NewProducer(conn *Connection) *Producer {
	return &Producer{conn: conn}
}

// Dispatch publishes a grading job to the grading queue.
func (p *Producer) Dispatch(ctx context.Context, job *GradingJob) error {
	if job.ID == uuid.Nil {
		job.ID = uuid.New()
	}
	if job.EnqueuedAt.IsZero() {
		job.EnqueuedAt = time.Now()
	}

	if err := p.conn.PublishJSON(ctx, GradingQueueName, job); err != nil {
		return fmt.Errorf("failed to publish grading job: %w", err)
	}

	slog.Info("published grading job",
		"job_id", job.ID,
		"user_id", job.UserID,
		"task_id", job.TaskID,
	)

	return nil
}

// PublishEvent publishes a grading event to the events queue
func (p *Producer) PublishEvent(ctx context.Context, event *GradingEvent) error {
	if event.CompletedAt.IsZero() {
		event.CompletedAt = time.Now()
	}

	if err := p.conn.PublishJSON(ctx, EventsQueueName, event); err != nil {
		return fmt.Errorf("failed to publish grading event: %w", err)
	}

	slog.Info("published grading event",
		"job_id", event.JobID,
		"status", event.Status,
		"duration", event.Duration,
	)

	return nil
}

// Ensure Producer implements Dispatcher
var _ Dispatcher = (*Producer)(nil)
