package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// JobHandler runs one grading job to its terminal write and reports the
// event to publish. A returned error means the job failed without a
// terminal write; the consumer publishes a failure event and acks.
type JobHandler func(ctx context.Context, job *GradingJob) (*GradingEvent, error)

// Consumer consumes grading jobs from the queue
type Consumer struct {
	conn       *Connection
	handler    JobHandler
	producer   *Producer
	workers    int
	prefetch   int
	jobTimeout time.Duration
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
}

// ConsumerConfig holds consumer configuration
type ConsumerConfig struct {
	Workers    int           // Number of concurrent workers
	Prefetch   int           // Prefetch count per worker
	JobTimeout time.Duration // Upper bound on one grading call chain
}

// DefaultConsumerConfig returns sensible defaults
func DefaultConsumerConfig() ConsumerConfig {
	return ConsumerConfig{
		Workers:    3,
		Prefetch:   1, // Process one at a time per worker for fairness
		JobTimeout: 120 * time.Second,
	}
}

// NewConsumer creates a new queue consumer
func NewConsumer(conn *Connection, handler JobHandler, cfg ConsumerConfig) *Consumer {
	if cfg.Workers <= 0 {
		cfg.Workers = 3
	}
	if cfg.Prefetch <= 0 {
		cfg.Prefetch = 1
	}
	if cfg.JobTimeout <= 0 {
		cfg.JobTimeout = 120 * time.Second
	}

	return &Consumer{
		conn:       conn,
		handler:    handler,
		producer:   NewProducer(conn),
		workers:    cfg.Workers,
		prefetch:   cfg.Prefetch,
		jobTimeout: cfg.JobTimeout,
	}
}

// Start begins consuming messages
func (c *Consumer) Start(ctx context.Context) error {
	ctx, c.cancelFunc = context.WithCancel(ctx)

	ch := c.conn.Channel()

	// Set QoS (prefetch)
	if err := ch.Qos(c.prefetch, 0, false); err != nil {
		return fmt.Errorf("failed to set QoS: %w", err)
	}

	// Start consuming
	msgs, err := ch.Consume(
		GradingQueueName,
		"",    // consumer tag (auto-generated)
		false, // auto-ack (manual ack for reliability)
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,   // args
	)
	if err != nil {
		return fmt.Errorf("failed to start consuming: %w", err)
	}

	slog.Info("starting grading queue consumer", "workers", c.workers, "prefetch", c.prefetch)

	for i := 0; i < c.workers; i++ {
		c.wg.Add(1)
		go c.worker(ctx, i, msgs)
	}

	return nil
}

// worker processes messages from the queue
func (c *Consumer) worker(ctx context.Context, id int, msgs <-chan amqp.Delivery) {
	defer c.wg.Done()

	slog.Info("grading worker started", "worker_id", id)

	for {
		select {
		case <-ctx.Done():
			slog.Info("grading worker stopping", "worker_id", id)
			return

		case msg, ok := <-msgs:
			if !ok {
				slog.Info("message channel closed", "worker_id", id)
				return
			}

			c.processMessage(ctx, id, msg)
		}
	}
}

// processMessage handles a single grading job. Failures are contained here:
// the record stays in EVAL, a failure event is published, and the message
// is acked so a poisonous job cannot wedge the queue.
func (c *Consumer) processMessage(ctx context.Context, workerID int, msg amqp.Delivery) {
	start := time.Now()

	var job GradingJob
	if err := json.Unmarshal(msg.Body, &job); err != nil {
		slog.Error("failed to unmarshal grading job",
			"worker_id", workerID,
			"error", err,
		)
		// Reject without requeue for malformed messages
		_ = msg.Reject(false)
		return
	}

	slog.Info("processing grading job",
		"worker_id", workerID,
		"job_id", job.ID,
		"user_id", job.UserID,
		"task_id", job.TaskID,
	)

	jobCtx, cancel := context.WithTimeout(ctx, c.jobTimeout)
	defer cancel()

	event, err := c.handler(jobCtx, &job)
	duration := time.Since(start)

	if err != nil {
		slog.Error("grading job failed",
			"worker_id", workerID,
			"job_id", job.ID,
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
			"worker_id", workerID,
			"job_id", job.ID,
			"status", event.Status,
			"duration", duration,
		)
	}

	if err := c.producer.PublishEvent(ctx, event); err != nil {
		slog.Error("failed to publish grading event",
			"worker_id", workerID,
			"job_id", job.ID,
			"error", err,
		)
	}

	if err := msg.Ack(false); err != nil {
		slog.Error("failed to ack message",
			"worker_id", workerID,
			"job_id", job.ID,
			"error", err,
		)
	}
}

// Stop gracefully stops the consumer
func (c *Consumer) Stop() {
	if c.cancelFunc != nil {
		c.cancelFunc()
	}
	c.wg.Wait()
	slog.Info("consumer stopped")
}
