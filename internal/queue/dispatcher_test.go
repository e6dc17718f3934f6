package queue_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/teoneo-site/teoneo-courses/internal/queue"
)

// eventSink collects events from the in-process dispatcher.
type eventSink struct {
	mu     sync.Mutex
	events []*queue.GradingEvent
}

func (s *eventSink) record(e *queue.GradingEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
}

func (s *eventSink) all() []*queue.GradingEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*queue.GradingEvent(nil), s.events...)
}

func TestInProcess_Dispatch_Completed(t *testing.T) {
	sink := &eventSink{}
	handler := func(ctx context.Context, job *queue.GradingJob) (*queue.GradingEvent, error) {
		return &queue.GradingEvent{
			UserID: job.UserID,
			TaskID: job.TaskID,
			Score:  0.8,
		}, nil
	}

	d := queue.NewInProcess(handler, time.Second, sink.record)

	job := &queue.GradingJob{UserID: 12, TaskID: 9, UserPrompt: "p"}
	if err := d.Dispatch(context.Background(), job); err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}
	d.Wait()

	events := sink.all()
	if len(events) != 1 {
		t.Fatalf("got %d events; want 1", len(events))
	}
	event := events[0]
	if event.Status != "completed" {
		t.Errorf("Status = %q; want completed", event.Status)
	}
	if event.Score != 0.8 {
		t.Errorf("Score = %v; want 0.8", event.Score)
	}
	if event.JobID == uuid.Nil {
		t.Error("JobID not assigned")
	}
	if event.CompletedAt.IsZero() {
		t.Error("CompletedAt not set")
	}
}

func TestInProcess_Dispatch_FailureContained(t *testing.T) {
	sink := &eventSink{}
	handler := func(ctx context.Context, job *queue.GradingJob) (*queue.GradingEvent, error) {
		return nil, errors.New("grader is down")
	}

	d := queue.NewInProcess(handler, time.Second, sink.record)

	if err := d.Dispatch(context.Background(), &queue.GradingJob{UserID: 12, TaskID: 9}); err != nil {
		t.Fatalf("Dispatch() error = %v; failures must stay inside the job", err)
	}
	d.Wait()

	events := sink.all()
	if len(events) != 1 {
		t.Fatalf("got %d events; want 1 failure event", len(events))
	}
	if events[0].Status != "failed" {
		t.Errorf("Status = %q; want failed", events[0].Status)
	}
	if events[0].Error != "grader is down" {
		t.Errorf("Error = %q; want handler error text", events[0].Error)
	}
	if events[0].UserID != 12 || events[0].TaskID != 9 {
		t.Errorf("event identity = (%d, %d); want (12, 9)", events[0].UserID, events[0].TaskID)
	}
}

func TestInProcess_Dispatch_OutlivesRequestContext(t *testing.T) {
	sink := &eventSink{}
	started := make(chan struct{})
	handler := func(ctx context.Context, job *queue.GradingJob) (*queue.GradingEvent, error) {
		close(started)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(50 * time.Millisecond):
			return &queue.GradingEvent{}, nil
		}
	}

	d := queue.NewInProcess(handler, time.Second, sink.record)

	// Cancel the request context immediately after dispatch; the job must
	// still run to completion on its own context.
	reqCtx, cancel := context.WithCancel(context.Background())
	if err := d.Dispatch(reqCtx, &queue.GradingJob{}); err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}
	<-started
	cancel()
	d.Wait()

	events := sink.all()
	if len(events) != 1 || events[0].Status != "completed" {
		t.Fatalf("events = %+v; want one completed event despite request cancellation", events)
	}
}
