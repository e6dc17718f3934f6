package grader

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/felixgeelhaar/fortify/bulkhead"
	"github.com/felixgeelhaar/fortify/circuitbreaker"
	"github.com/felixgeelhaar/fortify/ratelimit"
	"github.com/felixgeelhaar/fortify/retry"
)

// Resilient wraps a grading client with resilience patterns from fortify.
// Grading runs in background workers, so a misbehaving upstream must be
// shed rather than allowed to pile up work.
type Resilient struct {
	client         Client
	circuitBreaker circuitbreaker.CircuitBreaker[string]
	retrier        retry.Retry[string]
	bulkhead       bulkhead.Bulkhead[string]
	rateLimit      ratelimit.RateLimiter
}

// ResilientConfig holds configuration for the resilient wrapper.
type ResilientConfig struct {
	// MaxConcurrent bounds in-flight grading calls (default: 5)
	MaxConcurrent int

	// RatePerSecond bounds the call rate to the upstream (default: 2)
	RatePerSecond int
}

// NewResilient wraps a client with circuit breaker, retry, bulkhead and
// rate limiting.
func NewResilient(client Client, cfg ResilientConfig) *Resilient {
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 5
	}
	if cfg.RatePerSecond <= 0 {
		cfg.RatePerSecond = 2
	}

	return &Resilient{
		client: client,
		circuitBreaker: circuitbreaker.New[string](circuitbreaker.Config{
			MaxRequests: 2,
			Interval:    10 * time.Second,
			Timeout:     60 * time.Second,
			ReadyToTrip: func(counts circuitbreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 3
			},
			OnStateChange: func(from, to circuitbreaker.State) {
				slog.Warn("grader circuit breaker state change",
					"from", from.String(),
					"to", to.String())
			},
		}),
		retrier: retry.New[string](retry.Config{
			MaxAttempts:   3,
			InitialDelay:  2 * time.Second,
			MaxDelay:      30 * time.Second,
			Multiplier:    2.0,
			BackoffPolicy: retry.BackoffExponential,
			Jitter:        true,
			IsRetryable:   isRetryableHTTPError,
		}),
		bulkhead: bulkhead.New[string](bulkhead.Config{
			MaxConcurrent: cfg.MaxConcurrent,
			MaxQueue:      cfg.MaxConcurrent * 2,
			QueueTimeout:  30 * time.Second,
		}),
		rateLimit: ratelimit.New(&ratelimit.Config{
			Rate:     cfg.RatePerSecond,
			Burst:    cfg.RatePerSecond * 3,
			Interval: time.Second,
		}),
	}
}

// Send applies rate limiting, then bulkhead, then circuit breaker + retry
// around the wrapped client's call.
func (r *Resilient) Send(ctx context.Context, prompt string) (string, error) {
	if !r.rateLimit.Allow(ctx, "grader") {
		return "", fmt.Errorf("grader rate limit exceeded")
	}

	operation := func(ctx context.Context) (string, error) {
		return r.bulkhead.Execute(ctx, func(ctx context.Context) (string, error) {
			return r.client.Send(ctx, prompt)
		})
	}

	return r.circuitBreaker.Execute(ctx, func(ctx context.Context) (string, error) {
		return r.retrier.Do(ctx, operation)
	})
}

// Close releases resources held by the wrapper.
func (r *Resilient) Close() error {
	return r.rateLimit.Close()
}

// isRetryableHTTPError checks whether an error is retryable based on HTTP
// semantics embedded in the error text.
func isRetryableHTTPError(err error) bool {
	if err == nil {
		return false
	}

	errStr := err.Error()
	retryable := []string{
		fmt.Sprintf("status %d", http.StatusTooManyRequests),
		fmt.Sprintf("status %d", http.StatusInternalServerError),
		fmt.Sprintf("status %d", http.StatusBadGateway),
		fmt.Sprintf("status %d", http.StatusServiceUnavailable),
		fmt.Sprintf("status %d", http.StatusGatewayTimeout),
	}
	for _, pattern := range retryable {
		if strings.Contains(errStr, pattern) {
			return true
		}
	}
	return false
}

// Ensure Resilient implements Client
var _ Client = (*Resilient)(nil)
