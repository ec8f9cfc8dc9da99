package moderation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go-gin-event-admission/config"
	"go-gin-event-admission/internal/metrics"
	"go-gin-event-admission/pkg/logger"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as not worth retrying.
func Permanent(err error) error {
	return &permanentError{err: err}
}

// Caller runs calls against one external service: each attempt gets its own
// timeout, failed attempts are retried with exponential backoff, and at most
// a fixed number of calls are in flight at once.
type Caller struct {
	service  string
	sem      *semaphore.Weighted
	attempts int
	timeout  time.Duration
	base     time.Duration
	max      time.Duration
}

func NewCaller(service string, attempts int, cfg config.ModerationConfig) *Caller {
	if attempts < 1 {
		attempts = 1
	}
	limit := cfg.MaxConcurrentCalls
	if limit < 1 {
		limit = 1
	}
	return &Caller{
		service:  service,
		sem:      semaphore.NewWeighted(limit),
		attempts: attempts,
		timeout:  cfg.CallTimeout,
		base:     cfg.BackoffBase,
		max:      cfg.BackoffMax,
	}
}

// Do calls fn until it succeeds, returns a Permanent error, or the attempts
// run out. Cancellation of ctx stops immediately and returns ctx.Err().
func (c *Caller) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	log := logger.WithComponent("moderation").With(zap.String("service", c.service))
	backoff := c.base

	var lastErr error
	for attempt := 1; attempt <= c.attempts; attempt++ {
		err := c.once(ctx, fn)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		var permanent *permanentError
		if errors.As(err, &permanent) {
			return permanent.err
		}

		lastErr = err
		if attempt == c.attempts {
			break
		}

		log.Warn("external call failed, retrying",
			zap.Int("attempt", attempt),
			zap.Duration("backoff", backoff),
			zap.Error(err),
		)

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		backoff *= 2
		if backoff > c.max {
			backoff = c.max
		}
	}

	return fmt.Errorf("%s: %d attempts failed: %w", c.service, c.attempts, lastErr)
}

func (c *Caller) once(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := c.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer c.sem.Release(1)

	callCtx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	start := time.Now()
	err := fn(callCtx)
	result := "ok"
	if err != nil {
		result = "error"
	}
	metrics.ObserveExternalCall(c.service, result, time.Since(start))
	return err
}
