package retry

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

// Policy bounds how often Do calls fn and how long it waits in between.
type Policy struct {
	MaxRetries int
	Backoff    time.Duration
	// Op names the call in attempt logs.
	Op     string
	Logger *zap.Logger
}

type permanentError struct{ err error }

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as one a retry cannot fix, such as a malformed
// contract response.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether err carries a Permanent mark.
func IsPermanent(err error) bool {
	var p *permanentError
	return errors.As(err, &p)
}

// Do runs fn until it succeeds, doubling the delay after each failure. A
// Permanent error ends the loop at once.
func Do(ctx context.Context, policy Policy, fn func(context.Context) error) error {
	maxRetries := policy.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}
	delay := policy.Backoff
	if delay <= 0 {
		delay = 100 * time.Millisecond
	}
	logger := policy.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	for attempt := 0; ; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if IsPermanent(err) {
			logger.Warn("permanent failure", zap.String("op", policy.Op), zap.Int("attempt", attempt+1), zap.Error(err))
			return err
		}
		if attempt >= maxRetries {
			logger.Warn("retries exhausted", zap.String("op", policy.Op), zap.Int("attempts", attempt+1), zap.Error(err))
			return err
		}
		logger.Warn("attempt failed",
			zap.String("op", policy.Op),
			zap.Int("attempt", attempt+1),
			zap.Duration("backoff", delay),
			zap.Error(err),
		)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		delay *= 2
	}
}
