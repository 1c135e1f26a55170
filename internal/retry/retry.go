package retry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"time"

	"github.com/amishk599/jobscout/internal/model"
)

// Retrier re-runs an operation on transient failures with exponential
// backoff and jitter.
type Retrier struct {
	maxRetries int
	baseDelay  time.Duration
	logger     *slog.Logger
}

// New returns a Retrier.
// maxRetries is the number of additional attempts after the first failure.
// baseDelay is the delay before the first retry, doubled on each subsequent retry.
func New(maxRetries int, baseDelay time.Duration, logger *slog.Logger) *Retrier {
	return &Retrier{
		maxRetries: maxRetries,
		baseDelay:  baseDelay,
		logger:     logger,
	}
}

// Do calls fn until it succeeds, fails with a non-retryable error, or the
// retry budget is spent. attempt is 0 on the first call, so fn can tell a
// retry apart and refresh whatever state failed (proxy, browser context).
func (r *Retrier) Do(ctx context.Context, fn func(ctx context.Context, attempt int) error) error {
	err := fn(ctx, 0)
	if err == nil {
		return nil
	}
	if !IsRetryable(err) {
		return err
	}

	lastErr := err
	for attempt := 1; attempt <= r.maxRetries; attempt++ {
		delay := r.backoffDelay(attempt)

		r.logger.Warn("retrying after transient error",
			"attempt", attempt,
			"max_retries", r.maxRetries,
			"delay", delay,
			"error", lastErr,
		)

		t := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			t.Stop()
			return fmt.Errorf("retry cancelled: %w", ctx.Err())
		case <-t.C:
		}

		err = fn(ctx, attempt)
		if err == nil {
			return nil
		}
		if !IsRetryable(err) {
			return err
		}
		lastErr = err
	}

	return lastErr
}

// backoffDelay computes the delay for a given attempt with ±30% jitter.
func (r *Retrier) backoffDelay(attempt int) time.Duration {
	// Exponential: baseDelay * 2^(attempt-1)
	delay := r.baseDelay
	for i := 1; i < attempt; i++ {
		delay *= 2
	}

	jitter := float64(delay) * 0.3
	return time.Duration(float64(delay) + (rand.Float64()*2-1)*jitter)
}

// IsRetryable returns true if the error represents a transient failure worth retrying.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	// Cancellation is final.
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var navErr *model.NavigationError
	if errors.As(err, &navErr) && navErr.StatusCode != 0 {
		switch {
		case navErr.StatusCode == http.StatusTooManyRequests:
			return true
		case navErr.StatusCode >= 500:
			return true
		case navErr.StatusCode >= 400:
			// A missing or gone posting stays missing.
			return false
		}
	}

	// Timeouts, proxy refusals, empty essential fields: worth another try.
	return true
}
