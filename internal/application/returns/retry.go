package returns

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"library-backend/internal/domain"
)

const (
	defaultMaxAttempts  = 4
	defaultBaseDelay    = 20 * time.Millisecond
	defaultJitterFactor = 0.3
)

// permanent errors are business outcomes or caller cancellation; retrying
// them cannot change the result.
var permanent = []error{
	domain.ErrNotFound,
	domain.ErrValidation,
	domain.ErrAlreadyClosed,
	domain.ErrInvariantViolation,
	domain.ErrInsufficientStock,
	domain.ErrPersonNotEligible,
	domain.ErrLoanOverdue,
	domain.ErrResourceNotLoanable,
	context.Canceled,
	context.DeadlineExceeded,
}

func isRetryable(err error) bool {
	for _, p := range permanent {
		if errors.Is(err, p) {
			return false
		}
	}
	return true
}

// retry runs fn until it succeeds, fails permanently, or maxAttempts is used up.
// Delays grow as baseDelay * 2^(attempt-1) plus up to 30% jitter.
func retry(ctx context.Context, maxAttempts int, baseDelay time.Duration, fn func(ctx context.Context, attempt int) error) error {
	if maxAttempts < 1 {
		maxAttempts = defaultMaxAttempts
	}
	if baseDelay < 0 {
		baseDelay = defaultBaseDelay
	}

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			delay := baseDelay * time.Duration(1<<(attempt-1))
			jitter := rand.Float64() * float64(delay) * defaultJitterFactor //nolint:gosec // jitter only
			select {
			case <-time.After(delay + time.Duration(jitter)):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		lastErr = fn(ctx, attempt)
		if lastErr == nil || !isRetryable(lastErr) {
			return lastErr
		}
	}
	return lastErr
}
