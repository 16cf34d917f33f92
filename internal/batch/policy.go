package batch

import (
	"context"
	"errors"
	"math"
	"time"

	"bdresolve/internal/services"
)

// Policy governs per-file retries. Backoff maps the zero-based attempt
// number that just failed onto a wait; Sleep performs the wait and is
// injectable for tests.
type Policy struct {
	MaxAttempts int
	Backoff     func(attempt int) time.Duration
	Sleep       func(ctx context.Context, d time.Duration) error
}

// DefaultPolicy retries twice after the first failure with exponential
// waits of 2^attempt seconds.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: 3,
		Backoff: func(attempt int) time.Duration {
			return time.Duration(math.Pow(2, float64(attempt))) * time.Second
		},
		Sleep: sleepContext,
	}
}

func (p Policy) normalized() Policy {
	if p.MaxAttempts < 1 {
		p.MaxAttempts = 1
	}
	if p.Backoff == nil {
		p.Backoff = DefaultPolicy().Backoff
	}
	if p.Sleep == nil {
		p.Sleep = sleepContext
	}
	return p
}

// retryable reports whether a failure is worth another attempt.
// Cancellation and caller mistakes are not.
func retryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	return services.IsRetryable(err)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
