package domain

import (
	"context"
	"math"
	"time"

	"github.com/cenkalti/backoff/v4"

	appError "batchingest/internal/shared/error"
)

// RetryPolicy configures delivery retries. Attempt n (starting at 0) that
// fails transiently is followed by a wait of 2^n * Unit.
type RetryPolicy struct {
	MaxRetries int
	Unit       time.Duration
	// NewTimer overrides the timer used between attempts. Nil uses real time.
	NewTimer func() backoff.Timer
}

// retrier is shared by the publisher and the dead-letter router.
type retrier struct {
	policy RetryPolicy
}

func newRetrier(policy RetryPolicy) *retrier {
	if policy.MaxRetries < 0 {
		policy.MaxRetries = 0
	}
	if policy.Unit <= 0 {
		policy.Unit = time.Second
	}
	return &retrier{policy: policy}
}

func (r *retrier) schedule(ctx context.Context) backoff.BackOffContext {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = r.policy.Unit
	exp.Multiplier = 2
	exp.RandomizationFactor = 0
	exp.MaxInterval = time.Duration(math.MaxInt64)
	exp.MaxElapsedTime = 0
	return backoff.WithContext(backoff.WithMaxRetries(exp, uint64(r.policy.MaxRetries)), ctx)
}

// do runs send until it succeeds, fails with a non-transient error, or the
// retries are used up. It returns the number of attempts made.
func (r *retrier) do(ctx context.Context, send func() error, notify backoff.Notify) (int, error) {
	attempts := 0
	operation := func() error {
		attempts++
		err := send()
		if err == nil {
			return nil
		}
		if !appError.IsTransient(err) {
			return backoff.Permanent(err)
		}
		return err
	}

	var timer backoff.Timer
	if r.policy.NewTimer != nil {
		timer = r.policy.NewTimer()
	}
	err := backoff.RetryNotifyWithTimer(operation, r.schedule(ctx), notify, timer)
	return attempts, err
}
