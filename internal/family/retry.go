package family

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Retry policy for one fetch invocation: 1s initial delay, doubling,
// capped at 10s, three attempts total. The poller's periodic schedule is
// the outer safety net once local retries exhaust.
const (
	retryInitialInterval = 1 * time.Second
	retryMaxInterval     = 10 * time.Second
	retryMaxAttempts     = 3
)

// Retry runs op with exponential backoff. Non-transient FetchErrors
// (quota, decode) stop immediately; context cancellation stops between
// attempts. The returned error is the last attempt's error.
func Retry(ctx context.Context, op func() error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = retryInitialInterval
	b.Multiplier = 2
	b.MaxInterval = retryMaxInterval
	b.RandomizationFactor = 0

	wrapped := func() error {
		err := op()
		if err == nil {
			return nil
		}
		var fe *FetchError
		if errors.As(err, &fe) && !fe.Transient() {
			return backoff.Permanent(err)
		}
		return err
	}

	return backoff.Retry(wrapped, backoff.WithContext(
		backoff.WithMaxRetries(b, retryMaxAttempts-1), ctx))
}
