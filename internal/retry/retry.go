// Package retry re-runs vendor API calls that were rate limited.
package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/aoi01/fridgesnap/internal/apierr"
)

type Log interface {
	Warn(string, ...zap.Field)
}

// Policy bounds the exponential backoff between attempts.
type Policy struct {
	MaxRetries      uint64
	InitialInterval time.Duration
	MaxInterval     time.Duration
	Multiplier      float64
}

// DefaultPolicy waits 1s, 2s, 4s before giving up.
func DefaultPolicy() Policy {
	return Policy{
		MaxRetries:      3,
		InitialInterval: time.Second,
		MaxInterval:     8 * time.Second,
		Multiplier:      2,
	}
}

func (p Policy) backOff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.InitialInterval
	b.MaxInterval = p.MaxInterval
	b.Multiplier = p.Multiplier
	b.RandomizationFactor = 0
	b.MaxElapsedTime = 0
	b.Reset()
	return backoff.WithContext(backoff.WithMaxRetries(b, p.MaxRetries), ctx)
}

// Do calls op until it succeeds, fails with a non retryable error, the
// retries are exhausted or ctx is done. The last error is returned.
func Do(ctx context.Context, p Policy, log Log, op func(context.Context) error) error {
	attempt := 0
	operation := func() error {
		attempt++
		err := op(ctx)
		if err == nil {
			return nil
		}
		if !apierr.IsRetryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}

	notify := func(err error, wait time.Duration) {
		if log != nil {
			log.Warn("vendor api rate limited, backing off",
				zap.Int("attempt", attempt),
				zap.Duration("wait", wait),
				zap.Error(err))
		}
	}

	return backoff.RetryNotify(operation, p.backOff(ctx), notify)
}
