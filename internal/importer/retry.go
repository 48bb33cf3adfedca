package importer

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/emrgen/mediahub/internal/adapter"
)

// Retry bounds the attempts made at one external call. Only transient
// errors are retried; attempt n waits n*Delay, or the source's Retry-After
// when that is longer.
type Retry struct {
	Attempts int
	Delay    time.Duration
}

var DefaultRetry = Retry{Attempts: 5, Delay: 250 * time.Millisecond}

func retry[T any](ctx context.Context, r Retry, op string, f func() (T, error)) (T, error) {
	attempts := r.Attempts
	if attempts < 1 {
		attempts = 1
	}

	var (
		out T
		err error
	)
	for n := 1; ; n++ {
		out, err = f()
		if err == nil || !adapter.IsTransient(err) || n >= attempts {
			return out, err
		}

		wait := time.Duration(n) * r.Delay
		var te *adapter.TransientError
		if errors.As(err, &te) && te.RetryAfter > wait {
			wait = te.RetryAfter
		}
		logrus.Debugf("%s: attempt %d/%d failed, retrying in %s: %v", op, n, attempts, wait, err)

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			var zero T
			return zero, ctx.Err()
		case <-timer.C:
		}
	}
}
