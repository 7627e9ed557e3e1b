package retry

import (
	"context"
	"time"
)

// Policy is a fixed-delay retry policy. MaxAttempts counts every invocation
// including the first; Delay is the fixed wait between attempts. There is no
// backoff growth: the remote service rate-limits by interval, not by load,
// so a constant spacing behaves better than an exponential one.
type Policy struct {
	MaxAttempts int
	Delay       time.Duration
}

// Do invokes fn until it succeeds or the policy's attempts are exhausted.
// The last failure is returned unchanged; intermediate failures are not
// accumulated or wrapped. A running attempt is never interrupted; ctx is
// only consulted while waiting out the delay between attempts.
func Do(ctx context.Context, p Policy, fn func() error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return lastErr
			case <-time.After(p.Delay):
			}
		}

		if err := fn(); err != nil {
			lastErr = err
			continue
		}
		return nil
	}
	return lastErr
}
