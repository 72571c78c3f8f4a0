package shared

import (
	"context"
	"time"
)

const (
	defaultInitialBackoff = time.Second
	defaultMaxBackoff     = 10 * time.Second
)

// Policy retries an operation with exponential backoff.
//
// Sleep is the clock; tests replace it to avoid real waits. A nil Sleep uses [SleepContext].
// Retryable, when set, stops the loop early for errors it rejects.
type Policy struct {
	Attempts  int
	Initial   time.Duration
	Max       time.Duration
	Sleep     func(ctx context.Context, d time.Duration) error
	Retryable func(err error) bool
}

// NewPolicy returns a policy with the given attempt count, a 1s initial backoff and a 10s cap.
func NewPolicy(attempts int) Policy {
	return Policy{Attempts: attempts, Initial: defaultInitialBackoff, Max: defaultMaxBackoff}
}

// SleepContext waits for d or until ctx is done, whichever comes first.
func SleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Backoff returns the wait before the attempt following attempt (1-based).
func (p Policy) Backoff(attempt int) time.Duration {
	d := p.Initial
	for i := 1; i < attempt; i++ {
		d *= 2
		if p.Max > 0 && d >= p.Max {
			return p.Max
		}
	}
	if p.Max > 0 && d > p.Max {
		return p.Max
	}
	return d
}

// Do calls fn until it succeeds or the attempts run out, returning the last error.
//
// Cancellation of ctx is checked before every attempt and during backoff and is returned as ctx.Err().
func (p Policy) Do(ctx context.Context, fn func(ctx context.Context, attempt int) error) error {
	sleep := p.Sleep
	if sleep == nil {
		sleep = SleepContext
	}
	attempts := max(p.Attempts, 1)

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		if err = fn(ctx, attempt); err == nil {
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if p.Retryable != nil && !p.Retryable(err) {
			return err
		}

		if attempt < attempts {
			if sleepErr := sleep(ctx, p.Backoff(attempt)); sleepErr != nil {
				return sleepErr
			}
		}
	}
	return err
}
