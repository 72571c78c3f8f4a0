package shared

import (
	"context"
	"errors"
	"testing"
	"time"
)

// recordingPolicy records backoff waits instead of sleeping.
func recordingPolicy(attempts int, waits *[]time.Duration) Policy {
	p := NewPolicy(attempts)
	p.Sleep = func(ctx context.Context, d time.Duration) error {
		if waits != nil {
			*waits = append(*waits, d)
		}
		return ctx.Err()
	}
	return p
}

func TestPolicy(t *testing.T) {
	t.Run("Backoff doubles and caps at 10s", func(t *testing.T) {
		p := NewPolicy(6)
		tests := []struct {
			attempt int
			want    time.Duration
		}{
			{1, time.Second},
			{2, 2 * time.Second},
			{3, 4 * time.Second},
			{4, 8 * time.Second},
			{5, 10 * time.Second},
			{6, 10 * time.Second},
		}
		for _, tt := range tests {
			if got := p.Backoff(tt.attempt); got != tt.want {
				t.Errorf("Backoff(%d) = %v, want %v", tt.attempt, got, tt.want)
			}
		}
	})

	t.Run("Do succeeds after failures", func(t *testing.T) {
		var waits []time.Duration
		p := recordingPolicy(3, &waits)

		calls := 0
		err := p.Do(context.Background(), func(ctx context.Context, attempt int) error {
			calls++
			if attempt < 3 {
				return errors.New("flaky")
			}
			return nil
		})
		if err != nil {
			t.Fatalf("expected success, got %v", err)
		}
		if calls != 3 {
			t.Errorf("expected 3 calls, got %d", calls)
		}
		if len(waits) != 2 || waits[0] != time.Second || waits[1] != 2*time.Second {
			t.Errorf("unexpected waits %v", waits)
		}
	})

	t.Run("Do returns last error when attempts run out", func(t *testing.T) {
		p := recordingPolicy(2, nil)
		err := p.Do(context.Background(), func(ctx context.Context, attempt int) error {
			return errors.New("attempt " + string(rune('0'+attempt)))
		})
		if err == nil || err.Error() != "attempt 2" {
			t.Errorf("expected last error, got %v", err)
		}
	})

	t.Run("zero attempts still tries once", func(t *testing.T) {
		calls := 0
		_ = Policy{}.Do(context.Background(), func(ctx context.Context, attempt int) error {
			calls++
			return nil
		})
		if calls != 1 {
			t.Errorf("expected 1 call, got %d", calls)
		}
	})

	t.Run("cancellation interrupts a long backoff", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		p := Policy{Attempts: 3, Initial: time.Hour, Max: time.Hour}

		start := time.Now()
		err := p.Do(ctx, func(ctx context.Context, attempt int) error {
			go func() {
				time.Sleep(10 * time.Millisecond)
				cancel()
			}()
			return errors.New("flaky")
		})
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
		if time.Since(start) > 5*time.Second {
			t.Error("expected backoff to be interrupted")
		}
	})

	t.Run("Retryable stops on permanent errors", func(t *testing.T) {
		p := recordingPolicy(3, nil)
		p.Retryable = func(err error) bool { return !errors.Is(err, ErrAuthFailed) }

		calls := 0
		err := p.Do(context.Background(), func(ctx context.Context, attempt int) error {
			calls++
			return ErrAuthFailed
		})
		if !errors.Is(err, ErrAuthFailed) {
			t.Errorf("expected ErrAuthFailed, got %v", err)
		}
		if calls != 1 {
			t.Errorf("expected 1 call, got %d", calls)
		}
	})
}
