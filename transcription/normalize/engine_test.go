package normalize

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kbukum/transcribekit/errors"
	"github.com/kbukum/transcribekit/httpclient"
)

// recordingSleep captures requested delays without waiting.
type recordingSleep struct {
	delays []time.Duration
}

func (s *recordingSleep) Sleep(ctx context.Context, d time.Duration) error {
	s.delays = append(s.delays, d)
	return ctx.Err()
}

func TestDo_RetriesWithLinearBackoff(t *testing.T) {
	sleep := &recordingSleep{}
	var notices []RetryNotice
	e := New(Config{}, WithSleep(sleep.Sleep), WithOnRetry(func(_ context.Context, n RetryNotice) {
		notices = append(notices, n)
	}))

	var calls atomic.Int32
	_, err := Do(context.Background(), e, func(ctx context.Context, attempt int) (string, error) {
		calls.Add(1)
		return "", statusErr(503, "")
	})
	if err == nil || err.Code != errors.ErrCodeServerError {
		t.Fatalf("expected ServerError, got %v", err)
	}
	if calls.Load() != 3 {
		t.Errorf("expected 3 attempts, got %d", calls.Load())
	}
	want := []time.Duration{time.Second, 2 * time.Second}
	if len(sleep.delays) != len(want) {
		t.Fatalf("expected delays %v, got %v", want, sleep.delays)
	}
	for i := range want {
		if sleep.delays[i] != want[i] {
			t.Errorf("delay %d = %v, want %v", i, sleep.delays[i], want[i])
		}
	}
	if len(notices) != 2 || notices[0].Attempt != 1 || notices[1].Attempt != 2 {
		t.Errorf("unexpected notices %+v", notices)
	}
	if notices[0].Cause.Code != errors.ErrCodeServerError {
		t.Errorf("notice cause not normalized: %v", notices[0].Cause)
	}
}

func TestDo_NonRetryableStopsImmediately(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want errors.ErrorCode
	}{
		{"401", statusErr(401, ""), errors.ErrCodeAuthFailed},
		{"400", statusErr(400, `{"detail":"bad"}`), errors.ErrCodeBadRequest},
		{"413", statusErr(413, ""), errors.ErrCodePayloadTooLarge},
		{"auth unavailable", errors.AuthUnavailable(fmt.Errorf("relay down")), errors.ErrCodeAuthUnavailable},
		{"unknown", fmt.Errorf("?"), errors.ErrCodeUnknown},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			sleep := &recordingSleep{}
			e := New(Config{}, WithSleep(sleep.Sleep))
			var calls atomic.Int32
			_, err := Do(context.Background(), e, func(context.Context, int) (int, error) {
				calls.Add(1)
				return 0, tc.err
			})
			if err == nil || err.Code != tc.want {
				t.Fatalf("expected %s, got %v", tc.want, err)
			}
			if calls.Load() != 1 || len(sleep.delays) != 0 {
				t.Errorf("expected a single attempt, got calls=%d delays=%v", calls.Load(), sleep.delays)
			}
		})
	}
}

func TestDo_RecoversOnLaterAttempt(t *testing.T) {
	sleep := &recordingSleep{}
	e := New(Config{}, WithSleep(sleep.Sleep))
	got, err := Do(context.Background(), e, func(_ context.Context, attempt int) (int, error) {
		if attempt < 3 {
			return 0, httpclient.NewTimeoutError(context.DeadlineExceeded)
		}
		return attempt, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 3 {
		t.Errorf("expected result from attempt 3, got %d", got)
	}
}

func TestDo_CancelStopsScheduledRetry(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	// Cancel while the first delay is pending.
	sleep := func(ctx context.Context, d time.Duration) error {
		cancel()
		return ctx.Err()
	}
	e := New(Config{}, WithSleep(sleep))

	var calls atomic.Int32
	_, err := Do(ctx, e, func(context.Context, int) (int, error) {
		calls.Add(1)
		return 0, statusErr(500, "")
	})
	if calls.Load() != 1 {
		t.Errorf("expected no attempt after cancel, got %d", calls.Load())
	}
	if err == nil || err.Code != errors.ErrCodeTimeout {
		t.Errorf("expected Timeout after cancel, got %v", err)
	}
}

func TestDo_MaxAttemptsConfigurable(t *testing.T) {
	sleep := &recordingSleep{}
	e := New(Config{MaxAttempts: 1}, WithSleep(sleep.Sleep))
	var calls atomic.Int32
	_, _ = Do(context.Background(), e, func(context.Context, int) (int, error) {
		calls.Add(1)
		return 0, statusErr(503, "")
	})
	if calls.Load() != 1 || e.MaxAttempts() != 1 {
		t.Errorf("expected exactly one attempt, got %d", calls.Load())
	}
}
