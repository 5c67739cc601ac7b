package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestDo_SuccessOnFirstAttempt(t *testing.T) {
	var calls int
	err := Do(context.Background(), RetryConfig{MaxAttempts: 3}, func(_ context.Context) error {
		calls++
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
}

func TestDo_SuccessAfterRetry(t *testing.T) {
	var calls int
	cfg := RetryConfig{
		MaxAttempts: 3,
		Delay:       1 * time.Millisecond,
	}

	err := Do(context.Background(), cfg, func(_ context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("temporary")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
}

func TestDo_ExhaustsAttempts(t *testing.T) {
	var calls int
	cfg := RetryConfig{
		MaxAttempts: 3,
		Delay:       1 * time.Millisecond,
	}

	err := Do(context.Background(), cfg, func(_ context.Context) error {
		calls++
		return errors.New("always fails")
	})
	if err == nil {
		t.Fatal("expected error after exhausting attempts")
	}
	if calls != 3 {
		t.Errorf("expected exactly 3 calls, got %d", calls)
	}
}

func TestDo_DefaultsToSingleAttempt(t *testing.T) {
	var calls int
	err := Do(context.Background(), RetryConfig{}, func(_ context.Context) error {
		calls++
		return errors.New("fail")
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Errorf("expected 1 call with zero config, got %d", calls)
	}
}

func TestDo_ShouldRetryStopsEarly(t *testing.T) {
	var calls int
	cfg := RetryConfig{
		MaxAttempts: 3,
		Delay:       1 * time.Millisecond,
		ShouldRetry: func(err error) bool {
			return IsTransient(err)
		},
	}

	err := Do(context.Background(), cfg, func(_ context.Context) error {
		calls++
		return errors.New("permanent: bad request")
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Errorf("expected 1 call for non-retryable error, got %d", calls)
	}
}

func TestDo_ContextCancelledStopsRetry(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var calls int
	cfg := RetryConfig{
		MaxAttempts: 5,
		Delay:       50 * time.Millisecond,
	}

	err := Do(ctx, cfg, func(_ context.Context) error {
		calls++
		if calls == 2 {
			cancel()
		}
		return errors.New("fail")
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls > 2 {
		t.Errorf("expected at most 2 calls after cancel, got %d", calls)
	}
}

func TestDo_NoSleepAfterFinalAttempt(t *testing.T) {
	cfg := RetryConfig{
		MaxAttempts: 2,
		Delay:       10 * time.Millisecond,
	}

	start := time.Now()
	_ = Do(context.Background(), cfg, func(_ context.Context) error {
		return errors.New("fail")
	})
	elapsed := time.Since(start)

	// One sleep between the two attempts, none after the last.
	if elapsed > 100*time.Millisecond {
		t.Errorf("expected a single delay, took %v", elapsed)
	}
}

func TestDo_OnRetryCalledBetweenAttempts(t *testing.T) {
	var retries []int
	cfg := RetryConfig{
		MaxAttempts: 3,
		Delay:       1 * time.Millisecond,
		OnRetry: func(attempt int, err error) {
			retries = append(retries, attempt)
		},
	}

	_ = Do(context.Background(), cfg, func(_ context.Context) error {
		return errors.New("fail")
	})

	// Called after attempts 1 and 2, not after the final attempt.
	if len(retries) != 2 || retries[0] != 1 || retries[1] != 2 {
		t.Errorf("expected OnRetry for attempts [1 2], got %v", retries)
	}
}

func TestDoVal_ReturnsValue(t *testing.T) {
	var calls int
	cfg := RetryConfig{
		MaxAttempts: 2,
		Delay:       1 * time.Millisecond,
	}

	val, err := DoVal(context.Background(), cfg, func(_ context.Context) (string, error) {
		calls++
		if calls == 1 {
			return "", errors.New("temporary")
		}
		return "result", nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if val != "result" {
		t.Errorf("expected %q, got %q", "result", val)
	}
}

func TestDoVal_Multiplier(t *testing.T) {
	var calls int
	cfg := RetryConfig{
		MaxAttempts: 3,
		Delay:       1 * time.Millisecond,
		Multiplier:  2,
	}

	_, err := DoVal(context.Background(), cfg, func(_ context.Context) (int, error) {
		calls++
		return 0, errors.New("fail")
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
}
