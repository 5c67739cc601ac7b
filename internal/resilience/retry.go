// Package resilience provides retry policies for the outbound API calls the
// crawler depends on (search and extraction).
package resilience

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// RetryConfig controls how a failed call is reattempted. The default policy
// is a fixed delay between attempts, matching the extraction API contract;
// a Multiplier above 1 turns it into exponential backoff.
type RetryConfig struct {
	// MaxAttempts is the total number of attempts, including the first
	// try. A value of 1 means no retries. Default: 1.
	MaxAttempts int

	// Delay is the wait between attempts. It is applied only after a
	// failed attempt and never after the final one. Default: 0.
	Delay time.Duration

	// Multiplier scales the delay after each failed attempt. Values <= 1
	// keep the delay fixed. Default: 1.
	Multiplier float64

	// ShouldRetry optionally restricts which errors are retried. If nil,
	// every error is retried until MaxAttempts is reached.
	ShouldRetry func(err error) bool

	// OnRetry is called before each retry sleep with the attempt number
	// that failed and its error.
	OnRetry func(attempt int, err error)
}

func applyDefaults(cfg RetryConfig) RetryConfig {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}
	if cfg.Delay < 0 {
		cfg.Delay = 0
	}
	if cfg.Multiplier <= 1 {
		cfg.Multiplier = 1
	}
	return cfg
}

// Do executes fn up to cfg.MaxAttempts times, sleeping cfg.Delay between
// attempts. It returns nil on the first success, or the last error once
// attempts are exhausted. Context cancellation stops the retry loop during
// a sleep; it does not interrupt an in-flight fn.
func Do(ctx context.Context, cfg RetryConfig, fn func(ctx context.Context) error) error {
	_, err := DoVal(ctx, cfg, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

// DoVal is Do for functions that return a value alongside the error.
func DoVal[T any](ctx context.Context, cfg RetryConfig, fn func(ctx context.Context) (T, error)) (T, error) {
	cfg = applyDefaults(cfg)

	var zero T
	var lastErr error
	delay := cfg.Delay
	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		val, err := fn(ctx)
		if err == nil {
			return val, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return zero, lastErr
		}
		if cfg.ShouldRetry != nil && !cfg.ShouldRetry(lastErr) {
			return zero, lastErr
		}
		if attempt == cfg.MaxAttempts {
			break
		}

		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt, lastErr)
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, lastErr
		case <-timer.C:
		}
		delay = time.Duration(float64(delay) * cfg.Multiplier)
	}

	return zero, lastErr
}

// RetryLogger returns an OnRetry callback that logs each retry wait at
// warning level, tagged with the service and the URL being fetched.
func RetryLogger(service, url string, delay time.Duration) func(int, error) {
	return func(attempt int, err error) {
		zap.L().Warn("retrying in "+delay.String(),
			zap.String("service", service),
			zap.String("url", url),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
	}
}
