package storage

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/jdziat/compliscan/pkg/core"
)

// RetryConfig controls how background archive writes are retried.
type RetryConfig struct {
	// MaxAttempts includes the first attempt. Default: 3
	MaxAttempts int

	// InitialBackoff. Default: 50ms
	InitialBackoff time.Duration

	// MaxBackoff. Default: 1s
	MaxBackoff time.Duration

	// BackoffMultiplier is applied after each attempt. Default: 2.0
	BackoffMultiplier float64

	// JitterFraction is the fraction of backoff to randomize (0.0 to 1.0).
	// Default: 0.1
	JitterFraction float64
}

// DefaultRetryConfig returns the default retry configuration.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:       3,
		InitialBackoff:    50 * time.Millisecond,
		MaxBackoff:        time.Second,
		BackoffMultiplier: 2.0,
		JitterFraction:    0.1,
	}
}

// retryWithBackoff runs op until it succeeds, fails permanently, or attempts
// run out. It returns the last error.
func retryWithBackoff(ctx context.Context, config RetryConfig, op func() error) error {
	var lastErr error
	backoff := config.InitialBackoff

	for attempt := 1; attempt <= max(config.MaxAttempts, 1); attempt++ {
		lastErr = op()
		if lastErr == nil || !isRetryable(lastErr) {
			return lastErr
		}
		if attempt >= config.MaxAttempts {
			break
		}

		jitter := time.Duration(float64(backoff) * config.JitterFraction * (rand.Float64()*2 - 1))
		sleep := backoff + jitter
		if sleep < 0 {
			sleep = backoff
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(sleep):
		}

		backoff = time.Duration(float64(backoff) * config.BackoffMultiplier)
		if backoff > config.MaxBackoff {
			backoff = config.MaxBackoff
		}
	}

	return lastErr
}

// isRetryable treats database errors as transient (locks, dropped
// connections) and validation or context errors as permanent.
func isRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	return !errors.Is(err, core.ErrInvalidArgument)
}
