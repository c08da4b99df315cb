package adapter

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"

	"enrichpipe.io/engine/internal/domain"
)

// RetryConfig bounds a CallWithRetry loop.
type RetryConfig struct {
	// Timeout is the overall deadline for the call, including retries. Per
	// spec.md §5, this is one of the 15s/30s/300s tiers depending on
	// operation cost.
	Timeout time.Duration

	// MaxRetries bounds the number of additional attempts after the first.
	MaxRetries uint64

	// InitialInterval is the first backoff wait; it grows exponentially.
	InitialInterval time.Duration
}

// DefaultRetryConfig returns the 30s-tier default used by most operations.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		Timeout:         30 * time.Second,
		MaxRetries:      2,
		InitialInterval: 200 * time.Millisecond,
	}
}

// retryableError wraps an error that CallWithRetry should retry; any other
// error returned by fn is treated as permanent and returned immediately.
type retryableError struct{ err error }

func (r retryableError) Error() string { return r.err.Error() }
func (r retryableError) Unwrap() error { return r.err }

// Retryable marks err as transient so CallWithRetry retries it.
func Retryable(err error) error {
	if err == nil {
		return nil
	}
	return retryableError{err: err}
}

// CallWithRetry wraps a provider call with bounded exponential backoff. fn
// returns the Attempt it produced (even on failure, so telemetry is never
// lost) and an error; a non-nil error wrapped with Retryable triggers
// another attempt, any other non-nil error stops immediately. The context
// deadline derived from cfg.Timeout always bounds the loop: on expiry, a
// synthetic timeout Attempt is returned per spec.md §5/§7 (ProviderTimeout).
func CallWithRetry(ctx context.Context, provider, action string, cfg RetryConfig, fn func(ctx context.Context) (Attempt, error)) Attempt {
	ctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = cfg.InitialInterval
	bo.MaxElapsedTime = 0 // bounded by ctx instead

	var lastAttempt Attempt
	operation := func() error {
		attempt, err := fn(ctx)
		lastAttempt = attempt
		if err == nil {
			return nil
		}
		var re retryableError
		if errors.As(err, &re) {
			return err
		}
		return backoff.Permanent(err)
	}

	boCtx := backoff.WithContext(backoff.WithMaxRetries(bo, cfg.MaxRetries), ctx)
	err := backoff.Retry(operation, boCtx)
	if err != nil {
		if ctx.Err() != nil {
			return Attempt{
				Provider:   provider,
				Action:     action,
				Status:     domain.StatusFailed,
				Error:      "timeout",
				DurationMs: cfg.Timeout.Milliseconds(),
			}
		}
		if lastAttempt.Provider == "" {
			return Attempt{
				Provider: provider,
				Action:   action,
				Status:   domain.StatusFailed,
				Error:    err.Error(),
			}
		}
	}
	return lastAttempt
}
