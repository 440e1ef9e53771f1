package resilience

import (
	"context"
	"errors"
	"math/rand"
	"strings"
	"time"
)

// RetryConfig holds configuration for retrying provider calls
type RetryConfig struct {
	MaxAttempts       int           // Maximum number of attempts, including the first
	InitialBackoff    time.Duration // Initial backoff duration
	MaxBackoff        time.Duration // Maximum backoff duration
	BackoffMultiplier float64       // Multiplier for exponential backoff
	Jitter            bool          // Whether to add up to 25% jitter to backoff
}

// DefaultRetryConfig returns a default retry configuration
func DefaultRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxAttempts:       3,
		InitialBackoff:    100 * time.Millisecond,
		MaxBackoff:        5 * time.Second,
		BackoffMultiplier: 2.0,
		Jitter:            true,
	}
}

// IsRetryableError decides whether an error is worth another attempt
type IsRetryableError func(error) bool

// backoff yields the waits of one retry loop
type backoff struct {
	next       time.Duration
	max        time.Duration
	multiplier float64
	jitter     bool
}

func (b *backoff) wait() time.Duration {
	d := b.next
	if b.jitter && d > 0 {
		d += time.Duration(rand.Int63n(int64(d)/4 + 1))
	}
	if b.max > 0 && d > b.max {
		d = b.max
	}

	b.next = time.Duration(float64(b.next) * b.multiplier)
	if b.max > 0 && b.next > b.max {
		b.next = b.max
	}
	return d
}

// sleep waits for d or until ctx is done
func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// RetryValue calls fn until it succeeds, returns a non-retryable error, runs out
// of attempts, or ctx is done. The last error is returned on failure.
func RetryValue[T any](ctx context.Context, config *RetryConfig, fn func(ctx context.Context) (T, error), isRetryable IsRetryableError) (T, error) {
	if config == nil {
		config = DefaultRetryConfig()
	}

	b := &backoff{
		next:       config.InitialBackoff,
		max:        config.MaxBackoff,
		multiplier: config.BackoffMultiplier,
		jitter:     config.Jitter,
	}

	var (
		zero    T
		lastErr error
	)
	for attempt := 0; attempt < config.MaxAttempts; attempt++ {
		v, err := fn(ctx)
		if err == nil {
			return v, nil
		}
		lastErr = err

		if ctx.Err() != nil || (isRetryable != nil && !isRetryable(err)) {
			return zero, err
		}
		if attempt == config.MaxAttempts-1 {
			break
		}
		if sleep(ctx, b.wait()) != nil {
			return zero, lastErr
		}
	}

	return zero, lastErr
}

// Upstream error text that marks a transient failure of Deepgram or OpenAI
var retryableFragments = []string{
	"connection refused",
	"connection reset",
	"connection closed",
	"unavailable",
	"network is unreachable",
	"no route to host",
	"eof",
	"timeout",
	"rate limit",
	"too many requests",
	"429",
	"500 internal server error",
	"502 bad gateway",
	"503 service unavailable",
}

// IsRetryableNetworkError checks if an error looks like a transient upstream failure.
// Open circuits and cancelled contexts are never retried.
func IsRetryableNetworkError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrCircuitOpen) || errors.Is(err, context.Canceled) {
		return false
	}
	if IsRetryable(err) {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, fragment := range retryableFragments {
		if strings.Contains(msg, fragment) {
			return true
		}
	}
	return false
}

// RetryableError marks an error as transient regardless of its text
type RetryableError struct {
	Err error
}

func (e *RetryableError) Error() string {
	return e.Err.Error()
}

func (e *RetryableError) Unwrap() error {
	return e.Err
}

// NewRetryableError wraps err as retryable. A nil err stays nil.
func NewRetryableError(err error) error {
	if err == nil {
		return nil
	}
	return &RetryableError{Err: err}
}

// IsRetryable checks if an error is a RetryableError
func IsRetryable(err error) bool {
	var retryableErr *RetryableError
	return errors.As(err, &retryableErr)
}
