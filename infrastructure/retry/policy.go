// Package retry implements the exponential backoff policy as a pure
// function and adapts it onto fortify's retry.Retry for the loops that
// need a full retry envelope.
package retry

import (
	"context"
	"math"
	"time"

	"github.com/felixgeelhaar/fortify/retry"
)

// Backoff returns the wait duration before retry attempt k: base 2,
// exponential, no jitter. Retry attempt k waits 2^k seconds.
func Backoff(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	return time.Duration(math.Pow(2, float64(attempt))) * time.Second
}

// Policy wraps fortify's generic retry executor configured with Backoff's
// exponential curve.
type Policy[T any] struct {
	retrier retry.Retry[T]
}

// NewPolicy builds a Policy with maxAttempts total tries (the initial
// attempt plus maxAttempts-1 retries), using Backoff's curve starting at
// attempt 1.
func NewPolicy[T any](maxAttempts int) *Policy[T] {
	return NewPolicyWithInitialDelay[T](maxAttempts, Backoff(1))
}

// NewPolicyWithInitialDelay builds a Policy with an explicit initial
// delay, useful for tests that should not block for a full second.
func NewPolicyWithInitialDelay[T any](maxAttempts int, initialDelay time.Duration) *Policy[T] {
	if maxAttempts <= 0 {
		maxAttempts = 1
	}
	return &Policy[T]{
		retrier: retry.New[T](retry.Config{
			MaxAttempts:   maxAttempts,
			InitialDelay:  initialDelay,
			BackoffPolicy: retry.BackoffExponential,
			Multiplier:    2.0,
		}),
	}
}

// Do executes fn, retrying on error per the configured policy.
func (p *Policy[T]) Do(ctx context.Context, fn func(ctx context.Context) (T, error)) (T, error) {
	return p.retrier.Do(ctx, fn)
}
