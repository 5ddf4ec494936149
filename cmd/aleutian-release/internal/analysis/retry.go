// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package analysis

import (
	"context"
	"math/rand"
	"time"
)

// RetryPolicy configures exponential-backoff retry around provider calls.
type RetryPolicy struct {
	// MaxAttempts is the maximum number of attempts (including initial).
	// Default: 3
	MaxAttempts int

	// InitialBackoff is the wait before the first retry. Default: 1s
	InitialBackoff time.Duration

	// MaxBackoff caps the wait between retries. Default: 30s
	MaxBackoff time.Duration

	// BackoffFactor is the per-attempt multiplier. Default: 2.0
	BackoffFactor float64

	// JitterFactor is the maximum jitter as a fraction of the backoff
	// (0-1). Default: 0.2
	JitterFactor float64
}

// DefaultRetryPolicy returns sensible defaults for provider calls.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:    3,
		InitialBackoff: 1 * time.Second,
		MaxBackoff:     30 * time.Second,
		BackoffFactor:  2.0,
		JitterFactor:   0.2,
	}
}

// Validate checks the policy for internal consistency.
func (p RetryPolicy) Validate() error {
	if p.MaxAttempts < 1 {
		return &ConfigError{Field: "retry.max_attempts", Reason: "must be at least 1"}
	}
	if p.InitialBackoff <= 0 {
		return &ConfigError{Field: "retry.initial_backoff", Reason: "must be positive"}
	}
	if p.MaxBackoff < p.InitialBackoff {
		return &ConfigError{Field: "retry.max_backoff", Reason: "must be at least the initial backoff"}
	}
	if p.BackoffFactor < 1.0 {
		return &ConfigError{Field: "retry.backoff_factor", Reason: "must be at least 1.0"}
	}
	return nil
}

// RetryableFunc is an operation eligible for retry. It returns nil on
// success; retry eligibility of a returned error is decided by the
// policy's predicate, not by the function.
type RetryableFunc func(ctx context.Context, attempt int) error

// Do executes fn under the policy.
//
// Only retryable errors (per isRetryable) trigger another attempt; a
// non-retryable error returns immediately without consuming remaining
// attempts. Exhausting all attempts returns the last error.
//
// # Inputs
//
//   - ctx: Context for cancellation. Must not be nil. Backoff waits
//     respect cancellation.
//   - fn: The operation to execute.
//
// # Outputs
//
//   - int: The number of attempts made.
//   - error: The last error if all attempts failed, nil on success.
func (p RetryPolicy) Do(ctx context.Context, fn RetryableFunc) (int, error) {
	backoff := p.InitialBackoff
	var lastErr error

	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return attempt, err
		}

		err := fn(ctx, attempt)
		if err == nil {
			return attempt, nil
		}
		lastErr = err

		if !isRetryable(err) {
			return attempt, err
		}
		if attempt == p.MaxAttempts {
			return attempt, lastErr
		}

		select {
		case <-ctx.Done():
			return attempt, ctx.Err()
		case <-time.After(withJitter(backoff, p.JitterFactor)):
		}

		backoff = nextBackoff(backoff, p.BackoffFactor, p.MaxBackoff)
	}

	return p.MaxAttempts, lastErr
}

// withJitter spreads a backoff over [base*(1-jitter), base*(1+jitter)].
func withJitter(base time.Duration, jitterFactor float64) time.Duration {
	if jitterFactor <= 0 {
		return base
	}
	jitter := (rand.Float64()*2 - 1) * jitterFactor
	return time.Duration(float64(base) * (1.0 + jitter))
}

func nextBackoff(current time.Duration, factor float64, max time.Duration) time.Duration {
	next := time.Duration(float64(current) * factor)
	if next > max {
		return max
	}
	return next
}
