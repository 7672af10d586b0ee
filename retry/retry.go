/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package retry

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/chainguard-dev/clog"
)

// Config configures bounded retry for network git operations such as fetch
// and push.
type Config struct {
	// MaxRetries is the maximum number of retry attempts (default: 3).
	// 0 means do not retry at all.
	MaxRetries int
	// BaseBackoff is the initial backoff duration (default: 1s).
	BaseBackoff time.Duration
	// MaxBackoff caps the exponential backoff (default: 30s).
	MaxBackoff time.Duration
	// MaxJitter is the maximum random jitter added to backoff (default: 250ms).
	MaxJitter time.Duration
	// AttemptTimeout bounds every single attempt when positive. A timed out
	// attempt counts as a transient failure.
	AttemptTimeout time.Duration
}

// Validate checks that the retry configuration has valid values.
func (c Config) Validate() error {
	switch {
	case c.MaxRetries < 0:
		return errors.New("max retries cannot be negative")
	case c.BaseBackoff < 0:
		return errors.New("base backoff cannot be negative")
	case c.MaxBackoff < 0:
		return errors.New("max backoff cannot be negative")
	case c.MaxJitter < 0:
		return errors.New("max jitter cannot be negative")
	case c.AttemptTimeout < 0:
		return errors.New("attempt timeout cannot be negative")
	}
	return nil
}

// DefaultConfig returns a retry configuration suitable for transient
// network failures against a git remote.
func DefaultConfig() Config {
	return Config{
		MaxRetries:  3,
		BaseBackoff: 1 * time.Second,
		MaxBackoff:  30 * time.Second,
		MaxJitter:   250 * time.Millisecond,
	}
}

// None returns a configuration that performs a single attempt.
func None() Config {
	return Config{}
}

// Policy reports whether an error is worth another attempt. A nil Policy
// means Transient.
type Policy func(error) bool

// delay is the wait before retry number n (0-based): BaseBackoff * 2^n capped
// at MaxBackoff, plus up to MaxJitter.
func (c Config) delay(n int) time.Duration {
	d := min(c.BaseBackoff<<n, c.MaxBackoff)
	if c.MaxJitter > 0 {
		if j, err := rand.Int(rand.Reader, big.NewInt(int64(c.MaxJitter))); err == nil {
			d += time.Duration(j.Int64())
		}
	}
	return d
}

// attempt runs fn once under the per-attempt deadline.
func attempt[T any](ctx context.Context, c Config, fn func(context.Context) (T, error)) (T, error) {
	if c.AttemptTimeout <= 0 {
		return fn(ctx)
	}
	ctx, cancel := context.WithTimeout(ctx, c.AttemptTimeout)
	defer cancel()
	return fn(ctx)
}

// Do calls fn until it succeeds, fails with an error the policy rejects, or
// the retry budget is spent. fn receives a context scoped to the attempt.
// With MaxRetries == 0 the single attempt's error is returned unwrapped.
func Do[T any](ctx context.Context, cfg Config, operation string, retryable Policy, fn func(context.Context) (T, error)) (T, error) {
	if retryable == nil {
		retryable = Transient
	}

	for n := 0; ; n++ {
		result, err := attempt(ctx, cfg, fn)
		switch {
		case err == nil:
			return result, nil
		case ctx.Err() != nil:
			// The caller gave up; whatever the attempt said is moot.
			return result, ctx.Err()
		case !retryable(err):
			return result, err
		case n == cfg.MaxRetries:
			if n == 0 {
				return result, err
			}
			return result, fmt.Errorf("%s gave up after %d attempts: %w", operation, n+1, err)
		}

		wait := cfg.delay(n)
		clog.FromContext(ctx).With("operation", operation, "attempt", n+1, "max_retries", cfg.MaxRetries, "backoff", wait).
			Warnf("%s failed transiently, retrying: %v", operation, err)

		select {
		case <-ctx.Done():
			return result, ctx.Err()
		case <-time.After(wait):
		}
	}
}

// Run is Do for operations that produce no value, which covers most git
// network calls.
func Run(ctx context.Context, cfg Config, operation string, retryable Policy, fn func(context.Context) error) error {
	_, err := Do(ctx, cfg, operation, retryable, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}
