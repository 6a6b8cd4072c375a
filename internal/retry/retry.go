// Package retry implements the backoff policy shared by all provider
// adapters. Both remote providers signal throttling the same way (a 429
// status or a "throttled"/"rate limit" message, sometimes with a reset hint),
// so classification lives here instead of being duplicated per provider.
package retry

import (
	"context"
	"errors"
	"regexp"
	"strconv"
	"strings"
	"time"

	"renderless/internal/domain"
)

const (
	DefaultMaxAttempts  = 5
	DefaultInitialDelay = 2 * time.Second
	DefaultMaxDelay     = 60 * time.Second
)

// Options tunes a retry loop. The zero value applies the defaults above.
type Options struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration

	// Sleep overrides the wait primitive, used by tests to observe the
	// schedule without real delays.
	Sleep func(ctx context.Context, d time.Duration) error
}

func (o Options) withDefaults() Options {
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = DefaultMaxAttempts
	}
	if o.InitialDelay <= 0 {
		o.InitialDelay = DefaultInitialDelay
	}
	if o.MaxDelay <= 0 {
		o.MaxDelay = DefaultMaxDelay
	}
	if o.Sleep == nil {
		o.Sleep = wait
	}
	return o
}

// Do runs op up to MaxAttempts times, waiting between attempts only for
// errors classified as transient. The last observed error is returned as-is,
// never wrapped, so the caller sees the true root cause.
func Do[T any](ctx context.Context, op func(ctx context.Context) (T, error), opts Options) (T, error) {
	opts = opts.withDefaults()
	var zero T
	var lastErr error
	for attempt := 0; attempt < opts.MaxAttempts; attempt++ {
		out, err := op(ctx)
		if err == nil {
			return out, nil
		}
		lastErr = err
		if !Retryable(err) {
			return zero, err
		}
		if attempt == opts.MaxAttempts-1 {
			break
		}
		if werr := opts.Sleep(ctx, Delay(err, attempt, opts.InitialDelay, opts.MaxDelay)); werr != nil {
			return zero, lastErr
		}
	}
	return zero, lastErr
}

// Retryable reports whether an error is transient. Rate limits and connection
// failures are retryable; validation and auth failures never are.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, domain.ErrValidation) || errors.Is(err, domain.ErrAuth) {
		return false
	}
	if errors.Is(err, domain.ErrRateLimited) || errors.Is(err, domain.ErrConnection) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "429") ||
		strings.Contains(msg, "throttled") ||
		strings.Contains(msg, "rate limit")
}

// Delay computes the wait before the next attempt: the provider-declared
// reset hint plus a one second buffer when present, otherwise exponential
// backoff from initial, always capped at max.
func Delay(err error, attempt int, initial, max time.Duration) time.Duration {
	if hint, ok := ResetHint(err); ok {
		return capAt(hint+time.Second, max)
	}
	d := initial
	for i := 0; i < attempt; i++ {
		d *= 2
		if d >= max {
			return max
		}
	}
	return capAt(d, max)
}

var resetHintPattern = regexp.MustCompile(`resets in ~?(\d+)s`)

// ResetHint extracts a provider-declared rate-limit reset duration, either
// from a ProviderError field or embedded in the error text.
func ResetHint(err error) (time.Duration, bool) {
	if err == nil {
		return 0, false
	}
	var pe *domain.ProviderError
	if errors.As(err, &pe) && pe.RetryAfter > 0 {
		return pe.RetryAfter, true
	}
	if m := resetHintPattern.FindStringSubmatch(err.Error()); m != nil {
		if secs, convErr := strconv.Atoi(m[1]); convErr == nil {
			return time.Duration(secs) * time.Second, true
		}
	}
	return 0, false
}

func capAt(d, max time.Duration) time.Duration {
	if d > max {
		return max
	}
	return d
}

// wait blocks on a timer so the delay stays cancellable through the context,
// unlike a bare time.Sleep.
func wait(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
