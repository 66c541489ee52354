package services

import (
	"fmt"
	"time"

	"github.com/dmitrijs2005/credgate/internal/common"
)

// RateLimiter is a single-timestamp throttle: an action is allowed again
// once window has passed since it last ran. It keeps no state of its own;
// the caller stores the timestamp with the throttled entity.
type RateLimiter struct {
	window time.Duration
}

func NewRateLimiter(window time.Duration) *RateLimiter {
	return &RateLimiter{window: window}
}

// Allow reports whether an action last performed at last may run at now.
// A nil last means the action never ran.
func (r *RateLimiter) Allow(last *time.Time, now time.Time) bool {
	return r.RetryAfter(last, now) == 0
}

// RetryAfter returns how long until the action is allowed, or zero.
func (r *RateLimiter) RetryAfter(last *time.Time, now time.Time) time.Duration {
	if last == nil {
		return 0
	}
	elapsed := now.Sub(*last)
	if elapsed >= r.window {
		return 0
	}
	if elapsed < 0 {
		return r.window
	}
	return r.window - elapsed
}

// RateLimitedError is returned when a throttled action is attempted too
// early. It matches common.ErrRateLimited.
type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("%v: retry in %s", common.ErrRateLimited, e.RetryAfter.Round(time.Second))
}

func (e *RateLimitedError) Unwrap() error { return common.ErrRateLimited }
