package services

import (
	"errors"
	"testing"
	"time"

	"github.com/dmitrijs2005/credgate/internal/common"
	"github.com/stretchr/testify/assert"
)

func TestRateLimiter_Window(t *testing.T) {
	l := NewRateLimiter(60 * time.Second)
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	at := func(d time.Duration) *time.Time {
		v := now.Add(-d)
		return &v
	}

	tests := []struct {
		name  string
		last  *time.Time
		allow bool
		wait  time.Duration
	}{
		{name: "never sent", last: nil, allow: true},
		{name: "just now", last: at(0), allow: false, wait: 60 * time.Second},
		{name: "59s ago", last: at(59 * time.Second), allow: false, wait: time.Second},
		{name: "59.999s ago", last: at(59*time.Second + 999*time.Millisecond), allow: false, wait: time.Millisecond},
		{name: "exactly 60s ago", last: at(60 * time.Second), allow: true},
		{name: "an hour ago", last: at(time.Hour), allow: true},
		{name: "in the future", last: at(-5 * time.Second), allow: false, wait: 60 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.allow, l.Allow(tt.last, now))
			assert.Equal(t, tt.wait, l.RetryAfter(tt.last, now))
		})
	}
}

func TestRateLimitedError(t *testing.T) {
	err := error(&RateLimitedError{RetryAfter: 42 * time.Second})
	assert.True(t, errors.Is(err, common.ErrRateLimited))
	assert.Contains(t, err.Error(), "retry in 42s")

	var rl *RateLimitedError
	assert.True(t, errors.As(err, &rl))
	assert.Equal(t, 42*time.Second, rl.RetryAfter)
}
