package httpserver

import (
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

// limiterIdleTTL is how long a bucket may go unused before it is dropped. A
// bucket refills completely within a minute, so one idle that long is
// indistinguishable from a fresh one.
const limiterIdleTTL = time.Minute

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen atomic.Int64 // unix nanos
}

// LimiterRegistry hands out one token bucket per client key (the client IP).
// Buckets idle for longer than limiterIdleTTL are swept at most once per
// limiterIdleTTL, from GetOrCreate.
type LimiterRegistry struct {
	mu        sync.RWMutex
	limiters  map[string]*limiterEntry
	perMinute int
	lastSweep time.Time
	now       func() time.Time
}

// NewLimiterRegistry creates a registry whose buckets refill perMinute
// tokens per minute with a burst of perMinute. perMinute <= 0 disables it.
func NewLimiterRegistry(perMinute int) *LimiterRegistry {
	return &LimiterRegistry{
		limiters:  make(map[string]*limiterEntry),
		perMinute: perMinute,
		lastSweep: time.Now(),
		now:       time.Now,
	}
}

// GetOrCreate retrieves the limiter for key, creating it on first use.
func (r *LimiterRegistry) GetOrCreate(key string) *rate.Limiter {
	now := r.now()

	r.mu.RLock()
	entry, exists := r.limiters[key]
	due := now.Sub(r.lastSweep) >= limiterIdleTTL
	r.mu.RUnlock()

	if exists && !due {
		entry.lastSeen.Store(now.UnixNano())
		return entry.limiter
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if now.Sub(r.lastSweep) >= limiterIdleTTL {
		r.sweep(now)
	}

	// Double-check after acquiring write lock
	if entry, exists := r.limiters[key]; exists {
		entry.lastSeen.Store(now.UnixNano())
		return entry.limiter
	}

	entry = &limiterEntry{
		limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(r.perMinute)), r.perMinute),
	}
	entry.lastSeen.Store(now.UnixNano())
	r.limiters[key] = entry
	return entry.limiter
}

// sweep drops idle buckets. r.mu must be held for writing.
func (r *LimiterRegistry) sweep(now time.Time) {
	cutoff := now.Add(-limiterIdleTTL).UnixNano()
	for key, entry := range r.limiters {
		if entry.lastSeen.Load() < cutoff {
			delete(r.limiters, key)
		}
	}
	r.lastSweep = now
}

// Len reports how many buckets are currently held.
func (r *LimiterRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.limiters)
}

// Allow consumes one token for key. When the bucket is empty it reports how
// long until the next token.
func (r *LimiterRegistry) Allow(key string) (bool, time.Duration) {
	if r.perMinute <= 0 {
		return true, 0
	}
	limiter := r.GetOrCreate(key)
	if limiter.Allow() {
		return true, 0
	}
	reservation := limiter.Reserve()
	delay := reservation.Delay()
	reservation.Cancel()
	return false, delay
}
