package ratelimit

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/time/rate"
)

// Limiter defines the interface for rate limiting
type Limiter interface {
	Allow(key string) bool
}

type bucket struct {
	limiter *rate.Limiter
	seen    time.Time
}

// InMemoryLimiter keeps one token bucket per key in memory. Sweep drops buckets of idle keys.
type InMemoryLimiter struct {
	keys   map[string]*bucket
	mu     sync.Mutex
	r      rate.Limit
	b      int
	refill time.Duration
	clock  clockwork.Clock
}

// NewInMemoryLimiter allows requests actions every per, with bursts of up to burst.
// Example: NewInMemoryLimiter(30, time.Minute, 10) -> one action every 2 seconds, 10 in a row.
func NewInMemoryLimiter(requests int, per time.Duration, burst int) *InMemoryLimiter {
	if requests <= 0 {
		requests = 1
	}
	if burst <= 0 {
		burst = 1
	}
	interval := per / time.Duration(requests)
	return &InMemoryLimiter{
		keys:   make(map[string]*bucket),
		r:      rate.Every(interval),
		b:      burst,
		refill: interval * time.Duration(burst),
		clock:  clockwork.NewRealClock(),
	}
}

// WithClock swaps the time source, for tests
func (l *InMemoryLimiter) WithClock(clock clockwork.Clock) *InMemoryLimiter {
	l.clock = clock
	return l
}

// Allow checks if key may perform an action now
func (l *InMemoryLimiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock.Now()
	entry, exists := l.keys[key]
	if !exists {
		entry = &bucket{limiter: rate.NewLimiter(l.r, l.b)}
		l.keys[key] = entry
	}
	entry.seen = now

	return entry.limiter.AllowN(now, 1)
}

// Sweep forgets keys not seen for idle and returns how many were dropped. A key is kept at least
// until its bucket has refilled, so forgetting it never grants extra actions.
func (l *InMemoryLimiter) Sweep(idle time.Duration) int {
	if idle < l.refill {
		idle = l.refill
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := l.clock.Now().Add(-idle)
	dropped := 0
	for key, entry := range l.keys {
		if entry.seen.Before(cutoff) {
			delete(l.keys, key)
			dropped++
		}
	}
	return dropped
}

// Len is the number of tracked keys
func (l *InMemoryLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.keys)
}
