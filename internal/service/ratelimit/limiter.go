package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter holds one token bucket per key (per source). A key registered with
// a minimum delay admits one call per delay with no burst.
type Limiter struct {
	mu       sync.Mutex
	m        map[string]*rate.Limiter
	fallback rate.Limit
}

// New returns a limiter; unregistered keys are not limited.
func New() *Limiter {
	return &Limiter{m: make(map[string]*rate.Limiter), fallback: rate.Inf}
}

// SetMinDelay enforces at least d between consecutive calls for key.
func (l *Limiter) SetMinDelay(key string, d time.Duration) {
	lim := rate.NewLimiter(rate.Inf, 1)
	if d > 0 {
		lim = rate.NewLimiter(rate.Every(d), 1)
	}
	l.mu.Lock()
	l.m[key] = lim
	l.mu.Unlock()
}

func (l *Limiter) get(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	b, ok := l.m[key]
	if !ok {
		b = rate.NewLimiter(l.fallback, 1)
		l.m[key] = b
	}
	return b
}

// Wait blocks until key may proceed or ctx is done.
func (l *Limiter) Wait(ctx context.Context, key string) error {
	return l.get(key).Wait(ctx)
}
