// Package ratelimit paces outbound API calls with one token bucket per key.
package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// DelayObserver receives the time a caller spent blocked on a bucket.
type DelayObserver interface {
	ObserveRateLimitDelay(key string, d time.Duration)
}

// Limiter manages per-key rate limits.
type Limiter struct {
	mu           sync.Mutex
	limiters     map[string]*rate.Limiter
	perKey       map[string]rate.Limit
	defaultRate  rate.Limit
	defaultBurst int
	observer     DelayObserver
}

// Config holds rate limiter configuration. Rates are requests per minute;
// zero or negative means unlimited.
type Config struct {
	DefaultPerMinute float64
	PerMinute        map[string]float64
	Burst            int
}

// New creates a new Limiter. observer may be nil.
func New(cfg Config, observer DelayObserver) *Limiter {
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}
	perKey := make(map[string]rate.Limit, len(cfg.PerMinute))
	for key, qpm := range cfg.PerMinute {
		perKey[key] = perMinute(qpm)
	}
	return &Limiter{
		limiters:     make(map[string]*rate.Limiter),
		perKey:       perKey,
		defaultRate:  perMinute(cfg.DefaultPerMinute),
		defaultBurst: burst,
		observer:     observer,
	}
}

func perMinute(qpm float64) rate.Limit {
	if qpm <= 0 {
		return rate.Inf
	}
	return rate.Limit(qpm / 60)
}

// Wait blocks until a token is available for key, respecting the context.
func (l *Limiter) Wait(ctx context.Context, key string) error {
	limiter := l.bucket(key)

	start := time.Now()
	if err := limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait %s: %w", key, err)
	}
	// Immediate grants are not worth a histogram sample.
	if d := time.Since(start); d > time.Millisecond && l.observer != nil {
		l.observer.ObserveRateLimitDelay(key, d)
	}
	return nil
}

func (l *Limiter) bucket(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	limiter, ok := l.limiters[key]
	if !ok {
		r, found := l.perKey[key]
		if !found {
			r = l.defaultRate
		}
		limiter = rate.NewLimiter(r, l.defaultBurst)
		l.limiters[key] = limiter
	}
	return limiter
}
