package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Config controls the per-key token buckets
type Config struct {
	Enabled bool          `json:"enabled"`
	RPS     float64       `json:"rps"`
	Burst   int           `json:"burst"`
	IdleTTL time.Duration `json:"idle_ttl"`
}

// Result represents rate limit check result
type Result struct {
	Allowed    bool          `json:"allowed"`
	Limit      float64       `json:"limit"`
	Burst      int           `json:"burst"`
	RetryAfter time.Duration `json:"retry_after"`
}

type entry struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

// RateLimiter keeps one token bucket per key, typically a customer email
type RateLimiter struct {
	mu      sync.Mutex
	config  Config
	entries map[string]*entry
	now     func() time.Time
}

// NewRateLimiter creates a limiter. A disabled config allows everything.
func NewRateLimiter(config Config) *RateLimiter {
	if config.Burst < 1 {
		config.Burst = 1
	}
	if config.IdleTTL <= 0 {
		config.IdleTTL = 15 * time.Minute
	}
	return &RateLimiter{
		config:  config,
		entries: make(map[string]*entry),
		now:     time.Now,
	}
}

// Allow reports whether key may proceed now, consuming a token if so
func (r *RateLimiter) Allow(key string) bool {
	return r.Check(key).Allowed
}

// Check consumes a token for key and reports the outcome
func (r *RateLimiter) Check(key string) *Result {
	if !r.config.Enabled {
		return &Result{Allowed: true, Limit: r.config.RPS, Burst: r.config.Burst}
	}

	now := r.now()
	lim := r.limiter(key, now)

	res := lim.ReserveN(now, 1)
	if !res.OK() {
		return &Result{Allowed: false, Limit: r.config.RPS, Burst: r.config.Burst}
	}
	if delay := res.DelayFrom(now); delay > 0 {
		res.CancelAt(now)
		return &Result{Allowed: false, Limit: r.config.RPS, Burst: r.config.Burst, RetryAfter: delay}
	}
	return &Result{Allowed: true, Limit: r.config.RPS, Burst: r.config.Burst}
}

func (r *RateLimiter) limiter(key string, now time.Time) *rate.Limiter {
	r.mu.Lock()
	defer r.mu.Unlock()

	if ent, ok := r.entries[key]; ok {
		ent.lastSeen = now
		return ent.lim
	}

	lim := rate.NewLimiter(rate.Limit(r.config.RPS), r.config.Burst)
	r.entries[key] = &entry{lim: lim, lastSeen: now}
	return lim
}

// Cleanup drops buckets idle longer than IdleTTL
func (r *RateLimiter) Cleanup() int {
	cutoff := r.now().Add(-r.config.IdleTTL)

	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for k, ent := range r.entries {
		if ent.lastSeen.Before(cutoff) {
			delete(r.entries, k)
			removed++
		}
	}
	return removed
}

// StartJanitor runs Cleanup every interval until ctx is cancelled
func (r *RateLimiter) StartJanitor(ctx context.Context, interval time.Duration) {
	if !r.config.Enabled || interval <= 0 {
		return
	}

	t := time.NewTicker(interval)
	go func() {
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				r.Cleanup()
			}
		}
	}()
}

// Len returns the number of tracked keys
func (r *RateLimiter) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}
