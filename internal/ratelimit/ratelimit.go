// Package ratelimit provides a keyed rate limiter using token bucket algorithm.
// Keys are client IPs for the auth endpoints and user IDs for handover messaging.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// entry pairs a limiter with the last time its key was seen.
type entry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// KeyedRateLimiter manages per-key rate limiting.
// Each unique key gets its own independent rate limiter; keys idle longer
// than the TTL are evicted so the map does not grow without bound.
type KeyedRateLimiter struct {
	mu      sync.Mutex
	entries map[string]*entry
	limit   rate.Limit
	burst   int
	ttl     time.Duration
	now     func() time.Time

	done     chan struct{}
	stopOnce sync.Once
}

// New creates a new keyed rate limiter.
// rps: requests per second allowed.
// burst: maximum burst size (tokens available immediately).
func New(rps float64, burst int) *KeyedRateLimiter {
	return newLimiter(rate.Limit(rps), burst, 10*time.Minute)
}

// PerMinute creates a limiter allowing n events per minute per key.
func PerMinute(n, burst int) *KeyedRateLimiter {
	return newLimiter(rate.Every(time.Minute/time.Duration(n)), burst, 10*time.Minute)
}

func newLimiter(limit rate.Limit, burst int, ttl time.Duration) *KeyedRateLimiter {
	krl := &KeyedRateLimiter{
		entries: make(map[string]*entry),
		limit:   limit,
		burst:   burst,
		ttl:     ttl,
		now:     time.Now,
		done:    make(chan struct{}),
	}
	go krl.cleanup(ttl / 2)
	return krl
}

// Allow checks if a request for the given key should be allowed.
// Returns immediately without blocking.
func (krl *KeyedRateLimiter) Allow(key string) bool {
	return krl.getLimiter(key).Allow()
}

// Wait blocks until a request for the given key is allowed or context is canceled.
func (krl *KeyedRateLimiter) Wait(ctx context.Context, key string) error {
	return krl.getLimiter(key).Wait(ctx)
}

// Len returns the number of tracked keys.
func (krl *KeyedRateLimiter) Len() int {
	krl.mu.Lock()
	defer krl.mu.Unlock()
	return len(krl.entries)
}

func (krl *KeyedRateLimiter) getLimiter(key string) *rate.Limiter {
	krl.mu.Lock()
	defer krl.mu.Unlock()

	e, ok := krl.entries[key]
	if !ok {
		e = &entry{limiter: rate.NewLimiter(krl.limit, krl.burst)}
		krl.entries[key] = e
	}
	e.lastSeen = krl.now()
	return e.limiter
}

// evictIdle drops keys not seen within the TTL.
func (krl *KeyedRateLimiter) evictIdle() {
	cutoff := krl.now().Add(-krl.ttl)

	krl.mu.Lock()
	defer krl.mu.Unlock()
	for key, e := range krl.entries {
		if e.lastSeen.Before(cutoff) {
			delete(krl.entries, key)
		}
	}
}

// Stop shuts down the cleanup goroutine.
func (krl *KeyedRateLimiter) Stop() {
	krl.stopOnce.Do(func() {
		close(krl.done)
	})
}

func (krl *KeyedRateLimiter) cleanup(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-krl.done:
			return
		case <-ticker.C:
			krl.evictIdle()
		}
	}
}
