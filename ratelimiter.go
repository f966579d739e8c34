package fedguard

import (
	"sync"
	"time"
)

// RateLimiter throttles the mutating control-surface endpoints so a runaway
// driver cannot spin the simulation faster than intended.
type RateLimiter interface {
	Allow(key string) (allowed bool, remaining int, reset time.Time, err error)
	HealthCheck() error
}

// TokenBucketRateLimiter implements RateLimiter using the token bucket
// algorithm, one bucket per caller key.
type TokenBucketRateLimiter struct {
	mu         sync.RWMutex
	buckets    map[string]*tokenBucket
	capacity   int
	refillRate time.Duration
}

type tokenBucket struct {
	mu         sync.Mutex
	tokens     float64
	lastRefill time.Time
}

func NewTokenBucketRateLimiter(capacity int, refillRate time.Duration) *TokenBucketRateLimiter {
	return &TokenBucketRateLimiter{
		buckets:    make(map[string]*tokenBucket),
		capacity:   capacity,
		refillRate: refillRate,
	}
}

func (rl *TokenBucketRateLimiter) Allow(key string) (allowed bool, remaining int, reset time.Time, err error) {
	rl.mu.Lock()
	bucket, exists := rl.buckets[key]
	if !exists {
		bucket = &tokenBucket{
			tokens:     float64(rl.capacity),
			lastRefill: time.Now(),
		}
		rl.buckets[key] = bucket
	}
	rl.mu.Unlock()

	bucket.mu.Lock()
	defer bucket.mu.Unlock()

	now := time.Now()
	elapsed := now.Sub(bucket.lastRefill)
	bucket.tokens += elapsed.Seconds() * float64(rl.capacity) / rl.refillRate.Seconds()
	if bucket.tokens > float64(rl.capacity) {
		bucket.tokens = float64(rl.capacity)
	}
	bucket.lastRefill = now

	if bucket.tokens >= 1 {
		bucket.tokens--
		return true, int(bucket.tokens), now.Add(rl.refillRate), nil
	}
	return false, 0, now.Add(rl.refillRate), nil
}

func (rl *TokenBucketRateLimiter) HealthCheck() error {
	rl.mu.RLock()
	defer rl.mu.RUnlock()
	_ = len(rl.buckets)
	return nil
}
