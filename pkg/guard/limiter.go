package guard

import (
	"context"
	"sync"
	"time"
)

// Limiter defines the interface for per-client rate limiting
type Limiter interface {
	// Allow checks if a request from the client should be allowed
	Allow(key string) bool

	// Reset forgets the state kept for a client
	Reset(key string) bool
}

// TokenBucket implements a token bucket limiter keyed by client
type TokenBucket struct {
	mu sync.Mutex

	// rate is the number of tokens added per second
	rate float64

	// capacity is the maximum number of tokens
	capacity int64

	// buckets maps keys to their token buckets
	buckets map[string]*bucket

	// sweepInterval is how often idle buckets are collected
	sweepInterval time.Duration

	// bucketTTL is how long to keep inactive buckets
	bucketTTL time.Duration
}

type bucket struct {
	tokens     float64
	lastRefill time.Time
}

func NewTokenBucket(ctx context.Context, rate float64, capacity int64) *TokenBucket {
	tb := &TokenBucket{
		rate:          rate,
		capacity:      capacity,
		buckets:       make(map[string]*bucket),
		sweepInterval: 1 * time.Minute,
		bucketTTL:     5 * time.Minute,
	}

	go tb.sweepPeriodically(ctx)
	return tb
}

func (tb *TokenBucket) Allow(key string) bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	b, exists := tb.buckets[key]
	if !exists {
		b = &bucket{
			tokens:     float64(tb.capacity),
			lastRefill: time.Now(),
		}
		tb.buckets[key] = b
	}
	tb.refill(b)

	if b.tokens < 1 {
		return false
	}

	b.tokens -= 1
	return true
}

func (tb *TokenBucket) refill(b *bucket) {
	now := time.Now()
	elapsed := now.Sub(b.lastRefill).Seconds()
	b.tokens += elapsed * tb.rate
	if b.tokens > float64(tb.capacity) {
		b.tokens = float64(tb.capacity)
	}
	b.lastRefill = now
}

func (tb *TokenBucket) Reset(key string) bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	if _, ok := tb.buckets[key]; ok {
		delete(tb.buckets, key)
		return true
	}

	return false
}

func (tb *TokenBucket) sweepPeriodically(ctx context.Context) {
	ticker := time.NewTicker(tb.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-ticker.C:
			tb.mu.Lock()
			cutoff := time.Now().Add(-tb.bucketTTL)
			for key, b := range tb.buckets {
				if b.lastRefill.Before(cutoff) {
					delete(tb.buckets, key)
				}
			}
			tb.mu.Unlock()
		}
	}
}
